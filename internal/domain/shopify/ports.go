package shopify

import (
	"context"
	"errors"
)

var (
	ErrOrderNotFound   = errors.New("shopify: order not found")
	ErrRequestFailed   = errors.New("shopify: request failed")
	ErrInvalidResponse = errors.New("shopify: invalid response")
)

// OrderReader fetches order snapshots.
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
}

// OrderWriter applies partial updates to an order.
type OrderWriter interface {
	UpdateOrder(ctx context.Context, orderID string, patch OrderPatch) error
}

// FulfillmentAPI covers fulfillment-order lookup and fulfillment create/update.
type FulfillmentAPI interface {
	ListFulfillmentOrders(ctx context.Context, orderID string) ([]FulfillmentOrder, error)
	CreateFulfillment(ctx context.Context, in FulfillmentInput) error
	UpdateTracking(ctx context.Context, upd TrackingUpdate) error
}
