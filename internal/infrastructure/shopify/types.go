package shopify

import (
	"github.com/shopspring/decimal"

	domain "github.com/dealbridge/bitrix-shopify-bridge/internal/domain/shopify"
)

type orderEnvelope struct {
	Order *orderResource `json:"order"`
}

type orderResource struct {
	ID                int64                 `json:"id"`
	FulfillmentStatus string                `json:"fulfillment_status"`
	TotalPrice        string                `json:"total_price"`
	Currency          string                `json:"currency"`
	Note              string                `json:"note"`
	Fulfillments      []fulfillmentResource `json:"fulfillments"`
}

type fulfillmentResource struct {
	ID             int64  `json:"id"`
	TrackingNumber string `json:"tracking_number"`
}

type fulfillmentOrdersEnvelope struct {
	FulfillmentOrders []fulfillmentOrderResource `json:"fulfillment_orders"`
}

type fulfillmentOrderResource struct {
	ID int64 `json:"id"`
}

type orderUpdateEnvelope struct {
	Order orderUpdate `json:"order"`
}

type orderUpdate struct {
	ID   int64   `json:"id,omitempty"`
	Note *string `json:"note,omitempty"`
}

type fulfillmentCreateEnvelope struct {
	Fulfillment fulfillmentCreate `json:"fulfillment"`
}

type fulfillmentCreate struct {
	NotifyCustomer               bool                    `json:"notify_customer"`
	TrackingInfo                 *trackingInfo           `json:"tracking_info,omitempty"`
	LineItemsByFulfillmentOrder  []fulfillmentOrderCover `json:"line_items_by_fulfillment_order"`
}

type fulfillmentOrderCover struct {
	FulfillmentOrderID int64 `json:"fulfillment_order_id"`
}

type trackingUpdateEnvelope struct {
	Fulfillment trackingUpdateBody `json:"fulfillment"`
}

type trackingUpdateBody struct {
	NotifyCustomer bool         `json:"notify_customer"`
	TrackingInfo   trackingInfo `json:"tracking_info"`
}

type trackingInfo struct {
	Number string `json:"number"`
	// Company is deliberately left unset; the carrier is unknown to the CRM.
}

func (r *orderResource) toDomain(orderID string) *domain.Order {
	order := &domain.Order{
		ID:                orderID,
		FulfillmentStatus: domain.FulfillmentStatus(r.FulfillmentStatus),
		TotalPrice:        parseDecimal(r.TotalPrice),
		Currency:          r.Currency,
		Note:              r.Note,
	}
	for _, f := range r.Fulfillments {
		order.Fulfillments = append(order.Fulfillments, domain.Fulfillment{
			ID:             f.ID,
			TrackingNumber: f.TrackingNumber,
		})
	}
	return order
}

// parseDecimal converts a Shopify money string to a decimal, defaulting to zero
// on malformed input.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
