package shopify

import "github.com/shopspring/decimal"

// FulfillmentStatus mirrors the Shopify order fulfillment_status enum. Shopify
// reports null for unfulfilled orders, which decodes to the empty string.
type FulfillmentStatus string

const (
	StatusUnfulfilled FulfillmentStatus = ""
	StatusPartial     FulfillmentStatus = "partial"
	StatusFulfilled   FulfillmentStatus = "fulfilled"
)

// Shipped reports whether the order already has a complete or partial
// fulfillment, in which case no new fulfillment should be created.
func (s FulfillmentStatus) Shipped() bool {
	return s == StatusFulfilled || s == StatusPartial
}

// Order is a point-in-time snapshot of a Shopify order. Nothing is cached; a
// fresh snapshot is fetched per invocation.
type Order struct {
	ID                string
	FulfillmentStatus FulfillmentStatus
	TotalPrice        decimal.Decimal
	Currency          string
	// Note is free text on the order; by convention the bridge only appends.
	Note         string
	Fulfillments []Fulfillment
}

// Fulfillment is an existing shipment record on an order.
type Fulfillment struct {
	ID             int64
	TrackingNumber string
}

// FulfillmentOrder is a Shopify-side grouping of line items awaiting shipment.
// One must exist before a fulfillment can be created.
type FulfillmentOrder struct {
	ID int64
}

// OrderPatch is a partial order update. Nil fields are left untouched.
type OrderPatch struct {
	Note *string
}

// FulfillmentInput describes a fulfillment to create against a fulfillment order.
type FulfillmentInput struct {
	OrderID            string
	FulfillmentOrderID int64
	TrackingNumber     string
	NotifyCustomer     bool
}

// TrackingUpdate sets a new tracking number on an existing fulfillment.
type TrackingUpdate struct {
	FulfillmentID  int64
	TrackingNumber string
	NotifyCustomer bool
}
