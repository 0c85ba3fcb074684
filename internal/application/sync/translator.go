package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/dealbridge/bitrix-shopify-bridge/internal/domain/deal"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/domain/shopify"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/observability"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/observability/logctx"
)

// Translator derives Shopify order updates from a Bitrix deal snapshot.
//
// Four independent rules are evaluated on every run, in order: fulfillment
// sync, refund detection, tracking sync, note flush. Each rule may queue a note
// fragment; the flush joins queued fragments onto the order note in a single
// update call. Only the base order fetch and the note flush can fail the run;
// rule-level remote failures degrade to a fallback note or a log line.
type Translator struct {
	orders  shopify.OrderReader
	writer  shopify.OrderWriter
	fulfill shopify.FulfillmentAPI

	deliveredStages deal.StageSet
	trackingField   string

	log observability.Logger
}

// NewTranslator wires the translator's collaborators and taxonomy.
func NewTranslator(
	orders shopify.OrderReader,
	writer shopify.OrderWriter,
	fulfill shopify.FulfillmentAPI,
	deliveredStages deal.StageSet,
	trackingField string,
	logger observability.Logger,
) *Translator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Translator{
		orders:          orders,
		writer:          writer,
		fulfill:         fulfill,
		deliveredStages: deliveredStages,
		trackingField:   trackingField,
		log:             logger.With(observability.F("component", "update_translator")),
	}
}

// Translate runs the four rules for one deal-update event. A deal without a
// linked Shopify order is not an error; it simply has no sync target.
func (t *Translator) Translate(ctx context.Context, d deal.Record) error {
	logger := logctx.FromOr(ctx, t.log).With(
		observability.F("deal_id", d.ID),
		observability.F("shopify_order_id", d.ShopifyOrderID),
	)

	if d.ShopifyOrderID == "" {
		logger.Debug("no_sync_target")
		return nil
	}

	order, err := t.orders.GetOrder(ctx, d.ShopifyOrderID)
	if err != nil {
		return fmt.Errorf("sync: fetch order %s: %w", d.ShopifyOrderID, err)
	}

	// Note fragments queued by rules 1 and 2, flushed once by rule 4.
	var notes []string

	if line, queued := t.syncFulfillment(ctx, d, order, logger); queued {
		notes = append(notes, line)
	}
	if line, queued := refundNote(d, order); queued {
		logger.Info("refund_detected", observability.F("note", line))
		notes = append(notes, line)
	}
	t.syncTracking(ctx, d, order, logger)

	if len(notes) == 0 {
		return nil
	}

	note := appendNoteLines(order.Note, notes)
	if err := t.writer.UpdateOrder(ctx, d.ShopifyOrderID, shopify.OrderPatch{Note: &note}); err != nil {
		return fmt.Errorf("sync: update order %s note: %w", d.ShopifyOrderID, err)
	}
	logger.Info("order_note_updated", observability.F("lines", len(notes)))
	return nil
}

// syncFulfillment implements rule 1. It fires when the deal reached a delivered
// stage and the order is not yet shipped. Any failure along the way, including
// a missing fulfillment order, falls back to queueing a status note.
func (t *Translator) syncFulfillment(ctx context.Context, d deal.Record, order *shopify.Order, logger observability.Logger) (string, bool) {
	if !t.deliveredStages.Contains(d.StageID) || order.FulfillmentStatus.Shipped() {
		return "", false
	}

	fallback := "Order status updated in Bitrix: " + d.StageID

	fulfillmentOrders, err := t.fulfill.ListFulfillmentOrders(ctx, d.ShopifyOrderID)
	if err != nil {
		logger.Warn("fulfillment_order_lookup_failed", observability.F("error", err.Error()))
		return fallback, true
	}
	if len(fulfillmentOrders) == 0 {
		logger.Info("no_fulfillment_orders")
		return fallback, true
	}

	input := shopify.FulfillmentInput{
		OrderID:            d.ShopifyOrderID,
		FulfillmentOrderID: fulfillmentOrders[0].ID,
		TrackingNumber:     d.Field(t.trackingField),
		NotifyCustomer:     true,
	}
	if err := t.fulfill.CreateFulfillment(ctx, input); err != nil {
		logger.Warn("fulfillment_create_failed", observability.F("error", err.Error()))
		return fallback, true
	}

	logger.Info("fulfillment_created",
		observability.F("fulfillment_order_id", fulfillmentOrders[0].ID),
		observability.F("tracking_number", input.TrackingNumber),
	)
	return "", false
}

// syncTracking implements rule 3. A mismatch between the deal's tracking field
// and the first existing fulfillment issues one tracking update; failures are
// logged and never abort the run.
func (t *Translator) syncTracking(ctx context.Context, d deal.Record, order *shopify.Order, logger observability.Logger) {
	tracking := d.Field(t.trackingField)
	if tracking == "" || len(order.Fulfillments) == 0 {
		return
	}
	current := order.Fulfillments[0]
	if current.TrackingNumber == tracking {
		return
	}

	upd := shopify.TrackingUpdate{
		FulfillmentID:  current.ID,
		TrackingNumber: tracking,
		NotifyCustomer: true,
	}
	if err := t.fulfill.UpdateTracking(ctx, upd); err != nil {
		logger.Warn("tracking_update_failed",
			observability.F("fulfillment_id", current.ID),
			observability.F("error", err.Error()),
		)
		return
	}
	logger.Info("tracking_updated",
		observability.F("fulfillment_id", current.ID),
		observability.F("tracking_number", tracking),
	)
}

// refundNote implements rule 2. A deal amount below the order total, and above
// zero, is read as a refund processed on the CRM side. Only a note is queued;
// the refund API needs elevated permission the bridge does not assume.
func refundNote(d deal.Record, order *shopify.Order) (string, bool) {
	if d.Amount.Sign() <= 0 || !d.Amount.LessThan(order.TotalPrice) {
		return "", false
	}
	diff := order.TotalPrice.Sub(d.Amount)
	return fmt.Sprintf("Refund processed in Bitrix: %s %s", diff.String(), order.Currency), true
}

// appendNoteLines joins the existing note with the queued lines, newline
// separated, preserving queue order.
func appendNoteLines(existing string, lines []string) string {
	if existing == "" {
		return strings.Join(lines, "\n")
	}
	return existing + "\n" + strings.Join(lines, "\n")
}
