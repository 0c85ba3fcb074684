package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/dealbridge/bitrix-shopify-bridge/internal/domain/shopify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unfulfilledOrder() *shopify.Order {
	return &shopify.Order{
		ID:                "450789469",
		FulfillmentStatus: shopify.StatusUnfulfilled,
		TotalPrice:        decimal.RequireFromString("100.00"),
		Currency:          "USD",
	}
}

func TestTranslateNoSyncTarget(t *testing.T) {
	fake := &fakeShopify{order: unfulfilledOrder()}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{"ID": "42", "STAGE_ID": "C2:WON"})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	assert.Zero(t, fake.remoteCalls())
}

func TestTranslateFetchFailurePropagates(t *testing.T) {
	fake := &fakeShopify{getErr: errors.New("boom")}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{"ID": "42", "UF_SHOPIFY_ORDER_ID": "450789469"})
	err := tr.Translate(context.Background(), d)

	require.Error(t, err)
	assert.Empty(t, fake.orderPatches)
	assert.Empty(t, fake.createdInputs)
}

func TestFulfillmentCreatedForDeliveredStage(t *testing.T) {
	fake := &fakeShopify{
		order:             unfulfilledOrder(),
		fulfillmentOrders: []shopify.FulfillmentOrder{{ID: 1001}, {ID: 1002}},
	}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"STAGE_ID":            "C2:WON",
		"OPPORTUNITY":         "100",
		testTrackingField:     "TRACK-99",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, fake.createdInputs, 1)
	created := fake.createdInputs[0]
	assert.Equal(t, int64(1001), created.FulfillmentOrderID)
	assert.Equal(t, "TRACK-99", created.TrackingNumber)
	assert.True(t, created.NotifyCustomer)
	assert.Empty(t, fake.orderPatches, "no note update expected when the fulfillment is created")
}

func TestFulfillmentFallsBackToNoteWithoutFulfillmentOrders(t *testing.T) {
	fake := &fakeShopify{order: unfulfilledOrder()}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"STAGE_ID":            "C2:WON",
		"OPPORTUNITY":         "100",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	assert.Empty(t, fake.createdInputs)
	require.Len(t, fake.orderPatches, 1)
	require.NotNil(t, fake.orderPatches[0].Note)
	assert.Contains(t, *fake.orderPatches[0].Note, "Order status updated in Bitrix: C2:WON")
}

func TestFulfillmentCreateFailureFallsBackToNote(t *testing.T) {
	fake := &fakeShopify{
		order:             unfulfilledOrder(),
		fulfillmentOrders: []shopify.FulfillmentOrder{{ID: 1001}},
		createErr:         errors.New("forbidden"),
	}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"STAGE_ID":            "C2:WON",
		"OPPORTUNITY":         "100",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err, "fulfillment failure must not abort the translation")
	require.Len(t, fake.orderPatches, 1)
	assert.Contains(t, *fake.orderPatches[0].Note, "Order status updated in Bitrix: C2:WON")
}

func TestFulfillmentLookupFailureFallsBackToNote(t *testing.T) {
	fake := &fakeShopify{
		order:   unfulfilledOrder(),
		listErr: errors.New("unavailable"),
	}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"STAGE_ID":            "C2:WON",
		"OPPORTUNITY":         "100",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, fake.orderPatches, 1)
	assert.Contains(t, *fake.orderPatches[0].Note, "Order status updated in Bitrix: C2:WON")
}

func TestFulfillmentSkippedWhenAlreadyShipped(t *testing.T) {
	for _, status := range []shopify.FulfillmentStatus{shopify.StatusFulfilled, shopify.StatusPartial} {
		t.Run(string(status), func(t *testing.T) {
			order := unfulfilledOrder()
			order.FulfillmentStatus = status
			fake := &fakeShopify{order: order, fulfillmentOrders: []shopify.FulfillmentOrder{{ID: 1001}}}
			tr := newTestTranslator(fake)

			d := testDeal(t, map[string]any{
				"ID":                  "42",
				"UF_SHOPIFY_ORDER_ID": "450789469",
				"STAGE_ID":            "C2:WON",
				"OPPORTUNITY":         "100",
			})
			require.NoError(t, tr.Translate(context.Background(), d))
			assert.Empty(t, fake.createdInputs)
			assert.Empty(t, fake.orderPatches)
		})
	}
}

func TestRefundNoteQueued(t *testing.T) {
	fake := &fakeShopify{order: unfulfilledOrder()}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"OPPORTUNITY":         "80",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, fake.orderPatches, 1)
	// Trailing zeros from the order total must not leak into the difference.
	assert.Equal(t, "Refund processed in Bitrix: 20 USD", *fake.orderPatches[0].Note)
}

func TestNoRefundNoteWhenAmountNotBelowTotal(t *testing.T) {
	cases := map[string]string{
		"amount above total": "120",
		"amount equal":       "100",
		"amount zero":        "0",
	}
	for name, opportunity := range cases {
		t.Run(name, func(t *testing.T) {
			fake := &fakeShopify{order: unfulfilledOrder()}
			tr := newTestTranslator(fake)

			d := testDeal(t, map[string]any{
				"ID":                  "42",
				"UF_SHOPIFY_ORDER_ID": "450789469",
				"OPPORTUNITY":         opportunity,
			})
			require.NoError(t, tr.Translate(context.Background(), d))
			assert.Empty(t, fake.orderPatches)
		})
	}
}

func TestNoteLinesAccumulateInRuleOrder(t *testing.T) {
	order := unfulfilledOrder()
	order.Note = "existing note"
	fake := &fakeShopify{order: order}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"STAGE_ID":            "C2:WON",
		"OPPORTUNITY":         "80",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, fake.orderPatches, 1)
	assert.Equal(t,
		"existing note\nOrder status updated in Bitrix: C2:WON\nRefund processed in Bitrix: 20 USD",
		*fake.orderPatches[0].Note,
	)
}

func TestTrackingUpdatedOnMismatch(t *testing.T) {
	order := unfulfilledOrder()
	order.Fulfillments = []shopify.Fulfillment{{ID: 555, TrackingNumber: "OLD-1"}}
	fake := &fakeShopify{order: order}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"OPPORTUNITY":         "100",
		testTrackingField:     "NEW-2",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, fake.trackingCalls, 1)
	assert.Equal(t, int64(555), fake.trackingCalls[0].FulfillmentID)
	assert.Equal(t, "NEW-2", fake.trackingCalls[0].TrackingNumber)
	assert.True(t, fake.trackingCalls[0].NotifyCustomer)
}

func TestTrackingUnchangedIssuesNoCall(t *testing.T) {
	order := unfulfilledOrder()
	order.Fulfillments = []shopify.Fulfillment{{ID: 555, TrackingNumber: "SAME-1"}}
	fake := &fakeShopify{order: order}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"OPPORTUNITY":         "100",
		testTrackingField:     "SAME-1",
	})
	require.NoError(t, tr.Translate(context.Background(), d))
	assert.Empty(t, fake.trackingCalls)
	assert.Empty(t, fake.orderPatches)
}

func TestTrackingFailureDoesNotAbortNoteFlush(t *testing.T) {
	order := unfulfilledOrder()
	order.Fulfillments = []shopify.Fulfillment{{ID: 555, TrackingNumber: "OLD-1"}}
	fake := &fakeShopify{order: order, trackErr: errors.New("rate limited")}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"OPPORTUNITY":         "80",
		testTrackingField:     "NEW-2",
	})
	err := tr.Translate(context.Background(), d)

	require.NoError(t, err)
	require.Len(t, fake.orderPatches, 1)
	assert.Contains(t, *fake.orderPatches[0].Note, "Refund processed in Bitrix")
}

func TestNoteFlushFailurePropagates(t *testing.T) {
	fake := &fakeShopify{order: unfulfilledOrder(), updateErr: errors.New("boom")}
	tr := newTestTranslator(fake)

	d := testDeal(t, map[string]any{
		"ID":                  "42",
		"UF_SHOPIFY_ORDER_ID": "450789469",
		"OPPORTUNITY":         "80",
	})
	assert.Error(t, tr.Translate(context.Background(), d))
}
