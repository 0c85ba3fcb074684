package sync

import (
	"context"
	"sync"
	"testing"

	"github.com/dealbridge/bitrix-shopify-bridge/internal/domain/deal"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/domain/shopify"
	"github.com/stretchr/testify/require"
)

// fakeShopify implements OrderReader, OrderWriter and FulfillmentAPI, recording
// every call so tests can assert on exactly which remote operations happened.
type fakeShopify struct {
	mu sync.Mutex

	order             *shopify.Order
	getErr            error
	fulfillmentOrders []shopify.FulfillmentOrder
	listErr           error
	createErr         error
	trackErr          error
	updateErr         error

	getCalls       int
	listCalls      int
	createdInputs  []shopify.FulfillmentInput
	trackingCalls  []shopify.TrackingUpdate
	orderPatches   []shopify.OrderPatch
	patchedOrderID string
}

func (f *fakeShopify) GetOrder(_ context.Context, _ string) (*shopify.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	clone := *f.order
	return &clone, nil
}

func (f *fakeShopify) UpdateOrder(_ context.Context, orderID string, patch shopify.OrderPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.patchedOrderID = orderID
	f.orderPatches = append(f.orderPatches, patch)
	return nil
}

func (f *fakeShopify) ListFulfillmentOrders(_ context.Context, _ string) ([]shopify.FulfillmentOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.fulfillmentOrders, nil
}

func (f *fakeShopify) CreateFulfillment(_ context.Context, in shopify.FulfillmentInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.createdInputs = append(f.createdInputs, in)
	return nil
}

func (f *fakeShopify) UpdateTracking(_ context.Context, upd shopify.TrackingUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.trackErr != nil {
		return f.trackErr
	}
	f.trackingCalls = append(f.trackingCalls, upd)
	return nil
}

func (f *fakeShopify) remoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getCalls + f.listCalls + len(f.createdInputs) + len(f.trackingCalls) + len(f.orderPatches)
}

// fakeNotifier records CRM acknowledgment calls.
type fakeNotifier struct {
	err      error
	dealIDs  []string
	comments []string
}

func (f *fakeNotifier) AddDealComment(_ context.Context, dealID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.dealIDs = append(f.dealIDs, dealID)
	f.comments = append(f.comments, text)
	return nil
}

const testTrackingField = "UF_CRM_1741776378819"

// testDeal builds a canonical deal record through the normalizer, the same way
// production payloads arrive.
func testDeal(t *testing.T, fields map[string]any) deal.Record {
	t.Helper()
	evt, err := deal.ParseEvent(map[string]any{
		"event": deal.EventDealUpdate,
		"data":  map[string]any{"FIELDS": fields},
	})
	require.NoError(t, err)
	return evt.Deal
}

func newTestTranslator(fake *fakeShopify) *Translator {
	return NewTranslator(
		fake, fake, fake,
		deal.NewStageSet([]string{"C2:WON", "WON"}),
		testTrackingField,
		nil,
	)
}
