package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	domain "github.com/dealbridge/bitrix-shopify-bridge/internal/domain/shopify"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/observability"
)

// maxResponseSize is the maximum allowed response size from the Admin API (10MB).
const maxResponseSize = 10 * 1024 * 1024

const peerShopify = "shopify"

// Client talks to the Shopify Admin REST API and implements the shopify domain
// ports (OrderReader, OrderWriter, FulfillmentAPI).
type Client struct {
	config     *Config
	httpClient *http.Client

	log          observability.Logger
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

// NewClient creates a Shopify Admin API client with the given configuration.
func NewClient(config *Config, tel observability.Observability) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := observability.NopLogger()
	metrics := observability.NopMetrics()
	if tel != nil {
		logger = tel.Logger()
		metrics = tel.Metrics()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		log:          logger.With(observability.F("component", "shopify_client")),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}, nil
}

// GetOrder fetches a current order snapshot by its numeric ID.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	respBody, err := c.doRequest(ctx, "orders.get", http.MethodGet, "/orders/"+orderID+".json", nil)
	if err != nil {
		return nil, err
	}

	var resp orderEnvelope
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order: %v", domain.ErrInvalidResponse, err)
	}
	if resp.Order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return resp.Order.toDomain(orderID), nil
}

// UpdateOrder applies a partial update to an order. Only the fields set on the
// patch are sent.
func (c *Client) UpdateOrder(ctx context.Context, orderID string, patch domain.OrderPatch) error {
	body := orderUpdateEnvelope{Order: orderUpdate{Note: patch.Note}}
	if id, err := strconv.ParseInt(orderID, 10, 64); err == nil {
		body.Order.ID = id
	}

	_, err := c.doRequest(ctx, "orders.update", http.MethodPut, "/orders/"+orderID+".json", body)
	return err
}

// ListFulfillmentOrders returns the fulfillment orders open on an order.
func (c *Client) ListFulfillmentOrders(ctx context.Context, orderID string) ([]domain.FulfillmentOrder, error) {
	respBody, err := c.doRequest(ctx, "fulfillment_orders.list", http.MethodGet, "/orders/"+orderID+"/fulfillment_orders.json", nil)
	if err != nil {
		return nil, err
	}

	var resp fulfillmentOrdersEnvelope
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse fulfillment orders: %v", domain.ErrInvalidResponse, err)
	}

	out := make([]domain.FulfillmentOrder, 0, len(resp.FulfillmentOrders))
	for _, fo := range resp.FulfillmentOrders {
		out = append(out, domain.FulfillmentOrder{ID: fo.ID})
	}
	return out, nil
}

// CreateFulfillment creates a fulfillment covering the given fulfillment order.
func (c *Client) CreateFulfillment(ctx context.Context, in domain.FulfillmentInput) error {
	body := fulfillmentCreateEnvelope{
		Fulfillment: fulfillmentCreate{
			NotifyCustomer: in.NotifyCustomer,
			LineItemsByFulfillmentOrder: []fulfillmentOrderCover{
				{FulfillmentOrderID: in.FulfillmentOrderID},
			},
		},
	}
	if in.TrackingNumber != "" {
		body.Fulfillment.TrackingInfo = &trackingInfo{Number: in.TrackingNumber}
	}

	_, err := c.doRequest(ctx, "fulfillments.create", http.MethodPost, "/fulfillments.json", body)
	return err
}

// UpdateTracking replaces the tracking info on an existing fulfillment.
func (c *Client) UpdateTracking(ctx context.Context, upd domain.TrackingUpdate) error {
	body := trackingUpdateEnvelope{
		Fulfillment: trackingUpdateBody{
			NotifyCustomer: upd.NotifyCustomer,
			TrackingInfo:   trackingInfo{Number: upd.TrackingNumber},
		},
	}

	path := "/fulfillments/" + strconv.FormatInt(upd.FulfillmentID, 10) + "/update_tracking.json"
	_, err := c.doRequest(ctx, "fulfillments.update_tracking", http.MethodPost, path, body)
	return err
}

// doRequest performs an authenticated Admin API call and returns the raw
// response body. The endpoint argument is a low-cardinality label used for
// external-call metrics, not a URL.
func (c *Client) doRequest(ctx context.Context, endpoint, method, path string, body any) (respBody []byte, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.extCounter.Add(1,
			observability.L("peer", peerShopify),
			observability.L("endpoint", endpoint),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerShopify),
			observability.L("endpoint", endpoint),
		)
	}()

	var reqBody io.Reader
	if body != nil {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return nil, fmt.Errorf("shopify: marshal request: %w", merr)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.endpoint(path), reqBody)
	if err != nil {
		return nil, fmt.Errorf("shopify: build request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.config.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrInvalidResponse, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrOrderNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.log.Warn("shopify_request_failed",
			observability.F("endpoint", endpoint),
			observability.F("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("%w: %s %s returned %d", domain.ErrRequestFailed, method, path, resp.StatusCode)
	}

	return respBody, nil
}
