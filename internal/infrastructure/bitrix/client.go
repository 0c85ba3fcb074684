package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dealbridge/bitrix-shopify-bridge/internal/observability"
)

// maxResponseSize is the maximum allowed response size from the Bitrix REST API (1MB).
const maxResponseSize = 1 * 1024 * 1024

const peerBitrix = "bitrix"

var (
	ErrConfigMissingWebhookURL = errors.New("bitrix: webhook url is required")
	ErrRequestFailed           = errors.New("bitrix: request failed")
)

// Config holds the Bitrix inbound-webhook credentials.
type Config struct {
	// WebhookURL is the inbound webhook base, e.g.
	// "https://acme.bitrix24.com/rest/1/abcdef". The REST method name is
	// appended per call.
	WebhookURL string
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return ErrConfigMissingWebhookURL
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// Client is a minimal Bitrix REST client used for the optional deal
// acknowledgment. It implements the sync.CRMNotifier port.
type Client struct {
	config     *Config
	httpClient *http.Client

	log          observability.Logger
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

// NewClient creates a Bitrix REST client with the given configuration.
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
		log:          logger.With(observability.F("component", "bitrix_client")),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}, nil
}

type restError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// AddDealComment posts a timeline comment on a deal via crm.timeline.comment.add.
func (c *Client) AddDealComment(ctx context.Context, dealID, text string) error {
	payload := map[string]any{
		"fields": map[string]any{
			"ENTITY_ID":   dealID,
			"ENTITY_TYPE": "deal",
			"COMMENT":     text,
		},
	}
	return c.call(ctx, "crm.timeline.comment.add", payload)
}

// call invokes a Bitrix REST method against the inbound webhook URL.
func (c *Client) call(ctx context.Context, method string, payload any) (err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.extCounter.Add(1,
			observability.L("peer", peerBitrix),
			observability.L("endpoint", method),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerBitrix),
			observability.L("endpoint", method),
		)
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bitrix: marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.config.WebhookURL, "/") + "/" + method + ".json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("bitrix: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrRequestFailed, method, resp.StatusCode)
	}

	var restErr restError
	if jerr := json.Unmarshal(respBody, &restErr); jerr == nil && restErr.Error != "" {
		return fmt.Errorf("%w: %s - %s", ErrRequestFailed, restErr.Error, restErr.ErrorDescription)
	}

	return nil
}
