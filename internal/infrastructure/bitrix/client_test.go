package bitrix

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	assert.ErrorIs(t, cfg.Validate(), ErrConfigMissingWebhookURL)

	cfg = &Config{WebhookURL: "https://acme.bitrix24.com/rest/1/abcdef"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 15, cfg.TimeoutSeconds)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{WebhookURL: server.URL + "/rest/1/abcdef/"}, nil)
	require.NoError(t, err)
	return client
}

func TestAddDealComment(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/1/abcdef/crm.timeline.comment.add.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		_, _ = w.Write([]byte(`{"result":123}`))
	})

	err := client.AddDealComment(context.Background(), "42", "Synced to Shopify order 450789469")
	require.NoError(t, err)

	fields, ok := captured["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "42", fields["ENTITY_ID"])
	assert.Equal(t, "deal", fields["ENTITY_TYPE"])
	assert.Equal(t, "Synced to Shopify order 450789469", fields["COMMENT"])
}

func TestAddDealCommentRESTError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error":"ERROR_CORE","error_description":"Access denied"}`))
	})

	err := client.AddDealComment(context.Background(), "42", "text")
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.Contains(t, err.Error(), "Access denied")
}

func TestAddDealCommentHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := client.AddDealComment(context.Background(), "42", "text")
	assert.ErrorIs(t, err, ErrRequestFailed)
}
