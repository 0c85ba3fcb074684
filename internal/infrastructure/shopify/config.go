package shopify

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds credentials and tuning for the Shopify Admin REST API.
type Config struct {
	// StoreDomain is the myshopify.com host, e.g. "acme.myshopify.com".
	StoreDomain string
	// AccessToken is the Admin API access token (shpat_...).
	AccessToken string
	// APIVersion pins the Admin API version, e.g. "2024-10".
	APIVersion string
	// TimeoutSeconds is the HTTP request timeout.
	TimeoutSeconds int
}

// DefaultAPIVersion is used when no version is configured.
const DefaultAPIVersion = "2024-10"

var (
	ErrConfigMissingStoreDomain = errors.New("shopify: store domain is required")
	ErrConfigMissingAccessToken = errors.New("shopify: access token is required")
)

// Validate validates the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.StoreDomain == "" {
		return ErrConfigMissingStoreDomain
	}
	if c.AccessToken == "" {
		return ErrConfigMissingAccessToken
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

// endpoint builds a full Admin API URL for a path like "/orders/123.json".
func (c *Config) endpoint(path string) string {
	domain := strings.TrimSuffix(c.StoreDomain, "/")
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return fmt.Sprintf("%s/admin/api/%s%s", domain, c.APIVersion, path)
}
