package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Shopify ShopifyConfig
	Bitrix  BitrixConfig
	Sync    SyncConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxBodySize     int64
	ShutdownTimeout time.Duration
}

// ShopifyConfig holds Shopify Admin API credentials and tuning.
type ShopifyConfig struct {
	StoreDomain    string // e.g. "acme.myshopify.com"
	AccessToken    string
	APIVersion     string
	TimeoutSeconds int
}

// BitrixConfig holds the optional Bitrix write-back settings.
type BitrixConfig struct {
	WebhookURL     string // inbound webhook base, e.g. "https://acme.bitrix24.com/rest/1/token"
	TimeoutSeconds int
	AckEnabled     bool
}

// SyncConfig holds the deal-to-order translation taxonomy.
type SyncConfig struct {
	// DeliveredStages lists the CRM stage codes that mean "shipped/delivered"
	// and should trigger a fulfillment on the Shopify side.
	DeliveredStages []string
	// TrackingField is the Bitrix custom field code carrying the shipment
	// tracking number.
	TrackingField string
}

var (
	ErrMissingStoreDomain = errors.New("config: shopify store domain is required")
	ErrMissingAccessToken = errors.New("config: shopify access token is required")
	ErrMissingBitrixURL   = errors.New("config: bitrix webhook url is required when ack is enabled")
)

// Load loads configuration from a TOML file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with BRIDGE_ prefix (e.g. BRIDGE_SHOPIFY_ACCESS_TOKEN)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars.
	}

	v.SetEnvPrefix("BRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Shopify: ShopifyConfig{
			StoreDomain:    v.GetString("shopify.store_domain"),
			AccessToken:    v.GetString("shopify.access_token"),
			APIVersion:     v.GetString("shopify.api_version"),
			TimeoutSeconds: v.GetInt("shopify.timeout_seconds"),
		},
		Bitrix: BitrixConfig{
			WebhookURL:     v.GetString("bitrix.webhook_url"),
			TimeoutSeconds: v.GetInt("bitrix.timeout_seconds"),
			AckEnabled:     v.GetBool("bitrix.ack_enabled"),
		},
		Sync: SyncConfig{
			DeliveredStages: v.GetStringSlice("sync.delivered_stages"),
			TrackingField:   v.GetString("sync.tracking_field"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bitrix-shopify-bridge")
	v.SetDefault("app.env", "dev")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_body_size", int64(1<<20)) // 1 MiB
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("shopify.api_version", "2024-10")
	v.SetDefault("shopify.timeout_seconds", 30)

	v.SetDefault("bitrix.timeout_seconds", 15)
	v.SetDefault("bitrix.ack_enabled", false)

	v.SetDefault("sync.delivered_stages", []string{"C2:WON", "WON"})
	v.SetDefault("sync.tracking_field", "UF_CRM_1741776378819")
}

// Validate checks that the configuration is complete enough to start the service.
func (c *Config) Validate() error {
	if c.Shopify.StoreDomain == "" {
		return ErrMissingStoreDomain
	}
	if c.Shopify.AccessToken == "" {
		return ErrMissingAccessToken
	}
	if c.Bitrix.AckEnabled && c.Bitrix.WebhookURL == "" {
		return ErrMissingBitrixURL
	}
	return nil
}
