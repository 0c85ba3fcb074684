package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	appsync "github.com/dealbridge/bitrix-shopify-bridge/internal/application/sync"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/config"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/domain/deal"
	obsprovider "github.com/dealbridge/bitrix-shopify-bridge/internal/infrastructure/observability"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/infrastructure/observability/oteltrace"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/infrastructure/observability/prometrics"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/infrastructure/observability/zaplogger"
	shopifyclient "github.com/dealbridge/bitrix-shopify-bridge/internal/infrastructure/shopify"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/observability"
	httppresentation "github.com/dealbridge/bitrix-shopify-bridge/internal/presentation/http"

	bitrixclient "github.com/dealbridge/bitrix-shopify-bridge/internal/infrastructure/bitrix"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := zaplogger.New(
		observability.F("service", cfg.App.Name),
		observability.F("env", cfg.App.Env),
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid_configuration", observability.F("error", err.Error()))
		os.Exit(1)
	}

	registry := prometrics.New("bridge", "")
	counters := map[observability.MetricKey]observability.Counter{
		observability.MWebhookEvents: registry.Counter(
			string(observability.MWebhookEvents),
			"Total number of webhook events received.",
			"event_kind", "outcome",
		),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MUsecaseRequests: registry.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MExternalRequests: registry.Counter(
			string(observability.MExternalRequests),
			"Total number of outbound API calls.",
			"peer", "endpoint", "outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.",
			nil,
			"method", "route", "status",
		),
		observability.MUsecaseDuration: registry.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			nil,
			"use_case",
		),
		observability.MExternalRequestDuration: registry.Histogram(
			string(observability.MExternalRequestDuration),
			"Duration of outbound API calls in seconds.",
			nil,
			"peer", "endpoint",
		),
	}

	tel := obsprovider.New(oteltrace.New("bridge"), logger, counters, histograms)

	shopify, err := shopifyclient.NewClient(&shopifyclient.Config{
		StoreDomain:    cfg.Shopify.StoreDomain,
		AccessToken:    cfg.Shopify.AccessToken,
		APIVersion:     cfg.Shopify.APIVersion,
		TimeoutSeconds: cfg.Shopify.TimeoutSeconds,
	}, tel)
	if err != nil {
		logger.Error("shopify_client_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}

	var notifier appsync.CRMNotifier
	if cfg.Bitrix.AckEnabled {
		bitrix, err := bitrixclient.NewClient(&bitrixclient.Config{
			WebhookURL:     cfg.Bitrix.WebhookURL,
			TimeoutSeconds: cfg.Bitrix.TimeoutSeconds,
		}, tel)
		if err != nil {
			logger.Error("bitrix_client_init_failed", observability.F("error", err.Error()))
			os.Exit(1)
		}
		notifier = bitrix
	}

	translator := appsync.NewTranslator(
		shopify, shopify, shopify,
		deal.NewStageSet(cfg.Sync.DeliveredStages),
		cfg.Sync.TrackingField,
		logger,
	)
	processEvent := appsync.NewProcessEventUseCase(translator, notifier, tel)

	handler := httppresentation.NewHandler(processEvent, cfg.HTTP.MaxBodySize, logger, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		logger.Info("http_server_stopped")
	}
}
