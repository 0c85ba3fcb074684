package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/dealbridge/bitrix-shopify-bridge/internal/domain/deal"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/observability"
	"github.com/dealbridge/bitrix-shopify-bridge/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	syncService         = "deal-sync"
	useCaseProcessEvent = "deal.process_event"
	spanPrefix          = "UC."
)

// ProcessEventUseCase routes a normalized inbound event to the matching
// handler: deal updates run the translator, deal creations hit the create
// observer, anything else is skipped but still reported as success.
type ProcessEventUseCase struct {
	translator *Translator
	notifier   CRMNotifier // optional write-back, may be nil
	tel        observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	eventCounter observability.Counter   // webhook_events_total{event_kind,outcome}
}

// NewProcessEventUseCase wires the dependencies required to execute the use case.
func NewProcessEventUseCase(
	translator *Translator,
	notifier CRMNotifier,
	tel observability.Observability,
) *ProcessEventUseCase {
	baseLog := observability.NopLogger()
	if tel != nil {
		baseLog = tel.Logger()
	}
	baseLog = baseLog.With(
		observability.F("service", syncService),
	)

	metricsProvider := observability.NopMetrics()
	if tel != nil {
		metricsProvider = tel.Metrics()
	}

	return &ProcessEventUseCase{
		translator:   translator,
		notifier:     notifier,
		tel:          tel,
		log:          baseLog,
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		eventCounter: metricsProvider.Counter(observability.MWebhookEvents),
	}
}

// Execute processes one inbound event end to end. The returned error is the
// only failure the HTTP layer reports as a 500; everything recoverable has
// already been degraded inside the translator.
func (uc *ProcessEventUseCase) Execute(ctx context.Context, evt deal.InboundEvent) (err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseProcessEvent),
		observability.F("event_type", evt.Type),
		observability.F("deal_id", evt.Deal.ID),
	)

	kind := evt.Kind()

	tracer := observability.NopTracer()
	if uc.tel != nil {
		tracer = uc.tel.Tracer()
	}
	ctx, span := tracer.Start(ctx, spanPrefix+"ProcessDealEvent",
		attribute.String("use_case", useCaseProcessEvent),
		attribute.String("event.type", evt.Type),
		attribute.String("deal.id", evt.Deal.ID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		if uc.reqCounter != nil {
			uc.reqCounter.Add(1,
				observability.L("use_case", useCaseProcessEvent),
				observability.L("outcome", outcome),
			)
		}
		if uc.durHistogram != nil {
			uc.durHistogram.Observe(lat,
				observability.L("use_case", useCaseProcessEvent),
			)
		}
		if uc.eventCounter != nil {
			uc.eventCounter.Add(1,
				observability.L("event_kind", kindLabel(kind)),
				observability.L("outcome", outcome),
			)
		}

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}

		logger.Info("use_case_done", fields...)
	}()

	ctx = logctx.With(ctx, logger)

	switch kind {
	case deal.KindUpdate:
		if terr := uc.translator.Translate(ctx, evt.Deal); terr != nil {
			outcome, statusText = "error", "TRANSLATION_FAILED"
			return fmt.Errorf("sync: process update event: %w", terr)
		}
		uc.acknowledge(ctx, evt.Deal, logger)
		return nil
	case deal.KindCreate:
		uc.observeCreate(evt.Deal, logger)
		return nil
	default:
		outcome, statusText = "skipped", "UNHANDLED_EVENT_TYPE"
		logger.Debug("event_skipped")
		return nil
	}
}

// observeCreate is the creation-event extension point. It records the deal and
// nothing else; create-direction sync is not implemented.
func (uc *ProcessEventUseCase) observeCreate(d deal.Record, logger observability.Logger) {
	logger.Info("deal_created_observed",
		observability.F("stage_id", d.StageID),
		observability.F("amount", d.Amount.String()),
	)
}

// acknowledge posts a timeline comment back to the CRM when a notifier is
// configured. Best effort only.
func (uc *ProcessEventUseCase) acknowledge(ctx context.Context, d deal.Record, logger observability.Logger) {
	if uc.notifier == nil || d.ShopifyOrderID == "" {
		return
	}
	text := fmt.Sprintf("Shopify order %s synced from deal update", d.ShopifyOrderID)
	if err := uc.notifier.AddDealComment(ctx, d.ID, text); err != nil {
		logger.Warn("crm_ack_failed", observability.F("error", err.Error()))
	}
}

func kindLabel(k deal.Kind) string {
	switch k {
	case deal.KindUpdate:
		return "update"
	case deal.KindCreate:
		return "create"
	default:
		return "unknown"
	}
}
