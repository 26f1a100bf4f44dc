package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	placeholderCtr  otelmetric.Int64Counter
	stageDuration   otelmetric.Float64Histogram
	cacheCtr        otelmetric.Int64Counter
	queryAttemptCtr otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	placeholderCtr, _ := meter.Int64Counter(
		"placeholders.processed",
		otelmetric.WithDescription("Number of placeholders processed"),
	)

	stageDuration, _ := meter.Float64Histogram(
		"pipeline.stage.duration",
		otelmetric.WithDescription("Per-stage pipeline duration"),
		otelmetric.WithUnit("ms"),
	)

	cacheCtr, _ := meter.Int64Counter(
		"cache.lookups",
		otelmetric.WithDescription("Result cache lookups by outcome"),
	)

	queryAttemptCtr, _ := meter.Int64Counter(
		"query.attempts",
		otelmetric.WithDescription("Query agent attempts by outcome"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		placeholderCtr:  placeholderCtr,
		stageDuration:   stageDuration,
		cacheCtr:        cacheCtr,
		queryAttemptCtr: queryAttemptCtr,
	}
}

func (o *Observability) RecordPlaceholderProcessed(ctx context.Context, status string) {
	if o.placeholderCtr != nil {
		o.placeholderCtr.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordStageDuration(ctx context.Context, stage string, duration time.Duration) {
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("stage", stage),
		))
	}
}

func (o *Observability) RecordCacheLookup(ctx context.Context, hit bool) {
	if o.cacheCtr != nil {
		outcome := "miss"
		if hit {
			outcome = "hit"
		}
		o.cacheCtr.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) RecordQueryAttempt(ctx context.Context, outcome string) {
	if o.queryAttemptCtr != nil {
		o.queryAttemptCtr.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
