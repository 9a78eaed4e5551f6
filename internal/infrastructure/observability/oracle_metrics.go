package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type oracleMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var (
	oracleMetricsOnce sync.Once
	oracleMetricsInst *oracleMetrics
)

func ensureOracleMetrics() *oracleMetrics {
	oracleMetricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName + "/oracle")

		requestCount, err := meter.Int64Counter(
			"ai.oracle.request.count",
			metric.WithDescription("Number of oracle requests"),
		)
		if err != nil {
			return
		}
		requestDuration, err := meter.Float64Histogram(
			"ai.oracle.request.duration",
			metric.WithDescription("Oracle request duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}
		requestErrors, err := meter.Int64Counter(
			"ai.oracle.request.errors",
			metric.WithDescription("Number of oracle request errors"),
		)
		if err != nil {
			return
		}
		rateLimitWait, err := meter.Float64Histogram(
			"ai.oracle.rate_limit.wait",
			metric.WithDescription("Time spent waiting for the oracle rate limiter in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			return
		}

		oracleMetricsInst = &oracleMetrics{
			requestCount:    requestCount,
			requestDuration: requestDuration,
			requestErrors:   requestErrors,
			rateLimitWait:   rateLimitWait,
		}
	})
	return oracleMetricsInst
}

// RecordOracleCall records one request made to an oracle provider
func RecordOracleCall(ctx context.Context, provider, model string, statusCode int, duration time.Duration, err error) {
	m := ensureOracleMetrics()
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	m.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordOracleRateLimitWait records time spent waiting for a provider rate limiter
func RecordOracleRateLimitWait(ctx context.Context, provider, model string, wait time.Duration) {
	m := ensureOracleMetrics()
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", provider),
		attribute.String("ai.model", model),
	}
	m.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
