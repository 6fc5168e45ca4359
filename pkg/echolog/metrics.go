package echolog

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/echolog"

// routerMetrics counts routing outcomes. Instruments that fail to build are
// left nil and skipped, so metrics can never take the router down.
type routerMetrics struct {
	emitted    metric.Int64Counter
	suppressed metric.Int64Counter
}

func newRouterMetrics(logger *zap.Logger) *routerMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter(instrumentationName)
	m := &routerMetrics{}

	var err error
	m.emitted, err = meter.Int64Counter(
		"echolog.records_emitted_total",
		metric.WithDescription("Log records forwarded to the sink, labeled by level and channel (request, server, lifecycle)."),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		logger.Warn("failed to create emitted counter", zap.Error(err))
	}

	m.suppressed, err = meter.Int64Counter(
		"echolog.records_suppressed_total",
		metric.WithDescription("Log records dropped before the sink, labeled by reason (ignored-request, event-tags, disabled, predicate)."),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		logger.Warn("failed to create suppressed counter", zap.Error(err))
	}

	return m
}

func (m *routerMetrics) recordEmitted(ctx context.Context, level, channel string) {
	if m == nil || m.emitted == nil {
		return
	}
	m.emitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("level", level),
		attribute.String("channel", channel),
	))
}

func (m *routerMetrics) recordSuppressed(ctx context.Context, reason string) {
	if m == nil || m.suppressed == nil {
		return
	}
	m.suppressed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
