package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentshift"

// StartPollSpan starts a span for one helpdesk poll cycle.
func StartPollSpan(ctx context.Context, shiftDate time.Time) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "poll",
		trace.WithAttributes(
			attribute.String("shift.date", shiftDate.Format(time.DateOnly)),
		),
	)
}

// StartReportSpan starts a span for an on-demand report.
func StartReportSpan(ctx context.Context, sessionID string, agents int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "report",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.Int("report.agents", agents),
		),
	)
}

// StartDigestSpan starts a span for one subscriber's digest.
func StartDigestSpan(ctx context.Context, recurrence string, subscriptionID int64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "digest",
		trace.WithAttributes(
			attribute.String("digest.recurrence", recurrence),
			attribute.Int64("subscription.id", subscriptionID),
		),
	)
}
