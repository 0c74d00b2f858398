package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentshift"

// Metrics holds all AgentShift metric instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	Polls               metric.Int64Counter
	PollFailures        metric.Int64Counter
	EventsInserted      metric.Int64Counter
	ReportsRun          metric.Int64Counter
	DigestsSent         metric.Int64Counter
	DigestsFailed       metric.Int64Counter
	AggregationDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Polls, err = meter.Int64Counter("agentshift.poll.cycles",
		metric.WithDescription("Number of helpdesk poll cycles"))
	if err != nil {
		return nil, err
	}

	m.PollFailures, err = meter.Int64Counter("agentshift.poll.failures",
		metric.WithDescription("Number of poll cycles aborted by a page fetch error"))
	if err != nil {
		return nil, err
	}

	m.EventsInserted, err = meter.Int64Counter("agentshift.events.inserted",
		metric.WithDescription("Number of state-change events appended"))
	if err != nil {
		return nil, err
	}

	m.ReportsRun, err = meter.Int64Counter("agentshift.reports.run",
		metric.WithDescription("Number of on-demand reports generated"))
	if err != nil {
		return nil, err
	}

	m.DigestsSent, err = meter.Int64Counter("agentshift.digests.sent",
		metric.WithDescription("Number of digest mails sent"))
	if err != nil {
		return nil, err
	}

	m.DigestsFailed, err = meter.Int64Counter("agentshift.digests.failed",
		metric.WithDescription("Number of digest mails that failed"))
	if err != nil {
		return nil, err
	}

	m.AggregationDuration, err = meter.Float64Histogram("agentshift.aggregation.duration_seconds",
		metric.WithDescription("Shift aggregation duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPoll counts one poll cycle.
func (m *Metrics) RecordPoll(ctx context.Context, inserted int, failed bool) {
	if m == nil {
		return
	}
	m.Polls.Add(ctx, 1)
	m.EventsInserted.Add(ctx, int64(inserted))
	if failed {
		m.PollFailures.Add(ctx, 1)
	}
}

// RecordReport counts one report and its aggregation time.
func (m *Metrics) RecordReport(ctx context.Context, granularity string, aggregation time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("granularity", granularity))
	m.ReportsRun.Add(ctx, 1, attrs)
	m.AggregationDuration.Record(ctx, aggregation.Seconds(), attrs)
}

// RecordDigest counts one digest delivery attempt.
func (m *Metrics) RecordDigest(ctx context.Context, recurrence string, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("recurrence", recurrence))
	if err != nil {
		m.DigestsFailed.Add(ctx, 1, attrs)
		return
	}
	m.DigestsSent.Add(ctx, 1, attrs)
}
