package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/availability"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/port/database"
	"github.com/Strob0t/AgentShift/internal/port/eventstore"
)

// LegacySource yields the contents of a legacy tracker database.
type LegacySource interface {
	Records(ctx context.Context) ([]availability.Record, error)
	Subscriptions(ctx context.Context) ([]subscription.Subscription, error)
}

// ImportSummary reports what a legacy import did.
type ImportSummary struct {
	Events        int
	Subscriptions int
	Duplicates    int
	Invalid       int
}

// ImportService copies legacy history into the event and subscription stores.
type ImportService struct {
	events eventstore.Store
	subs   database.SubscriptionStore
	loc    *time.Location
}

// NewImportService creates an ImportService. Legacy timestamps carry no
// zone and are read in loc.
func NewImportService(events eventstore.Store, subs database.SubscriptionStore, loc *time.Location) *ImportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ImportService{events: events, subs: subs, loc: loc}
}

// Import parses every legacy event before inserting any, so a malformed
// row aborts the import with domain.ErrDataFormat and leaves the store
// untouched. Subscriptions already present are counted as duplicates.
func (s *ImportService) Import(ctx context.Context, src LegacySource) (ImportSummary, error) {
	var summary ImportSummary

	records, err := src.Records(ctx)
	if err != nil {
		return summary, fmt.Errorf("read legacy events: %w", err)
	}
	events := make([]availability.Event, 0, len(records))
	for i, r := range records {
		ev, err := availability.ParseRecord(r, s.loc)
		if err != nil {
			return summary, fmt.Errorf("legacy row %d: %w", i+1, err)
		}
		events = append(events, ev)
	}

	subs, err := src.Subscriptions(ctx)
	if err != nil {
		return summary, fmt.Errorf("read legacy subscriptions: %w", err)
	}

	for i := range events {
		if err := s.events.Insert(ctx, events[i]); err != nil {
			return summary, fmt.Errorf("insert legacy event %d: %w", i+1, err)
		}
		summary.Events++
	}

	for _, sub := range subs {
		if err := sub.Validate(nil); err != nil {
			slog.WarnContext(ctx, "legacy subscription skipped", "to", sub.ToEmail, "error", err)
			summary.Invalid++
			continue
		}
		if _, err := s.subs.CreateSubscription(ctx, sub); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				summary.Duplicates++
				continue
			}
			return summary, fmt.Errorf("insert legacy subscription %s: %w", sub.ToEmail, err)
		}
		summary.Subscriptions++
	}

	slog.InfoContext(ctx, "legacy import complete",
		"events", summary.Events,
		"subscriptions", summary.Subscriptions,
		"duplicates", summary.Duplicates,
		"invalid", summary.Invalid,
	)
	return summary, nil
}
