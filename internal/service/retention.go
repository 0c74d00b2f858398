package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentShift/internal/port/eventstore"
)

// DefaultRetentionYears is how long events are kept when not configured.
const DefaultRetentionYears = 2

// RetentionService removes events past the retention window.
type RetentionService struct {
	events eventstore.Store
	years  int
}

// NewRetentionService creates a RetentionService keeping years of history.
func NewRetentionService(events eventstore.Store, years int) *RetentionService {
	if years <= 0 {
		years = DefaultRetentionYears
	}
	return &RetentionService{events: events, years: years}
}

// Cutoff is the oldest timestamp kept when purging at now.
func (s *RetentionService) Cutoff(now time.Time) time.Time {
	return now.AddDate(-s.years, 0, 0)
}

// Purge deletes events observed before Cutoff(now).
func (s *RetentionService) Purge(ctx context.Context, now time.Time) (int64, error) {
	cutoff := s.Cutoff(now)
	n, err := s.events.Purge(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge events before %s: %w", cutoff.Format(time.DateOnly), err)
	}
	slog.InfoContext(ctx, "events purged", "before", cutoff.Format(time.DateOnly), "deleted", n)
	return n, nil
}
