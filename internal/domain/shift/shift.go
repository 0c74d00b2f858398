// Package shift reconstructs per-agent per-shift logged-in durations from
// a stream of availability state-change events.
package shift

import (
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/availability"
)

// Granularity selects how report rows are rolled up for presentation.
type Granularity string

const (
	Daily  Granularity = "daily"
	Weekly Granularity = "weekly"
)

// WeeklyThreshold is the number of distinct shift dates from which a
// result is presented per week instead of per day.
const WeeklyThreshold = 14

// DefaultMaxCredit caps the credited time for one agent in one shift.
const DefaultMaxCredit = 8 * time.Hour

// Options configures an aggregation pass.
type Options struct {
	// BoundaryHour is the hour of day at which a new shift starts (0-23).
	BoundaryHour int
	// MaxCredit caps the cumulative duration per (agent, shift date).
	// Zero means DefaultMaxCredit.
	MaxCredit time.Duration
	// Location converts event timestamps before the boundary rule is applied.
	// Nil keeps them as stored.
	Location *time.Location
}

// Row is one processed or synthesized event with the running total for
// its (agent, shift date).
type Row struct {
	Agent     string
	Timestamp time.Time
	ShiftDate time.Time
	Previous  availability.State
	New       availability.State
	LoggedIn  time.Duration
	// Synthetic marks rows produced by end-of-range reconciliation.
	Synthetic bool
}

// Result is the outcome of one aggregation pass.
type Result struct {
	Rows        []Row
	Granularity Granularity
	ShiftDates  int
}

// GranularityFor picks the rollup granularity for n distinct shift dates.
func GranularityFor(n int) Granularity {
	if n < WeeklyThreshold {
		return Daily
	}
	return Weekly
}
