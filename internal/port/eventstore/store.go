// Package eventstore defines the port interface for the append-only log of
// agent availability events.
package eventstore

import (
	"context"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/availability"
)

// Query selects events. When ShiftDate is set it filters on shift date
// equality and ignores Start and End; otherwise it selects timestamps
// between Start and End inclusive. Agents restricts the result to those
// names; empty means all agents.
type Query struct {
	Start     time.Time
	End       time.Time
	ShiftDate *time.Time
	Agents    []string
}

// Store is the port interface for appending and reading availability events.
type Store interface {
	// Query returns matching events in insertion order.
	Query(ctx context.Context, q Query) ([]availability.Event, error)

	// LastKnownState returns the new state of the most recent event for the
	// agent. ok is false when the agent has no events.
	LastKnownState(ctx context.Context, agent string) (state availability.State, ok bool, err error)

	// HasShiftRecord reports whether any event exists for the agent on the shift date.
	HasShiftRecord(ctx context.Context, agent string, shiftDate time.Time) (bool, error)

	// Insert appends one event.
	Insert(ctx context.Context, ev availability.Event) error

	// Purge deletes events observed before olderThan and returns how many were removed.
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}
