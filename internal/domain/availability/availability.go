// Package availability defines the agent state-change event model.
package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain"
)

// State is an agent's availability: logged off or logged in.
type State int8

const (
	Off State = 0
	On  State = 1
)

// Valid reports whether s is one of the two known states.
func (s State) Valid() bool {
	return s == Off || s == On
}

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return fmt.Sprintf("State(%d)", int8(s))
	}
}

// ParseState parses the persisted "0"/"1" representation.
func ParseState(s string) (State, error) {
	switch strings.TrimSpace(s) {
	case "0":
		return Off, nil
	case "1":
		return On, nil
	default:
		return 0, fmt.Errorf("state %q: %w", s, domain.ErrDataFormat)
	}
}

// StateOf maps the helpdesk "available" flag onto a State.
func StateOf(available bool) State {
	if available {
		return On
	}
	return Off
}

// Event is one recorded availability observation for an agent.
// Events for an agent are totally ordered by insertion.
type Event struct {
	Agent     string
	Email     string
	Timestamp time.Time
	Shift     ShiftDate
	Previous  State
	New       State
}

// Validate checks the fields the aggregation depends on.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Agent) == "" {
		return fmt.Errorf("event without agent name: %w", domain.ErrDataFormat)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("event for %q without timestamp: %w", e.Agent, domain.ErrDataFormat)
	}
	if !e.Previous.Valid() || !e.New.Valid() {
		return fmt.Errorf("event for %q has states %d->%d: %w", e.Agent, e.Previous, e.New, domain.ErrDataFormat)
	}
	return nil
}
