package availability

import (
	"fmt"
	"strings"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain"
)

// Layouts used by the legacy text representation.
const (
	TimestampLayout = "2006-01-02 15:04:05.999999999"
	DateLayout      = "2006-01-02"
)

// Record is the untyped text form of an event as stored by older versions.
type Record struct {
	Name      string
	Email     string
	Timestamp string
	ShiftDate string
	Previous  string
	New       string
}

// ParseRecord converts a text record into an Event. Timestamps without zone
// are interpreted in loc. An empty or NULL shift date yields a derived shift.
func ParseRecord(r Record, loc *time.Location) (Event, error) {
	if loc == nil {
		loc = time.UTC
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return Event{}, fmt.Errorf("record without name: %w", domain.ErrDataFormat)
	}

	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(r.Timestamp), loc)
	if err != nil {
		return Event{}, fmt.Errorf("record %q timestamp %q: %w", name, r.Timestamp, domain.ErrDataFormat)
	}

	shift := DerivedShift()
	if sd := strings.TrimSpace(r.ShiftDate); sd != "" && !strings.EqualFold(sd, "null") {
		d, err := time.Parse(DateLayout, sd)
		if err != nil {
			return Event{}, fmt.Errorf("record %q shift date %q: %w", name, r.ShiftDate, domain.ErrDataFormat)
		}
		shift = RecordedShift(d)
	}

	prev, err := ParseState(r.Previous)
	if err != nil {
		return Event{}, fmt.Errorf("record %q previous value: %w", name, err)
	}
	next, err := ParseState(r.New)
	if err != nil {
		return Event{}, fmt.Errorf("record %q new value: %w", name, err)
	}

	return Event{
		Agent:     name,
		Email:     strings.TrimSpace(r.Email),
		Timestamp: ts,
		Shift:     shift,
		Previous:  prev,
		New:       next,
	}, nil
}
