package availability

import "time"

// Sighting is one observation of an agent by the poller.
type Sighting struct {
	Agent    string
	Email    string
	State    State
	At       time.Time
	ShiftDay time.Time
}

// Bootstrap returns the first event recorded for an agent in a shift.
// Both states carry the observed value.
func Bootstrap(s Sighting) Event {
	return Event{
		Agent:     s.Agent,
		Email:     s.Email,
		Timestamp: s.At,
		Shift:     RecordedShift(s.ShiftDay),
		Previous:  s.State,
		New:       s.State,
	}
}

// Transition returns the event to record when the observed state differs
// from the last known one. ok is false when nothing changed.
func Transition(s Sighting, last State) (ev Event, ok bool) {
	if s.State == last {
		return Event{}, false
	}
	return Event{
		Agent:     s.Agent,
		Email:     s.Email,
		Timestamp: s.At,
		Shift:     RecordedShift(s.ShiftDay),
		Previous:  last,
		New:       s.State,
	}, true
}
