package availability

import "time"

// DefaultBoundaryHour is the hour of day at which a new shift starts.
const DefaultBoundaryHour = 5

// ShiftDate is either the date recorded on an event or, for legacy rows
// that carry none, a marker that it must be derived from the timestamp.
type ShiftDate struct {
	date     time.Time
	recorded bool
}

// RecordedShift returns a ShiftDate carrying d (time of day is discarded).
func RecordedShift(d time.Time) ShiftDate {
	return ShiftDate{date: DateOf(d), recorded: true}
}

// DerivedShift returns a ShiftDate to be derived from the event timestamp.
func DerivedShift() ShiftDate {
	return ShiftDate{}
}

// Recorded reports whether the shift date was stored with the event.
func (s ShiftDate) Recorded() bool { return s.recorded }

// Date returns the recorded date, or the zero time for a derived shift.
func (s ShiftDate) Date() time.Time { return s.date }

// Resolve returns the concrete shift date for an event observed at ts.
func (s ShiftDate) Resolve(ts time.Time, boundaryHour int) time.Time {
	if s.recorded {
		return s.date
	}
	return ShiftDateFor(ts, boundaryHour)
}

// ShiftDateFor applies the boundary rule: observations before the boundary
// hour belong to the previous calendar day's shift.
func ShiftDateFor(ts time.Time, boundaryHour int) time.Time {
	d := DateOf(ts)
	if ts.Hour() < boundaryHour {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// DateOf returns the calendar date of t (in t's location) as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
