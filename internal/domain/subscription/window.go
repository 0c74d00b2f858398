package subscription

import (
	"fmt"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/availability"
)

// Window is the slice of history a digest covers.
type Window struct {
	Recurrence Recurrence
	// ShiftDate is set for daily digests, which select by shift date.
	ShiftDate *time.Time
	// Start and End bound event timestamps for weekly digests.
	Start time.Time
	End   time.Time
	// First and Last are the shift dates named in the subject.
	First time.Time
	Last  time.Time
}

// Label is the date range shown in subjects and headings.
func (w Window) Label() string {
	if w.Recurrence == Weekly {
		return fmt.Sprintf("%s --> %s", w.First.Format(time.DateOnly), w.Last.Format(time.DateOnly))
	}
	return w.First.Format(time.DateOnly)
}

// WindowFor returns the window of the digest sent on today. Daily digests
// cover yesterday's shift. Weekly digests cover the previous Monday to
// Friday shifts, i.e. timestamps from Monday at the boundary hour up to
// the following Saturday at the boundary hour.
func WindowFor(r Recurrence, today time.Time, boundaryHour int) Window {
	loc := today.Location()
	d := availability.DateOf(today)

	if r == Daily {
		y := d.AddDate(0, 0, -1)
		return Window{Recurrence: Daily, ShiftDate: &y, First: y, Last: y}
	}

	offset := (int(d.Weekday()) + 6) % 7
	mon := d.AddDate(0, 0, -(offset + 7))
	fri := mon.AddDate(0, 0, 4)
	sat := mon.AddDate(0, 0, 5)
	return Window{
		Recurrence: Weekly,
		Start:      time.Date(mon.Year(), mon.Month(), mon.Day(), boundaryHour, 0, 0, 0, loc),
		End:        time.Date(sat.Year(), sat.Month(), sat.Day(), boundaryHour, 0, 0, 0, loc).Add(-time.Second),
		First:      mon,
		Last:       fri,
	}
}
