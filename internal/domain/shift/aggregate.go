package shift

import (
	"fmt"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/availability"
)

type key struct {
	agent     string
	shiftDate time.Time
}

type accumulator struct {
	agent       string
	shiftDate   time.Time
	lastLogin   time.Time
	cumulative  time.Duration
	previous    availability.State
	current     availability.State
	transitions int
}

// Aggregate scans events in the given order and emits one row per event,
// followed by synthetic rows for agents still logged in at the end of the
// range. It either processes the whole sequence or returns an error.
func Aggregate(events []availability.Event, opts Options) (Result, error) {
	if opts.BoundaryHour < 0 || opts.BoundaryHour > 23 {
		return Result{}, fmt.Errorf("boundary hour %d outside 0-23: %w", opts.BoundaryHour, domain.ErrValidation)
	}
	limit := opts.MaxCredit
	if limit <= 0 {
		limit = DefaultMaxCredit
	}

	accs := make(map[key]*accumulator)
	order := make([]*accumulator, 0)
	rows := make([]Row, 0, len(events))

	for i := range events {
		ev := events[i]
		if err := ev.Validate(); err != nil {
			return Result{}, fmt.Errorf("event %d: %w", i, err)
		}
		ts := ev.Timestamp
		if opts.Location != nil {
			ts = ts.In(opts.Location)
		}
		ts = ts.Truncate(time.Second)
		day := ev.Shift.Resolve(ts, opts.BoundaryHour)

		k := key{agent: ev.Agent, shiftDate: day}
		acc, seen := accs[k]
		if !seen {
			acc = &accumulator{
				agent:     ev.Agent,
				shiftDate: day,
				lastLogin: ts,
				previous:  ev.Previous,
				current:   ev.New,
			}
			accs[k] = acc
			order = append(order, acc)
		} else if ev.New != acc.current {
			if ev.New == availability.On {
				acc.lastLogin = ts
			} else {
				acc.credit(ts.Sub(acc.lastLogin), limit)
			}
			acc.transitions++
			acc.previous = ev.Previous
			acc.current = ev.New
		}
		acc.cumulative = clamp(acc.cumulative, limit)

		rows = append(rows, Row{
			Agent:     ev.Agent,
			Timestamp: ts,
			ShiftDate: day,
			Previous:  ev.Previous,
			New:       ev.New,
			LoggedIn:  acc.cumulative,
		})
	}

	for _, acc := range order {
		if row, ok := acc.reconcile(opts.BoundaryHour, limit); ok {
			rows = append(rows, row)
		}
	}

	n := distinctDates(order)
	return Result{
		Rows:        rows,
		Granularity: GranularityFor(n),
		ShiftDates:  n,
	}, nil
}

// credit adds a non-negative delta and clamps the running total.
func (a *accumulator) credit(delta, limit time.Duration) {
	if delta > 0 {
		a.cumulative += delta
	}
	a.cumulative = clamp(a.cumulative, limit)
}

// reconcile credits an agent who is still logged in at the end of the
// range and has not been credited anything for the shift yet. An agent
// with a non-zero total who is still logged in gets no further credit.
func (a *accumulator) reconcile(boundaryHour int, limit time.Duration) (Row, bool) {
	if a.current != availability.On || a.cumulative != 0 {
		return Row{}, false
	}
	if a.transitions == 0 {
		a.cumulative = limit
	} else {
		a.credit(shiftEnd(a.shiftDate, boundaryHour, a.lastLogin.Location()).Sub(a.lastLogin), limit)
	}
	return Row{
		Agent:     a.agent,
		Timestamp: a.lastLogin,
		ShiftDate: a.shiftDate,
		Previous:  a.previous,
		New:       a.current,
		LoggedIn:  a.cumulative,
		Synthetic: true,
	}, true
}

// shiftEnd is the boundary hour on the day after the shift date.
func shiftEnd(shiftDate time.Time, boundaryHour int, loc *time.Location) time.Time {
	y, m, d := shiftDate.AddDate(0, 0, 1).Date()
	return time.Date(y, m, d, boundaryHour, 0, 0, 0, loc)
}

func clamp(d, limit time.Duration) time.Duration {
	if d > limit {
		return limit
	}
	return d
}

func distinctDates(accs []*accumulator) int {
	days := make(map[time.Time]struct{}, len(accs))
	for _, a := range accs {
		days[a.shiftDate] = struct{}{}
	}
	return len(days)
}
