package report

import (
	"slices"
	"sort"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/shift"
)

type dayKey struct {
	day   time.Time
	agent string
}

// Rollup groups rows into ascending periods. A day's value for an agent is
// the last row recorded for it; a week sums those daily values. Requested
// agents with no data in a period are added with zero.
func Rollup(rows []shift.Row, agents []string, g shift.Granularity) []Period {
	last := make(map[dayKey]time.Duration)
	for _, r := range rows {
		last[dayKey{day: r.ShiftDate, agent: r.Agent}] = r.LoggedIn
	}

	totals := make(map[time.Time]map[string]time.Duration)
	for k, v := range last {
		start := k.day
		if g == shift.Weekly {
			start = weekStart(k.day)
		}
		bucket, ok := totals[start]
		if !ok {
			bucket = make(map[string]time.Duration)
			totals[start] = bucket
		}
		bucket[k.agent] += v
	}

	starts := make([]time.Time, 0, len(totals))
	for s := range totals {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	periods := make([]Period, 0, len(starts))
	for _, s := range starts {
		periods = append(periods, newPeriod(s, g, totals[s], agents))
	}
	return periods
}

func newPeriod(start time.Time, g shift.Granularity, bucket map[string]time.Duration, agents []string) Period {
	p := Period{Start: start, End: start, Granularity: g, Target: DailyTarget}
	if g == shift.Weekly {
		p.End = start.AddDate(0, 0, 4)
		p.Target = WeeklyTarget
	}

	names := make([]string, 0, len(bucket))
	for name := range bucket {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		p.Entries = append(p.Entries, Entry{Agent: name, LoggedIn: bucket[name]})
	}

	var missing []string
	for _, a := range agents {
		if _, ok := bucket[a]; !ok && !slices.Contains(missing, a) {
			missing = append(missing, a)
		}
	}
	slices.Sort(missing)
	for _, name := range missing {
		p.Entries = append(p.Entries, Entry{Agent: name, GapFilled: true})
	}
	return p
}
