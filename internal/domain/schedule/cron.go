// Package schedule parses the job schedules of the background runner.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSchedule represents a minimal parsed cron schedule.
type CronSchedule struct {
	Hour   int
	Minute int
	// Days restricts runs to these weekdays; empty means every day.
	Days []time.Weekday
	// Every, when non-zero, runs the job at a fixed interval instead.
	Every time.Duration
}

// ParseCronExpr parses a simple cron expression.
// Supported formats:
//   - "daily"                → every day at 00:00
//   - "weekly"               → every Monday at 00:00
//   - "HH:MM"                → every day at HH:MM
//   - "daily:HH:MM"          → every day at HH:MM
//   - "weekly:Day"           → every Day at 00:00 (e.g. "weekly:Fri")
//   - "weekly:Day:HH:MM"     → every Day at HH:MM
//   - "days:Day-Day:HH:MM"   → each day in the range at HH:MM (e.g. "days:Tue-Sat:08:50")
//   - "every:<duration>"     → fixed interval (e.g. "every:1m")
//
// Times are wall-clock times in the location passed to NextAfter.
func ParseCronExpr(expr string) (CronSchedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return CronSchedule{}, fmt.Errorf("empty cron expression")
	}

	switch {
	case expr == "daily":
		return CronSchedule{}, nil

	case expr == "weekly":
		return CronSchedule{Days: []time.Weekday{time.Monday}}, nil

	case strings.HasPrefix(expr, "every:"):
		d, err := time.ParseDuration(strings.TrimPrefix(expr, "every:"))
		if err != nil || d <= 0 {
			return CronSchedule{}, fmt.Errorf("invalid interval in %q", expr)
		}
		return CronSchedule{Every: d}, nil

	case strings.HasPrefix(expr, "daily:"):
		h, m, err := parseHHMM(strings.TrimPrefix(expr, "daily:"))
		if err != nil {
			return CronSchedule{}, err
		}
		return CronSchedule{Hour: h, Minute: m}, nil

	case strings.HasPrefix(expr, "weekly:"):
		rest := strings.TrimPrefix(expr, "weekly:")
		parts := strings.SplitN(rest, ":", 2)
		day, err := parseWeekday(parts[0])
		if err != nil {
			return CronSchedule{}, err
		}
		h, m := 0, 0
		if len(parts) == 2 {
			h, m, err = parseHHMM(parts[1])
			if err != nil {
				return CronSchedule{}, err
			}
		}
		return CronSchedule{Hour: h, Minute: m, Days: []time.Weekday{day}}, nil

	case strings.HasPrefix(expr, "days:"):
		rest := strings.TrimPrefix(expr, "days:")
		parts := strings.SplitN(rest, ":", 2)
		days, err := parseDayRange(parts[0])
		if err != nil {
			return CronSchedule{}, err
		}
		h, m := 0, 0
		if len(parts) == 2 {
			h, m, err = parseHHMM(parts[1])
			if err != nil {
				return CronSchedule{}, err
			}
		}
		return CronSchedule{Hour: h, Minute: m, Days: days}, nil

	default:
		h, m, err := parseHHMM(expr)
		if err != nil {
			return CronSchedule{}, fmt.Errorf("unrecognized cron expression: %q", expr)
		}
		return CronSchedule{Hour: h, Minute: m}, nil
	}
}

// NextAfter returns the next occurrence of this schedule after t, in t's location.
func (c CronSchedule) NextAfter(t time.Time) time.Time {
	if c.Every > 0 {
		return t.Add(c.Every)
	}

	candidate := time.Date(t.Year(), t.Month(), t.Day(), c.Hour, c.Minute, 0, 0, t.Location())
	for i := range 8 {
		check := candidate.AddDate(0, 0, i)
		if check.After(t) && c.runsOn(check.Weekday()) {
			return check
		}
	}

	// Should not reach here, but just in case
	return candidate.AddDate(0, 0, 7)
}

func (c CronSchedule) runsOn(d time.Weekday) bool {
	if len(c.Days) == 0 {
		return true
	}
	for _, day := range c.Days {
		if day == d {
			return true
		}
	}
	return false
}

// ValidateCronExpr checks if a cron expression is syntactically valid.
func ValidateCronExpr(expr string) error {
	_, err := ParseCronExpr(expr)
	return err
}

func parseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour %q", parts[0])
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute %q", parts[1])
	}
	return h, m, nil
}

// parseDayRange expands "Tue-Sat" (wrapping past Sunday if needed) or a single day.
func parseDayRange(s string) ([]time.Weekday, error) {
	from, to, isRange := strings.Cut(s, "-")
	first, err := parseWeekday(from)
	if err != nil {
		return nil, err
	}
	if !isRange {
		return []time.Weekday{first}, nil
	}
	last, err := parseWeekday(to)
	if err != nil {
		return nil, err
	}
	days := []time.Weekday{first}
	for d := first; d != last; {
		d = (d + 1) % 7
		days = append(days, d)
	}
	return days, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sun", "sunday":
		return time.Sunday, nil
	case "mon", "monday":
		return time.Monday, nil
	case "tue", "tuesday":
		return time.Tuesday, nil
	case "wed", "wednesday":
		return time.Wednesday, nil
	case "thu", "thursday":
		return time.Thursday, nil
	case "fri", "friday":
		return time.Friday, nil
	case "sat", "saturday":
		return time.Saturday, nil
	default:
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
}
