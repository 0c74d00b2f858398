// Package report turns aggregated shift rows into presentation periods
// and the downloadable CSV artifact.
package report

import (
	"fmt"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/shift"
)

// Daily and weekly target lines drawn on charts.
const (
	DailyTarget  = 5 * time.Hour
	WeeklyTarget = 25 * time.Hour
)

const dateLayout = "2006-01-02"

// Entry is one agent's total within a period.
type Entry struct {
	Agent    string        `json:"agent"`
	LoggedIn time.Duration `json:"logged_in"`
	// GapFilled marks agents that were requested but had no data.
	GapFilled bool `json:"gap_filled"`
}

// Period is one daily or weekly bucket of per-agent totals.
type Period struct {
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Granularity shift.Granularity `json:"granularity"`
	Target      time.Duration     `json:"target"`
	Entries     []Entry           `json:"entries"`
}

// Title is the human-readable heading used on charts and in mail.
func (p Period) Title() string {
	if p.Granularity == shift.Weekly {
		return fmt.Sprintf("Hours Available from %s to %s", p.Start.Format(dateLayout), p.End.Format(dateLayout))
	}
	return "Hours Available from " + p.Start.Format(dateLayout)
}

// Slug identifies the period in file names. Weekly slugs span the whole
// calendar week, Monday to Sunday.
func (p Period) Slug() string {
	if p.Granularity == shift.Weekly {
		return p.Start.Format(dateLayout) + "_" + p.Start.AddDate(0, 0, 6).Format(dateLayout)
	}
	return p.Start.Format(dateLayout)
}

// ArtifactName is the file name of a CSV export generated at now.
func ArtifactName(now time.Time) string {
	return "filtered_data_" + now.Format("20060102150405") + ".csv"
}

// weekStart returns the Monday of the week containing d.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
