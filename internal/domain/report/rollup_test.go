package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Strob0t/AgentShift/internal/domain/availability"
	"github.com/Strob0t/AgentShift/internal/domain/shift"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func row(agent, shiftDate string, d time.Duration) shift.Row {
	sd := day(shiftDate)
	return shift.Row{Agent: agent, Timestamp: sd.Add(9 * time.Hour), ShiftDate: sd, LoggedIn: d}
}

func TestRollupDailyGapFill(t *testing.T) {
	rows := []shift.Row{
		row("A", "2024-03-04", 0),
		row("A", "2024-03-04", 3*time.Hour),
	}
	periods := Rollup(rows, []string{"A", "B"}, shift.Daily)
	if len(periods) != 1 {
		t.Fatalf("periods: got %d, want 1", len(periods))
	}
	p := periods[0]
	if len(p.Entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(p.Entries))
	}
	if e := p.Entries[0]; e.Agent != "A" || e.LoggedIn != 3*time.Hour || e.GapFilled {
		t.Errorf("entry A: got %+v", e)
	}
	if e := p.Entries[1]; e.Agent != "B" || e.LoggedIn != 0 || !e.GapFilled {
		t.Errorf("entry B: got %+v", e)
	}
	if p.Target != DailyTarget {
		t.Errorf("target: got %v", p.Target)
	}
}

func TestRollupOrdering(t *testing.T) {
	rows := []shift.Row{
		row("Zed", "2024-03-05", time.Hour),
		row("Amy", "2024-03-05", time.Hour),
		row("Zed", "2024-03-04", time.Hour),
	}
	periods := Rollup(rows, []string{"Yan", "Amy", "Bea", "Zed"}, shift.Daily)
	if len(periods) != 2 {
		t.Fatalf("periods: got %d, want 2", len(periods))
	}
	if !periods[0].Start.Equal(day("2024-03-04")) {
		t.Errorf("periods not ascending: first is %v", periods[0].Start)
	}

	var got []string
	for _, e := range periods[1].Entries {
		got = append(got, e.Agent)
	}
	want := "Amy,Zed,Bea,Yan"
	if strings.Join(got, ",") != want {
		t.Errorf("entry order: got %v, want %s", got, want)
	}
}

func TestRollupWeekly(t *testing.T) {
	rows := []shift.Row{
		row("A", "2024-03-04", time.Hour),
		row("A", "2024-03-04", 2*time.Hour),
		row("A", "2024-03-06", 4*time.Hour),
		row("A", "2024-03-11", 8*time.Hour),
	}
	periods := Rollup(rows, []string{"A"}, shift.Weekly)
	if len(periods) != 2 {
		t.Fatalf("periods: got %d, want 2", len(periods))
	}
	first := periods[0]
	if !first.Start.Equal(day("2024-03-04")) || !first.End.Equal(day("2024-03-08")) {
		t.Errorf("first week: %v - %v", first.Start, first.End)
	}
	if first.Entries[0].LoggedIn != 6*time.Hour {
		t.Errorf("first week total: got %v, want 6h", first.Entries[0].LoggedIn)
	}
	if first.Target != WeeklyTarget {
		t.Errorf("target: got %v", first.Target)
	}
	if got := first.Title(); got != "Hours Available from 2024-03-04 to 2024-03-08" {
		t.Errorf("title: %q", got)
	}
	if got := first.Slug(); got != "2024-03-04_2024-03-10" {
		t.Errorf("slug: %q", got)
	}
}

func TestRollupWeekStartsMonday(t *testing.T) {
	periods := Rollup([]shift.Row{row("A", "2024-03-10", time.Hour)}, nil, shift.Weekly)
	if !periods[0].Start.Equal(day("2024-03-04")) {
		t.Errorf("sunday belongs to week starting %v", periods[0].Start)
	}
}

func TestRollupEmpty(t *testing.T) {
	if got := Rollup(nil, []string{"A"}, shift.Daily); len(got) != 0 {
		t.Errorf("expected no periods, got %d", len(got))
	}
}

func TestDailyTitle(t *testing.T) {
	p := Period{Start: day("2024-03-04"), End: day("2024-03-04"), Granularity: shift.Daily}
	if got := p.Title(); got != "Hours Available from 2024-03-04" {
		t.Errorf("title: %q", got)
	}
	if got := p.Slug(); got != "2024-03-04" {
		t.Errorf("slug: %q", got)
	}
}

func TestWriteCSV(t *testing.T) {
	ts := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	rows := []shift.Row{
		{Agent: "Ann", Timestamp: ts, ShiftDate: day("2024-03-04"), Previous: availability.On, New: availability.Off, LoggedIn: 5*time.Hour + 30*time.Minute},
		{Agent: "Bob", Timestamp: ts, ShiftDate: day("2024-03-04"), Previous: availability.On, New: availability.On, LoggedIn: 8 * time.Hour, Synthetic: true},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Name,Actual Date,Shift Date,Previous Value,New Value,Time Logged In\n" +
		"Ann,2024-03-04 14:30:00,2024-03-04,1,0,5:30:00\n" +
		"Bob,2024-03-04 14:30:00,2024-03-04,1,1,8:00:00\n"
	if buf.String() != want {
		t.Errorf("csv:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[time.Duration]string{
		0:                             "0:00:00",
		5*time.Hour + 30*time.Minute:  "5:30:00",
		25*time.Hour + 61*time.Second: "25:01:01",
		-time.Minute:                  "0:00:00",
		1500 * time.Millisecond:       "0:00:01",
	}
	for d, want := range tests {
		if got := FormatDuration(d); got != want {
			t.Errorf("FormatDuration(%v): got %q, want %q", d, got, want)
		}
	}
}

func TestArtifactName(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 5, 7, 0, time.UTC)
	if got := ArtifactName(now); got != "filtered_data_20240304090507.csv" {
		t.Errorf("got %q", got)
	}
}
