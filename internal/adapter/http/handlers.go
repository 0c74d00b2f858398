package http

import (
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/report"
	"github.com/Strob0t/AgentShift/internal/domain/roster"
	"github.com/Strob0t/AgentShift/internal/domain/shift"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/logger"
	"github.com/Strob0t/AgentShift/internal/service"
)

// Handlers holds the services behind the HTTP API.
type Handlers struct {
	Reports       *service.ReportService
	Subscriptions *service.SubscriptionService
	Roster        roster.Roster
	ValidDomains  []string
	Location      *time.Location
	Now           func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type rosterResponse struct {
	Teams        roster.Roster `json:"teams"`
	ValidDomains []string      `json:"valid_domains"`
}

// GetRoster returns the configured teams and accepted mail domains.
func (h *Handlers) GetRoster(w http.ResponseWriter, _ *http.Request) {
	teams := h.Roster
	if teams == nil {
		teams = roster.Roster{}
	}
	domains := h.ValidDomains
	if domains == nil {
		domains = []string{}
	}
	writeJSON(w, http.StatusOK, rosterResponse{Teams: teams, ValidDomains: domains})
}

type rowResponse struct {
	Agent     string `json:"agent"`
	Timestamp string `json:"timestamp"`
	ShiftDate string `json:"shift_date"`
	Previous  int    `json:"previous"`
	New       int    `json:"new"`
	LoggedIn  string `json:"logged_in"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

type entryResponse struct {
	Agent     string  `json:"agent"`
	Hours     float64 `json:"hours"`
	GapFilled bool    `json:"gap_filled,omitempty"`
}

type periodResponse struct {
	Title       string          `json:"title"`
	Start       string          `json:"start"`
	End         string          `json:"end"`
	TargetHours float64         `json:"target_hours"`
	Chart       string          `json:"chart,omitempty"`
	Entries     []entryResponse `json:"entries"`
}

type reportResponse struct {
	Granularity shift.Granularity `json:"granularity"`
	ShiftDates  int               `json:"shift_dates"`
	Rows        []rowResponse     `json:"rows"`
	Periods     []periodResponse  `json:"periods"`
	DownloadURL string            `json:"download_url,omitempty"`
	Degraded    bool              `json:"degraded"`
}

// RunReport aggregates the requested range and returns the report summary.
func (h *Handlers) RunReport(w http.ResponseWriter, r *http.Request) {
	form, ok := readJSON[service.ReportForm](w, r)
	if !ok {
		return
	}
	req, err := form.Request(logger.SessionID(r.Context()), h.now(), h.Location)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	out, err := h.Reports.Run(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "report not found")
		return
	}
	writeJSON(w, http.StatusOK, newReportResponse(out))
}

func newReportResponse(out *service.ReportOutcome) reportResponse {
	resp := reportResponse{
		Granularity: out.Granularity,
		ShiftDates:  out.ShiftDates,
		Rows:        make([]rowResponse, 0, len(out.Rows)),
		Periods:     make([]periodResponse, 0, len(out.Periods)),
		Degraded:    out.Degraded,
	}
	if !out.Degraded {
		resp.DownloadURL = "/api/v1/reports/download"
	}
	for _, row := range out.Rows {
		resp.Rows = append(resp.Rows, rowResponse{
			Agent:     row.Agent,
			Timestamp: row.Timestamp.Format(time.DateTime),
			ShiftDate: row.ShiftDate.Format(time.DateOnly),
			Previous:  int(row.Previous),
			New:       int(row.New),
			LoggedIn:  report.FormatDuration(row.LoggedIn),
			Synthetic: row.Synthetic,
		})
	}
	for i, p := range out.Periods {
		pr := periodResponse{
			Title:       p.Title(),
			Start:       p.Start.Format(time.DateOnly),
			End:         p.End.Format(time.DateOnly),
			TargetHours: p.Target.Hours(),
			Entries:     make([]entryResponse, 0, len(p.Entries)),
		}
		if i < len(out.Charts) {
			pr.Chart = "/api/v1/charts/" + out.Charts[i]
		}
		for _, e := range p.Entries {
			pr.Entries = append(pr.Entries, entryResponse{Agent: e.Agent, Hours: e.LoggedIn.Hours(), GapFilled: e.GapFilled})
		}
		resp.Periods = append(resp.Periods, pr)
	}
	return resp
}

// DownloadReport streams the session's latest CSV.
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	path, err := h.Reports.Artifact(r.Context(), logger.SessionID(r.Context()))
	if err != nil {
		writeDomainError(w, err, "report expired or not found, please run it again")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

// GetChart serves a chart image rendered for the session.
func (h *Handlers) GetChart(w http.ResponseWriter, r *http.Request) {
	path, err := h.Reports.ChartPath(logger.SessionID(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeDomainError(w, err, "chart not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeFile(w, r, path)
}

type subscribeRequest struct {
	ToEmail    string   `json:"to_email"`
	Agents     []string `json:"agents"`
	Recurrence string   `json:"recurrence"`
}

type subscribeResponse struct {
	Status       string                     `json:"status"`
	Subscription *subscription.Subscription `json:"subscription,omitempty"`
}

// Subscribe opts an address into daily or weekly digests.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[subscribeRequest](w, r)
	if !ok {
		return
	}
	rec, err := subscription.ParseRecurrence(req.Recurrence)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}

	created, err := h.Subscriptions.OptIn(r.Context(), subscription.New(req.ToEmail, req.Agents, rec))
	switch {
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusOK, subscribeResponse{Status: "already subscribed"})
	case err != nil:
		writeDomainError(w, err, "")
	default:
		writeJSON(w, http.StatusCreated, subscribeResponse{Status: "subscribed", Subscription: created})
	}
}
