package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	cfotel "github.com/Strob0t/AgentShift/internal/adapter/otel"
	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/report"
	"github.com/Strob0t/AgentShift/internal/domain/shift"
	"github.com/Strob0t/AgentShift/internal/port/cache"
	"github.com/Strob0t/AgentShift/internal/port/chart"
	"github.com/Strob0t/AgentShift/internal/port/eventstore"
	"github.com/Strob0t/AgentShift/internal/workpool"
)

// DefaultArtifactTTL is how long a session's report stays downloadable.
const DefaultArtifactTTL = time.Hour

// ReportRequest asks for the events of Agents observed between Start and End.
type ReportRequest struct {
	Start     time.Time
	End       time.Time
	Agents    []string
	SessionID string
}

// ReportForm is the text form of a report request as submitted by a browser.
// Dates use YYYY-MM-DD and times HH:MM.
type ReportForm struct {
	StartDate string   `json:"start_date"`
	StartTime string   `json:"start_time"`
	EndDate   string   `json:"end_date"`
	EndTime   string   `json:"end_time"`
	Agents    []string `json:"agents"`
}

// Request resolves the form in loc. An empty start date means today, an
// empty end date means the start date, and empty times cover the whole day.
func (f ReportForm) Request(sessionID string, now time.Time, loc *time.Location) (ReportRequest, error) {
	if loc == nil {
		loc = time.UTC
	}
	startDate := strings.TrimSpace(f.StartDate)
	if startDate == "" {
		startDate = now.In(loc).Format(time.DateOnly)
	}
	endDate := strings.TrimSpace(f.EndDate)
	if endDate == "" {
		endDate = startDate
	}
	startTime := strings.TrimSpace(f.StartTime)
	if startTime == "" {
		startTime = "00:00"
	}
	endTime := strings.TrimSpace(f.EndTime)
	if endTime == "" {
		endTime = "23:59"
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", startDate+" "+startTime, loc)
	if err != nil {
		return ReportRequest{}, fmt.Errorf("invalid start %q %q: %w", startDate, startTime, domain.ErrValidation)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", endDate+" "+endTime, loc)
	if err != nil {
		return ReportRequest{}, fmt.Errorf("invalid end %q %q: %w", endDate, endTime, domain.ErrValidation)
	}

	agents := make([]string, 0, len(f.Agents))
	for _, a := range f.Agents {
		if a = strings.TrimSpace(a); a != "" {
			agents = append(agents, a)
		}
	}

	return ReportRequest{
		Start:     start,
		End:       end.Add(59 * time.Second),
		Agents:    agents,
		SessionID: sessionID,
	}, nil
}

// Validate checks the request before any store access.
func (r ReportRequest) Validate() error {
	if len(r.Agents) == 0 {
		return fmt.Errorf("at least one agent is required: %w", domain.ErrValidation)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("end %s before start %s: %w", r.End.Format(time.DateTime), r.Start.Format(time.DateTime), domain.ErrValidation)
	}
	if _, err := uuid.Parse(r.SessionID); err != nil {
		return fmt.Errorf("invalid session id: %w", domain.ErrValidation)
	}
	return nil
}

// ReportOutcome describes a generated report.
type ReportOutcome struct {
	Granularity shift.Granularity
	ShiftDates  int
	Rows        []shift.Row
	Periods     []report.Period
	// Charts are file names inside the session's artifact directory.
	Charts   []string
	Artifact string
	// Degraded is set when the artifact could not be cached, so the
	// download link will not resolve.
	Degraded bool
}

// sessionEntry is the cached pointer to a session's latest CSV. ExpiresAt
// enforces the TTL even when a cache tier would keep the entry longer.
type sessionEntry struct {
	Path      string    `json:"path"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReportServiceConfig holds the static settings of a ReportService.
type ReportServiceConfig struct {
	ArtifactsDir string
	TTL          time.Duration
	Shift        shift.Options
	// MaxConcurrent bounds simultaneous report builds. Zero allows one.
	MaxConcurrent int
}

// ReportService runs on-demand reports and serves their artifacts.
type ReportService struct {
	builder reportBuilder
	pool    *workpool.Pool
	cache   cache.Cache
	mu      sync.Mutex
	active  map[string]struct{}
	dir     string
	ttl     time.Duration
	now     func() time.Time
}

// NewReportService creates a ReportService.
func NewReportService(events eventstore.Store, charts chart.Renderer, c cache.Cache, cfg ReportServiceConfig, metrics *cfotel.Metrics) *ReportService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultArtifactTTL
	}
	s := &ReportService{
		pool:   workpool.NewPool(cfg.MaxConcurrent),
		cache:  c,
		active: make(map[string]struct{}),
		dir:    cfg.ArtifactsDir,
		ttl:    ttl,
		now:    time.Now,
	}
	s.builder = reportBuilder{
		events:  events,
		charts:  charts,
		opts:    cfg.Shift,
		metrics: metrics,
		now:     func() time.Time { return s.now() },
	}
	return s
}

// Run generates the CSV and charts for req and remembers the CSV for the session.
func (s *ReportService) Run(ctx context.Context, req ReportRequest) (*ReportOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := cfotel.StartReportSpan(ctx, req.SessionID, len(req.Agents))
	defer span.End()

	dir := s.runDir(req.SessionID)
	s.track(dir, true)
	defer s.track(dir, false)

	var built *builtReport
	err := s.pool.Run(ctx, func(ctx context.Context) error {
		var err error
		built, err = s.builder.build(ctx, eventstore.Query{
			Start:  req.Start,
			End:    req.End,
			Agents: req.Agents,
		}, dir, "")
		return err
	})
	if err != nil {
		span.RecordError(err)
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.WarnContext(ctx, "remove failed report run", "dir", dir, "error", rmErr)
		}
		return nil, err
	}

	out := &ReportOutcome{
		Granularity: built.Result.Granularity,
		ShiftDates:  built.Result.ShiftDates,
		Rows:        built.Result.Rows,
		Periods:     built.Periods,
		Artifact:    built.CSVPath,
	}
	for _, c := range built.Charts {
		out.Charts = append(out.Charts, filepath.Base(c))
	}

	if err := s.remember(ctx, req.SessionID, built.CSVPath); err != nil {
		slog.WarnContext(ctx, "report not cached", "session_id", req.SessionID, "error", err)
		out.Degraded = true
	} else {
		s.prune(ctx, req.SessionID, dir)
	}

	slog.InfoContext(ctx, "report generated",
		"session_id", req.SessionID,
		"agents", len(req.Agents),
		"rows", len(out.Rows),
		"granularity", out.Granularity,
		"degraded", out.Degraded,
	)
	return out, nil
}

// Artifact returns the CSV path cached for the session. It fails with
// domain.ErrNotFound when the entry is absent, expired or its file is gone.
func (s *ReportService) Artifact(ctx context.Context, sessionID string) (string, error) {
	key := cache.SessionKey(sessionID)
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		return "", cacheErr("read session artifact", err)
	}
	if !ok {
		return "", fmt.Errorf("session artifact: %w", domain.ErrNotFound)
	}

	var entry sessionEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return "", fmt.Errorf("decode session artifact: %w", domain.ErrDataFormat)
	}
	if !s.now().Before(entry.ExpiresAt) {
		if err := s.cache.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "drop expired session artifact", "session_id", sessionID, "error", err)
		}
		return "", fmt.Errorf("session artifact expired: %w", domain.ErrNotFound)
	}
	if _, err := os.Stat(entry.Path); err != nil {
		return "", fmt.Errorf("session artifact file: %w", domain.ErrNotFound)
	}
	return entry.Path, nil
}

// ChartPath returns the path of a chart image rendered for the session.
func (s *ReportService) ChartPath(sessionID, name string) (string, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", fmt.Errorf("invalid session id: %w", domain.ErrValidation)
	}
	if filepath.Base(name) != name || !strings.HasPrefix(name, "graph_") || filepath.Ext(name) != ".png" {
		return "", fmt.Errorf("invalid chart name %q: %w", name, domain.ErrValidation)
	}
	root := s.sessionDir(sessionID)
	runs, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("chart %s: %w", name, domain.ErrNotFound)
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if !runs[i].IsDir() {
			continue
		}
		path := filepath.Join(root, runs[i].Name(), name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("chart %s: %w", name, domain.ErrNotFound)
}

func (s *ReportService) remember(ctx context.Context, sessionID, path string) error {
	data, err := json.Marshal(sessionEntry{Path: path, ExpiresAt: s.now().Add(s.ttl)})
	if err != nil {
		return fmt.Errorf("encode session artifact: %w", err)
	}
	if err := s.cache.Set(ctx, cache.SessionKey(sessionID), data, s.ttl); err != nil {
		return cacheErr("write session artifact", err)
	}
	return nil
}

func (s *ReportService) sessionDir(sessionID string) string {
	return filepath.Join(s.dir, "sessions", sessionID)
}

// runDir is a fresh directory for one report run of the session. Names sort
// by start time.
func (s *ReportService) runDir(sessionID string) string {
	return filepath.Join(s.sessionDir(sessionID), s.now().Format("20060102150405")+"-"+uuid.NewString()[:8])
}

func (s *ReportService) track(dir string, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if running {
		s.active[dir] = struct{}{}
	} else {
		delete(s.active, dir)
	}
}

// prune removes the session's finished runs other than keep.
func (s *ReportService) prune(ctx context.Context, sessionID, keep string) {
	root := s.sessionDir(sessionID)
	entries, err := os.ReadDir(root)
	if err != nil {
		slog.WarnContext(ctx, "list report runs", "session_id", sessionID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if _, running := s.active[path]; running || path == keep {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			slog.WarnContext(ctx, "prune report run", "dir", path, "error", err)
		}
	}
}

func cacheErr(op string, err error) error {
	if errors.Is(err, domain.ErrCacheUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrCacheUnavailable, err)
}
