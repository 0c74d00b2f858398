package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cfotel "github.com/Strob0t/AgentShift/internal/adapter/otel"
	"github.com/Strob0t/AgentShift/internal/domain/availability"
	"github.com/Strob0t/AgentShift/internal/domain/roster"
	"github.com/Strob0t/AgentShift/internal/port/eventstore"
	"github.com/Strob0t/AgentShift/internal/port/helpdesk"
)

// DefaultPerPage is the helpdesk page size used when none is configured.
const DefaultPerPage = 100

// CycleSummary reports what one poll cycle did.
type CycleSummary struct {
	ShiftDate    time.Time
	Pages        int
	Seen         int
	Tracked      int
	Bootstrapped int
	Transitions  int
	// Failed counts agents whose store lookup or insert failed.
	Failed int
	// FetchErr is the page fetch error that ended the cycle early, if any.
	FetchErr error
}

// Inserted is the number of events appended during the cycle.
func (c CycleSummary) Inserted() int {
	return c.Bootstrapped + c.Transitions
}

// IngestConfig holds the static settings of an IngestService.
type IngestConfig struct {
	Roster       roster.Roster
	BoundaryHour int
	PerPage      int
	Location     *time.Location
}

// IngestService records availability changes observed on the helpdesk.
// It is the only writer of the event store.
type IngestService struct {
	source  helpdesk.Source
	events  eventstore.Store
	cfg     IngestConfig
	metrics *cfotel.Metrics
}

// NewIngestService creates an IngestService.
func NewIngestService(source helpdesk.Source, events eventstore.Store, cfg IngestConfig, metrics *cfotel.Metrics) *IngestService {
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &IngestService{source: source, events: events, cfg: cfg, metrics: metrics}
}

// Poll runs one cycle at now. Pages are fetched until a short page; a
// failed fetch ends the cycle and is returned after the agents of earlier
// pages have been processed. Per-agent store failures are logged and counted.
func (s *IngestService) Poll(ctx context.Context, now time.Time) (CycleSummary, error) {
	now = now.In(s.cfg.Location)
	summary := CycleSummary{ShiftDate: availability.ShiftDateFor(now, s.cfg.BoundaryHour)}

	ctx, span := cfotel.StartPollSpan(ctx, summary.ShiftDate)
	defer span.End()

	for page := 1; ; page++ {
		agents, err := s.source.ListAgents(ctx, page, s.cfg.PerPage)
		if err != nil {
			summary.FetchErr = fmt.Errorf("fetch page %d: %w", page, err)
			span.RecordError(summary.FetchErr)
			slog.ErrorContext(ctx, "poll aborted", "page", page, "error", err)
			break
		}
		summary.Pages++
		summary.Seen += len(agents)

		for _, a := range agents {
			if !s.cfg.Roster.Has(a.Name) {
				continue
			}
			summary.Tracked++
			s.record(ctx, &summary, availability.Sighting{
				Agent:    a.Name,
				Email:    a.Email,
				State:    availability.StateOf(a.Available),
				At:       now,
				ShiftDay: summary.ShiftDate,
			})
		}

		if len(agents) < s.cfg.PerPage {
			break
		}
	}

	s.metrics.RecordPoll(ctx, summary.Inserted(), summary.FetchErr != nil)
	slog.InfoContext(ctx, "poll cycle complete",
		"shift_date", summary.ShiftDate.Format(time.DateOnly),
		"pages", summary.Pages,
		"tracked", summary.Tracked,
		"bootstrapped", summary.Bootstrapped,
		"transitions", summary.Transitions,
		"failed", summary.Failed,
	)
	return summary, summary.FetchErr
}

func (s *IngestService) record(ctx context.Context, summary *CycleSummary, sighting availability.Sighting) {
	log := slog.With("agent", sighting.Agent)

	seen, err := s.events.HasShiftRecord(ctx, sighting.Agent, sighting.ShiftDay)
	if err != nil {
		log.ErrorContext(ctx, "check shift record", "error", err)
		summary.Failed++
		return
	}

	if !seen {
		if err := s.events.Insert(ctx, availability.Bootstrap(sighting)); err != nil {
			log.ErrorContext(ctx, "insert bootstrap event", "error", err)
			summary.Failed++
			return
		}
		summary.Bootstrapped++
		log.DebugContext(ctx, "shift bootstrapped", "state", sighting.State)
		return
	}

	last, ok, err := s.events.LastKnownState(ctx, sighting.Agent)
	if err != nil {
		log.ErrorContext(ctx, "read last state", "error", err)
		summary.Failed++
		return
	}
	if !ok {
		last = sighting.State
	}

	ev, changed := availability.Transition(sighting, last)
	if !changed {
		return
	}
	if err := s.events.Insert(ctx, ev); err != nil {
		log.ErrorContext(ctx, "insert transition event", "error", err)
		summary.Failed++
		return
	}
	summary.Transitions++
	log.InfoContext(ctx, "state changed", "from", ev.Previous, "to", ev.New)
}
