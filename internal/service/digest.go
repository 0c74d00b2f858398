package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/AgentShift/internal/adapter/otel"
	"github.com/Strob0t/AgentShift/internal/domain/shift"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/port/chart"
	"github.com/Strob0t/AgentShift/internal/port/database"
	"github.com/Strob0t/AgentShift/internal/port/eventstore"
	"github.com/Strob0t/AgentShift/internal/port/mailer"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var digestTemplate = template.Must(template.ParseFS(templateFS, "templates/digest.html.tmpl"))

// errNoData marks a subscriber whose agents have no events in the window.
var errNoData = errors.New("no data in window")

// DefaultDigestParallel bounds concurrent subscriber deliveries.
const DefaultDigestParallel = 4

// DigestSummary reports the outcome of one digest run.
type DigestSummary struct {
	Window  subscription.Window
	Sent    int
	Skipped int
	Failed  int
}

// DigestConfig holds the static settings of a DigestService.
type DigestConfig struct {
	ArtifactsDir string
	Shift        shift.Options
	Cc           []string
	PortalURL    string
	MaxParallel  int
}

// DigestService mails scheduled reports to subscribers.
type DigestService struct {
	subs    database.SubscriptionStore
	mail    mailer.Mailer
	builder reportBuilder
	cfg     DigestConfig
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewDigestService creates a DigestService.
func NewDigestService(
	subs database.SubscriptionStore,
	events eventstore.Store,
	charts chart.Renderer,
	mail mailer.Mailer,
	cfg DigestConfig,
	metrics *cfotel.Metrics,
) *DigestService {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultDigestParallel
	}
	s := &DigestService{subs: subs, mail: mail, cfg: cfg, metrics: metrics, now: time.Now}
	s.builder = reportBuilder{
		events:  events,
		charts:  charts,
		opts:    cfg.Shift,
		metrics: metrics,
		now:     func() time.Time { return s.now() },
	}
	return s
}

// Send delivers the r digest due on now to every subscriber of r. One
// subscriber's failure is logged and does not stop the others; only a
// failure to list subscribers is returned.
func (s *DigestService) Send(ctx context.Context, r subscription.Recurrence, now time.Time) (DigestSummary, error) {
	if loc := s.cfg.Shift.Location; loc != nil {
		now = now.In(loc)
	}
	window := subscription.WindowFor(r, now, s.cfg.Shift.BoundaryHour)
	summary := DigestSummary{Window: window}

	subs, err := s.subs.ListSubscriptions(ctx, r)
	if err != nil {
		return summary, fmt.Errorf("list %s subscriptions: %w", r, err)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxParallel)
	for _, sub := range subs {
		g.Go(func() error {
			err := s.deliver(ctx, sub, window)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				summary.Sent++
			case errors.Is(err, errNoData):
				summary.Skipped++
			default:
				summary.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.InfoContext(ctx, "digest run complete",
		"recurrence", r,
		"window", window.Label(),
		"subscribers", len(subs),
		"sent", summary.Sent,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (s *DigestService) deliver(ctx context.Context, sub subscription.Subscription, w subscription.Window) error {
	ctx, span := cfotel.StartDigestSpan(ctx, string(w.Recurrence), sub.ID)
	defer span.End()
	log := slog.With("subscription_id", sub.ID, "to", sub.ToEmail)

	dir := filepath.Join(s.cfg.ArtifactsDir, "digests", string(w.Recurrence),
		strconv.FormatInt(sub.ID, 10)+"-"+s.now().Format("20060102150405"))
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.WarnContext(ctx, "remove digest artifacts", "error", err)
		}
	}()

	q := eventstore.Query{Agents: sub.Agents}
	if w.ShiftDate != nil {
		q.ShiftDate = w.ShiftDate
	} else {
		q.Start, q.End = w.Start, w.End
	}

	built, err := s.builder.build(ctx, q, dir, granularityFor(w.Recurrence))
	if err != nil {
		span.RecordError(err)
		log.ErrorContext(ctx, "build digest", "error", err)
		s.metrics.RecordDigest(ctx, string(w.Recurrence), err)
		return err
	}
	if len(built.Result.Rows) == 0 {
		log.InfoContext(ctx, "digest skipped, no data")
		return errNoData
	}

	msg, err := s.compose(sub, w, built)
	if err == nil {
		err = s.mail.Send(ctx, msg)
	}
	s.metrics.RecordDigest(ctx, string(w.Recurrence), err)
	if err != nil {
		span.RecordError(err)
		log.ErrorContext(ctx, "send digest", "error", err)
		return err
	}
	log.InfoContext(ctx, "digest sent", "charts", len(built.Charts))
	return nil
}

// granularityFor groups a digest by its recurrence: a weekly digest is one
// Monday to Friday chart regardless of how many days have data.
func granularityFor(r subscription.Recurrence) shift.Granularity {
	if r == subscription.Weekly {
		return shift.Weekly
	}
	return shift.Daily
}

type digestChart struct {
	Heading   string
	ContentID string
}

type digestData struct {
	Greeting   string
	Recurrence subscription.Recurrence
	Charts     []digestChart
	PortalURL  string
}

// Subject is the subject line of a digest for w.
func Subject(w subscription.Window) string {
	return fmt.Sprintf("AgentShift %s Report: %s", w.Recurrence.Title(), w.Label())
}

func (s *DigestService) compose(sub subscription.Subscription, w subscription.Window, built *builtReport) (mailer.Message, error) {
	data := digestData{
		Greeting:   sub.Greeting(),
		Recurrence: w.Recurrence,
		PortalURL:  s.cfg.PortalURL,
	}
	msg := mailer.Message{
		To:      []string{sub.ToEmail},
		Cc:      s.cfg.Cc,
		Subject: Subject(w),
	}

	for i, path := range built.Charts {
		img, err := os.ReadFile(path) //nolint:gosec // path produced by the chart renderer
		if err != nil {
			return mailer.Message{}, fmt.Errorf("read chart: %w", err)
		}
		p := built.Periods[i]
		cid := p.Slug()
		data.Charts = append(data.Charts, digestChart{Heading: p.Title(), ContentID: cid})
		msg.Inline = append(msg.Inline, mailer.Part{
			Filename:    chart.FileName(p),
			ContentType: "image/png",
			Data:        img,
			ContentID:   cid,
		})
	}

	csvData, err := os.ReadFile(built.CSVPath)
	if err != nil {
		return mailer.Message{}, fmt.Errorf("read csv: %w", err)
	}
	msg.Attachments = []mailer.Part{{
		Filename:    filepath.Base(built.CSVPath),
		ContentType: "text/csv",
		Data:        csvData,
	}}

	var body bytes.Buffer
	if err := digestTemplate.Execute(&body, data); err != nil {
		return mailer.Message{}, fmt.Errorf("render digest body: %w", err)
	}
	msg.HTML = body.String()
	return msg, nil
}
