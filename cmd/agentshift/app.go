package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/AgentShift/internal/adapter/email"
	"github.com/Strob0t/AgentShift/internal/adapter/freshdesk"
	"github.com/Strob0t/AgentShift/internal/adapter/natskv"
	cfotel "github.com/Strob0t/AgentShift/internal/adapter/otel"
	"github.com/Strob0t/AgentShift/internal/adapter/plot"
	"github.com/Strob0t/AgentShift/internal/adapter/postgres"
	"github.com/Strob0t/AgentShift/internal/adapter/ristretto"
	"github.com/Strob0t/AgentShift/internal/adapter/tiered"
	"github.com/Strob0t/AgentShift/internal/config"
	"github.com/Strob0t/AgentShift/internal/domain/schedule"
	"github.com/Strob0t/AgentShift/internal/domain/shift"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/port/cache"
	"github.com/Strob0t/AgentShift/internal/resilience"
	"github.com/Strob0t/AgentShift/internal/secrets"
	"github.com/Strob0t/AgentShift/internal/service"
)

// app holds the infrastructure shared by every command.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	events  *postgres.EventStore
	store   *postgres.Store
	metrics *cfotel.Metrics
	vault   *secrets.Vault
}

func newApp(ctx context.Context, cfg *config.Config, migrate bool) (*app, error) {
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	vault, err := secrets.NewVault(secrets.DotEnvLoader(config.DotEnvFile, map[string]string{
		secrets.FreshdeskAPIKey: cfg.Freshdesk.APIKey,
		secrets.SMTPPassword:    cfg.SMTP.Password,
	}, secrets.FreshdeskAPIKey, secrets.SMTPPassword))
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	slog.Info("postgres connected")

	if migrate {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	return &app{
		cfg:     cfg,
		pool:    pool,
		events:  postgres.NewEventStore(pool),
		store:   postgres.NewStore(pool),
		metrics: metrics,
		vault:   vault,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

func (a *app) shiftOptions() shift.Options {
	return shift.Options{
		BoundaryHour: a.cfg.Shift.BoundaryHour,
		MaxCredit:    a.cfg.Shift.MaxCredit,
		Location:     a.cfg.Location(),
	}
}

func (a *app) ingestService() *service.IngestService {
	fd := a.cfg.Freshdesk
	client := freshdesk.NewClient(fd.BaseURL, fd.APIKey, fd.ConnectTimeout, fd.Timeout)

	breaker := resilience.NewBreaker(a.cfg.Breaker.MaxFailures, a.cfg.Breaker.Timeout)
	breaker.OnStateChange(func(from, to resilience.State) {
		slog.Warn("freshdesk circuit breaker", "from", from, "to", to)
	})
	client.SetBreaker(breaker)
	client.SetKeySource(a.vault.Source(secrets.FreshdeskAPIKey))

	return service.NewIngestService(client, a.events, service.IngestConfig{
		Roster:       a.cfg.Teams,
		BoundaryHour: a.cfg.Shift.BoundaryHour,
		PerPage:      fd.PerPage,
		Location:     a.cfg.Location(),
	}, a.metrics)
}

func (a *app) reportService(c cache.Cache) *service.ReportService {
	return service.NewReportService(a.events, plot.NewRenderer(), c, service.ReportServiceConfig{
		ArtifactsDir:  a.cfg.Artifacts.Dir,
		TTL:           a.cfg.Cache.TTL,
		Shift:         a.shiftOptions(),
		MaxConcurrent: a.cfg.Artifacts.MaxConcurrentReports,
	}, a.metrics)
}

func (a *app) digestService() *service.DigestService {
	smtp := a.cfg.SMTP
	mail := email.NewMailer(email.SMTPConfig{
		Host:     smtp.Host,
		Port:     smtp.Port,
		From:     smtp.From,
		Username: smtp.Username,
		Password: smtp.Password,
	})
	mail.SetPasswordSource(a.vault.Source(secrets.SMTPPassword))
	return service.NewDigestService(a.store, a.events, plot.NewRenderer(), mail, service.DigestConfig{
		ArtifactsDir: a.cfg.Artifacts.Dir,
		Shift:        a.shiftOptions(),
		Cc:           smtp.Cc,
		PortalURL:    smtp.PortalURL,
		MaxParallel:  a.cfg.Digest.MaxParallel,
	}, a.metrics)
}

func (a *app) retentionService() *service.RetentionService {
	return service.NewRetentionService(a.events, a.cfg.Retention.Years)
}

// reloadSecrets re-reads rotated credentials on every SIGHUP until ctx ends.
func (a *app) reloadSecrets(ctx context.Context, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			changed, err := a.vault.Reload()
			if err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "changed", changed)
		}
	}
}

// scheduler registers the background jobs. It returns nil when scheduling
// is disabled.
func (a *app) scheduler() (*service.Scheduler, error) {
	sc := a.cfg.Schedule
	if !sc.Enabled {
		slog.Info("scheduler disabled")
		return nil, nil
	}

	ingest := a.ingestService()
	retention := a.retentionService()
	digests := a.digestService()

	jobs := []struct {
		name string
		expr string
		run  service.JobFunc
	}{
		{"poll", sc.Poll, func(ctx context.Context, now time.Time) error {
			_, err := ingest.Poll(ctx, now)
			return err
		}},
		{"purge", sc.Purge, func(ctx context.Context, now time.Time) error {
			_, err := retention.Purge(ctx, now)
			return err
		}},
		{"daily_digest", sc.DailyDigest, func(ctx context.Context, now time.Time) error {
			_, err := digests.Send(ctx, subscription.Daily, now)
			return err
		}},
		{"weekly_digest", sc.WeeklyDigest, func(ctx context.Context, now time.Time) error {
			_, err := digests.Send(ctx, subscription.Weekly, now)
			return err
		}},
	}

	s := service.NewScheduler(a.cfg.Location(), service.DefaultSchedulerTick)
	for _, j := range jobs {
		if j.expr == "" {
			continue
		}
		sched, err := schedule.ParseCronExpr(j.expr)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
		s.Add(j.name, sched, j.run)
	}
	return s, nil
}

// newCache builds the report session cache: ristretto in process, backed by
// a NATS KV bucket when a NATS URL is configured.
func newCache(ctx context.Context, cc config.Cache, nc config.NATS) (cache.Cache, func(), error) {
	l1, err := ristretto.New(cc.L1MaxSizeMB << 20)
	if err != nil {
		return nil, nil, fmt.Errorf("ristretto: %w", err)
	}
	if nc.URL == "" {
		return l1, l1.Close, nil
	}

	l2, err := natskv.Dial(ctx, nc.URL, cc.L2Bucket, cc.TTL)
	if err != nil {
		l1.Close()
		return nil, nil, err
	}
	closeAll := func() {
		l1.Close()
		if err := l2.Close(); err != nil {
			slog.Error("nats kv close", "error", err)
		}
	}
	return tiered.New(l1, l2, cc.TTL), closeAll, nil
}
