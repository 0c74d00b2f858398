package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/Strob0t/AgentShift/internal/adapter/postgres"
	"github.com/Strob0t/AgentShift/internal/adapter/sqlite"
	"github.com/Strob0t/AgentShift/internal/config"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/service"
)

func runPoll(ctx context.Context, cfg *config.Config, _ []string) error {
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.ingestService().Poll(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("poll: %d agents failed to record", summary.Failed)
	}
	return nil
}

func runPurge(ctx context.Context, cfg *config.Config, _ []string) error {
	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.retentionService().Purge(ctx, time.Now())
	return err
}

func runDigest(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: agentshift digest daily|weekly")
	}
	r, err := subscription.ParseRecurrence(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	summary, err := a.digestService().Send(ctx, r, time.Now())
	if err != nil {
		return fmt.Errorf("digest %s: %w", r, err)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("digest %s: %d of %d deliveries failed",
			r, summary.Failed, summary.Sent+summary.Skipped+summary.Failed)
	}
	return nil
}

func runImportLegacy(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: agentshift import-legacy <path>")
	}

	legacy, err := sqlite.Open(ctx, args[0])
	if err != nil {
		return err
	}
	defer func() { _ = legacy.Close() }()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = service.NewImportService(a.events, a.store, cfg.Location()).Import(ctx, legacy)
	return err
}

func runMigrate(ctx context.Context, cfg *config.Config, args []string) error {
	action := "up"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("migrate "+action, flag.ContinueOnError)
	steps := fs.Int("steps", 1, "number of migrations to roll back")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dsn := cfg.Postgres.DSN
	switch action {
	case "up":
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			return err
		}
	case "down":
		if *steps < 1 {
			return errors.New("--steps must be >= 1")
		}
		if err := postgres.RollbackMigrations(ctx, dsn, *steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	slog.Info("schema version", "action", action, "version", v)
	fmt.Println(v)
	return nil
}
