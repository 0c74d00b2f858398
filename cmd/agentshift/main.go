package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	cfhttp "github.com/Strob0t/AgentShift/internal/adapter/http"
	cfotel "github.com/Strob0t/AgentShift/internal/adapter/otel"
	"github.com/Strob0t/AgentShift/internal/config"
	"github.com/Strob0t/AgentShift/internal/logger"
	"github.com/Strob0t/AgentShift/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		printHelp()
		return nil
	}

	handler, ok := commands[cmd]
	if !ok {
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	defer closer.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"command", cmd,
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"timezone", cfg.Location().String(),
	)

	ctx := context.Background()

	shutdownOtel, err := cfotel.Init(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(flushCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	return handler(ctx, cfg, args)
}

type commandFunc func(ctx context.Context, cfg *config.Config, args []string) error

var commands = map[string]commandFunc{
	"serve":         runServe,
	"poll":          runPoll,
	"purge":         runPurge,
	"digest":        runDigest,
	"import-legacy": runImportLegacy,
	"migrate":       runMigrate,
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: agentshift [command] [options]

Commands:
  serve                      Run the HTTP API and the job scheduler (default)
  poll                       Run a single availability poll cycle
  purge                      Delete events older than the retention window
  digest daily|weekly        Send the email digests for one recurrence
  import-legacy <path>       Import events and subscriptions from a legacy SQLite file
  migrate [up|down|version]  Manage the database schema
  help                       Show this help message

Examples:
  agentshift
  agentshift digest weekly
  agentshift import-legacy RobotTracker.db
  agentshift migrate down --steps 2
`)
}

func runServe(ctx context.Context, cfg *config.Config, _ []string) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	resultCache, closeCache, err := newCache(ctx, cfg.Cache, cfg.NATS)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer closeCache()

	// --- Services ---
	reports := a.reportService(resultCache)
	subs := service.NewSubscriptionService(a.store, cfg.Teams, cfg.ValidDomains)

	scheduler, err := a.scheduler()
	if err != nil {
		return err
	}

	// --- HTTP ---
	handlers := &cfhttp.Handlers{
		Reports:       reports,
		Subscriptions: subs,
		Roster:        cfg.Teams,
		ValidDomains:  cfg.ValidDomains,
		Location:      cfg.Location(),
	}

	r := cfhttp.NewRouter(handlers, cfhttp.RouterConfig{
		CORSOrigin:    cfg.Server.CORSOrigin,
		ServiceName:   cfg.Telemetry.ServiceName,
		SecureCookies: strings.HasPrefix(cfg.SMTP.PortalURL, "https://"),
		Timeout:       60 * time.Second,
	})

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	if scheduler != nil {
		scheduler.Start(jobCtx)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go a.reloadSecrets(jobCtx, hup)

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-done:
	case runErr = <-serveErr:
		slog.Error("server failed", "error", runErr)
	}
	slog.Info("shutting down server")

	cancelJobs()
	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return errors.Join(runErr, srv.Shutdown(shutdownCtx))
}
