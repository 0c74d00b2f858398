package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Strob0t/AgentShift/internal/domain/schedule"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agentshift.yaml"

// DotEnvFile is the dotenv file merged into the environment on load.
const DotEnvFile = ".env"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional. A .env file
// in the working directory, if present, is merged into the environment
// without overriding variables that are already set.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}
	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "AGENTSHIFT_PORT")
	setString(&cfg.Server.CORSOrigin, "AGENTSHIFT_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "AGENTSHIFT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "AGENTSHIFT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "AGENTSHIFT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "AGENTSHIFT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "AGENTSHIFT_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setInt64(&cfg.Cache.L1MaxSizeMB, "AGENTSHIFT_CACHE_L1_MAX_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "AGENTSHIFT_CACHE_TTL")
	setString(&cfg.Cache.L2Bucket, "AGENTSHIFT_CACHE_L2_BUCKET")
	setString(&cfg.Logging.Level, "AGENTSHIFT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGENTSHIFT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "AGENTSHIFT_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "AGENTSHIFT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "AGENTSHIFT_BREAKER_TIMEOUT")
	setString(&cfg.Freshdesk.BaseURL, "AGENTSHIFT_FRESHDESK_URL")
	setString(&cfg.Freshdesk.APIKey, "FRESHDESK_API_KEY")
	setInt(&cfg.Freshdesk.PerPage, "AGENTSHIFT_FRESHDESK_PER_PAGE")
	setString(&cfg.SMTP.Host, "AGENTSHIFT_SMTP_HOST")
	setInt(&cfg.SMTP.Port, "AGENTSHIFT_SMTP_PORT")
	setString(&cfg.SMTP.From, "AGENTSHIFT_SMTP_FROM")
	setString(&cfg.SMTP.Username, "AGENTSHIFT_SMTP_USERNAME")
	setString(&cfg.SMTP.Password, "AGENTSHIFT_SMTP_PASSWORD")
	setList(&cfg.SMTP.Cc, "AGENTSHIFT_SMTP_CC")
	setString(&cfg.SMTP.PortalURL, "AGENTSHIFT_PORTAL_URL")
	setInt(&cfg.Shift.BoundaryHour, "AGENTSHIFT_SHIFT_BOUNDARY_HOUR")
	setString(&cfg.Shift.Timezone, "AGENTSHIFT_TIMEZONE")
	setDuration(&cfg.Shift.MaxCredit, "AGENTSHIFT_SHIFT_MAX_CREDIT")
	setInt(&cfg.Retention.Years, "AGENTSHIFT_RETENTION_YEARS")
	setBool(&cfg.Schedule.Enabled, "AGENTSHIFT_SCHEDULE_ENABLED")
	setString(&cfg.Schedule.Poll, "AGENTSHIFT_SCHEDULE_POLL")
	setString(&cfg.Schedule.Purge, "AGENTSHIFT_SCHEDULE_PURGE")
	setString(&cfg.Schedule.DailyDigest, "AGENTSHIFT_SCHEDULE_DAILY_DIGEST")
	setString(&cfg.Schedule.WeeklyDigest, "AGENTSHIFT_SCHEDULE_WEEKLY_DIGEST")
	setString(&cfg.Artifacts.Dir, "AGENTSHIFT_ARTIFACTS_DIR")
	setInt(&cfg.Artifacts.MaxConcurrentReports, "AGENTSHIFT_MAX_CONCURRENT_REPORTS")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Telemetry.ServiceName, "OTEL_SERVICE_NAME")
	setInt(&cfg.Digest.MaxParallel, "AGENTSHIFT_DIGEST_MAX_PARALLEL")
	setList(&cfg.ValidDomains, "AGENTSHIFT_VALID_DOMAINS")
}

// validate checks that required fields are present and values are sane.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if cfg.Freshdesk.PerPage < 1 || cfg.Freshdesk.PerPage > 100 {
		return errors.New("freshdesk.per_page must be between 1 and 100")
	}
	if cfg.Shift.BoundaryHour < 0 || cfg.Shift.BoundaryHour > 23 {
		return errors.New("shift.boundary_hour must be between 0 and 23")
	}
	if cfg.Shift.MaxCredit <= 0 {
		return errors.New("shift.max_credit must be positive")
	}
	if cfg.Shift.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Shift.Timezone); err != nil {
			return fmt.Errorf("shift.timezone: %w", err)
		}
	}
	if cfg.Retention.Years < 1 {
		return errors.New("retention.years must be >= 1")
	}
	if cfg.Artifacts.MaxConcurrentReports < 1 {
		return errors.New("artifacts.max_concurrent_reports must be >= 1")
	}
	if cfg.Digest.MaxParallel < 1 {
		return errors.New("digest.max_parallel must be >= 1")
	}
	for name, expr := range map[string]string{
		"schedule.poll":          cfg.Schedule.Poll,
		"schedule.purge":         cfg.Schedule.Purge,
		"schedule.daily_digest":  cfg.Schedule.DailyDigest,
		"schedule.weekly_digest": cfg.Schedule.WeeklyDigest,
	} {
		if expr == "" {
			continue
		}
		if err := schedule.ValidateCronExpr(expr); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if err := cfg.Teams.Validate(); err != nil {
		return fmt.Errorf("teams: %w", err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// setList splits a comma-separated value.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}
