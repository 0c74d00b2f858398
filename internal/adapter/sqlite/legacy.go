// Package sqlite reads the legacy single-file tracker database so its
// history can be imported into the event store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/Strob0t/AgentShift/internal/domain/availability"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
)

// LegacyDB is a read-only handle on a legacy tracker database.
type LegacyDB struct {
	db *sql.DB
}

// Open opens path read-only.
func Open(ctx context.Context, path string) (*LegacyDB, error) {
	dsn := "file:" + path + "?" + url.Values{
		"mode":    {"ro"},
		"_pragma": {"busy_timeout(5000)"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open legacy db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping legacy db %s: %w", path, err)
	}
	return &LegacyDB{db: db}, nil
}

// Close releases the database handle.
func (l *LegacyDB) Close() error {
	return l.db.Close()
}

// Records returns every AgentUsage row in insertion order as untyped text.
func (l *LegacyDB) Records(ctx context.Context) ([]availability.Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT NAME, EMAIL, CAST(ACTUAL_DATE_TIME AS TEXT), CAST(SHIFT_DATE AS TEXT),
		       CAST(PREVIOUS_VALUE AS TEXT), CAST(NEW_VALUE AS TEXT)
		FROM AgentUsage ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query AgentUsage: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []availability.Record
	for rows.Next() {
		var name, email, ts, shiftDate, prev, next sql.NullString
		if err := rows.Scan(&name, &email, &ts, &shiftDate, &prev, &next); err != nil {
			return nil, fmt.Errorf("scan AgentUsage row %d: %w", len(out)+1, err)
		}
		out = append(out, availability.Record{
			Name:      name.String,
			Email:     email.String,
			Timestamp: ts.String,
			ShiftDate: shiftDate.String,
			Previous:  prev.String,
			New:       next.String,
		})
	}
	return out, rows.Err()
}

// Subscriptions returns the rows of the Email table, or nothing when the
// database predates it.
func (l *LegacyDB) Subscriptions(ctx context.Context) ([]subscription.Subscription, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'Email'`).Scan(&n)
	if err != nil {
		return nil, fmt.Errorf("inspect legacy schema: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT TO_EMAIL, AGENTS, COALESCE(DAILY, 0), COALESCE(WEEKLY, 0) FROM Email ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query Email: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []subscription.Subscription
	for rows.Next() {
		var to, agents sql.NullString
		var daily, weekly int
		if err := rows.Scan(&to, &agents, &daily, &weekly); err != nil {
			return nil, fmt.Errorf("scan Email row %d: %w", len(out)+1, err)
		}
		out = append(out, subscription.Subscription{
			ToEmail: to.String,
			Agents:  subscription.ParseAgents(agents.String),
			Daily:   daily != 0,
			Weekly:  weekly != 0,
		})
	}
	return out, rows.Err()
}
