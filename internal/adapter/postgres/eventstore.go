package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/availability"
	"github.com/Strob0t/AgentShift/internal/port/eventstore"
)

// EventStore implements eventstore.Store using PostgreSQL (append-only).
type EventStore struct {
	pool *pgxpool.Pool
}

var _ eventstore.Store = (*EventStore)(nil)

// NewEventStore creates a new EventStore backed by the given connection pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// eventColumns is the SELECT column list for agent_usage queries.
const eventColumns = `name, email, actual_date_time, shift_date, previous_value, new_value`

func scanEvent(row scannable) (availability.Event, error) {
	var (
		ev        availability.Event
		shiftDate pgtype.Date
		prev, nxt int16
	)
	if err := row.Scan(&ev.Agent, &ev.Email, &ev.Timestamp, &shiftDate, &prev, &nxt); err != nil {
		return availability.Event{}, fmt.Errorf("scan event: %w: %w", domain.ErrDataFormat, err)
	}
	var err error
	if ev.Previous, err = stateOf(prev); err != nil {
		return availability.Event{}, fmt.Errorf("event %s previous_value: %w", ev.Agent, err)
	}
	if ev.New, err = stateOf(nxt); err != nil {
		return availability.Event{}, fmt.Errorf("event %s new_value: %w", ev.Agent, err)
	}
	ev.Shift = shiftFromDate(shiftDate)
	return ev, nil
}

// Query returns matching events ordered by insertion id.
func (s *EventStore) Query(ctx context.Context, q eventstore.Query) ([]availability.Event, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q.ShiftDate != nil {
		conds = append(conds, "shift_date = "+arg(pgtype.Date{Time: *q.ShiftDate, Valid: true}))
	} else {
		conds = append(conds, fmt.Sprintf("actual_date_time BETWEEN %s AND %s", arg(q.Start), arg(q.End)))
	}
	if len(q.Agents) > 0 {
		conds = append(conds, "name = ANY("+arg(q.Agents)+")")
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM agent_usage WHERE %s ORDER BY id ASC`, eventColumns, strings.Join(conds, " AND ")),
		args...)
	if err != nil {
		return nil, storeErr(err, "query events")
	}
	defer rows.Close()

	events := make([]availability.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "query events")
	}
	return events, nil
}

// LastKnownState returns the new_value of the agent's latest event.
func (s *EventStore) LastKnownState(ctx context.Context, agent string) (availability.State, bool, error) {
	var v int16
	err := s.pool.QueryRow(ctx,
		`SELECT new_value FROM agent_usage WHERE name = $1 ORDER BY id DESC LIMIT 1`, agent).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storeErr(err, "last state of %s", agent)
	}
	st, err := stateOf(v)
	if err != nil {
		return 0, false, fmt.Errorf("last state of %s: %w", agent, err)
	}
	return st, true, nil
}

// HasShiftRecord reports whether the agent has an event recorded for the shift date.
func (s *EventStore) HasShiftRecord(ctx context.Context, agent string, shiftDate time.Time) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM agent_usage WHERE name = $1 AND shift_date = $2)`,
		agent, pgtype.Date{Time: shiftDate, Valid: true}).Scan(&exists)
	if err != nil {
		return false, storeErr(err, "shift record for %s", agent)
	}
	return exists, nil
}

// Insert appends one event.
func (s *EventStore) Insert(ctx context.Context, ev availability.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO agent_usage (name, email, actual_date_time, shift_date, previous_value, new_value)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.Agent, ev.Email, ev.Timestamp, pgDate(ev.Shift), int16(ev.Previous), int16(ev.New))
	if err != nil {
		return storeErr(err, "insert event for %s", ev.Agent)
	}
	return nil
}

// Purge deletes events observed before olderThan.
func (s *EventStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM agent_usage WHERE actual_date_time < $1`, olderThan)
	if err != nil {
		return 0, storeErr(err, "purge events before %s", olderThan.Format(time.DateOnly))
	}
	return tag.RowsAffected(), nil
}
