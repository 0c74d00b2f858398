package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/availability"
)

// scannable abstracts pgx.Row and pgx.Rows for shared scan helpers.
type scannable interface {
	Scan(dest ...any) error
}

// storeErr wraps err with msg. Errors reported by the server itself and
// caller cancellation are passed through; anything else means the
// database could not be reached and also wraps domain.ErrStoreUnavailable.
func storeErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, domain.ErrStoreUnavailable, err)
}

// pgDate converts a shift date to a nullable date column value.
func pgDate(s availability.ShiftDate) pgtype.Date {
	if !s.Recorded() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: s.Date(), Valid: true}
}

// shiftFromDate is the inverse of pgDate.
func shiftFromDate(d pgtype.Date) availability.ShiftDate {
	if !d.Valid {
		return availability.DerivedShift()
	}
	y, m, day := d.Time.Date()
	return availability.RecordedShift(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
}

// stateOf validates a smallint state column.
func stateOf(v int16) (availability.State, error) {
	s := availability.State(v)
	if !s.Valid() {
		return 0, fmt.Errorf("state %d: %w", v, domain.ErrDataFormat)
	}
	return s, nil
}
