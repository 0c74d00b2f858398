package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/port/database"
)

// Store implements database.SubscriptionStore using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ database.SubscriptionStore = (*Store)(nil)

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateSubscription inserts s unless an identical tuple exists.
func (s *Store) CreateSubscription(ctx context.Context, sub subscription.Subscription) (*subscription.Subscription, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO email_subscriptions (to_email, agents, daily, weekly)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT ON CONSTRAINT email_subscriptions_tuple DO NOTHING
		 RETURNING id, created_at`,
		sub.ToEmail, sub.AgentList(), sub.Daily, sub.Weekly).Scan(&sub.ID, &sub.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subscription for %s: %w", sub.ToEmail, domain.ErrConflict)
	}
	if err != nil {
		return nil, storeErr(err, "create subscription for %s", sub.ToEmail)
	}
	return &sub, nil
}

// ListSubscriptions returns subscribers of the recurrence ordered by id.
func (s *Store) ListSubscriptions(ctx context.Context, r subscription.Recurrence) ([]subscription.Subscription, error) {
	column := "daily"
	if r == subscription.Weekly {
		column = "weekly"
	}
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id, to_email, agents, daily, weekly, created_at
		 FROM email_subscriptions WHERE %s ORDER BY id ASC`, column))
	if err != nil {
		return nil, storeErr(err, "list %s subscriptions", r)
	}
	defer rows.Close()

	var subs []subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "list %s subscriptions", r)
	}
	return subs, nil
}

func scanSubscription(row scannable) (subscription.Subscription, error) {
	var (
		sub    subscription.Subscription
		agents string
	)
	if err := row.Scan(&sub.ID, &sub.ToEmail, &agents, &sub.Daily, &sub.Weekly, &sub.CreatedAt); err != nil {
		return subscription.Subscription{}, fmt.Errorf("scan subscription: %w: %w", domain.ErrDataFormat, err)
	}
	sub.Agents = subscription.ParseAgents(agents)
	return sub, nil
}
