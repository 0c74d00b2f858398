// Package database defines the port interface for relational records other
// than the event log.
package database

import (
	"context"

	"github.com/Strob0t/AgentShift/internal/domain/subscription"
)

// SubscriptionStore persists email digest opt-ins.
type SubscriptionStore interface {
	// CreateSubscription inserts s and returns it with ID and CreatedAt set.
	// An identical (to_email, agents, daily, weekly) tuple yields domain.ErrConflict.
	CreateSubscription(ctx context.Context, s subscription.Subscription) (*subscription.Subscription, error)

	// ListSubscriptions returns subscribers of the given recurrence in creation order.
	ListSubscriptions(ctx context.Context, r subscription.Recurrence) ([]subscription.Subscription, error)
}
