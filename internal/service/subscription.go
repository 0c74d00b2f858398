package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Strob0t/AgentShift/internal/domain"
	"github.com/Strob0t/AgentShift/internal/domain/roster"
	"github.com/Strob0t/AgentShift/internal/domain/subscription"
	"github.com/Strob0t/AgentShift/internal/port/database"
)

// SubscriptionService handles digest opt-ins.
type SubscriptionService struct {
	store        database.SubscriptionStore
	roster       roster.Roster
	validDomains []string
}

// NewSubscriptionService creates a SubscriptionService. Agents must belong
// to r unless r is empty.
func NewSubscriptionService(store database.SubscriptionStore, r roster.Roster, validDomains []string) *SubscriptionService {
	return &SubscriptionService{store: store, roster: r, validDomains: validDomains}
}

// OptIn validates and stores s. An identical existing subscription yields
// domain.ErrConflict.
func (s *SubscriptionService) OptIn(ctx context.Context, sub subscription.Subscription) (*subscription.Subscription, error) {
	if err := sub.Validate(s.validDomains); err != nil {
		return nil, err
	}
	if len(s.roster) > 0 {
		for _, a := range sub.Agents {
			if !s.roster.Has(a) {
				return nil, fmt.Errorf("unknown agent %q: %w", a, domain.ErrValidation)
			}
		}
	}

	created, err := s.store.CreateSubscription(ctx, sub)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			slog.InfoContext(ctx, "subscription already exists", "to", sub.ToEmail)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "subscription created", "id", created.ID, "to", created.ToEmail, "agents", len(created.Agents))
	return created, nil
}
