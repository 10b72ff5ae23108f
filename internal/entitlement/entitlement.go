package entitlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sellerhub/internal/models"
	"sellerhub/internal/repositories"

	"github.com/google/uuid"
)

// IsActive is the single source of truth for "is this subscription live".
// The stored status label can go stale relative to EndDate (there is no
// background sweep), so consumers must call this predicate instead of
// branching on Status. The period is half-open: a subscription is no longer
// active at the exact EndDate instant.
func IsActive(sub *models.Subscription, now time.Time) bool {
	if sub == nil {
		return false
	}
	return now.Before(sub.EndDate)
}

// Service answers entitlement questions for collaborators that gate seller
// actions, e.g. whether a supplier may currently publish product listings.
type Service struct {
	subscriptions repositories.SubscriptionRepository
	now           func() time.Time
}

func NewService(subscriptions repositories.SubscriptionRepository) *Service {
	return &Service{
		subscriptions: subscriptions,
		now:           time.Now,
	}
}

// CanList reports whether the user currently holds a live subscription.
// A user with no linked subscription is simply not entitled; store failures
// are propagated so callers fail closed.
func (s *Service) CanList(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	sub, err := s.subscriptions.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("entitlement lookup for user %s: %w", ownerID, err)
	}
	return IsActive(sub, s.now().UTC()), nil
}
