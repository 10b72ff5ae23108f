package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sellerhub/internal/entitlement"
	"sellerhub/internal/plans"
	"sellerhub/internal/repositories"

	"github.com/google/uuid"
)

// SubscriptionSnapshot is what the client believes its current subscription
// looks like. It is sent for staleness detection only; the store remains the
// authority.
type SubscriptionSnapshot struct {
	Status  string    `json:"status"`
	EndDate time.Time `json:"end_date"`
}

// EligibilityService gates checkout-session creation. Every check is
// fail-closed: the first rejection is terminal and no later check can
// authorize the request.
type EligibilityService interface {
	Validate(ctx context.Context, ownerID uuid.UUID, planCode string, snapshot *SubscriptionSnapshot) error
}

type eligibilityService struct {
	subscriptions repositories.SubscriptionRepository
	catalog       *plans.Catalog
	now           func() time.Time
}

func NewEligibilityService(subscriptions repositories.SubscriptionRepository, catalog *plans.Catalog) EligibilityService {
	return &eligibilityService{
		subscriptions: subscriptions,
		catalog:       catalog,
		now:           time.Now,
	}
}

// Validate runs the eligibility pipeline in order: authoritative lookup,
// snapshot tamper check, overlapping-subscription check, trial-eligibility
// check. Passing means a checkout session may be created for the plan.
func (s *eligibilityService) Validate(ctx context.Context, ownerID uuid.UUID, planCode string, snapshot *SubscriptionSnapshot) error {
	if _, err := s.catalog.Lookup(planCode); err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, planCode)
	}

	current, err := s.subscriptions.GetByOwner(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
		current = nil
	}

	// The client echoes back the subscription state it acted on. Any
	// disagreement with the authoritative record means the client is stale
	// or the request was tampered with.
	if current != nil {
		if snapshot == nil ||
			snapshot.Status != current.Status ||
			!snapshot.EndDate.Equal(current.EndDate) {
			return ErrStateMismatch
		}
	} else if snapshot != nil {
		return ErrStateMismatch
	}

	if entitlement.IsActive(current, s.now().UTC()) {
		return ErrAlreadyEntitled
	}

	// A non-null link, active or not, means the user has held a
	// subscription before and is out of the trial plan's audience.
	if s.catalog.IsTrial(planCode) && current != nil {
		return ErrPlanIneligible
	}

	return nil
}
