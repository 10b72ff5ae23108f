package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"sellerhub/internal/caching"
	"sellerhub/internal/entitlement"
	"sellerhub/internal/models"
	"sellerhub/internal/plans"
	"sellerhub/internal/repositories"

	"github.com/google/uuid"
)

const sessionCacheTTL = time.Minute

// SubscriptionService is the checkout-facing surface: it runs the
// eligibility gate, creates provider checkout sessions with the plan and
// owner embedded as opaque metadata, and answers read-only queries about the
// caller's current subscription.
type SubscriptionService interface {
	CreateCheckoutSession(ctx context.Context, ownerID uuid.UUID, planCode string, snapshot *SubscriptionSnapshot) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// GetCurrent returns the caller's linked subscription and whether it is
	// live right now, per the expiration predicate.
	GetCurrent(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, bool, error)
}

type subscriptionService struct {
	eligibility   EligibilityService
	stripe        StripeService
	subscriptions repositories.SubscriptionRepository
	catalog       *plans.Catalog
	cache         caching.CacheService
	successURL    string
	cancelURL     string
	now           func() time.Time
}

func NewSubscriptionService(
	eligibility EligibilityService,
	stripe StripeService,
	subscriptions repositories.SubscriptionRepository,
	catalog *plans.Catalog,
	cache caching.CacheService,
	successURL, cancelURL string,
) SubscriptionService {
	return &subscriptionService{
		eligibility:   eligibility,
		stripe:        stripe,
		subscriptions: subscriptions,
		catalog:       catalog,
		cache:         cache,
		successURL:    successURL,
		cancelURL:     cancelURL,
		now:           time.Now,
	}
}

func (s *subscriptionService) CreateCheckoutSession(ctx context.Context, ownerID uuid.UUID, planCode string, snapshot *SubscriptionSnapshot) (*CheckoutSession, error) {
	if err := s.eligibility.Validate(ctx, ownerID, planCode, snapshot); err != nil {
		return nil, err
	}

	plan, err := s.catalog.Lookup(planCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, planCode)
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, CreateCheckoutSessionRequest{
		OwnerID:    ownerID,
		Plan:       plan.Code,
		PriceRef:   plan.PriceRef,
		SuccessURL: s.successURL,
		CancelURL:  s.cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return session, nil
}

func (s *subscriptionService) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	if s.cache != nil {
		if data, err := s.cache.GetCheckoutSession(ctx, sessionID); err == nil {
			session := &CheckoutSession{}
			if err := json.Unmarshal(data, session); err == nil {
				return session, nil
			}
		} else if !errors.Is(err, caching.ErrCacheMiss) {
			log.Printf("WARN: checkout session cache read failed: %v", err)
		}
	}

	session, err := s.stripe.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(session); err == nil {
			if err := s.cache.CacheCheckoutSession(ctx, sessionID, data, sessionCacheTTL); err != nil {
				log.Printf("WARN: checkout session cache write failed: %v", err)
			}
		}
	}
	return session, nil
}

func (s *subscriptionService) GetCurrent(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, bool, error) {
	sub, err := s.subscriptions.GetByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return sub, entitlement.IsActive(sub, s.now().UTC()), nil
}
