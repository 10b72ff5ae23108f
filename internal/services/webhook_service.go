package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"sellerhub/internal/caching"
	"sellerhub/internal/models"
	"sellerhub/internal/plans"
	"sellerhub/internal/repositories"

	"github.com/google/uuid"
)

// Event type that materializes a subscription. All other event types are
// acknowledged and dropped.
const eventCheckoutCompleted = "checkout.session.completed"

// WebhookEvent is the provider's envelope. Only the fields the engine needs
// are decoded; Data.Object stays raw until the type filter passes.
type WebhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type checkoutSessionObject struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

// Receipt reports what processing did with an event, so the handler can
// answer the provider precisely.
type Receipt struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	Skipped        bool      `json:"skipped"`
	Duplicate      bool      `json:"duplicate"`
	SubscriptionID uuid.UUID `json:"subscription_id,omitempty"`
}

// WebhookService consumes the payment provider's asynchronous completion
// events: verify authenticity, filter by type, extract metadata, and
// idempotently materialize the subscription plus the owner link.
type WebhookService interface {
	Process(ctx context.Context, payload []byte, signature string) (*Receipt, error)
}

type webhookService struct {
	stripe        StripeService
	subscriptions repositories.SubscriptionRepository
	catalog       *plans.Catalog
	archive       ArchiveService        // optional audit copy of verified payloads
	cache         caching.CacheService  // optional processed-session fast path
	now           func() time.Time
}

func NewWebhookService(
	stripe StripeService,
	subscriptions repositories.SubscriptionRepository,
	catalog *plans.Catalog,
	archive ArchiveService,
	cache caching.CacheService,
) WebhookService {
	return &webhookService{
		stripe:        stripe,
		subscriptions: subscriptions,
		catalog:       catalog,
		archive:       archive,
		cache:         cache,
		now:           time.Now,
	}
}

const processedSessionTTL = 24 * time.Hour

func processedSessionKey(sessionID string) string {
	return "sellerhub:processed-session:" + sessionID
}

func (s *webhookService) Process(ctx context.Context, payload []byte, signature string) (*Receipt, error) {
	// Authenticity first, over the raw bytes, before any parsing.
	if err := s.stripe.VerifySignature(payload, signature); err != nil {
		return nil, err
	}

	event := &WebhookEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if s.archive != nil {
		// Best effort: an archive outage must never fail the webhook.
		if err := s.archive.StoreEvent(ctx, event.ID, payload); err != nil {
			log.Printf("WARN: failed to archive webhook event %s: %v", event.ID, err)
		}
	}

	if event.Type != eventCheckoutCompleted {
		return &Receipt{EventID: event.ID, EventType: event.Type, Skipped: true}, nil
	}

	session := &checkoutSessionObject{}
	if err := json.Unmarshal(event.Data.Object, session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	}

	// Fast path for redeliveries of a session we already materialized. The
	// unique index remains the authority; a cache outage just means the
	// duplicate is detected at the store instead.
	if s.cache != nil {
		if _, err := s.cache.GetString(ctx, processedSessionKey(session.ID)); err == nil {
			existing, err := s.subscriptions.GetBySessionID(ctx, session.ID)
			if err == nil {
				return &Receipt{
					EventID:        event.ID,
					EventType:      event.Type,
					Duplicate:      true,
					SubscriptionID: existing.ID,
				}, nil
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				log.Printf("WARN: processed-session lookup for %s failed, falling back to store: %v", session.ID, err)
			}
		}
	}

	ownerID, err := uuid.Parse(session.Metadata["userId"])
	if err != nil {
		return nil, fmt.Errorf("%w: bad userId metadata: %v", ErrMalformedEvent, err)
	}
	planCode := session.Metadata["plan"]

	// Start the access period at processing time, not the event's own
	// timestamp, so the duration contract stays simple.
	startDate := s.now().UTC()
	endDate, err := s.catalog.PeriodEnd(planCode, startDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	sub := &models.Subscription{
		ID:              uuid.New(),
		OwnerID:         ownerID,
		Plan:            planCode,
		StripeSessionID: session.ID,
		StartDate:       startDate,
		EndDate:         endDate,
		Status:          models.SubscriptionStatusActive,
	}

	persisted, created, err := s.subscriptions.CreateAndLink(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
	}
	if !created {
		log.Printf("webhook: duplicate delivery for session %s, keeping subscription %s", session.ID, persisted.ID)
	}

	if s.cache != nil {
		if err := s.cache.SetString(ctx, processedSessionKey(session.ID), persisted.ID.String(), processedSessionTTL); err != nil {
			log.Printf("WARN: failed to mark session %s as processed: %v", session.ID, err)
		}
	}

	return &Receipt{
		EventID:        event.ID,
		EventType:      event.Type,
		Duplicate:      !created,
		SubscriptionID: persisted.ID,
	}, nil
}
