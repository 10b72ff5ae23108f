package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses. Status is a cached label set when the record is
// materialized and is never rewritten when the period lapses; callers that
// need a real activity signal must compare against EndDate
// (see internal/entitlement).
const (
	SubscriptionStatusPending  = "pending"
	SubscriptionStatusActive   = "active"
	SubscriptionStatusInactive = "inactive"
	SubscriptionStatusExpired  = "expired"
)

// Subscription is immutable after creation. Renewal creates a new record and
// moves the user link; expired rows are kept for audit and for the
// first-subscription check on the trial plan.
type Subscription struct {
	ID              uuid.UUID `json:"id" db:"id"`
	OwnerID         uuid.UUID `json:"owner_id" db:"owner_id"`
	Plan            string    `json:"plan" db:"plan"`
	StripeSessionID string    `json:"stripe_session_id" db:"stripe_session_id"`
	StartDate       time.Time `json:"start_date" db:"start_date"`
	EndDate         time.Time `json:"end_date" db:"end_date"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
