package models

import (
	"time"

	"github.com/google/uuid"
)

// User is owned by the identity service; this engine only reads the seller
// flags and maintains the subscription link. SubscriptionID is a weak
// reference: a nil value means the user has never subscribed, which is the
// only state in which the trial plan is purchasable. Deleting a user never
// cascades to subscriptions.
type User struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	IsAdmin        bool       `json:"is_admin" db:"is_admin"`
	IsSeller       bool       `json:"is_seller" db:"is_seller"`
	SubscriptionID *uuid.UUID `json:"subscription_id" db:"subscription_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}
