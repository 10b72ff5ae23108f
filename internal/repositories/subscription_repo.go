package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sellerhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SubscriptionRepository is the durable store for subscription records and
// the user->subscription link. Records are append-only: no operation updates
// plan, start_date or end_date, and nothing is ever deleted.
type SubscriptionRepository interface {
	// GetByOwner returns the subscription the user's link currently points
	// at, which may be expired. ErrNotFound when the link is null.
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Subscription, error)
	// CreateIfAbsent inserts the record unless one with the same provider
	// session id already exists; the existing record is returned with
	// created=false. This is the idempotency boundary for at-least-once
	// webhook delivery.
	CreateIfAbsent(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error)
	// CreateAndLink performs CreateIfAbsent and the owner-link update in one
	// transaction. On the duplicate path the link is left untouched: the
	// first delivery already set it and it may have been superseded since.
	CreateAndLink(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error)
	// ListUnlinked returns subscriptions older than the cutoff that are the
	// newest record for their owner yet are not the owner's linked
	// subscription. These are the orphans left by a crash between create
	// and link.
	ListUnlinked(ctx context.Context, olderThan time.Time, limit int) ([]*models.Subscription, error)
}

type subscriptionRepo struct {
	db DB
}

func NewSubscriptionRepo(db DB) SubscriptionRepository {
	return &subscriptionRepo{db: db}
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	err := row.Scan(&sub.ID, &sub.OwnerID, &sub.Plan, &sub.StripeSessionID, &sub.StartDate, &sub.EndDate, &sub.Status, &sub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, error) {
	query := `
		SELECT s.id, s.owner_id, s.plan, s.stripe_session_id, s.start_date, s.end_date, s.status, s.created_at
		FROM subscriptions s
		JOIN users u ON u.subscription_id = s.id
		WHERE u.id = $1
	`
	return scanSubscription(r.db.QueryRow(ctx, query, ownerID))
}

const getBySessionIDQuery = `
		SELECT id, owner_id, plan, stripe_session_id, start_date, end_date, status, created_at
		FROM subscriptions
		WHERE stripe_session_id = $1
	`

func (r *subscriptionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.Subscription, error) {
	return scanSubscription(r.db.QueryRow(ctx, getBySessionIDQuery, sessionID))
}

const insertSubscriptionQuery = `
		INSERT INTO subscriptions (id, owner_id, plan, stripe_session_id, start_date, end_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (stripe_session_id) DO NOTHING
	`

func (r *subscriptionRepo) CreateIfAbsent(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error) {
	tag, err := r.db.Exec(ctx, insertSubscriptionQuery,
		sub.ID, sub.OwnerID, sub.Plan, sub.StripeSessionID, sub.StartDate, sub.EndDate, sub.Status)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.GetBySessionID(ctx, sub.StripeSessionID)
		if err != nil {
			return nil, false, fmt.Errorf("fetch existing subscription for session %s: %w", sub.StripeSessionID, err)
		}
		return existing, false, nil
	}
	return sub, true, nil
}

func (r *subscriptionRepo) CreateAndLink(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, insertSubscriptionQuery,
		sub.ID, sub.OwnerID, sub.Plan, sub.StripeSessionID, sub.StartDate, sub.EndDate, sub.Status)
	if err != nil {
		return nil, false, err
	}

	if tag.RowsAffected() == 0 {
		// Duplicate delivery: the unique index on stripe_session_id absorbed
		// the insert. Return the winner's record without touching the link.
		existing, err := scanSubscription(tx.QueryRow(ctx, getBySessionIDQuery, sub.StripeSessionID))
		if err != nil {
			return nil, false, fmt.Errorf("fetch existing subscription for session %s: %w", sub.StripeSessionID, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET subscription_id = $1, updated_at = NOW() WHERE id = $2
	`, sub.ID, sub.OwnerID); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

func (r *subscriptionRepo) ListUnlinked(ctx context.Context, olderThan time.Time, limit int) ([]*models.Subscription, error) {
	query := `
		SELECT s.id, s.owner_id, s.plan, s.stripe_session_id, s.start_date, s.end_date, s.status, s.created_at
		FROM subscriptions s
		JOIN users u ON u.id = s.owner_id
		WHERE (u.subscription_id IS NULL OR u.subscription_id <> s.id)
		  AND s.created_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM subscriptions newer
			WHERE newer.owner_id = s.owner_id AND newer.created_at > s.created_at
		  )
		ORDER BY s.created_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		sub := &models.Subscription{}
		if err := rows.Scan(&sub.ID, &sub.OwnerID, &sub.Plan, &sub.StripeSessionID, &sub.StartDate, &sub.EndDate, &sub.Status, &sub.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
