package repositories

import (
	"context"
	"errors"

	"sellerhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepository is deliberately narrow: users are owned by the identity
// service, this engine only reads them and maintains the subscription link.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// LinkSubscription points the user's weak reference at the given
	// subscription. It never deletes subscription rows.
	LinkSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error
}

type userRepo struct {
	db DB
}

func NewUserRepo(db DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, name, email, is_admin, is_seller, subscription_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&user.ID, &user.Name, &user.Email, &user.IsAdmin, &user.IsSeller, &user.SubscriptionID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepo) LinkSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	query := `UPDATE users SET subscription_id = $1, updated_at = NOW() WHERE id = $2`
	tag, err := r.db.Exec(ctx, query, subscriptionID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
