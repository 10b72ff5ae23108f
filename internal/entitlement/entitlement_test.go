package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"sellerhub/internal/models"
	"sellerhub/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Subscription, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Subscription, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) CreateIfAbsent(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Subscription), args.Bool(1), args.Error(2)
}

func (m *MockSubscriptionRepository) CreateAndLink(ctx context.Context, sub *models.Subscription) (*models.Subscription, bool, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Subscription), args.Bool(1), args.Error(2)
}

func (m *MockSubscriptionRepository) ListUnlinked(ctx context.Context, olderThan time.Time, limit int) ([]*models.Subscription, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func TestIsActive_Boundaries(t *testing.T) {
	end := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		EndDate: end,
		Status:  models.SubscriptionStatusActive,
	}

	assert.True(t, IsActive(sub, end.Add(-time.Second)))
	assert.False(t, IsActive(sub, end), "subscription must lapse at the exact end instant")
	assert.False(t, IsActive(sub, end.Add(time.Second)))
}

func TestIsActive_IgnoresStatusLabel(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	stale := &models.Subscription{
		EndDate: now.AddDate(0, 1, 0),
		Status:  models.SubscriptionStatusExpired,
	}
	assert.True(t, IsActive(stale, now), "future end date wins over a stale label")

	lapsed := &models.Subscription{
		EndDate: now.AddDate(0, -1, 0),
		Status:  models.SubscriptionStatusActive,
	}
	assert.False(t, IsActive(lapsed, now), "past end date wins over an active label")
}

func TestIsActive_NilSubscription(t *testing.T) {
	assert.False(t, IsActive(nil, time.Now()))
}

func TestCanList(t *testing.T) {
	ownerID := uuid.New()

	t.Run("active subscription", func(t *testing.T) {
		repo := new(MockSubscriptionRepository)
		repo.On("GetByOwner", mock.Anything, ownerID).Return(&models.Subscription{
			OwnerID: ownerID,
			EndDate: time.Now().UTC().AddDate(0, 1, 0),
		}, nil)

		svc := NewService(repo)
		ok, err := svc.CanList(context.Background(), ownerID)
		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("never subscribed", func(t *testing.T) {
		repo := new(MockSubscriptionRepository)
		repo.On("GetByOwner", mock.Anything, ownerID).Return(nil, repositories.ErrNotFound)

		svc := NewService(repo)
		ok, err := svc.CanList(context.Background(), ownerID)
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		repo := new(MockSubscriptionRepository)
		repo.On("GetByOwner", mock.Anything, ownerID).Return(nil, errors.New("connection refused"))

		svc := NewService(repo)
		ok, err := svc.CanList(context.Background(), ownerID)
		assert.Error(t, err)
		assert.False(t, ok)
	})
}
