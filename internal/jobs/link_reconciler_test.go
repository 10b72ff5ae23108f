package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"sellerhub/internal/models"

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

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) LinkSubscription(ctx context.Context, userID, subscriptionID uuid.UUID) error {
	args := m.Called(ctx, userID, subscriptionID)
	return args.Error(0)
}

func orphan(ownerID uuid.UUID) *models.Subscription {
	return &models.Subscription{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Plan:      "annual",
		Status:    models.SubscriptionStatusActive,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
	}
}

func TestLinkReconciler_RepairsOrphans(t *testing.T) {
	first := orphan(uuid.New())
	second := orphan(uuid.New())

	subs := new(MockSubscriptionRepository)
	subs.On("ListUnlinked", mock.Anything, mock.Anything, 100).
		Return([]*models.Subscription{first, second}, nil)

	users := new(MockUserRepository)
	users.On("LinkSubscription", mock.Anything, first.OwnerID, first.ID).Return(nil)
	users.On("LinkSubscription", mock.Anything, second.OwnerID, second.ID).Return(nil)

	r := NewLinkReconciler(subs, users, 5*time.Minute, 100)
	err := r.Run(context.Background())
	assert.NoError(t, err)
	users.AssertNumberOfCalls(t, "LinkSubscription", 2)
}

func TestLinkReconciler_NothingToRepair(t *testing.T) {
	subs := new(MockSubscriptionRepository)
	subs.On("ListUnlinked", mock.Anything, mock.Anything, 100).
		Return([]*models.Subscription{}, nil)

	users := new(MockUserRepository)

	r := NewLinkReconciler(subs, users, 5*time.Minute, 100)
	err := r.Run(context.Background())
	assert.NoError(t, err)
	users.AssertNotCalled(t, "LinkSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkReconciler_ContinuesPastFailures(t *testing.T) {
	first := orphan(uuid.New())
	second := orphan(uuid.New())

	subs := new(MockSubscriptionRepository)
	subs.On("ListUnlinked", mock.Anything, mock.Anything, 100).
		Return([]*models.Subscription{first, second}, nil)

	users := new(MockUserRepository)
	users.On("LinkSubscription", mock.Anything, first.OwnerID, first.ID).Return(errors.New("user deleted"))
	users.On("LinkSubscription", mock.Anything, second.OwnerID, second.ID).Return(nil)

	r := NewLinkReconciler(subs, users, 5*time.Minute, 100)
	err := r.Run(context.Background())
	assert.Error(t, err)
	users.AssertNumberOfCalls(t, "LinkSubscription", 2)
}

func TestLinkReconciler_ListFailure(t *testing.T) {
	subs := new(MockSubscriptionRepository)
	subs.On("ListUnlinked", mock.Anything, mock.Anything, 100).
		Return(nil, errors.New("store unavailable"))

	users := new(MockUserRepository)

	r := NewLinkReconciler(subs, users, 5*time.Minute, 100)
	err := r.Run(context.Background())
	assert.Error(t, err)
}
