package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"sellerhub/internal/caching"
	"sellerhub/internal/models"
	"sellerhub/internal/plans"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testWebhookSecret = "whsec_test"

func signPayload(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookForTest(repo *MockSubscriptionRepository) WebhookService {
	return &webhookService{
		stripe:        NewStripeService("sk_test", testWebhookSecret),
		subscriptions: repo,
		catalog:       plans.NewCatalog("price_trial", "price_annual"),
		now:           func() time.Time { return testNow },
	}
}

func completedEventPayload(sessionID string, ownerID uuid.UUID, plan string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"created": 1767225600,
		"data": {"object": {"id": %q, "metadata": {"userId": %q, "plan": %q}}}
	}`, sessionID, ownerID.String(), plan))
}

func TestProcess_MaterializesSubscription(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_1", ownerID, plans.PlanTrial)

	repo := new(MockSubscriptionRepository)
	repo.On("CreateAndLink", mock.Anything, mock.MatchedBy(func(sub *models.Subscription) bool {
		return sub.OwnerID == ownerID &&
			sub.Plan == plans.PlanTrial &&
			sub.StripeSessionID == "cs_test_1" &&
			sub.Status == models.SubscriptionStatusActive &&
			sub.StartDate.Equal(testNow) &&
			sub.EndDate.Equal(testNow.AddDate(0, 8, 0))
	})).Return(&models.Subscription{ID: uuid.New()}, true, nil)

	receipt, err := newWebhookForTest(repo).Process(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
	assert.False(t, receipt.Skipped)
	assert.False(t, receipt.Duplicate)
	assert.Equal(t, "evt_1", receipt.EventID)
	repo.AssertExpectations(t)
}

func TestProcess_InvalidSignaturePersistsNothing(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_1", ownerID, plans.PlanTrial)

	repo := new(MockSubscriptionRepository)
	_, err := newWebhookForTest(repo).Process(context.Background(), payload, "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
	repo.AssertNotCalled(t, "CreateAndLink", mock.Anything, mock.Anything)
}

func TestProcess_SignatureIsOverRawBytes(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_1", ownerID, plans.PlanTrial)
	reserialized := append([]byte{' '}, payload...)

	repo := new(MockSubscriptionRepository)
	_, err := newWebhookForTest(repo).Process(context.Background(), reserialized, signPayload(payload))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestProcess_UnsupportedEventTypeIsSkipped(t *testing.T) {
	payload := []byte(`{"id": "evt_2", "type": "invoice.paid", "data": {"object": {}}}`)

	repo := new(MockSubscriptionRepository)
	receipt, err := newWebhookForTest(repo).Process(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
	assert.True(t, receipt.Skipped)
	assert.Equal(t, "invoice.paid", receipt.EventType)
	repo.AssertNotCalled(t, "CreateAndLink", mock.Anything, mock.Anything)
}

func TestProcess_DuplicateDeliveryTakesDuplicatePath(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_1", ownerID, plans.PlanTrial)
	existingID := uuid.New()

	repo := new(MockSubscriptionRepository)
	repo.On("CreateAndLink", mock.Anything, mock.Anything).
		Return(&models.Subscription{ID: existingID, StripeSessionID: "cs_test_1"}, false, nil)

	receipt, err := newWebhookForTest(repo).Process(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
	assert.True(t, receipt.Duplicate)
	assert.Equal(t, existingID, receipt.SubscriptionID)
	repo.AssertNumberOfCalls(t, "CreateAndLink", 1)
}

func TestProcess_MalformedMetadata(t *testing.T) {
	payload := []byte(`{
		"id": "evt_3",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_2", "metadata": {"userId": "not-a-uuid", "plan": "trial"}}}
	}`)

	repo := new(MockSubscriptionRepository)
	_, err := newWebhookForTest(repo).Process(context.Background(), payload, signPayload(payload))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	repo.AssertNotCalled(t, "CreateAndLink", mock.Anything, mock.Anything)
}

func TestProcess_UnknownPlanMetadata(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_3", ownerID, "lifetime")

	repo := new(MockSubscriptionRepository)
	_, err := newWebhookForTest(repo).Process(context.Background(), payload, signPayload(payload))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) CacheCheckoutSession(ctx context.Context, sessionID string, payload []byte, ttl time.Duration) error {
	args := m.Called(ctx, sessionID, payload, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetCheckoutSession(ctx context.Context, sessionID string) ([]byte, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheService) DeleteCheckoutSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheService) GetString(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheService) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestProcess_ProcessedMarkerShortCircuitsStore(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_5", ownerID, plans.PlanAnnual)
	existingID := uuid.New()

	repo := new(MockSubscriptionRepository)
	repo.On("GetBySessionID", mock.Anything, "cs_test_5").
		Return(&models.Subscription{ID: existingID, StripeSessionID: "cs_test_5"}, nil)

	cache := new(MockCacheService)
	cache.On("GetString", mock.Anything, "sellerhub:processed-session:cs_test_5").
		Return(existingID.String(), nil)

	svc := newWebhookForTest(repo)
	svc.(*webhookService).cache = cache

	receipt, err := svc.Process(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
	assert.True(t, receipt.Duplicate)
	assert.Equal(t, existingID, receipt.SubscriptionID)
	repo.AssertNotCalled(t, "CreateAndLink", mock.Anything, mock.Anything)
}

func TestProcess_MarksSessionProcessedAfterMaterialization(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_6", ownerID, plans.PlanAnnual)
	createdID := uuid.New()

	repo := new(MockSubscriptionRepository)
	repo.On("CreateAndLink", mock.Anything, mock.Anything).
		Return(&models.Subscription{ID: createdID}, true, nil)

	cache := new(MockCacheService)
	cache.On("GetString", mock.Anything, "sellerhub:processed-session:cs_test_6").
		Return("", caching.ErrCacheMiss)
	cache.On("SetString", mock.Anything, "sellerhub:processed-session:cs_test_6", createdID.String(), mock.Anything).
		Return(nil)

	svc := newWebhookForTest(repo)
	svc.(*webhookService).cache = cache

	receipt, err := svc.Process(context.Background(), payload, signPayload(payload))
	assert.NoError(t, err)
	assert.False(t, receipt.Duplicate)
	cache.AssertExpectations(t)
}

func TestProcess_PersistenceFailureIsRetryable(t *testing.T) {
	ownerID := uuid.New()
	payload := completedEventPayload("cs_test_4", ownerID, plans.PlanAnnual)

	repo := new(MockSubscriptionRepository)
	repo.On("CreateAndLink", mock.Anything, mock.Anything).
		Return(nil, false, errors.New("connection refused"))

	_, err := newWebhookForTest(repo).Process(context.Background(), payload, signPayload(payload))
	assert.ErrorIs(t, err, ErrPersistenceFailure)
}
