package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckoutSession is the provider's record of a hosted checkout. Metadata
// carries the opaque {userId, plan} pair set at session creation and read
// back by the webhook processor; it is pass-through, not trusted business
// data.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email"`
	Metadata      map[string]string `json:"metadata"`
}

type CreateCheckoutSessionRequest struct {
	OwnerID    uuid.UUID
	Plan       string
	PriceRef   string
	SuccessURL string
	CancelURL  string
}

// StripeService is the narrow payment-provider surface the engine depends
// on. It is constructor-injected everywhere so tests substitute a fake
// instead of sharing a process-global client.
type StripeService interface {
	CreateCheckoutSession(ctx context.Context, req CreateCheckoutSessionRequest) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	// VerifySignature checks the provider's HMAC-SHA256 signature over the
	// raw, unparsed payload bytes. Re-serialization would change the bytes,
	// so callers must pass the body exactly as received.
	VerifySignature(payload []byte, signature string) error
}

type stripeService struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	http          *http.Client
}

// NewStripeService creates a Stripe API client for hosted checkout sessions.
func NewStripeService(apiKey, webhookSecret string) StripeService {
	return &stripeService{
		apiKey:        apiKey,
		webhookSecret: webhookSecret,
		baseURL:       "https://api.stripe.com/v1",
		http:          &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *stripeService) CreateCheckoutSession(ctx context.Context, req CreateCheckoutSessionRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price]", req.PriceRef)
	form.Set("line_items[0][quantity]", strconv.Itoa(1))
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("metadata[userId]", req.OwnerID.String())
	form.Set("metadata[plan]", req.Plan)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.doSession(httpReq)
}

func (s *stripeService) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	return s.doSession(httpReq)
}

func (s *stripeService) doSession(req *http.Request) (*CheckoutSession, error) {
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("stripe returned %d: %s", resp.StatusCode, string(body))
	}

	session := &CheckoutSession{}
	if err := json.Unmarshal(body, session); err != nil {
		return nil, fmt.Errorf("decode stripe session: %w", err)
	}
	return session, nil
}

func (s *stripeService) VerifySignature(payload []byte, signature string) error {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks.
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}
