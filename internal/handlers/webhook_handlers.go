package handlers

import (
	"errors"
	"io"
	"net/http"

	"sellerhub/internal/services"

	"github.com/labstack/echo/v4"
)

// WebhookHandlers handles HTTP requests from the payment provider.
type WebhookHandlers struct {
	webhookService services.WebhookService
}

// NewWebhookHandlers creates a new webhook handlers instance
func NewWebhookHandlers(webhookService services.WebhookService) *WebhookHandlers {
	return &WebhookHandlers{
		webhookService: webhookService,
	}
}

// StripeWebhook handles POST /webhooks/stripe. The body must reach the
// verifier untouched, so it is read raw before any binding. Status codes are
// the retry contract with the provider: 4xx means do not redeliver, 5xx
// means redeliver later.
func (h *WebhookHandlers) StripeWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Failed to read request body")
	}

	signature := c.Request().Header.Get("Stripe-Signature")
	if signature == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing Stripe signature")
	}

	receipt, err := h.webhookService.Process(c.Request().Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSignature):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid webhook signature")
		case errors.Is(err, services.ErrMalformedEvent):
			return echo.NewHTTPError(http.StatusBadRequest, "Malformed webhook event")
		case errors.Is(err, services.ErrPersistenceFailure):
			// Transient: a 5xx tells the provider to redeliver.
			return echo.NewHTTPError(http.StatusInternalServerError, "Temporary processing failure")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "Webhook processing failed")
		}
	}

	return c.JSON(http.StatusOK, receipt)
}
