package handlers

import (
	"errors"
	"net/http"

	"sellerhub/internal/common"
	"sellerhub/internal/services"

	"github.com/labstack/echo/v4"
)

// SubscriptionHandlers handles HTTP requests for the subscription engine's
// checkout surface.
type SubscriptionHandlers struct {
	subscriptionService services.SubscriptionService
}

// NewSubscriptionHandlers creates a new subscription handlers instance
func NewSubscriptionHandlers(subscriptionService services.SubscriptionService) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptionService: subscriptionService,
	}
}

// CreateCheckoutSession handles POST /subscriptions/checkout-session.
// The body carries the requested plan code and the client's view of its
// current subscription, which is validated against the store before any
// provider call. The plan-to-price mapping is resolved server-side.
func (h *SubscriptionHandlers) CreateCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		Plan         string                         `json:"plan"`
		Subscription *services.SubscriptionSnapshot `json:"subscription"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateRequiredString(req.Plan, "plan"); err != nil {
		return common.SendClientError(c, err.Error())
	}

	session, err := h.subscriptionService.CreateCheckoutSession(ctx, userID, req.Plan, req.Subscription)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownPlan):
			return common.SendClientError(c, "Unknown plan")
		case errors.Is(err, services.ErrStateMismatch):
			return common.SendForbiddenError(c, "STATE_MISMATCH", "Subscription state is out of date, reload and try again")
		case errors.Is(err, services.ErrAlreadyEntitled):
			return common.SendForbiddenError(c, "ALREADY_SUBSCRIBED", "An active subscription already exists")
		case errors.Is(err, services.ErrPlanIneligible):
			return common.SendForbiddenError(c, "PLAN_INELIGIBLE", "This plan is only available to first-time subscribers")
		case errors.Is(err, services.ErrLookupFailed):
			return c.JSON(http.StatusBadGateway, common.CreateErrorResponse("LOOKUP_FAILED", "Could not verify subscription state", nil))
		default:
			return common.SendServerError(c, "Error creating checkout session")
		}
	}

	return c.JSON(http.StatusOK, map[string]string{
		"url": session.URL,
	})
}

// GetCheckoutSession handles GET /subscriptions/checkout-session/:id.
// Read-only provider lookup for the post-payment display; no state change.
func (h *SubscriptionHandlers) GetCheckoutSession(c echo.Context) error {
	ctx := c.Request().Context()

	if _, ok := common.GetUserIDFromContext(ctx); !ok {
		return common.SendUnauthorizedError(c)
	}

	sessionID := c.Param("id")
	if err := common.ValidateRequiredString(sessionID, "session id"); err != nil {
		return common.SendClientError(c, err.Error())
	}

	session, err := h.subscriptionService.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return common.SendServerError(c, "Error retrieving checkout session")
	}

	return c.JSON(http.StatusOK, session)
}

// GetMySubscription handles GET /subscriptions/me. The active field is
// derived from the expiration predicate, never from the stored status label.
func (h *SubscriptionHandlers) GetMySubscription(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	sub, active, err := h.subscriptionService.GetCurrent(ctx, userID)
	if err != nil {
		return common.SendServerError(c, "Error retrieving subscription")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscription": sub,
		"active":       active,
	})
}

// GetEntitlement handles GET /subscriptions/entitlement: the yes/no answer
// listing surfaces use to decide whether the seller may publish products.
func (h *SubscriptionHandlers) GetEntitlement(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	_, active, err := h.subscriptionService.GetCurrent(ctx, userID)
	if err != nil {
		return common.SendServerError(c, "Error checking entitlement")
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"entitled": active,
	})
}
