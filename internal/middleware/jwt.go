package middleware

import (
	"context"
	"net/http"

	"sellerhub/internal/common"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// IdentityClaims are the claims the external identity service puts in its
// tokens. Identity issuance lives outside this engine; the token is consumed
// as an opaque verified identity plus flags.
type IdentityClaims struct {
	IsSeller bool `json:"is_seller"`
	jwt.RegisteredClaims
}

// IdentityHandler runs after echo-jwt has verified the token. It copies the
// user id and seller flag into the request context; an unparsable subject
// leaves the context empty so downstream handlers reject the request.
func IdentityHandler(c echo.Context) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return
	}
	claims, ok := token.Claims.(*IdentityClaims)
	if !ok {
		return
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return
	}

	ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
	ctx = context.WithValue(ctx, common.IsSellerKey, claims.IsSeller)
	c.SetRequest(c.Request().WithContext(ctx))
}

// RequireSeller rejects requests from authenticated users without the seller
// flag. Subscription purchase is a seller-side concern.
func RequireSeller() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !common.IsSellerFromContext(c.Request().Context()) {
				return echo.NewHTTPError(http.StatusForbidden, "Seller account required")
			}
			return next(c)
		}
	}
}
