package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// identityHeader carries the caller's email, set by the trusted proxy that
// fronts this service. The API never sees unauthenticated traffic.
const identityHeader = "X-Forwarded-Email"

// UserResolver turns a verified email into a user id, creating the user on
// first sight.
type UserResolver interface {
	GetOrCreateUser(ctx context.Context, email string) (int64, error)
}

// withIdentity resolves the proxy-asserted identity and stashes the user id
// and email on the request context.
func withIdentity(users UserResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			email := c.Request().Header.Get(identityHeader)
			if email == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing identity header")
			}
			userID, err := users.GetOrCreateUser(c.Request().Context(), email)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			c.Set("user_id", userID)
			c.Set("user_email", email)
			return next(c)
		}
	}
}
