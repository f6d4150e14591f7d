// Package auth resolves the acting user for a request. Real authentication is
// out of scope: every request acts as a single configured demo user.
package auth

import (
	"context"

	"github.com/labstack/echo/v4"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// DemoUserMiddleware attaches userID to every request context.
func DemoUserMiddleware(userID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := WithUserID(c.Request().Context(), userID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("user_id", userID)
			return next(c)
		}
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}
