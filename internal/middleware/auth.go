package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"saascore/internal/common"
	"saascore/internal/services"
)

// AuthMiddleware validates bearer tokens through the session manager and
// loads the caller's identity into the request context.
func AuthMiddleware(sessionSvc services.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing token")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token format")
			}

			session, err := sessionSvc.Validate(c.Request().Context(), tokenString)
			if err != nil {
				// All validation failures read the same to the caller; the
				// precise kind is for logs and clients that inspect bodies.
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, session.UserID)
			ctx = context.WithValue(ctx, common.SessionIDKey, session.ID)
			if session.OrganizationID != nil {
				ctx = context.WithValue(ctx, common.OrganizationIDKey, *session.OrganizationID)
			}
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetOrganizationIDFromContext extracts the session's organization scope.
func GetOrganizationIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	return common.GetOrganizationIDFromContext(ctx)
}
