package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saascore/internal/autherrors"
)

// httpError maps the error taxonomy onto HTTP statuses. Unknown errors stay
// opaque 500s so internals never leak into responses.
func httpError(err error) *echo.HTTPError {
	kind, ok := autherrors.KindOf(err)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}

	switch kind {
	case autherrors.KindInvalidCredentials:
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	case autherrors.KindInvalidToken, autherrors.KindTokenExpired,
		autherrors.KindSessionExpired, autherrors.KindSessionRevoked,
		autherrors.KindSessionNotFound:
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	case autherrors.KindUserInactive:
		return echo.NewHTTPError(http.StatusForbidden, "Account is inactive")
	case autherrors.KindForbidden:
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	case autherrors.KindUserAlreadyExists:
		return echo.NewHTTPError(http.StatusConflict, "User already exists")
	case autherrors.KindConflict:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case autherrors.KindUserNotFound, autherrors.KindNotFound:
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	case autherrors.KindProviderUnavailable:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication provider unavailable")
	case autherrors.KindProviderNotConfigured:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication provider not configured")
	case autherrors.KindUnclassifiedProvider:
		return echo.NewHTTPError(http.StatusBadGateway, "Authentication provider error")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}
