package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saascore/internal/common"
	"saascore/internal/models"
	"saascore/internal/services"
)

// Permission predicates evaluated against the caller's membership in the
// session's organization.
const (
	PermissionRead        = "read"
	PermissionWrite       = "write"
	PermissionManageUsers = "manage_users"
)

type MembershipMiddleware struct {
	membershipSvc services.MembershipService
}

func NewMembershipMiddleware(membershipSvc services.MembershipService) *MembershipMiddleware {
	return &MembershipMiddleware{membershipSvc: membershipSvc}
}

// membershipKey is where RequirePermission stashes the resolved membership
// for handlers further down the chain.
const membershipKey = "membership"

// RequirePermission enforces a predicate on the caller's membership. Every
// denial is a uniform 403; the response never reveals whether the
// organization exists, the membership is missing, or the role is too low.
func (m *MembershipMiddleware) RequirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			organizationID, ok := common.GetOrganizationIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			membership, err := m.membershipSvc.GetForUser(ctx, organizationID, userID)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			if !allows(membership, permission) {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			c.Set(membershipKey, membership)
			return next(c)
		}
	}
}

func allows(membership *models.Membership, permission string) bool {
	switch permission {
	case PermissionRead:
		return membership.IsActive()
	case PermissionWrite:
		return membership.CanWrite()
	case PermissionManageUsers:
		return membership.CanManageUsers()
	default:
		return false
	}
}

// MembershipFromEcho returns the membership resolved by RequirePermission.
func MembershipFromEcho(c echo.Context) (*models.Membership, bool) {
	membership, ok := c.Get(membershipKey).(*models.Membership)
	return membership, ok
}
