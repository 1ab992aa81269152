package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"saascore/internal/common"
	"saascore/internal/middleware"
	"saascore/internal/models"
	"saascore/internal/services"
)

type MembershipHandlers struct {
	membershipSvc services.MembershipService
}

func NewMembershipHandlers(membershipSvc services.MembershipService) *MembershipHandlers {
	return &MembershipHandlers{membershipSvc: membershipSvc}
}

// List returns the members of the session's organization.
func (h *MembershipHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()

	organizationID, ok := common.GetOrganizationIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	rawLimit, _ := strconv.Atoi(c.QueryParam("limit"))
	rawOffset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset := common.ValidatePaginationParams(rawLimit, rawOffset)

	memberships, err := h.membershipSvc.ListByOrganization(ctx, organizationID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, memberships)
}

// Invite adds an existing user to the organization in the invited state.
func (h *MembershipHandlers) Invite(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.MembershipFromEcho(c)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	var req services.InviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required")
	}
	req.Actor = actor

	membership, err := h.membershipSvc.Invite(ctx, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, membership.Public())
}

// Accept activates the caller's own invited membership.
func (h *MembershipHandlers) Accept(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	membershipID, err := common.ValidateUUID(c.Param("id"), "membership id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	membership, err := h.membershipSvc.Accept(ctx, membershipID, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, membership.Public())
}

type changeRoleRequest struct {
	Role models.MembershipRole `json:"role" validate:"required"`
}

// ChangeRole updates a member's role within the session's organization.
func (h *MembershipHandlers) ChangeRole(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.MembershipFromEcho(c)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	membershipID, err := common.ValidateUUID(c.Param("id"), "membership id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	membership, err := h.membershipSvc.ChangeRole(ctx, actor, membershipID, req.Role)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, membership.Public())
}

// Remove soft-deletes a membership.
func (h *MembershipHandlers) Remove(c echo.Context) error {
	ctx := c.Request().Context()

	actor, ok := middleware.MembershipFromEcho(c)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	membershipID, err := common.ValidateUUID(c.Param("id"), "membership id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.membershipSvc.Remove(ctx, actor, membershipID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
