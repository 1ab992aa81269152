package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"saascore/internal/common"
	"saascore/internal/models"
	"saascore/internal/services"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	authService services.AuthService
	auditSvc    services.AuditLogsService
}

func NewAuthHandlers(authService services.AuthService, auditSvc services.AuditLogsService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		auditSvc:    auditSvc,
	}
}

// Signup handles user registration, optionally creating an organization the
// new user owns.
func (h *AuthHandlers) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email, password, first name, and last name are required")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 8 characters")
	}

	result, err := h.authService.Signup(ctx, &req)
	if err != nil {
		h.auditSvc.RecordAuth(ctx, models.AuditActionSignup, nil, nil,
			models.AuditOutcomeFailure, models.JSONB{"email": req.Email})
		return httpError(err)
	}

	var orgPtr *uuid.UUID
	if result.Organization != nil {
		orgPtr = &result.Organization.ID
	}
	h.auditSvc.RecordAuth(ctx, models.AuditActionSignup, &result.User.ID, orgPtr,
		models.AuditOutcomeSuccess, nil)

	return c.JSON(http.StatusCreated, result)
}

// Login verifies credentials through the provider and issues a session.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req services.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and password are required")
	}

	result, err := h.authService.Login(ctx, &req)
	if err != nil {
		h.auditSvc.RecordAuth(ctx, models.AuditActionLogin, nil, req.OrganizationID,
			models.AuditOutcomeFailure, models.JSONB{"email": req.Email})
		return httpError(err)
	}

	var orgPtr *uuid.UUID
	if result.Organization != nil {
		orgPtr = &result.Organization.ID
	}
	h.auditSvc.RecordAuth(ctx, models.AuditActionLogin, &result.User.ID, orgPtr,
		models.AuditOutcomeSuccess, nil)

	return c.JSON(http.StatusOK, result)
}

// Refresh rotates the token pair.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.RefreshTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Refresh token is required")
	}

	tokens, err := h.authService.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return httpError(err)
	}

	var actorPtr, orgPtr *uuid.UUID
	if id, err := uuid.Parse(tokens.UserID); err == nil {
		actorPtr = &id
	}
	if id, err := uuid.Parse(tokens.OrganizationID); err == nil {
		orgPtr = &id
	}
	h.auditSvc.RecordAuth(ctx, models.AuditActionRefresh, actorPtr, orgPtr,
		models.AuditOutcomeSuccess, nil)

	return c.JSON(http.StatusOK, tokens)
}

// Logout revokes the caller's session.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	sessionID, ok := common.GetSessionIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Session not found")
	}

	if err := h.authService.Logout(ctx, userID, sessionID); err != nil {
		return httpError(err)
	}

	h.auditSvc.RecordAuth(ctx, models.AuditActionLogout, &userID, nil,
		models.AuditOutcomeSuccess, nil)

	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user with their memberships.
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	user, memberships, err := h.authService.CurrentUser(ctx, userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":        user,
		"memberships": memberships,
	})
}

type switchOrganizationRequest struct {
	OrganizationID string `json:"organization_id" validate:"required"`
}

// SwitchOrganization re-scopes the caller's session to another organization.
func (h *AuthHandlers) SwitchOrganization(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req switchOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	organizationID, err := common.ValidateUUID(req.OrganizationID, "organization_id")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.SwitchOrganization(ctx, userID, organizationID)
	if err != nil {
		h.auditSvc.RecordAuth(ctx, models.AuditActionSwitchOrg, &userID, &organizationID,
			models.AuditOutcomeFailure, nil)
		return httpError(err)
	}

	h.auditSvc.RecordAuth(ctx, models.AuditActionSwitchOrg, &userID, &organizationID,
		models.AuditOutcomeSuccess, nil)

	return c.JSON(http.StatusOK, result)
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset always returns 202 so the endpoint cannot be used to
// probe which emails are registered.
func (h *AuthHandlers) RequestPasswordReset(c echo.Context) error {
	ctx := c.Request().Context()

	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Email is required")
	}

	if err := h.authService.RequestPasswordReset(ctx, req.Email); err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "If the account exists, a password reset email has been sent",
	})
}

type passwordResetCompleteRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// CompletePasswordReset consumes a reset token and sets the new password.
func (h *AuthHandlers) CompletePasswordReset(c echo.Context) error {
	ctx := c.Request().Context()

	var req passwordResetCompleteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Token == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Token and new password are required")
	}
	if len(req.NewPassword) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "Password must be at least 8 characters")
	}

	if err := h.authService.CompletePasswordReset(ctx, req.Token, req.NewPassword); err != nil {
		h.auditSvc.RecordAuth(ctx, models.AuditActionPasswordReset, nil, nil,
			models.AuditOutcomeFailure, nil)
		return httpError(err)
	}

	h.auditSvc.RecordAuth(ctx, models.AuditActionPasswordReset, nil, nil,
		models.AuditOutcomeSuccess, nil)

	return c.JSON(http.StatusOK, map[string]string{"message": "Password has been reset"})
}
