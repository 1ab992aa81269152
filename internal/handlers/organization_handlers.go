package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"saascore/internal/common"
	"saascore/internal/services"
)

// OrganizationHandlers serves the organization CRUD surface. Routes are
// scoped to the session's organization; the membership middleware has
// already enforced the role predicate by the time a handler runs.
type OrganizationHandlers struct {
	orgSvc     services.OrganizationService
	storageSvc services.StorageService
}

func NewOrganizationHandlers(orgSvc services.OrganizationService, storageSvc services.StorageService) *OrganizationHandlers {
	return &OrganizationHandlers{orgSvc: orgSvc, storageSvc: storageSvc}
}

// Get returns the organization the session is scoped to.
func (h *OrganizationHandlers) Get(c echo.Context) error {
	ctx := c.Request().Context()

	organizationID, ok := common.GetOrganizationIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	org, err := h.orgSvc.GetByID(ctx, organizationID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, org)
}

// Update modifies the session's organization.
func (h *OrganizationHandlers) Update(c echo.Context) error {
	ctx := c.Request().Context()

	organizationID, ok := common.GetOrganizationIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req services.UpdateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	req.ID = organizationID
	req.ActorID = userID

	org, err := h.orgSvc.Update(ctx, &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, org)
}

// Delete soft-deletes the session's organization.
func (h *OrganizationHandlers) Delete(c echo.Context) error {
	ctx := c.Request().Context()

	organizationID, ok := common.GetOrganizationIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.orgSvc.Delete(ctx, organizationID, userID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadLogo stores the organization logo in object storage and records a
// presigned URL on the organization.
func (h *OrganizationHandlers) UploadLogo(c echo.Context) error {
	ctx := c.Request().Context()

	organizationID, ok := common.GetOrganizationIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	file, err := c.FormFile("logo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Logo file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to read logo file")
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if _, err := h.storageSvc.UploadLogo(ctx, organizationID, src, file.Size, contentType); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store logo")
	}

	url, err := h.storageSvc.LogoURL(organizationID, 24*time.Hour)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate logo URL")
	}

	org, err := h.orgSvc.Update(ctx, &services.UpdateOrganizationRequest{
		ID:      organizationID,
		LogoURL: &url,
		ActorID: userID,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, org)
}
