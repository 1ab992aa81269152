package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"saascore/internal/common"
	"saascore/internal/services"
)

type AuditLogsHandlers struct {
	auditSvc services.AuditLogsService
}

func NewAuditLogsHandlers(auditSvc services.AuditLogsService) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditSvc: auditSvc}
}

// List returns the audit trail of the session's organization, newest first.
func (h *AuditLogsHandlers) List(c echo.Context) error {
	ctx := c.Request().Context()

	organizationID, ok := common.GetOrganizationIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	rawLimit, _ := strconv.Atoi(c.QueryParam("limit"))
	rawOffset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset := common.ValidatePaginationParams(rawLimit, rawOffset)

	entries, err := h.auditSvc.ListByOrganization(ctx, organizationID, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
