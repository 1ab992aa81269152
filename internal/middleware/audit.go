package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"saascore/internal/common"
	"saascore/internal/models"
	"saascore/internal/services"
)

// AuditMiddleware records mutating organization-scoped requests.
type AuditMiddleware struct {
	auditSvc services.AuditLogsService
}

func NewAuditMiddleware(auditSvc services.AuditLogsService) *AuditMiddleware {
	return &AuditMiddleware{auditSvc: auditSvc}
}

// AuditMutations logs writes after the handler runs, tagged with the outcome.
// Reads pass through untouched.
func (m *AuditMiddleware) AuditMutations(resourceType string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return err
			}

			ctx := c.Request().Context()
			var actorPtr, orgPtr *uuid.UUID
			if userID, ok := common.GetUserIDFromContext(ctx); ok {
				actorPtr = &userID
			}
			if organizationID, ok := common.GetOrganizationIDFromContext(ctx); ok {
				orgPtr = &organizationID
			}

			outcome := models.AuditOutcomeSuccess
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				outcome = models.AuditOutcomeFailure
			}

			m.auditSvc.Record(ctx, &models.AuditLog{
				OrganizationID: orgPtr,
				ActorID:        actorPtr,
				Action:         c.Request().Method + " " + c.Path(),
				ResourceType:   resourceType,
				Outcome:        outcome,
				Detail: models.JSONB{
					"status": c.Response().Status,
				},
			})

			return err
		}
	}
}
