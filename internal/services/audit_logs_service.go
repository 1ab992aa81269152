package services

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"saascore/internal/models"
	"saascore/internal/repositories"
)

// AuditLogsService records auth-sensitive actions. Recording failures are
// logged and swallowed so auditing never breaks the flow it observes.
type AuditLogsService interface {
	Record(ctx context.Context, entry *models.AuditLog)
	RecordAuth(ctx context.Context, action string, actorID, organizationID *uuid.UUID, outcome string, detail models.JSONB)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{auditLogsRepo: auditLogsRepo}
}

func (s *auditLogsService) Record(ctx context.Context, entry *models.AuditLog) {
	if entry.Action == "" || entry.Outcome == "" {
		log.Printf("dropping audit entry with missing action or outcome: %+v", entry)
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := s.auditLogsRepo.Insert(ctx, entry); err != nil {
		log.Printf("failed to record audit entry %s: %v", entry.Action, err)
	}
}

func (s *auditLogsService) RecordAuth(ctx context.Context, action string, actorID, organizationID *uuid.UUID, outcome string, detail models.JSONB) {
	var resourceID *string
	if actorID != nil {
		id := actorID.String()
		resourceID = &id
	}
	s.Record(ctx, &models.AuditLog{
		OrganizationID: organizationID,
		ActorID:        actorID,
		Action:         action,
		ResourceType:   "user",
		ResourceID:     resourceID,
		Outcome:        outcome,
		Detail:         detail,
	})
}

func (s *auditLogsService) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	if organizationID == uuid.Nil {
		return nil, errors.New("organization_id is required")
	}
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	return s.auditLogsRepo.ListByOrganization(ctx, organizationID, limit, offset)
}
