package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"saascore/internal/models"
)

type AuditLogsRepository interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db DB
}

func NewAuditLogsRepo(db DB) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Insert(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (id, organization_id, actor_id, action, resource_type,
			resource_id, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.OrganizationID, entry.ActorID,
		entry.Action, entry.ResourceType, entry.ResourceID, entry.Outcome, entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (r *auditLogsRepo) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, organization_id, actor_id, action, resource_type, resource_id, outcome, detail, created_at
		FROM audit_logs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		entry := &models.AuditLog{}
		if err := rows.Scan(&entry.ID, &entry.OrganizationID, &entry.ActorID, &entry.Action,
			&entry.ResourceType, &entry.ResourceID, &entry.Outcome, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
