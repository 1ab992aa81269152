package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog records an auth-sensitive action for later review.
type AuditLog struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty" db:"organization_id"`
	ActorID        *uuid.UUID `json:"actor_id,omitempty" db:"actor_id"`
	Action         string     `json:"action" db:"action"`
	ResourceType   string     `json:"resource_type" db:"resource_type"`
	ResourceID     *string    `json:"resource_id,omitempty" db:"resource_id"`
	Outcome        string     `json:"outcome" db:"outcome"`
	Detail         JSONB      `json:"detail,omitempty" db:"detail"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Action constants for audit logs
const (
	AuditActionLogin         = "auth.login"
	AuditActionSignup        = "auth.signup"
	AuditActionLogout        = "auth.logout"
	AuditActionRefresh       = "auth.refresh"
	AuditActionSwitchOrg     = "auth.switch_organization"
	AuditActionPasswordReset = "auth.password_reset"
)

// Outcome constants for audit logs
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)
