package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the lifecycle state of an authentication session.
type SessionState string

const (
	SessionPending   SessionState = "pending"
	SessionActive    SessionState = "active"
	SessionRefreshed SessionState = "refreshed"
	SessionExpired   SessionState = "expired"
	SessionRevoked   SessionState = "revoked"
)

// Session is a bounded-lifetime authentication context for a user, optionally
// scoped to an organization. A partial unique index on
// (user_id, organization_id) WHERE state = 'active' guarantees at most one
// active session per pair even across process instances.
type Session struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	UserID           uuid.UUID    `json:"user_id" db:"user_id"`
	OrganizationID   *uuid.UUID   `json:"organization_id,omitempty" db:"organization_id"`
	State            SessionState `json:"state" db:"state"`
	AccessTokenID    string       `json:"-" db:"access_token_id"`
	RefreshTokenHash *string      `json:"-" db:"refresh_token_hash"`
	ExpiresAt        time.Time    `json:"expires_at" db:"expires_at"`
	RefreshExpiresAt *time.Time   `json:"refresh_expires_at,omitempty" db:"refresh_expires_at"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
	RevokedAt        *time.Time   `json:"revoked_at,omitempty" db:"revoked_at"`
}

// IsExpired reports whether the session is past its expiry instant.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
