package models

import (
	"time"

	"github.com/google/uuid"
)

// MembershipRole orders privilege: OWNER > EDITOR > VIEWER.
type MembershipRole string

const (
	RoleOwner  MembershipRole = "owner"
	RoleEditor MembershipRole = "editor"
	RoleViewer MembershipRole = "viewer"
)

// Valid reports whether the role is one of the known values.
func (r MembershipRole) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// MembershipStatus is the invitation state of a membership.
type MembershipStatus string

const (
	StatusInvited MembershipStatus = "invited"
	StatusActive  MembershipStatus = "active"
)

// Membership binds a User to an Organization with a role and status. At most
// one non-deleted membership exists per (organization, user) pair.
type Membership struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrganizationID uuid.UUID        `json:"organization_id" db:"organization_id"`
	UserID         uuid.UUID        `json:"user_id" db:"user_id"`
	Role           MembershipRole   `json:"role" db:"role"`
	Status         MembershipStatus `json:"status" db:"status"`

	InvitedBy  *uuid.UUID `json:"invited_by,omitempty" db:"invited_by"`
	InvitedAt  *time.Time `json:"invited_at,omitempty" db:"invited_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty" db:"accepted_at"`

	AuditFields
	SoftDeleteFields
}

// IsOwner reports whether the member holds the owner role.
func (m *Membership) IsOwner() bool {
	return m.Role == RoleOwner
}

// IsActive reports whether the membership grants any access at all:
// accepted and not removed.
func (m *Membership) IsActive() bool {
	return m.Status == StatusActive && !m.IsDeleted()
}

// CanWrite reports whether the member may edit organization data.
func (m *Membership) CanWrite() bool {
	return (m.Role == RoleOwner || m.Role == RoleEditor) && m.IsActive()
}

// CanManageUsers reports whether the member may invite, remove, or change the
// role of other members.
func (m *Membership) CanManageUsers() bool {
	return m.Role == RoleOwner && m.IsActive()
}

// MembershipPublic is the API shape of a membership with the derived
// authorization booleans included.
type MembershipPublic struct {
	Membership
	IsOwnerFlag        bool `json:"is_owner"`
	IsActiveFlag       bool `json:"is_active"`
	CanWriteFlag       bool `json:"can_write"`
	CanManageUsersFlag bool `json:"can_manage_users"`
}

// Public derives the API shape from a membership record.
func (m *Membership) Public() MembershipPublic {
	return MembershipPublic{
		Membership:         *m,
		IsOwnerFlag:        m.IsOwner(),
		IsActiveFlag:       m.IsActive(),
		CanWriteFlag:       m.CanWrite(),
		CanManageUsersFlag: m.CanManageUsers(),
	}
}
