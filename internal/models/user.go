package models

import (
	"time"

	"github.com/google/uuid"
)

// ProviderType identifies the identity provider a user record is linked to.
type ProviderType string

const (
	ProviderSupabase ProviderType = "supabase"
	ProviderAuth0    ProviderType = "auth0"
	ProviderClerk    ProviderType = "clerk"
	ProviderCustom   ProviderType = "custom"
)

// User is a tenant-independent identity record. Users created through an
// external provider have a nil PasswordHash; the provider linkage fields tie
// the local record to the provider-side identity.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsSuperuser  bool      `json:"is_superuser" db:"is_superuser"`
	PasswordHash *string   `json:"-" db:"password_hash"` // Never serialize in JSON

	ProviderType     *ProviderType `json:"provider_type,omitempty" db:"provider_type"`
	ProviderUserID   *string       `json:"provider_user_id,omitempty" db:"provider_user_id"`
	ProviderEmail    *string       `json:"provider_email,omitempty" db:"provider_email"`
	ProviderMetadata JSONB         `json:"provider_metadata,omitempty" db:"provider_metadata"`

	AuditFields
	SoftDeleteFields
}

// FullName returns the display name for the user.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// AuditFields are the created/updated timestamp and actor columns shared by
// every aggregate. CreatedBy/UpdatedBy are nullable only for the first user
// bootstrap, which backfills them in the same transaction.
type AuditFields struct {
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty" db:"created_by"`
	UpdatedBy *uuid.UUID `json:"updated_by,omitempty" db:"updated_by"`
}

// SoftDeleteFields mark a record deleted without removing the row.
type SoftDeleteFields struct {
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy *uuid.UUID `json:"deleted_by,omitempty" db:"deleted_by"`
}

// IsDeleted reports whether the record has been soft-deleted.
func (s *SoftDeleteFields) IsDeleted() bool {
	return s.DeletedAt != nil
}
