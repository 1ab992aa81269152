package models

import (
	"github.com/google/uuid"
)

// Organization is the tenant boundary. The slug is unique among non-deleted
// organizations and is what appears in URLs.
type Organization struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Slug        string    `json:"slug" db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	Website     *string   `json:"website,omitempty" db:"website"`
	LogoURL     *string   `json:"logo_url,omitempty" db:"logo_url"`
	IsActive    bool      `json:"is_active" db:"is_active"`

	AuditFields
	SoftDeleteFields
}
