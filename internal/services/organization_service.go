package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"saascore/internal/autherrors"
	"saascore/internal/models"
	"saascore/internal/repositories"
)

type OrganizationService interface {
	Create(ctx context.Context, req *CreateOrganizationRequest) (*models.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetBySlug(ctx context.Context, slugValue string) (*models.Organization, error)
	Update(ctx context.Context, req *UpdateOrganizationRequest) (*models.Organization, error)
	Delete(ctx context.Context, id, actorID uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)
}

type organizationService struct {
	orgRepo repositories.OrganizationRepository
}

func NewOrganizationService(orgRepo repositories.OrganizationRepository) OrganizationService {
	return &organizationService{orgRepo: orgRepo}
}

type CreateOrganizationRequest struct {
	Name        string    `json:"name" validate:"required"`
	Description *string   `json:"description,omitempty"`
	Website     *string   `json:"website,omitempty"`
	ActorID     uuid.UUID `json:"-"`
}

type UpdateOrganizationRequest struct {
	ID          uuid.UUID `json:"-"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Website     *string   `json:"website,omitempty"`
	LogoURL     *string   `json:"logo_url,omitempty"`
	IsActive    *bool     `json:"is_active,omitempty"`
	ActorID     uuid.UUID `json:"-"`
}

// uniqueSlug derives a URL slug from the name and appends a numeric suffix
// until it does not collide with a live organization.
func (s *organizationService) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "organization"
	}

	candidate := base
	for i := 2; ; i++ {
		exists, err := s.orgRepo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *organizationService) Create(ctx context.Context, req *CreateOrganizationRequest) (*models.Organization, error) {
	if req.Name == "" {
		return nil, autherrors.New(autherrors.KindConflict, "organization name is required")
	}

	orgSlug, err := s.uniqueSlug(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	org := &models.Organization{
		ID:          uuid.New(),
		Name:        req.Name,
		Slug:        orgSlug,
		Description: req.Description,
		Website:     req.Website,
		IsActive:    true,
	}
	org.CreatedBy = &req.ActorID
	org.UpdatedBy = &req.ActorID

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return s.orgRepo.GetByID(ctx, id)
}

func (s *organizationService) GetBySlug(ctx context.Context, slugValue string) (*models.Organization, error) {
	return s.orgRepo.GetBySlug(ctx, slugValue)
}

func (s *organizationService) Update(ctx context.Context, req *UpdateOrganizationRequest) (*models.Organization, error) {
	org, err := s.orgRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != org.Name {
		org.Name = *req.Name
		newSlug, err := s.uniqueSlug(ctx, org.Name)
		if err != nil {
			return nil, err
		}
		org.Slug = newSlug
	}
	if req.Description != nil {
		org.Description = req.Description
	}
	if req.Website != nil {
		org.Website = req.Website
	}
	if req.LogoURL != nil {
		org.LogoURL = req.LogoURL
	}
	if req.IsActive != nil {
		org.IsActive = *req.IsActive
	}
	org.UpdatedBy = &req.ActorID

	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *organizationService) Delete(ctx context.Context, id, actorID uuid.UUID) error {
	return s.orgRepo.SoftDelete(ctx, id, actorID)
}

func (s *organizationService) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	return s.orgRepo.List(ctx, limit, offset)
}
