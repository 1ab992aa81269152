package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"saascore/internal/autherrors"
	"saascore/internal/models"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, org *models.Organization) error
	SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.Organization, error)
}

type organizationRepo struct {
	db DB
}

func NewOrganizationRepo(db DB) OrganizationRepository {
	return &organizationRepo{db: db}
}

const orgColumns = `id, name, slug, description, website, logo_url, is_active,
		created_at, updated_at, created_by, updated_by, deleted_at, deleted_by`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.Description, &org.Website,
		&org.LogoURL, &org.IsActive, &org.CreatedAt, &org.UpdatedAt,
		&org.CreatedBy, &org.UpdatedBy, &org.DeletedAt, &org.DeletedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.New(autherrors.KindNotFound, "organization not found")
		}
		return nil, err
	}
	return org, nil
}

func (r *organizationRepo) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, slug, description, website, logo_url, is_active,
			created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), $8, $9)
	`
	_, err := r.db.Exec(ctx, query, org.ID, org.Name, org.Slug, org.Description,
		org.Website, org.LogoURL, org.IsActive, org.CreatedBy, org.UpdatedBy)
	if err != nil {
		return conflictOr(err, fmt.Sprintf("organization slug %q already exists", org.Slug))
	}
	return nil
}

func (r *organizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1 AND deleted_at IS NULL`
	return scanOrganization(r.db.QueryRow(ctx, query, id))
}

func (r *organizationRepo) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1 AND deleted_at IS NULL`
	return scanOrganization(r.db.QueryRow(ctx, query, slug))
}

func (r *organizationRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM organizations WHERE slug = $1 AND deleted_at IS NULL)`
	if err := r.db.QueryRow(ctx, query, slug).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

func (r *organizationRepo) Update(ctx context.Context, org *models.Organization) error {
	query := `
		UPDATE organizations
		SET name = $1, slug = $2, description = $3, website = $4, logo_url = $5,
			is_active = $6, updated_at = NOW(), updated_by = $7
		WHERE id = $8 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, org.Name, org.Slug, org.Description, org.Website,
		org.LogoURL, org.IsActive, org.UpdatedBy, org.ID)
	if err != nil {
		return conflictOr(err, fmt.Sprintf("organization slug %q already exists", org.Slug))
	}
	if tag.RowsAffected() == 0 {
		return autherrors.New(autherrors.KindNotFound, "organization not found")
	}
	return nil
}

func (r *organizationRepo) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	query := `
		UPDATE organizations
		SET deleted_at = NOW(), deleted_by = $1, updated_at = NOW(), updated_by = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, deletedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return autherrors.New(autherrors.KindNotFound, "organization not found")
	}
	return nil
}

func (r *organizationRepo) List(ctx context.Context, limit, offset int) ([]*models.Organization, error) {
	query := `
		SELECT ` + orgColumns + `
		FROM organizations
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}
