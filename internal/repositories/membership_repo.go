package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"saascore/internal/autherrors"
	"saascore/internal/models"
)

type MembershipRepository interface {
	Create(ctx context.Context, membership *models.Membership) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	GetByOrgAndUser(ctx context.Context, organizationID, userID uuid.UUID) (*models.Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*models.Membership, error)
	Update(ctx context.Context, membership *models.Membership) error
	SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error
}

type membershipRepo struct {
	db DB
}

func NewMembershipRepo(db DB) MembershipRepository {
	return &membershipRepo{db: db}
}

const membershipColumns = `id, organization_id, user_id, role, status,
		invited_by, invited_at, accepted_at,
		created_at, updated_at, created_by, updated_by, deleted_at, deleted_by`

func scanMembership(row pgx.Row) (*models.Membership, error) {
	m := &models.Membership{}
	err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.Status,
		&m.InvitedBy, &m.InvitedAt, &m.AcceptedAt,
		&m.CreatedAt, &m.UpdatedAt, &m.CreatedBy, &m.UpdatedBy, &m.DeletedAt, &m.DeletedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.New(autherrors.KindNotFound, "membership not found")
		}
		return nil, err
	}
	return m, nil
}

func (r *membershipRepo) Create(ctx context.Context, membership *models.Membership) error {
	// The partial unique index on (organization_id, user_id) where
	// deleted_at IS NULL backs the one-membership-per-pair invariant.
	query := `
		INSERT INTO memberships (id, organization_id, user_id, role, status,
			invited_by, invited_at, accepted_at, created_at, updated_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), $9, $10)
	`
	_, err := r.db.Exec(ctx, query, membership.ID, membership.OrganizationID, membership.UserID,
		membership.Role, membership.Status, membership.InvitedBy, membership.InvitedAt,
		membership.AcceptedAt, membership.CreatedBy, membership.UpdatedBy)
	if err != nil {
		return conflictOr(err, "user already has a membership in this organization")
	}
	return nil
}

func (r *membershipRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	query := `SELECT ` + membershipColumns + ` FROM memberships WHERE id = $1 AND deleted_at IS NULL`
	return scanMembership(r.db.QueryRow(ctx, query, id))
}

func (r *membershipRepo) GetByOrgAndUser(ctx context.Context, organizationID, userID uuid.UUID) (*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE organization_id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	return scanMembership(r.db.QueryRow(ctx, query, organizationID, userID))
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *membershipRepo) ListByOrganization(ctx context.Context, organizationID uuid.UUID, limit, offset int) ([]*models.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE organization_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, organizationID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func (r *membershipRepo) Update(ctx context.Context, membership *models.Membership) error {
	query := `
		UPDATE memberships
		SET role = $1, status = $2, accepted_at = $3, updated_at = NOW(), updated_by = $4
		WHERE id = $5 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, membership.Role, membership.Status,
		membership.AcceptedAt, membership.UpdatedBy, membership.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return autherrors.New(autherrors.KindNotFound, "membership not found")
	}
	return nil
}

func (r *membershipRepo) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	query := `
		UPDATE memberships
		SET deleted_at = NOW(), deleted_by = $1, updated_at = NOW(), updated_by = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, deletedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return autherrors.New(autherrors.KindNotFound, "membership not found")
	}
	return nil
}
