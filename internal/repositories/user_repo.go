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

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateSelfAudited(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderUserID(ctx context.Context, providerUserID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error
	CountActive(ctx context.Context) (int64, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

type userRepo struct {
	db DB
}

func NewUserRepo(db DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, email, first_name, last_name, is_active, is_superuser, password_hash,
		provider_type, provider_user_id, provider_email, provider_metadata,
		created_at, updated_at, created_by, updated_by, deleted_at, deleted_by`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.IsActive,
		&user.IsSuperuser, &user.PasswordHash, &user.ProviderType, &user.ProviderUserID,
		&user.ProviderEmail, &user.ProviderMetadata, &user.CreatedAt, &user.UpdatedAt,
		&user.CreatedBy, &user.UpdatedBy, &user.DeletedAt, &user.DeletedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.New(autherrors.KindUserNotFound, "")
		}
		return nil, err
	}
	return user, nil
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, first_name, last_name, is_active, is_superuser, password_hash,
			provider_type, provider_user_id, provider_email, provider_metadata,
			created_at, updated_at, created_by, updated_by)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW(), $12, $13)
	`
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.FirstName, user.LastName,
		user.IsActive, user.IsSuperuser, user.PasswordHash, user.ProviderType,
		user.ProviderUserID, user.ProviderEmail, user.ProviderMetadata,
		user.CreatedBy, user.UpdatedBy)
	if err != nil {
		return conflictOr(err, fmt.Sprintf("user with email %q already exists", user.Email))
	}
	return nil
}

// CreateSelfAudited inserts the very first user, whose audit actor fields
// reference itself. The insert and backfill run in one transaction so the
// record never leaks with null actors.
func (r *userRepo) CreateSelfAudited(ctx context.Context, user *models.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin bootstrap transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO users (id, email, first_name, last_name, is_active, is_superuser, password_hash,
			provider_type, provider_user_id, provider_email, provider_metadata,
			created_at, updated_at, created_by, updated_by)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW(), NULL, NULL)
	`
	if _, err := tx.Exec(ctx, insert, user.ID, user.Email, user.FirstName, user.LastName,
		user.IsActive, user.IsSuperuser, user.PasswordHash, user.ProviderType,
		user.ProviderUserID, user.ProviderEmail, user.ProviderMetadata); err != nil {
		return conflictOr(err, fmt.Sprintf("user with email %q already exists", user.Email))
	}

	backfill := `UPDATE users SET created_by = id, updated_by = id WHERE id = $1`
	if _, err := tx.Exec(ctx, backfill, user.ID); err != nil {
		return fmt.Errorf("failed to backfill audit actors: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit bootstrap transaction: %w", err)
	}
	user.CreatedBy = &user.ID
	user.UpdatedBy = &user.ID
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1) AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *userRepo) GetByProviderUserID(ctx context.Context, providerUserID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE provider_user_id = $1 AND deleted_at IS NULL`
	return scanUser(r.db.QueryRow(ctx, query, providerUserID))
}

func (r *userRepo) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET email = lower($1), first_name = $2, last_name = $3, is_active = $4,
			password_hash = $5, provider_type = $6, provider_user_id = $7,
			provider_email = $8, provider_metadata = $9, updated_at = NOW(), updated_by = $10
		WHERE id = $11 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, user.Email, user.FirstName, user.LastName, user.IsActive,
		user.PasswordHash, user.ProviderType, user.ProviderUserID, user.ProviderEmail,
		user.ProviderMetadata, user.UpdatedBy, user.ID)
	if err != nil {
		return conflictOr(err, fmt.Sprintf("user with email %q already exists", user.Email))
	}
	if tag.RowsAffected() == 0 {
		return autherrors.New(autherrors.KindUserNotFound, "")
	}
	return nil
}

func (r *userRepo) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	query := `
		UPDATE users
		SET deleted_at = NOW(), deleted_by = $1, updated_at = NOW(), updated_by = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, deletedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return autherrors.New(autherrors.KindUserNotFound, "")
	}
	return nil
}

func (r *userRepo) CountActive(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
