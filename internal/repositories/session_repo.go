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

type SessionRepository interface {
	// Issue supersedes any active session for the same (user, organization)
	// pair and inserts the new one atomically. It returns the IDs of the
	// superseded sessions so callers can evict their cached copies.
	Issue(ctx context.Context, session *models.Session) ([]uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	GetByRefreshHash(ctx context.Context, refreshHash string) (*models.Session, error)
	SetState(ctx context.Context, id uuid.UUID, state models.SessionState) error
	// RevokeAllForUser revokes every active session of the user and returns
	// their IDs for cache eviction.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	SweepExpired(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db DB
}

func NewSessionRepo(db DB) SessionRepository {
	return &sessionRepo{db: db}
}

const sessionColumns = `id, user_id, organization_id, state, access_token_id,
		refresh_token_hash, expires_at, refresh_expires_at, created_at, updated_at, revoked_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	s := &models.Session{}
	err := row.Scan(&s.ID, &s.UserID, &s.OrganizationID, &s.State, &s.AccessTokenID,
		&s.RefreshTokenHash, &s.ExpiresAt, &s.RefreshExpiresAt, &s.CreatedAt, &s.UpdatedAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, autherrors.New(autherrors.KindSessionNotFound, "")
		}
		return nil, err
	}
	return s, nil
}

// Issue marks any prior active session for the (user, organization) pair as
// refreshed and inserts the new active session inside one transaction. A
// partial unique index on (user_id, organization_id) WHERE state = 'active'
// closes the window where two concurrent logins both observe no active
// session: the loser's insert fails with a unique violation and is retried
// once after superseding the winner's row.
func (r *sessionRepo) Issue(ctx context.Context, session *models.Session) ([]uuid.UUID, error) {
	for attempt := 0; attempt < 2; attempt++ {
		superseded, err := r.issueOnce(ctx, session)
		if err == nil {
			return superseded, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
	}
	return nil, autherrors.New(autherrors.KindConflict, "concurrent session issue for user")
}

func (r *sessionRepo) issueOnce(ctx context.Context, session *models.Session) ([]uuid.UUID, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	supersede := `
		UPDATE sessions
		SET state = 'refreshed', updated_at = NOW()
		WHERE user_id = $1 AND organization_id IS NOT DISTINCT FROM $2 AND state = 'active'
		RETURNING id
	`
	superseded, err := scanIDs(tx.Query(ctx, supersede, session.UserID, session.OrganizationID))
	if err != nil {
		return nil, fmt.Errorf("failed to supersede active session: %w", err)
	}

	insert := `
		INSERT INTO sessions (id, user_id, organization_id, state, access_token_id,
			refresh_token_hash, expires_at, refresh_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, insert, session.ID, session.UserID, session.OrganizationID,
		session.State, session.AccessTokenID, session.RefreshTokenHash,
		session.ExpiresAt, session.RefreshExpiresAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit session transaction: %w", err)
	}
	return superseded, nil
}

func scanIDs(rows pgx.Rows, err error) ([]uuid.UUID, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, id))
}

func (r *sessionRepo) GetByRefreshHash(ctx context.Context, refreshHash string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE refresh_token_hash = $1`
	return scanSession(r.db.QueryRow(ctx, query, refreshHash))
}

func (r *sessionRepo) SetState(ctx context.Context, id uuid.UUID, state models.SessionState) error {
	query := `
		UPDATE sessions
		SET state = $1, updated_at = NOW(),
			revoked_at = CASE WHEN $1 = 'revoked' THEN NOW() ELSE revoked_at END
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, state, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return autherrors.New(autherrors.KindSessionNotFound, "")
	}
	return nil
}

func (r *sessionRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE sessions
		SET state = 'revoked', revoked_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND state = 'active'
		RETURNING id
	`
	return scanIDs(r.db.Query(ctx, query, userID))
}

// SweepExpired moves active sessions past their expiry to expired. Rows are
// disjoint between concurrent sweeps, so it is safe to run from multiple
// scheduler instances.
func (r *sessionRepo) SweepExpired(ctx context.Context) (int64, error) {
	query := `
		UPDATE sessions
		SET state = 'expired', updated_at = NOW()
		WHERE state = 'active' AND expires_at < NOW()
	`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
