package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"saascore/internal/autherrors"
)

// DB is the query surface repositories need. Both *pgxpool.Pool and the
// pgxmock pool satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// conflictOr maps unique violations to the Conflict kind and passes other
// errors through.
func conflictOr(err error, message string) error {
	if isUniqueViolation(err) {
		return autherrors.New(autherrors.KindConflict, message)
	}
	return err
}
