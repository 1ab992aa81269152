package testhelpers

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"saascore/internal/models"
)

// TestDB holds the database connection for integration tests.
type TestDB struct {
	Pool    *pgxpool.Pool
	Cleanup func() error
}

// SetupTestDB creates a pooled connection for testing.
func SetupTestDB(t *testing.T, connString string) *TestDB {
	t.Helper()

	if connString == "" {
		connString = os.Getenv("TEST_DATABASE_URL")
		if connString == "" {
			connString = "host=localhost port=5432 user=postgres password=postgres dbname=saascore_test sslmode=disable"
		}
	}

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	return &TestDB{
		Pool: pool,
		Cleanup: func() error {
			pool.Close()
			return nil
		},
	}
}

// SetupTestUser inserts a self-audited active user.
func SetupTestUser(t *testing.T, db *TestDB, email string) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	query := `
		INSERT INTO users (id, email, first_name, last_name, is_active, created_by, updated_by)
		VALUES ($1, lower($2), 'Test', 'User', TRUE, $1, $1)
	`
	_, err := db.Pool.Exec(context.Background(), query, userID, email)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return userID
}

// SetupTestOrganization inserts an organization owned by the given actor.
func SetupTestOrganization(t *testing.T, db *TestDB, actorID uuid.UUID, name, slug string) uuid.UUID {
	t.Helper()

	orgID := uuid.New()
	query := `
		INSERT INTO organizations (id, name, slug, is_active, created_by, updated_by)
		VALUES ($1, $2, $3, TRUE, $4, $4)
	`
	_, err := db.Pool.Exec(context.Background(), query, orgID, name, slug, actorID)
	if err != nil {
		t.Fatalf("Failed to create test organization: %v", err)
	}
	return orgID
}

// SetupTestMembership links a user to an organization in the active state.
func SetupTestMembership(t *testing.T, db *TestDB, orgID, userID uuid.UUID, role models.MembershipRole) uuid.UUID {
	t.Helper()

	membershipID := uuid.New()
	query := `
		INSERT INTO memberships (id, organization_id, user_id, role, status, accepted_at, created_by, updated_by)
		VALUES ($1, $2, $3, $4, 'active', NOW(), $3, $3)
	`
	_, err := db.Pool.Exec(context.Background(), query, membershipID, orgID, userID, role)
	if err != nil {
		t.Fatalf("Failed to create test membership: %v", err)
	}
	return membershipID
}
