package local

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"saascore/internal/autherrors"
	"saascore/internal/models"
	"saascore/internal/providers"
)

// memoryStore is an in-memory CredentialStore for provider tests.
type memoryStore struct {
	byEmail map[string]*models.User
	byPID   map[string]*models.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byEmail: make(map[string]*models.User),
		byPID:   make(map[string]*models.User),
	}
}

func (s *memoryStore) add(user *models.User) {
	s.byEmail[user.Email] = user
	if user.ProviderUserID != nil {
		s.byPID[*user.ProviderUserID] = user
	}
}

func (s *memoryStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, autherrors.New(autherrors.KindUserNotFound, "")
	}
	return user, nil
}

func (s *memoryStore) GetByProviderUserID(ctx context.Context, providerUserID string) (*models.User, error) {
	user, ok := s.byPID[providerUserID]
	if !ok {
		return nil, autherrors.New(autherrors.KindUserNotFound, "")
	}
	return user, nil
}

func (s *memoryStore) Create(ctx context.Context, user *models.User) error {
	if _, exists := s.byEmail[user.Email]; exists {
		return autherrors.New(autherrors.KindConflict, "")
	}
	s.add(user)
	return nil
}

func (s *memoryStore) Update(ctx context.Context, user *models.User) error {
	s.add(user)
	return nil
}

func (s *memoryStore) SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error {
	for email, user := range s.byEmail {
		if user.ID == id {
			delete(s.byEmail, email)
			if user.ProviderUserID != nil {
				delete(s.byPID, *user.ProviderUserID)
			}
		}
	}
	return nil
}

func newLocalProvider(t *testing.T, store CredentialStore) providers.Provider {
	t.Helper()
	factory := NewFactory(store)
	p, err := factory(providers.Config{"jwt_secret": "local-test-secret"})
	require.NoError(t, err)
	return p
}

func storedUser(t *testing.T, email, password string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	hashStr := string(hash)

	id := uuid.New()
	providerType := models.ProviderCustom
	pid := id.String()
	return &models.User{
		ID:             id,
		Email:          email,
		FirstName:      "Ana",
		LastName:       "Reyes",
		IsActive:       active,
		PasswordHash:   &hashStr,
		ProviderType:   &providerType,
		ProviderUserID: &pid,
		ProviderEmail:  &email,
	}
}

func TestFactoryRequiresSecret(t *testing.T) {
	factory := NewFactory(newMemoryStore())
	_, err := factory(providers.Config{})
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	p := newLocalProvider(t, newMemoryStore())
	caps := p.Capabilities()
	assert.Equal(t, "custom", caps.Name)
	assert.True(t, caps.LocalRefresh)
}

func TestAuthenticateSuccess(t *testing.T) {
	store := newMemoryStore()
	user := storedUser(t, "ana@example.com", "secret12", true)
	store.add(user)
	p := newLocalProvider(t, store)

	result, err := p.Authenticate(context.Background(), "ana@example.com", "secret12")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), result.User.ProviderUserID)
	assert.Equal(t, models.ProviderCustom, result.User.ProviderType)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	// Local tokens carry no provider refresh token; refresh stays session-side.
	assert.Empty(t, result.Tokens.RefreshToken)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	store := newMemoryStore()
	store.add(storedUser(t, "ana@example.com", "secret12", true))
	p := newLocalProvider(t, store)

	_, err := p.Authenticate(context.Background(), "ana@example.com", "wrong-pw")
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidCredentials))
}

func TestAuthenticateUnknownEmailMatchesWrongPassword(t *testing.T) {
	p := newLocalProvider(t, newMemoryStore())

	_, err := p.Authenticate(context.Background(), "nobody@example.com", "whatever")
	// Unknown email and wrong password are indistinguishable to the caller.
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidCredentials))
}

func TestAuthenticateInactiveUser(t *testing.T) {
	store := newMemoryStore()
	store.add(storedUser(t, "ana@example.com", "secret12", false))
	p := newLocalProvider(t, store)

	_, err := p.Authenticate(context.Background(), "ana@example.com", "secret12")
	assert.True(t, autherrors.IsKind(err, autherrors.KindUserInactive))
}

func TestValidateTokenRoundTrip(t *testing.T) {
	store := newMemoryStore()
	user := storedUser(t, "ana@example.com", "secret12", true)
	store.add(user)
	p := newLocalProvider(t, store)

	result, err := p.Authenticate(context.Background(), "ana@example.com", "secret12")
	require.NoError(t, err)

	claims, err := p.ValidateToken(context.Background(), result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.ProviderUserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestValidateTokenGarbage(t *testing.T) {
	p := newLocalProvider(t, newMemoryStore())

	_, err := p.ValidateToken(context.Background(), "not-a-jwt")
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidToken))
}

func TestRefreshTokenNotSupported(t *testing.T) {
	p := newLocalProvider(t, newMemoryStore())

	_, err := p.RefreshToken(context.Background(), "any")
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidToken))
}

func TestCreateUserPersistsLocalIdentity(t *testing.T) {
	store := newMemoryStore()
	p := newLocalProvider(t, store)

	user, err := p.CreateUser(context.Background(), "ben@example.com", "secret12", map[string]interface{}{
		"first_name": "Ben",
		"last_name":  "Okafor",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProviderCustom, user.ProviderType)
	assert.True(t, user.EmailConfirmed)

	stored, err := store.GetByEmail(context.Background(), "ben@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.ProviderUserID)
	// The local provider is its own identity store: provider id is the row id.
	assert.Equal(t, stored.ID.String(), *stored.ProviderUserID)
	require.NotNil(t, stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*stored.PasswordHash), []byte("secret12")))
	assert.Equal(t, "Ben", stored.FirstName)
}

func TestCreateUserDuplicate(t *testing.T) {
	store := newMemoryStore()
	store.add(storedUser(t, "ana@example.com", "secret12", true))
	p := newLocalProvider(t, store)

	_, err := p.CreateUser(context.Background(), "ana@example.com", "secret12", nil)
	assert.True(t, autherrors.IsKind(err, autherrors.KindUserAlreadyExists))
}

func TestResetPasswordWithValidToken(t *testing.T) {
	store := newMemoryStore()
	store.add(storedUser(t, "ana@example.com", "old-secret", true))
	p := newLocalProvider(t, store)

	result, err := p.Authenticate(context.Background(), "ana@example.com", "old-secret")
	require.NoError(t, err)

	ok, err := p.ResetPassword(context.Background(), result.Tokens.AccessToken, "new-secret")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = p.Authenticate(context.Background(), "ana@example.com", "old-secret")
	assert.True(t, autherrors.IsKind(err, autherrors.KindInvalidCredentials))

	_, err = p.Authenticate(context.Background(), "ana@example.com", "new-secret")
	assert.NoError(t, err)
}

func TestDeleteUserSoftDeletes(t *testing.T) {
	store := newMemoryStore()
	user := storedUser(t, "ana@example.com", "secret12", true)
	store.add(user)
	p := newLocalProvider(t, store)

	ok, err := p.DeleteUser(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.GetByEmail(context.Background(), "ana@example.com")
	assert.True(t, autherrors.IsKind(err, autherrors.KindUserNotFound))
}
