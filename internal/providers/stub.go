package providers

import (
	"context"
	"fmt"

	"saascore/internal/autherrors"
)

// Stub is the provider returned for unregistered names. Every operation
// fails deterministically with ProviderNotConfigured.
type Stub struct {
	name string
}

// NewStub creates a stub remembering the name that failed to resolve.
func NewStub(name string) *Stub {
	return &Stub{name: name}
}

func (s *Stub) err() error {
	return autherrors.New(autherrors.KindProviderNotConfigured,
		fmt.Sprintf("provider %q is not registered", s.name))
}

func (s *Stub) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	return nil, s.err()
}

func (s *Stub) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	return nil, s.err()
}

func (s *Stub) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return nil, s.err()
}

func (s *Stub) CreateUser(ctx context.Context, email, password string, profile map[string]interface{}) (*AuthUser, error) {
	return nil, s.err()
}

func (s *Stub) GetUserByID(ctx context.Context, providerUserID string) (*AuthUser, error) {
	return nil, s.err()
}

func (s *Stub) GetUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	return nil, s.err()
}

func (s *Stub) UpdateUser(ctx context.Context, providerUserID string, patch UserPatch) (*AuthUser, error) {
	return nil, s.err()
}

func (s *Stub) DeleteUser(ctx context.Context, providerUserID string) (bool, error) {
	return false, s.err()
}

func (s *Stub) Logout(ctx context.Context, providerUserID string, sessionID *string) (bool, error) {
	return false, s.err()
}

func (s *Stub) SendPasswordReset(ctx context.Context, email string) (bool, error) {
	return false, s.err()
}

func (s *Stub) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	return false, s.err()
}

func (s *Stub) Capabilities() Capabilities {
	return Capabilities{Name: s.name, LocalRefresh: false}
}
