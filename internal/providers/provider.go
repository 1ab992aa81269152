package providers

import (
	"context"
	"time"

	"saascore/internal/models"
)

// AuthUser is the provider-side view of an identity.
type AuthUser struct {
	ProviderUserID   string
	Email            string
	ProviderType     models.ProviderType
	EmailConfirmed   bool
	ProviderMetadata map[string]interface{}
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TokenPair is an access/refresh token pair minted by a provider.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}

// AuthResult is the outcome of a successful credential verification.
type AuthResult struct {
	User            AuthUser
	Tokens          TokenPair
	SessionMetadata map[string]interface{}
}

// Claims is the decoded content of a validated access token. ProviderUserID
// and expiry are always present; the rest is provider-specific.
type Claims struct {
	ProviderUserID string
	Email          string
	ExpiresAt      time.Time
	Raw            map[string]interface{}
}

// UserPatch is a partial update applied to a provider-side user.
type UserPatch struct {
	Email    *string
	Password *string
	Metadata map[string]interface{}
}

// Capabilities describe behavior that varies between providers. LocalRefresh
// means refresh tokens are owned by the session manager rather than exchanged
// at the provider.
type Capabilities struct {
	Name         string
	LocalRefresh bool
}

// Provider is the capability set any identity provider must implement. All
// methods take a context and are bounded by the caller's deadline; a timed
// out call surfaces as ProviderUnavailable, never as InvalidCredentials.
// Implementations touch only the external identity store, never local
// persistence.
type Provider interface {
	Authenticate(ctx context.Context, email, password string) (*AuthResult, error)
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)

	CreateUser(ctx context.Context, email, password string, profile map[string]interface{}) (*AuthUser, error)
	GetUserByID(ctx context.Context, providerUserID string) (*AuthUser, error)
	GetUserByEmail(ctx context.Context, email string) (*AuthUser, error)
	UpdateUser(ctx context.Context, providerUserID string, patch UserPatch) (*AuthUser, error)
	DeleteUser(ctx context.Context, providerUserID string) (bool, error)

	Logout(ctx context.Context, providerUserID string, sessionID *string) (bool, error)
	SendPasswordReset(ctx context.Context, email string) (bool, error)
	ResetPassword(ctx context.Context, token, newPassword string) (bool, error)

	Capabilities() Capabilities
}
