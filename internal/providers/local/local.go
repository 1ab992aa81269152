package local

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"saascore/internal/autherrors"
	"saascore/internal/models"
	"saascore/internal/providers"
)

// CredentialStore is the narrow persistence surface the local provider needs.
// The user repository satisfies it; for the custom provider the local users
// table is the identity store.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderUserID(ctx context.Context, providerUserID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SoftDelete(ctx context.Context, id, deletedBy uuid.UUID) error
}

// Provider authenticates against locally stored bcrypt hashes and issues its
// own HS256 tokens. Refresh is owned by the session manager, so
// LocalRefresh is true.
type Provider struct {
	store     CredentialStore
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewFactory returns a registry factory closed over the credential store.
// Unlike self-contained providers, the local provider is registered during
// startup wiring because it needs the repository injected.
func NewFactory(store CredentialStore) providers.Factory {
	return func(cfg providers.Config) (providers.Provider, error) {
		secret := cfg["jwt_secret"]
		if secret == "" {
			return nil, fmt.Errorf("local: jwt_secret is required")
		}
		ttl := time.Hour
		if raw := cfg["access_token_ttl"]; raw != "" {
			seconds, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("local: invalid access_token_ttl %q", raw)
			}
			ttl = time.Duration(seconds) * time.Second
		}
		return &Provider{store: store, jwtSecret: []byte(secret), tokenTTL: ttl}, nil
	}
}

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: "custom", LocalRefresh: true}
}

func (p *Provider) toAuthUser(user *models.User) providers.AuthUser {
	return providers.AuthUser{
		ProviderUserID: user.ID.String(),
		Email:          user.Email,
		ProviderType:   models.ProviderCustom,
		EmailConfirmed: true,
		ProviderMetadata: map[string]interface{}{
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func (p *Provider) Authenticate(ctx context.Context, email, password string) (*providers.AuthResult, error) {
	user, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if autherrors.IsKind(err, autherrors.KindUserNotFound) {
			// Same signal as a wrong password so emails cannot be enumerated.
			return nil, autherrors.New(autherrors.KindInvalidCredentials, "")
		}
		return nil, autherrors.Wrap(autherrors.KindProviderUnavailable, "credential store unavailable", err)
	}
	if !user.IsActive {
		return nil, autherrors.New(autherrors.KindUserInactive, "")
	}
	if user.PasswordHash == nil {
		return nil, autherrors.New(autherrors.KindInvalidCredentials, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, autherrors.New(autherrors.KindInvalidCredentials, "")
	}

	token, expiresAt, err := p.signToken(user)
	if err != nil {
		return nil, err
	}

	return &providers.AuthResult{
		User: p.toAuthUser(user),
		Tokens: providers.TokenPair{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresAt:   expiresAt,
		},
	}, nil
}

func (p *Provider) signToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(p.tokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    "saascore-local",
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("local: failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

func (p *Provider) ValidateToken(ctx context.Context, token string) (*providers.Claims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherrors.New(autherrors.KindTokenExpired, "")
		}
		return nil, autherrors.Wrap(autherrors.KindInvalidToken, "token parse failed", err)
	}
	if !parsed.Valid {
		return nil, autherrors.New(autherrors.KindInvalidToken, "")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, autherrors.New(autherrors.KindInvalidToken, "token has no subject")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, autherrors.New(autherrors.KindInvalidToken, "token has no expiry")
	}

	return &providers.Claims{ProviderUserID: sub, ExpiresAt: exp.Time, Raw: claims}, nil
}

// RefreshToken is never reached in practice: LocalRefresh routes refresh
// through the session manager.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*providers.TokenPair, error) {
	return nil, autherrors.New(autherrors.KindInvalidToken, "local provider does not exchange refresh tokens")
}

func (p *Provider) CreateUser(ctx context.Context, email, password string, profile map[string]interface{}) (*providers.AuthUser, error) {
	if _, err := p.store.GetByEmail(ctx, email); err == nil {
		return nil, autherrors.New(autherrors.KindUserAlreadyExists, "")
	} else if !autherrors.IsKind(err, autherrors.KindUserNotFound) {
		return nil, autherrors.Wrap(autherrors.KindProviderUnavailable, "credential store unavailable", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("local: failed to hash password: %w", err)
	}
	hashStr := string(hash)

	id := uuid.New()
	providerType := models.ProviderCustom
	providerUserID := id.String()
	user := &models.User{
		ID:             id,
		Email:          email,
		FirstName:      stringField(profile, "first_name"),
		LastName:       stringField(profile, "last_name"),
		IsActive:       true,
		PasswordHash:   &hashStr,
		ProviderType:   &providerType,
		ProviderUserID: &providerUserID,
		ProviderEmail:  &email,
	}
	if err := p.store.Create(ctx, user); err != nil {
		if autherrors.IsKind(err, autherrors.KindConflict) {
			return nil, autherrors.New(autherrors.KindUserAlreadyExists, "")
		}
		return nil, autherrors.Wrap(autherrors.KindProviderUnavailable, "credential store unavailable", err)
	}

	authUser := p.toAuthUser(user)
	return &authUser, nil
}

func (p *Provider) GetUserByID(ctx context.Context, providerUserID string) (*providers.AuthUser, error) {
	user, err := p.store.GetByProviderUserID(ctx, providerUserID)
	if err != nil {
		return nil, err
	}
	authUser := p.toAuthUser(user)
	return &authUser, nil
}

func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*providers.AuthUser, error) {
	user, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	authUser := p.toAuthUser(user)
	return &authUser, nil
}

func (p *Provider) UpdateUser(ctx context.Context, providerUserID string, patch providers.UserPatch) (*providers.AuthUser, error) {
	user, err := p.store.GetByProviderUserID(ctx, providerUserID)
	if err != nil {
		return nil, err
	}
	if patch.Email != nil {
		user.Email = *patch.Email
	}
	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("local: failed to hash password: %w", err)
		}
		hashStr := string(hash)
		user.PasswordHash = &hashStr
	}
	if first := stringField(patch.Metadata, "first_name"); first != "" {
		user.FirstName = first
	}
	if last := stringField(patch.Metadata, "last_name"); last != "" {
		user.LastName = last
	}
	if err := p.store.Update(ctx, user); err != nil {
		return nil, err
	}
	authUser := p.toAuthUser(user)
	return &authUser, nil
}

func (p *Provider) DeleteUser(ctx context.Context, providerUserID string) (bool, error) {
	user, err := p.store.GetByProviderUserID(ctx, providerUserID)
	if err != nil {
		return false, err
	}
	if err := p.store.SoftDelete(ctx, user.ID, user.ID); err != nil {
		return false, err
	}
	return true, nil
}

// Logout is a no-op: local tokens are stateless and the session manager is
// the revocation authority.
func (p *Provider) Logout(ctx context.Context, providerUserID string, sessionID *string) (bool, error) {
	return true, nil
}

// SendPasswordReset always reports success; wiring an outbound mailer is the
// deployment's concern and the uniform answer avoids email enumeration.
func (p *Provider) SendPasswordReset(ctx context.Context, email string) (bool, error) {
	return true, nil
}

func (p *Provider) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	claims, err := p.ValidateToken(ctx, token)
	if err != nil {
		return false, err
	}
	newPass := newPassword
	if _, err := p.UpdateUser(ctx, claims.ProviderUserID, providers.UserPatch{Password: &newPass}); err != nil {
		return false, err
	}
	return true, nil
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}
