package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"saascore/internal/autherrors"
	"saascore/internal/caching"
	"saascore/internal/models"
	"saascore/internal/repositories"
)

// RefreshExchanger swaps the current refresh token for a replacement at an
// external provider. A nil exchanger means refresh is locally managed and a
// fresh opaque token is generated instead.
type RefreshExchanger func(ctx context.Context, refreshToken string) (string, error)

// SessionService owns the session lifecycle: pending -> active ->
// {refreshed, expired, revoked}. Access tokens are locally signed JWTs;
// refresh tokens are opaque values stored only as SHA-256 hashes. Postgres is
// authoritative; Redis is a read-through cache.
type SessionService interface {
	Issue(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, externalRefresh string) (*models.TokenResponse, error)
	Validate(ctx context.Context, accessToken string) (*models.Session, error)
	Refresh(ctx context.Context, refreshToken string, exchange RefreshExchanger) (*models.TokenResponse, error)
	Revoke(ctx context.Context, sessionID uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	SweepExpired(ctx context.Context) (int64, error)
}

type sessionService struct {
	sessionRepo repositories.SessionRepository
	cacheSvc    caching.CacheService
	jwtSecret   []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// SessionClaims is the JWT payload of a locally issued access token.
type SessionClaims struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id,omitempty"`
	SessionID      string `json:"session_id"`
	jwt.RegisteredClaims
}

func NewSessionService(sessionRepo repositories.SessionRepository, cacheSvc caching.CacheService,
	jwtSecret string, accessTTL, refreshTTL time.Duration) SessionService {
	return &sessionService{
		sessionRepo: sessionRepo,
		cacheSvc:    cacheSvc,
		jwtSecret:   []byte(jwtSecret),
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// Issue mints a token pair and activates a session for (user, organization),
// superseding any prior active session for the pair. externalRefresh carries
// the provider refresh token for provider-delegated refresh; empty means a
// local opaque refresh token is generated.
func (s *sessionService) Issue(ctx context.Context, userID uuid.UUID, organizationID *uuid.UUID, externalRefresh string) (*models.TokenResponse, error) {
	now := time.Now()
	sessionID := uuid.New()
	accessTokenID := uuid.NewString()

	refreshToken := externalRefresh
	if refreshToken == "" {
		refreshToken = generateSecureToken()
	}
	refreshHash := hashToken(refreshToken)
	refreshExpiresAt := now.Add(s.refreshTTL)

	session := &models.Session{
		ID:               sessionID,
		UserID:           userID,
		OrganizationID:   organizationID,
		State:            models.SessionActive,
		AccessTokenID:    accessTokenID,
		RefreshTokenHash: &refreshHash,
		ExpiresAt:        now.Add(s.accessTTL),
		RefreshExpiresAt: &refreshExpiresAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	superseded, err := s.sessionRepo.Issue(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	// Superseded rows are non-active now; their cached copies must not keep
	// validating until the access TTL runs out.
	for _, oldID := range superseded {
		if err := s.cacheSvc.DeleteSession(ctx, oldID); err != nil {
			log.Printf("failed to drop cached session %s: %v", oldID, err)
		}
	}

	accessToken, err := s.signAccessToken(session, now)
	if err != nil {
		return nil, err
	}

	if err := s.cacheSvc.SetSession(ctx, session, s.accessTTL); err != nil {
		log.Printf("failed to cache session %s: %v", session.ID, err)
	}
	if err := s.cacheSvc.SetRefreshLookup(ctx, refreshHash, session.ID, s.refreshTTL); err != nil {
		log.Printf("failed to cache refresh lookup for session %s: %v", session.ID, err)
	}

	resp := &models.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		RefreshToken: refreshToken,
		UserID:       userID.String(),
		SessionID:    sessionID.String(),
		IssuedAt:     now,
	}
	if organizationID != nil {
		resp.OrganizationID = organizationID.String()
	}
	return resp, nil
}

func (s *sessionService) signAccessToken(session *models.Session, now time.Time) (string, error) {
	claims := SessionClaims{
		UserID:    session.UserID.String(),
		SessionID: session.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "saascore-auth",
			Subject:   session.UserID.String(),
			Audience:  jwt.ClaimStrings{"saascore-api"},
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        session.AccessTokenID,
		},
	}
	if session.OrganizationID != nil {
		claims.OrganizationID = session.OrganizationID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return token, nil
}

// Validate parses a locally issued access token and checks the backing
// session state. The DB row is the revocation authority; the JWT alone is
// never enough.
func (s *sessionService) Validate(ctx context.Context, accessToken string) (*models.Session, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherrors.New(autherrors.KindSessionExpired, "")
		}
		return nil, autherrors.Wrap(autherrors.KindInvalidToken, "access token parse failed", err)
	}
	if !parsed.Valid {
		return nil, autherrors.New(autherrors.KindInvalidToken, "")
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, autherrors.New(autherrors.KindInvalidToken, "token has no session id")
	}

	session, err := s.lookupSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// A superseded pair presenting the old access token id is stale even if
	// the row was re-activated through refresh.
	if session.AccessTokenID != claims.ID {
		return nil, autherrors.New(autherrors.KindSessionRevoked, "token pair superseded")
	}

	switch session.State {
	case models.SessionActive:
		if session.IsExpired(time.Now()) {
			if err := s.sessionRepo.SetState(ctx, session.ID, models.SessionExpired); err != nil {
				log.Printf("failed to expire session %s: %v", session.ID, err)
			}
			return nil, autherrors.New(autherrors.KindSessionExpired, "")
		}
		return session, nil
	case models.SessionExpired:
		return nil, autherrors.New(autherrors.KindSessionExpired, "")
	case models.SessionRevoked, models.SessionRefreshed:
		return nil, autherrors.New(autherrors.KindSessionRevoked, "")
	default:
		return nil, autherrors.New(autherrors.KindSessionNotFound, "")
	}
}

func (s *sessionService) lookupSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	if cached, err := s.cacheSvc.GetSession(ctx, sessionID); err == nil {
		return cached, nil
	} else if !errors.Is(err, caching.ErrCacheMiss) {
		log.Printf("session cache read failed for %s: %v", sessionID, err)
	}
	return s.sessionRepo.GetByID(ctx, sessionID)
}

// Refresh exchanges a refresh token for a new pair. The old session moves to
// refreshed; a new active session is issued for the same (user, organization)
// pair.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string, exchange RefreshExchanger) (*models.TokenResponse, error) {
	refreshHash := hashToken(refreshToken)

	session, err := s.findByRefreshHash(ctx, refreshHash)
	if err != nil {
		return nil, err
	}

	switch session.State {
	case models.SessionActive:
		// proceed
	case models.SessionExpired:
		return nil, autherrors.New(autherrors.KindSessionExpired, "")
	case models.SessionRevoked, models.SessionRefreshed:
		return nil, autherrors.New(autherrors.KindSessionRevoked, "")
	default:
		return nil, autherrors.New(autherrors.KindSessionNotFound, "")
	}

	if session.RefreshExpiresAt != nil && time.Now().After(*session.RefreshExpiresAt) {
		if err := s.sessionRepo.SetState(ctx, session.ID, models.SessionExpired); err != nil {
			log.Printf("failed to expire session %s: %v", session.ID, err)
		}
		return nil, autherrors.New(autherrors.KindSessionExpired, "")
	}

	newRefresh := ""
	if exchange != nil {
		newRefresh, err = exchange(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
	}

	resp, err := s.Issue(ctx, session.UserID, session.OrganizationID, newRefresh)
	if err != nil {
		return nil, err
	}

	if err := s.cacheSvc.DeleteRefreshLookup(ctx, refreshHash); err != nil {
		log.Printf("failed to drop refresh lookup for session %s: %v", session.ID, err)
	}
	if err := s.cacheSvc.DeleteSession(ctx, session.ID); err != nil {
		log.Printf("failed to drop cached session %s: %v", session.ID, err)
	}
	return resp, nil
}

func (s *sessionService) findByRefreshHash(ctx context.Context, refreshHash string) (*models.Session, error) {
	if sessionID, err := s.cacheSvc.GetRefreshLookup(ctx, refreshHash); err == nil {
		if session, err := s.sessionRepo.GetByID(ctx, sessionID); err == nil {
			return session, nil
		}
	} else if !errors.Is(err, caching.ErrCacheMiss) {
		log.Printf("refresh lookup cache read failed: %v", err)
	}
	return s.sessionRepo.GetByRefreshHash(ctx, refreshHash)
}

func (s *sessionService) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessionRepo.SetState(ctx, sessionID, models.SessionRevoked); err != nil {
		return err
	}
	if err := s.cacheSvc.DeleteSession(ctx, sessionID); err != nil {
		log.Printf("failed to drop cached session %s: %v", sessionID, err)
	}
	return nil
}

func (s *sessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	revoked, err := s.sessionRepo.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, id := range revoked {
		if err := s.cacheSvc.DeleteSession(ctx, id); err != nil {
			log.Printf("failed to drop cached session %s: %v", id, err)
		}
	}
	return int64(len(revoked)), nil
}

// SweepExpired transitions active sessions past their expiry to expired and
// returns the number of rows affected.
func (s *sessionService) SweepExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.SweepExpired(ctx)
}

// generateSecureToken returns a 256-bit URL-safe random token.
func generateSecureToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is unrecoverable
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// hashToken produces the SHA-256 hex digest stored in place of the token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
