package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"saascore/internal/models"
)

// ErrCacheMiss is returned when a key is absent. Callers fall through to the
// database; the cache is never authoritative for session state.
var ErrCacheMiss = errors.New("cache miss")

type CacheService interface {
	// Session caching
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error

	// Refresh token hash -> session id lookups
	SetRefreshLookup(ctx context.Context, refreshHash string, sessionID uuid.UUID, ttl time.Duration) error
	GetRefreshLookup(ctx context.Context, refreshHash string) (uuid.UUID, error)
	DeleteRefreshLookup(ctx context.Context, refreshHash string) error

	// Generic string operations
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("WARN: redis ping failed on initialization: %v (address: %s)", err, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func sessionKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func refreshKey(refreshHash string) string {
	return fmt.Sprintf("refresh_token:%s", refreshHash)
}

// cachedSession is the cache wire form of a session. models.Session hides
// token material from API responses with json:"-" tags; the cache must keep
// those fields intact or a cache hit would lose the access token binding.
type cachedSession struct {
	ID               uuid.UUID           `json:"id"`
	UserID           uuid.UUID           `json:"user_id"`
	OrganizationID   *uuid.UUID          `json:"organization_id,omitempty"`
	State            models.SessionState `json:"state"`
	AccessTokenID    string              `json:"access_token_id"`
	RefreshTokenHash *string             `json:"refresh_token_hash,omitempty"`
	ExpiresAt        time.Time           `json:"expires_at"`
	RefreshExpiresAt *time.Time          `json:"refresh_expires_at,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	RevokedAt        *time.Time          `json:"revoked_at,omitempty"`
}

// EncodeSession serializes a session for cache storage, including the fields
// the API representation omits.
func EncodeSession(session *models.Session) ([]byte, error) {
	raw, err := json.Marshal(cachedSession{
		ID:               session.ID,
		UserID:           session.UserID,
		OrganizationID:   session.OrganizationID,
		State:            session.State,
		AccessTokenID:    session.AccessTokenID,
		RefreshTokenHash: session.RefreshTokenHash,
		ExpiresAt:        session.ExpiresAt,
		RefreshExpiresAt: session.RefreshExpiresAt,
		CreatedAt:        session.CreatedAt,
		UpdatedAt:        session.UpdatedAt,
		RevokedAt:        session.RevokedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return raw, nil
}

// DecodeSession is the inverse of EncodeSession.
func DecodeSession(raw []byte) (*models.Session, error) {
	var cached cachedSession
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cached session: %w", err)
	}
	return &models.Session{
		ID:               cached.ID,
		UserID:           cached.UserID,
		OrganizationID:   cached.OrganizationID,
		State:            cached.State,
		AccessTokenID:    cached.AccessTokenID,
		RefreshTokenHash: cached.RefreshTokenHash,
		ExpiresAt:        cached.ExpiresAt,
		RefreshExpiresAt: cached.RefreshExpiresAt,
		CreatedAt:        cached.CreatedAt,
		UpdatedAt:        cached.UpdatedAt,
		RevokedAt:        cached.RevokedAt,
	}, nil
}

func (s *redisCacheService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return DecodeSession([]byte(raw))
}

func (s *redisCacheService) SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	raw, err := EncodeSession(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.ID), raw, ttl).Err()
}

func (s *redisCacheService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.client.Del(ctx, sessionKey(sessionID)).Err()
}

func (s *redisCacheService) SetRefreshLookup(ctx context.Context, refreshHash string, sessionID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKey(refreshHash), sessionID.String(), ttl).Err()
}

func (s *redisCacheService) GetRefreshLookup(ctx context.Context, refreshHash string) (uuid.UUID, error) {
	raw, err := s.client.Get(ctx, refreshKey(refreshHash)).Result()
	if err == redis.Nil {
		return uuid.Nil, ErrCacheMiss
	}
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt refresh lookup entry: %w", err)
	}
	return id, nil
}

func (s *redisCacheService) DeleteRefreshLookup(ctx context.Context, refreshHash string) error {
	return s.client.Del(ctx, refreshKey(refreshHash)).Err()
}

func (s *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrCacheMiss
	}
	return val, err
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisCacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
