package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"

	"saascore/internal/autherrors"
	"saascore/internal/models"
	"saascore/internal/providers"
)

const defaultTimeout = 10 * time.Second

// Provider implements the provider contract against the Supabase GoTrue API.
// The anon key authenticates end-user flows; the service key authenticates
// admin endpoints. Refresh tokens are exchanged at Supabase, so
// LocalRefresh is false.
type Provider struct {
	baseURL    string
	anonKey    string
	serviceKey string
	jwtSecret  []byte
	jwks       *keyfunc.JWKS
	httpClient *http.Client
}

func init() {
	providers.Register("supabase", func(cfg providers.Config) (providers.Provider, error) {
		return New(cfg)
	})
}

// New constructs a Supabase provider from configuration. Token validation
// uses the shared HS256 jwt_secret, or JWKS when jwks_url is configured
// (Supabase projects on asymmetric signing keys).
func New(cfg providers.Config) (*Provider, error) {
	baseURL := strings.TrimSuffix(cfg["url"], "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase: url is required")
	}

	p := &Provider{
		baseURL:    baseURL,
		anonKey:    cfg["anon_key"],
		serviceKey: cfg["service_key"],
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	if secret := cfg["jwt_secret"]; secret != "" {
		p.jwtSecret = []byte(secret)
	}
	if jwksURL := cfg["jwks_url"]; jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.Printf("supabase: jwks refresh failed: %v", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("supabase: failed to load jwks: %w", err)
		}
		p.jwks = jwks
	}
	if p.jwtSecret == nil && p.jwks == nil {
		return nil, fmt.Errorf("supabase: either jwt_secret or jwks_url is required")
	}

	return p, nil
}

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{Name: "supabase", LocalRefresh: false}
}

// tokenResponse is the GoTrue token grant payload.
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	RefreshToken string       `json:"refresh_token"`
	User         *gotrueUser  `json:"user"`
	Error        string       `json:"error"`
	ErrorDesc    string       `json:"error_description"`
	Message      string       `json:"msg"`
}

type gotrueUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	ConfirmedAt  string                 `json:"confirmed_at"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	BannedUntil  string                 `json:"banned_until"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func (u *gotrueUser) toAuthUser() providers.AuthUser {
	return providers.AuthUser{
		ProviderUserID:   u.ID,
		Email:            u.Email,
		ProviderType:     models.ProviderSupabase,
		EmailConfirmed:   u.ConfirmedAt != "",
		ProviderMetadata: u.UserMetadata,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (p *Provider) Authenticate(ctx context.Context, email, password string) (*providers.AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", p.anonKey, body, &resp)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		if resp.User == nil {
			return nil, autherrors.New(autherrors.KindUnclassifiedProvider, "token grant succeeded without a user payload")
		}
		if resp.User.BannedUntil != "" {
			return nil, autherrors.New(autherrors.KindUserInactive, "account is disabled")
		}
		return &providers.AuthResult{
			User: resp.User.toAuthUser(),
			Tokens: providers.TokenPair{
				AccessToken:  resp.AccessToken,
				RefreshToken: resp.RefreshToken,
				TokenType:    resp.TokenType,
				ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
			},
		}, nil
	case status == http.StatusBadRequest, status == http.StatusUnauthorized:
		return nil, autherrors.New(autherrors.KindInvalidCredentials, "")
	case status == http.StatusForbidden:
		return nil, autherrors.New(autherrors.KindUserInactive, resp.Message)
	default:
		return nil, p.unclassified("authenticate", status, resp.Message, resp.ErrorDesc)
	}
}

func (p *Provider) ValidateToken(ctx context.Context, token string) (*providers.Claims, error) {
	var parsed *jwt.Token
	var err error

	claims := jwt.MapClaims{}
	if p.jwks != nil {
		parsed, err = jwt.ParseWithClaims(token, claims, p.jwks.Keyfunc)
	} else {
		parsed, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return p.jwtSecret, nil
		})
	}
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
	email, _ := claims["email"].(string)

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, autherrors.New(autherrors.KindInvalidToken, "token has no expiry")
	}

	return &providers.Claims{
		ProviderUserID: sub,
		Email:          email,
		ExpiresAt:      exp.Time,
		Raw:            claims,
	}, nil
}

func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*providers.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var resp tokenResponse
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", p.anonKey, body, &resp)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		return &providers.TokenPair{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			TokenType:    resp.TokenType,
			ExpiresAt:    time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
		}, nil
	case status == http.StatusBadRequest, status == http.StatusUnauthorized:
		return nil, autherrors.New(autherrors.KindInvalidToken, "refresh token rejected")
	default:
		return nil, p.unclassified("refresh_token", status, resp.Message, resp.ErrorDesc)
	}
}

func (p *Provider) CreateUser(ctx context.Context, email, password string, profile map[string]interface{}) (*providers.AuthUser, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     profile,
	}
	var resp struct {
		gotrueUser
		Message string `json:"msg"`
	}
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/signup", p.anonKey, body, &resp)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK:
		user := resp.gotrueUser.toAuthUser()
		return &user, nil
	case status == http.StatusUnprocessableEntity, status == http.StatusConflict:
		return nil, autherrors.New(autherrors.KindUserAlreadyExists, "")
	case status == http.StatusBadRequest:
		if strings.Contains(strings.ToLower(resp.Message), "already registered") {
			return nil, autherrors.New(autherrors.KindUserAlreadyExists, "")
		}
		return nil, p.unclassified("create_user", status, resp.Message, "")
	default:
		return nil, p.unclassified("create_user", status, resp.Message, "")
	}
}

func (p *Provider) GetUserByID(ctx context.Context, providerUserID string) (*providers.AuthUser, error) {
	var resp gotrueUser
	status, err := p.do(ctx, http.MethodGet, "/auth/v1/admin/users/"+url.PathEscape(providerUserID), p.serviceKey, nil, &resp)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		user := resp.toAuthUser()
		return &user, nil
	case http.StatusNotFound:
		return nil, autherrors.New(autherrors.KindUserNotFound, "")
	default:
		return nil, p.unclassified("get_user_by_id", status, "", "")
	}
}

func (p *Provider) GetUserByEmail(ctx context.Context, email string) (*providers.AuthUser, error) {
	var resp struct {
		Users []gotrueUser `json:"users"`
	}
	status, err := p.do(ctx, http.MethodGet, "/auth/v1/admin/users?email="+url.QueryEscape(email), p.serviceKey, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, p.unclassified("get_user_by_email", status, "", "")
	}

	for i := range resp.Users {
		if strings.EqualFold(resp.Users[i].Email, email) {
			user := resp.Users[i].toAuthUser()
			return &user, nil
		}
	}
	return nil, autherrors.New(autherrors.KindUserNotFound, "")
}

func (p *Provider) UpdateUser(ctx context.Context, providerUserID string, patch providers.UserPatch) (*providers.AuthUser, error) {
	body := map[string]interface{}{}
	if patch.Email != nil {
		body["email"] = *patch.Email
	}
	if patch.Password != nil {
		body["password"] = *patch.Password
	}
	if patch.Metadata != nil {
		body["user_metadata"] = patch.Metadata
	}

	var resp gotrueUser
	status, err := p.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(providerUserID), p.serviceKey, body, &resp)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		user := resp.toAuthUser()
		return &user, nil
	case http.StatusNotFound:
		return nil, autherrors.New(autherrors.KindUserNotFound, "")
	default:
		return nil, p.unclassified("update_user", status, "", "")
	}
}

func (p *Provider) DeleteUser(ctx context.Context, providerUserID string) (bool, error) {
	status, err := p.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(providerUserID), p.serviceKey, nil, nil)
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, autherrors.New(autherrors.KindUserNotFound, "")
	default:
		return false, p.unclassified("delete_user", status, "", "")
	}
}

func (p *Provider) Logout(ctx context.Context, providerUserID string, sessionID *string) (bool, error) {
	// GoTrue revokes all refresh tokens for the user behind the admin logout.
	path := "/auth/v1/admin/users/" + url.PathEscape(providerUserID) + "/logout"
	status, err := p.do(ctx, http.MethodPost, path, p.serviceKey, nil, nil)
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, autherrors.New(autherrors.KindUserNotFound, "")
	default:
		return false, p.unclassified("logout", status, "", "")
	}
}

func (p *Provider) SendPasswordReset(ctx context.Context, email string) (bool, error) {
	body := map[string]string{"email": email}
	status, err := p.do(ctx, http.MethodPost, "/auth/v1/recover", p.anonKey, body, nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, p.unclassified("send_password_reset", status, "", "")
	}
	return true, nil
}

func (p *Provider) ResetPassword(ctx context.Context, token, newPassword string) (bool, error) {
	body := map[string]string{"password": newPassword}
	req, err := p.newRequest(ctx, http.MethodPut, "/auth/v1/user", p.anonKey, body)
	if err != nil {
		return false, err
	}
	// The recovery token authenticates the password change.
	req.Header.Set("Authorization", "Bearer "+token)

	status, err := p.send(req, nil)
	if err != nil {
		return false, err
	}

	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return false, autherrors.New(autherrors.KindInvalidToken, "recovery token rejected")
	default:
		return false, p.unclassified("reset_password", status, "", "")
	}
}

// do sends a JSON request with the given API key and decodes the body into
// out when non-nil. Network failures and timeouts map to ProviderUnavailable.
func (p *Provider) do(ctx context.Context, method, path, apiKey string, body, out interface{}) (int, error) {
	req, err := p.newRequest(ctx, method, path, apiKey, body)
	if err != nil {
		return 0, err
	}
	return p.send(req, out)
}

func (p *Provider) newRequest(ctx context.Context, method, path, apiKey string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("supabase: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("supabase: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Authorization", "Bearer "+apiKey)
	return req, nil
}

func (p *Provider) send(req *http.Request, out interface{}) (int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, autherrors.Wrap(autherrors.KindProviderUnavailable, "supabase unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, autherrors.New(autherrors.KindProviderUnavailable,
			fmt.Sprintf("supabase returned %d", resp.StatusCode))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, autherrors.Wrap(autherrors.KindUnclassifiedProvider, "undecodable supabase response", err)
		}
	}
	return resp.StatusCode, nil
}

// unclassified tags responses the adapter has no mapping for. These are
// logged distinctly so they can be classified instead of being coerced into
// a generic auth failure.
func (p *Provider) unclassified(op string, status int, msgs ...string) error {
	detail := ""
	for _, m := range msgs {
		if m != "" {
			detail = m
			break
		}
	}
	log.Printf("supabase: unclassified response in %s: status=%d detail=%q", op, status, detail)
	return autherrors.New(autherrors.KindUnclassifiedProvider,
		fmt.Sprintf("%s returned unexpected status %d", op, status))
}
