package models

import "time"

// TokenResponse is what callers receive after a successful issue or refresh.
type TokenResponse struct {
	AccessToken    string    `json:"access_token"`
	TokenType      string    `json:"token_type"`
	ExpiresIn      int       `json:"expires_in"`
	RefreshToken   string    `json:"refresh_token,omitempty"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	SessionID      string    `json:"session_id"`
	IssuedAt       time.Time `json:"issued_at"`
}

// RefreshTokenRequest is the refresh grant payload.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type"`
}
