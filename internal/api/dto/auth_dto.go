package dto

import "time"

// TokenRequest exchanges a service account id and shared secret for a JWT.
type TokenRequest struct {
	AccountID string `json:"account_id"`
	Secret    string `json:"secret"`
}

// TokenResponse carries the issued bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
