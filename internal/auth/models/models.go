package models

import "strings"

// TokenRequest is the password grant body.
type TokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *TokenRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// TokenResult is returned on a successful grant.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	UserID      string `json:"user_id"`
}

// TokenTypeBearer is the only token type issued.
const TokenTypeBearer = "Bearer"

