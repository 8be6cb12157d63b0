// Package auth owns user accounts, password checks and bearer tokens for
// the seller-facing API.
package auth

import (
	"github.com/google/uuid"
)

// User is one seller account.
type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	Active         bool      `json:"is_active"`
}

// TokenResponse is the login payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
