package models

import "time"

// Session is the authenticated identity. A Session without a token is never
// stored.
type Session struct {
	UserID      int64
	Username    string
	Email       string
	BearerToken string

	// ExpiresAt is read from the token's exp claim. Zero when the token
	// carries none.
	ExpiresAt time.Time
}

// Expired reports whether the token is known to be past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// LoginResponse is the body of POST /auth/login and POST /auth/refresh.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
}
