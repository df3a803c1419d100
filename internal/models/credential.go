package models

import (
	"time"
)

// AuthorizationCode is the short-lived one-time artifact proving a
// successful Account-App login. One row exists per (account, app)
// pair; reissuing resets the code and expiry in place.
type AuthorizationCode struct {
	ID        string
	AccountID string
	AppID     string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAvailable reports whether the code may still be exchanged.
func (c *AuthorizationCode) IsAvailable() bool {
	return time.Now().Before(c.ExpiresAt)
}

// AccessGrant is the (access_token, refresh_token) pair authorizing
// API calls on behalf of an Account for a given App. One row exists
// per (account, app) pair; issuance rotates both tokens, refresh
// rotates only the access token.
type AccessGrant struct {
	ID           string
	AccountID    string
	AppID        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAvailable reports whether the grant is still live.
func (g *AccessGrant) IsAvailable() bool {
	return time.Now().Before(g.ExpiresAt)
}

// ExpiresIn returns the whole seconds remaining until expiry, floored
// at zero.
func (g *AccessGrant) ExpiresIn() int64 {
	remaining := time.Until(g.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// ExpiresIn returns the whole seconds remaining until expiry, floored
// at zero.
func (c *AuthorizationCode) ExpiresIn() int64 {
	remaining := time.Until(c.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}
