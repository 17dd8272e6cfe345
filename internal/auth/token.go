package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TokenRole selects the key and lifetime used for a token.
type TokenRole string

const (
	RoleAccess  TokenRole = "access"
	RoleRefresh TokenRole = "refresh"
)

// TokenClaims is the verified content of an access or refresh token.
type TokenClaims struct {
	UserID    uuid.UUID
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenConfig holds the per-role secrets and lifetimes shared by every issuer.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type roleKey struct {
	secret []byte
	ttl    time.Duration
}

func (c TokenConfig) roles() (map[TokenRole]roleKey, error) {
	if len(c.AccessSecret) == 0 || len(c.RefreshSecret) == 0 {
		return nil, fmt.Errorf("access and refresh secrets are required")
	}
	if string(c.AccessSecret) == string(c.RefreshSecret) {
		return nil, fmt.Errorf("access and refresh secrets must differ")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}

	return map[TokenRole]roleKey{
		RoleAccess:  {secret: c.AccessSecret, ttl: c.AccessTTL},
		RoleRefresh: {secret: c.RefreshSecret, ttl: c.RefreshTTL},
	}, nil
}

// IssuerOption configures a token issuer.
type IssuerOption func(*issuerOptions)

type issuerOptions struct {
	now func() time.Time
}

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) IssuerOption {
	return func(o *issuerOptions) {
		o.now = now
	}
}

func newIssuerOptions(opts []IssuerOption) issuerOptions {
	o := issuerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// issueTimes returns iat and exp at whole-second precision, the resolution
// both token formats encode.
func issueTimes(now time.Time, ttl time.Duration) (time.Time, time.Time) {
	iat := now.Truncate(time.Second)
	return iat, iat.Add(ttl)
}
