package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-auth-api/internal/user"
)

// CredentialStore is the persistence contract the session manager consumes.
// Implemented by user.Repository, user.RedisStore and user.MemoryStore.
type CredentialStore interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	FindActiveByEmail(ctx context.Context, email string) (*user.User, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	SetRefreshHash(ctx context.Context, id uuid.UUID, hash *string) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Hasher hashes passwords and refresh tokens. Verify never errors; any
// malformed input is a mismatch.
type Hasher interface {
	Hash(ctx context.Context, secret string) (string, error)
	Verify(ctx context.Context, encoded, secret string) bool
}

// TokenIssuer defines token creation and validation per role.
// Implementations include JWTIssuer (HS256) and PasetoIssuer (PASETO v4.local).
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string, role TokenRole) (string, error)
	Verify(token string, role TokenRole) (*TokenClaims, error)
}

// EventRecorder receives auth outcome events, typically for metrics.
type EventRecorder interface {
	AuthEvent(operation, outcome string)
}
