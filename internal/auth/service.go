package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/redmonkez12/go-auth-api/internal/logging"
	"github.com/redmonkez12/go-auth-api/internal/user"
)

// dummySecret is hashed once and verified against when a signin names an
// unknown email, so both rejection paths cost one argon2 verification.
const dummySecret = "dummy-password-for-timing"

// TokenPair is returned by signup, signin and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service is the session manager. A user with a stored refresh hash has an
// active session; every signin and refresh overwrites that hash, so only the
// most recently issued refresh token can be rotated.
type Service struct {
	store  CredentialStore
	hasher Hasher
	issuer TokenIssuer
	logger *logging.Logger

	dummyMu   sync.Mutex
	dummyHash string
}

func NewService(store CredentialStore, hasher Hasher, issuer TokenIssuer, logger *logging.Logger) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		issuer: issuer,
		logger: logger,
	}
}

// Signup creates an account and its first session.
func (s *Service) Signup(ctx context.Context, email, password string) (*TokenPair, error) {
	email = user.NormalizeEmail(email)

	_, err := s.store.FindActiveByEmail(ctx, email)
	if err == nil {
		return nil, ErrDuplicateEmail
	}
	if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.New()
	pair, refreshHash, err := s.issueSession(ctx, id, email)
	if err != nil {
		return nil, err
	}

	// The user and its refresh hash are written together.
	_, err = s.store.Create(ctx, &user.User{
		ID:               id,
		Email:            email,
		PasswordHash:     passwordHash,
		RefreshTokenHash: &refreshHash,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Debug("user signed up", "user_id", id)

	return pair, nil
}

// Signin authenticates by email and password and starts a new session,
// replacing any previous one.
func (s *Service) Signin(ctx context.Context, email, password string) (*TokenPair, error) {
	existing, err := s.store.FindActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.verifyDummy(ctx, password)
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(ctx, existing.PasswordHash, password) {
		return nil, ErrAccessDenied
	}

	return s.rotate(ctx, existing)
}

// Logout ends the user's session. Logging out without a session is a no-op.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.SetRefreshHash(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Refresh exchanges the current refresh token for a new pair. The presented
// token stops working once this returns.
func (s *Service) Refresh(ctx context.Context, userID uuid.UUID, refreshToken string) (*TokenPair, error) {
	existing, err := s.store.FindActiveByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !existing.HasSession() {
		return nil, ErrAccessDenied
	}
	if !s.hasher.Verify(ctx, *existing.RefreshTokenHash, refreshToken) {
		return nil, ErrAccessDenied
	}

	return s.rotate(ctx, existing)
}

// Disable soft-deletes the account with the given email and drops its session.
func (s *Service) Disable(ctx context.Context, email string) (uuid.UUID, error) {
	existing, err := s.store.FindActiveByEmail(ctx, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.store.SoftDelete(ctx, existing.ID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to disable user: %w", err)
	}

	return existing.ID, nil
}

// rotate issues a new pair and overwrites the stored refresh hash. Nothing is
// written unless both tokens and the hash were produced.
func (s *Service) rotate(ctx context.Context, u *user.User) (*TokenPair, error) {
	pair, refreshHash, err := s.issueSession(ctx, u.ID, u.Email)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetRefreshHash(ctx, u.ID, &refreshHash); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// deleted between lookup and write
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("failed to store refresh token hash: %w", err)
	}

	return pair, nil
}

// issueSession signs both tokens concurrently and hashes the refresh token.
func (s *Service) issueSession(ctx context.Context, id uuid.UUID, email string) (*TokenPair, string, error) {
	pair := &TokenPair{}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		token, err := s.issuer.Issue(id, email, RoleAccess)
		if err != nil {
			return fmt.Errorf("failed to issue access token: %w", err)
		}
		pair.AccessToken = token
		return nil
	})
	g.Go(func() error {
		token, err := s.issuer.Issue(id, email, RoleRefresh)
		if err != nil {
			return fmt.Errorf("failed to issue refresh token: %w", err)
		}
		pair.RefreshToken = token
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	refreshHash, err := s.hasher.Hash(ctx, pair.RefreshToken)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash refresh token: %w", err)
	}

	return pair, refreshHash, nil
}

func (s *Service) verifyDummy(ctx context.Context, password string) {
	if hash := s.dummy(ctx); hash != "" {
		s.hasher.Verify(ctx, hash, password)
	}
}

// dummy returns the dummy hash, computing it on first use. A failed attempt
// is retried by the next caller.
func (s *Service) dummy(ctx context.Context) string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()

	if s.dummyHash == "" {
		hash, err := s.hasher.Hash(context.WithoutCancel(ctx), dummySecret)
		if err != nil {
			s.logger.Warn("failed to prepare dummy hash", "error", err)
			return ""
		}
		s.dummyHash = hash
	}
	return s.dummyHash
}
