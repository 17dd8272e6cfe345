package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoIssuer creates and validates PASETO v4.local tokens
// (XChaCha20 + BLAKE2b), one 32-byte symmetric key per role.
type PasetoIssuer struct {
	keys map[TokenRole]paseto.V4SymmetricKey
	ttls map[TokenRole]time.Duration
	now  func() time.Time
}

func NewPasetoIssuer(cfg TokenConfig, opts ...IssuerOption) (*PasetoIssuer, error) {
	roles, err := cfg.roles()
	if err != nil {
		return nil, err
	}

	issuer := &PasetoIssuer{
		keys: make(map[TokenRole]paseto.V4SymmetricKey, len(roles)),
		ttls: make(map[TokenRole]time.Duration, len(roles)),
		now:  newIssuerOptions(opts).now,
	}
	for role, rk := range roles {
		if len(rk.secret) != 32 {
			return nil, fmt.Errorf("%s key must be exactly 32 bytes, got %d", role, len(rk.secret))
		}

		key, err := paseto.V4SymmetricKeyFromBytes(rk.secret)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s key: %w", role, err)
		}
		issuer.keys[role] = key
		issuer.ttls[role] = rk.ttl
	}

	return issuer, nil
}

func (i *PasetoIssuer) Issue(userID uuid.UUID, email string, role TokenRole) (string, error) {
	key, ok := i.keys[role]
	if !ok {
		return "", fmt.Errorf("unknown token role %q", role)
	}

	iat, exp := issueTimes(i.now(), i.ttls[role])

	token := paseto.NewToken()
	token.SetIssuedAt(iat)
	token.SetNotBefore(iat)
	token.SetExpiration(exp)
	token.SetSubject(userID.String())
	token.SetJti(uuid.NewString())
	token.SetString("email", email)

	return token.V4Encrypt(key, nil), nil
}

func (i *PasetoIssuer) Verify(tokenStr string, role TokenRole) (*TokenClaims, error) {
	key, ok := i.keys[role]
	if !ok {
		return nil, ErrInvalidToken
	}

	// Expiry is checked below against the issuer clock.
	parser := paseto.NewParserWithoutExpiryCheck()
	token, err := parser.ParseV4Local(key, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !i.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	subject, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	jti, _ := token.GetJti()

	return &TokenClaims{
		UserID:    userID,
		Email:     email,
		TokenID:   jti,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
