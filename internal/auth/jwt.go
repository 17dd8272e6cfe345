package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 tokens with a separate secret per role.
type JWTIssuer struct {
	roles map[TokenRole]roleKey
	now   func() time.Time
}

func NewJWTIssuer(cfg TokenConfig, opts ...IssuerOption) (*JWTIssuer, error) {
	roles, err := cfg.roles()
	if err != nil {
		return nil, err
	}

	o := newIssuerOptions(opts)
	return &JWTIssuer{roles: roles, now: o.now}, nil
}

func (i *JWTIssuer) Issue(userID uuid.UUID, email string, role TokenRole) (string, error) {
	key, ok := i.roles[role]
	if !ok {
		return "", fmt.Errorf("unknown token role %q", role)
	}

	iat, exp := issueTimes(i.now(), key.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(key.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", role, err)
	}

	return signed, nil
}

func (i *JWTIssuer) Verify(tokenStr string, role TokenRole) (*TokenClaims, error) {
	key, ok := i.roles[role]
	if !ok {
		return nil, ErrInvalidToken
	}

	claims := &jwtClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return key.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	out := &TokenClaims{
		UserID:    userID,
		Email:     claims.Email,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	return out, nil
}
