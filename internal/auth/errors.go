package auth

import (
	"errors"
	"fmt"

	"github.com/redmonkez12/go-auth-api/internal/user"
)

var (
	// ErrAccessDenied covers every signin and refresh rejection. Callers cannot
	// tell an unknown email from a wrong password or a stale refresh token.
	ErrAccessDenied = errors.New("access denied")

	// ErrDuplicateEmail matches user.ErrDuplicateEmail with errors.Is.
	ErrDuplicateEmail = fmt.Errorf("signup: %w", user.ErrDuplicateEmail)

	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
