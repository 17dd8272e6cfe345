package app

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-auth-api/internal/auth"
	"github.com/redmonkez12/go-auth-api/internal/config"
	"github.com/redmonkez12/go-auth-api/internal/logging"
	"github.com/redmonkez12/go-auth-api/internal/user"
)

func testConfig(format string) *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			StoreBackend:         config.StoreMemory,
			TokenFormat:          format,
			AccessSecret:         strings.Repeat("a", 32),
			RefreshSecret:        strings.Repeat("r", 32),
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
		},
		Hashing: config.HashingConfig{MemoryKiB: 1024, Iterations: 1, Parallelism: 1},
	}
}

func TestNewIssuer(t *testing.T) {
	jwtIssuer, err := NewIssuer(testConfig(config.TokenFormatJWT))
	require.NoError(t, err)
	assert.IsType(t, &auth.JWTIssuer{}, jwtIssuer)

	pasetoIssuer, err := NewIssuer(testConfig(config.TokenFormatPaseto))
	require.NoError(t, err)
	assert.IsType(t, &auth.PasetoIssuer{}, pasetoIssuer)

	token, err := pasetoIssuer.Issue(uuid.New(), "a@x.com", auth.RoleAccess)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))

	_, err = NewIssuer(testConfig("saml"))
	assert.Error(t, err)
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher(testConfig(config.TokenFormatJWT).Hashing)
	require.NoError(t, err)

	encoded, err := h.Hash(context.Background(), "secret")
	require.NoError(t, err)
	assert.Contains(t, encoded, "$m=1024,t=1,p=1$")

	_, err = NewHasher(config.HashingConfig{MemoryKiB: 1024, Iterations: 0, Parallelism: 1})
	assert.Error(t, err)
}

func TestOpenStore_Memory(t *testing.T) {
	logger := logging.NewLoggerWithWriter(&bytes.Buffer{}, true)

	store, closeFn, err := OpenStore(context.Background(), testConfig(config.TokenFormatJWT), logger)
	require.NoError(t, err)
	assert.IsType(t, &user.MemoryStore{}, store)
	assert.NoError(t, closeFn())
}
