package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T, at, rt string) {
	t.Helper()
	t.Setenv("AT_SECRET", at)
	t.Setenv("RT_SECRET", rt)
}

func TestParse_Defaults(t *testing.T) {
	setSecrets(t, "access-secret", "refresh-secret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, StorePostgres, cfg.Auth.StoreBackend)
	assert.Equal(t, TokenFormatJWT, cfg.Auth.TokenFormat)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.TrustedOrigins)
	assert.Equal(t, uint32(64*1024), cfg.Hashing.MemoryKiB)
}

func TestParse_Overrides(t *testing.T) {
	setSecrets(t, "access-secret", "refresh-secret")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("STORE_BACKEND", "redis")
	t.Setenv("ACCESS_TOKEN_DURATION", "5m")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.False(t, cfg.Server.IsDevelopment())
	assert.Equal(t, StoreRedis, cfg.Auth.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.TrustedOrigins)
}

func TestParse_ValidationErrors(t *testing.T) {
	key32 := strings.Repeat("a", 32)
	otherKey32 := strings.Repeat("b", 32)

	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing secrets",
			env:     map[string]string{"AT_SECRET": "", "RT_SECRET": ""},
			wantErr: "required",
		},
		{
			name:    "identical secrets",
			env:     map[string]string{"AT_SECRET": "same", "RT_SECRET": "same"},
			wantErr: "must differ",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"AT_SECRET": "a", "RT_SECRET": "b", "STORE_BACKEND": "mongo"},
			wantErr: "STORE_BACKEND",
		},
		{
			name:    "unknown token format",
			env:     map[string]string{"AT_SECRET": "a", "RT_SECRET": "b", "TOKEN_FORMAT": "saml"},
			wantErr: "TOKEN_FORMAT",
		},
		{
			name:    "short paseto key",
			env:     map[string]string{"AT_SECRET": "short", "RT_SECRET": otherKey32, "TOKEN_FORMAT": "paseto"},
			wantErr: "32 bytes",
		},
		{
			name:    "non-positive duration",
			env:     map[string]string{"AT_SECRET": key32, "RT_SECRET": otherKey32, "ACCESS_TOKEN_DURATION": "0s"},
			wantErr: "positive",
		},
		{
			name:    "zero argon2 iterations",
			env:     map[string]string{"AT_SECRET": "a", "RT_SECRET": "b", "ARGON2_ITERATIONS": "0"},
			wantErr: "ARGON2_ITERATIONS",
		},
		{
			name:    "zero argon2 parallelism",
			env:     map[string]string{"AT_SECRET": "a", "RT_SECRET": "b", "ARGON2_PARALLELISM": "0"},
			wantErr: "ARGON2_PARALLELISM",
		},
		{
			name:    "argon2 memory below lanes",
			env:     map[string]string{"AT_SECRET": "a", "RT_SECRET": "b", "ARGON2_MEMORY_KIB": "8", "ARGON2_PARALLELISM": "2"},
			wantErr: "ARGON2_MEMORY_KIB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_PasetoKeys(t *testing.T) {
	setSecrets(t, strings.Repeat("a", 32), strings.Repeat("b", 32))
	t.Setenv("TOKEN_FORMAT", "paseto")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, TokenFormatPaseto, cfg.Auth.TokenFormat)
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.ConnectionString())

	c.ChannelBinding = "require"
	assert.True(t, strings.HasSuffix(c.ConnectionString(), " channel_binding=require"))
}
