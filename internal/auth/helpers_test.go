package auth

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-auth-api/internal/logging"
	"github.com/redmonkez12/go-auth-api/internal/user"
)

var (
	testAccessKey  = []byte(strings.Repeat("a", 32))
	testRefreshKey = []byte(strings.Repeat("r", 32))
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testTokenConfig() TokenConfig {
	return TokenConfig{
		AccessSecret:  testAccessKey,
		RefreshSecret: testRefreshKey,
		AccessTTL:     900 * time.Second,
		RefreshTTL:    604800 * time.Second,
	}
}

func testParams() Argon2Params {
	return Argon2Params{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T, params Argon2Params, concurrency int64) *Argon2Hasher {
	t.Helper()
	h, err := NewArgon2Hasher(params, concurrency)
	require.NoError(t, err)
	return h
}

func testHasher() *Argon2Hasher {
	h, err := NewArgon2Hasher(testParams(), 4)
	if err != nil {
		panic(err)
	}
	return h
}

func testLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(&bytes.Buffer{}, true)
}

type testEnv struct {
	clock   *fakeClock
	store   *user.MemoryStore
	issuer  *JWTIssuer
	service *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := newFakeClock()
	issuer, err := NewJWTIssuer(testTokenConfig(), WithClock(clock.Now))
	require.NoError(t, err)

	store := user.NewMemoryStore()
	return &testEnv{
		clock:   clock,
		store:   store,
		issuer:  issuer,
		service: NewService(store, testHasher(), issuer, testLogger()),
	}
}
