package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "standard", header: "Bearer abc.def", want: "abc.def", ok: true},
		{name: "lowercase scheme", header: "bearer abc", want: "abc", ok: true},
		{name: "missing", header: "", ok: false},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", ok: false},
		{name: "no token", header: "Bearer ", ok: false},
		{name: "scheme only", header: "Bearer", ok: false},
		{name: "extra parts", header: "Bearer a b", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, ok := bearerToken(r)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware_RequireAccess(t *testing.T) {
	clock := newFakeClock()
	issuer, err := NewJWTIssuer(testTokenConfig(), WithClock(clock.Now))
	require.NoError(t, err)
	m := NewMiddleware(issuer)

	id := uuid.New()
	access, err := issuer.Issue(id, "a@x.com", RoleAccess)
	require.NoError(t, err)
	refresh, err := issuer.Issue(id, "a@x.com", RoleRefresh)
	require.NoError(t, err)

	var got Principal
	handler := m.RequireAccess(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = PrincipalFromContext(r.Context())
		_, hasRaw := RefreshTokenFromContext(r.Context())
		assert.False(t, hasRaw)
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(header string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	w := serve("Bearer " + access)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, Principal{UserID: id, Email: "a@x.com"}, got)

	for _, header := range []string{"", "Bearer " + refresh, "Bearer garbage", "Token " + access} {
		w := serve(header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
	}

	clock.Advance(900 * time.Second)
	w = serve("Bearer " + access)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"unauthorized"`)
}

func TestMiddleware_RequireRefresh(t *testing.T) {
	issuer, err := NewJWTIssuer(testTokenConfig())
	require.NoError(t, err)
	m := NewMiddleware(issuer)

	id := uuid.New()
	access, err := issuer.Issue(id, "a@x.com", RoleAccess)
	require.NoError(t, err)
	refresh, err := issuer.Issue(id, "a@x.com", RoleRefresh)
	require.NoError(t, err)

	var raw string
	var principal Principal
	handler := m.RequireRefresh(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = RefreshTokenFromContext(r.Context())
		principal, _ = PrincipalFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	r.Header.Set("Authorization", "Bearer "+refresh)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, refresh, raw)
	assert.Equal(t, id, principal.UserID)

	// an access token is signed with the other key
	r = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	r.Header.Set("Authorization", "Bearer "+access)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
