package sec

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "agent-internal-key"

func newTestGate(t *testing.T, clock *fakeClock, key string) *Gate {
	t.Helper()
	return NewGate(newTestTokens(t, clock), key, DefaultPolicyTable([]string{"/api/log", "/api/tasks", "/api/notes"}))
}

func newRequest(method, path, key, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(APIKeyHeader, key)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	}
	return req
}

func TestGate_Authorize(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	gate := newTestGate(t, clock, testKey)
	valid, err := gate.tokens.Issue()
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    *http.Request
		want   AuthMethod
		denied bool
	}{
		{
			name: "public path without credentials",
			req:  newRequest(http.MethodGet, "/api/status", "", ""),
			want: AuthPublic,
		},
		{
			name: "scoped path with correct key",
			req:  newRequest(http.MethodPost, "/api/log", testKey, ""),
			want: AuthAPIKey,
		},
		{
			name:   "scoped path with key one character off",
			req:    newRequest(http.MethodPost, "/api/log", testKey[:len(testKey)-1]+"X", ""),
			denied: true,
		},
		{
			name:   "scoped path with key prefix",
			req:    newRequest(http.MethodGet, "/api/tasks", testKey[:4], ""),
			denied: true,
		},
		{
			name: "scoped path with wrong key falls back to session",
			req:  newRequest(http.MethodGet, "/api/tasks", "wrong", valid),
			want: AuthSession,
		},
		{
			name:   "session path ignores correct key",
			req:    newRequest(http.MethodGet, "/api/artifacts", testKey, ""),
			denied: true,
		},
		{
			name: "session path with valid session",
			req:  newRequest(http.MethodGet, "/api/artifacts", "", valid),
			want: AuthSession,
		},
		{
			name:   "session path without cookie",
			req:    newRequest(http.MethodGet, "/", "", ""),
			denied: true,
		},
		{
			name:   "session path with garbage cookie",
			req:    newRequest(http.MethodGet, "/", "", "garbage"),
			denied: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			policy := gate.Policy(test.req.Method, test.req.URL.Path)
			principal, err := gate.Authorize(test.req, policy)
			if test.denied {
				require.Error(t, err)
				assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
				assert.Equal(t, Principal{}, principal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, principal.Method)
		})
	}
}

func TestGate_ExpiredSession(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	gate := newTestGate(t, clock, testKey)
	token, err := gate.tokens.Issue()
	require.NoError(t, err)

	principal, err := gate.Authorize(newRequest(http.MethodGet, "/", "", token), PolicySession)
	require.NoError(t, err)
	assert.NotEmpty(t, principal.TokenID)

	clock.Advance(SessionTTL + time.Second)
	_, err = gate.Authorize(newRequest(http.MethodGet, "/", "", token), PolicySession)
	require.Error(t, err)
}

func TestGate_EmptyKeyDisablesBypass(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t, newFakeClock(), "")
	req := newRequest(http.MethodPost, "/api/log", "", "")
	req.Header.Set(APIKeyHeader, "")
	_, err := gate.Authorize(req, PolicyKeyOrSession)
	require.Error(t, err)
}

func TestGate_UnknownPolicyDenies(t *testing.T) {
	t.Parallel()

	gate := newTestGate(t, newFakeClock(), testKey)
	_, err := gate.Authorize(newRequest(http.MethodGet, "/", testKey, ""), Policy(99))
	require.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	_, ok := GetPrincipal(t.Context())
	assert.False(t, ok)

	ctx := SetPrincipal(t.Context(), Principal{Method: AuthAPIKey})
	principal, ok := GetPrincipal(ctx)
	assert.True(t, ok)
	assert.Equal(t, AuthAPIKey, principal.Method)
}
