package app

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/sec"
	"github.com/jarvisboard/jarvisboard/internal/storage"
)

const (
	testPassword = "correct horse battery staple"
	testAPIKey   = "agent-key-0123456789"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testServer struct {
	srv *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.DevMode = true
	cfg.DBFilepath = filepath.Join(t.TempDir(), "db.sqlite")
	cfg.Auth.InternalAPIKey = testAPIKey

	logger := slog.New(slog.DiscardHandler)
	store, err := storage.NewDB(t.Context(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	hash, err := sec.HashPassword(testPassword, bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := sec.NewTokens(testSecret)
	require.NoError(t, err)

	auth := Auth{
		Verifier: sec.NewVerifier(string(hash)),
		Tokens:   tokens,
		Gate:     sec.NewGate(tokens, testAPIKey, sec.DefaultPolicyTable(cfg.Access.KeyPaths)),
	}
	return &testServer{srv: New(cfg, logger, store, auth)}
}

type requestOption func(*http.Request)

func withSession(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: sec.SessionCookie, Value: token})
	}
}

func withAPIKey(key string) requestOption {
	return func(r *http.Request) { r.Header.Set(sec.APIKeyHeader, key) }
}

func withContentType(ctype string) requestOption {
	return func(r *http.Request) { r.Header.Set(echo.HeaderContentType, ctype) }
}

func (ts *testServer) do(t *testing.T, method, target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequestWithContext(t.Context(), method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	ts.srv.ServeHTTP(rec, req)
	return rec
}

// login authenticates and returns the session token from the cookie.
func (ts *testServer) login(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/auth", `{"password":"`+testPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookieFrom(t, rec)
	require.NotNil(t, cookie)
	return cookie.Value
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sec.SessionCookie {
			return cookie
		}
	}
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	assert.Equal(t, msg, decode[errorResponse](t, rec).Error)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{name: "wrong password", body: `{"password":"hunter2"}`, status: http.StatusUnauthorized, msg: "Invalid password"},
		{name: "empty password", body: `{"password":""}`, status: http.StatusBadRequest, msg: "Password required"},
		{name: "missing body", body: "", status: http.StatusBadRequest, msg: "Password required"},
		{name: "malformed body", body: `{"password":`, status: http.StatusBadRequest, msg: "Password required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPost, "/api/auth", tt.body, withContentType(echo.MIMEApplicationJSON))
			assertError(t, rec, tt.status, tt.msg)
			assert.Nil(t, sessionCookieFrom(t, rec))
		})
	}

	t.Run("correct password", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPost, "/api/auth", `{"password":"`+testPassword+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[successResponse](t, rec).Success)

		cookie := sessionCookieFrom(t, rec)
		require.NotNil(t, cookie)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, "/", cookie.Path)
		assert.Zero(t, cookie.MaxAge)
	})
}

func TestLogout(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := ts.login(t)

	rec := ts.do(t, http.MethodGet, "/api/tasks", "", withSession(token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/auth", "", withSession(token))
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookieFrom(t, rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)

	// the browser drops the cookie, so the next request carries none
	rec = ts.do(t, http.MethodGet, "/api/tasks", "")
	assertError(t, rec, http.StatusUnauthorized, "Unauthorized")
}

func TestAccess(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := ts.login(t)

	expiredTokens, err := sec.NewTokens(testSecret, sec.WithClock(func() time.Time {
		return time.Now().Add(-sec.SessionTTL - time.Minute)
	}))
	require.NoError(t, err)
	expired, err := expiredTokens.Issue()
	require.NoError(t, err)

	otherTokens, err := sec.NewTokens([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)
	forged, err := otherTokens.Issue()
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		opts   []requestOption
		status int
	}{
		{name: "public status", method: http.MethodGet, target: "/api/status", status: http.StatusOK},
		{name: "public status head", method: http.MethodHead, target: "/api/status", status: http.StatusOK},
		{name: "healthz", method: http.MethodGet, target: "/healthz", status: http.StatusOK},
		{name: "login page", method: http.MethodGet, target: "/login", status: http.StatusOK},
		{name: "robots", method: http.MethodGet, target: "/robots.txt", status: http.StatusOK},
		{name: "static asset", method: http.MethodGet, target: "/static/style.css", status: http.StatusOK},
		{name: "init", method: http.MethodPost, target: "/api/init", status: http.StatusOK},
		{name: "status update unauthenticated", method: http.MethodPost, target: "/api/status", body: `{}`, status: http.StatusUnauthorized},
		{name: "status update with key", method: http.MethodPost, target: "/api/status", body: `{}`, opts: []requestOption{withAPIKey(testAPIKey)}, status: http.StatusOK},
		{name: "tasks unauthenticated", method: http.MethodGet, target: "/api/tasks", status: http.StatusUnauthorized},
		{name: "tasks with session", method: http.MethodGet, target: "/api/tasks", opts: []requestOption{withSession(token)}, status: http.StatusOK},
		{name: "tasks with key", method: http.MethodGet, target: "/api/tasks", opts: []requestOption{withAPIKey(testAPIKey)}, status: http.StatusOK},
		{name: "tasks with near miss key", method: http.MethodGet, target: "/api/tasks", opts: []requestOption{withAPIKey(testAPIKey[:len(testAPIKey)-1] + "X")}, status: http.StatusUnauthorized},
		{name: "tasks with empty key", method: http.MethodGet, target: "/api/tasks", opts: []requestOption{withAPIKey("")}, status: http.StatusUnauthorized},
		{name: "tasks with expired session", method: http.MethodGet, target: "/api/tasks", opts: []requestOption{withSession(expired)}, status: http.StatusUnauthorized},
		{name: "tasks with forged session", method: http.MethodGet, target: "/api/tasks", opts: []requestOption{withSession(forged)}, status: http.StatusUnauthorized},
		{name: "tasks with garbage session", method: http.MethodGet, target: "/api/tasks", opts: []requestOption{withSession("not-a-token")}, status: http.StatusUnauthorized},
		{name: "notes with key", method: http.MethodGet, target: "/api/notes", opts: []requestOption{withAPIKey(testAPIKey)}, status: http.StatusOK},
		{name: "log with key", method: http.MethodGet, target: "/api/log", opts: []requestOption{withAPIKey(testAPIKey)}, status: http.StatusOK},
		{name: "artifacts with key", method: http.MethodGet, target: "/api/artifacts", opts: []requestOption{withAPIKey(testAPIKey)}, status: http.StatusUnauthorized},
		{name: "artifacts with session", method: http.MethodGet, target: "/api/artifacts", opts: []requestOption{withSession(token)}, status: http.StatusOK},
		{name: "context with key", method: http.MethodGet, target: "/api/context", opts: []requestOption{withAPIKey(testAPIKey)}, status: http.StatusUnauthorized},
		{name: "unknown api path", method: http.MethodGet, target: "/api/nope", status: http.StatusUnauthorized},
		{name: "prefix lookalike", method: http.MethodGet, target: "/api/logger", opts: []requestOption{withAPIKey(testAPIKey)}, status: http.StatusUnauthorized},
		{name: "unknown api path with session", method: http.MethodGet, target: "/api/nope", opts: []requestOption{withSession(token)}, status: http.StatusNotFound},
		{name: "dashboard with session", method: http.MethodGet, target: "/", opts: []requestOption{withSession(token)}, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := ts.do(t, tt.method, tt.target, tt.body, tt.opts...)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
			}
		})
	}
}

func TestAccess_PageRedirect(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	tests := []struct {
		name        string
		target      string
		opts        []requestOption
		clearCookie bool
	}{
		{name: "no session", target: "/"},
		{name: "stale session", target: "/", opts: []requestOption{withSession("stale")}, clearCookie: true},
		{name: "unknown page", target: "/settings"},
		{name: "api key is not a session", target: "/", opts: []requestOption{withAPIKey(testAPIKey)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := ts.do(t, http.MethodGet, tt.target, "", tt.opts...)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, loginPath, rec.Header().Get(echo.HeaderLocation))

			cookie := sessionCookieFrom(t, rec)
			if tt.clearCookie {
				require.NotNil(t, cookie)
				assert.Empty(t, cookie.Value)
				assert.Negative(t, cookie.MaxAge)
			} else {
				assert.Nil(t, cookie)
			}
		})
	}
}

func TestPages(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := ts.login(t)

	tests := []struct {
		name   string
		target string
		opts   []requestOption
		ctype  string
		want   string
	}{
		{name: "dashboard", target: "/", opts: []requestOption{withSession(token)}, ctype: "text/html; charset=utf-8", want: `id="tasks"`},
		{name: "login", target: "/login", ctype: "text/html; charset=utf-8", want: `id="login-form"`},
		{name: "robots", target: "/robots.txt", ctype: "text/plain; charset=utf-8", want: "Disallow: /"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := ts.do(t, http.MethodGet, tt.target, "", tt.opts...)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.ctype, rec.Header().Get(echo.HeaderContentType))
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[statusResponse](t, rec)
	assert.False(t, status.IsActive)
	assert.Nil(t, status.CurrentTask)

	rec = ts.do(t, http.MethodPost, "/api/status", `{"is_active":true,"current_task":"triaging mail"}`, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode[statusResponse](t, rec)
	assert.True(t, status.IsActive)
	require.NotNil(t, status.CurrentTask)
	assert.Equal(t, "triaging mail", *status.CurrentTask)
}

func TestTasks(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := withSession(ts.login(t))

	rec := ts.do(t, http.MethodPost, "/api/tasks", `{"title":"write report"}`, session)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[taskResponse](t, rec)
	assert.Equal(t, "write report", first.Title)
	assert.Equal(t, string(storage.TaskTodo), first.Status)
	assert.Nil(t, first.Description)

	rec = ts.do(t, http.MethodPost, "/api/tasks", `{"title":"review pr","description":"backend","status":"in_progress"}`, withAPIKey(testAPIKey))
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[taskResponse](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/tasks", `{"id":`+itoa(first.ID)+`,"status":"done"}`, session)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[taskResponse](t, rec)
	assert.Equal(t, "write report", updated.Title)
	assert.Equal(t, string(storage.TaskDone), updated.Status)

	rec = ts.do(t, http.MethodGet, "/api/tasks", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[[]taskResponse](t, rec)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)

	query := url.Values{"filter": {`this.status == "done"`}}.Encode()
	rec = ts.do(t, http.MethodGet, "/api/tasks?"+query, "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks = decode[[]taskResponse](t, rec)
	require.Len(t, tasks, 1)
	assert.Equal(t, first.ID, tasks[0].ID)

	rec = ts.do(t, http.MethodDelete, "/api/tasks?id="+itoa(first.ID), "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/tasks", "", session)
	assert.Len(t, decode[[]taskResponse](t, rec), 1)
}

func TestTasks_Errors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := withSession(ts.login(t))

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		msg    string
	}{
		{name: "create missing title", method: http.MethodPost, target: "/api/tasks", body: `{}`, status: http.StatusBadRequest, msg: "title is required"},
		{name: "create bad status", method: http.MethodPost, target: "/api/tasks", body: `{"title":"x","status":"blocked"}`, status: http.StatusBadRequest, msg: "status must be one of todo, in_progress, done, archived"},
		{name: "create malformed json", method: http.MethodPost, target: "/api/tasks", body: `{"title":`, status: http.StatusBadRequest, msg: "Invalid JSON body"},
		{name: "update missing id", method: http.MethodPut, target: "/api/tasks", body: `{"title":"x"}`, status: http.StatusBadRequest, msg: "id is required"},
		{name: "update unknown task", method: http.MethodPut, target: "/api/tasks", body: `{"id":9999,"title":"x"}`, status: http.StatusNotFound, msg: "Not found"},
		{name: "update bad status", method: http.MethodPut, target: "/api/tasks", body: `{"id":1,"status":"later"}`, status: http.StatusBadRequest, msg: "status must be one of todo, in_progress, done, archived"},
		{name: "delete missing id", method: http.MethodDelete, target: "/api/tasks", status: http.StatusBadRequest, msg: "id is required"},
		{name: "delete bad id", method: http.MethodDelete, target: "/api/tasks?id=abc", status: http.StatusBadRequest, msg: "id must be a positive integer"},
		{name: "filter not bool", method: http.MethodGet, target: "/api/tasks?filter=1", status: http.StatusBadRequest},
		{name: "filter syntax error", method: http.MethodGet, target: "/api/tasks?filter=" + url.QueryEscape("this.status =="), status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := ts.do(t, tt.method, tt.target, tt.body, session)
			if tt.msg == "" {
				assert.Equal(t, tt.status, rec.Code, rec.Body.String())
				return
			}
			assertError(t, rec, tt.status, tt.msg)
		})
	}
}

func TestNotes(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := withSession(ts.login(t))

	rec := ts.do(t, http.MethodPut, "/api/notes", `{"content":"# Today\n\n- **ship** it"}`, session)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/notes", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	note := decode[noteResponse](t, rec)
	assert.Equal(t, "# Today\n\n- **ship** it", note.Content)
	assert.Nil(t, note.HTML)

	rec = ts.do(t, http.MethodGet, "/api/notes?format=html", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	note = decode[noteResponse](t, rec)
	require.NotNil(t, note.HTML)
	assert.Contains(t, *note.HTML, "Today</h1>")
	assert.Contains(t, *note.HTML, "<strong>ship</strong>")
}

func TestNotes_Import(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		want        string
	}{
		{
			name:        "html",
			contentType: "text/html; charset=utf-8",
			body:        `<p>Hello <strong>world</strong></p><script>alert(1)</script>`,
			status:      http.StatusOK,
			want:        "Hello **world**",
		},
		{
			name:        "plain text",
			contentType: "text/plain",
			body:        "line one   \r\nline two",
			status:      http.StatusOK,
			want:        "line one\nline two",
		},
		{
			name:        "json with mixed case media type",
			contentType: "Application/JSON; charset=UTF-8",
			body:        `{"content":"- call the dentist"}`,
			status:      http.StatusOK,
			want:        "- call the dentist",
		},
		{
			name:        "unsupported",
			contentType: "application/pdf",
			body:        "%PDF-1.7",
			status:      http.StatusUnsupportedMediaType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			rec := ts.do(t, http.MethodPut, "/api/notes", tt.body,
				withAPIKey(testAPIKey), withContentType(tt.contentType))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			rec = ts.do(t, http.MethodGet, "/api/notes", "", withAPIKey(testAPIKey))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, decode[noteResponse](t, rec).Content)
		})
	}
}

func TestLog_Paging(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	key := withAPIKey(testAPIKey)

	for _, action := range []string{"first", "second", "third"} {
		rec := ts.do(t, http.MethodPost, "/api/log", `{"action":"`+action+`"}`, key)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, action, decode[logEntryResponse](t, rec).Action)
	}

	rec := ts.do(t, http.MethodGet, "/api/log?limit=2", "", key)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]logEntryResponse](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, "third", entries[0].Action)
	assert.Equal(t, "second", entries[1].Action)
	next := rec.Header().Get(NextPageTokenHeader)
	require.NotEmpty(t, next)

	rec = ts.do(t, http.MethodGet, "/api/log?limit=2&page_token="+url.QueryEscape(next), "", key)
	require.Equal(t, http.StatusOK, rec.Code)
	entries = decode[[]logEntryResponse](t, rec)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Action)
	assert.Empty(t, rec.Header().Get(NextPageTokenHeader))

	rec = ts.do(t, http.MethodGet, "/api/log?page_token=bogus", "", key)
	assertError(t, rec, http.StatusBadRequest, "invalid pagination token")

	rec = ts.do(t, http.MethodGet, "/api/log?limit=0", "", key)
	assertError(t, rec, http.StatusBadRequest, "limit must be a positive integer")

	rec = ts.do(t, http.MethodPost, "/api/log", `{"details":"no action"}`, key)
	assertError(t, rec, http.StatusBadRequest, "action is required")
}

func TestArtifacts(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	session := withSession(ts.login(t))

	rec := ts.do(t, http.MethodPost, "/api/artifacts", `{"title":"syllabus","artifact_type":"pdf","url":"https://example.com/s.pdf","course":"CS101"}`, session)
	require.Equal(t, http.StatusOK, rec.Code)
	artifact := decode[artifactResponse](t, rec)
	assert.Equal(t, "pdf", artifact.ArtifactType)
	require.NotNil(t, artifact.Course)
	assert.Equal(t, "CS101", *artifact.Course)

	rec = ts.do(t, http.MethodPost, "/api/artifacts", `{"title":"draft"}`, session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(storage.ArtifactDocument), decode[artifactResponse](t, rec).ArtifactType)

	rec = ts.do(t, http.MethodPost, "/api/artifacts", `{"title":"clip","artifact_type":"video"}`, session)
	assertError(t, rec, http.StatusBadRequest, "artifact_type must be one of pdf, document, image, code, other")

	rec = ts.do(t, http.MethodPost, "/api/artifacts", `{"title":"link","url":"not a url"}`, session)
	assertError(t, rec, http.StatusBadRequest, "url is invalid")

	rec = ts.do(t, http.MethodGet, "/api/artifacts?limit=1", "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]artifactResponse](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/artifacts?id="+itoa(artifact.ID), "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/artifacts", "", session)
	assert.Len(t, decode[[]artifactResponse](t, rec), 1)
}

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		level string
	}{
		{name: "ok", body: `{"percentage":10}`, level: "ok"},
		{name: "moderate", body: `{"percentage":50}`, level: "moderate"},
		{name: "high", body: `{"used_tokens":160000,"percentage":80}`, level: "high"},
		{name: "critical", body: `{"percentage":95,"model":"opus"}`, level: "critical"},
		{name: "missing percentage", body: `{"compactions":2}`, level: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(t)
			session := withSession(ts.login(t))

			rec := ts.do(t, http.MethodPut, "/api/context", tt.body, session)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			res := decode[contextUpdateResponse](t, rec)
			assert.True(t, res.Success)
			assert.Equal(t, tt.level, res.WarningLevel)

			rec = ts.do(t, http.MethodGet, "/api/context", "", session)
			require.Equal(t, http.StatusOK, rec.Code)
			usage := decode[contextResponse](t, rec)
			assert.Equal(t, tt.level, usage.WarningLevel)
			assert.Equal(t, int64(storage.DefaultMaxTokens), usage.MaxTokens)
		})
	}

	t.Run("negative tokens", func(t *testing.T) {
		t.Parallel()
		ts := newTestServer(t)
		rec := ts.do(t, http.MethodPut, "/api/context", `{"used_tokens":-1}`, withSession(ts.login(t)))
		assertError(t, rec, http.StatusBadRequest, "used_tokens must be at least 0")
	})
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
