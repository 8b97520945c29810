package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/gptutor/internal/api/middleware"
	"github.com/felixgeelhaar/gptutor/internal/config"
	"github.com/felixgeelhaar/gptutor/internal/domain"
	"github.com/felixgeelhaar/gptutor/internal/storage/sqlite"
)

// fakeCompleter answers the exercise request and the title request in turn.
type fakeCompleter struct {
	mu    sync.Mutex
	title string
	err   error
	calls int
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []domain.Message) (domain.Role, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	if len(msgs) == 1 {
		return domain.RoleAssistant, "Write a function that reverses a string.", nil
	}
	return domain.RoleAssistant, f.title, nil
}

type testServer struct {
	router    *Router
	completer *fakeCompleter
	now       time.Time
}

func newTestServer(t *testing.T, checks map[string]Pinger) *testServer {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "gptutor.sqlite"))
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	cfg := config.Default()
	cfg.Server.Debug = true

	ts := &testServer{
		completer: &fakeCompleter{title: `Title: "Reverse a String"`},
		now:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	app, err := NewApp(AppConfig{
		Config:    cfg,
		Users:     sqlite.NewUserStore(db),
		Sessions:  sqlite.NewSessionStore(db),
		Log:       sqlite.NewExerciseLog(db),
		Completer: ts.completer,
		Checks:    checks,
		Clock:     func() time.Time { return ts.now },
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}

	ts.router = NewRouter(app)
	t.Cleanup(func() { ts.router.Close() })
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) register(t *testing.T, username, email string) *http.Cookie {
	t.Helper()

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username":         username,
		"email":            email,
		"password":         "s3cret",
		"password_confirm": "s3cret",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.SessionCookieName)
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeBody(t, rec, &resp)
	return resp.Error.Message
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Pinger
		want   int
	}{
		{"no checks", nil, http.StatusOK},
		{"healthy", map[string]Pinger{"database": PingFunc(func(context.Context) error { return nil })}, http.StatusOK},
		{"unhealthy", map[string]Pinger{"database": PingFunc(func(context.Context) error { return errors.New("down") })}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.checks)
			rec := ts.do(t, http.MethodGet, "/ready", nil, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodGet, "/health", nil, nil)

	rec := ts.do(t, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gptutor_http_requests_total") {
		t.Error("metrics output missing gptutor_http_requests_total")
	}
}

func TestRegister(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.register(t, "alice", "alice@example.com")

	tests := []struct {
		name    string
		body    map[string]string
		status  int
		message string
	}{
		{
			name:    "password mismatch",
			body:    map[string]string{"username": "bob", "email": "bob@example.com", "password": "a", "password_confirm": "b"},
			status:  http.StatusBadRequest,
			message: "Passwords don't match",
		},
		{
			name:    "duplicate username",
			body:    map[string]string{"username": "alice", "email": "other@example.com", "password": "a", "password_confirm": "a"},
			status:  http.StatusConflict,
			message: "Username exists",
		},
		{
			name:    "duplicate email",
			body:    map[string]string{"username": "carol", "email": "alice@example.com", "password": "a", "password_confirm": "a"},
			status:  http.StatusConflict,
			message: "E-mail address already used",
		},
		{
			name:   "multibyte password over 72 bytes",
			body:   map[string]string{"username": "erin", "email": "erin@example.com", "password": strings.Repeat("é", 40), "password_confirm": strings.Repeat("é", 40)},
			status: http.StatusBadRequest,
		},
		{
			name:   "invalid email",
			body:   map[string]string{"username": "dave", "email": "not-an-email", "password": "a", "password_confirm": "a"},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/v1/auth/register", tt.body, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.message != "" {
				if got := errorMessage(t, rec); got != tt.message {
					t.Errorf("message = %q, want %q", got, tt.message)
				}
			}
		})
	}
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.register(t, "alice", "alice@example.com")

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "alice@example.com", "password": "s3cret",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly {
		t.Error("session cookie should be HttpOnly")
	}

	failures := []map[string]string{
		{"email": "alice@example.com", "password": "wrong"},
		{"email": "nobody@example.com", "password": "s3cret"},
	}
	for _, body := range failures {
		rec := ts.do(t, http.MethodPost, "/api/v1/auth/login", body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("login(%s) status = %d, want 401", body["email"], rec.Code)
		}
		if got := errorMessage(t, rec); got != "Failed" {
			t.Errorf("login(%s) message = %q, want Failed", body["email"], got)
		}
	}
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.register(t, "alice", "alice@example.com")

	if rec := ts.do(t, http.MethodGet, "/api/v1/auth/me", nil, cookie); rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200", rec.Code)
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/logout", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", rec.Code)
	}

	if rec := ts.do(t, http.MethodGet, "/api/v1/auth/me", nil, cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	ts := newTestServer(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/exercises"},
		{http.MethodGet, "/api/v1/exercises"},
		{http.MethodGet, "/api/v1/timer"},
	}
	for _, rt := range routes {
		rec := ts.do(t, rt.method, rt.path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want 401", rt.method, rt.path, rec.Code)
		}
	}

	bogus := &http.Cookie{Name: middleware.SessionCookieName, Value: "not-a-token"}
	if rec := ts.do(t, http.MethodGet, "/api/v1/timer", nil, bogus); rec.Code != http.StatusUnauthorized {
		t.Errorf("bogus cookie status = %d, want 401", rec.Code)
	}
}

func TestExerciseFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.register(t, "alice", "alice@example.com")

	var opts map[string][]string
	rec := ts.do(t, http.MethodGet, "/api/v1/options", nil, cookie)
	decodeBody(t, rec, &opts)
	if len(opts["levels"]) == 0 || len(opts["topics"]) == 0 || len(opts["durations"]) == 0 {
		t.Fatalf("options = %v, want non-empty lists", opts)
	}

	var timer struct {
		Elapsed string `json:"elapsed"`
	}
	decodeBody(t, ts.do(t, http.MethodGet, "/api/v1/timer", nil, cookie), &timer)
	if timer.Elapsed != "00:00:00" {
		t.Errorf("idle timer = %q, want 00:00:00", timer.Elapsed)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/exercises", map[string]string{
		"action": "start", "level": "Beginner", "topic": "Python", "duration": "5 minutes",
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var started struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Body  string `json:"body"`
	}
	decodeBody(t, rec, &started)
	if started.Title != "Reverse a String" {
		t.Errorf("title = %q, want %q", started.Title, "Reverse a String")
	}
	if started.Body != "Write a function that reverses a string." {
		t.Errorf("body = %q", started.Body)
	}
	if ts.completer.calls != 2 {
		t.Errorf("completion calls = %d, want 2", ts.completer.calls)
	}

	ts.now = ts.now.Add(90 * time.Second)
	decodeBody(t, ts.do(t, http.MethodGet, "/api/v1/timer", nil, cookie), &timer)
	if timer.Elapsed != "00:01:30" {
		t.Errorf("running timer = %q, want 00:01:30", timer.Elapsed)
	}

	var list struct {
		Exercises []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"exercises"`
		Total int `json:"total"`
	}
	decodeBody(t, ts.do(t, http.MethodGet, "/api/v1/exercises", nil, cookie), &list)
	if list.Total != 1 || list.Exercises[0].ID != started.ID || list.Exercises[0].Title != "Reverse a String" {
		t.Errorf("list = %+v", list)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/exercises/"+started.ID, nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	other := ts.register(t, "bob", "bob@example.com")
	if rec := ts.do(t, http.MethodGet, "/api/v1/exercises/"+started.ID, nil, other); rec.Code != http.StatusNotFound {
		t.Errorf("foreign get status = %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/v1/exercises", map[string]string{"action": "reset"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body = %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, ts.do(t, http.MethodGet, "/api/v1/timer", nil, cookie), &timer)
	if timer.Elapsed != "00:00:00" {
		t.Errorf("timer after reset = %q, want 00:00:00", timer.Elapsed)
	}
}

func TestStartExercise_Errors(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.register(t, "alice", "alice@example.com")

	tests := []struct {
		name   string
		body   map[string]string
		err    error
		status int
	}{
		{"unknown action", map[string]string{"action": "pause"}, nil, http.StatusBadRequest},
		{"missing topic", map[string]string{"action": "start", "level": "Beginner", "duration": "5 minutes"}, nil, http.StatusBadRequest},
		{"unsupported level", map[string]string{"action": "start", "level": "Wizard", "topic": "Python", "duration": "5 minutes"}, nil, http.StatusBadRequest},
		{"unknown field", map[string]string{"action": "start", "level": "Beginner", "topic": "Python", "duration": "5 minutes", "extra": "x"}, nil, http.StatusBadRequest},
		{"upstream failure", map[string]string{"action": "start", "level": "Beginner", "topic": "Python", "duration": "5 minutes"}, domain.ErrUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.completer.err = tt.err
			rec := ts.do(t, http.MethodPost, "/api/v1/exercises", tt.body, cookie)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}

	ts.completer.err = nil
	var list struct {
		Total int `json:"total"`
	}
	decodeBody(t, ts.do(t, http.MethodGet, "/api/v1/exercises", nil, cookie), &list)
	if list.Total != 0 {
		t.Errorf("exercises after failures = %d, want 0", list.Total)
	}
}
