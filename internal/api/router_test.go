package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/account-service/internal/core/service"
	"github.com/99minutos/account-service/internal/infrastructure/db/memory"
	"github.com/99minutos/account-service/internal/infrastructure/http/handlers"
)

type testServer struct {
	e      *echo.Echo
	tokens *service.TokenService
}

func newTestServer(t *testing.T, tokenErrorStatus int) *testServer {
	t.Helper()

	repo := memory.NewUserRepository()
	tokens := service.NewTokenService(repo, "router-test-secret", time.Hour, zerolog.Nop())
	users := service.NewUserService(repo, service.NewBcryptHasher(bcrypt.MinCost), tokens, zerolog.Nop())

	if _, err := users.EnsureAdmin(context.Background(), "root", "root@example.com", "root-pw"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}

	e := NewRouter(RouterConfig{
		Users:             users,
		Tokens:            tokens,
		Readiness:         map[string]handlers.Pinger{"memory": repo},
		TokenErrorStatus:  tokenErrorStatus,
		MetricsRegisterer: prometheus.NewRegistry(),
		Log:               zerolog.Nop(),
	})
	return &testServer{e: e, tokens: tokens}
}

func (s *testServer) do(method, target, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) signin(t *testing.T, username, password string) string {
	t.Helper()
	q := url.Values{"username": {username}, "password": {password}}
	rec := s.do(http.MethodPost, "/users/signin?"+q.Encode(), "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signin %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	return rec.Body.String()
}

func (s *testServer) signup(token, body string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/users/signup", token, echo.MIMEApplicationJSON, strings.NewReader(body))
}

func TestRouter_AliceScenario(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.signup("", `{"username":"alice","email":"a@x.com","password":"pw1","roles":["ROLE_CLIENT"]}`)
	if rec.Code != http.StatusOK || rec.Body.String() != "alice" {
		t.Fatalf("signup: expected 200 alice, got %d %s", rec.Code, rec.Body.String())
	}

	token := s.signin(t, "alice", "pw1")
	p, err := s.tokens.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.Subject != "alice" || len(p.Roles) != 1 || p.Roles[0] != "ROLE_CLIENT" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	rec = s.do(http.MethodPost, "/users/signin?username=alice&password=wrong", "", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("wrong password: expected 422, got %d", rec.Code)
	}

	rec = s.do(http.MethodGet, "/users/me", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if me["username"] != "alice" || me["email"] != "a@x.com" {
		t.Fatalf("unexpected profile: %+v", me)
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}
}

func TestRouter_SignupRules(t *testing.T) {
	s := newTestServer(t, 0)

	body := `{"username":"bob","password":"pw1","roles":["ROLE_CLIENT"]}`
	if rec := s.signup("", body); rec.Code != http.StatusOK {
		t.Fatalf("first signup: expected 200, got %d", rec.Code)
	}
	if rec := s.signup("", body); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate signup: expected 422, got %d", rec.Code)
	}
	if rec := s.signup("", `{"username":"bob2","password":"pw1"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing roles: expected 400, got %d", rec.Code)
	}
	if rec := s.signup("", `{"username":"bob3","password":"pw1","roles":["ROLE_ROOT"]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: expected 400, got %d", rec.Code)
	}

	adminBody := `{"username":"eve","password":"pw1","roles":["ROLE_ADMIN"]}`
	if rec := s.signup("", adminBody); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous admin signup: expected 403, got %d", rec.Code)
	}
	clientToken := s.signin(t, "bob", "pw1")
	if rec := s.signup(clientToken, adminBody); rec.Code != http.StatusForbidden {
		t.Fatalf("client admin signup: expected 403, got %d", rec.Code)
	}
	rootToken := s.signin(t, "root", "root-pw")
	if rec := s.signup(rootToken, adminBody); rec.Code != http.StatusOK {
		t.Fatalf("admin-created admin signup: expected 200, got %d", rec.Code)
	}
}

func TestRouter_DeleteScenario(t *testing.T) {
	s := newTestServer(t, 0)

	if rec := s.signup("", `{"username":"alice","password":"pw1","roles":["ROLE_CLIENT"]}`); rec.Code != http.StatusOK {
		t.Fatalf("signup: %d", rec.Code)
	}
	clientToken := s.signin(t, "alice", "pw1")
	rootToken := s.signin(t, "root", "root-pw")

	if rec := s.do(http.MethodDelete, "/users/alice", "", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous delete: expected 403, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/users/alice", clientToken, "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("client delete: expected 403, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/users/alice", clientToken, "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("client search: expected 403, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/users/alice", rootToken, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("admin search: expected 200, got %d", rec.Code)
	}

	rec := s.do(http.MethodDelete, "/users/alice", rootToken, "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "alice" {
		t.Fatalf("admin delete: expected 200 alice, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(http.MethodGet, "/users/alice", rootToken, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("search after delete: expected 404, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/users/alice", rootToken, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}

	// The client's token is still cryptographically valid but its account is gone.
	if rec := s.do(http.MethodGet, "/users/me", clientToken, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("stale me: expected 404, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/users/refresh", clientToken, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("stale refresh: expected 404, got %d", rec.Code)
	}
}

func TestRouter_Refresh(t *testing.T) {
	s := newTestServer(t, 0)

	token := s.signin(t, "root", "root-pw")
	rec := s.do(http.MethodGet, "/users/refresh", token, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", rec.Code)
	}

	before, err := s.tokens.Validate(token)
	if err != nil {
		t.Fatalf("validate original: %v", err)
	}
	after, err := s.tokens.Validate(rec.Body.String())
	if err != nil {
		t.Fatalf("validate refreshed: %v", err)
	}
	if !after.ExpiresAt.After(before.ExpiresAt) {
		t.Fatalf("refreshed expiry %v must be after %v", after.ExpiresAt, before.ExpiresAt)
	}

	if rec := s.do(http.MethodGet, "/users/refresh", "", "", nil); rec.Code != http.StatusForbidden {
		t.Fatalf("anonymous refresh: expected 403, got %d", rec.Code)
	}
}

func TestRouter_TokenErrors(t *testing.T) {
	tamper := func(tok string) string {
		parts := strings.Split(tok, ".")
		sig := []byte(parts[2])
		mid := len(sig) / 2
		if sig[mid] == 'A' {
			sig[mid] = 'B'
		} else {
			sig[mid] = 'A'
		}
		parts[2] = string(sig)
		return strings.Join(parts, ".")
	}

	tests := []struct {
		name   string
		status int
		want   int
	}{
		{name: "default status", status: 0, want: http.StatusInternalServerError},
		{name: "configured 401", status: http.StatusUnauthorized, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.status)
			token := s.signin(t, "root", "root-pw")

			for _, bad := range []string{tamper(token), "not-a-token"} {
				rec := s.do(http.MethodGet, "/users/me", bad, "", nil)
				if rec.Code != tt.want {
					t.Fatalf("expected %d, got %d", tt.want, rec.Code)
				}
			}

			// A bad token is rejected even on public routes; it is never
			// downgraded to anonymous.
			rec := s.do(http.MethodPost, "/users/signin?username=root&password=root-pw", "garbage", "", nil)
			if rec.Code != tt.want {
				t.Fatalf("public route with bad token: expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t, 0)

	if rec := s.do(http.MethodGet, "/health", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	rec := s.do(http.MethodGet, "/health/ready", "", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"memory"`) {
		t.Fatalf("ready: expected 200 with memory dependency, got %d %s", rec.Code, rec.Body.String())
	}

	_ = s.signin(t, "root", "root-pw")
	rec = s.do(http.MethodGet, "/metrics", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "accounts_signins_total") {
		t.Fatalf("metrics output missing signin counter")
	}

	if rec := s.do(http.MethodGet, "/swagger/doc.json", "", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("swagger: expected 200, got %d", rec.Code)
	}
}
