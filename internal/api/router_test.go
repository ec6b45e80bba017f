package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
	"github.com/maalej-ala/stage2-auth/internal/core/password"
	"github.com/maalej-ala/stage2-auth/internal/core/ports"
	"github.com/maalej-ala/stage2-auth/internal/core/service"
	"github.com/maalej-ala/stage2-auth/internal/core/token"
)

// memoryAccounts is an in-memory ports.AccountRepository.
type memoryAccounts struct {
	mu     sync.Mutex
	byID   map[string]domain.Account
	nextID int
}

func (m *memoryAccounts) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == a.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	m.nextID++
	stored := *a
	stored.ID = strconv.Itoa(m.nextID)
	m.byID[stored.ID] = stored
	return &stored, nil
}

func (m *memoryAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byID {
		if a.Email == email {
			return &a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *memoryAccounts) FindByID(_ context.Context, id string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return &a, nil
}

func (m *memoryAccounts) List(_ context.Context) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Account, 0, len(m.byID))
	for i := 1; i <= m.nextID; i++ {
		if a, ok := m.byID[strconv.Itoa(i)]; ok {
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *memoryAccounts) Update(_ context.Context, a *domain.Account) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[a.ID]; !ok {
		return nil, domain.ErrAccountNotFound
	}
	for id, existing := range m.byID {
		if id != a.ID && existing.Email == a.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	m.byID[a.ID] = *a
	stored := *a
	return &stored, nil
}

func (m *memoryAccounts) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrAccountNotFound
	}
	delete(m.byID, id)
	return nil
}

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	codec, err := token.NewCodec([]byte("router-test-signing-key-0123456789"), 900*time.Second, time.Hour)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	repo := &memoryAccounts{byID: make(map[string]domain.Account)}
	sessions := service.NewSessionManager(repo, password.NewHasher(bcrypt.MinCost), codec, zerolog.Nop())

	if _, err := sessions.EnsureAdmin(context.Background(), ports.CreateAccountInput{
		FirstName: "Root", Email: "root@x.com", Password: "rootpw",
	}); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	e := NewRouter(Dependencies{
		Sessions:       sessions,
		Admin:          sessions,
		Authorizer:     service.NewGate(codec),
		AllowedOrigins: []string{"http://localhost:4200"},
		Log:            zerolog.Nop(),
		Registry:       prometheus.NewRegistry(),
	})
	return &testServer{e: e}
}

func (s *testServer) do(t *testing.T, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid json from %s %s: %v", method, path, err)
		}
	}
	return rec.Code, out
}

func (s *testServer) login(t *testing.T, email, pw string) (int, map[string]any) {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+pw+`"}`)
}

func TestRouter_ActivationFlow(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"firstName":"Jane","lastName":"Doe","email":"jane@x.com","password":"pw123"}`)
	if code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d %v", code, body)
	}
	if body["token"] != nil || body["refreshToken"] != nil {
		t.Fatalf("register must not issue tokens: %v", body)
	}
	user := body["user"].(map[string]any)
	if user["active"] != false {
		t.Fatalf("expected inactive account, got %v", user)
	}
	janeID := user["id"].(string)

	code, body = s.login(t, "jane@x.com", "pw123")
	if code != http.StatusUnauthorized || body["message"] == "" {
		t.Fatalf("inactive login: expected 401 with message, got %d %v", code, body)
	}

	code, body = s.login(t, "root@x.com", "rootpw")
	if code != http.StatusOK {
		t.Fatalf("admin login: expected 200, got %d %v", code, body)
	}
	adminToken := body["token"].(string)

	code, body = s.do(t, http.MethodPut, "/api/auth/users/"+janeID, adminToken,
		`{"firstName":"Jane","lastName":"Doe","email":"jane@x.com","role":"USER","active":true}`)
	if code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d %v", code, body)
	}

	code, body = s.login(t, "jane@x.com", "pw123")
	if code != http.StatusOK {
		t.Fatalf("login after activation: expected 200, got %d %v", code, body)
	}
	if body["token"] == nil || body["refreshToken"] == nil || body["expiresIn"] != float64(900) {
		t.Fatalf("unexpected session: %v", body)
	}
	janeAccess := body["token"].(string)
	janeRefresh := body["refreshToken"].(string)

	code, body = s.do(t, http.MethodGet, "/api/auth/me", janeAccess, "")
	if code != http.StatusOK || body["email"] != "jane@x.com" {
		t.Fatalf("me: got %d %v", code, body)
	}

	code, body = s.do(t, http.MethodPost, "/api/auth/refresh", "", `{"token":"`+janeRefresh+`"}`)
	if code != http.StatusOK || body["token"] == nil {
		t.Fatalf("refresh: got %d %v", code, body)
	}

	code, _ = s.do(t, http.MethodPost, "/api/auth/refresh", "", `{"token":"`+janeAccess+`"}`)
	if code != http.StatusUnauthorized {
		t.Fatalf("refresh with access token: expected 401, got %d", code)
	}
}

func TestRouter_PasswordByteLimit(t *testing.T) {
	s := newTestServer(t)
	long := strings.Repeat("é", 50)

	code, body := s.do(t, http.MethodPost, "/api/auth/register", "",
		`{"firstName":"Jane","email":"jane@x.com","password":"`+long+`"}`)
	if code != http.StatusBadRequest || body["message"] != "invalid input" {
		t.Fatalf("register: expected 400 invalid input, got %d %v", code, body)
	}

	_, body = s.login(t, "root@x.com", "rootpw")
	adminToken := body["token"].(string)

	code, body = s.do(t, http.MethodPost, "/api/auth/create", adminToken,
		`{"firstName":"Bob","email":"bob@x.com","password":"`+long+`"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("create: expected 400, got %d %v", code, body)
	}
}

func TestRouter_AdminGate(t *testing.T) {
	s := newTestServer(t)

	_, body := s.login(t, "root@x.com", "rootpw")
	adminToken := body["token"].(string)

	code, body := s.do(t, http.MethodPost, "/api/auth/create", adminToken,
		`{"firstName":"Bob","email":"bob@x.com","password":"pw","role":"USER","active":true}`)
	if code != http.StatusOK {
		t.Fatalf("create: expected 200, got %d %v", code, body)
	}
	if body["token"] == nil || body["user"].(map[string]any)["email"] != "bob@x.com" {
		t.Fatalf("unexpected create response: %v", body)
	}

	code, _ = s.do(t, http.MethodPost, "/api/auth/create", adminToken,
		`{"firstName":"Bob","email":"bob@x.com","password":"pw"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate create: expected 400, got %d", code)
	}

	_, body = s.login(t, "bob@x.com", "pw")
	userToken := body["token"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		bearer string
		body   string
		code   int
	}{
		{"list without token", http.MethodGet, "/api/auth/users", "", "", http.StatusUnauthorized},
		{"list with garbage token", http.MethodGet, "/api/auth/users", "garbage", "", http.StatusUnauthorized},
		{"list as user", http.MethodGet, "/api/auth/users", userToken, "", http.StatusForbidden},
		{"delete as user", http.MethodDelete, "/api/auth/users/1", userToken, "", http.StatusForbidden},
		{"update unknown id", http.MethodPut, "/api/auth/users/999", adminToken, `{"firstName":"X"}`, http.StatusBadRequest},
		{"delete unknown id", http.MethodDelete, "/api/auth/users/999", adminToken, "", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := s.do(t, tc.method, tc.path, tc.bearer, tc.body)
			if code != tc.code {
				t.Fatalf("expected %d, got %d %v", tc.code, code, body)
			}
			if body["message"] == nil {
				t.Fatalf("expected error envelope, got %v", body)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/auth/users", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list as admin: expected 200, got %d", rec.Code)
	}
	var views []domain.AccountView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil || len(views) != 2 {
		t.Fatalf("expected 2 accounts, got %v (%v)", views, err)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password material leaked: %s", rec.Body.String())
	}

	code, body = s.do(t, http.MethodDelete, "/api/auth/users/2", adminToken, "")
	if code != http.StatusOK || body["message"] != "User deleted successfully" {
		t.Fatalf("delete: got %d %v", code, body)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: got %d %v", code, body)
	}

	code, _ = s.do(t, http.MethodGet, "/health/ready", "", "")
	if code != http.StatusOK {
		t.Fatalf("ready: expected 200 with no dependencies, got %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "auth_requests_total") {
		t.Fatalf("metrics: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:4200")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://localhost:4200" {
		t.Fatalf("CORS: expected allowed origin, got %q", got)
	}
}
