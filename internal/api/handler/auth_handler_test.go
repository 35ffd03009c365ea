package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

type stubAuthService struct {
	result      *ports.LoginResult
	err         error
	invalidated []string
}

func (s *stubAuthService) Authenticate(_ context.Context, username, password string) (*ports.LoginResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubAuthService) Logout(_ context.Context, sessionID string) error {
	s.invalidated = append(s.invalidated, sessionID)
	return nil
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLogin_Success(t *testing.T) {
	svc := &stubAuthService{result: &ports.LoginResult{
		Token: "token-abc",
		Session: &domain.Session{
			ID: "sess-1",
			User: domain.UserSnapshot{
				Name:  "Alice",
				Email: "alice@onepwr.org",
				Role:  domain.RoleApprover,
			},
			Status: domain.SessionActive,
		},
	}}
	h := NewAuthHandler(svc)

	c, rec := newTestContext(t, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"s3cret"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token != "token-abc" {
		t.Fatalf("token = %q", resp.Token)
	}
	if resp.User.Email != "alice@onepwr.org" {
		t.Fatalf("user = %+v", resp.User)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, rec := newTestContext(t, http.MethodPost, "/auth/login", `{"username":"alice"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestLogin_InvalidCredentialsPassthrough(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{err: domain.ErrInvalidCredentials})

	c, _ := newTestContext(t, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrong"}`)
	err := h.Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("handler must pass the domain error to the central mapper, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	c, rec := newTestContext(t, http.MethodPost, "/auth/logout", "")
	c.Set("session_id", "sess-1")

	if err := h.Logout(c); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(svc.invalidated) != 1 || svc.invalidated[0] != "sess-1" {
		t.Fatalf("session not invalidated: %v", svc.invalidated)
	}
}

func TestMe(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})

	c, rec := newTestContext(t, http.MethodGet, "/auth/me", "")
	c.Set("user", domain.UserSnapshot{Name: "Alice", Email: "alice@onepwr.org", Role: domain.RoleAdmin})

	if err := h.Me(c); err != nil {
		t.Fatalf("me: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snap domain.UserSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Email != "alice@onepwr.org" {
		t.Fatalf("snapshot = %+v", snap)
	}
}
