package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

// --- stubs ---

type stubAccounts struct {
	accounts map[string]*domain.Account
	err      error
}

func (s *stubAccounts) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	if acct, ok := s.accounts[strings.ToLower(username)]; ok {
		cp := *acct
		return &cp, nil
	}
	return nil, domain.ErrAccountNotFound
}

type stubSessionService struct {
	created     []domain.UserSnapshot
	createErr   error
	invalidated []string
}

func (s *stubSessionService) Create(_ context.Context, user domain.UserSnapshot) (*domain.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, user)
	return &domain.Session{
		ID:     "sess-test",
		User:   user,
		Status: domain.SessionActive,
	}, nil
}

func (s *stubSessionService) Validate(_ context.Context, _ string) (*domain.UserSnapshot, error) {
	return nil, domain.ErrSessionInvalid
}

func (s *stubSessionService) Invalidate(_ context.Context, sessionID string) error {
	s.invalidated = append(s.invalidated, sessionID)
	return nil
}

func (s *stubSessionService) Sweep(_ context.Context) (int, error) { return 0, nil }

// --- helpers ---

func bcryptHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func directoryWith(accts ...*domain.Account) *stubAccounts {
	m := make(map[string]*domain.Account, len(accts))
	for _, a := range accts {
		m[strings.ToLower(a.Username)] = a
	}
	return &stubAccounts{accounts: m}
}

// --- tests ---

func TestAuthenticate_Success(t *testing.T) {
	accounts := directoryWith(&domain.Account{
		Username:   "alice",
		Name:       "Alice",
		Email:      "alice@onepwr.org",
		Department: "Engineering",
		Role:       domain.RoleApprover,
		Credential: bcryptHash(t, "s3cret"),
		Active:     true,
	})
	sessions := &stubSessionService{}
	svc := NewAuthService(accounts, sessions, "jwt-secret", 6*time.Hour, zerolog.Nop())

	result, err := svc.Authenticate(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if result.Token == "" {
		t.Fatalf("token missing")
	}
	if result.Session.User.Role != domain.RoleApprover {
		t.Fatalf("snapshot role = %q", result.Session.User.Role)
	}
	if len(sessions.created) != 1 {
		t.Fatalf("expected one session, got %d", len(sessions.created))
	}

	// The token carries the session id, not live credentials.
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(result.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte("jwt-secret"), nil
	})
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims["sid"] != "sess-test" {
		t.Fatalf("token sid = %v", claims["sid"])
	}
}

func TestAuthenticate_LegacyPlaintextCredential(t *testing.T) {
	// Rows from the legacy workbook still hold raw values.
	accounts := directoryWith(&domain.Account{
		Username:   "bob",
		Email:      "bob@onepwr.org",
		Role:       domain.RoleRequestor,
		Credential: "plain-password",
		Active:     true,
	})
	svc := NewAuthService(accounts, &stubSessionService{}, "jwt-secret", 0, zerolog.Nop())

	if _, err := svc.Authenticate(context.Background(), "bob", "plain-password"); err != nil {
		t.Fatalf("legacy credential should authenticate: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "bob", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
}

func TestAuthenticate_FailuresAreIndistinguishable(t *testing.T) {
	accounts := directoryWith(
		&domain.Account{
			Username:   "alice",
			Email:      "alice@onepwr.org",
			Credential: bcryptHash(t, "s3cret"),
			Active:     true,
		},
		&domain.Account{
			Username:   "carol",
			Email:      "carol@onepwr.org",
			Credential: bcryptHash(t, "s3cret"),
			Active:     false,
		},
	)
	svc := NewAuthService(accounts, &stubSessionService{}, "jwt-secret", 0, zerolog.Nop())
	ctx := context.Background()

	cases := []struct {
		name               string
		username, password string
	}{
		{"unknown user", "nobody", "s3cret"},
		{"wrong password", "alice", "wrong"},
		{"inactive account", "carol", "s3cret"},
		{"empty password", "alice", ""},
	}
	for _, tc := range cases {
		_, err := svc.Authenticate(ctx, tc.username, tc.password)
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("%s: got %v", tc.name, err)
		}
		if err.Error() != domain.ErrInvalidCredentials.Error() {
			t.Fatalf("%s: message leaks detail: %q", tc.name, err)
		}
	}
}

func TestAuthenticate_DirectoryUnavailable(t *testing.T) {
	accounts := &stubAccounts{err: errors.New("table unreachable")}
	svc := NewAuthService(accounts, &stubSessionService{}, "jwt-secret", 0, zerolog.Nop())

	_, err := svc.Authenticate(context.Background(), "alice", "s3cret")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthenticate_SessionFailureBlocksToken(t *testing.T) {
	accounts := directoryWith(&domain.Account{
		Username:   "alice",
		Email:      "alice@onepwr.org",
		Credential: bcryptHash(t, "s3cret"),
		Active:     true,
	})
	sessions := &stubSessionService{createErr: domain.ErrStoreUnavailable}
	svc := NewAuthService(accounts, sessions, "jwt-secret", 0, zerolog.Nop())

	result, err := svc.Authenticate(context.Background(), "alice", "s3cret")
	if err == nil || result != nil {
		t.Fatalf("no token may leave the gateway without a session")
	}
}

func TestLogout(t *testing.T) {
	sessions := &stubSessionService{}
	svc := NewAuthService(&stubAccounts{}, sessions, "jwt-secret", 0, zerolog.Nop())

	if err := svc.Logout(context.Background(), "sess-9"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.invalidated) != 1 || sessions.invalidated[0] != "sess-9" {
		t.Fatalf("session not invalidated: %v", sessions.invalidated)
	}
}
