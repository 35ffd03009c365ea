package ports

import (
	"context"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

// LoginResult is returned on successful authentication. Token is a signed
// bearer envelope carrying the session id; Session is the durable record
// minted by the session store.
type LoginResult struct {
	Token   string
	Session *domain.Session
}

// AuthService validates presented credentials against the user directory and
// mints a session on success.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
}

// AccountRepository reads the user directory table.
type AccountRepository interface {
	// FindByUsername matches case-insensitively and returns
	// domain.ErrAccountNotFound on miss.
	FindByUsername(ctx context.Context, username string) (*domain.Account, error)
}
