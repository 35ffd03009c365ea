package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// AuthService is the authentication gateway: it checks presented credentials
// against the user directory and delegates session minting to the store.
type AuthService struct {
	accounts  ports.AccountRepository
	sessions  ports.SessionService
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(
	accounts ports.AccountRepository,
	sessions ports.SessionService,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 6 * time.Hour
	}
	return &AuthService{
		accounts:  accounts,
		sessions:  sessions,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Authenticate validates username/password and mints a session. Unknown
// user, wrong password, and disabled account all collapse into
// ErrInvalidCredentials so callers cannot enumerate the directory.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	acct, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: directory lookup: %w", domain.ErrStoreUnavailable)
	}
	if !acct.Active || !credentialMatches(acct.Credential, password) {
		return nil, domain.ErrInvalidCredentials
	}

	// Session creation failure is authentication failure: no token leaves
	// the gateway without a verified durable session behind it.
	sess, err := s.sessions.Create(ctx, acct.Snapshot())
	if err != nil {
		return nil, err
	}

	token, err := s.signToken(sess)
	if err != nil {
		return nil, fmt.Errorf("auth: sign token: %w", err)
	}

	s.log.Info().Str("email", sess.User.Email).Str("role", sess.User.Role).Msg("user authenticated")
	return &ports.LoginResult{Token: token, Session: sess}, nil
}

// Logout invalidates the session behind a presented token id.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Invalidate(ctx, sessionID)
}

// signToken wraps the session id in a signed bearer envelope. The JWT is not
// the source of truth: middleware always revalidates the embedded session id
// against the store, so logout revokes the token immediately.
func (s *AuthService) signToken(sess *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"sid":   sess.ID,
		"email": sess.User.Email,
		"role":  sess.User.Role,
		"name":  sess.User.Name,
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

// credentialMatches compares a presented password against the stored
// credential. Migrated directory rows hold bcrypt hashes; legacy workbook
// rows still hold the raw value and are compared in constant time.
func credentialMatches(stored, presented string) bool {
	if strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
