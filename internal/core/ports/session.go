package ports

import (
	"context"
	"time"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

// SessionService is the authoritative session lifecycle manager across the
// ephemeral cache (hot path) and the durable table (fallback + audit trail).
type SessionService interface {
	Create(ctx context.Context, user domain.UserSnapshot) (*domain.Session, error)
	// Validate returns the cached user payload for an active session, or
	// domain.ErrSessionInvalid. "Never existed" and "deactivated" are
	// indistinguishable to the caller.
	Validate(ctx context.Context, sessionID string) (*domain.UserSnapshot, error)
	Invalidate(ctx context.Context, sessionID string) error
	// Sweep removes durable rows that are deactivated and older than the
	// retention window. Active rows are never swept. Returns rows removed.
	Sweep(ctx context.Context) (int, error)
}

// SessionRepository persists session rows. Rows are append-only; deactivation
// mutates in place and physical deletion happens only through SweepDeactivated.
type SessionRepository interface {
	Append(ctx context.Context, s *domain.Session) error
	// FindActive returns the active row for sessionID, or domain.ErrSessionInvalid
	// when the row is absent or deactivated.
	FindActive(ctx context.Context, sessionID string) (*domain.Session, error)
	// DeactivateByEmail flips every active row for the email in one batch write.
	// Returns the number of rows deactivated.
	DeactivateByEmail(ctx context.Context, email string, now time.Time) (int, error)
	Deactivate(ctx context.Context, sessionID string, now time.Time) error
	Touch(ctx context.Context, sessionID string, now time.Time) error
	// SweepDeactivated deletes deactivated rows whose lastAccessed is before cutoff.
	SweepDeactivated(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionCache is the ephemeral tier: fast, TTL-bound, never authoritative.
type SessionCache interface {
	// Get returns the cached snapshot, nil on miss.
	Get(ctx context.Context, sessionID string) (*domain.UserSnapshot, error)
	Put(ctx context.Context, sessionID string, user domain.UserSnapshot) error
	// Extend re-arms the entry TTL. A miss is not an error.
	Extend(ctx context.Context, sessionID string) error
	Remove(ctx context.Context, sessionID string) error
}
