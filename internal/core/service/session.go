package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onepwr/procurement-tracker/internal/api/metrics"
	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// lockKeySession prefixes the per-user session replacement lease key.
const lockKeySession = "session:"

// SessionStore manages sessions across the ephemeral cache and the durable
// table. The cache serves the hot path; the table is authoritative and keeps
// deactivated rows as an audit trail until the retention window lapses.
type SessionStore struct {
	repo      ports.SessionRepository
	cache     ports.SessionCache
	locks     ports.Locker
	retention time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

func NewSessionStore(
	repo ports.SessionRepository,
	cache ports.SessionCache,
	locks ports.Locker,
	retention time.Duration,
	log zerolog.Logger,
) *SessionStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &SessionStore{
		repo:      repo,
		cache:     cache,
		locks:     locks,
		retention: retention,
		log:       log,
		now:       time.Now,
	}
}

// Create mints a fresh session for user, deactivating any prior active
// sessions for the same email (single-active-session policy). The durable
// write is verified by read-back before the token is handed out.
func (s *SessionStore) Create(ctx context.Context, user domain.UserSnapshot) (*domain.Session, error) {
	if user.Email == "" {
		return nil, fmt.Errorf("session: user snapshot missing email")
	}
	email := strings.ToLower(user.Email)
	now := s.now().UTC()

	// 1. Serialize replacement per user so two concurrent logins cannot both
	// end up active.
	unlock, err := s.locks.Acquire(ctx, lockKeySession+email)
	if err != nil {
		return nil, fmt.Errorf("session: acquire lease: %w", domain.ErrStoreUnavailable)
	}
	defer unlock()

	// 2. Batch-deactivate earlier sessions; rows stay in place for audit.
	replaced, err := s.repo.DeactivateByEmail(ctx, email, now)
	if err != nil {
		return nil, fmt.Errorf("session: deactivate prior: %w", domain.ErrStoreUnavailable)
	}
	if replaced > 0 {
		s.log.Info().Str("email", email).Int("replaced", replaced).Msg("prior sessions deactivated")
	}

	// 3. Append the new row. Session ids are never reused.
	sess := &domain.Session{
		ID:           uuid.NewString(),
		User:         user,
		Status:       domain.SessionActive,
		LastAccessed: now,
	}
	if err := s.repo.Append(ctx, sess); err != nil {
		return nil, fmt.Errorf("session: append row: %w", domain.ErrStoreUnavailable)
	}

	// 4. Verify the durable write before handing out the token.
	got, err := s.repo.FindActive(ctx, sess.ID)
	if err != nil || got.ID != sess.ID || got.User.Email != user.Email {
		return nil, fmt.Errorf("session: write verification failed: %w", domain.ErrStoreUnavailable)
	}

	// 5. Prime the cache. A cache failure is not fatal: validate falls back
	// to the durable row and re-primes.
	if err := s.cache.Put(ctx, sess.ID, user); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to prime session cache")
	}

	metrics.SessionsCreatedTotal.Inc()
	return sess, nil
}

// Validate returns the user payload for an active session. Cache hits skip
// the durable scan entirely; misses fall back to the table and re-prime the
// cache. Any durable failure is treated as invalid (fail closed).
func (s *SessionStore) Validate(ctx context.Context, sessionID string) (*domain.UserSnapshot, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionInvalid
	}

	snap, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Msg("session cache read failed, falling back to durable row")
	} else if snap != nil {
		if err := s.cache.Extend(ctx, sessionID); err != nil {
			s.log.Warn().Err(err).Msg("failed to extend session ttl")
		}
		metrics.SessionCacheTotal.WithLabelValues("hit").Inc()
		return snap, nil
	}
	metrics.SessionCacheTotal.WithLabelValues("miss").Inc()

	sess, err := s.repo.FindActive(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionInvalid) {
			s.log.Error().Err(err).Msg("durable session lookup failed, failing closed")
		}
		return nil, domain.ErrSessionInvalid
	}

	now := s.now().UTC()
	if err := s.repo.Touch(ctx, sessionID, now); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to touch session row")
	}
	if err := s.cache.Put(ctx, sessionID, sess.User); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to re-prime session cache")
	}
	return &sess.User, nil
}

// Invalidate deactivates a session in place. The durable row is kept for the
// audit trail; only the cache entry is removed.
func (s *SessionStore) Invalidate(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.cache.Remove(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to evict session cache entry")
	}
	if err := s.repo.Deactivate(ctx, sessionID, s.now().UTC()); err != nil {
		return fmt.Errorf("session: deactivate: %w", domain.ErrStoreUnavailable)
	}
	return nil
}

// Sweep bounds table growth by deleting rows that are both deactivated and
// older than the retention window. Active rows are never swept.
func (s *SessionStore) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	n, err := s.repo.SweepDeactivated(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("session: sweep: %w", domain.ErrStoreUnavailable)
	}
	if n > 0 {
		metrics.SessionsSweptTotal.Add(float64(n))
		s.log.Info().Int("removed", n).Msg("session rows swept")
	}
	return n, nil
}
