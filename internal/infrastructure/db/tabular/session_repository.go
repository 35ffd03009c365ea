package tabular

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
)

// SessionRepository keeps session rows in the workbook's Sessions sheet.
// The store has no row locking: callers hold the per-user lease around the
// scan-then-write cycles here.
type SessionRepository struct {
	store rowstore.Store
}

func NewSessionRepository(store rowstore.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) Append(ctx context.Context, s *domain.Session) error {
	t, err := r.store.Open(ctx, sessionsTable)
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	row, err := encodeSession(s)
	if err != nil {
		return err
	}
	return t.Append(ctx, row)
}

func (r *SessionRepository) FindActive(ctx context.Context, sessionID string) (*domain.Session, error) {
	t, err := r.store.Open(ctx, sessionsTable)
	if err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	for i, row := range rows {
		if cell(row, sessColID) != sessionID {
			continue
		}
		s, err := decodeSession(row, i)
		if err != nil {
			return nil, err
		}
		if !s.Active() {
			return nil, domain.ErrSessionInvalid
		}
		return s, nil
	}
	return nil, domain.ErrSessionInvalid
}

func (r *SessionRepository) DeactivateByEmail(ctx context.Context, email string, now time.Time) (int, error) {
	t, err := r.store.Open(ctx, sessionsTable)
	if err != nil {
		return 0, fmt.Errorf("open sessions: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	count := 0
	for i, row := range rows {
		s, err := decodeSession(row, i)
		if err != nil || !s.Active() {
			continue
		}
		if !strings.EqualFold(s.User.Email, email) {
			continue
		}
		s.Status = domain.SessionDeactivated
		s.LastAccessed = now
		encoded, err := encodeSession(s)
		if err != nil {
			return count, err
		}
		if err := t.WriteRow(ctx, i, encoded); err != nil {
			return count, fmt.Errorf("deactivate session row %d: %w", i, err)
		}
		count++
	}
	return count, nil
}

func (r *SessionRepository) Deactivate(ctx context.Context, sessionID string, now time.Time) error {
	return r.rewrite(ctx, sessionID, func(s *domain.Session) {
		s.Status = domain.SessionDeactivated
		s.LastAccessed = now
	})
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, now time.Time) error {
	return r.rewrite(ctx, sessionID, func(s *domain.Session) {
		s.LastAccessed = now
	})
}

// rewrite applies mutate to the row matching sessionID. Absence is a no-op.
func (r *SessionRepository) rewrite(ctx context.Context, sessionID string, mutate func(*domain.Session)) error {
	t, err := r.store.Open(ctx, sessionsTable)
	if err != nil {
		return fmt.Errorf("open sessions: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("scan sessions: %w", err)
	}
	for i, row := range rows {
		if cell(row, sessColID) != sessionID {
			continue
		}
		s, err := decodeSession(row, i)
		if err != nil {
			return err
		}
		mutate(s)
		encoded, err := encodeSession(s)
		if err != nil {
			return err
		}
		return t.WriteRow(ctx, i, encoded)
	}
	return nil
}

// SweepDeactivated deletes deactivated rows last touched before cutoff,
// walking backwards so earlier indexes stay valid as rows shift up.
func (r *SessionRepository) SweepDeactivated(ctx context.Context, cutoff time.Time) (int, error) {
	t, err := r.store.Open(ctx, sessionsTable)
	if err != nil {
		return 0, fmt.Errorf("open sessions: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	count := 0
	for i := len(rows) - 1; i >= 0; i-- {
		s, err := decodeSession(rows[i], i)
		if err != nil || s.Active() {
			continue
		}
		if !s.LastAccessed.Before(cutoff) {
			continue
		}
		if err := t.DeleteRow(ctx, i); err != nil {
			return count, fmt.Errorf("sweep session row %d: %w", i, err)
		}
		count++
	}
	return count, nil
}
