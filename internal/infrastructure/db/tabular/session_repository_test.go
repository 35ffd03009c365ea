package tabular

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
)

func seedSession(t *testing.T, repo *SessionRepository, id, email string, status domain.SessionStatus, last time.Time) {
	t.Helper()
	err := repo.Append(context.Background(), &domain.Session{
		ID:           id,
		User:         domain.UserSnapshot{Name: "User", Email: email, Role: "requestor"},
		Status:       status,
		LastAccessed: last,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func TestSessionRepository_FindActive(t *testing.T) {
	repo := NewSessionRepository(rowstore.NewMemoryStore())
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	seedSession(t, repo, "sess-live", "alice@onepwr.org", domain.SessionActive, now)
	seedSession(t, repo, "sess-dead", "alice@onepwr.org", domain.SessionDeactivated, now)

	s, err := repo.FindActive(ctx, "sess-live")
	if err != nil {
		t.Fatalf("find live: %v", err)
	}
	if s.User.Email != "alice@onepwr.org" {
		t.Fatalf("session = %+v", s)
	}

	if _, err := repo.FindActive(ctx, "sess-dead"); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("deactivated row must read invalid, got %v", err)
	}
	if _, err := repo.FindActive(ctx, "missing"); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("absent row must read invalid, got %v", err)
	}
}

func TestSessionRepository_DeactivateByEmail(t *testing.T) {
	repo := NewSessionRepository(rowstore.NewMemoryStore())
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	seedSession(t, repo, "s1", "alice@onepwr.org", domain.SessionActive, now)
	seedSession(t, repo, "s2", "Alice@OnePWR.org", domain.SessionActive, now)
	seedSession(t, repo, "s3", "bob@onepwr.org", domain.SessionActive, now)

	n, err := repo.DeactivateByEmail(ctx, "alice@onepwr.org", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if n != 2 {
		t.Fatalf("deactivated %d rows, want 2 (match is case-insensitive)", n)
	}

	if _, err := repo.FindActive(ctx, "s1"); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("s1 should be deactivated")
	}
	if _, err := repo.FindActive(ctx, "s3"); err != nil {
		t.Fatalf("bob's session must survive: %v", err)
	}
}

func TestSessionRepository_TouchAndSweep(t *testing.T) {
	repo := NewSessionRepository(rowstore.NewMemoryStore())
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	seedSession(t, repo, "old-dead", "a@onepwr.org", domain.SessionDeactivated, now.Add(-48*time.Hour))
	seedSession(t, repo, "fresh-dead", "b@onepwr.org", domain.SessionDeactivated, now.Add(-time.Hour))
	seedSession(t, repo, "old-live", "c@onepwr.org", domain.SessionActive, now.Add(-48*time.Hour))

	if err := repo.Touch(ctx, "old-live", now); err != nil {
		t.Fatalf("touch: %v", err)
	}
	s, err := repo.FindActive(ctx, "old-live")
	if err != nil {
		t.Fatalf("find after touch: %v", err)
	}
	if !s.LastAccessed.Equal(now) {
		t.Fatalf("touch not applied: %v", s.LastAccessed)
	}

	n, err := repo.SweepDeactivated(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, err := repo.FindActive(ctx, "old-live"); err != nil {
		t.Fatalf("active row must never be swept: %v", err)
	}
}

func TestCounterRepository_GetAndRaise(t *testing.T) {
	repo := NewCounterRepository(rowstore.NewMemoryStore())
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	// Missing month reads as zero, not as an error.
	rec, err := repo.Get(ctx, "202501")
	if err != nil {
		t.Fatalf("get empty: %v", err)
	}
	if rec.Counter != 0 {
		t.Fatalf("counter = %d, want 0", rec.Counter)
	}

	if err := repo.Raise(ctx, "202501", 5, now); err != nil {
		t.Fatalf("raise: %v", err)
	}
	// Raising to a lower value is a no-op: the counter is monotonic.
	if err := repo.Raise(ctx, "202501", 3, now); err != nil {
		t.Fatalf("raise lower: %v", err)
	}

	rec, err = repo.Get(ctx, "202501")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Counter != 5 {
		t.Fatalf("counter = %d, want 5", rec.Counter)
	}
}

func TestAllocationRepository_ExistsAndMaxCounter(t *testing.T) {
	repo := NewAllocationRepository(rowstore.NewMemoryStore())
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	for _, id := range []domain.Identifier{"PR-202501-003", "PR-202501-011", "PR-202502-001"} {
		err := repo.Append(ctx, &domain.Allocation{Identifier: id, Actor: "alice@onepwr.org", RecordedAt: now})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
	}

	ok, err := repo.Exists(ctx, "PR-202501-003")
	if err != nil || !ok {
		t.Fatalf("exists: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(ctx, "PR-202501-999")
	if err != nil || ok {
		t.Fatalf("absent id: ok=%v err=%v", ok, err)
	}

	max, err := repo.MaxCounter(ctx, "202501")
	if err != nil {
		t.Fatalf("max: %v", err)
	}
	if max != 11 {
		t.Fatalf("max = %d, want 11", max)
	}
	max, err = repo.MaxCounter(ctx, "202503")
	if err != nil || max != 0 {
		t.Fatalf("empty month max = %d err=%v, want 0", max, err)
	}
}

func TestAccountRepository_FindByUsername(t *testing.T) {
	store := rowstore.NewMemoryStore()
	ctx := context.Background()
	tbl, _ := store.Open(ctx, "Users")
	_ = tbl.Append(ctx, []string{"Alice", "Alice M", "alice@onepwr.org", "Engineering", "Approver", "hash", "TRUE"})
	_ = tbl.Append(ctx, []string{"ghost", "", "", "", "", "", ""})

	repo := NewAccountRepository(store)

	acct, err := repo.FindByUsername(ctx, "ALICE")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if acct.Role != "approver" || !acct.Active {
		t.Fatalf("account = %+v", acct)
	}

	if _, err := repo.FindByUsername(ctx, "nobody"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("miss: %v", err)
	}
	// A matching row missing identity columns fails fast instead of
	// returning a half-empty account.
	if _, err := repo.FindByUsername(ctx, "ghost"); !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("malformed row: %v", err)
	}
}
