package ports

import (
	"context"
	"time"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

// Allocator hands out per-month purchase request identifiers.
//
// Next returns a reservation: the value is held against the acting user in
// the ephemeral cache but is not committed until Record is called. An
// unrecorded reservation expires and leaves a permanent gap in the sequence.
type Allocator interface {
	Next(ctx context.Context, actorEmail string) (domain.Identifier, error)
	// Record durably commits an identifier. Idempotent: recording the same
	// identifier twice never advances the counter twice.
	Record(ctx context.Context, id domain.Identifier, actorEmail string) error
	// Validate checks format and prior use. A recorded identifier is not valid
	// for a new submission.
	Validate(ctx context.Context, id domain.Identifier) (bool, error)
	// Reconcile pattern-scans the allocation log for a month and raises the
	// counter row if it lags behind the highest committed identifier.
	Reconcile(ctx context.Context, yearMonth string) error
}

// CounterRepository persists the authoritative per-month counter rows.
type CounterRepository interface {
	// Get returns the counter row for yearMonth. A missing month is not an
	// error: it yields a record with Counter == 0.
	Get(ctx context.Context, yearMonth string) (*domain.CounterRecord, error)
	// Raise sets the counter for yearMonth to value if value is greater than
	// the stored counter, creating the row when absent.
	Raise(ctx context.Context, yearMonth string, value int, now time.Time) error
}

// AllocationLogRepository is the append-only log of committed identifiers.
type AllocationLogRepository interface {
	Append(ctx context.Context, alloc *domain.Allocation) error
	Exists(ctx context.Context, id domain.Identifier) (bool, error)
	// MaxCounter scans committed identifiers for yearMonth and returns the
	// highest counter seen, 0 when none.
	MaxCounter(ctx context.Context, yearMonth string) (int, error)
}

// ReservationCache holds in-flight reservations in the ephemeral tier.
// All entries carry the reservation TTL; expiry releases the number.
type ReservationCache interface {
	// GetActor returns the identifier currently reserved for an actor, "" on miss.
	GetActor(ctx context.Context, actorEmail string) (domain.Identifier, error)
	// PutActor stores the actor's reservation and marks the number as taken.
	PutActor(ctx context.Context, actorEmail string, id domain.Identifier) error
	// Reserved reports whether a specific identifier has a live reservation.
	Reserved(ctx context.Context, id domain.Identifier) (bool, error)
	// Release drops the per-number key and, when owned by actorEmail, the
	// per-actor key. Best-effort.
	Release(ctx context.Context, actorEmail string, id domain.Identifier) error
}

// Locker serializes read-modify-write cycles per key (per yearMonth for
// allocation, per user email for session replacement). Unlock is returned by
// Acquire so a held lease cannot be released by anyone else.
type Locker interface {
	Acquire(ctx context.Context, key string) (unlock func(), err error)
}
