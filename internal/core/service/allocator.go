package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/onepwr/procurement-tracker/internal/api/metrics"
	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// lockKeyAlloc prefixes the per-month allocation lease key.
const lockKeyAlloc = "alloc:"

type allocatorService struct {
	counters ports.CounterRepository
	alloLog  ports.AllocationLogRepository
	resv     ports.ReservationCache
	locks    ports.Locker
	log      zerolog.Logger
	now      func() time.Time
}

// NewAllocator returns the identifier allocator. The counter row is the
// authoritative source for the next number; the allocation log backs
// idempotency, duplicate detection, and reconciliation.
func NewAllocator(
	counters ports.CounterRepository,
	alloLog ports.AllocationLogRepository,
	resv ports.ReservationCache,
	locks ports.Locker,
	log zerolog.Logger,
) ports.Allocator {
	return &allocatorService{
		counters: counters,
		alloLog:  alloLog,
		resv:     resv,
		locks:    locks,
		log:      log,
		now:      time.Now,
	}
}

// Next reserves the next free identifier for the current month on behalf of
// actorEmail. The reservation lives only in the ephemeral cache; an expired
// or abandoned reservation leaves a permanent gap in the sequence.
func (s *allocatorService) Next(ctx context.Context, actorEmail string) (domain.Identifier, error) {
	if actorEmail == "" {
		return "", fmt.Errorf("allocator: %w: missing acting user", domain.ErrAllocationUnavailable)
	}
	yearMonth := domain.CurrentYearMonth(s.now())

	// 1. A form reload within the reservation TTL reuses the held number.
	held, err := s.resv.GetActor(ctx, actorEmail)
	if err != nil {
		s.log.Warn().Err(err).Str("actor", actorEmail).Msg("reservation lookup failed, drawing fresh")
	} else if held != "" && held.YearMonth() == yearMonth {
		return held, nil
	}

	// 2. Serialize the read-modify-write per month.
	unlock, err := s.locks.Acquire(ctx, lockKeyAlloc+yearMonth)
	if err != nil {
		return "", fmt.Errorf("allocator: acquire lease: %w", domain.ErrAllocationUnavailable)
	}
	defer unlock()

	// 3. The counter row is authoritative for the next candidate.
	rec, err := s.counters.Get(ctx, yearMonth)
	if err != nil {
		return "", fmt.Errorf("allocator: read counter: %w", domain.ErrAllocationUnavailable)
	}
	next := rec.Counter
	if next < 1 {
		next = 1
	}

	// 4. Skip numbers held by other users' live reservations.
	for next <= domain.MaxMonthlyCounter {
		candidate := domain.FormatIdentifier(yearMonth, next)
		taken, err := s.resv.Reserved(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("allocator: reservation check: %w", domain.ErrAllocationUnavailable)
		}
		if !taken {
			break
		}
		next++
	}
	if next > domain.MaxMonthlyCounter {
		metrics.AllocationsExhaustedTotal.Inc()
		return "", fmt.Errorf("allocator: month %s: %w", yearMonth, domain.ErrIdentifierExhausted)
	}

	// 5. The reservation must stick before the number is handed out.
	id := domain.FormatIdentifier(yearMonth, next)
	if err := s.resv.PutActor(ctx, actorEmail, id); err != nil {
		return "", fmt.Errorf("allocator: store reservation: %w", domain.ErrAllocationUnavailable)
	}

	metrics.AllocationsReservedTotal.Inc()
	s.log.Debug().Str("pr_number", string(id)).Str("actor", actorEmail).Msg("identifier reserved")
	return id, nil
}

// Record durably commits an identifier: appends the allocation log row and
// raises the counter to at least counter+1. Recording the same identifier
// twice is a no-op.
func (s *allocatorService) Record(ctx context.Context, id domain.Identifier, actorEmail string) error {
	yearMonth, n, err := domain.ParseIdentifier(string(id))
	if err != nil {
		return err
	}

	unlock, err := s.locks.Acquire(ctx, lockKeyAlloc+yearMonth)
	if err != nil {
		return fmt.Errorf("allocator: acquire lease: %w", domain.ErrAllocationUnavailable)
	}
	defer unlock()

	exists, err := s.alloLog.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("allocator: log lookup: %w", domain.ErrAllocationUnavailable)
	}
	if exists {
		// Idempotent replay: the counter has already been advanced.
		s.releaseReservation(ctx, actorEmail, id)
		return nil
	}

	alloc := &domain.Allocation{Identifier: id, Actor: actorEmail, RecordedAt: s.now().UTC()}
	if err := s.alloLog.Append(ctx, alloc); err != nil {
		return fmt.Errorf("allocator: append log: %w", domain.ErrAllocationUnavailable)
	}
	if err := s.counters.Raise(ctx, yearMonth, n+1, alloc.RecordedAt); err != nil {
		return fmt.Errorf("allocator: raise counter: %w", domain.ErrAllocationUnavailable)
	}

	s.releaseReservation(ctx, actorEmail, id)
	metrics.AllocationsRecordedTotal.Inc()
	s.log.Info().Str("pr_number", string(id)).Str("actor", actorEmail).Msg("identifier recorded")
	return nil
}

// Validate reports whether an identifier is well-formed and not yet used.
func (s *allocatorService) Validate(ctx context.Context, id domain.Identifier) (bool, error) {
	if !id.Valid() {
		return false, nil
	}
	exists, err := s.alloLog.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("allocator: log lookup: %w", domain.ErrAllocationUnavailable)
	}
	return !exists, nil
}

// Reconcile repairs a counter row that lags behind the committed log, e.g.
// after a by-hand edit of the backing table. The pattern scan is a repair
// tool only; the counter row stays authoritative for allocation.
func (s *allocatorService) Reconcile(ctx context.Context, yearMonth string) error {
	max, err := s.alloLog.MaxCounter(ctx, yearMonth)
	if err != nil {
		return fmt.Errorf("allocator: scan log: %w", domain.ErrAllocationUnavailable)
	}
	if max == 0 {
		return nil
	}
	if err := s.counters.Raise(ctx, yearMonth, max+1, s.now().UTC()); err != nil {
		return fmt.Errorf("allocator: raise counter: %w", domain.ErrAllocationUnavailable)
	}
	s.log.Info().Str("year_month", yearMonth).Int("max_seen", max).Msg("counter reconciled")
	return nil
}

func (s *allocatorService) releaseReservation(ctx context.Context, actorEmail string, id domain.Identifier) {
	if err := s.resv.Release(ctx, actorEmail, id); err != nil {
		s.log.Warn().Err(err).Str("pr_number", string(id)).Msg("failed to release reservation")
	}
}
