package tabular

import (
	"context"
	"fmt"
	"time"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
)

// CounterRepository keeps one row per month in the Counters sheet. The
// read-modify-write here is only safe under the allocator's per-month lease.
type CounterRepository struct {
	store rowstore.Store
}

func NewCounterRepository(store rowstore.Store) *CounterRepository {
	return &CounterRepository{store: store}
}

func (r *CounterRepository) Get(ctx context.Context, yearMonth string) (*domain.CounterRecord, error) {
	t, err := r.store.Open(ctx, countersTable)
	if err != nil {
		return nil, fmt.Errorf("open counters: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan counters: %w", err)
	}
	for i, row := range rows {
		if cell(row, ctrColYearMonth) != yearMonth {
			continue
		}
		return decodeCounter(row, i)
	}
	return &domain.CounterRecord{YearMonth: yearMonth}, nil
}

func (r *CounterRepository) Raise(ctx context.Context, yearMonth string, value int, now time.Time) error {
	t, err := r.store.Open(ctx, countersTable)
	if err != nil {
		return fmt.Errorf("open counters: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("scan counters: %w", err)
	}

	rec := &domain.CounterRecord{YearMonth: yearMonth, Counter: value, LastUpdated: now}
	for i, row := range rows {
		if cell(row, ctrColYearMonth) != yearMonth {
			continue
		}
		existing, err := decodeCounter(row, i)
		if err != nil {
			return err
		}
		if existing.Counter >= value {
			return nil
		}
		return t.WriteRow(ctx, i, encodeCounter(rec))
	}
	// First allocation of the month creates the row.
	return t.Append(ctx, encodeCounter(rec))
}
