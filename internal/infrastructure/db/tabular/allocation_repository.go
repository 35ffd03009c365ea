package tabular

import (
	"context"
	"fmt"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
)

// AllocationRepository is the append-only allocation log in the workbook.
type AllocationRepository struct {
	store rowstore.Store
}

func NewAllocationRepository(store rowstore.Store) *AllocationRepository {
	return &AllocationRepository{store: store}
}

func (r *AllocationRepository) Append(ctx context.Context, alloc *domain.Allocation) error {
	t, err := r.store.Open(ctx, allocationsTable)
	if err != nil {
		return fmt.Errorf("open allocations: %w", err)
	}
	return t.Append(ctx, encodeAllocation(alloc))
}

func (r *AllocationRepository) Exists(ctx context.Context, id domain.Identifier) (bool, error) {
	t, err := r.store.Open(ctx, allocationsTable)
	if err != nil {
		return false, fmt.Errorf("open allocations: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return false, fmt.Errorf("scan allocations: %w", err)
	}
	for _, row := range rows {
		if cell(row, alloColID) == string(id) {
			return true, nil
		}
	}
	return false, nil
}

// MaxCounter pattern-scans the identifier column for a month. Malformed rows
// are skipped: the scan is a repair tool and must cope with hand-edited data.
func (r *AllocationRepository) MaxCounter(ctx context.Context, yearMonth string) (int, error) {
	t, err := r.store.Open(ctx, allocationsTable)
	if err != nil {
		return 0, fmt.Errorf("open allocations: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan allocations: %w", err)
	}

	max := 0
	for _, row := range rows {
		ym, n, err := domain.ParseIdentifier(cell(row, alloColID))
		if err != nil || ym != yearMonth {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}
