package rowstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by tests and local development.
// Tables are created lazily on first open, matching the workbook behaviour
// of provisioning scripts.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*MemoryTable
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*MemoryTable)}
}

func (s *MemoryStore) Open(_ context.Context, name string) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		t = &MemoryTable{}
		s.tables[name] = t
	}
	return t, nil
}

// MemoryTable holds rows in memory. All operations copy, so callers never
// share slices with the store.
type MemoryTable struct {
	mu   sync.Mutex
	rows [][]string
}

func (t *MemoryTable) ReadAll(_ context.Context) ([][]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		out[i] = append([]string(nil), r...)
	}
	return out, nil
}

func (t *MemoryTable) Append(_ context.Context, row []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, append([]string(nil), row...))
	return nil
}

func (t *MemoryTable) WriteRow(_ context.Context, index int, row []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("rowstore: write out of range: %d", index)
	}
	t.rows[index] = append([]string(nil), row...)
	return nil
}

func (t *MemoryTable) DeleteRow(_ context.Context, index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.rows) {
		return fmt.Errorf("rowstore: delete out of range: %d", index)
	}
	t.rows = append(t.rows[:index], t.rows[index+1:]...)
	return nil
}

// ReadRange is unsupported in memory; repositories only use full scans.
func (t *MemoryTable) ReadRange(ctx context.Context, _ string) ([][]string, error) {
	return t.ReadAll(ctx)
}
