// Package rowstore defines the tabular storage contract of the legacy
// tracking workbook: named tables of positional string rows with append,
// in-place row rewrite, and full scans. There is no locking or atomic
// increment primitive; callers serialize contended writes themselves.
package rowstore

import (
	"context"
	"strings"
	"time"
)

// Store opens tables by name.
type Store interface {
	Open(ctx context.Context, name string) (Table, error)
}

// Table is one sheet of the workbook. Row indexes are zero-based over data
// rows; the header row is invisible through this interface.
type Table interface {
	// ReadAll returns every data row positionally. Trailing empty cells may
	// be absent, so decoders must treat short rows explicitly.
	ReadAll(ctx context.Context) ([][]string, error)
	Append(ctx context.Context, row []string) error
	// WriteRow overwrites the data row at index in place.
	WriteRow(ctx context.Context, index int, row []string) error
	// DeleteRow removes the data row at index, shifting later rows up.
	DeleteRow(ctx context.Context, index int) error
	// ReadRange returns the values of an A1-notation range.
	ReadRange(ctx context.Context, a1 string) ([][]string, error)
}

// ParseBool normalizes the stored representations of a true flag. Legacy
// rows mix real booleans with "TRUE", "Y", and "1" strings.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "y", "yes", "1", "active":
		return true
	}
	return false
}

// FormatBool renders a flag in the workbook's canonical form.
func FormatBool(v bool) string {
	if v {
		return "TRUE"
	}
	return "FALSE"
}

// ParseTime reads the workbook timestamp format, tolerating the legacy
// variants that crept in over time.
func ParseTime(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatTime renders the canonical workbook timestamp.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
