package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MaxMonthlyCounter is the highest request number that can be issued in a
// single calendar month. Allocation past this value fails rather than
// truncating or wrapping.
const MaxMonthlyCounter = 999

// identifierPattern is the canonical wire format: PR-YYYYMM-NNN.
var identifierPattern = regexp.MustCompile(`^PR-(\d{6})-(\d{3})$`)

var ErrIdentifierExhausted = errors.New("identifier space exhausted for month")
var ErrInvalidIdentifier = errors.New("malformed identifier")
var ErrDuplicateIdentifier = errors.New("identifier already recorded")
var ErrAllocationUnavailable = errors.New("identifier allocation unavailable")

// Identifier is a per-month unique purchase request number, e.g. "PR-202501-007".
// A value returned by the allocator is a reservation until it is recorded.
type Identifier string

// FormatIdentifier renders the canonical identifier for a month and counter.
func FormatIdentifier(yearMonth string, counter int) Identifier {
	return Identifier(fmt.Sprintf("PR-%s-%03d", yearMonth, counter))
}

// ParseIdentifier splits an identifier into its yearMonth key and counter.
// Returns ErrInvalidIdentifier when the value does not match the canonical
// pattern or the counter falls outside 1..MaxMonthlyCounter.
func ParseIdentifier(raw string) (yearMonth string, counter int, err error) {
	m := identifierPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", 0, ErrInvalidIdentifier
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n < 1 || n > MaxMonthlyCounter {
		return "", 0, ErrInvalidIdentifier
	}
	return m[1], n, nil
}

// Valid reports whether the identifier matches the canonical format.
func (id Identifier) Valid() bool {
	_, _, err := ParseIdentifier(string(id))
	return err == nil
}

// YearMonth returns the identifier's YYYYMM key, or "" if malformed.
func (id Identifier) YearMonth() string {
	ym, _, err := ParseIdentifier(string(id))
	if err != nil {
		return ""
	}
	return ym
}

// CurrentYearMonth derives the YYYYMM allocation key from a wall-clock instant.
func CurrentYearMonth(now time.Time) string {
	return now.UTC().Format("200601")
}

// CounterRecord tracks the next counter to hand out for one calendar month.
// The row is created lazily on the first allocation of a month, mutated in
// place on every commit, and never deleted.
type CounterRecord struct {
	YearMonth   string
	Counter     int
	LastUpdated time.Time
}

// Allocation is one committed identifier in the append-only allocation log.
type Allocation struct {
	Identifier Identifier
	Actor      string
	RecordedAt time.Time
}
