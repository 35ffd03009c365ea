// Package tabular implements the repository ports over the legacy workbook's
// row-oriented store. Positional rows are decoded once, at this boundary,
// into named record types; missing required columns fail fast instead of
// flowing onwards as empty strings.
package tabular

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
)

// Workbook sheet names, fixed by the provisioning scripts.
const (
	usersTable       = "Users"
	sessionsTable    = "Sessions"
	countersTable    = "Counters"
	allocationsTable = "Allocations"
	requestsTable    = "MasterTracking"
)

var ErrMalformedRow = errors.New("tabular: malformed row")

// cell reads a column tolerant of short rows: the store drops trailing
// empty cells.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Session rows: SessionID | UserInfo (JSON) | Active | LastAccessed (ISO-8601).
const (
	sessColID = iota
	sessColUser
	sessColActive
	sessColLastAccessed
	sessColCount
)

func decodeSession(row []string, index int) (*domain.Session, error) {
	if len(row) < sessColCount || row[sessColID] == "" {
		return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, sessionsTable, index)
	}
	var user domain.UserSnapshot
	if err := json.Unmarshal([]byte(row[sessColUser]), &user); err != nil {
		return nil, fmt.Errorf("%w: %s row %d: user info: %v", ErrMalformedRow, sessionsTable, index, err)
	}
	s := &domain.Session{
		ID:     row[sessColID],
		User:   user,
		Status: domain.SessionDeactivated,
	}
	if rowstore.ParseBool(row[sessColActive]) {
		s.Status = domain.SessionActive
	}
	if t, ok := rowstore.ParseTime(row[sessColLastAccessed]); ok {
		s.LastAccessed = t
	}
	return s, nil
}

func encodeSession(s *domain.Session) ([]string, error) {
	payload, err := json.Marshal(s.User)
	if err != nil {
		return nil, fmt.Errorf("encode session user: %w", err)
	}
	return []string{
		s.ID,
		string(payload),
		rowstore.FormatBool(s.Status == domain.SessionActive),
		rowstore.FormatTime(s.LastAccessed),
	}, nil
}

// Counter rows: YearMonth | Counter | LastUpdated.
const (
	ctrColYearMonth = iota
	ctrColCounter
	ctrColLastUpdated
)

func decodeCounter(row []string, index int) (*domain.CounterRecord, error) {
	if cell(row, ctrColYearMonth) == "" {
		return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, countersTable, index)
	}
	n, err := strconv.Atoi(cell(row, ctrColCounter))
	if err != nil {
		return nil, fmt.Errorf("%w: %s row %d: counter: %v", ErrMalformedRow, countersTable, index, err)
	}
	rec := &domain.CounterRecord{YearMonth: row[ctrColYearMonth], Counter: n}
	if t, ok := rowstore.ParseTime(cell(row, ctrColLastUpdated)); ok {
		rec.LastUpdated = t
	}
	return rec, nil
}

func encodeCounter(rec *domain.CounterRecord) []string {
	return []string{
		rec.YearMonth,
		strconv.Itoa(rec.Counter),
		rowstore.FormatTime(rec.LastUpdated),
	}
}

// Allocation rows: Identifier | Timestamp | Actor.
const (
	alloColID = iota
	alloColTimestamp
	alloColActor
)

func decodeAllocation(row []string, index int) (*domain.Allocation, error) {
	id := domain.Identifier(cell(row, alloColID))
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, allocationsTable, index)
	}
	a := &domain.Allocation{Identifier: id, Actor: cell(row, alloColActor)}
	if t, ok := rowstore.ParseTime(cell(row, alloColTimestamp)); ok {
		a.RecordedAt = t
	}
	return a, nil
}

func encodeAllocation(a *domain.Allocation) []string {
	return []string{
		string(a.Identifier),
		rowstore.FormatTime(a.RecordedAt),
		a.Actor,
	}
}
