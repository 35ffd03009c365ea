package tabular

import (
	"errors"
	"testing"
	"time"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

func TestDecodeSession_NormalizesLegacyFlags(t *testing.T) {
	userJSON := `{"name":"Alice","email":"alice@onepwr.org","department":"Engineering","role":"requestor"}`

	for _, flag := range []string{"TRUE", "true", "Y", "1"} {
		s, err := decodeSession([]string{"sess-1", userJSON, flag, "2025-01-15T12:00:00Z"}, 0)
		if err != nil {
			t.Fatalf("decode with flag %q: %v", flag, err)
		}
		if s.Status != domain.SessionActive {
			t.Fatalf("flag %q should decode active", flag)
		}
	}

	s, err := decodeSession([]string{"sess-1", userJSON, "FALSE", "2025-01-15T12:00:00Z"}, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Status != domain.SessionDeactivated {
		t.Fatalf("FALSE should decode deactivated")
	}
	if s.User.Email != "alice@onepwr.org" {
		t.Fatalf("user = %+v", s.User)
	}
	if s.LastAccessed.IsZero() {
		t.Fatalf("timestamp not decoded")
	}
}

func TestDecodeSession_FailsFast(t *testing.T) {
	bad := [][]string{
		{},                             // empty row
		{"", "{}", "TRUE", "ts"},       // missing id
		{"sess-1", "{}", "TRUE"},       // short row
		{"sess-1", "not-json", "TRUE", "2025-01-15T12:00:00Z"}, // broken payload
	}
	for i, row := range bad {
		if _, err := decodeSession(row, i); !errors.Is(err, ErrMalformedRow) {
			t.Fatalf("row %d should fail as malformed, got %v", i, err)
		}
	}
}

func TestSessionRoundTrip(t *testing.T) {
	in := &domain.Session{
		ID: "sess-7",
		User: domain.UserSnapshot{
			Name: "Bob", Email: "bob@onepwr.org", Department: "Ops", Role: "finance",
		},
		Status:       domain.SessionActive,
		LastAccessed: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	row, err := encodeSession(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if row[sessColActive] != "TRUE" {
		t.Fatalf("active column = %q", row[sessColActive])
	}

	out, err := decodeSession(row, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID || out.User != in.User || out.Status != in.Status || !out.LastAccessed.Equal(in.LastAccessed) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestDecodeCounter(t *testing.T) {
	rec, err := decodeCounter([]string{"202501", "42", "2025-01-15T12:00:00Z"}, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.YearMonth != "202501" || rec.Counter != 42 {
		t.Fatalf("record = %+v", rec)
	}

	if _, err := decodeCounter([]string{"202501", "not-a-number"}, 0); !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("bad counter should be malformed, got %v", err)
	}
	if _, err := decodeCounter([]string{""}, 0); !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("missing month should be malformed, got %v", err)
	}
}

func TestDecodeAllocation(t *testing.T) {
	a, err := decodeAllocation([]string{"PR-202501-007", "2025-01-15T12:00:00Z", "alice@onepwr.org"}, 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Identifier != "PR-202501-007" || a.Actor != "alice@onepwr.org" {
		t.Fatalf("allocation = %+v", a)
	}

	if _, err := decodeAllocation([]string{"PR-1-1", "ts", "x"}, 3); !errors.Is(err, ErrMalformedRow) {
		t.Fatalf("malformed identifier should be rejected, got %v", err)
	}
}
