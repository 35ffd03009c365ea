package domain

import (
	"errors"
	"strings"
	"time"
)

// SessionStatus is an explicit lifecycle tag. The durable table keeps
// deactivated rows as an audit trail, so truthiness of a raw boolean is
// never relied on past the storage boundary.
type SessionStatus string

const (
	SessionActive      SessionStatus = "active"
	SessionDeactivated SessionStatus = "deactivated"
)

var ErrSessionInvalid = errors.New("session expired or invalid")
var ErrStoreUnavailable = errors.New("backing store unavailable")

// ParseSessionStatus normalizes the stored representation of the active flag.
// Legacy rows carry "TRUE"/"FALSE" strings alongside real booleans.
func ParseSessionStatus(raw string) SessionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "active", "y", "1":
		return SessionActive
	default:
		return SessionDeactivated
	}
}

// Session is one authentication window for a principal. Rows are append-only:
// a replaced or logged-out session is deactivated in place, never deleted,
// and a session id is never reused.
type Session struct {
	ID           string        `json:"session_id" bson:"session_id"`
	User         UserSnapshot  `json:"user" bson:"user"`
	Status       SessionStatus `json:"status" bson:"status"`
	LastAccessed time.Time     `json:"last_accessed" bson:"last_accessed"`
}

// Active reports whether the session is still usable.
func (s *Session) Active() bool {
	return s.Status == SessionActive
}
