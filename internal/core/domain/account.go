package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleRequestor = "requestor"
	RoleApprover  = "approver"
	RoleFinance   = "finance"
	RoleAdmin     = "admin"
)

var ErrInvalidCredentials = errors.New("invalid credentials or inactive user")
var ErrAccountNotFound = errors.New("account not found")

// Account models a row of the user directory table.
type Account struct {
	Username   string    `json:"username"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Role       string    `json:"role"`
	Credential string    `json:"-"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UserSnapshot is the identity captured into a session at authentication
// time. It is deliberately not live-joined back to the directory: later
// directory edits do not alter sessions already minted.
type UserSnapshot struct {
	Name       string `json:"name" bson:"name"`
	Email      string `json:"email" bson:"email"`
	Department string `json:"department" bson:"department"`
	Role       string `json:"role" bson:"role"`
}

// Snapshot copies the session-relevant identity fields of an account.
func (a *Account) Snapshot() UserSnapshot {
	return UserSnapshot{
		Name:       a.Name,
		Email:      a.Email,
		Department: a.Department,
		Role:       a.Role,
	}
}

// ValidRole reports whether the role is one the tracker understands.
func ValidRole(role string) bool {
	switch strings.ToLower(role) {
	case RoleRequestor, RoleApprover, RoleFinance, RoleAdmin:
		return true
	}
	return false
}
