package domain

import (
	"errors"
	"time"
)

// RequestStatus represents the lifecycle state of a purchase request.
type RequestStatus string

const (
	StatusSubmitted RequestStatus = "submitted"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusOrdered   RequestStatus = "ordered"
	StatusReceived  RequestStatus = "received"
)

// validTransitions defines the allowed workflow transitions.
var validTransitions = map[RequestStatus][]RequestStatus{
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {StatusOrdered, StatusRejected},
	StatusOrdered:   {StatusReceived},
}

var ErrInvalidTransition = errors.New("invalid status transition")
var ErrRequestNotFound = errors.New("purchase request not found")
var ErrForbidden = errors.New("access forbidden")

// CanTransitionTo reports whether a transition from the current status to next is valid.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StatusChange records a single workflow transition on a request.
type StatusChange struct {
	Status    RequestStatus `json:"status" bson:"status"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Actor     string        `json:"actor" bson:"actor"`
	Notes     string        `json:"notes,omitempty" bson:"notes,omitempty"`
}

// PurchaseRequest is the core aggregate root. PRNumber is allocated before
// submission and committed to the allocation log together with the row write.
type PurchaseRequest struct {
	PRNumber      Identifier     `json:"pr_number" bson:"pr_number"`
	Description   string         `json:"description" bson:"description"`
	Vendor        string         `json:"vendor" bson:"vendor"`
	Site          string         `json:"site" bson:"site"`
	Amount        float64        `json:"amount" bson:"amount"`
	Currency      string         `json:"currency" bson:"currency"`
	Requestor     UserSnapshot   `json:"requestor" bson:"requestor"`
	Status        RequestStatus  `json:"status" bson:"status"`
	SubmittedAt   time.Time      `json:"submitted_at" bson:"submitted_at"`
	StatusHistory []StatusChange `json:"status_history" bson:"status_history"`
}
