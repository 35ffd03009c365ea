package ports

import (
	"context"
	"time"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
)

// SubmitRequestInput carries all data needed to submit a purchase request.
// PRNumber is optional: when the submitting form already holds a reservation
// it is passed through, otherwise the service draws one.
type SubmitRequestInput struct {
	PRNumber    string
	Description string
	Vendor      string
	Site        string
	Amount      float64
	Currency    string
}

// SubmitResult is returned by the service after a committed submission.
type SubmitResult struct {
	PRNumber    domain.Identifier
	Status      domain.RequestStatus
	SubmittedAt time.Time
}

// ListRequestsFilter carries query parameters for listing requests.
type ListRequestsFilter struct {
	RequestorEmail string // empty = no filter (approver/finance/admin)
	Status         string
	Site           string
	Page           int // 1-based
	Limit          int // capped at 100 by the service
}

// RequestService handles submission and workflow advancement.
type RequestService interface {
	Submit(ctx context.Context, actor domain.UserSnapshot, input SubmitRequestInput) (*SubmitResult, error)
	Get(ctx context.Context, prNumber string, actor domain.UserSnapshot) (*domain.PurchaseRequest, error)
	List(ctx context.Context, actor domain.UserSnapshot, filter ListRequestsFilter) ([]*domain.PurchaseRequest, int64, error)
	// Advance moves a request to the next workflow status. Requestors may not
	// advance; approvers approve/reject, finance orders/receives.
	Advance(ctx context.Context, prNumber string, next domain.RequestStatus, actor domain.UserSnapshot, notes string) (*domain.PurchaseRequest, error)
}

// RequestRepository defines persistence operations for purchase requests.
type RequestRepository interface {
	Create(ctx context.Context, r *domain.PurchaseRequest) error
	// FindByNumber retrieves a request. When requestorEmail is non-empty the
	// lookup is additionally scoped to that requestor.
	FindByNumber(ctx context.Context, prNumber string, requestorEmail string) (*domain.PurchaseRequest, error)
	List(ctx context.Context, filter ListRequestsFilter) ([]*domain.PurchaseRequest, int64, error)
	// UpdateStatus sets the status and appends a history entry.
	UpdateStatus(ctx context.Context, prNumber string, change domain.StatusChange) error
}
