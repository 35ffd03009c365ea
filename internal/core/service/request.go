package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/onepwr/procurement-tracker/internal/api/metrics"
	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// RequestService handles purchase request submission and workflow advancement.
type RequestService struct {
	repo      ports.RequestRepository
	allocator ports.Allocator
	publisher ports.NoticePublisher // optional
	log       zerolog.Logger
	now       func() time.Time
}

func NewRequestService(
	repo ports.RequestRepository,
	allocator ports.Allocator,
	publisher ports.NoticePublisher,
	log zerolog.Logger,
) *RequestService {
	return &RequestService{
		repo:      repo,
		allocator: allocator,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Submit commits a purchase request. The identifier is recorded before the
// row write: a failure between the two leaves a gap in the sequence, which
// the allocator tolerates, whereas the reverse order could issue duplicates.
func (s *RequestService) Submit(ctx context.Context, actor domain.UserSnapshot, input ports.SubmitRequestInput) (*ports.SubmitResult, error) {
	// 1. Resolve the identifier: reuse the form's reservation when present,
	// otherwise draw a fresh one for the actor.
	var id domain.Identifier
	if input.PRNumber != "" {
		id = domain.Identifier(input.PRNumber)
		ok, err := s.allocator.Validate(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			if !id.Valid() {
				return nil, domain.ErrInvalidIdentifier
			}
			return nil, domain.ErrDuplicateIdentifier
		}
	} else {
		var err error
		id, err = s.allocator.Next(ctx, actor.Email)
		if err != nil {
			return nil, err
		}
	}

	// 2. Commit the allocation.
	if err := s.allocator.Record(ctx, id, actor.Email); err != nil {
		return nil, err
	}

	// 3. Write the request row.
	now := s.now().UTC()
	pr := &domain.PurchaseRequest{
		PRNumber:    id,
		Description: input.Description,
		Vendor:      input.Vendor,
		Site:        input.Site,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Requestor:   actor,
		Status:      domain.StatusSubmitted,
		SubmittedAt: now,
		StatusHistory: []domain.StatusChange{
			{Status: domain.StatusSubmitted, Timestamp: now, Actor: actor.Email},
		},
	}
	if err := s.repo.Create(ctx, pr); err != nil {
		s.log.Error().Err(err).Str("pr_number", string(id)).Msg("request row write failed after record")
		return nil, fmt.Errorf("submit request: %w", domain.ErrStoreUnavailable)
	}

	// 4. Fan out notifications. Strictly downstream of the commit: failures
	// are the dispatcher's problem and never surface here.
	if s.publisher != nil {
		s.publisher.Publish(ports.SubmissionNotice{
			PRNumber:       string(id),
			RequestorName:  actor.Name,
			RequestorEmail: actor.Email,
			Description:    input.Description,
			Amount:         input.Amount,
			Currency:       input.Currency,
			Site:           input.Site,
		})
	}

	metrics.RequestsSubmittedTotal.WithLabelValues(input.Site).Inc()
	s.log.Info().Str("pr_number", string(id)).Str("requestor", actor.Email).Msg("purchase request submitted")

	return &ports.SubmitResult{PRNumber: id, Status: pr.Status, SubmittedAt: now}, nil
}

// Get retrieves a single request. Requestors only see their own.
func (s *RequestService) Get(ctx context.Context, prNumber string, actor domain.UserSnapshot) (*domain.PurchaseRequest, error) {
	scope := ""
	if actor.Role == domain.RoleRequestor {
		scope = actor.Email
	}
	return s.repo.FindByNumber(ctx, prNumber, scope)
}

// List returns a page of requests. Requestors are always scoped to their own
// submissions regardless of the filter they pass.
func (s *RequestService) List(ctx context.Context, actor domain.UserSnapshot, filter ports.ListRequestsFilter) ([]*domain.PurchaseRequest, int64, error) {
	if actor.Role == domain.RoleRequestor {
		filter.RequestorEmail = actor.Email
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	return s.repo.List(ctx, filter)
}

// Advance moves a request along the workflow, enforcing both the state
// machine and role ownership of each transition.
func (s *RequestService) Advance(ctx context.Context, prNumber string, next domain.RequestStatus, actor domain.UserSnapshot, notes string) (*domain.PurchaseRequest, error) {
	if !roleMayApply(actor.Role, next) {
		return nil, domain.ErrForbidden
	}

	cur, err := s.repo.FindByNumber(ctx, prNumber, "")
	if err != nil {
		return nil, err
	}
	if !cur.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w (from %s to %s)", domain.ErrInvalidTransition, cur.Status, next)
	}

	change := domain.StatusChange{Status: next, Timestamp: s.now().UTC(), Actor: actor.Email, Notes: notes}
	if err := s.repo.UpdateStatus(ctx, prNumber, change); err != nil {
		return nil, fmt.Errorf("advance request: %w", domain.ErrStoreUnavailable)
	}

	cur.Status = next
	cur.StatusHistory = append(cur.StatusHistory, change)
	metrics.RequestTransitionsTotal.WithLabelValues(string(next)).Inc()
	s.log.Info().Str("pr_number", prNumber).Str("status", string(next)).Str("actor", actor.Email).Msg("request advanced")
	return cur, nil
}

// roleMayApply maps workflow transitions to the roles that own them.
func roleMayApply(role string, next domain.RequestStatus) bool {
	if role == domain.RoleAdmin {
		return true
	}
	switch next {
	case domain.StatusApproved, domain.StatusRejected:
		return role == domain.RoleApprover
	case domain.StatusOrdered, domain.StatusReceived:
		return role == domain.RoleFinance
	}
	return false
}
