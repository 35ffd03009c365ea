package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// --- stubs ---

type stubRequestRepo struct {
	rows      map[string]*domain.PurchaseRequest
	lastScope string
	lastList  ports.ListRequestsFilter
	createErr error
}

func newStubRequestRepo() *stubRequestRepo {
	return &stubRequestRepo{rows: make(map[string]*domain.PurchaseRequest)}
}

func (s *stubRequestRepo) Create(_ context.Context, r *domain.PurchaseRequest) error {
	if s.createErr != nil {
		return s.createErr
	}
	cp := *r
	s.rows[string(r.PRNumber)] = &cp
	return nil
}

func (s *stubRequestRepo) FindByNumber(_ context.Context, prNumber, requestorEmail string) (*domain.PurchaseRequest, error) {
	s.lastScope = requestorEmail
	r, ok := s.rows[prNumber]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	if requestorEmail != "" && r.Requestor.Email != requestorEmail {
		return nil, domain.ErrRequestNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *stubRequestRepo) List(_ context.Context, filter ports.ListRequestsFilter) ([]*domain.PurchaseRequest, int64, error) {
	s.lastList = filter
	out := make([]*domain.PurchaseRequest, 0, len(s.rows))
	for _, r := range s.rows {
		if filter.RequestorEmail != "" && r.Requestor.Email != filter.RequestorEmail {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (s *stubRequestRepo) UpdateStatus(_ context.Context, prNumber string, change domain.StatusChange) error {
	r, ok := s.rows[prNumber]
	if !ok {
		return domain.ErrRequestNotFound
	}
	r.Status = change.Status
	r.StatusHistory = append(r.StatusHistory, change)
	return nil
}

// stubAllocator hands out a fixed sequence and tracks what was recorded.
type stubAllocator struct {
	next     domain.Identifier
	nextErr  error
	recorded []domain.Identifier
	used     map[domain.Identifier]bool
}

func (s *stubAllocator) Next(_ context.Context, _ string) (domain.Identifier, error) {
	if s.nextErr != nil {
		return "", s.nextErr
	}
	return s.next, nil
}

func (s *stubAllocator) Record(_ context.Context, id domain.Identifier, _ string) error {
	s.recorded = append(s.recorded, id)
	return nil
}

func (s *stubAllocator) Validate(_ context.Context, id domain.Identifier) (bool, error) {
	if !id.Valid() {
		return false, nil
	}
	return !s.used[id], nil
}

func (s *stubAllocator) Reconcile(_ context.Context, _ string) error { return nil }

type stubPublisher struct {
	notices []ports.SubmissionNotice
}

func (s *stubPublisher) Publish(n ports.SubmissionNotice) {
	s.notices = append(s.notices, n)
}

// --- helpers ---

var requestor = domain.UserSnapshot{
	Name:       "Alice",
	Email:      "alice@onepwr.org",
	Department: "Engineering",
	Role:       domain.RoleRequestor,
}

func newTestRequestService(repo *stubRequestRepo, alloc *stubAllocator, pub ports.NoticePublisher) *RequestService {
	s := NewRequestService(repo, alloc, pub, zerolog.Nop())
	s.now = func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }
	return s
}

func submitInput() ports.SubmitRequestInput {
	return ports.SubmitRequestInput{
		Description: "Bearings for pump P-3",
		Vendor:      "Acme Industrial",
		Site:        "lusaka",
		Amount:      480.50,
		Currency:    "USD",
	}
}

// --- tests ---

func TestSubmit_DrawsAndRecordsIdentifier(t *testing.T) {
	repo := newStubRequestRepo()
	alloc := &stubAllocator{next: "PR-202501-001"}
	pub := &stubPublisher{}
	svc := newTestRequestService(repo, alloc, pub)

	result, err := svc.Submit(context.Background(), requestor, submitInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.PRNumber != "PR-202501-001" {
		t.Fatalf("pr number = %s", result.PRNumber)
	}
	if result.Status != domain.StatusSubmitted {
		t.Fatalf("status = %s", result.Status)
	}
	if len(alloc.recorded) != 1 || alloc.recorded[0] != "PR-202501-001" {
		t.Fatalf("identifier not recorded: %v", alloc.recorded)
	}

	row, ok := repo.rows["PR-202501-001"]
	if !ok {
		t.Fatalf("request row missing")
	}
	if row.Requestor.Email != requestor.Email {
		t.Fatalf("requestor snapshot = %+v", row.Requestor)
	}
	if len(row.StatusHistory) != 1 || row.StatusHistory[0].Status != domain.StatusSubmitted {
		t.Fatalf("history = %+v", row.StatusHistory)
	}

	if len(pub.notices) != 1 || pub.notices[0].PRNumber != "PR-202501-001" {
		t.Fatalf("notice = %+v", pub.notices)
	}
}

func TestSubmit_ReusesReservedNumber(t *testing.T) {
	repo := newStubRequestRepo()
	alloc := &stubAllocator{used: map[domain.Identifier]bool{}}
	svc := newTestRequestService(repo, alloc, nil)

	input := submitInput()
	input.PRNumber = "PR-202501-007"

	result, err := svc.Submit(context.Background(), requestor, input)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.PRNumber != "PR-202501-007" {
		t.Fatalf("pr number = %s", result.PRNumber)
	}
}

func TestSubmit_RejectsUsedNumber(t *testing.T) {
	alloc := &stubAllocator{used: map[domain.Identifier]bool{"PR-202501-007": true}}
	svc := newTestRequestService(newStubRequestRepo(), alloc, nil)

	input := submitInput()
	input.PRNumber = "PR-202501-007"

	_, err := svc.Submit(context.Background(), requestor, input)
	if !errors.Is(err, domain.ErrDuplicateIdentifier) {
		t.Fatalf("expected ErrDuplicateIdentifier, got %v", err)
	}
}

func TestSubmit_RejectsMalformedNumber(t *testing.T) {
	alloc := &stubAllocator{used: map[domain.Identifier]bool{}}
	svc := newTestRequestService(newStubRequestRepo(), alloc, nil)

	input := submitInput()
	input.PRNumber = "PR-25-7"

	_, err := svc.Submit(context.Background(), requestor, input)
	if !errors.Is(err, domain.ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestSubmit_RowWriteFailure(t *testing.T) {
	repo := newStubRequestRepo()
	repo.createErr = errors.New("table unreachable")
	alloc := &stubAllocator{next: "PR-202501-001"}
	svc := newTestRequestService(repo, alloc, nil)

	_, err := svc.Submit(context.Background(), requestor, submitInput())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	// The identifier stays recorded: the gap is tolerated, reuse is not.
	if len(alloc.recorded) != 1 {
		t.Fatalf("identifier should have been recorded before the row write")
	}
}

func TestGet_ScopesRequestorsToTheirOwn(t *testing.T) {
	repo := newStubRequestRepo()
	alloc := &stubAllocator{next: "PR-202501-001"}
	svc := newTestRequestService(repo, alloc, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, requestor, submitInput()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := svc.Get(ctx, "PR-202501-001", requestor); err != nil {
		t.Fatalf("own request should be visible: %v", err)
	}

	other := domain.UserSnapshot{Email: "bob@onepwr.org", Role: domain.RoleRequestor}
	if _, err := svc.Get(ctx, "PR-202501-001", other); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Fatalf("foreign request must read as not found, got %v", err)
	}

	approver := domain.UserSnapshot{Email: "eve@onepwr.org", Role: domain.RoleApprover}
	if _, err := svc.Get(ctx, "PR-202501-001", approver); err != nil {
		t.Fatalf("approver sees everything: %v", err)
	}
}

func TestList_ForcesRequestorScopeAndCapsLimit(t *testing.T) {
	repo := newStubRequestRepo()
	svc := newTestRequestService(repo, &stubAllocator{}, nil)

	filter := ports.ListRequestsFilter{RequestorEmail: "someone-else@onepwr.org", Limit: 500}
	if _, _, err := svc.List(context.Background(), requestor, filter); err != nil {
		t.Fatalf("list: %v", err)
	}
	if repo.lastList.RequestorEmail != requestor.Email {
		t.Fatalf("requestor scope not enforced: %q", repo.lastList.RequestorEmail)
	}
	if repo.lastList.Limit != maxPageSize {
		t.Fatalf("limit = %d, want %d", repo.lastList.Limit, maxPageSize)
	}
	if repo.lastList.Page != 1 {
		t.Fatalf("page = %d, want 1", repo.lastList.Page)
	}
}

func TestAdvance_RoleOwnership(t *testing.T) {
	repo := newStubRequestRepo()
	alloc := &stubAllocator{next: "PR-202501-001"}
	svc := newTestRequestService(repo, alloc, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, requestor, submitInput()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	finance := domain.UserSnapshot{Email: "fin@onepwr.org", Role: domain.RoleFinance}
	approver := domain.UserSnapshot{Email: "eve@onepwr.org", Role: domain.RoleApprover}

	// Finance does not own the approval transition.
	if _, err := svc.Advance(ctx, "PR-202501-001", domain.StatusApproved, finance, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	// Requestors own no transitions at all.
	if _, err := svc.Advance(ctx, "PR-202501-001", domain.StatusApproved, requestor, ""); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for requestor, got %v", err)
	}

	updated, err := svc.Advance(ctx, "PR-202501-001", domain.StatusApproved, approver, "within budget")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if updated.Status != domain.StatusApproved {
		t.Fatalf("status = %s", updated.Status)
	}
	if len(updated.StatusHistory) != 2 || updated.StatusHistory[1].Notes != "within budget" {
		t.Fatalf("history = %+v", updated.StatusHistory)
	}
}

func TestAdvance_InvalidTransition(t *testing.T) {
	repo := newStubRequestRepo()
	alloc := &stubAllocator{next: "PR-202501-001"}
	svc := newTestRequestService(repo, alloc, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, requestor, submitInput()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	finance := domain.UserSnapshot{Email: "fin@onepwr.org", Role: domain.RoleFinance}
	_, err := svc.Advance(ctx, "PR-202501-001", domain.StatusReceived, finance, "")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAdvance_AdminMayApplyAny(t *testing.T) {
	repo := newStubRequestRepo()
	alloc := &stubAllocator{next: "PR-202501-001"}
	svc := newTestRequestService(repo, alloc, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, requestor, submitInput()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	admin := domain.UserSnapshot{Email: "root@onepwr.org", Role: domain.RoleAdmin}
	for _, next := range []domain.RequestStatus{domain.StatusApproved, domain.StatusOrdered, domain.StatusReceived} {
		if _, err := svc.Advance(ctx, "PR-202501-001", next, admin, ""); err != nil {
			t.Fatalf("admin advance to %s: %v", next, err)
		}
	}
}
