package tabular

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
	"github.com/onepwr/procurement-tracker/internal/infrastructure/rowstore"
)

// MasterTracking rows:
// PRNumber | Description | Vendor | Site | Amount | Currency | Requestor (JSON) | Status | SubmittedAt | History (JSON).
const (
	reqColNumber = iota
	reqColDescription
	reqColVendor
	reqColSite
	reqColAmount
	reqColCurrency
	reqColRequestor
	reqColStatus
	reqColSubmittedAt
	reqColHistory
)

// RequestRepository keeps purchase requests in the MasterTracking sheet.
type RequestRepository struct {
	store rowstore.Store
}

func NewRequestRepository(store rowstore.Store) *RequestRepository {
	return &RequestRepository{store: store}
}

func decodeRequest(row []string, index int) (*domain.PurchaseRequest, error) {
	if cell(row, reqColNumber) == "" || cell(row, reqColStatus) == "" {
		return nil, fmt.Errorf("%w: %s row %d", ErrMalformedRow, requestsTable, index)
	}
	pr := &domain.PurchaseRequest{
		PRNumber:    domain.Identifier(cell(row, reqColNumber)),
		Description: cell(row, reqColDescription),
		Vendor:      cell(row, reqColVendor),
		Site:        cell(row, reqColSite),
		Currency:    cell(row, reqColCurrency),
		Status:      domain.RequestStatus(cell(row, reqColStatus)),
	}
	if raw := cell(row, reqColAmount); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: amount: %v", ErrMalformedRow, requestsTable, index, err)
		}
		pr.Amount = amount
	}
	if raw := cell(row, reqColRequestor); raw != "" {
		if err := json.Unmarshal([]byte(raw), &pr.Requestor); err != nil {
			return nil, fmt.Errorf("%w: %s row %d: requestor: %v", ErrMalformedRow, requestsTable, index, err)
		}
	}
	if t, ok := rowstore.ParseTime(cell(row, reqColSubmittedAt)); ok {
		pr.SubmittedAt = t
	}
	if raw := cell(row, reqColHistory); raw != "" {
		if err := json.Unmarshal([]byte(raw), &pr.StatusHistory); err != nil {
			return nil, fmt.Errorf("%w: %s row %d: history: %v", ErrMalformedRow, requestsTable, index, err)
		}
	}
	return pr, nil
}

func encodeRequest(pr *domain.PurchaseRequest) ([]string, error) {
	requestor, err := json.Marshal(pr.Requestor)
	if err != nil {
		return nil, fmt.Errorf("encode requestor: %w", err)
	}
	history, err := json.Marshal(pr.StatusHistory)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	return []string{
		string(pr.PRNumber),
		pr.Description,
		pr.Vendor,
		pr.Site,
		strconv.FormatFloat(pr.Amount, 'f', -1, 64),
		pr.Currency,
		string(requestor),
		string(pr.Status),
		rowstore.FormatTime(pr.SubmittedAt),
		string(history),
	}, nil
}

func (r *RequestRepository) Create(ctx context.Context, pr *domain.PurchaseRequest) error {
	t, err := r.store.Open(ctx, requestsTable)
	if err != nil {
		return fmt.Errorf("open requests: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("scan requests: %w", err)
	}
	for _, row := range rows {
		if cell(row, reqColNumber) == string(pr.PRNumber) {
			return domain.ErrDuplicateIdentifier
		}
	}
	encoded, err := encodeRequest(pr)
	if err != nil {
		return err
	}
	return t.Append(ctx, encoded)
}

func (r *RequestRepository) FindByNumber(ctx context.Context, prNumber string, requestorEmail string) (*domain.PurchaseRequest, error) {
	t, err := r.store.Open(ctx, requestsTable)
	if err != nil {
		return nil, fmt.Errorf("open requests: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan requests: %w", err)
	}
	for i, row := range rows {
		if cell(row, reqColNumber) != prNumber {
			continue
		}
		pr, err := decodeRequest(row, i)
		if err != nil {
			return nil, err
		}
		if requestorEmail != "" && !strings.EqualFold(pr.Requestor.Email, requestorEmail) {
			return nil, domain.ErrRequestNotFound
		}
		return pr, nil
	}
	return nil, domain.ErrRequestNotFound
}

func (r *RequestRepository) List(ctx context.Context, filter ports.ListRequestsFilter) ([]*domain.PurchaseRequest, int64, error) {
	t, err := r.store.Open(ctx, requestsTable)
	if err != nil {
		return nil, 0, fmt.Errorf("open requests: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("scan requests: %w", err)
	}

	var matched []*domain.PurchaseRequest
	for i, row := range rows {
		pr, err := decodeRequest(row, i)
		if err != nil {
			return nil, 0, err
		}
		if filter.RequestorEmail != "" && !strings.EqualFold(pr.Requestor.Email, filter.RequestorEmail) {
			continue
		}
		if filter.Status != "" && string(pr.Status) != filter.Status {
			continue
		}
		if filter.Site != "" && pr.Site != filter.Site {
			continue
		}
		matched = append(matched, pr)
	}

	sort.Slice(matched, func(a, b int) bool {
		return matched[a].SubmittedAt.After(matched[b].SubmittedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, prNumber string, change domain.StatusChange) error {
	t, err := r.store.Open(ctx, requestsTable)
	if err != nil {
		return fmt.Errorf("open requests: %w", err)
	}
	rows, err := t.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("scan requests: %w", err)
	}
	for i, row := range rows {
		if cell(row, reqColNumber) != prNumber {
			continue
		}
		pr, err := decodeRequest(row, i)
		if err != nil {
			return err
		}
		pr.Status = change.Status
		pr.StatusHistory = append(pr.StatusHistory, change)
		encoded, err := encodeRequest(pr)
		if err != nil {
			return err
		}
		return t.WriteRow(ctx, i, encoded)
	}
	return domain.ErrRequestNotFound
}
