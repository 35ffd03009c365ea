package handler

import (
	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// --- Request → Service input ---

func toSubmitInput(req submitRequestRequest) ports.SubmitRequestInput {
	return ports.SubmitRequestInput{
		PRNumber:    req.PRNumber,
		Description: req.Description,
		Vendor:      req.Vendor,
		Site:        req.Site,
		Amount:      req.Amount,
		Currency:    req.Currency,
	}
}

// --- Service result → HTTP response ---

func toSubmitResponse(r *ports.SubmitResult) submitRequestResponse {
	return submitRequestResponse{
		PRNumber:    string(r.PRNumber),
		Status:      string(r.Status),
		SubmittedAt: r.SubmittedAt.UTC(),
		Links:       requestLinks{Self: "/v1/requests/" + string(r.PRNumber)},
	}
}

func toGetResponse(r *domain.PurchaseRequest) getRequestResponse {
	return getRequestResponse{
		PRNumber:      string(r.PRNumber),
		Description:   r.Description,
		Vendor:        r.Vendor,
		Site:          r.Site,
		Amount:        r.Amount,
		Currency:      r.Currency,
		Requestor:     toRequestorResponse(r.Requestor),
		Status:        string(r.Status),
		SubmittedAt:   r.SubmittedAt.UTC(),
		StatusHistory: toStatusHistoryResponse(r.StatusHistory),
		Links:         requestLinks{Self: "/v1/requests/" + string(r.PRNumber)},
	}
}

func toRequestorResponse(u domain.UserSnapshot) requestorResponse {
	return requestorResponse{
		Name:       u.Name,
		Email:      u.Email,
		Department: u.Department,
	}
}

func toStatusHistoryResponse(items []domain.StatusChange) []statusChangeResponse {
	out := make([]statusChangeResponse, len(items))
	for i, item := range items {
		out[i] = statusChangeResponse{
			Status:    string(item.Status),
			Timestamp: item.Timestamp.UTC(),
			Actor:     item.Actor,
			Notes:     item.Notes,
		}
	}
	return out
}

func toListResponse(items []*domain.PurchaseRequest, total int64, page, limit int) listRequestsResponse {
	data := make([]requestSummaryResponse, len(items))
	for i, r := range items {
		data[i] = requestSummaryResponse{
			PRNumber:    string(r.PRNumber),
			Description: r.Description,
			Vendor:      r.Vendor,
			Site:        r.Site,
			Amount:      r.Amount,
			Currency:    r.Currency,
			Requestor:   toRequestorResponse(r.Requestor),
			Status:      string(r.Status),
			SubmittedAt: r.SubmittedAt.UTC(),
			Links:       requestLinks{Self: "/v1/requests/" + string(r.PRNumber)},
		}
	}

	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return listRequestsResponse{
		Data: data,
		Pagination: paginationResponse{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
	}
}
