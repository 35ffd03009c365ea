package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type submitRequestRequest struct {
	// PRNumber is optional: forms that already reserved a number pass it
	// through, everyone else lets the server draw one.
	PRNumber    string  `json:"pr_number"   validate:"omitempty,len=13"`
	Description string  `json:"description" validate:"required"`
	Vendor      string  `json:"vendor"      validate:"required"`
	Site        string  `json:"site"        validate:"required"`
	Amount      float64 `json:"amount"      validate:"required,gt=0"`
	Currency    string  `json:"currency"    validate:"required,len=3"`
}

type requestLinks struct {
	Self string `json:"self"`
}

type submitRequestResponse struct {
	PRNumber    string       `json:"pr_number"`
	Status      string       `json:"status"`
	SubmittedAt time.Time    `json:"submitted_at"`
	Links       requestLinks `json:"_links"`
}

type nextNumberResponse struct {
	PRNumber string `json:"pr_number"`
	// ReservedFor echoes the actor the reservation is held against.
	ReservedFor string `json:"reserved_for"`
}

type advanceRequestRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected ordered received"`
	Notes  string `json:"notes"  validate:"omitempty,max=500"`
}

// Response-only types owned by the transport layer. These are intentionally
// separate from domain types so the JSON contract is not coupled to internal
// service changes.

type requestorResponse struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department"`
}

type statusChangeResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Notes     string    `json:"notes,omitempty"`
}

type getRequestResponse struct {
	PRNumber      string                 `json:"pr_number"`
	Description   string                 `json:"description"`
	Vendor        string                 `json:"vendor"`
	Site          string                 `json:"site"`
	Amount        float64                `json:"amount"`
	Currency      string                 `json:"currency"`
	Requestor     requestorResponse      `json:"requestor"`
	Status        string                 `json:"status"`
	SubmittedAt   time.Time              `json:"submitted_at"`
	StatusHistory []statusChangeResponse `json:"status_history"`
	Links         requestLinks           `json:"_links"`
}

// requestSummaryResponse is the lightweight item used in list responses.
// It intentionally omits status_history to keep payloads small.
type requestSummaryResponse struct {
	PRNumber    string            `json:"pr_number"`
	Description string            `json:"description"`
	Vendor      string            `json:"vendor"`
	Site        string            `json:"site"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Requestor   requestorResponse `json:"requestor"`
	Status      string            `json:"status"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Links       requestLinks      `json:"_links"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

type listRequestsResponse struct {
	Data       []requestSummaryResponse `json:"data"`
	Pagination paginationResponse       `json:"pagination"`
}
