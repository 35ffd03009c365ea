package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/onepwr/procurement-tracker/internal/core/domain"
	"github.com/onepwr/procurement-tracker/internal/core/ports"
)

// RequestHandler handles HTTP requests for purchase request operations.
type RequestHandler struct {
	service   ports.RequestService
	allocator ports.Allocator
}

func NewRequestHandler(service ports.RequestService, allocator ports.Allocator) *RequestHandler {
	return &RequestHandler{service: service, allocator: allocator}
}

// NextNumber reserves the next purchase request number for the caller. The
// reservation expires if no submission follows, leaving a gap.
//
// @Summary      Reserve the next PR number
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  nextNumberResponse
// @Failure      401  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/requests/next-number [get]
func (h *RequestHandler) NextNumber(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	id, err := h.allocator.Next(c.Request().Context(), user.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, nextNumberResponse{
		PRNumber:    string(id),
		ReservedFor: user.Email,
	})
}

// Submit creates a purchase request, committing the PR number to the
// allocation log in the same operation.
//
// @Summary      Submit a purchase request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      submitRequestRequest  true  "Purchase request details"
// @Success      201   {object}  submitRequestResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/requests [post]
func (h *RequestHandler) Submit(c echo.Context) error {
	var req submitRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	}

	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	result, err := h.service.Submit(c.Request().Context(), user, toSubmitInput(req))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, toSubmitResponse(result))
}

// Get handles GET /v1/requests/:pr_number.
//
// @Summary      Get a purchase request by number
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        pr_number  path      string  true  "PR number (e.g. PR-202608-041)"
// @Success      200        {object}  getRequestResponse
// @Failure      404        {object}  errorResponse
// @Router       /v1/requests/{pr_number} [get]
func (h *RequestHandler) Get(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	req, err := h.service.Get(c.Request().Context(), c.Param("pr_number"), user)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toGetResponse(req))
}

// List handles GET /v1/requests. Requestors only see their own submissions;
// approver, finance and admin see everything.
//
// @Summary      List purchase requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        site    query     string  false  "Filter by site"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  listRequestsResponse
// @Failure      401     {object}  errorResponse
// @Router       /v1/requests [get]
func (h *RequestHandler) List(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	filter := ports.ListRequestsFilter{
		Status: c.QueryParam("status"),
		Site:   c.QueryParam("site"),
		Page:   page,
		Limit:  limit,
	}

	items, total, err := h.service.List(c.Request().Context(), user, filter)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toListResponse(items, total, page, limit))
}

// Advance handles POST /v1/requests/:pr_number/status.
//
// @Summary      Advance a purchase request through the workflow
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        pr_number  path      string                 true  "PR number"
// @Param        body       body      advanceRequestRequest  true  "Target status"
// @Success      200        {object}  getRequestResponse
// @Failure      403        {object}  errorResponse
// @Failure      404        {object}  errorResponse
// @Failure      422        {object}  errorResponse
// @Router       /v1/requests/{pr_number}/status [post]
func (h *RequestHandler) Advance(c echo.Context) error {
	var req advanceRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	}

	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	updated, err := h.service.Advance(c.Request().Context(), c.Param("pr_number"), domain.RequestStatus(req.Status), user, req.Notes)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toGetResponse(updated))
}

// Reconcile repairs a month's counter row from the allocation log, e.g.
// after a by-hand edit of the backing table.
//
// @Summary      Reconcile a month's counter with the allocation log
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        year_month  path      string  true  "Month key (YYYYMM)"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/reconcile/{year_month} [post]
func (h *RequestHandler) Reconcile(c echo.Context) error {
	yearMonth := c.Param("year_month")
	if len(yearMonth) != 6 {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "year_month must be YYYYMM"})
	}

	if err := h.allocator.Reconcile(c.Request().Context(), yearMonth); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
