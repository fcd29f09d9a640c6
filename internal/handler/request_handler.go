package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, actor *models.Actor, req dto.SubmitAssetRequest) (*models.AssetRequest, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*models.AssetRequest, error)
	List(ctx context.Context, actor *models.Actor, filter models.AssetRequestFilter) ([]models.AssetRequest, *response.Pagination, error)
	Decide(ctx context.Context, actor *models.Actor, id string, req dto.DecideAssetRequest) (*models.AssetRequest, error)
	Fulfill(ctx context.Context, actor *models.Actor, id string) (*models.AssetRequest, error)
	Cancel(ctx context.Context, actor *models.Actor, id string) (*models.AssetRequest, error)
}

// RequestHandler exposes the asset request workflow.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(svc requestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// List godoc
// @Summary List asset requests
// @Description Employees see their own requests, admins see all
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param priority query string false "Priority filter"
// @Param user_id query string false "Requester filter (admin)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter := models.AssetRequestFilter{
		UserID:   c.Query("user_id"),
		Priority: models.RequestPriority(c.Query("priority")),
	}
	for _, status := range csvQuery(c, "status") {
		filter.Status = append(filter.Status, models.RequestStatus(status))
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, pagination)
}

// Get godoc
// @Summary Get asset request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Submit godoc
// @Summary Submit asset request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitAssetRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitAssetRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Decide godoc
// @Summary Approve or deny a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecideAssetRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{id}/decide [post]
func (h *RequestHandler) Decide(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DecideAssetRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Decide(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Fulfill godoc
// @Summary Mark an approved request fulfilled
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{id}/fulfill [post]
func (h *RequestHandler) Fulfill(c *gin.Context) {
	h.act(c, h.service.Fulfill)
}

// Cancel godoc
// @Summary Cancel own pending request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.act(c, h.service.Cancel)
}

func (h *RequestHandler) act(c *gin.Context, fn func(context.Context, *models.Actor, string) (*models.AssetRequest, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
