package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type issueService interface {
	Report(ctx context.Context, actor *models.Actor, req dto.ReportIssueRequest) (*models.IssueReport, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*models.IssueReport, error)
	List(ctx context.Context, actor *models.Actor, filter models.IssueReportFilter) ([]models.IssueReport, *response.Pagination, error)
	StartWork(ctx context.Context, actor *models.Actor, id string) (*models.IssueReport, error)
	Resolve(ctx context.Context, actor *models.Actor, id string, req dto.IssueNotesRequest) (*models.IssueReport, error)
	Close(ctx context.Context, actor *models.Actor, id string, req dto.IssueNotesRequest) (*models.IssueReport, error)
	Cancel(ctx context.Context, actor *models.Actor, id string) (*models.IssueReport, error)
}

// IssueHandler exposes issue reporting and triage.
type IssueHandler struct {
	service issueService
}

// NewIssueHandler constructs an IssueHandler.
func NewIssueHandler(svc issueService) *IssueHandler {
	return &IssueHandler{service: svc}
}

// List godoc
// @Summary List issue reports
// @Tags Issues
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param severity query string false "Severity filter"
// @Param asset_id query string false "Asset filter"
// @Param user_id query string false "Reporter filter (admin)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /issues [get]
func (h *IssueHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter := models.IssueReportFilter{
		UserID:   c.Query("user_id"),
		AssetID:  c.Query("asset_id"),
		Severity: models.IssueSeverity(c.Query("severity")),
	}
	for _, status := range csvQuery(c, "status") {
		filter.Status = append(filter.Status, models.IssueStatus(status))
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
// @Summary Get issue report
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Router /issues/{id} [get]
func (h *IssueHandler) Get(c *gin.Context) {
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

// Report godoc
// @Summary Report an issue
// @Description Only the current assignee may report an issue against an asset
// @Tags Issues
// @Accept json
// @Produce json
// @Param payload body dto.ReportIssueRequest true "Issue payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /issues [post]
func (h *IssueHandler) Report(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReportIssueRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Report(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// StartWork godoc
// @Summary Start work on an issue
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Router /issues/{id}/start [post]
func (h *IssueHandler) StartWork(c *gin.Context) {
	h.act(c, h.service.StartWork)
}

// Cancel godoc
// @Summary Cancel an issue
// @Tags Issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} response.Envelope
// @Router /issues/{id}/cancel [post]
func (h *IssueHandler) Cancel(c *gin.Context) {
	h.act(c, h.service.Cancel)
}

// Resolve godoc
// @Summary Resolve an issue
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID"
// @Param payload body dto.IssueNotesRequest false "Resolution notes"
// @Success 200 {object} response.Envelope
// @Router /issues/{id}/resolve [post]
func (h *IssueHandler) Resolve(c *gin.Context) {
	h.settle(c, h.service.Resolve)
}

// Close godoc
// @Summary Close an issue
// @Tags Issues
// @Accept json
// @Produce json
// @Param id path string true "Issue ID"
// @Param payload body dto.IssueNotesRequest false "Closing notes"
// @Success 200 {object} response.Envelope
// @Router /issues/{id}/close [post]
func (h *IssueHandler) Close(c *gin.Context) {
	h.settle(c, h.service.Close)
}

func (h *IssueHandler) act(c *gin.Context, fn func(context.Context, *models.Actor, string) (*models.IssueReport, error)) {
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

func (h *IssueHandler) settle(c *gin.Context, fn func(context.Context, *models.Actor, string, dto.IssueNotesRequest) (*models.IssueReport, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.IssueNotesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	item, err := fn(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
