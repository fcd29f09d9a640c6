package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type maintenanceService interface {
	Create(ctx context.Context, actor *models.Actor, req dto.CreateMaintenanceRequest) (*models.Maintenance, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*models.Maintenance, error)
	List(ctx context.Context, actor *models.Actor, filter models.MaintenanceFilter) ([]models.Maintenance, *response.Pagination, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateMaintenanceRequest) (*models.Maintenance, error)
	Start(ctx context.Context, actor *models.Actor, id string) (*models.Maintenance, error)
	Complete(ctx context.Context, actor *models.Actor, id string, req dto.CompleteMaintenanceRequest) (*models.Maintenance, error)
	Delete(ctx context.Context, actor *models.Actor, id string) error
}

// MaintenanceHandler exposes maintenance scheduling endpoints.
type MaintenanceHandler struct {
	service maintenanceService
}

// NewMaintenanceHandler constructs a MaintenanceHandler.
func NewMaintenanceHandler(svc maintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{service: svc}
}

// List godoc
// @Summary List maintenance records
// @Tags Maintenance
// @Produce json
// @Param asset_id query string false "Asset filter"
// @Param status query string false "Comma separated statuses"
// @Param scheduled_from query string false "YYYY-MM-DD"
// @Param scheduled_to query string false "YYYY-MM-DD"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /maintenance [get]
func (h *MaintenanceHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter := models.MaintenanceFilter{AssetID: c.Query("asset_id")}
	for _, status := range csvQuery(c, "status") {
		filter.Status = append(filter.Status, models.MaintenanceStatus(status))
	}
	var err error
	if filter.ScheduledFrom, err = dateQuery(c, "scheduled_from"); err != nil {
		response.Error(c, err)
		return
	}
	if filter.ScheduledTo, err = dateQuery(c, "scheduled_to"); err != nil {
		response.Error(c, err)
		return
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
// @Summary Get maintenance record
// @Tags Maintenance
// @Produce json
// @Param id path string true "Maintenance ID"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id} [get]
func (h *MaintenanceHandler) Get(c *gin.Context) {
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

// Create godoc
// @Summary Schedule maintenance
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param payload body dto.CreateMaintenanceRequest true "Maintenance payload"
// @Success 201 {object} response.Envelope
// @Router /maintenance [post]
func (h *MaintenanceHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update maintenance record
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param payload body dto.UpdateMaintenanceRequest true "Maintenance payload"
// @Success 200 {object} response.Envelope
// @Router /maintenance/{id} [patch]
func (h *MaintenanceHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateMaintenanceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Start godoc
// @Summary Start maintenance
// @Tags Maintenance
// @Produce json
// @Param id path string true "Maintenance ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /maintenance/{id}/start [post]
func (h *MaintenanceHandler) Start(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.Start(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Complete godoc
// @Summary Complete maintenance
// @Tags Maintenance
// @Accept json
// @Produce json
// @Param id path string true "Maintenance ID"
// @Param payload body dto.CompleteMaintenanceRequest false "Completion details"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /maintenance/{id}/complete [post]
func (h *MaintenanceHandler) Complete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CompleteMaintenanceRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	item, err := h.service.Complete(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete godoc
// @Summary Delete maintenance record
// @Tags Maintenance
// @Param id path string true "Maintenance ID"
// @Success 204
// @Router /maintenance/{id} [delete]
func (h *MaintenanceHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be YYYY-MM-DD")
	}
	return &t, nil
}
