package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type assetService interface {
	Create(ctx context.Context, actor *models.Actor, req dto.CreateAssetRequest) (*models.Asset, error)
	Get(ctx context.Context, actor *models.Actor, id string) (*models.Asset, error)
	List(ctx context.Context, actor *models.Actor, filter models.AssetFilter) ([]models.Asset, *response.Pagination, error)
	Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateAssetRequest) (*models.Asset, error)
	Assign(ctx context.Context, actor *models.Actor, assetID string, req dto.AssignAssetRequest) (*models.Asset, error)
	Return(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error)
	Transfer(ctx context.Context, actor *models.Actor, assetID string, req dto.AssignAssetRequest) (*models.Asset, error)
	SendToRepair(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error)
	RestoreFromRepair(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error)
	Retire(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error)
	Delete(ctx context.Context, actor *models.Actor, id string) error
	History(ctx context.Context, actor *models.Actor, id string) ([]models.AssetAssignment, error)
}

// AssetHandler exposes asset CRUD and lifecycle endpoints.
type AssetHandler struct {
	service assetService
}

// NewAssetHandler constructs an AssetHandler.
func NewAssetHandler(svc assetService) *AssetHandler {
	return &AssetHandler{service: svc}
}

// List godoc
// @Summary List assets
// @Description Admins see every asset, employees only those assigned to them
// @Tags Assets
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param category_id query string false "Category filter"
// @Param department_id query string false "Department filter"
// @Param assigned_to query string false "Assignee filter"
// @Param search query string false "Name or serial number"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	assets, pagination, err := h.service.List(c.Request.Context(), actor, assetFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, assets, pagination)
}

// Get godoc
// @Summary Get asset
// @Tags Assets
// @Produce json
// @Param id path string true "Asset ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assets/{id} [get]
func (h *AssetHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	asset, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, asset)
}

// Create godoc
// @Summary Create asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssetRequest true "Asset payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assets [post]
func (h *AssetHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateAssetRequest
	if !bindJSON(c, &req) {
		return
	}
	asset, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, asset)
}

// Update godoc
// @Summary Update asset
// @Description Edits descriptive fields. Status changes go through the lifecycle endpoints.
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.UpdateAssetRequest true "Asset payload"
// @Success 200 {object} response.Envelope
// @Router /assets/{id} [patch]
func (h *AssetHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateAssetRequest
	if !bindJSON(c, &req) {
		return
	}
	asset, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, asset)
}

// Delete godoc
// @Summary Delete asset
// @Description Soft deletes an asset that is not currently assigned
// @Tags Assets
// @Param id path string true "Asset ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /assets/{id} [delete]
func (h *AssetHandler) Delete(c *gin.Context) {
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

// History godoc
// @Summary Assignment history
// @Description Ledger of assignment changes, newest first
// @Tags Assets
// @Produce json
// @Param id path string true "Asset ID"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/history [get]
func (h *AssetHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	history, err := h.service.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, history)
}

// Assign godoc
// @Summary Assign asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.AssignAssetRequest true "Assignee"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assets/{id}/assign [post]
func (h *AssetHandler) Assign(c *gin.Context) {
	h.reassign(c, h.service.Assign)
}

// Transfer godoc
// @Summary Transfer asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.AssignAssetRequest true "New assignee"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assets/{id}/transfer [post]
func (h *AssetHandler) Transfer(c *gin.Context) {
	h.reassign(c, h.service.Transfer)
}

// Return godoc
// @Summary Return asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.LifecycleNotesRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /assets/{id}/return [post]
func (h *AssetHandler) Return(c *gin.Context) {
	h.lifecycle(c, h.service.Return)
}

// SendToRepair godoc
// @Summary Send asset to repair
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.LifecycleNotesRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/repair [post]
func (h *AssetHandler) SendToRepair(c *gin.Context) {
	h.lifecycle(c, h.service.SendToRepair)
}

// RestoreFromRepair godoc
// @Summary Restore asset from repair
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.LifecycleNotesRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/restore [post]
func (h *AssetHandler) RestoreFromRepair(c *gin.Context) {
	h.lifecycle(c, h.service.RestoreFromRepair)
}

// Retire godoc
// @Summary Retire asset
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.LifecycleNotesRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /assets/{id}/retire [post]
func (h *AssetHandler) Retire(c *gin.Context) {
	h.lifecycle(c, h.service.Retire)
}

func (h *AssetHandler) reassign(c *gin.Context, fn func(context.Context, *models.Actor, string, dto.AssignAssetRequest) (*models.Asset, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AssignAssetRequest
	if !bindJSON(c, &req) {
		return
	}
	asset, err := fn(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, asset)
}

func (h *AssetHandler) lifecycle(c *gin.Context, fn func(context.Context, *models.Actor, string, string) (*models.Asset, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.LifecycleNotesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	asset, err := fn(c.Request.Context(), actor, c.Param("id"), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, asset)
}

func assetFilterFromQuery(c *gin.Context) models.AssetFilter {
	filter := models.AssetFilter{
		CategoryID:   c.Query("category_id"),
		DepartmentID: c.Query("department_id"),
		AssignedTo:   c.Query("assigned_to"),
		Search:       c.Query("search"),
	}
	for _, status := range csvQuery(c, "status") {
		filter.Status = append(filter.Status, models.AssetStatus(status))
	}
	filter.Page, filter.PageSize = pageParams(c)
	return filter
}
