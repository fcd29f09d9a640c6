package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/pkg/response"
	"github.com/noah-isme/asset-desk-api/pkg/warranty"
)

type warrantyService interface {
	Register(ctx context.Context, actor *models.Actor, assetID string, req dto.RegisterWarrantyRequest) (*warranty.RegistrationResult, error)
	Status(ctx context.Context, actor *models.Actor, assetID string) (*warranty.Status, error)
}

// WarrantyHandler proxies warranty registration to the external provider.
type WarrantyHandler struct {
	service warrantyService
}

// NewWarrantyHandler constructs a WarrantyHandler.
func NewWarrantyHandler(svc warrantyService) *WarrantyHandler {
	return &WarrantyHandler{service: svc}
}

// Register godoc
// @Summary Register asset warranty
// @Tags Assets
// @Accept json
// @Produce json
// @Param id path string true "Asset ID"
// @Param payload body dto.RegisterWarrantyRequest true "Warranty details"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assets/{id}/warranty/register [post]
func (h *WarrantyHandler) Register(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.RegisterWarrantyRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.service.Register(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Status godoc
// @Summary Warranty registration status
// @Tags Assets
// @Produce json
// @Param id path string true "Asset ID"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assets/{id}/warranty/status [get]
func (h *WarrantyHandler) Status(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	status, err := h.service.Status(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, status)
}
