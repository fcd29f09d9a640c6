package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type alertService interface {
	WarrantyExpiringAssets(ctx context.Context, actor *models.Actor, windowDays int) ([]models.ExpiringAsset, error)
	InsuranceExpiringAssets(ctx context.Context, actor *models.Actor, windowDays int) ([]models.ExpiringAsset, error)
	UpcomingMaintenance(ctx context.Context, actor *models.Actor, windowDays int) ([]models.Maintenance, error)
}

// AlertHandler serves the expiry and maintenance alert lists.
type AlertHandler struct {
	service alertService
}

// NewAlertHandler constructs an AlertHandler.
func NewAlertHandler(svc alertService) *AlertHandler {
	return &AlertHandler{service: svc}
}

// Warranty godoc
// @Summary Assets with expiring warranties
// @Description Includes already expired warranties. Employees see only their own assets.
// @Tags Alerts
// @Produce json
// @Param days query int false "Look-ahead window in days, 0 to 3650 (default 30)"
// @Success 200 {object} response.Envelope
// @Router /alerts/warranty [get]
func (h *AlertHandler) Warranty(c *gin.Context) {
	h.expiring(c, h.service.WarrantyExpiringAssets)
}

// Insurance godoc
// @Summary Assets with expiring insurance
// @Tags Alerts
// @Produce json
// @Param days query int false "Look-ahead window in days, 0 to 3650 (default 30)"
// @Success 200 {object} response.Envelope
// @Router /alerts/insurance [get]
func (h *AlertHandler) Insurance(c *gin.Context) {
	h.expiring(c, h.service.InsuranceExpiringAssets)
}

// Maintenance godoc
// @Summary Overdue and upcoming maintenance
// @Tags Alerts
// @Produce json
// @Param days query int false "Look-ahead window in days, 0 to 3650 (default 30)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /alerts/maintenance [get]
func (h *AlertHandler) Maintenance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	days, ok := windowQuery(c)
	if !ok {
		return
	}
	items, err := h.service.UpcomingMaintenance(c.Request.Context(), actor, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil, map[string]interface{}{"count": len(items)})
}

func (h *AlertHandler) expiring(c *gin.Context, fn func(context.Context, *models.Actor, int) ([]models.ExpiringAsset, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	days, ok := windowQuery(c)
	if !ok {
		return
	}
	items, err := fn(c.Request.Context(), actor, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil, map[string]interface{}{"count": len(items)})
}
