package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/service"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type exportService interface {
	ExportAssets(ctx context.Context, actor *models.Actor, format string, filter models.AssetFilter) (*service.ExportFile, error)
}

// ExportHandler streams the asset register as a file download.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Assets godoc
// @Summary Export asset register
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf (default csv)"
// @Param status query string false "Comma separated statuses"
// @Param category_id query string false "Category filter"
// @Param department_id query string false "Department filter"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/assets [get]
func (h *ExportHandler) Assets(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := h.service.ExportAssets(c.Request.Context(), actor, c.DefaultQuery("format", "csv"), assetFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
