package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type referenceService interface {
	ListCategories(ctx context.Context, actor *models.Actor) ([]models.Category, error)
	GetCategory(ctx context.Context, actor *models.Actor, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, actor *models.Actor, req dto.ReferenceRequest) (*models.Category, error)
	RenameCategory(ctx context.Context, actor *models.Actor, id string, req dto.ReferenceRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, actor *models.Actor, id string) error
	ListDepartments(ctx context.Context, actor *models.Actor) ([]models.Department, error)
	GetDepartment(ctx context.Context, actor *models.Actor, id string) (*models.Department, error)
	CreateDepartment(ctx context.Context, actor *models.Actor, req dto.ReferenceRequest) (*models.Department, error)
	RenameDepartment(ctx context.Context, actor *models.Actor, id string, req dto.ReferenceRequest) (*models.Department, error)
	DeleteDepartment(ctx context.Context, actor *models.Actor, id string) error
}

// ReferenceHandler serves the category and department lookup tables.
type ReferenceHandler struct {
	service referenceService
}

// NewReferenceHandler constructs a ReferenceHandler.
func NewReferenceHandler(svc referenceService) *ReferenceHandler {
	return &ReferenceHandler{service: svc}
}

// ListCategories godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *ReferenceHandler) ListCategories(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.ListCategories(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// GetCategory godoc
// @Summary Get category
// @Tags Categories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *ReferenceHandler) GetCategory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.GetCategory(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// CreateCategory godoc
// @Summary Create category
// @Tags Categories
// @Accept json
// @Produce json
// @Param payload body dto.ReferenceRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /categories [post]
func (h *ReferenceHandler) CreateCategory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReferenceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateCategory(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// RenameCategory godoc
// @Summary Rename category
// @Tags Categories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body dto.ReferenceRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [put]
func (h *ReferenceHandler) RenameCategory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReferenceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.RenameCategory(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// DeleteCategory godoc
// @Summary Delete category
// @Description Fails with 400 while assets still reference the category
// @Tags Categories
// @Param id path string true "Category ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /categories/{id} [delete]
func (h *ReferenceHandler) DeleteCategory(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListDepartments godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *ReferenceHandler) ListDepartments(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.ListDepartments(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, nil)
}

// GetDepartment godoc
// @Summary Get department
// @Tags Departments
// @Produce json
// @Param id path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [get]
func (h *ReferenceHandler) GetDepartment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.GetDepartment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// CreateDepartment godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body dto.ReferenceRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Router /departments [post]
func (h *ReferenceHandler) CreateDepartment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReferenceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.CreateDepartment(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// RenameDepartment godoc
// @Summary Rename department
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path string true "Department ID"
// @Param payload body dto.ReferenceRequest true "Department payload"
// @Success 200 {object} response.Envelope
// @Router /departments/{id} [put]
func (h *ReferenceHandler) RenameDepartment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ReferenceRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.service.RenameDepartment(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// DeleteDepartment godoc
// @Summary Delete department
// @Description Fails with 400 while users or assets still reference the department
// @Tags Departments
// @Param id path string true "Department ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /departments/{id} [delete]
func (h *ReferenceHandler) DeleteDepartment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.DeleteDepartment(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
