package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/policy"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
)

type referenceRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, item *models.Category) error
	RenameCategory(ctx context.Context, id, name string) error
	DeleteCategory(ctx context.Context, id string) (repository.References, error)
	ListDepartments(ctx context.Context) ([]models.Department, error)
	GetDepartment(ctx context.Context, id string) (*models.Department, error)
	CreateDepartment(ctx context.Context, item *models.Department) error
	RenameDepartment(ctx context.Context, id, name string) error
	DeleteDepartment(ctx context.Context, id string) (repository.References, error)
}

// ReferenceService manages categories and departments.
type ReferenceService struct {
	repo      referenceRepository
	validator *validator.Validate
	logger    *zap.Logger
	opts      serviceOptions
	notify    notifier
}

// NewReferenceService constructs a ReferenceService.
func NewReferenceService(repo referenceRepository, validate *validator.Validate, logger *zap.Logger, opts ...ServiceOption) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	o := buildOptions(opts)
	return &ReferenceService{repo: repo, validator: validate, logger: logger, opts: o, notify: newNotifier(o.publisher, o.metrics, logger)}
}

// ListCategories is open to every authenticated actor.
func (s *ReferenceService) ListCategories(ctx context.Context, actor *models.Actor) ([]models.Category, error) {
	if err := policy.AuthorizeView(actor, policy.KindCategory, nil); err != nil {
		return nil, err
	}
	items, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "list categories", actor: actor, entity: "category"}, err)
	}
	if items == nil {
		items = []models.Category{}
	}
	return items, nil
}

// GetCategory returns a single category.
func (s *ReferenceService) GetCategory(ctx context.Context, actor *models.Actor, id string) (*models.Category, error) {
	if err := policy.AuthorizeView(actor, policy.KindCategory, nil); err != nil {
		return nil, err
	}
	item, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "get category", actor: actor, entity: "category", entityID: id}, err)
	}
	return item, nil
}

// CreateCategory adds a category.
func (s *ReferenceService) CreateCategory(ctx context.Context, actor *models.Actor, req dto.ReferenceRequest) (*models.Category, error) {
	name, err := s.checkWrite(actor, policy.KindCategory, policy.OpCreate, req)
	if err != nil {
		return nil, err
	}
	item := &models.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, item); err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "create category", actor: actor, entity: "category"}, err)
	}
	s.changed(ctx, actor, models.AuditActionReferenceCreate, "category", item.ID, item)
	return item, nil
}

// RenameCategory changes a category name.
func (s *ReferenceService) RenameCategory(ctx context.Context, actor *models.Actor, id string, req dto.ReferenceRequest) (*models.Category, error) {
	name, err := s.checkWrite(actor, policy.KindCategory, policy.OpUpdate, req)
	if err != nil {
		return nil, err
	}
	oc := opContext{op: "rename category", actor: actor, entity: "category", entityID: id}
	if err := s.repo.RenameCategory(ctx, id, name); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	item, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.changed(ctx, actor, models.AuditActionReferenceUpdate, "category", id, item)
	return item, nil
}

// DeleteCategory removes a category that no asset references.
func (s *ReferenceService) DeleteCategory(ctx context.Context, actor *models.Actor, id string) error {
	if err := policy.Authorize(actor, policy.KindCategory, nil, policy.OpDelete); err != nil {
		return err
	}
	refs, err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		return storeError(ctx, s.logger, opContext{op: "delete category", actor: actor, entity: "category", entityID: id}, err)
	}
	if refs.Total > 0 {
		return appErrors.ReferentialConflict("category", refs.Total, refs.Archived)
	}
	s.changed(ctx, actor, models.AuditActionReferenceDelete, "category", id, nil)
	return nil
}

// ListDepartments is open to every authenticated actor.
func (s *ReferenceService) ListDepartments(ctx context.Context, actor *models.Actor) ([]models.Department, error) {
	if err := policy.AuthorizeView(actor, policy.KindDepartment, nil); err != nil {
		return nil, err
	}
	items, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "list departments", actor: actor, entity: "department"}, err)
	}
	if items == nil {
		items = []models.Department{}
	}
	return items, nil
}

// GetDepartment returns a single department.
func (s *ReferenceService) GetDepartment(ctx context.Context, actor *models.Actor, id string) (*models.Department, error) {
	if err := policy.AuthorizeView(actor, policy.KindDepartment, nil); err != nil {
		return nil, err
	}
	item, err := s.repo.GetDepartment(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "get department", actor: actor, entity: "department", entityID: id}, err)
	}
	return item, nil
}

// CreateDepartment adds a department.
func (s *ReferenceService) CreateDepartment(ctx context.Context, actor *models.Actor, req dto.ReferenceRequest) (*models.Department, error) {
	name, err := s.checkWrite(actor, policy.KindDepartment, policy.OpCreate, req)
	if err != nil {
		return nil, err
	}
	item := &models.Department{Name: name}
	if err := s.repo.CreateDepartment(ctx, item); err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "create department", actor: actor, entity: "department"}, err)
	}
	s.changed(ctx, actor, models.AuditActionReferenceCreate, "department", item.ID, item)
	return item, nil
}

// RenameDepartment changes a department name.
func (s *ReferenceService) RenameDepartment(ctx context.Context, actor *models.Actor, id string, req dto.ReferenceRequest) (*models.Department, error) {
	name, err := s.checkWrite(actor, policy.KindDepartment, policy.OpUpdate, req)
	if err != nil {
		return nil, err
	}
	oc := opContext{op: "rename department", actor: actor, entity: "department", entityID: id}
	if err := s.repo.RenameDepartment(ctx, id, name); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	item, err := s.repo.GetDepartment(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.changed(ctx, actor, models.AuditActionReferenceUpdate, "department", id, item)
	return item, nil
}

// DeleteDepartment removes a department that no asset or user references.
func (s *ReferenceService) DeleteDepartment(ctx context.Context, actor *models.Actor, id string) error {
	if err := policy.Authorize(actor, policy.KindDepartment, nil, policy.OpDelete); err != nil {
		return err
	}
	refs, err := s.repo.DeleteDepartment(ctx, id)
	if err != nil {
		return storeError(ctx, s.logger, opContext{op: "delete department", actor: actor, entity: "department", entityID: id}, err)
	}
	if refs.Total > 0 {
		return appErrors.ReferentialConflict("department", refs.Total, refs.Archived)
	}
	s.changed(ctx, actor, models.AuditActionReferenceDelete, "department", id, nil)
	return nil
}

func (s *ReferenceService) checkWrite(actor *models.Actor, kind policy.EntityKind, op policy.Operation, req dto.ReferenceRequest) (string, error) {
	if err := policy.Authorize(actor, kind, nil, op); err != nil {
		return "", err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return "", validationError(err, "invalid name")
	}
	return req.Name, nil
}

func (s *ReferenceService) changed(ctx context.Context, actor *models.Actor, action, resource, id string, payload interface{}) {
	table := "departments"
	if resource == "category" {
		table = "categories"
	}
	s.notify.emit(ctx, events.New(events.ReferenceChanged, table, id, actor.UserID, map[string]interface{}{
		"action": action,
		"item":   payload,
	}))
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, action, resource, id, payload))
}
