package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/policy"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type maintenanceRepository interface {
	Create(ctx context.Context, m *models.Maintenance) error
	GetByID(ctx context.Context, id string) (*models.Maintenance, error)
	List(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, int, error)
	Update(ctx context.Context, m *models.Maintenance) error
	ChangeStatus(ctx context.Context, change repository.MaintenanceStatusChange) error
	Delete(ctx context.Context, id string) error
}

// MaintenanceService schedules and tracks asset maintenance. Admin only.
type MaintenanceService struct {
	repo      maintenanceRepository
	assets    assetLookup
	validator *validator.Validate
	logger    *zap.Logger
	opts      serviceOptions
	notify    notifier
}

// NewMaintenanceService constructs a MaintenanceService.
func NewMaintenanceService(repo maintenanceRepository, assets assetLookup, validate *validator.Validate, logger *zap.Logger, opts ...ServiceOption) *MaintenanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	o := buildOptions(opts)
	return &MaintenanceService{repo: repo, assets: assets, validator: validate, logger: logger, opts: o, notify: newNotifier(o.publisher, o.metrics, logger)}
}

// Create schedules a pending maintenance record for an existing asset.
func (s *MaintenanceService) Create(ctx context.Context, actor *models.Actor, req dto.CreateMaintenanceRequest) (*models.Maintenance, error) {
	if err := policy.Authorize(actor, policy.KindMaintenance, nil, policy.OpCreate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid maintenance payload")
	}
	if req.ScheduledDate.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scheduled_date is required")
	}
	cost := decimal.Zero
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "cost must not be negative")
		}
		cost = *req.Cost
	}
	if _, err := s.assets.GetByID(ctx, req.AssetID); err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "schedule maintenance", actor: actor, entity: "asset", entityID: req.AssetID}, err)
	}

	record := &models.Maintenance{
		AssetID:         req.AssetID,
		MaintenanceType: req.MaintenanceType,
		Description:     req.Description,
		Cost:            cost,
		ScheduledDate:   dateOf(req.ScheduledDate.Time),
		Status:          models.MaintenancePending,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "schedule maintenance", actor: actor, entity: "maintenance"}, err)
	}
	s.decorate(record)
	s.changed(ctx, actor, events.MaintenanceScheduled, record)
	return record, nil
}

// Get returns one record with its derived alert.
func (s *MaintenanceService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Maintenance, error) {
	if err := policy.AuthorizeView(actor, policy.KindMaintenance, nil); err != nil {
		return nil, err
	}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "get maintenance", actor: actor, entity: "maintenance", entityID: id}, err)
	}
	s.decorate(record)
	return record, nil
}

// List returns maintenance records. Filtering by pending also matches rows
// carrying the legacy overdue status.
func (s *MaintenanceService) List(ctx context.Context, actor *models.Actor, filter models.MaintenanceFilter) ([]models.Maintenance, *response.Pagination, error) {
	if err := policy.AuthorizeView(actor, policy.KindMaintenance, nil); err != nil {
		return nil, nil, err
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(ctx, s.logger, opContext{op: "list maintenance", actor: actor, entity: "maintenance"}, err)
	}
	if items == nil {
		items = []models.Maintenance{}
	}
	for i := range items {
		s.decorate(&items[i])
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// Update edits a record that has not been completed.
func (s *MaintenanceService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateMaintenanceRequest) (*models.Maintenance, error) {
	if err := policy.Authorize(actor, policy.KindMaintenance, nil, policy.OpUpdate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid maintenance payload")
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cost must not be negative")
	}

	oc := opContext{op: "update maintenance", actor: actor, entity: "maintenance", entityID: id}
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	if record.Status == models.MaintenanceCompleted {
		return nil, appErrors.InvalidTransition("maintenance", string(record.Status), "update")
	}
	if req.MaintenanceType != nil {
		record.MaintenanceType = *req.MaintenanceType
	}
	if req.Description != nil {
		record.Description = req.Description
	}
	if req.Cost != nil {
		record.Cost = *req.Cost
	}
	if req.ScheduledDate != nil && !req.ScheduledDate.IsZero() {
		record.ScheduledDate = dateOf(req.ScheduledDate.Time)
	}
	if req.Notes != nil {
		record.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, s.stale(ctx, oc, "update")
		}
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.decorate(record)
	s.changed(ctx, actor, events.MaintenanceUpdated, record)
	return record, nil
}

// Start marks pending work as in progress.
func (s *MaintenanceService) Start(ctx context.Context, actor *models.Actor, id string) (*models.Maintenance, error) {
	change := repository.MaintenanceStatusChange{
		ID:   id,
		From: []models.MaintenanceStatus{models.MaintenancePending},
		To:   models.MaintenanceInProgress,
	}
	return s.changeStatus(ctx, actor, change, "start", events.MaintenanceUpdated)
}

// Complete closes pending or in-progress work. The completion date defaults
// to today.
func (s *MaintenanceService) Complete(ctx context.Context, actor *models.Actor, id string, req dto.CompleteMaintenanceRequest) (*models.Maintenance, error) {
	completed := dateOf(s.opts.now())
	if req.CompletedDate != nil && !req.CompletedDate.IsZero() {
		completed = dateOf(req.CompletedDate.Time)
	}
	change := repository.MaintenanceStatusChange{
		ID:            id,
		From:          []models.MaintenanceStatus{models.MaintenancePending, models.MaintenanceInProgress},
		To:            models.MaintenanceCompleted,
		CompletedDate: &completed,
		Notes:         req.Notes,
	}
	return s.changeStatus(ctx, actor, change, "complete", events.MaintenanceCompleted)
}

// Delete removes a maintenance record.
func (s *MaintenanceService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if err := policy.Authorize(actor, policy.KindMaintenance, nil, policy.OpDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(ctx, s.logger, opContext{op: "delete maintenance", actor: actor, entity: "maintenance", entityID: id}, err)
	}
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionMaintenance, "maintenance", id, map[string]string{"action": "delete"}))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return nil
}

func (s *MaintenanceService) changeStatus(ctx context.Context, actor *models.Actor, change repository.MaintenanceStatusChange, action string, eventType events.Type) (*models.Maintenance, error) {
	if err := policy.Authorize(actor, policy.KindMaintenance, nil, policy.OpTransition); err != nil {
		return nil, err
	}
	oc := opContext{op: action + " maintenance", actor: actor, entity: "maintenance", entityID: change.ID}
	if err := s.repo.ChangeStatus(ctx, change); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			s.opts.metrics.RecordTransition("maintenance", action, false)
			return nil, s.stale(ctx, oc, action)
		}
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.opts.metrics.RecordTransition("maintenance", action, true)

	record, err := s.repo.GetByID(ctx, change.ID)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.decorate(record)
	s.changed(ctx, actor, eventType, record)
	return record, nil
}

func (s *MaintenanceService) stale(ctx context.Context, oc opContext, action string) error {
	current, err := s.repo.GetByID(ctx, oc.entityID)
	if err != nil {
		return storeError(ctx, s.logger, oc, err)
	}
	return appErrors.InvalidTransition("maintenance", string(current.Status.Normalize()), action)
}

func (s *MaintenanceService) decorate(record *models.Maintenance) {
	record.Status = record.Status.Normalize()
	record.Alert = MaintenanceAlert(*record, s.opts.now(), s.opts.window)
}

func (s *MaintenanceService) changed(ctx context.Context, actor *models.Actor, eventType events.Type, record *models.Maintenance) {
	s.notify.emit(ctx, events.New(eventType, "maintenance", record.ID, actor.UserID, record))
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionMaintenance, "maintenance", record.ID, record))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
}
