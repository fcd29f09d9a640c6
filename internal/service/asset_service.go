package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/dto"
	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/policy"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
	"github.com/noah-isme/asset-desk-api/pkg/response"
)

type assetRepository interface {
	Create(ctx context.Context, asset *models.Asset, initial *models.AssetAssignment) error
	GetByID(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context, filter models.AssetFilter) ([]models.Asset, int, error)
	Update(ctx context.Context, asset *models.Asset) error
	ApplyTransition(ctx context.Context, t repository.AssetTransition) error
	SoftDelete(ctx context.Context, id string, at time.Time) error
	History(ctx context.Context, assetID string) ([]models.AssetAssignment, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AssetService runs the asset lifecycle: creation, the status state machine
// with its ledger, descriptive edits and soft deletion.
type AssetService struct {
	repo      assetRepository
	users     userLookup
	validator *validator.Validate
	logger    *zap.Logger
	opts      serviceOptions
	notify    notifier
}

// NewAssetService constructs an AssetService.
func NewAssetService(repo assetRepository, users userLookup, validate *validator.Validate, logger *zap.Logger, opts ...ServiceOption) *AssetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	o := buildOptions(opts)
	return &AssetService{
		repo:      repo,
		users:     users,
		validator: validate,
		logger:    logger,
		opts:      o,
		notify:    newNotifier(o.publisher, o.metrics, logger),
	}
}

// Create registers an asset. An initial status of assigned appends the first
// ledger row in the same transaction.
func (s *AssetService) Create(ctx context.Context, actor *models.Actor, req dto.CreateAssetRequest) (*models.Asset, error) {
	if err := policy.Authorize(actor, policy.KindAsset, nil, policy.OpCreate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid asset payload")
	}
	if req.DatePurchased.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date_purchased is required")
	}
	if req.Cost.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cost must not be negative")
	}

	status := req.Status
	if status == "" {
		status = models.AssetStatusAvailable
	}
	assignee := ""
	if req.AssignedTo != nil {
		assignee = *req.AssignedTo
	}
	if (status == models.AssetStatusAssigned) != (assignee != "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assigned_to must be set exactly when status is assigned")
	}

	now := s.opts.now()
	asset := &models.Asset{
		Name:                  req.Name,
		CategoryID:            req.CategoryID,
		DepartmentID:          req.DepartmentID,
		DatePurchased:         req.DatePurchased.Time,
		Cost:                  *req.Cost,
		Status:                status,
		SerialNumber:          req.SerialNumber,
		Description:           req.Description,
		Location:              req.Location,
		WarrantyExpiry:        req.WarrantyExpiry.Ptr(),
		WarrantyNotes:         req.WarrantyNotes,
		InsuranceProvider:     req.InsuranceProvider,
		InsurancePolicyNumber: req.InsurancePolicyNumber,
		InsuranceExpiry:       req.InsuranceExpiry.Ptr(),
		InsuranceCoverage:     req.InsuranceCoverage,
		UserID:                actor.UserID,
	}

	var initial *models.AssetAssignment
	if status == models.AssetStatusAssigned {
		// Employees may only register assets already in their own hands.
		if !actor.IsAdmin() && assignee != actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can assign assets to other users")
		}
		if err := s.ensureUser(ctx, actor, assignee); err != nil {
			return nil, err
		}
		asset.AssignedTo = &assignee
		asset.AssignedDate = &now
		to := models.AssetStatusAssigned
		initial = &models.AssetAssignment{
			UserID:     &assignee,
			Action:     models.AssignmentAssigned,
			ToStatus:   &to,
			Notes:      strPtr(req.Notes),
			AssignedBy: actor.UserID,
		}
	}

	if err := s.repo.Create(ctx, asset, initial); err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "create asset", actor: actor, entity: "asset"}, err)
	}

	s.notify.emit(ctx, events.New(events.AssetCreated, "assets", asset.ID, actor.UserID, asset))
	if initial != nil {
		s.notify.emit(ctx, events.New(events.AssetAssigned, "assets", asset.ID, actor.UserID, initial))
	}
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionAssetCreate, "asset", asset.ID, asset))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return asset, nil
}

// Get returns an asset visible to the actor.
func (s *AssetService) Get(ctx context.Context, actor *models.Actor, id string) (*models.Asset, error) {
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "get asset", actor: actor, entity: "asset", entityID: id}, err)
	}
	if err := policy.AuthorizeView(actor, policy.KindAsset, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// List returns assets; employees only ever see assets assigned to them.
func (s *AssetService) List(ctx context.Context, actor *models.Actor, filter models.AssetFilter) ([]models.Asset, *response.Pagination, error) {
	if actor == nil || actor.UserID == "" {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter = policy.ScopeAssets(actor, filter)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(ctx, s.logger, opContext{op: "list assets", actor: actor, entity: "asset"}, err)
	}
	if items == nil {
		items = []models.Asset{}
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// Update patches descriptive, warranty and insurance fields.
func (s *AssetService) Update(ctx context.Context, actor *models.Actor, id string, req dto.UpdateAssetRequest) (*models.Asset, error) {
	if err := policy.Authorize(actor, policy.KindAsset, nil, policy.OpUpdate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid asset payload")
	}
	if req.Status != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status can only change through lifecycle actions")
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cost must not be negative")
	}

	oc := opContext{op: "update asset", actor: actor, entity: "asset", entityID: id}
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}

	if req.Name != nil {
		asset.Name = *req.Name
	}
	if req.CategoryID != nil {
		asset.CategoryID = *req.CategoryID
	}
	if req.DepartmentID != nil {
		asset.DepartmentID = *req.DepartmentID
	}
	if req.DatePurchased != nil && !req.DatePurchased.IsZero() {
		asset.DatePurchased = req.DatePurchased.Time
	}
	if req.Cost != nil {
		asset.Cost = *req.Cost
	}
	if req.SerialNumber != nil {
		asset.SerialNumber = req.SerialNumber
	}
	if req.Description != nil {
		asset.Description = req.Description
	}
	if req.Location != nil {
		asset.Location = req.Location
	}
	if req.WarrantyExpiry != nil {
		asset.WarrantyExpiry = req.WarrantyExpiry.Ptr()
	}
	if req.WarrantyNotes != nil {
		asset.WarrantyNotes = req.WarrantyNotes
	}
	if req.InsuranceProvider != nil {
		asset.InsuranceProvider = req.InsuranceProvider
	}
	if req.InsurancePolicyNumber != nil {
		asset.InsurancePolicyNumber = req.InsurancePolicyNumber
	}
	if req.InsuranceExpiry != nil {
		asset.InsuranceExpiry = req.InsuranceExpiry.Ptr()
	}
	if req.InsuranceCoverage != nil {
		asset.InsuranceCoverage = req.InsuranceCoverage
	}

	if err := s.repo.Update(ctx, asset); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.notify.emit(ctx, events.New(events.AssetUpdated, "assets", asset.ID, actor.UserID, asset))
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionAssetUpdate, "asset", asset.ID, req))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return asset, nil
}

// Assign hands an available asset to a user.
func (s *AssetService) Assign(ctx context.Context, actor *models.Actor, assetID string, req dto.AssignAssetRequest) (*models.Asset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	return s.transition(ctx, actor, assetID, models.ActionAssign, req.UserID, req.Notes)
}

// Return takes an assigned asset back into the pool.
func (s *AssetService) Return(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error) {
	return s.transition(ctx, actor, assetID, models.ActionReturn, "", notes)
}

// Transfer moves an assigned asset directly to another user.
func (s *AssetService) Transfer(ctx context.Context, actor *models.Actor, assetID string, req dto.AssignAssetRequest) (*models.Asset, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid transfer payload")
	}
	return s.transition(ctx, actor, assetID, models.ActionTransfer, req.UserID, req.Notes)
}

// SendToRepair moves an available asset into repair.
func (s *AssetService) SendToRepair(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error) {
	return s.transition(ctx, actor, assetID, models.ActionRepair, "", notes)
}

// RestoreFromRepair makes a repaired asset available again.
func (s *AssetService) RestoreFromRepair(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error) {
	return s.transition(ctx, actor, assetID, models.ActionRestore, "", notes)
}

// Retire permanently removes an asset from circulation, clearing any assignment.
func (s *AssetService) Retire(ctx context.Context, actor *models.Actor, assetID, notes string) (*models.Asset, error) {
	return s.transition(ctx, actor, assetID, models.ActionRetire, "", notes)
}

func (s *AssetService) transition(ctx context.Context, actor *models.Actor, assetID string, action models.LifecycleAction, target, notes string) (*models.Asset, error) {
	if err := policy.Authorize(actor, policy.KindAsset, nil, policy.OpTransition); err != nil {
		return nil, err
	}
	oc := opContext{op: string(action) + " asset", actor: actor, entity: "asset", entityID: assetID}

	asset, err := s.repo.GetByID(ctx, assetID)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}

	next, ok := action.Transition(asset.Status)
	if !ok {
		s.opts.metrics.RecordTransition("asset", string(action), false)
		return nil, appErrors.InvalidTransition("asset", string(asset.Status), string(action))
	}

	if action == models.ActionAssign || action == models.ActionTransfer {
		if action == models.ActionTransfer && asset.AssignedTo != nil && *asset.AssignedTo == target {
			return nil, appErrors.Clone(appErrors.ErrValidation, "asset is already assigned to this user")
		}
		if err := s.ensureUser(ctx, actor, target); err != nil {
			return nil, err
		}
	}

	now := s.opts.now()
	from := asset.Status
	t := repository.AssetTransition{
		AssetID: asset.ID,
		From:    from,
		To:      next,
		At:      now,
		Entry: models.AssetAssignment{
			FromStatus: &from,
			ToStatus:   &next,
			Notes:      strPtr(notes),
			AssignedBy: actor.UserID,
		},
	}

	var eventType events.Type
	switch action {
	case models.ActionAssign:
		t.AssignedTo, t.AssignedDate = &target, &now
		t.Entry.UserID = &target
		t.Entry.Action = models.AssignmentAssigned
		eventType = events.AssetAssigned
	case models.ActionTransfer:
		t.ExpectedAssignee = asset.AssignedTo
		t.AssignedTo, t.AssignedDate = &target, &now
		t.Entry.UserID = &target
		t.Entry.Action = models.AssignmentTransferred
		eventType = events.AssetTransferred
	case models.ActionReturn:
		t.Entry.UserID = asset.AssignedTo
		t.Entry.Action = models.AssignmentReturned
		eventType = events.AssetReturned
	default:
		t.Entry.UserID = asset.AssignedTo
		t.Entry.Action = models.AssignmentStatusChanged
		eventType = events.AssetStatusChanged
	}

	if err := s.repo.ApplyTransition(ctx, t); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			s.opts.metrics.RecordTransition("asset", string(action), false)
			return nil, s.staleTransition(ctx, oc, action)
		}
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.opts.metrics.RecordTransition("asset", string(action), true)

	asset.Status = t.To
	asset.AssignedTo = t.AssignedTo
	asset.AssignedDate = t.AssignedDate
	asset.UpdatedAt = now

	s.notify.emit(ctx, events.New(eventType, "assets", asset.ID, actor.UserID, map[string]interface{}{
		"asset":  asset,
		"action": action,
		"from":   from,
		"to":     next,
	}))
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionAssetTransition, "asset", asset.ID, t.Entry))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return asset, nil
}

// staleTransition reports a lost compare-and-swap with the state the asset is
// actually in now.
func (s *AssetService) staleTransition(ctx context.Context, oc opContext, action models.LifecycleAction) error {
	current, err := s.repo.GetByID(ctx, oc.entityID)
	if err != nil {
		return storeError(ctx, s.logger, oc, err)
	}
	return appErrors.InvalidTransition("asset", string(current.Status), string(action))
}

// Delete soft-deletes an asset that is not assigned. Its ledger is kept.
func (s *AssetService) Delete(ctx context.Context, actor *models.Actor, id string) error {
	if err := policy.Authorize(actor, policy.KindAsset, nil, policy.OpDelete); err != nil {
		return err
	}
	oc := opContext{op: "delete asset", actor: actor, entity: "asset", entityID: id}
	asset, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return storeError(ctx, s.logger, oc, err)
	}
	if asset.Status == models.AssetStatusAssigned {
		return appErrors.InvalidTransition("asset", string(asset.Status), "delete")
	}
	if err := s.repo.SoftDelete(ctx, id, s.opts.now()); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return s.staleTransition(ctx, oc, "delete")
		}
		return storeError(ctx, s.logger, oc, err)
	}
	s.notify.emit(ctx, events.New(events.AssetDeleted, "assets", id, actor.UserID, nil))
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionAssetDelete, "asset", id, nil))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return nil
}

// History returns the ledger of an asset, newest first, to admins and to the
// current assignee.
func (s *AssetService) History(ctx context.Context, actor *models.Actor, id string) ([]models.AssetAssignment, error) {
	asset, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.History(ctx, asset.ID)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "asset history", actor: actor, entity: "asset", entityID: id}, err)
	}
	if rows == nil {
		rows = []models.AssetAssignment{}
	}
	return rows, nil
}

func (s *AssetService) ensureUser(ctx context.Context, actor *models.Actor, userID string) error {
	if s.users == nil {
		return nil
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		err = storeError(ctx, s.logger, opContext{op: "find assignee", actor: actor, entity: "user", entityID: userID}, err)
		if errors.Is(err, appErrors.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrValidation, "target user does not exist")
		}
		return err
	}
	return nil
}

func pagination(page, size, total int) *response.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &response.Pagination{Page: page, PageSize: size, TotalCount: total}
}
