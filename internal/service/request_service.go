package service

import (
	"context"
	"errors"

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

type assetRequestRepository interface {
	Create(ctx context.Context, req *models.AssetRequest) error
	GetByID(ctx context.Context, id string) (*models.AssetRequest, error)
	List(ctx context.Context, filter models.AssetRequestFilter) ([]models.AssetRequest, int, error)
	ChangeStatus(ctx context.Context, change repository.RequestStatusChange) error
}

// RequestService drives the asset request workflow:
// pending -> approved|denied|cancelled, approved -> fulfilled.
type RequestService struct {
	repo      assetRequestRepository
	validator *validator.Validate
	logger    *zap.Logger
	opts      serviceOptions
	notify    notifier
}

// NewRequestService constructs a RequestService.
func NewRequestService(repo assetRequestRepository, validate *validator.Validate, logger *zap.Logger, opts ...ServiceOption) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	o := buildOptions(opts)
	return &RequestService{repo: repo, validator: validate, logger: logger, opts: o, notify: newNotifier(o.publisher, o.metrics, logger)}
}

// Submit files a pending request owned by the actor.
func (s *RequestService) Submit(ctx context.Context, actor *models.Actor, req dto.SubmitAssetRequest) (*models.AssetRequest, error) {
	if err := policy.Authorize(actor, policy.KindRequest, nil, policy.OpCreate); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid asset request payload")
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if req.CategoryID != nil && *req.CategoryID == "" {
		req.CategoryID = nil
	}

	item := &models.AssetRequest{
		UserID:        actor.UserID,
		RequestType:   req.RequestType,
		CategoryID:    req.CategoryID,
		Title:         req.Title,
		Description:   req.Description,
		Justification: req.Justification,
		Priority:      priority,
		Status:        models.RequestPending,
		CreatedAt:     s.opts.now(),
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "submit asset request", actor: actor, entity: "asset request"}, err)
	}
	s.notify.emit(ctx, events.New(events.RequestSubmitted, "asset_requests", item.ID, actor.UserID, item))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return item, nil
}

// Get returns a request owned by the actor, or any request to admins.
func (s *RequestService) Get(ctx context.Context, actor *models.Actor, id string) (*models.AssetRequest, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "get asset request", actor: actor, entity: "asset request", entityID: id}, err)
	}
	if err := policy.AuthorizeView(actor, policy.KindRequest, item); err != nil {
		return nil, err
	}
	return item, nil
}

// List returns requests, scoped to the actor's own for non-admins.
func (s *RequestService) List(ctx context.Context, actor *models.Actor, filter models.AssetRequestFilter) ([]models.AssetRequest, *response.Pagination, error) {
	if actor == nil || actor.UserID == "" {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter = policy.ScopeRequests(actor, filter)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(ctx, s.logger, opContext{op: "list asset requests", actor: actor, entity: "asset request"}, err)
	}
	if items == nil {
		items = []models.AssetRequest{}
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// Decide approves or denies a pending request and records the reviewer.
func (s *RequestService) Decide(ctx context.Context, actor *models.Actor, id string, req dto.DecideAssetRequest) (*models.AssetRequest, error) {
	if err := policy.Authorize(actor, policy.KindRequest, nil, policy.OpDecide); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid decision payload")
	}
	now := s.opts.now()
	reviewer := actor.UserID
	change := repository.RequestStatusChange{
		ID:         id,
		To:         req.Outcome,
		ReviewedBy: &reviewer,
		ReviewedAt: &now,
		AdminNotes: strPtr(req.Notes),
	}
	return s.apply(ctx, actor, change, "decide", events.RequestDecided)
}

// Fulfill marks an approved request as delivered.
func (s *RequestService) Fulfill(ctx context.Context, actor *models.Actor, id string) (*models.AssetRequest, error) {
	if err := policy.Authorize(actor, policy.KindRequest, nil, policy.OpTransition); err != nil {
		return nil, err
	}
	change := repository.RequestStatusChange{ID: id, To: models.RequestFulfilled}
	return s.apply(ctx, actor, change, "fulfill", events.RequestFulfilled)
}

// Cancel withdraws a pending request. Only its owner or an admin may cancel.
func (s *RequestService) Cancel(ctx context.Context, actor *models.Actor, id string) (*models.AssetRequest, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "cancel asset request", actor: actor, entity: "asset request", entityID: id}, err)
	}
	if err := policy.Authorize(actor, policy.KindRequest, item, policy.OpCancel); err != nil {
		return nil, err
	}
	change := repository.RequestStatusChange{ID: id, To: models.RequestCancelled}
	return s.apply(ctx, actor, change, "cancel", events.RequestCancelled)
}

func (s *RequestService) apply(ctx context.Context, actor *models.Actor, change repository.RequestStatusChange, action string, eventType events.Type) (*models.AssetRequest, error) {
	oc := opContext{op: action + " asset request", actor: actor, entity: "asset request", entityID: change.ID}
	from, ok := models.RequestSourceFor(change.To)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported request status "+string(change.To))
	}
	change.From = from
	if err := s.repo.ChangeStatus(ctx, change); err != nil {
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, storeError(ctx, s.logger, oc, err)
		}
		s.opts.metrics.RecordTransition("asset_request", action, false)
		current, getErr := s.repo.GetByID(ctx, change.ID)
		if getErr != nil {
			return nil, storeError(ctx, s.logger, oc, getErr)
		}
		return nil, appErrors.InvalidTransition("asset request", string(current.Status), action)
	}
	s.opts.metrics.RecordTransition("asset_request", action, true)

	item, err := s.repo.GetByID(ctx, change.ID)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.notify.emit(ctx, events.New(eventType, "asset_requests", item.ID, actor.UserID, item))
	if change.ReviewedBy != nil || action == "fulfill" {
		s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionRequestReview, "asset_request", item.ID, change))
	}
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return item, nil
}
