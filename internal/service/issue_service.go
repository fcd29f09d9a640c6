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

type issueReportRepository interface {
	CreateForAssignee(ctx context.Context, issue *models.IssueReport) error
	GetByID(ctx context.Context, id string) (*models.IssueReport, error)
	List(ctx context.Context, filter models.IssueReportFilter) ([]models.IssueReport, int, error)
	ChangeStatus(ctx context.Context, change repository.IssueStatusChange) error
}

type assetLookup interface {
	GetByID(ctx context.Context, id string) (*models.Asset, error)
}

// IssueService handles issue reports raised by asset holders.
type IssueService struct {
	repo      issueReportRepository
	assets    assetLookup
	validator *validator.Validate
	logger    *zap.Logger
	opts      serviceOptions
	notify    notifier
}

// NewIssueService constructs an IssueService.
func NewIssueService(repo issueReportRepository, assets assetLookup, validate *validator.Validate, logger *zap.Logger, opts ...ServiceOption) *IssueService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	o := buildOptions(opts)
	return &IssueService{repo: repo, assets: assets, validator: validate, logger: logger, opts: o, notify: newNotifier(o.publisher, o.metrics, logger)}
}

// Report opens an issue against an asset currently assigned to the actor.
// The insert itself is conditional on the assignment, so a report racing a
// return or transfer is rejected without creating a row.
func (s *IssueService) Report(ctx context.Context, actor *models.Actor, req dto.ReportIssueRequest) (*models.IssueReport, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid issue payload")
	}

	oc := opContext{op: "report issue", actor: actor, entity: "asset", entityID: req.AssetID}
	asset, err := s.assets.GetByID(ctx, req.AssetID)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	if err := policy.Authorize(actor, policy.KindIssue, asset, policy.OpCreate); err != nil {
		return nil, err
	}

	severity := req.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	issue := &models.IssueReport{
		UserID:      actor.UserID,
		AssetID:     asset.ID,
		IssueType:   req.IssueType,
		Title:       req.Title,
		Description: req.Description,
		Severity:    severity,
		Status:      models.IssueOpen,
		CreatedAt:   s.opts.now(),
	}
	if err := s.repo.CreateForAssignee(ctx, issue); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "issues can only be reported for assets assigned to you")
		}
		oc.entity = "issue report"
		return nil, storeError(ctx, s.logger, oc, err)
	}

	s.notify.emit(ctx, events.New(events.IssueReported, "issue_reports", issue.ID, actor.UserID, issue))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return issue, nil
}

// Get returns an issue visible to the actor.
func (s *IssueService) Get(ctx context.Context, actor *models.Actor, id string) (*models.IssueReport, error) {
	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "get issue report", actor: actor, entity: "issue report", entityID: id}, err)
	}
	if err := policy.AuthorizeView(actor, policy.KindIssue, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

// List returns issues, scoped to the actor's own for non-admins.
func (s *IssueService) List(ctx context.Context, actor *models.Actor, filter models.IssueReportFilter) ([]models.IssueReport, *response.Pagination, error) {
	if actor == nil || actor.UserID == "" {
		return nil, nil, appErrors.ErrUnauthorized
	}
	filter = policy.ScopeIssues(actor, filter)
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(ctx, s.logger, opContext{op: "list issue reports", actor: actor, entity: "issue report"}, err)
	}
	if items == nil {
		items = []models.IssueReport{}
	}
	return items, pagination(filter.Page, filter.PageSize, total), nil
}

// StartWork moves an open issue to in_progress.
func (s *IssueService) StartWork(ctx context.Context, actor *models.Actor, id string) (*models.IssueReport, error) {
	return s.transition(ctx, actor, id, models.IssueInProgress, "start", nil)
}

// Resolve records a fix for an open or in-progress issue.
func (s *IssueService) Resolve(ctx context.Context, actor *models.Actor, id string, req dto.IssueNotesRequest) (*models.IssueReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid resolution notes")
	}
	return s.transition(ctx, actor, id, models.IssueResolved, "resolve", strPtr(req.Notes))
}

// Close ends an issue without a fix.
func (s *IssueService) Close(ctx context.Context, actor *models.Actor, id string, req dto.IssueNotesRequest) (*models.IssueReport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid resolution notes")
	}
	return s.transition(ctx, actor, id, models.IssueClosed, "close", strPtr(req.Notes))
}

// Cancel withdraws an open or in-progress issue.
func (s *IssueService) Cancel(ctx context.Context, actor *models.Actor, id string) (*models.IssueReport, error) {
	return s.transition(ctx, actor, id, models.IssueCancelled, "cancel", nil)
}

func (s *IssueService) transition(ctx context.Context, actor *models.Actor, id string, to models.IssueStatus, action string, notes *string) (*models.IssueReport, error) {
	if err := policy.Authorize(actor, policy.KindIssue, nil, policy.OpTransition); err != nil {
		return nil, err
	}
	oc := opContext{op: action + " issue report", actor: actor, entity: "issue report", entityID: id}

	change := repository.IssueStatusChange{ID: id, From: models.SourcesFor(to), To: to}
	if to == models.IssueResolved || to == models.IssueClosed {
		now := s.opts.now()
		resolver := actor.UserID
		change.ResolvedBy = &resolver
		change.ResolvedAt = &now
		change.ResolutionNotes = notes
	}

	if err := s.repo.ChangeStatus(ctx, change); err != nil {
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, storeError(ctx, s.logger, oc, err)
		}
		s.opts.metrics.RecordTransition("issue_report", action, false)
		current, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			return nil, storeError(ctx, s.logger, oc, getErr)
		}
		return nil, appErrors.InvalidTransition("issue report", string(current.Status), action)
	}
	s.opts.metrics.RecordTransition("issue_report", action, true)

	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	s.notify.emit(ctx, events.New(events.IssueStatusChanged, "issue_reports", id, actor.UserID, issue))
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionIssueTransition, "issue_report", id, change))
	s.opts.cache.Invalidate(ctx, "dashboard", "*")
	return issue, nil
}
