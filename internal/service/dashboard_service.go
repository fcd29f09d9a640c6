package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
)

type assetStatusCounter interface {
	CountByStatus(ctx context.Context, assignedTo string) (map[models.AssetStatus]int, error)
}

type requestCounter interface {
	Count(ctx context.Context, filter models.AssetRequestFilter) (int, error)
}

type issueCounter interface {
	Count(ctx context.Context, filter models.IssueReportFilter) (int, error)
}

type alertLister interface {
	WarrantyExpiringAssets(ctx context.Context, actor *models.Actor, windowDays int) ([]models.ExpiringAsset, error)
	InsuranceExpiringAssets(ctx context.Context, actor *models.Actor, windowDays int) ([]models.ExpiringAsset, error)
	UpcomingMaintenance(ctx context.Context, actor *models.Actor, windowDays int) ([]models.Maintenance, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the headline counts shown on the dashboard.
// Admins see organisation-wide numbers, employees only their own rows.
type DashboardService struct {
	assets   assetStatusCounter
	requests requestCounter
	issues   issueCounter
	alerts   alertLister
	logger   *zap.Logger
	cfg      DashboardServiceConfig
	opts     serviceOptions
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(assets assetStatusCounter, requests requestCounter, issues issueCounter, alerts alertLister, logger *zap.Logger, cfg DashboardServiceConfig, opts ...ServiceOption) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &DashboardService{assets: assets, requests: requests, issues: issues, alerts: alerts, logger: logger, cfg: cfg, opts: buildOptions(opts)}
}

// Summary returns the dashboard counts for the actor.
func (s *DashboardService) Summary(ctx context.Context, actor *models.Actor) (*models.DashboardSummary, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	scope := ""
	if !actor.IsAdmin() {
		scope = actor.UserID
	}

	cacheKey := s.opts.cache.Key("dashboard", "summary", cacheScope(scope))
	var cached models.DashboardSummary
	if s.opts.cache.Get(ctx, cacheKey, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	oc := opContext{op: "build dashboard", actor: actor, entity: "dashboard"}
	byStatus, err := s.assets.CountByStatus(ctx, scope)
	if err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	summary := &models.DashboardSummary{AssetsByStatus: map[models.AssetStatus]int{}, GeneratedAt: s.opts.now()}
	for _, status := range []models.AssetStatus{models.AssetStatusAvailable, models.AssetStatusAssigned, models.AssetStatusInRepair, models.AssetStatusRetired} {
		summary.AssetsByStatus[status] = byStatus[status]
		summary.TotalAssets += byStatus[status]
	}

	if summary.PendingRequests, err = s.requests.Count(ctx, models.AssetRequestFilter{UserID: scope, Status: []models.RequestStatus{models.RequestPending}}); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}
	if summary.OpenIssues, err = s.issues.Count(ctx, models.IssueReportFilter{UserID: scope, Status: []models.IssueStatus{models.IssueOpen, models.IssueInProgress}}); err != nil {
		return nil, storeError(ctx, s.logger, oc, err)
	}

	warranty, err := s.alerts.WarrantyExpiringAssets(ctx, actor, 0)
	if err != nil {
		return nil, err
	}
	insurance, err := s.alerts.InsuranceExpiringAssets(ctx, actor, 0)
	if err != nil {
		return nil, err
	}
	summary.WarrantyExpiring = len(warranty)
	summary.InsuranceExpiring = len(insurance)

	if actor.IsAdmin() {
		maintenance, err := s.alerts.UpcomingMaintenance(ctx, actor, 0)
		if err != nil {
			return nil, err
		}
		for _, item := range maintenance {
			if item.Alert == models.MaintenanceAlertOverdue {
				summary.OverdueMaintenance++
			} else {
				summary.UpcomingMaintenance++
			}
		}
	}

	s.opts.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL)
	return summary, nil
}

func cacheScope(scope string) string {
	if scope == "" {
		return "all"
	}
	return "user:" + scope
}
