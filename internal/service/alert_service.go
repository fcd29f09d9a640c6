package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/models"
	"github.com/noah-isme/asset-desk-api/internal/policy"
	"github.com/noah-isme/asset-desk-api/internal/repository"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
)

type expiringAssetSource interface {
	ExpiringBy(ctx context.Context, column repository.ExpiryColumn, until time.Time, assignedTo string) ([]models.Asset, error)
}

type openMaintenanceSource interface {
	Open(ctx context.Context, until time.Time) ([]models.Maintenance, error)
}

// AlertService builds the expiry and maintenance alert lists.
type AlertService struct {
	assets      expiringAssetSource
	maintenance openMaintenanceSource
	logger      *zap.Logger
	opts        serviceOptions
	notify      notifier
}

// NewAlertService constructs an AlertService.
func NewAlertService(assets expiringAssetSource, maintenance openMaintenanceSource, logger *zap.Logger, opts ...ServiceOption) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &AlertService{assets: assets, maintenance: maintenance, logger: logger, opts: o, notify: newNotifier(o.publisher, o.metrics, logger)}
}

// WarrantyExpiringAssets lists assets whose warranty has expired or expires
// within windowDays, earliest first. Employees only see their own assets.
func (s *AlertService) WarrantyExpiringAssets(ctx context.Context, actor *models.Actor, windowDays int) ([]models.ExpiringAsset, error) {
	return s.expiring(ctx, actor, repository.WarrantyExpiry, windowDays)
}

// InsuranceExpiringAssets is WarrantyExpiringAssets for insurance policies.
func (s *AlertService) InsuranceExpiringAssets(ctx context.Context, actor *models.Actor, windowDays int) ([]models.ExpiringAsset, error) {
	return s.expiring(ctx, actor, repository.InsuranceExpiry, windowDays)
}

// UpcomingMaintenance lists unfinished maintenance that is overdue or due
// within windowDays, earliest first.
func (s *AlertService) UpcomingMaintenance(ctx context.Context, actor *models.Actor, windowDays int) ([]models.Maintenance, error) {
	if err := policy.AuthorizeView(actor, policy.KindMaintenance, nil); err != nil {
		return nil, err
	}
	return s.upcoming(ctx, actorID(actor), windowDays)
}

// Digest computes every alert list for the whole organisation and publishes
// it as an alerts.digest event.
func (s *AlertService) Digest(ctx context.Context) (*models.AlertDigest, error) {
	window := s.window(0)
	warranty, err := s.collect(ctx, "", repository.WarrantyExpiry, window)
	if err != nil {
		return nil, err
	}
	insurance, err := s.collect(ctx, "", repository.InsuranceExpiry, window)
	if err != nil {
		return nil, err
	}
	maintenance, err := s.upcoming(ctx, "", window)
	if err != nil {
		return nil, err
	}
	digest := &models.AlertDigest{
		GeneratedAt:         s.opts.now(),
		WindowDays:          window,
		WarrantyExpiring:    warranty,
		InsuranceExpiring:   insurance,
		UpcomingMaintenance: maintenance,
	}
	s.notify.emit(ctx, events.New(events.AlertsDigest, "assets", "", "", digest))
	return digest, nil
}

func (s *AlertService) expiring(ctx context.Context, actor *models.Actor, column repository.ExpiryColumn, windowDays int) ([]models.ExpiringAsset, error) {
	if actor == nil || actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	scope := ""
	if !actor.IsAdmin() {
		scope = actor.UserID
	}
	return s.collect(ctx, scope, column, s.window(windowDays))
}

func (s *AlertService) collect(ctx context.Context, assignedTo string, column repository.ExpiryColumn, window int) ([]models.ExpiringAsset, error) {
	now := s.opts.now()
	until := dateOf(now).AddDate(0, 0, window)
	assets, err := s.assets.ExpiringBy(ctx, column, until, assignedTo)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "list expiring assets", entity: "asset"}, err)
	}

	out := make([]models.ExpiringAsset, 0, len(assets))
	for _, asset := range assets {
		expiry := asset.WarrantyExpiry
		if column == repository.InsuranceExpiry {
			expiry = asset.InsuranceExpiry
		}
		level := ExpiryAlert(expiry, now, window)
		if level == models.ExpiryNone {
			continue
		}
		out = append(out, models.ExpiringAsset{
			Asset:      asset,
			ExpiresOn:  dateOf(*expiry),
			DaysLeft:   DaysUntil(*expiry, now),
			AlertLevel: level,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresOn.Before(out[j].ExpiresOn) })
	return out, nil
}

func (s *AlertService) upcoming(ctx context.Context, actor string, windowDays int) ([]models.Maintenance, error) {
	now := s.opts.now()
	window := s.window(windowDays)
	items, err := s.maintenance.Open(ctx, dateOf(now).AddDate(0, 0, window))
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "list upcoming maintenance", actor: &models.Actor{UserID: actor}, entity: "maintenance"}, err)
	}
	out := make([]models.Maintenance, 0, len(items))
	for _, item := range items {
		item.Status = item.Status.Normalize()
		item.Alert = MaintenanceAlert(item, now, window)
		if item.Alert == models.MaintenanceAlertCompleted || item.Alert == models.MaintenanceAlertScheduled {
			continue
		}
		out = append(out, item)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (s *AlertService) window(requested int) int {
	if requested > 0 {
		return requested
	}
	return s.opts.window
}
