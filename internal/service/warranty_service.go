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
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/logger"
	"github.com/noah-isme/asset-desk-api/pkg/warranty"
)

type warrantyProvider interface {
	Register(ctx context.Context, req warranty.RegistrationRequest) (*warranty.RegistrationResult, error)
	Check(ctx context.Context, assetID string) (*warranty.Status, error)
}

type referenceNames interface {
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	GetDepartment(ctx context.Context, id string) (*models.Department, error)
}

// WarrantyService forwards asset warranties to the external provider.
type WarrantyService struct {
	provider   warrantyProvider
	assets     assetLookup
	references referenceNames
	validator  *validator.Validate
	logger     *zap.Logger
	opts       serviceOptions
}

// NewWarrantyService constructs a WarrantyService. A nil provider disables
// registration; references may be nil, in which case names are omitted.
func NewWarrantyService(provider warrantyProvider, assets assetLookup, references referenceNames, validate *validator.Validate, logger *zap.Logger, opts ...ServiceOption) *WarrantyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &WarrantyService{
		provider:   provider,
		assets:     assets,
		references: references,
		validator:  validate,
		logger:     logger,
		opts:       buildOptions(opts),
	}
}

// Register submits the warranty of an asset. Missing start and expiry dates
// fall back to the purchase date and the stored warranty expiry.
func (s *WarrantyService) Register(ctx context.Context, actor *models.Actor, assetID string, req dto.RegisterWarrantyRequest) (*warranty.RegistrationResult, error) {
	asset, err := s.load(ctx, actor, assetID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid warranty payload")
	}

	start := req.WarrantyStart.Ptr()
	if start == nil {
		purchased := asset.DatePurchased
		start = &purchased
	}
	expiry := req.WarrantyExpiry.Ptr()
	if expiry == nil {
		expiry = asset.WarrantyExpiry
	}
	if expiry != nil && dateOf(*expiry).Before(dateOf(*start)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "warranty_expiry must not be before warranty_start")
	}

	duration := req.WarrantyDurationMonths
	if duration == nil && expiry != nil {
		if months := warranty.DurationMonths(*start, *expiry); months > 0 {
			duration = &months
		}
	}

	notes := req.WarrantyNotes
	if notes == nil {
		notes = asset.WarrantyNotes
	}
	cost := asset.Cost.StringFixed(2)
	payload := warranty.RegistrationRequest{
		AssetID:                asset.ID,
		AssetName:              asset.Name,
		SerialNumber:           asset.SerialNumber,
		Category:               s.categoryName(ctx, asset.CategoryID),
		Department:             s.departmentName(ctx, asset.DepartmentID),
		Location:               asset.Location,
		DatePurchased:          isoDate(&asset.DatePurchased),
		Cost:                   &cost,
		WarrantyProvider:       req.WarrantyProvider,
		WarrantyType:           req.WarrantyType,
		WarrantyStart:          isoDate(start),
		WarrantyExpiry:         isoDate(expiry),
		WarrantyDurationMonths: duration,
		WarrantyTerms:          req.WarrantyTerms,
		WarrantyContact:        req.WarrantyContact,
		WarrantyClaimURL:       req.WarrantyClaimURL,
		WarrantyNotes:          notes,
		RegisteredByEmail:      actor.Email,
	}

	result, err := s.provider.Register(ctx, payload)
	if err != nil {
		return nil, s.upstream(ctx, actor, asset.ID, "register warranty", err)
	}
	s.opts.emitAudit(ctx, s.logger, auditEntry(actor, models.AuditActionWarrantyRegister, "asset", asset.ID, result))
	return result, nil
}

// Status reports the provider's registration state for an asset.
func (s *WarrantyService) Status(ctx context.Context, actor *models.Actor, assetID string) (*warranty.Status, error) {
	asset, err := s.load(ctx, actor, assetID)
	if err != nil {
		return nil, err
	}
	status, err := s.provider.Check(ctx, asset.ID)
	if err != nil {
		return nil, s.upstream(ctx, actor, asset.ID, "check warranty", err)
	}
	return status, nil
}

func (s *WarrantyService) load(ctx context.Context, actor *models.Actor, assetID string) (*models.Asset, error) {
	if err := policy.Authorize(actor, policy.KindAsset, nil, policy.OpUpdate); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "warranty provider is not configured")
	}
	asset, err := s.assets.GetByID(ctx, assetID)
	if err != nil {
		return nil, storeError(ctx, s.logger, opContext{op: "load asset", actor: actor, entity: "asset", entityID: assetID}, err)
	}
	return asset, nil
}

func (s *WarrantyService) upstream(ctx context.Context, actor *models.Actor, assetID, op string, err error) error {
	log := logger.FromContext(ctx, s.logger).With(zap.String("asset_id", assetID), zap.String("actor_id", actorID(actor)))
	var providerErr *warranty.ProviderError
	if errors.As(err, &providerErr) {
		log.Warn("warranty provider rejected request", zap.Int("status", providerErr.StatusCode), zap.String("message", providerErr.Message))
		return appErrors.Upstream(err, providerErr.Message)
	}
	log.Error("warranty provider call failed", zap.String("op", op), zap.Error(err))
	return appErrors.Upstream(err, "warranty provider unavailable")
}

func (s *WarrantyService) categoryName(ctx context.Context, id string) *string {
	if s.references == nil || id == "" {
		return nil
	}
	item, err := s.references.GetCategory(ctx, id)
	if err != nil {
		return nil
	}
	return strPtr(item.Name)
}

func (s *WarrantyService) departmentName(ctx context.Context, id string) *string {
	if s.references == nil || id == "" {
		return nil
	}
	item, err := s.references.GetDepartment(ctx, id)
	if err != nil {
		return nil
	}
	return strPtr(item.Name)
}

func isoDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	return strPtr(t.UTC().Format("2006-01-02"))
}
