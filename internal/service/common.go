package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/models"
	appErrors "github.com/noah-isme/asset-desk-api/pkg/errors"
	"github.com/noah-isme/asset-desk-api/pkg/events"
	"github.com/noah-isme/asset-desk-api/pkg/logger"
)

// opContext identifies a service call in logs.
type opContext struct {
	op       string
	actor    *models.Actor
	entity   string
	entityID string
}

func (o opContext) fields(err error) []zap.Field {
	actorID := ""
	if o.actor != nil {
		actorID = o.actor.UserID
	}
	return []zap.Field{
		zap.String("operation", o.op),
		zap.String("actor_id", actorID),
		zap.String("entity", o.entity),
		zap.String("entity_id", o.entityID),
		zap.Error(err),
	}
}

// storeError turns a repository failure into a client error. Missing rows
// become NotFound; anything else is logged and hidden behind INTERNAL_ERROR.
func storeError(ctx context.Context, log *zap.Logger, o opContext, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s not found", o.entity))
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "foreign_key_violation":
			return appErrors.Clone(appErrors.ErrValidation, "referenced record does not exist")
		case "unique_violation":
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("%s already exists", o.entity))
		}
	}
	logger.FromContext(ctx, log).Error("store operation failed", o.fields(err)...)
	return appErrors.Internal(err, fmt.Sprintf("failed to %s", o.op))
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// notifier publishes domain events after a mutation has committed. Delivery
// failures are logged and counted, never returned.
type notifier struct {
	publisher events.Publisher
	metrics   *MetricsService
	logger    *zap.Logger
}

func newNotifier(publisher events.Publisher, metrics *MetricsService, log *zap.Logger) notifier {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return notifier{publisher: publisher, metrics: metrics, logger: log}
}

func (n notifier) emit(ctx context.Context, evt events.Event) {
	err := n.publisher.Publish(ctx, evt)
	n.metrics.RecordEvent(string(evt.Type), err)
	if err != nil {
		logger.FromContext(ctx, n.logger).Warn("publish event failed",
			zap.String("type", string(evt.Type)),
			zap.String("entity_id", evt.EntityID),
			zap.Error(err),
		)
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func actorID(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}

// ServiceOption customises optional collaborators shared by the domain services.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	publisher events.Publisher
	metrics   *MetricsService
	cache     *CacheService
	audit     auditLogger
	now       func() time.Time
	window    int
}

func buildOptions(opts []ServiceOption) serviceOptions {
	o := serviceOptions{now: func() time.Time { return time.Now().UTC() }, window: DefaultAlertWindowDays}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithPublisher sets the domain event sink.
func WithPublisher(p events.Publisher) ServiceOption {
	return func(o *serviceOptions) { o.publisher = p }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *MetricsService) ServiceOption {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithCache lets mutations invalidate cached dashboard aggregates.
func WithCache(c *CacheService) ServiceOption {
	return func(o *serviceOptions) { o.cache = c }
}

// WithAuditLogger records admin mutations in the audit trail.
func WithAuditLogger(a auditLogger) ServiceOption {
	return func(o *serviceOptions) { o.audit = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(o *serviceOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithAlertWindow sets the default look-ahead, in days, for expiry and
// maintenance alerts.
func WithAlertWindow(days int) ServiceOption {
	return func(o *serviceOptions) { o.window = windowOrDefault(days) }
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

func (o serviceOptions) emitAudit(ctx context.Context, log *zap.Logger, entry *models.AuditLog) {
	if o.audit == nil {
		return
	}
	if err := o.audit.CreateAuditLog(ctx, entry); err != nil {
		logger.FromContext(ctx, log).Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}

func auditEntry(actor *models.Actor, action, resource, resourceID string, newValues interface{}) *models.AuditLog {
	entry := &models.AuditLog{
		UserID:     strPtr(actorID(actor)),
		Action:     action,
		Resource:   resource,
		ResourceID: strPtr(resourceID),
	}
	if newValues != nil {
		if raw, err := json.Marshal(newValues); err == nil {
			entry.NewValues = raw
		}
	}
	return entry
}
