package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/asset-desk-api/internal/models"
)

type digestSource interface {
	Digest(ctx context.Context) (*models.AlertDigest, error)
}

// AlertDigestJob periodically publishes the expiring warranty, insurance and
// maintenance lists.
type AlertDigestJob struct {
	source  digestSource
	logger  *zap.Logger
	timeout time.Duration
	cron    *cron.Cron
}

// NewAlertDigestJob validates the standard five-field schedule. An empty
// schedule yields a nil job.
func NewAlertDigestJob(source digestSource, schedule string, logger *zap.Logger) (*AlertDigestJob, error) {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	job := &AlertDigestJob{
		source:  source,
		logger:  logger.Named("alerts_digest"),
		timeout: time.Minute,
		cron:    cron.New(cron.WithLocation(time.UTC)),
	}
	if _, err := job.cron.AddFunc(schedule, job.run); err != nil {
		return nil, fmt.Errorf("invalid alerts digest schedule %q: %w", schedule, err)
	}
	return job, nil
}

// Start begins the schedule in the background.
func (j *AlertDigestJob) Start() {
	if j == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("alerts digest scheduled", zap.Int("entries", len(j.cron.Entries())))
}

// Stop halts the schedule and waits for a running digest until ctx expires.
func (j *AlertDigestJob) Stop(ctx context.Context) {
	if j == nil {
		return
	}
	done := j.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		j.logger.Warn("alerts digest still running at shutdown")
	}
}

// RunOnce computes and publishes a digest immediately.
func (j *AlertDigestJob) RunOnce(ctx context.Context) (*models.AlertDigest, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	return j.source.Digest(ctx)
}

func (j *AlertDigestJob) run() {
	digest, err := j.RunOnce(context.Background())
	if err != nil {
		j.logger.Error("alerts digest failed", zap.Error(err))
		return
	}
	j.logger.Info("alerts digest published",
		zap.Int("warranty", len(digest.WarrantyExpiring)),
		zap.Int("insurance", len(digest.InsuranceExpiring)),
		zap.Int("maintenance", len(digest.UpcomingMaintenance)),
	)
}
