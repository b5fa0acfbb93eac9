package jobs

import (
	"context"
	"time"

	"github.com/hzchen/limitboard/internal/stats"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/logger"
)

// RetentionJob purges stats and topic rows past the retention window.
// The collector also purges opportunistically after each run; this job
// covers stretches with no successful collection.
type RetentionJob struct {
	repo          *stats.Repository
	logger        *logger.Logger
	retentionDays int
}

// NewRetentionJob creates the retention purge job
func NewRetentionJob(repo *stats.Repository, cfg *config.Config, log *logger.Logger) *RetentionJob {
	return &RetentionJob{
		repo:          repo,
		logger:        log.WithField("job", "retention"),
		retentionDays: cfg.Collector.RetentionDays,
	}
}

// Name implements scheduler.Job
func (j *RetentionJob) Name() string {
	return "retention"
}

// Schedule runs nightly at 03:00 Beijing time, well outside sessions
func (j *RetentionJob) Schedule() string {
	return "0 3 * * *"
}

// Run implements scheduler.Job
func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -j.retentionDays)

	purged, err := j.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"purged": purged,
		"cutoff": cutoff.Format("2006-01-02"),
	}).Info("Retention purge completed")

	return nil
}
