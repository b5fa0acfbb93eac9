package jobs

import (
	"context"

	"github.com/hzchen/limitboard/internal/collector"
	"github.com/hzchen/limitboard/pkg/logger"
)

// DailyCollectionJob runs the market collection shortly after the
// close. Weekdays only; holidays are filtered by the resolver inside
// the collector and count as successful skipped runs.
type DailyCollectionJob struct {
	collector *collector.Collector
	logger    *logger.Logger
}

// NewDailyCollectionJob creates the daily collection job
func NewDailyCollectionJob(col *collector.Collector, log *logger.Logger) *DailyCollectionJob {
	return &DailyCollectionJob{
		collector: col,
		logger:    log.WithField("job", "daily_collection"),
	}
}

// Name implements scheduler.Job
func (j *DailyCollectionJob) Name() string {
	return "daily_collection"
}

// Schedule runs at 15:10 Beijing time on weekdays, after the 15:00
// close
func (j *DailyCollectionJob) Schedule() string {
	return "10 15 * * 1-5"
}

// Run implements scheduler.Job
func (j *DailyCollectionJob) Run(ctx context.Context) error {
	result, err := j.collector.Run(ctx)
	if err != nil {
		return err
	}

	if result.Skipped {
		j.logger.Info("Collection skipped, non-trading day")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"limit_up":   result.LimitUpCount,
		"limit_down": result.LimitDownCount,
		"topics":     result.TopicsSaved,
		"source":     result.Source,
	}).Info("Scheduled collection completed")

	return nil
}
