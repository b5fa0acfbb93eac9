package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/internal/stats"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/logger"
	"github.com/hzchen/limitboard/pkg/redis"
)

// ErrCollectionFailed means every provider exhausted its attempts.
// A failed run surfaces this rather than writing zeroed stats that
// would read as a real market state.
var ErrCollectionFailed = errors.New("collection failed: all quote providers exhausted")

// CollectionResult summarizes one collection run
type CollectionResult struct {
	Date           time.Time     `json:"date"`
	Skipped        bool          `json:"skipped"`
	Source         string        `json:"source,omitempty"`
	LimitUpCount   int           `json:"limit_up_count"`
	LimitDownCount int           `json:"limit_down_count"`
	TotalVolume    int64         `json:"total_volume"`
	TotalAmount    float64       `json:"total_amount"`
	MaxLimitStreak int           `json:"max_limit_streak"`
	TopicsSaved    int           `json:"topics_saved"`
	Duration       time.Duration `json:"duration"`
}

// statsWriter is the slice of the stats repository the collector writes
// through
type statsWriter interface {
	UpsertDailyStats(ctx context.Context, s *stats.DailyMarketStats) error
	ReplaceTopicRankings(ctx context.Context, date time.Time, topics []stats.TopicEntry) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// dayGate decides whether a run should happen at all
type dayGate interface {
	Today() time.Time
	IsTradingToday(ctx context.Context) (bool, error)
}

// readCache is the slice of the cache the collector invalidates after
// a fresh run
type readCache interface {
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, keyPrefix string) error
}

// Collector drives one collection run: resolver gate, quote fetch with
// provider fallback, classification, persistence, retention.
// ⭐ SSOT: 采集流程的编排只在这里
type Collector struct {
	primary  provider.QuoteSource
	fallback provider.QuoteSource
	topics   provider.TopicSource
	repo     statsWriter
	resolver dayGate
	cache    readCache
	logger   *logger.Logger

	runDeadline   time.Duration
	topicLimit    int
	retentionDays int
}

// New creates a collector. fallback and topics may be nil; cache may be
// nil when Redis is disabled.
func New(
	primary, fallback provider.QuoteSource,
	topics provider.TopicSource,
	repo statsWriter,
	resolver dayGate,
	cache readCache,
	cfg *config.Config,
	log *logger.Logger,
) *Collector {
	return &Collector{
		primary:       primary,
		fallback:      fallback,
		topics:        topics,
		repo:          repo,
		resolver:      resolver,
		cache:         cache,
		logger:        log.WithField("component", "collector"),
		runDeadline:   cfg.Collector.RunDeadline,
		topicLimit:    cfg.Collector.TopicLimit,
		retentionDays: cfg.Collector.RetentionDays,
	}
}

// Run executes one collection run. Non-trading days are reported as
// skipped, not failed. Daily stats and topic rankings are independent
// facts: a topic failure after stats are saved is a partial success.
func (c *Collector) Run(ctx context.Context) (*CollectionResult, error) {
	start := time.Now()
	date := c.resolver.Today()

	trading, err := c.resolver.IsTradingToday(ctx)
	if err != nil {
		return nil, err
	}
	if !trading {
		c.logger.WithField("date", date.Format("2006-01-02")).Info("Non-trading day, skipping collection")
		return &CollectionResult{Date: date, Skipped: true}, nil
	}

	// 整个采集过程不允许超过 RunDeadline
	runCtx, cancel := context.WithTimeout(ctx, c.runDeadline)
	defer cancel()

	// Quote universe and topic rankings are independent reads
	type topicFetch struct {
		topics []provider.Topic
		err    error
	}
	topicCh := make(chan topicFetch, 1)
	if c.topics != nil {
		go func() {
			topics, err := c.topics.FetchTopics(runCtx, c.topicLimit)
			topicCh <- topicFetch{topics: topics, err: err}
		}()
	} else {
		topicCh <- topicFetch{}
	}

	quotes, source, err := c.fetchQuotes(runCtx)
	if err != nil {
		return nil, err
	}

	classification := quote.Classify(quotes)
	daily := &stats.DailyMarketStats{
		Date:           date,
		LimitUpCount:   len(classification.LimitUp),
		LimitDownCount: len(classification.LimitDown),
		TotalVolume:    classification.TotalVolume,
		TotalAmount:    classification.TotalAmount,
		MaxLimitStreak: classification.MaxLimitStreak,
	}

	// A store failure here is fatal: silent partial success would look
	// like a collected day
	if err := c.repo.UpsertDailyStats(runCtx, daily); err != nil {
		return nil, fmt.Errorf("save daily stats: %w", err)
	}

	result := &CollectionResult{
		Date:           date,
		Source:         source,
		LimitUpCount:   daily.LimitUpCount,
		LimitDownCount: daily.LimitDownCount,
		TotalVolume:    daily.TotalVolume,
		TotalAmount:    daily.TotalAmount,
		MaxLimitStreak: daily.MaxLimitStreak,
	}

	tf := <-topicCh
	switch {
	case tf.err != nil:
		c.logger.WithError(tf.err).Warn("Topic fetch failed, keeping daily stats only")
	case len(tf.topics) > 0:
		merged := stats.MergeTierVariants(toEntries(tf.topics))
		if err := c.repo.ReplaceTopicRankings(runCtx, date, merged); err != nil {
			c.logger.WithError(err).Warn("Topic ranking save failed, keeping daily stats only")
		} else {
			result.TopicsSaved = len(merged)
		}
	}

	c.invalidateReadCache(runCtx)
	c.purgeAsync()

	result.Duration = time.Since(start)
	c.logger.WithFields(map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"source":     source,
		"limit_up":   result.LimitUpCount,
		"limit_down": result.LimitDownCount,
		"topics":     result.TopicsSaved,
		"duration":   result.Duration,
	}).Info("Collection run completed")

	return result, nil
}

// fetchQuotes tries the primary provider, then the fallback once. The
// providers carry their own retry policy; fallback is single-tier, not
// a nested retry tree.
func (c *Collector) fetchQuotes(ctx context.Context) ([]quote.Quote, string, error) {
	quotes, primaryErr := c.primary.FetchQuotes(ctx)
	if primaryErr == nil {
		return quotes, c.primary.Name(), nil
	}

	if c.fallback == nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrCollectionFailed, c.primary.Name(), primaryErr)
	}

	c.logger.WithError(primaryErr).WithFields(map[string]interface{}{
		"primary":  c.primary.Name(),
		"fallback": c.fallback.Name(),
	}).Warn("Primary quote source failed, trying fallback")

	quotes, fallbackErr := c.fallback.FetchQuotes(ctx)
	if fallbackErr != nil {
		return nil, "", fmt.Errorf("%w: %s: %v; %s: %v",
			ErrCollectionFailed, c.primary.Name(), primaryErr, c.fallback.Name(), fallbackErr)
	}

	return quotes, c.fallback.Name(), nil
}

// invalidateReadCache drops cached read views that a fresh run makes
// stale
func (c *Collector) invalidateReadCache(ctx context.Context) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Delete(ctx, redis.TodayStatsKey()); err != nil {
		c.logger.WithError(err).Warn("Cache invalidation failed")
	}
	// 周榜缓存的 key 带 limit 参数，按前缀清理
	if err := c.cache.DeleteByPrefix(ctx, redis.WeeklyTopicsPrefix()); err != nil {
		c.logger.WithError(err).Warn("Cache invalidation failed")
	}
}

// purgeAsync runs the retention purge without blocking the run.
// Advisory: a purge failure is logged and swallowed.
func (c *Collector) purgeAsync() {
	cutoff := c.resolver.Today().AddDate(0, 0, -c.retentionDays)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		purged, err := c.repo.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			c.logger.WithError(err).Warn("Retention purge failed")
			return
		}
		if purged > 0 {
			c.logger.WithFields(map[string]interface{}{
				"purged": purged,
				"cutoff": cutoff.Format("2006-01-02"),
			}).Info("Retention purge completed")
		}
	}()
}

func toEntries(topics []provider.Topic) []stats.TopicEntry {
	out := make([]stats.TopicEntry, 0, len(topics))
	for _, t := range topics {
		out = append(out, stats.TopicEntry{
			Code:          t.Code,
			Name:          t.Name,
			ChangePercent: t.ChangePercent,
			ClosePrice:    t.ClosePrice,
		})
	}
	return out
}
