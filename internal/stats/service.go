package stats

import (
	"context"
	"time"

	"github.com/hzchen/limitboard/internal/provider"
	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/pkg/logger"
	"github.com/hzchen/limitboard/pkg/redis"
)

// Benchmark indices served by the indices read path
var benchmarkIndices = []string{"sh000001", "sz399001", "sz399006", "sh000300"}

// statsReader is the slice of Repository the read service needs
type statsReader interface {
	GetStatsByDate(ctx context.Context, date time.Time) (*DailyMarketStats, error)
	GetRecentStats(ctx context.Context, days int) ([]DailyMarketStats, error)
	GetTopicRankings(ctx context.Context, date time.Time) ([]TopicRanking, error)
	GetTopicRowsSince(ctx context.Context, cutoff time.Time) ([]TopicRanking, error)
}

// dayResolver locates the trading day a read should be served for
type dayResolver interface {
	Today() time.Time
	IsTradingToday(ctx context.Context) (bool, error)
	LatestTradingDay(ctx context.Context) (time.Time, bool, error)
}

// Service is the read path over collected stats. Collection never goes
// through here; it writes via the Repository directly.
type Service struct {
	repo     statsReader
	resolver dayResolver
	indices  provider.IndexSource
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewService creates a stats read service. cache may be nil when Redis
// is disabled.
func NewService(repo statsReader, resolver dayResolver, indices provider.IndexSource, cache *redis.Cache, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		indices:  indices,
		cache:    cache,
		logger:   log.WithField("component", "stats"),
	}
}

// GetTodayStats resolves the day to serve and returns its snapshot.
// On a non-trading day the latest trading day's row is returned with
// IsFallback set; a trading day not yet collected yields nil Stats.
func (s *Service) GetTodayStats(ctx context.Context) (*TodayStats, error) {
	var cached TodayStats
	if s.cacheGet(ctx, redis.TodayStatsKey(), &cached) {
		return &cached, nil
	}

	date, fallback, err := s.resolver.LatestTradingDay(ctx)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.GetStatsByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	out := &TodayStats{Date: date, IsFallback: fallback, Stats: row}
	s.cacheSet(ctx, redis.TodayStatsKey(), out, redis.TTLMedium)
	return out, nil
}

// GetHistory returns the trailing daily rows, newest first
func (s *Service) GetHistory(ctx context.Context, days int) ([]DailyMarketStats, error) {
	if days < 1 {
		days = 30
	}
	if days > 90 {
		days = 90
	}
	return s.repo.GetRecentStats(ctx, days)
}

// GetTopics returns the ranking snapshot for a date; the zero date
// means the latest trading day
func (s *Service) GetTopics(ctx context.Context, date time.Time) ([]TopicRanking, error) {
	if date.IsZero() {
		resolved, _, err := s.resolver.LatestTradingDay(ctx)
		if err != nil {
			return nil, err
		}
		date = resolved
	}
	return s.repo.GetTopicRankings(ctx, date)
}

// GetWeeklyTopics returns the trailing-7-day cumulative leaderboard
func (s *Service) GetWeeklyTopics(ctx context.Context, limit int) ([]WeeklyTopic, error) {
	if limit < 1 {
		limit = 10
	}

	var cached []WeeklyTopic
	if s.cacheGet(ctx, redis.WeeklyTopicsKey(limit), &cached) {
		return cached, nil
	}

	cutoff := s.resolver.Today().AddDate(0, 0, -6)
	rows, err := s.repo.GetTopicRowsSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	topics := WeeklyAggregate(rows, limit)
	s.cacheSet(ctx, redis.WeeklyTopicsKey(limit), topics, redis.TTLLong)
	return topics, nil
}

// GetIndices returns live benchmark index quotes
func (s *Service) GetIndices(ctx context.Context) ([]quote.Quote, error) {
	var cached []quote.Quote
	if s.cacheGet(ctx, redis.IndicesKey(), &cached) {
		return cached, nil
	}

	quotes, err := s.indices.FetchIndices(ctx, benchmarkIndices)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, redis.IndicesKey(), quotes, redis.TTLShort)
	return quotes, nil
}

// IsTradingToday exposes the resolver to read handlers
func (s *Service) IsTradingToday(ctx context.Context) (bool, error) {
	return s.resolver.IsTradingToday(ctx)
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache read failed")
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
