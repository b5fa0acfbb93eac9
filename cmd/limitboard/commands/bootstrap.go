package commands

import (
	"fmt"

	"github.com/hzchen/limitboard/internal/collector"
	"github.com/hzchen/limitboard/internal/provider/eastmoney"
	"github.com/hzchen/limitboard/internal/provider/tencent"
	"github.com/hzchen/limitboard/internal/stats"
	"github.com/hzchen/limitboard/internal/tradingday"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/database"
	"github.com/hzchen/limitboard/pkg/httputil"
	"github.com/hzchen/limitboard/pkg/logger"
	"github.com/hzchen/limitboard/pkg/redis"
)

// app holds the wired dependency graph shared by the commands
// ⭐ SSOT: 依赖装配只在这里
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	rdb       *redis.Client
	cache     *redis.Cache
	eastmoney *eastmoney.Client
	tencent   *tencent.Client
	repo      *stats.Repository
	resolver  *tradingday.Resolver
	service   *stats.Service
	collector *collector.Collector
}

// newApp assembles the full pipeline: providers, resolver, repository,
// read service and collector
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(rdb, "limitboard")

	// Primary provider retries per config; the fallback is tried once,
	// so its client carries no retry of its own
	em := eastmoney.NewClient(httputil.New(cfg, log).WithRateLimit(10, 5), cfg, log)
	tc := tencent.NewClient(httputil.New(cfg, log).WithoutRetry(), cfg, nil, log)

	repo := stats.NewRepository(db.Pool)
	resolver := tradingday.New(tc, repo, cfg, log)
	service := stats.NewService(repo, resolver, tc, cache, log)
	col := collector.New(em, tc, em, repo, resolver, cache, cfg, log)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		rdb:       rdb,
		cache:     cache,
		eastmoney: em,
		tencent:   tc,
		repo:      repo,
		resolver:  resolver,
		service:   service,
		collector: col,
	}, nil
}

// Close releases the app's connections
func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
