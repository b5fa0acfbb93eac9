package tradingday

import (
	"context"
	"errors"
	"time"

	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/logger"
)

// A股以北京时间为准，与服务器时区无关
var cst = time.FixedZone("CST", 8*3600)

const (
	// 上证指数, the liveness probe target
	benchmarkIndex = "sh000001"

	// Backward walk bound when searching for the latest trading day
	maxBacksteps = 10
)

// ErrNoTradingDay means no trading day was found within the lookback
// window, which on a live market only happens during sustained outages
var ErrNoTradingDay = errors.New("no trading day found within lookback window")

// IndexProber is the live-market signal: a benchmark index carrying a
// real price means the market is open right now
type IndexProber interface {
	FetchIndex(ctx context.Context, code string) (quote.Quote, error)
}

// StatsDates looks up the most recent date with stored daily stats
type StatsDates interface {
	LatestStatsDate(ctx context.Context) (time.Time, bool, error)
}

// Resolver decides whether today is a trading day and locates the
// latest trading day when it is not. Stateless across calls apart from
// the optional store lookup.
type Resolver struct {
	probe  IndexProber
	store  StatsDates
	logger *logger.Logger

	// When the probe itself is unreachable, treat the day as trading so
	// an outage cannot mask a real session
	assumeTradingOnProbeFailure bool

	now func() time.Time
}

// New creates a resolver. store may be nil; the fallback walk then
// relies on the calendar alone.
func New(probe IndexProber, store StatsDates, cfg *config.Config, log *logger.Logger) *Resolver {
	return &Resolver{
		probe:                       probe,
		store:                       store,
		logger:                      log.WithField("component", "tradingday"),
		assumeTradingOnProbeFailure: cfg.Collector.AssumeTradingOnProbeFailure,
		now:                         time.Now,
	}
}

// Today returns the current calendar date in UTC+8, at midnight
func (r *Resolver) Today() time.Time {
	return Midnight(r.now())
}

// Midnight truncates t to its UTC+8 calendar date
func Midnight(t time.Time) time.Time {
	t = t.In(cst)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, cst)
}

// IsWeekend reports whether date falls on Saturday or Sunday in UTC+8
func IsWeekend(date time.Time) bool {
	wd := date.In(cst).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsTradingToday decides whether the market is open today. Weekends
// short-circuit without touching the probe; on weekdays a live index
// quote with a real price means trading. A probe transport failure is
// not an error: the configured policy decides.
func (r *Resolver) IsTradingToday(ctx context.Context) (bool, error) {
	if IsWeekend(r.Today()) {
		return false, nil
	}

	q, err := r.probe.FetchIndex(ctx, benchmarkIndex)
	if err != nil {
		r.logger.WithError(err).WithField("assume_trading", r.assumeTradingOnProbeFailure).
			Warn("Trading-day probe unreachable")
		return r.assumeTradingOnProbeFailure, nil
	}

	return q.HasQuote && q.Price > 0, nil
}

// LatestTradingDay returns the most recent trading day. fallback is
// true when that day is not today: first preference is the newest
// stored stats date, then a bounded backward calendar walk skipping
// weekends.
func (r *Resolver) LatestTradingDay(ctx context.Context) (date time.Time, fallback bool, err error) {
	today := r.Today()

	trading, err := r.IsTradingToday(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if trading {
		return today, false, nil
	}

	if r.store != nil {
		stored, ok, err := r.store.LatestStatsDate(ctx)
		if err != nil {
			r.logger.WithError(err).Warn("Stored stats date lookup failed, walking calendar")
		} else if ok {
			return Midnight(stored), true, nil
		}
	}

	// 没有历史数据时退回到日历：向前找最近的工作日
	d := today
	for i := 0; i < maxBacksteps; i++ {
		d = d.AddDate(0, 0, -1)
		if !IsWeekend(d) {
			return d, true, nil
		}
	}

	return time.Time{}, false, ErrNoTradingDay
}
