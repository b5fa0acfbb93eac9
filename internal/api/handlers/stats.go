package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/hzchen/limitboard/internal/collector"
	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/internal/stats"
	"github.com/hzchen/limitboard/internal/tradingday"
	"github.com/hzchen/limitboard/pkg/logger"
)

// statsService is the read path consumed by the handlers
type statsService interface {
	GetTodayStats(ctx context.Context) (*stats.TodayStats, error)
	GetHistory(ctx context.Context, days int) ([]stats.DailyMarketStats, error)
	GetTopics(ctx context.Context, date time.Time) ([]stats.TopicRanking, error)
	GetWeeklyTopics(ctx context.Context, limit int) ([]stats.WeeklyTopic, error)
	GetIndices(ctx context.Context) ([]quote.Quote, error)
}

// collectorRunner triggers a manual collection run
type collectorRunner interface {
	Run(ctx context.Context) (*collector.CollectionResult, error)
}

// StatsHandler serves the market stats read API and the manual collect
// trigger
// ⭐ SSOT: 统计接口的处理器只有这一个
type StatsHandler struct {
	service   statsService
	collector collectorRunner
	logger    *logger.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(service statsService, col collectorRunner, log *logger.Logger) *StatsHandler {
	return &StatsHandler{
		service:   service,
		collector: col,
		logger:    log,
	}
}

// GetToday returns today's snapshot, or the latest trading day's when
// today is not trading
// GET /api/stats/today
func (h *StatsHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetTodayStats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get today stats")
		respondError(w, http.StatusInternalServerError, CodeServerError, "Failed to retrieve today stats")
		return
	}

	respondData(w, http.StatusOK, out)
}

// GetHistory returns trailing daily rows, newest first
// GET /api/stats/history?days=30
func (h *StatsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, CodeBadRequest, "days must be a positive integer")
			return
		}
		days = parsed
	}

	rows, err := h.service.GetHistory(r.Context(), days)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get stats history")
		respondError(w, http.StatusInternalServerError, CodeServerError, "Failed to retrieve history")
		return
	}

	respondData(w, http.StatusOK, rows)
}

// GetTopics returns the topic ranking snapshot for a date (default:
// latest trading day)
// GET /api/topics?date=2026-08-31
func (h *StatsHandler) GetTopics(w http.ResponseWriter, r *http.Request) {
	var date time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, CodeBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	rows, err := h.service.GetTopics(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get topic rankings")
		respondError(w, http.StatusInternalServerError, CodeServerError, "Failed to retrieve topic rankings")
		return
	}

	if len(rows) == 0 {
		if !date.IsZero() && tradingday.IsWeekend(date) {
			respondError(w, http.StatusNotFound, CodeNonTradingDay, "Requested date is not a trading day")
			return
		}
		respondError(w, http.StatusNotFound, CodeNotFound, "No topic rankings for the requested date")
		return
	}

	respondData(w, http.StatusOK, rows)
}

// GetWeeklyTopics returns the trailing-7-day cumulative leaderboard
// GET /api/topics/weekly?limit=10
func (h *StatsHandler) GetWeeklyTopics(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, CodeBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	topics, err := h.service.GetWeeklyTopics(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get weekly topics")
		respondError(w, http.StatusInternalServerError, CodeServerError, "Failed to retrieve weekly topics")
		return
	}

	respondData(w, http.StatusOK, topics)
}

// GetIndices returns live benchmark index quotes
// GET /api/stats/indices
func (h *StatsHandler) GetIndices(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.service.GetIndices(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get indices")
		respondError(w, http.StatusInternalServerError, CodeServerError, "Failed to retrieve indices")
		return
	}

	respondData(w, http.StatusOK, quotes)
}

// Collect triggers a manual collection run. A non-trading day is a
// success with skipped:true, not an error.
// POST /api/stats/collect
func (h *StatsHandler) Collect(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Manual collection triggered")

	result, err := h.collector.Run(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual collection failed")
		if errors.Is(err, collector.ErrCollectionFailed) {
			respondError(w, http.StatusBadGateway, CodeCollectionFailed, "All quote providers failed")
			return
		}
		respondError(w, http.StatusInternalServerError, CodeServerError, "Collection run failed")
		return
	}

	respondData(w, http.StatusOK, result)
}
