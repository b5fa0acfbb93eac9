package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hzchen/limitboard/internal/collector"
	"github.com/hzchen/limitboard/internal/quote"
	"github.com/hzchen/limitboard/internal/stats"
	"github.com/hzchen/limitboard/pkg/config"
	"github.com/hzchen/limitboard/pkg/logger"
)

type fakeService struct {
	today   *stats.TodayStats
	history []stats.DailyMarketStats
	topics  []stats.TopicRanking
	weekly  []stats.WeeklyTopic
	indices []quote.Quote
	err     error
}

func (f *fakeService) GetTodayStats(ctx context.Context) (*stats.TodayStats, error) {
	return f.today, f.err
}

func (f *fakeService) GetHistory(ctx context.Context, days int) ([]stats.DailyMarketStats, error) {
	return f.history, f.err
}

func (f *fakeService) GetTopics(ctx context.Context, date time.Time) ([]stats.TopicRanking, error) {
	return f.topics, f.err
}

func (f *fakeService) GetWeeklyTopics(ctx context.Context, limit int) ([]stats.WeeklyTopic, error) {
	return f.weekly, f.err
}

func (f *fakeService) GetIndices(ctx context.Context) ([]quote.Quote, error) {
	return f.indices, f.err
}

type fakeRunner struct {
	result *collector.CollectionResult
	err    error
}

func (f *fakeRunner) Run(ctx context.Context) (*collector.CollectionResult, error) {
	return f.result, f.err
}

func newHandler(svc *fakeService, runner *fakeRunner) *StatsHandler {
	cfg := &config.Config{LogLevel: "error", LogFormat: "json"}
	return NewStatsHandler(svc, runner, logger.New(cfg))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestGetToday(t *testing.T) {
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	svc := &fakeService{today: &stats.TodayStats{
		Date:  day,
		Stats: &stats.DailyMarketStats{Date: day, LimitUpCount: 42},
	}}
	h := newHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.GetToday(rec, httptest.NewRequest("GET", "/api/stats/today", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.False(t, env.Timestamp.IsZero())
}

func TestGetToday_ServerError(t *testing.T) {
	h := newHandler(&fakeService{err: errors.New("db down")}, nil)

	rec := httptest.NewRecorder()
	h.GetToday(rec, httptest.NewRequest("GET", "/api/stats/today", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, CodeServerError, env.Error.Code)
}

func TestGetHistory_RejectsBadDays(t *testing.T) {
	h := newHandler(&fakeService{}, nil)

	rec := httptest.NewRecorder()
	h.GetHistory(rec, httptest.NewRequest("GET", "/api/stats/history?days=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, decodeEnvelope(t, rec).Error.Code)
}

func TestGetTopics_NotFound(t *testing.T) {
	h := newHandler(&fakeService{}, nil)

	rec := httptest.NewRecorder()
	h.GetTopics(rec, httptest.NewRequest("GET", "/api/topics?date=2026-08-27", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeEnvelope(t, rec).Error.Code)
}

func TestGetTopics_WeekendIsNonTradingDay(t *testing.T) {
	h := newHandler(&fakeService{}, nil)

	// 2026-08-29 is a Saturday
	rec := httptest.NewRecorder()
	h.GetTopics(rec, httptest.NewRequest("GET", "/api/topics?date=2026-08-29", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNonTradingDay, decodeEnvelope(t, rec).Error.Code)
}

func TestGetTopics_BadDate(t *testing.T) {
	h := newHandler(&fakeService{}, nil)

	rec := httptest.NewRecorder()
	h.GetTopics(rec, httptest.NewRequest("GET", "/api/topics?date=20260829", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWeeklyTopics(t *testing.T) {
	svc := &fakeService{weekly: []stats.WeeklyTopic{
		{Code: "A001", Name: "半导体", TotalChangePercent: 5.5, Days: 3},
	}}
	h := newHandler(svc, nil)

	rec := httptest.NewRecorder()
	h.GetWeeklyTopics(rec, httptest.NewRequest("GET", "/api/topics/weekly?limit=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func TestCollect_Skipped(t *testing.T) {
	runner := &fakeRunner{result: &collector.CollectionResult{Skipped: true}}
	h := newHandler(&fakeService{}, runner)

	rec := httptest.NewRecorder()
	h.Collect(rec, httptest.NewRequest("POST", "/api/stats/collect", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestCollect_AllProvidersDown(t *testing.T) {
	runner := &fakeRunner{err: collector.ErrCollectionFailed}
	h := newHandler(&fakeService{}, runner)

	rec := httptest.NewRecorder()
	h.Collect(rec, httptest.NewRequest("POST", "/api/stats/collect", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, CodeCollectionFailed, decodeEnvelope(t, rec).Error.Code)
}
