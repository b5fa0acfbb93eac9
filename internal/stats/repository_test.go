package stats

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests against a real PostgreSQL. Skipped under -short and
// when DATABASE_URL is not set.

func testRepository(t *testing.T) *Repository {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	ensureSchema(t, pool)
	return NewRepository(pool)
}

func ensureSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS daily_market_stats (
			stat_date        DATE PRIMARY KEY,
			limit_up_count   INT NOT NULL,
			limit_down_count INT NOT NULL,
			total_volume     BIGINT NOT NULL,
			total_amount     DOUBLE PRECISION NOT NULL,
			max_limit_streak INT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS topic_rankings (
			stat_date      DATE NOT NULL,
			rank           INT NOT NULL,
			topic_code     VARCHAR(32) NOT NULL,
			topic_name     VARCHAR(64) NOT NULL,
			change_percent DOUBLE PRECISION NOT NULL,
			close_price    DOUBLE PRECISION NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (stat_date, rank)
		)`)
	require.NoError(t, err)
}

// A date far outside the retention window, so the tests never touch
// collected data
var repoTestDate = time.Date(2000, 1, 11, 0, 0, 0, 0, time.UTC)

func cleanupDate(t *testing.T, r *Repository, date time.Time) {
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = r.pool.Exec(ctx, `DELETE FROM daily_market_stats WHERE stat_date = $1`, date)
		_, _ = r.pool.Exec(ctx, `DELETE FROM topic_rankings WHERE stat_date = $1`, date)
	})
}

func TestUpsertDailyStats_Idempotent(t *testing.T) {
	r := testRepository(t)
	cleanupDate(t, r, repoTestDate)
	ctx := context.Background()

	first := &DailyMarketStats{
		Date: repoTestDate, LimitUpCount: 40, LimitDownCount: 3,
		TotalVolume: 100, TotalAmount: 1e9, MaxLimitStreak: 4,
	}
	require.NoError(t, r.UpsertDailyStats(ctx, first))

	second := &DailyMarketStats{
		Date: repoTestDate, LimitUpCount: 45, LimitDownCount: 5,
		TotalVolume: 120, TotalAmount: 2e9, MaxLimitStreak: 6,
	}
	require.NoError(t, r.UpsertDailyStats(ctx, second))

	var count int
	require.NoError(t, r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM daily_market_stats WHERE stat_date = $1`, repoTestDate).Scan(&count))
	assert.Equal(t, 1, count, "the same date must stay a single row")

	row, err := r.GetStatsByDate(ctx, repoTestDate)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 45, row.LimitUpCount)
	assert.Equal(t, int64(120), row.TotalVolume)
	assert.Equal(t, 6, row.MaxLimitStreak)
}

func TestReplaceTopicRankings_ReplacesAsUnit(t *testing.T) {
	r := testRepository(t)
	cleanupDate(t, r, repoTestDate)
	ctx := context.Background()

	first := []TopicEntry{
		{Code: "BK0001", Name: "半导体", ChangePercent: 5.4, ClosePrice: 1200},
		{Code: "BK0002", Name: "券商", ChangePercent: 3.1, ClosePrice: 900},
		{Code: "BK0003", Name: "白酒", ChangePercent: 1.2, ClosePrice: 1500},
	}
	require.NoError(t, r.ReplaceTopicRankings(ctx, repoTestDate, first))

	second := []TopicEntry{
		{Code: "BK0004", Name: "人工智能", ChangePercent: 6.0, ClosePrice: 1100},
		{Code: "BK0001", Name: "半导体", ChangePercent: 4.0, ClosePrice: 1210},
	}
	require.NoError(t, r.ReplaceTopicRankings(ctx, repoTestDate, second))

	rows, err := r.GetTopicRankings(ctx, repoTestDate)
	require.NoError(t, err)
	require.Len(t, rows, 2, "replace swaps the whole snapshot, not just overlapping ranks")
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "BK0004", rows[0].Code)
	assert.Equal(t, 2, rows[1].Rank)
	assert.Equal(t, "BK0001", rows[1].Code)
}

func TestReplaceTopicRankings_FailureKeepsPriorSnapshot(t *testing.T) {
	r := testRepository(t)
	cleanupDate(t, r, repoTestDate)
	ctx := context.Background()

	prior := []TopicEntry{
		{Code: "BK0001", Name: "半导体", ChangePercent: 5.4, ClosePrice: 1200},
		{Code: "BK0002", Name: "券商", ChangePercent: 3.1, ClosePrice: 900},
	}
	require.NoError(t, r.ReplaceTopicRankings(ctx, repoTestDate, prior))

	// The oversized code violates the column width after the delete has
	// already run inside the transaction
	bad := []TopicEntry{
		{Code: "BK0003", Name: "白酒", ChangePercent: 2.0, ClosePrice: 1500},
		{Code: strings.Repeat("X", 64), Name: "坏行", ChangePercent: 1.0, ClosePrice: 100},
	}
	require.Error(t, r.ReplaceTopicRankings(ctx, repoTestDate, bad))

	rows, err := r.GetTopicRankings(ctx, repoTestDate)
	require.NoError(t, err)
	require.Len(t, rows, 2, "a failed replace must leave the prior snapshot intact")
	assert.Equal(t, "BK0001", rows[0].Code)
	assert.Equal(t, "BK0002", rows[1].Code)
}

func TestPurgeOlderThan_DropsBothTables(t *testing.T) {
	r := testRepository(t)
	oldDate := time.Date(2000, 1, 4, 0, 0, 0, 0, time.UTC)
	cleanupDate(t, r, oldDate)
	cleanupDate(t, r, repoTestDate)
	ctx := context.Background()

	require.NoError(t, r.UpsertDailyStats(ctx, &DailyMarketStats{Date: oldDate, LimitUpCount: 1}))
	require.NoError(t, r.UpsertDailyStats(ctx, &DailyMarketStats{Date: repoTestDate, LimitUpCount: 2}))
	require.NoError(t, r.ReplaceTopicRankings(ctx, oldDate, []TopicEntry{
		{Code: "BK0001", Name: "半导体", ChangePercent: 5.4, ClosePrice: 1200},
	}))

	purged, err := r.PurgeOlderThan(ctx, time.Date(2000, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(2))

	gone, err := r.GetStatsByDate(ctx, oldDate)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := r.GetStatsByDate(ctx, repoTestDate)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, 2, kept.LimitUpCount)

	topics, err := r.GetTopicRankings(ctx, oldDate)
	require.NoError(t, err)
	assert.Empty(t, topics)
}
