package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository owns the write and read paths to the stats tables
// ⭐ SSOT: 行情统计的存储只在这里
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new stats repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertDailyStats writes one day's snapshot, idempotent on the date.
// Concurrent runs for the same date converge last-writer-wins since
// both derive from the same market state.
func (r *Repository) UpsertDailyStats(ctx context.Context, s *DailyMarketStats) error {
	query := `
		INSERT INTO daily_market_stats (
			stat_date, limit_up_count, limit_down_count,
			total_volume, total_amount, max_limit_streak,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (stat_date) DO UPDATE SET
			limit_up_count = EXCLUDED.limit_up_count,
			limit_down_count = EXCLUDED.limit_down_count,
			total_volume = EXCLUDED.total_volume,
			total_amount = EXCLUDED.total_amount,
			max_limit_streak = EXCLUDED.max_limit_streak,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		s.Date, s.LimitUpCount, s.LimitDownCount,
		s.TotalVolume, s.TotalAmount, s.MaxLimitStreak,
	)
	if err != nil {
		return fmt.Errorf("upsert daily stats: %w", err)
	}
	return nil
}

// ReplaceTopicRankings replaces the full ranking snapshot for a date.
// Delete-then-insert inside one transaction so readers never observe a
// half-written ranking.
func (r *Repository) ReplaceTopicRankings(ctx context.Context, date time.Time, topics []TopicEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM topic_rankings WHERE stat_date = $1`, date); err != nil {
		return fmt.Errorf("clear topic rankings: %w", err)
	}

	query := `
		INSERT INTO topic_rankings (
			stat_date, rank, topic_code, topic_name, change_percent, close_price, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	for i, t := range topics {
		if _, err := tx.Exec(ctx, query, date, i+1, t.Code, t.Name, t.ChangePercent, t.ClosePrice); err != nil {
			return fmt.Errorf("insert topic ranking %s: %w", t.Code, err)
		}
	}

	return tx.Commit(ctx)
}

// GetStatsByDate returns the snapshot for a date, or nil when the date
// has not been collected
func (r *Repository) GetStatsByDate(ctx context.Context, date time.Time) (*DailyMarketStats, error) {
	query := `
		SELECT stat_date, limit_up_count, limit_down_count,
		       total_volume, total_amount, max_limit_streak,
		       created_at, updated_at
		FROM daily_market_stats
		WHERE stat_date = $1
	`

	var s DailyMarketStats
	err := r.pool.QueryRow(ctx, query, date).Scan(
		&s.Date, &s.LimitUpCount, &s.LimitDownCount,
		&s.TotalVolume, &s.TotalAmount, &s.MaxLimitStreak,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stats by date: %w", err)
	}
	return &s, nil
}

// GetRecentStats returns the trailing window, newest first
func (r *Repository) GetRecentStats(ctx context.Context, days int) ([]DailyMarketStats, error) {
	query := `
		SELECT stat_date, limit_up_count, limit_down_count,
		       total_volume, total_amount, max_limit_streak,
		       created_at, updated_at
		FROM daily_market_stats
		ORDER BY stat_date DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("get recent stats: %w", err)
	}
	defer rows.Close()

	var out []DailyMarketStats
	for rows.Next() {
		var s DailyMarketStats
		if err := rows.Scan(
			&s.Date, &s.LimitUpCount, &s.LimitDownCount,
			&s.TotalVolume, &s.TotalAmount, &s.MaxLimitStreak,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LatestStatsDate returns the newest stored stats date. The second
// return is false when the table is empty.
func (r *Repository) LatestStatsDate(ctx context.Context) (time.Time, bool, error) {
	var date time.Time
	err := r.pool.QueryRow(ctx, `SELECT stat_date FROM daily_market_stats ORDER BY stat_date DESC LIMIT 1`).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest stats date: %w", err)
	}
	return date, true, nil
}

// GetTopicRankings returns the ranking snapshot for a date in rank
// order
func (r *Repository) GetTopicRankings(ctx context.Context, date time.Time) ([]TopicRanking, error) {
	query := `
		SELECT stat_date, rank, topic_code, topic_name, change_percent, close_price
		FROM topic_rankings
		WHERE stat_date = $1
		ORDER BY rank ASC
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("get topic rankings: %w", err)
	}
	defer rows.Close()

	return scanTopicRows(rows)
}

// GetTopicRowsSince returns all topic rows on or after the cutoff,
// feed for the weekly rollup
func (r *Repository) GetTopicRowsSince(ctx context.Context, cutoff time.Time) ([]TopicRanking, error) {
	query := `
		SELECT stat_date, rank, topic_code, topic_name, change_percent, close_price
		FROM topic_rankings
		WHERE stat_date >= $1
		ORDER BY stat_date DESC, rank ASC
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("get topic rows since: %w", err)
	}
	defer rows.Close()

	return scanTopicRows(rows)
}

// PurgeOlderThan removes stats and topic rows older than the cutoff,
// returning how many rows went away
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64

	tag, err := r.pool.Exec(ctx, `DELETE FROM daily_market_stats WHERE stat_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge daily stats: %w", err)
	}
	purged += tag.RowsAffected()

	tag, err = r.pool.Exec(ctx, `DELETE FROM topic_rankings WHERE stat_date < $1`, cutoff)
	if err != nil {
		return purged, fmt.Errorf("purge topic rankings: %w", err)
	}
	purged += tag.RowsAffected()

	return purged, nil
}

func scanTopicRows(rows pgx.Rows) ([]TopicRanking, error) {
	var out []TopicRanking
	for rows.Next() {
		var t TopicRanking
		if err := rows.Scan(&t.Date, &t.Rank, &t.Code, &t.Name, &t.ChangePercent, &t.ClosePrice); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
