package stats

import "time"

// DailyMarketStats is one day's market snapshot. One logical row per
// date: writes are upserts keyed on Date.
type DailyMarketStats struct {
	Date           time.Time `json:"date"`
	LimitUpCount   int       `json:"limit_up_count"`
	LimitDownCount int       `json:"limit_down_count"`
	TotalVolume    int64     `json:"total_volume"`
	TotalAmount    float64   `json:"total_amount"`
	MaxLimitStreak int       `json:"max_limit_streak"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TopicEntry is one concept-sector entry handed to the write path
type TopicEntry struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	ChangePercent float64 `json:"change_percent"`
	ClosePrice    float64 `json:"close_price"`
}

// TopicRanking is one persisted (date, rank) topic row. The full row
// set for a date is an immutable snapshot: replaced as a unit, never
// patched.
type TopicRanking struct {
	Date          time.Time `json:"date"`
	Rank          int       `json:"rank"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	ChangePercent float64   `json:"change_percent"`
	ClosePrice    float64   `json:"close_price"`
}

// WeeklyTopic is one trailing-7-day leaderboard entry. Cumulative:
// change percent is summed across the window, so a topic hot on more
// days compounds.
type WeeklyTopic struct {
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	TotalChangePercent float64 `json:"total_change_percent"`
	AvgClosePrice      float64 `json:"avg_close_price"`
	Days               int     `json:"days"`
}

// TodayStats is the resolver-aware read view: when today is not a
// trading day the latest trading day's row is served instead, tagged
// IsFallback. Stats is nil when the day is trading but not collected
// yet.
type TodayStats struct {
	Date       time.Time         `json:"date"`
	IsFallback bool              `json:"is_fallback"`
	Stats      *DailyMarketStats `json:"stats"`
}
