package quote

// Provider streak values outside this range are feed glitches and are
// discarded before taking the maximum.
const (
	minValidStreak = 0
	maxValidStreak = 50
)

// Classification is the aggregate view of one quote batch
type Classification struct {
	LimitUp   []Quote
	LimitDown []Quote

	// Sums over the full universe, not just the limit sets
	TotalVolume int64
	TotalAmount float64

	// Highest valid 连板 streak among the limit-up set, 0 when empty
	MaxLimitStreak int
}

// Classify splits a quote batch into limit-up/limit-down sets using
// board-specific thresholds, sums market-wide volume and turnover, and
// reports the maximum consecutive-limit streak.
//
// Pure and deterministic: no I/O, no clock, same input same output.
func Classify(quotes []Quote) Classification {
	var c Classification

	for _, q := range quotes {
		if !q.HasQuote {
			continue
		}

		c.TotalVolume += q.Volume
		c.TotalAmount += q.Turnover

		// ST、退市风险（*前缀）、新股（N前缀）不计入涨跌停统计
		if ExcludedFromLimitBoard(q.Name) {
			continue
		}

		threshold := LimitThreshold(q.Code, q.Name)
		switch {
		case q.ChangePercent >= threshold:
			c.LimitUp = append(c.LimitUp, q)
		case q.ChangePercent <= -threshold:
			c.LimitDown = append(c.LimitDown, q)
		}
	}

	c.MaxLimitStreak = maxStreak(c.LimitUp)
	return c
}

// maxStreak returns the highest provider-reported streak within the
// valid range, or 0 when nothing valid remains
func maxStreak(limitUp []Quote) int {
	max := 0
	for _, q := range limitUp {
		if q.LimitStreak < minValidStreak || q.LimitStreak > maxValidStreak {
			continue
		}
		if q.LimitStreak > max {
			max = q.LimitStreak
		}
	}
	return max
}
