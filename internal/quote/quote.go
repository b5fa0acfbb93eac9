package quote

import (
	"regexp"
	"strings"
)

// Quote is one instrument's snapshot as normalized from a provider.
// Ephemeral: produced per fetch, never persisted individually.
type Quote struct {
	Code          string  `json:"code"`           // exchange-qualified symbol, e.g. SH600519
	Name          string  `json:"name"`           // display name, e.g. 贵州茅台
	Price         float64 `json:"price"`          // current price (元)
	PrevClose     float64 `json:"prev_close"`     // previous session close (元)
	ChangePercent float64 `json:"change_percent"` // percent units: 9.9 == +9.9%
	High          float64 `json:"high"`           // intraday high (元), 0 when the wire omits it
	Low           float64 `json:"low"`            // intraday low (元), 0 when the wire omits it
	Volume        int64   `json:"volume"`         // traded volume (手)
	Turnover      float64 `json:"turnover"`       // traded amount (元)
	LimitStreak   int     `json:"limit_streak"`   // 连板天数 reported by the provider, 0 if absent

	// HasQuote distinguishes a real zero-valued price from "no data"
	// (closed market, invalid symbol, placeholder row).
	HasQuote bool `json:"has_quote"`
}

var pureCodeRe = regexp.MustCompile(`^\d{6}$`)
var shanghaiRe = regexp.MustCompile(`^(600|601|603|605|688|689)\d{3}$`)
var beijingRe = regexp.MustCompile(`^[48]\d{5}$`)

// NormalizeCode returns an exchange-qualified upper-case symbol.
// Bare 6-digit codes are mapped by number range: Shanghai main board
// and STAR market go to SH, Beijing-exchange 4xx/8xx codes to BJ,
// everything else to SZ.
func NormalizeCode(code string) string {
	upper := strings.ToUpper(strings.TrimSpace(code))

	if strings.HasPrefix(upper, "SH") || strings.HasPrefix(upper, "SZ") || strings.HasPrefix(upper, "BJ") {
		return upper
	}

	if pureCodeRe.MatchString(upper) {
		switch {
		case shanghaiRe.MatchString(upper):
			return "SH" + upper
		case beijingRe.MatchString(upper):
			return "BJ" + upper
		default:
			return "SZ" + upper
		}
	}

	return upper
}

// BareCode strips the exchange qualifier, leaving the numeric symbol
func BareCode(code string) string {
	upper := strings.ToUpper(strings.TrimSpace(code))
	for _, prefix := range []string{"SH", "SZ", "BJ"} {
		if strings.HasPrefix(upper, prefix) {
			return upper[len(prefix):]
		}
	}
	return upper
}

// ChangePercentOf recomputes the percent change from raw prices.
// Providers disagree about whether the wire carries percent or ratio,
// so the parsed value is always derived here for consistency.
func ChangePercentOf(now, prevClose float64) float64 {
	if prevClose <= 0 {
		return 0
	}
	return (now - prevClose) / prevClose * 100
}
