package quote

import "strings"

// Board-specific daily price-change caps. Thresholds sit just under the
// regulatory 10/20/30/5 percent caps so that rounding on the wire
// (9.97, 19.93 and so on) still classifies as a limit move.
const (
	MainBoardThreshold = 9.9  // 沪深主板 ±10%
	GrowthThreshold    = 19.9 // 创业板/科创板 ±20%
	BeijingThreshold   = 29.9 // 北交所 ±30%
	STThreshold        = 4.9  // ST股 ±5%
)

// IsSpecialTreatment reports whether a name carries the ST flag
func IsSpecialTreatment(name string) bool {
	return strings.Contains(name, "ST")
}

// IsNewListing reports whether a name marks a newly-listed instrument
func IsNewListing(name string) bool {
	return strings.HasPrefix(name, "N")
}

// ExcludedFromLimitBoard reports whether an instrument is ignored for
// limit-up/limit-down counting by market convention: ST names,
// delisting-risk names (asterisk prefix), and new listings never count
// toward the limit board even when they numerically qualify.
func ExcludedFromLimitBoard(name string) bool {
	return IsSpecialTreatment(name) ||
		strings.HasPrefix(name, "*") ||
		IsNewListing(name)
}

// LimitThreshold resolves the limit-up/limit-down threshold for a
// symbol. Pure function of the bare code prefix and the ST flag.
func LimitThreshold(code, name string) float64 {
	if IsSpecialTreatment(name) {
		return STThreshold
	}

	bare := BareCode(code)
	switch {
	case strings.HasPrefix(bare, "300"), strings.HasPrefix(bare, "301"), strings.HasPrefix(bare, "688"):
		return GrowthThreshold
	case strings.HasPrefix(bare, "8"), strings.HasPrefix(bare, "4"):
		return BeijingThreshold
	default:
		return MainBoardThreshold
	}
}
