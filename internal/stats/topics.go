package stats

import (
	"sort"
	"strings"
)

// The upstream provider tracks the same economic sector at several
// granularities, distinguished only by a trailing tier numeral
// (e.g. 航空装备Ⅱ / 航空装备Ⅲ). Leaderboards must not double-count
// those as separate sectors.
var tierSuffixes = []string{"Ⅲ", "Ⅱ", "Ⅰ", "III", "II", "I"}

// BaseTopicName strips a trailing tier numeral from a topic name
func BaseTopicName(name string) string {
	for _, suffix := range tierSuffixes {
		if trimmed, ok := strings.CutSuffix(name, suffix); ok {
			return strings.TrimSpace(trimmed)
		}
	}
	return name
}

// MergeTierVariants collapses tier variants of the same base topic into
// one entry carrying the base name and the highest-change variant's
// code and price. Output is sorted by change percent, best first.
func MergeTierVariants(topics []TopicEntry) []TopicEntry {
	best := make(map[string]TopicEntry)
	order := make([]string, 0, len(topics))

	for _, t := range topics {
		base := BaseTopicName(t.Name)
		cur, seen := best[base]
		if !seen {
			order = append(order, base)
		}
		if !seen || t.ChangePercent > cur.ChangePercent {
			t.Name = base
			best[base] = t
		}
	}

	merged := make([]TopicEntry, 0, len(best))
	for _, base := range order {
		merged = append(merged, best[base])
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ChangePercent > merged[j].ChangePercent
	})
	return merged
}

// WeeklyAggregate rolls trailing topic rows into the cumulative
// leaderboard: change percent summed per topic code (presence on more
// days compounds), close price averaged, then tier variants merged,
// sorted descending and truncated to limit.
func WeeklyAggregate(rows []TopicRanking, limit int) []WeeklyTopic {
	type acc struct {
		entry WeeklyTopic
		sum   float64
	}

	byCode := make(map[string]*acc)
	order := make([]string, 0, len(rows))

	for _, row := range rows {
		a, ok := byCode[row.Code]
		if !ok {
			a = &acc{entry: WeeklyTopic{Code: row.Code, Name: row.Name}}
			byCode[row.Code] = a
			order = append(order, row.Code)
		}
		a.entry.TotalChangePercent += row.ChangePercent
		a.entry.Days++
		a.sum += row.ClosePrice
	}

	topics := make([]WeeklyTopic, 0, len(byCode))
	for _, code := range order {
		a := byCode[code]
		a.entry.AvgClosePrice = a.sum / float64(a.entry.Days)
		topics = append(topics, a.entry)
	}

	topics = mergeWeeklyTiers(topics)

	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].TotalChangePercent > topics[j].TotalChangePercent
	})
	if limit > 0 && len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

// mergeWeeklyTiers is the hierarchical merge over aggregated entries:
// the variant with the larger cumulative change represents the base
// topic
func mergeWeeklyTiers(topics []WeeklyTopic) []WeeklyTopic {
	best := make(map[string]WeeklyTopic)
	order := make([]string, 0, len(topics))

	for _, t := range topics {
		base := BaseTopicName(t.Name)
		cur, seen := best[base]
		if !seen {
			order = append(order, base)
		}
		if !seen || t.TotalChangePercent > cur.TotalChangePercent {
			t.Name = base
			best[base] = t
		}
	}

	merged := make([]WeeklyTopic, 0, len(best))
	for _, base := range order {
		merged = append(merged, best[base])
	}
	return merged
}
