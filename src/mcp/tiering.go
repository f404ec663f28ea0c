package mcp

import (
	"sort"

	"drone-compare/src/metrics"
)

// Default row limits per tier.
// Tier 1 gets more rows since they're highest signal.
// Tier 3 is mostly reassurance, so only a few examples are shown.
const (
	DefaultTier1Limit = 15
	DefaultTier2Limit = 10
	DefaultTier3Limit = 3
)

// classifyRow determines which tier a row belongs to.
// Returns 1 (a failed status on either side), 2 (await finished outside the
// threshold) or 3 (healthy).
func classifyRow(row metrics.Row) int {
	if row.Failed() {
		return 1
	}
	if !row.AwaitWithin {
		return 2
	}
	return 3
}

// tierLimits returns per-tier limits. A limit other than the default scales
// tiers 2 and 3 proportionally.
func tierLimits(limit int) (t1, t2, t3 int) {
	if limit <= 0 || limit == DefaultTier1Limit {
		return DefaultTier1Limit, DefaultTier2Limit, DefaultTier3Limit
	}
	return limit, max(1, limit*2/3), max(1, limit/5)
}

// TierRows groups rows into tiers, slowest await first within each tier.
// The input slice is not modified.
func TierRows(rows []metrics.Row, limit int) TieredRows {
	t1Limit, t2Limit, t3Limit := tierLimits(limit)

	sorted := make([]metrics.Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AwaitDelta > sorted[j].AwaitDelta
	})

	var tier1, tier2, tier3 []metrics.Row
	omitted := 0
	for _, row := range sorted {
		switch classifyRow(row) {
		case 1:
			if len(tier1) < t1Limit {
				tier1 = append(tier1, row)
				continue
			}
		case 2:
			if len(tier2) < t2Limit {
				tier2 = append(tier2, row)
				continue
			}
		default:
			if len(tier3) < t3Limit {
				tier3 = append(tier3, row)
				continue
			}
		}
		omitted++
	}

	prefix := prURLPrefix(sorted)
	return TieredRows{
		PRURLPrefix:   prefix,
		Tier1Failures: compactRows(tier1, prefix),
		Tier2Slow:     compactRows(tier2, prefix),
		Tier3Healthy:  compactRows(tier3, prefix),
		Omitted:       omitted,
	}
}

// filterTier returns the rows of one tier, or all rows for tier 0.
func filterTier(rows []metrics.Row, tier int) []metrics.Row {
	if tier == 0 {
		return rows
	}
	var out []metrics.Row
	for _, row := range rows {
		if classifyRow(row) == tier {
			out = append(out, row)
		}
	}
	return out
}
