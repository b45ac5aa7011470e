package analytics

import (
	"sort"
	"unicode/utf8"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

const (
	maxBarLabelRunes = 20
	primaryChartSize = 12
)

// Palette is cycled through for chart colors.
var Palette = []string{
	"#2563eb", "#dc2626", "#16a34a", "#ca8a04", "#9333ea", "#0891b2",
	"#ea580c", "#db2777", "#4f46e5", "#65a30d", "#0d9488", "#b91c1c",
}

// Distribution sorts the breakdown by count, highest first. Equal counts
// keep their upstream order. Negative counts are reported as zero.
func Distribution(breakdown domain.Breakdown) []domain.DistributionEntry {
	out := make([]domain.DistributionEntry, 0, len(breakdown))
	for _, tc := range breakdown {
		out = append(out, domain.DistributionEntry{Type: tc.Type, Count: clampCount(tc.Count)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// ShapeCharts builds bar/pie series. More than 12 types are split into a
// primary chart with the top 12 and a secondary chart with the rest.
func ShapeCharts(breakdown domain.Breakdown) domain.ChartSet {
	dist := Distribution(breakdown)
	if len(dist) <= primaryChartSize {
		return domain.ChartSet{Primary: toChartPoints(dist)}
	}
	return domain.ChartSet{
		Primary:   toChartPoints(dist[:primaryChartSize]),
		Secondary: toChartPoints(dist[primaryChartSize:]),
	}
}

func toChartPoints(entries []domain.DistributionEntry) []domain.ChartPoint {
	points := make([]domain.ChartPoint, 0, len(entries))
	for i, e := range entries {
		points = append(points, domain.ChartPoint{
			Label:     TruncateLabel(e.Type),
			FullLabel: e.Type,
			Count:     e.Count,
			Color:     Palette[i%len(Palette)],
		})
	}
	return points
}

// TruncateLabel shortens labels longer than 20 characters for bar axes.
func TruncateLabel(label string) string {
	if utf8.RuneCountInString(label) <= maxBarLabelRunes {
		return label
	}
	runes := []rune(label)
	return string(runes[:maxBarLabelRunes]) + "..."
}
