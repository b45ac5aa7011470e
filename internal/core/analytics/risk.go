package analytics

import (
	"math"
	"sort"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
)

const topRiskLimit = 10

const (
	recommendCritical  = "Critical identifiers detected: mask or remove them before sharing these files."
	recommendHigh      = "More than 10 high-severity items found: restrict access to this batch and review retention."
	recommendElevated  = "Overall risk is elevated: export only masked copies and protect exports with a password."
	recommendDiversity = "Many distinct PII categories present: review the data-collection process for over-collection."
)

// Assess scores a breakdown against the weight table. The result is fully
// determined by its inputs; an empty breakdown scores 0 and LOW.
func Assess(breakdown domain.Breakdown, weights WeightTable) domain.RiskAssessment {
	if weights == nil {
		weights = DefaultWeights()
	}

	var (
		total    int
		maxRisk  int
		severity domain.SeverityBuckets
	)
	risks := make([]domain.TypeRisk, 0, len(breakdown))
	for _, tc := range breakdown {
		count := clampCount(tc.Count)
		weight := weights.Weight(tc.Type)
		typeRisk := weight * count

		total += typeRisk
		maxRisk += count * MaxWeight
		addToBucket(&severity, weight, count)

		risks = append(risks, domain.TypeRisk{
			Type:   tc.Type,
			Count:  count,
			Weight: weight,
			Risk:   typeRisk,
		})
	}

	pct := riskPercentage(total, maxRisk)
	level := levelFor(pct)

	return domain.RiskAssessment{
		TotalRiskScore:  total,
		MaxPossibleRisk: maxRisk,
		RiskPercentage:  pct,
		Level:           level,
		Color:           level.Color(),
		Severity:        severity,
		DistinctTypes:   len(breakdown),
		TopRisks:        topRisks(risks, topRiskLimit),
		Recommendations: recommendations(severity, pct, len(breakdown)),
	}
}

func addToBucket(b *domain.SeverityBuckets, weight, count int) {
	switch {
	case weight >= 8:
		b.Critical += count
	case weight >= 6:
		b.High += count
	case weight >= 4:
		b.Medium += count
	default:
		b.Low += count
	}
}

func riskPercentage(total, maxRisk int) float64 {
	if maxRisk <= 0 {
		return 0
	}
	pct := float64(total) / float64(maxRisk) * 100
	return math.Round(pct*10) / 10
}

func levelFor(pct float64) domain.RiskLevel {
	switch {
	case pct >= 70:
		return domain.RiskCritical
	case pct >= 50:
		return domain.RiskHigh
	case pct >= 30:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func topRisks(risks []domain.TypeRisk, limit int) []domain.TypeRisk {
	sorted := make([]domain.TypeRisk, len(risks))
	copy(sorted, risks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Risk > sorted[j].Risk
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func recommendations(severity domain.SeverityBuckets, pct float64, distinct int) []string {
	out := make([]string, 0, 4)
	if severity.Critical > 0 {
		out = append(out, recommendCritical)
	}
	if severity.High > 10 {
		out = append(out, recommendHigh)
	}
	if pct >= 50 {
		out = append(out, recommendElevated)
	}
	if distinct > 15 {
		out = append(out, recommendDiversity)
	}
	return out
}

// clampCount treats negative upstream counts as zero.
func clampCount(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
