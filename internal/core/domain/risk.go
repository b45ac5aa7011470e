package domain

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Color is the display color the dashboard uses for the level.
func (l RiskLevel) Color() string {
	switch l {
	case RiskCritical:
		return "#dc2626"
	case RiskHigh:
		return "#ea580c"
	case RiskMedium:
		return "#ca8a04"
	default:
		return "#16a34a"
	}
}

type SeverityBuckets struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

func (s SeverityBuckets) Sum() int {
	return s.Critical + s.High + s.Medium + s.Low
}

type TypeRisk struct {
	Type   string `json:"type"`
	Count  int    `json:"count"`
	Weight int    `json:"weight"`
	Risk   int    `json:"risk"`
}

type RiskAssessment struct {
	TotalRiskScore  int             `json:"total_risk_score"`
	MaxPossibleRisk int             `json:"max_possible_risk"`
	RiskPercentage  float64         `json:"risk_percentage"`
	Level           RiskLevel       `json:"level"`
	Color           string          `json:"color"`
	Severity        SeverityBuckets `json:"severity"`
	DistinctTypes   int             `json:"distinct_types"`
	TopRisks        []TypeRisk      `json:"top_risks"`
	Recommendations []string        `json:"recommendations"`
}

type DistributionEntry struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type ChartPoint struct {
	Label     string `json:"label"`
	FullLabel string `json:"full_label"`
	Count     int    `json:"count"`
	Color     string `json:"color"`
}

type ChartSet struct {
	Primary   []ChartPoint `json:"primary"`
	Secondary []ChartPoint `json:"secondary,omitempty"`
}

// AnalysisOverview is everything the dashboard header and charts need.
type AnalysisOverview struct {
	BatchID      string              `json:"batch_id"`
	FileCount    int                 `json:"file_count"`
	TotalPIIs    int                 `json:"total_piis"`
	Risk         RiskAssessment      `json:"risk"`
	Distribution []DistributionEntry `json:"distribution"`
	Charts       ChartSet            `json:"charts"`
}
