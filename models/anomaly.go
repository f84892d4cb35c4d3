package models

// Anomaly types
const (
	AnomalyLatency   = "latency"
	AnomalyErrorRate = "error_rate"
	AnomalyTimeout   = "timeout"
	// AnomalyUnusualPattern is declared in the data model but not produced
	// by the current detector rules. Kept as a reserved variant.
	AnomalyUnusualPattern = "unusual_pattern"
)

// Severity levels, ordered low < medium < high < critical
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

var severityRank = map[string]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// SeverityRank returns the ordinal position of a severity level, -1 if unknown.
func SeverityRank(severity string) int {
	if rank, ok := severityRank[severity]; ok {
		return rank
	}
	return -1
}

// Anomaly is one detected abnormal traffic condition. The AI fields are
// filled in once after a successful analysis call; everything else is set
// at detection time.
type Anomaly struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Severity        string   `json:"severity"`
	Description     string   `json:"description"`
	AffectedNodes   []string `json:"affectedNodes"`
	Timestamp       int64    `json:"timestamp"` // detection time, ms since epoch
	AIExplanation   string   `json:"aiExplanation,omitempty"`
	SuggestedAction string   `json:"suggestedAction,omitempty"`
}
