package models

// AnalysisResult is the three-field reply the model is instructed to
// return. When the model misbehaves the formatter still produces one of
// these with fallback values, never an error.
type AnalysisResult struct {
	Summary      string `json:"summary"`
	Reasoning    string `json:"reasoning"`
	PotentialFix string `json:"potential_fix"`
}

// AnomalyAnalysis is the shape returned by the anomaly analysis endpoint.
type AnomalyAnalysis struct {
	Summary            string   `json:"summary"`
	RootCause          string   `json:"rootCause"`
	ImpactAssessment   string   `json:"impactAssessment"`
	RecommendedActions []string `json:"recommendedActions"`
	Severity           string   `json:"severity"`
}
