package models

// Metrics is recomputed from the recent traffic window on every update,
// never maintained incrementally. SuccessRate covers the most recent
// window only so the dashboard reflects current conditions.
type Metrics struct {
	TotalRequests  int     `json:"totalRequests"`
	SuccessRate    float64 `json:"successRate"` // fraction in [0,1]
	AverageLatency int64   `json:"averageLatency"` // ms
	ErrorCount     int     `json:"errorCount"`
	AnomalyCount   int     `json:"anomalyCount"`
	ActiveNodes    int     `json:"activeNodes"`
}
