package models

// Simulation run states
const (
	SimulationRunning   = "running"
	SimulationPaused    = "paused"
	SimulationCompleted = "completed"
)

// Simulation groups one run of the traffic engine. The traffic and anomaly
// slices are value-copied from the live state at save time, so a completed
// record never shares data with the rolling log.
type Simulation struct {
	ID        string           `json:"id" bson:"id"`
	Name      string           `json:"name" bson:"name"`
	StartTime int64            `json:"startTime" bson:"start_time"`
	EndTime   int64            `json:"endTime,omitempty" bson:"end_time,omitempty"`
	Status    string           `json:"status" bson:"status"`
	Traffic   []TrafficRequest `json:"traffic" bson:"traffic"`
	Anomalies []Anomaly        `json:"anomalies" bson:"anomalies"`
}

// SimulationSummary is the listing shape for the saved-sessions view.
type SimulationSummary struct {
	ID           string `json:"id" bson:"id"`
	Name         string `json:"name" bson:"name"`
	StartTime    int64  `json:"startTime" bson:"start_time"`
	EndTime      int64  `json:"endTime,omitempty" bson:"end_time,omitempty"`
	Status       string `json:"status" bson:"status"`
	RequestCount int    `json:"requestCount" bson:"request_count"`
	AnomalyCount int    `json:"anomalyCount" bson:"anomaly_count"`
}
