package models

// Request status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusTimeout = "timeout"
)

// TrafficRequest is one simulated request between two edge nodes.
// Immutable once created; field names mirror what the dashboard reads.
type TrafficRequest struct {
	ID           string `json:"id"`
	From         string `json:"from"` // source node ID
	To           string `json:"to"`   // destination node ID
	Timestamp    int64  `json:"timestamp"` // ms since epoch
	Latency      int64  `json:"latency"`   // ms
	Status       string `json:"status"`    // success, error, timeout
	Method       string `json:"method"`
	Path         string `json:"path"`
	ResponseCode int    `json:"responseCode,omitempty"`
}
