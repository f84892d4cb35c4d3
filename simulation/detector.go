package simulation

import (
	"fmt"
	"math"
	"time"

	"edgescope/models"
)

// Thresholds holds the detection tuning constants. The defaults come from
// the shipped dashboard behavior; they can be overridden through config but
// should not be changed casually, since the generator's injection rates are
// calibrated against them.
type Thresholds struct {
	// a request is "high latency" when above LatencyMultiplier x window mean
	LatencyMultiplier float64
	// latency anomaly fires when high-latency share exceeds LatencyShare,
	// and is critical above LatencyCriticalShare
	LatencyShare         float64
	LatencyCriticalShare float64

	// error_rate anomaly fires above ErrorRate, escalating at
	// ErrorRateHigh and ErrorRateCritical
	ErrorRate         float64
	ErrorRateHigh     float64
	ErrorRateCritical float64

	// timeout anomaly fires above TimeoutRate, high above TimeoutRateHigh
	TimeoutRate     float64
	TimeoutRateHigh float64
}

// DefaultThresholds returns the standard detection tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyMultiplier:    3,
		LatencyShare:         0.1,
		LatencyCriticalShare: 0.3,
		ErrorRate:            0.15,
		ErrorRateHigh:        0.2,
		ErrorRateCritical:    0.3,
		TimeoutRate:          0.05,
		TimeoutRateHigh:      0.15,
	}
}

// Detector applies threshold rules to a traffic window. It is a pure
// evaluator: no state is kept between calls, so re-running it on the same
// window yields equivalent results.
type Detector struct {
	thresholds Thresholds
}

// NewDetector builds a detector with the given tuning.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// Detect evaluates one window of recent traffic and returns every anomaly
// the rules classify. The rules fire independently, so a single window can
// produce several anomalies. An empty window produces none.
func (d *Detector) Detect(traffic []models.TrafficRequest) []models.Anomaly {
	anomalies := make([]models.Anomaly, 0)
	if len(traffic) == 0 {
		return anomalies
	}

	total := float64(len(traffic))
	now := time.Now().UnixMilli()

	var latencySum int64
	var errorRequests, timeoutRequests []models.TrafficRequest
	for _, r := range traffic {
		latencySum += r.Latency
		switch r.Status {
		case models.StatusError:
			errorRequests = append(errorRequests, r)
		case models.StatusTimeout:
			timeoutRequests = append(timeoutRequests, r)
		}
	}
	avgLatency := float64(latencySum) / total

	// latency rule
	var highLatency []models.TrafficRequest
	for _, r := range traffic {
		if float64(r.Latency) > avgLatency*d.thresholds.LatencyMultiplier {
			highLatency = append(highLatency, r)
		}
	}
	if float64(len(highLatency)) > total*d.thresholds.LatencyShare {
		severity := models.SeverityHigh
		if float64(len(highLatency)) > total*d.thresholds.LatencyCriticalShare {
			severity = models.SeverityCritical
		}
		anomalies = append(anomalies, models.Anomaly{
			ID:            fmt.Sprintf("anomaly_%s_%d", models.AnomalyLatency, now),
			Type:          models.AnomalyLatency,
			Severity:      severity,
			Description:   fmt.Sprintf("High latency detected: %dms average", int64(math.Round(avgLatency))),
			AffectedNodes: affectedNodes(highLatency),
			Timestamp:     now,
		})
	}

	// error rate rule
	errorRate := float64(len(errorRequests)) / total
	if errorRate > d.thresholds.ErrorRate {
		severity := models.SeverityMedium
		switch {
		case errorRate > d.thresholds.ErrorRateCritical:
			severity = models.SeverityCritical
		case errorRate > d.thresholds.ErrorRateHigh:
			severity = models.SeverityHigh
		}
		anomalies = append(anomalies, models.Anomaly{
			ID:            fmt.Sprintf("anomaly_%s_%d", models.AnomalyErrorRate, now),
			Type:          models.AnomalyErrorRate,
			Severity:      severity,
			Description:   fmt.Sprintf("High error rate: %.1f%%", errorRate*100),
			AffectedNodes: affectedNodes(errorRequests),
			Timestamp:     now,
		})
	}

	// timeout rule
	timeoutRate := float64(len(timeoutRequests)) / total
	if timeoutRate > d.thresholds.TimeoutRate {
		severity := models.SeverityMedium
		if timeoutRate > d.thresholds.TimeoutRateHigh {
			severity = models.SeverityHigh
		}
		anomalies = append(anomalies, models.Anomaly{
			ID:            fmt.Sprintf("anomaly_%s_%d", models.AnomalyTimeout, now),
			Type:          models.AnomalyTimeout,
			Severity:      severity,
			Description:   fmt.Sprintf("High timeout rate: %.1f%%", timeoutRate*100),
			AffectedNodes: affectedNodes(timeoutRequests),
			Timestamp:     now,
		})
	}

	return anomalies
}

// affectedNodes returns the deduplicated union of from/to ids, in first-seen
// order.
func affectedNodes(requests []models.TrafficRequest) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, r := range requests {
		for _, id := range []string{r.From, r.To} {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
