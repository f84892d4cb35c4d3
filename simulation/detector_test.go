package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgescope/models"
)

func makeTraffic(n int, status string, latency int64, from, to string) []models.TrafficRequest {
	out := make([]models.TrafficRequest, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.TrafficRequest{
			ID:      "req",
			From:    from,
			To:      to,
			Latency: latency,
			Status:  status,
		})
	}
	return out
}

func TestDetectEmptyWindow(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	anomalies := d.Detect(nil)
	assert.NotNil(t, anomalies)
	assert.Empty(t, anomalies)
}

func TestDetectHealthyTraffic(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	// uniform latency never exceeds 3x its own mean
	traffic := makeTraffic(50, models.StatusSuccess, 80, "lhr", "cdg")
	assert.Empty(t, d.Detect(traffic))
}

func TestDetectLatencyAnomaly(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	// 40 normal at 50ms, 10 spiked at 2000ms: mean is 440ms, spikes are
	// above 3x mean and make up 20% of the window
	traffic := makeTraffic(40, models.StatusSuccess, 50, "lhr", "cdg")
	traffic = append(traffic, makeTraffic(10, models.StatusSuccess, 2000, "nrt", "syd")...)

	anomalies := d.Detect(traffic)
	require.Len(t, anomalies, 1)

	a := anomalies[0]
	assert.Equal(t, models.AnomalyLatency, a.Type)
	assert.Equal(t, models.SeverityHigh, a.Severity)
	assert.Contains(t, a.Description, "High latency detected")
	assert.Equal(t, []string{"nrt", "syd"}, a.AffectedNodes)
}

func TestDetectLatencyCritical(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	// mean = (31*1000 + 69*1) / 100 = 310.69, threshold 932.07: the 1000ms
	// requests clear it with a 31% share, just past the 30% critical cut
	traffic := makeTraffic(31, models.StatusSuccess, 1000, "nrt", "syd")
	traffic = append(traffic, makeTraffic(69, models.StatusSuccess, 1, "lhr", "cdg")...)

	anomalies := d.Detect(traffic)
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.AnomalyLatency, anomalies[0].Type)
	assert.Equal(t, models.SeverityCritical, anomalies[0].Severity)
}

func TestDetectErrorRateEscalation(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	cases := []struct {
		name     string
		errors   int
		total    int
		severity string
	}{
		{"below threshold", 10, 100, ""},
		{"medium", 16, 100, models.SeverityMedium},
		{"high", 25, 100, models.SeverityHigh},
		{"critical", 50, 100, models.SeverityCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			traffic := makeTraffic(tc.total-tc.errors, models.StatusSuccess, 50, "lhr", "cdg")
			traffic = append(traffic, makeTraffic(tc.errors, models.StatusError, 50, "fra", "ams")...)

			anomalies := d.Detect(traffic)
			if tc.severity == "" {
				assert.Empty(t, anomalies)
				return
			}

			require.Len(t, anomalies, 1)
			a := anomalies[0]
			assert.Equal(t, models.AnomalyErrorRate, a.Type)
			assert.Equal(t, tc.severity, a.Severity)
			assert.Contains(t, a.Description, "High error rate")
			// only the failing requests' endpoints are implicated
			assert.Equal(t, []string{"fra", "ams"}, a.AffectedNodes)
		})
	}
}

func TestDetectTimeoutRate(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	traffic := makeTraffic(90, models.StatusSuccess, 50, "lhr", "cdg")
	traffic = append(traffic, makeTraffic(10, models.StatusTimeout, 50, "sin", "hkg")...)

	anomalies := d.Detect(traffic)
	require.Len(t, anomalies, 1)
	a := anomalies[0]
	assert.Equal(t, models.AnomalyTimeout, a.Type)
	assert.Equal(t, models.SeverityMedium, a.Severity)
	assert.Equal(t, []string{"sin", "hkg"}, a.AffectedNodes)

	// push past the high threshold
	traffic = append(traffic, makeTraffic(10, models.StatusTimeout, 50, "sin", "hkg")...)
	anomalies = d.Detect(traffic)
	require.Len(t, anomalies, 1)
	assert.Equal(t, models.SeverityHigh, anomalies[0].Severity)
}

func TestDetectMultipleRulesFire(t *testing.T) {
	d := NewDetector(DefaultThresholds())

	traffic := makeTraffic(60, models.StatusSuccess, 50, "lhr", "cdg")
	traffic = append(traffic, makeTraffic(20, models.StatusError, 50, "fra", "ams")...)
	traffic = append(traffic, makeTraffic(20, models.StatusTimeout, 50, "sin", "hkg")...)

	anomalies := d.Detect(traffic)
	require.Len(t, anomalies, 2)

	types := []string{anomalies[0].Type, anomalies[1].Type}
	assert.Contains(t, types, models.AnomalyErrorRate)
	assert.Contains(t, types, models.AnomalyTimeout)
}

func TestAffectedNodesDeduplication(t *testing.T) {
	requests := []models.TrafficRequest{
		{From: "lhr", To: "cdg"},
		{From: "cdg", To: "lhr"},
		{From: "lhr", To: "fra"},
	}
	assert.Equal(t, []string{"lhr", "cdg", "fra"}, affectedNodes(requests))
}
