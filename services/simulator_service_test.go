package services

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgescope/config"
	"edgescope/models"
	"edgescope/simulation"
)

func testConfig() *config.Config {
	return &config.Config{
		Simulation: config.SimulationConfig{
			// ticks are driven directly by the tests, keep the background
			// loop from interfering
			TickIntervalMs:      60000,
			AnomalyChance:       0.1,
			ErrorBurstSize:      3,
			TrafficCap:          1000,
			AnomalyCap:          10,
			DetectionMinTraffic: 20,
			DetectionWindow:     50,
			MetricsWindow:       100,
			DedupSeconds:        10,
		},
		Detection: config.DetectionConfig{
			LatencyMultiplier:    3,
			LatencyShare:         0.1,
			LatencyCriticalShare: 0.3,
			ErrorRate:            0.15,
			ErrorRateHigh:        0.2,
			ErrorRateCritical:    0.3,
			TimeoutRate:          0.05,
			TimeoutRateHigh:      0.15,
		},
	}
}

func newTestSimulator(seed int64) *SimulatorService {
	rng := rand.New(rand.NewSource(seed))
	return NewSimulatorService(testConfig(), simulation.EdgeNodes, rng, nil, nil)
}

// seedTraffic pushes requests straight into the rolling log, bypassing the
// generator, so detection behavior can be tested against a known window.
func seedTraffic(s *SimulatorService, requests []models.TrafficRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traffic = append(s.traffic, requests...)
	if len(s.traffic) > s.cfg.Simulation.TrafficCap {
		s.traffic = s.traffic[len(s.traffic)-s.cfg.Simulation.TrafficCap:]
	}
}

func errorTraffic(n int) []models.TrafficRequest {
	out := make([]models.TrafficRequest, 0, n)
	now := time.Now().UnixMilli()
	for i := 0; i < n; i++ {
		out = append(out, models.TrafficRequest{
			ID:        fmt.Sprintf("req_%d", i),
			From:      "lhr",
			To:        "cdg",
			Timestamp: now,
			Latency:   50,
			Status:    models.StatusError,
		})
	}
	return out
}

func TestSimulatorInitialState(t *testing.T) {
	s := newTestSimulator(1)

	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.ActiveSimulation())
	assert.Empty(t, s.Traffic(0))
	assert.Empty(t, s.Anomalies())

	m := s.Metrics()
	assert.Equal(t, 1.0, m.SuccessRate)
	assert.Equal(t, len(simulation.EdgeNodes), m.ActiveNodes)
	assert.Zero(t, m.TotalRequests)
}

func TestSimulatorStartStopLifecycle(t *testing.T) {
	s := newTestSimulator(2)

	sim, err := s.Start()
	require.NoError(t, err)
	require.NotNil(t, sim)
	assert.Equal(t, StateRunning, s.State())
	assert.Equal(t, models.SimulationRunning, sim.Status)
	assert.NotEmpty(t, sim.ID)

	// starting twice is a conflict
	_, err = s.Start()
	assert.Error(t, err)

	stopped, err := s.Stop()
	require.NoError(t, err)
	assert.Equal(t, StatePaused, s.State())
	assert.Equal(t, models.SimulationPaused, stopped.Status)
	assert.NotZero(t, stopped.EndTime)

	// stopping an already-paused run is an error
	_, err = s.Stop()
	assert.Error(t, err)
}

func TestSimulatorStopAndSaveWithoutArchive(t *testing.T) {
	s := newTestSimulator(3)

	_, err := s.Start()
	require.NoError(t, err)

	for i := 0; i < 30; i++ {
		s.Tick()
	}

	record, err := s.StopAndSave()
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, StateCompleted, s.State())
	assert.Equal(t, models.SimulationCompleted, record.Status)
	assert.Len(t, record.Traffic, len(s.Traffic(0)))

	// the archived snapshot must not alias live state
	record.Traffic[0].ID = "mutated"
	assert.NotEqual(t, "mutated", s.Traffic(0)[0].ID)
}

func TestSimulatorStopAndSaveIdle(t *testing.T) {
	s := newTestSimulator(4)

	_, err := s.StopAndSave()
	assert.Error(t, err)
}

func TestSimulatorReset(t *testing.T) {
	s := newTestSimulator(5)

	_, err := s.Start()
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		s.Tick()
	}

	s.Reset()
	assert.Equal(t, StateIdle, s.State())
	assert.Nil(t, s.ActiveSimulation())
	assert.Empty(t, s.Traffic(0))
	assert.Empty(t, s.Anomalies())
	assert.Empty(t, s.AnomalyHistory())
	assert.Equal(t, 1.0, s.Metrics().SuccessRate)
}

func TestTickAppendsTraffic(t *testing.T) {
	s := newTestSimulator(6)

	for i := 0; i < 100; i++ {
		s.Tick()
	}

	traffic := s.Traffic(0)
	// anomaly ticks insert bursts, so the log grows at least one per tick
	assert.GreaterOrEqual(t, len(traffic), 100)

	m := s.Metrics()
	assert.Equal(t, len(traffic), m.TotalRequests)
	assert.Greater(t, m.AverageLatency, int64(0))
}

func TestTrafficCapEviction(t *testing.T) {
	s := newTestSimulator(7)

	for i := 0; i < 1500; i++ {
		s.Tick()
	}

	traffic := s.Traffic(0)
	assert.Len(t, traffic, 1000)

	// newest entries survive eviction
	latest := s.Traffic(1)
	require.Len(t, latest, 1)
	assert.Equal(t, traffic[len(traffic)-1].ID, latest[0].ID)
}

func TestTrafficLimit(t *testing.T) {
	s := newTestSimulator(8)

	for i := 0; i < 50; i++ {
		s.Tick()
	}

	all := s.Traffic(0)
	limited := s.Traffic(10)
	require.Len(t, limited, 10)
	assert.Equal(t, all[len(all)-10:], limited)
}

func TestDetectionBelowMinimumTraffic(t *testing.T) {
	s := newTestSimulator(9)

	// even a pure-error log below the minimum produces nothing
	seedTraffic(s, errorTraffic(19))
	assert.Empty(t, s.RunDetection())
	assert.Empty(t, s.Anomalies())
}

func TestDetectionAndDeduplication(t *testing.T) {
	s := newTestSimulator(10)

	seedTraffic(s, errorTraffic(50))

	fired := s.RunDetection()
	require.Len(t, fired, 1)
	assert.Equal(t, models.AnomalyErrorRate, fired[0].Type)
	assert.Equal(t, models.SeverityCritical, fired[0].Severity)

	// the same condition within the dedup window does not re-fire
	assert.Empty(t, s.RunDetection())
	assert.Len(t, s.Anomalies(), 1)
	assert.Len(t, s.AnomalyHistory(), 1)
}

// ageAnomalies pushes every live anomaly's timestamp outside the dedup
// window, simulating the passage of time.
func ageAnomalies(s *SimulatorService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.anomalies {
		s.anomalies[i].Timestamp -= s.cfg.DedupWindow().Milliseconds() + 1000
	}
}

func TestAnomalyCapKeepsHistory(t *testing.T) {
	s := newTestSimulator(11)

	seedTraffic(s, errorTraffic(50))

	// a persisting condition re-fires once its predecessors age out of the
	// dedup window; the live list caps at 10 while history keeps everything
	for i := 0; i < 15; i++ {
		require.Len(t, s.RunDetection(), 1)
		ageAnomalies(s)
	}

	assert.Len(t, s.Anomalies(), 10)
	assert.Len(t, s.AnomalyHistory(), 15)
}

// stripVolatile clears the fields that embed wall-clock time so two runs
// over the same seed compare equal.
func stripVolatile(traffic []models.TrafficRequest) []models.TrafficRequest {
	out := append([]models.TrafficRequest(nil), traffic...)
	for i := range out {
		out[i].ID = ""
		out[i].Timestamp = 0
	}
	return out
}

func TestTrafficCapRetainsTail(t *testing.T) {
	// two simulators over the same seed generate the same request
	// sequence; the capped one must hold exactly the tail of it
	capped := newTestSimulator(42)
	uncapped := newTestSimulator(42)
	uncapped.cfg.Simulation.TrafficCap = 10000

	for i := 0; i < 1500; i++ {
		capped.Tick()
		uncapped.Tick()
	}

	full := stripVolatile(uncapped.Traffic(0))
	got := stripVolatile(capped.Traffic(0))
	require.Len(t, got, 1000)
	assert.Equal(t, full[len(full)-1000:], got)
}

func TestAnomalyByIDAndAttachAnalysis(t *testing.T) {
	s := newTestSimulator(12)

	seedTraffic(s, errorTraffic(50))
	fired := s.RunDetection()
	require.Len(t, fired, 1)

	id := fired[0].ID
	got, ok := s.AnomalyByID(id)
	require.True(t, ok)
	assert.Empty(t, got.AIExplanation)

	assert.True(t, s.AttachAnalysis(id, "upstream dependency failure", "roll back the last deploy"))
	got, ok = s.AnomalyByID(id)
	require.True(t, ok)
	assert.Equal(t, "upstream dependency failure", got.AIExplanation)
	assert.Equal(t, "roll back the last deploy", got.SuggestedAction)

	assert.False(t, s.AttachAnalysis("anomaly_missing", "x", "y"))
	_, ok = s.AnomalyByID("anomaly_missing")
	assert.False(t, ok)
}

func TestMetricsReflectWindow(t *testing.T) {
	s := newTestSimulator(13)

	seedTraffic(s, errorTraffic(100))
	s.mu.Lock()
	s.recomputeMetricsLocked()
	s.mu.Unlock()

	m := s.Metrics()
	assert.Equal(t, 100, m.TotalRequests)
	assert.Equal(t, 0.0, m.SuccessRate)
	assert.Equal(t, 100, m.ErrorCount)
	assert.Equal(t, int64(50), m.AverageLatency)
}
