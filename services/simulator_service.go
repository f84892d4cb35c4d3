package services

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"edgescope/config"
	"edgescope/models"
	"edgescope/simulation"
)

// Simulator run states. The service is idle until a run starts; stopping
// without saving pauses it, stopping with save completes and archives it.
const (
	StateIdle      = "idle"
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
)

// SimulatorService drives the traffic simulation: it owns the rolling
// traffic log, the live anomaly list and the derived metrics, and advances
// them on a fixed tick while a run is active. All shared state is guarded
// by a single mutex so mutations stay last-writer-wins.
type SimulatorService struct {
	cfg       *config.Config
	generator *simulation.Generator
	detector  *simulation.Detector
	rng       *rand.Rand

	archive    *ArchiveService
	discordBot *DiscordBotService

	mu        sync.RWMutex
	state     string
	active    *models.Simulation
	traffic   []models.TrafficRequest
	anomalies []models.Anomaly
	// full per-run detection history, distinct from the capped live list
	anomalyHistory []models.Anomaly
	metrics        models.Metrics

	stopChan chan struct{}
}

// NewSimulatorService wires the engine together. The rand source is shared
// between the orchestrator's injection decisions and the generator so a
// seeded source makes a whole run reproducible. archive and discordBot may
// be nil.
func NewSimulatorService(cfg *config.Config, nodes []models.GeoNode, rng *rand.Rand, archive *ArchiveService, discordBot *DiscordBotService) *SimulatorService {
	thresholds := simulation.Thresholds{
		LatencyMultiplier:    cfg.Detection.LatencyMultiplier,
		LatencyShare:         cfg.Detection.LatencyShare,
		LatencyCriticalShare: cfg.Detection.LatencyCriticalShare,
		ErrorRate:            cfg.Detection.ErrorRate,
		ErrorRateHigh:        cfg.Detection.ErrorRateHigh,
		ErrorRateCritical:    cfg.Detection.ErrorRateCritical,
		TimeoutRate:          cfg.Detection.TimeoutRate,
		TimeoutRateHigh:      cfg.Detection.TimeoutRateHigh,
	}

	return &SimulatorService{
		cfg:        cfg,
		generator:  simulation.NewGenerator(nodes, rng),
		detector:   simulation.NewDetector(thresholds),
		rng:        rng,
		archive:    archive,
		discordBot: discordBot,
		state:      StateIdle,
		traffic:    make([]models.TrafficRequest, 0),
		anomalies:  make([]models.Anomaly, 0),
		metrics:    initialMetrics(len(nodes)),
	}
}

func initialMetrics(nodeCount int) models.Metrics {
	return models.Metrics{
		SuccessRate: 1.0,
		ActiveNodes: nodeCount,
	}
}

// Start begins a new run: prior traffic, anomalies and metrics are cleared,
// a fresh Simulation record is created and the tick loop starts.
func (s *SimulatorService) Start() (*models.Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		return nil, fmt.Errorf("simulation already running")
	}

	now := time.Now()
	s.active = &models.Simulation{
		ID:        fmt.Sprintf("sim_%d", now.UnixMilli()),
		Name:      fmt.Sprintf("Simulation %s", now.Format("15:04:05")),
		StartTime: now.UnixMilli(),
		Status:    models.SimulationRunning,
	}
	s.traffic = make([]models.TrafficRequest, 0)
	s.anomalies = make([]models.Anomaly, 0)
	s.anomalyHistory = make([]models.Anomaly, 0)
	s.metrics = initialMetrics(len(s.generator.Nodes()))
	s.state = StateRunning

	s.stopChan = make(chan struct{})
	go s.runTickLoop(s.stopChan)

	log.Printf("Simulation started: %s", s.active.ID)
	return s.active, nil
}

// Stop halts the tick loop without saving. Traffic and anomalies stay in
// memory so the dashboard keeps showing the paused run.
func (s *SimulatorService) Stop() (*models.Simulation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return nil, fmt.Errorf("no running simulation to stop")
	}

	close(s.stopChan)
	s.state = StatePaused
	s.active.EndTime = time.Now().UnixMilli()
	s.active.Status = models.SimulationPaused

	log.Printf("Simulation paused: %s", s.active.ID)
	return s.active, nil
}

// StopAndSave halts the tick loop, snapshots the current traffic and
// anomalies into the run record and persists it. The snapshot is
// value-copied so the archived record never shares slices with live state.
// A persistence failure is returned to the caller; the run still completes.
func (s *SimulatorService) StopAndSave() (*models.Simulation, error) {
	s.mu.Lock()

	if s.active == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("no simulation to save")
	}
	if s.state == StateRunning {
		close(s.stopChan)
	}

	s.active.EndTime = time.Now().UnixMilli()
	s.active.Status = models.SimulationCompleted
	s.active.Traffic = append([]models.TrafficRequest(nil), s.traffic...)
	s.active.Anomalies = append([]models.Anomaly(nil), s.anomalies...)
	s.state = StateCompleted

	record := *s.active
	s.mu.Unlock()

	log.Printf("Simulation completed: %s (%d requests, %d anomalies)",
		record.ID, len(record.Traffic), len(record.Anomalies))

	if s.discordBot.Enabled() {
		notice := fmt.Sprintf("✅ **%s** completed: %d requests, %d anomalies",
			record.Name, len(record.Traffic), len(record.Anomalies))
		if err := s.discordBot.SendMessage(notice); err != nil {
			log.Printf("Discord completion notice failed: %v", err)
		}
	}

	if s.archive != nil {
		if err := s.archive.SaveSimulation(&record); err != nil {
			log.Printf("Failed to archive simulation %s: %v", record.ID, err)
			return &record, fmt.Errorf("simulation saved in memory but archive write failed: %w", err)
		}
	}

	return &record, nil
}

// Reset discards all in-memory run state unconditionally and returns the
// service to idle, whatever state it was in.
func (s *SimulatorService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		close(s.stopChan)
	}

	s.active = nil
	s.traffic = make([]models.TrafficRequest, 0)
	s.anomalies = make([]models.Anomaly, 0)
	s.anomalyHistory = make([]models.Anomaly, 0)
	s.metrics = initialMetrics(len(s.generator.Nodes()))
	s.state = StateIdle

	log.Println("Simulation state reset")
}

func (s *SimulatorService) runTickLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Tick()
		case <-stop:
			return
		}
	}
}

// Tick advances the simulation by one step: usually one normal request,
// occasionally an anomaly-flavored batch. Exported so tests can drive the
// simulation without waiting on the wall clock. The tick body is fully
// synchronous, so ticks never overlap.
func (s *SimulatorService) Tick() {
	var batch []models.TrafficRequest

	if s.rng.Float64() < s.cfg.Simulation.AnomalyChance {
		if s.rng.Float64() < 0.5 {
			batch = []models.TrafficRequest{s.generator.InjectLatencyAnomaly()}
		} else {
			batch = s.generator.InjectErrorBurst(s.cfg.Simulation.ErrorBurstSize, "")
		}
	} else {
		batch = []models.TrafficRequest{s.generator.GenerateOne()}
	}

	s.mu.Lock()
	for _, req := range batch {
		s.traffic = append(s.traffic, req)
	}
	if len(s.traffic) > s.cfg.Simulation.TrafficCap {
		s.traffic = s.traffic[len(s.traffic)-s.cfg.Simulation.TrafficCap:]
	}

	fired := s.detectLocked()
	s.recomputeMetricsLocked()
	s.mu.Unlock()

	// Discord push happens outside the lock; it is best effort.
	for _, a := range fired {
		if models.SeverityRank(a.Severity) >= models.SeverityRank(models.SeverityCritical) && s.discordBot.Enabled() {
			if err := s.discordBot.SendAnomalyAlert(&a); err != nil {
				log.Printf("Discord anomaly notification failed: %v", err)
			}
		}
	}
}

// RunDetection evaluates the detector over the recent window and applies
// de-duplication, exactly as a tick would. Exposed for tests and for
// reactive re-evaluation; re-running it on an unchanged window within the
// dedup interval adds nothing.
func (s *SimulatorService) RunDetection() []models.Anomaly {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectLocked()
}

// detectLocked runs detection over the last DetectionWindow entries once
// the log is big enough. A new anomaly is suppressed when one of the same
// type fired within the dedup window, so a persisting condition doesn't
// re-emit every tick. Caller must hold s.mu.
func (s *SimulatorService) detectLocked() []models.Anomaly {
	if len(s.traffic) < s.cfg.Simulation.DetectionMinTraffic {
		return nil
	}

	window := s.traffic
	if len(window) > s.cfg.Simulation.DetectionWindow {
		window = window[len(window)-s.cfg.Simulation.DetectionWindow:]
	}

	detected := s.detector.Detect(window)
	if len(detected) == 0 {
		return nil
	}

	cutoff := time.Now().Add(-s.cfg.DedupWindow()).UnixMilli()
	fired := make([]models.Anomaly, 0, len(detected))

	for _, a := range detected {
		if s.hasRecentAnomalyLocked(a.Type, cutoff) {
			continue
		}
		s.anomalies = append(s.anomalies, a)
		if len(s.anomalies) > s.cfg.Simulation.AnomalyCap {
			s.anomalies = s.anomalies[len(s.anomalies)-s.cfg.Simulation.AnomalyCap:]
		}
		s.anomalyHistory = append(s.anomalyHistory, a)
		fired = append(fired, a)
		log.Printf("Anomaly detected: %s [%s] %s", a.Type, a.Severity, a.Description)
	}

	return fired
}

func (s *SimulatorService) hasRecentAnomalyLocked(anomalyType string, cutoff int64) bool {
	for _, existing := range s.anomalies {
		if existing.Type == anomalyType && existing.Timestamp >= cutoff {
			return true
		}
	}
	return false
}

// recomputeMetricsLocked rebuilds metrics from the last MetricsWindow
// traffic entries. Caller must hold s.mu.
func (s *SimulatorService) recomputeMetricsLocked() {
	window := s.traffic
	if len(window) > s.cfg.Simulation.MetricsWindow {
		window = window[len(window)-s.cfg.Simulation.MetricsWindow:]
	}

	m := models.Metrics{
		TotalRequests: len(s.traffic),
		SuccessRate:   1.0,
		AnomalyCount:  len(s.anomalies),
		ActiveNodes:   len(s.generator.Nodes()),
	}

	if len(window) > 0 {
		var successCount, errorCount int
		var latencySum int64
		for _, r := range window {
			latencySum += r.Latency
			switch r.Status {
			case models.StatusSuccess:
				successCount++
			case models.StatusError:
				errorCount++
			}
		}
		m.SuccessRate = float64(successCount) / float64(len(window))
		m.AverageLatency = latencySum / int64(len(window))
		m.ErrorCount = errorCount
	}

	s.metrics = m
}

// State returns the current run state.
func (s *SimulatorService) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ActiveSimulation returns a copy of the current run record, nil when idle.
func (s *SimulatorService) ActiveSimulation() *models.Simulation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil
	}
	record := *s.active
	return &record
}

// Traffic returns the most recent limit entries of the rolling log, newest
// last. limit <= 0 returns the whole log.
func (s *SimulatorService) Traffic(limit int) []models.TrafficRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if limit > 0 && len(s.traffic) > limit {
		start = len(s.traffic) - limit
	}
	return append([]models.TrafficRequest(nil), s.traffic[start:]...)
}

// Anomalies returns a copy of the live anomaly list.
func (s *SimulatorService) Anomalies() []models.Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Anomaly(nil), s.anomalies...)
}

// AnomalyHistory returns every anomaly detected during the current run,
// including ones already evicted from the live list.
func (s *SimulatorService) AnomalyHistory() []models.Anomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Anomaly(nil), s.anomalyHistory...)
}

// AnomalyByID looks up a live anomaly.
func (s *SimulatorService) AnomalyByID(id string) (models.Anomaly, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.anomalies {
		if a.ID == id {
			return a, true
		}
	}
	return models.Anomaly{}, false
}

// AttachAnalysis records the AI explanation on a live anomaly. Responses
// are correlated by anomaly id, not arrival order, since analysis calls can
// complete out of order.
func (s *SimulatorService) AttachAnalysis(id, explanation, suggestedAction string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.anomalies {
		if s.anomalies[i].ID == id {
			s.anomalies[i].AIExplanation = explanation
			s.anomalies[i].SuggestedAction = suggestedAction
			return true
		}
	}
	return false
}

// Metrics returns the current derived metrics.
func (s *SimulatorService) Metrics() models.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// Nodes exposes the registry the simulator runs over.
func (s *SimulatorService) Nodes() []models.GeoNode {
	return s.generator.Nodes()
}
