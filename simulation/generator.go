package simulation

import (
	"fmt"
	"math/rand"
	"time"

	"edgescope/models"
)

var (
	requestMethods = []string{"GET", "POST", "PUT", "DELETE"}
	requestPaths   = []string{"/api/data", "/api/users", "/api/analytics", "/api/config", "/api/metrics"}

	// response codes used for injected error bursts
	burstErrorCodes = []int{500, 502, 503}
)

const (
	successRate = 0.95

	// latency anomaly injection
	latencySpikeMultiplier = 5
	latencySpikeRangeMs    = 1000
	spikeTimeoutChance     = 0.3

	// chance an error-burst request ignores the affected-node bias and
	// draws from the full registry
	burstFullRegistryChance = 0.3
)

// Generator produces synthetic traffic between registry nodes. All
// randomness flows through the injected source so tests can seed it.
type Generator struct {
	nodes []models.GeoNode
	rng   *rand.Rand
}

// NewGenerator builds a generator over the given registry. The registry
// must have passed ValidateRegistry (>= 2 distinct nodes).
func NewGenerator(nodes []models.GeoNode, rng *rand.Rand) *Generator {
	return &Generator{nodes: nodes, rng: rng}
}

// Nodes returns the registry the generator draws from.
func (g *Generator) Nodes() []models.GeoNode {
	return g.nodes
}

// GenerateOne produces a single request between two distinct random nodes.
func (g *Generator) GenerateOne() models.TrafficRequest {
	return g.generateFrom(g.nodes)
}

func (g *Generator) generateFrom(pool []models.GeoNode) models.TrafficRequest {
	from := pool[g.rng.Intn(len(pool))]
	to := pool[g.rng.Intn(len(pool))]
	for to.ID == from.ID {
		to = pool[g.rng.Intn(len(pool))]
	}

	latency := EstimateLatency(g.rng, from, to)

	status := models.StatusSuccess
	if g.rng.Float64() >= successRate {
		if g.rng.Float64() < 0.5 {
			status = models.StatusError
		} else {
			status = models.StatusTimeout
		}
	}

	code := 200
	switch status {
	case models.StatusError:
		code = 500
	case models.StatusTimeout:
		code = 504
	}

	now := time.Now()
	return models.TrafficRequest{
		ID:           fmt.Sprintf("req_%d_%06d", now.UnixMilli(), g.rng.Intn(1000000)),
		From:         from.ID,
		To:           to.ID,
		Timestamp:    now.UnixMilli(),
		Latency:      latency,
		Status:       status,
		Method:       requestMethods[g.rng.Intn(len(requestMethods))],
		Path:         requestPaths[g.rng.Intn(len(requestPaths))],
		ResponseCode: code,
	}
}

// GenerateBatch produces n independent requests.
func (g *Generator) GenerateBatch(n int) []models.TrafficRequest {
	batch := make([]models.TrafficRequest, 0, n)
	for i := 0; i < n; i++ {
		batch = append(batch, g.GenerateOne())
	}
	return batch
}

// InjectLatencyAnomaly produces a request with a severe latency spike:
// 5x the normal estimate plus up to a second of extra delay, with a 30%
// chance of being forced into a timeout.
func (g *Generator) InjectLatencyAnomaly() models.TrafficRequest {
	req := g.GenerateOne()
	req.Latency = req.Latency*latencySpikeMultiplier + int64(g.rng.Float64()*latencySpikeRangeMs)
	if g.rng.Float64() < spikeTimeoutChance {
		req.Status = models.StatusTimeout
		req.ResponseCode = 504
	}
	return req
}

// InjectErrorBurst produces n failing requests. When affectedNode names a
// registry node, selection is biased toward pairs touching that node, but
// roughly 30% of draws still come from the full registry so the burst
// doesn't look perfectly surgical.
func (g *Generator) InjectErrorBurst(n int, affectedNode string) []models.TrafficRequest {
	burst := make([]models.TrafficRequest, 0, n)
	for i := 0; i < n; i++ {
		pool := g.nodes
		if affectedNode != "" && g.rng.Float64() >= burstFullRegistryChance {
			if biased := g.poolAround(affectedNode); len(biased) >= 2 {
				pool = biased
			}
		}

		req := g.generateFrom(pool)
		req.Status = models.StatusError
		req.ResponseCode = burstErrorCodes[g.rng.Intn(len(burstErrorCodes))]
		burst = append(burst, req)
	}
	return burst
}

// poolAround returns the affected node plus one random peer, so a draw
// from it always touches the affected node.
func (g *Generator) poolAround(nodeID string) []models.GeoNode {
	node, ok := NodeByID(g.nodes, nodeID)
	if !ok {
		return nil
	}
	peer := g.nodes[g.rng.Intn(len(g.nodes))]
	for peer.ID == node.ID {
		peer = g.nodes[g.rng.Intn(len(g.nodes))]
	}
	return []models.GeoNode{node, peer}
}
