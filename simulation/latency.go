package simulation

import (
	"math"
	"math/rand"

	"edgescope/models"
)

const (
	earthRadiusKm = 6371

	// ~20ms of latency per 1000km of great-circle distance
	msPerThousandKm = 20

	// jitter drawn uniformly from [-latencyJitterMs, +latencyJitterMs]
	latencyJitterMs = 15

	minLatencyMs = 10
)

// DistanceKm returns the great-circle distance between two nodes
// (haversine formula).
func DistanceKm(from, to models.GeoNode) float64 {
	dLat := (to.Lat - from.Lat) * math.Pi / 180
	dLng := (to.Lng - from.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(from.Lat*math.Pi/180)*math.Cos(to.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// EstimateLatency returns a synthetic latency in whole milliseconds for a
// request between two nodes: distance-proportional base plus random jitter,
// clamped to a 10ms floor. Not deterministic unless rng is seeded.
func EstimateLatency(rng *rand.Rand, from, to models.GeoNode) int64 {
	base := DistanceKm(from, to) / 1000 * msPerThousandKm
	jitter := rng.Float64()*2*latencyJitterMs - latencyJitterMs

	latency := int64(math.Round(base + jitter))
	if latency < minLatencyMs {
		latency = minLatencyMs
	}
	return latency
}
