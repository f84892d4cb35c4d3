package simulation

import (
	"fmt"

	"edgescope/models"
)

// EdgeNodes is the static catalogue of simulated points of presence,
// modeled on major CDN edge locations.
var EdgeNodes = []models.GeoNode{
	// North America
	{ID: "sfo", Name: "San Francisco", City: "San Francisco", Country: "USA", Lat: 37.7749, Lng: -122.4194, Region: "North America"},
	{ID: "lax", Name: "Los Angeles", City: "Los Angeles", Country: "USA", Lat: 34.0522, Lng: -118.2437, Region: "North America"},
	{ID: "sea", Name: "Seattle", City: "Seattle", Country: "USA", Lat: 47.6062, Lng: -122.3321, Region: "North America"},
	{ID: "dfw", Name: "Dallas", City: "Dallas", Country: "USA", Lat: 32.7767, Lng: -96.7970, Region: "North America"},
	{ID: "ord", Name: "Chicago", City: "Chicago", Country: "USA", Lat: 41.8781, Lng: -87.6298, Region: "North America"},
	{ID: "iad", Name: "Washington DC", City: "Washington", Country: "USA", Lat: 38.9072, Lng: -77.0369, Region: "North America"},
	{ID: "ewr", Name: "New York", City: "New York", Country: "USA", Lat: 40.7128, Lng: -74.0060, Region: "North America"},
	{ID: "yyz", Name: "Toronto", City: "Toronto", Country: "Canada", Lat: 43.6532, Lng: -79.3832, Region: "North America"},

	// Europe
	{ID: "lhr", Name: "London", City: "London", Country: "UK", Lat: 51.5074, Lng: -0.1278, Region: "Europe"},
	{ID: "cdg", Name: "Paris", City: "Paris", Country: "France", Lat: 48.8566, Lng: 2.3522, Region: "Europe"},
	{ID: "fra", Name: "Frankfurt", City: "Frankfurt", Country: "Germany", Lat: 50.1109, Lng: 8.6821, Region: "Europe"},
	{ID: "ams", Name: "Amsterdam", City: "Amsterdam", Country: "Netherlands", Lat: 52.3676, Lng: 4.9041, Region: "Europe"},
	{ID: "mad", Name: "Madrid", City: "Madrid", Country: "Spain", Lat: 40.4168, Lng: -3.7038, Region: "Europe"},
	{ID: "arn", Name: "Stockholm", City: "Stockholm", Country: "Sweden", Lat: 59.3293, Lng: 18.0686, Region: "Europe"},

	// Asia Pacific
	{ID: "nrt", Name: "Tokyo", City: "Tokyo", Country: "Japan", Lat: 35.6762, Lng: 139.6503, Region: "Asia"},
	{ID: "sin", Name: "Singapore", City: "Singapore", Country: "Singapore", Lat: 1.3521, Lng: 103.8198, Region: "Asia"},
	{ID: "hkg", Name: "Hong Kong", City: "Hong Kong", Country: "Hong Kong", Lat: 22.3193, Lng: 114.1694, Region: "Asia"},
	{ID: "syd", Name: "Sydney", City: "Sydney", Country: "Australia", Lat: -33.8688, Lng: 151.2093, Region: "Oceania"},
	{ID: "bom", Name: "Mumbai", City: "Mumbai", Country: "India", Lat: 19.0760, Lng: 72.8777, Region: "Asia"},
	{ID: "icn", Name: "Seoul", City: "Seoul", Country: "South Korea", Lat: 37.5665, Lng: 126.9780, Region: "Asia"},

	// South America
	{ID: "gru", Name: "São Paulo", City: "São Paulo", Country: "Brazil", Lat: -23.5505, Lng: -46.6333, Region: "South America"},
	{ID: "eze", Name: "Buenos Aires", City: "Buenos Aires", Country: "Argentina", Lat: -34.6037, Lng: -58.3816, Region: "South America"},

	// Africa & Middle East
	{ID: "jnb", Name: "Johannesburg", City: "Johannesburg", Country: "South Africa", Lat: -26.2041, Lng: 28.0473, Region: "Africa"},
	{ID: "dxb", Name: "Dubai", City: "Dubai", Country: "UAE", Lat: 25.2048, Lng: 55.2708, Region: "Middle East"},
}

// ValidateRegistry checks the startup precondition: the generator needs at
// least two distinct nodes to draw a from/to pair.
func ValidateRegistry(nodes []models.GeoNode) error {
	if len(nodes) < 2 {
		return fmt.Errorf("node registry needs at least 2 nodes, got %d", len(nodes))
	}
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ID == "" {
			return fmt.Errorf("node registry contains a node with empty id")
		}
		if seen[n.ID] {
			return fmt.Errorf("node registry contains duplicate id %q", n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}

// NodeByID finds a node in the registry.
func NodeByID(nodes []models.GeoNode, id string) (models.GeoNode, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return models.GeoNode{}, false
}

// NodesByRegion returns all nodes in a region.
func NodesByRegion(nodes []models.GeoNode, region string) []models.GeoNode {
	out := make([]models.GeoNode, 0)
	for _, n := range nodes {
		if n.Region == region {
			out = append(out, n)
		}
	}
	return out
}

// Regions lists the distinct regions in registry order.
func Regions(nodes []models.GeoNode) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, n := range nodes {
		if !seen[n.Region] {
			seen[n.Region] = true
			out = append(out, n.Region)
		}
	}
	return out
}
