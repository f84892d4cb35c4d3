package models

// GeoNode represents a simulated edge location. Nodes are loaded once at
// startup and never change afterwards.
type GeoNode struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Region  string  `json:"region"` // e.g. "North America", "Europe", "Asia"
}
