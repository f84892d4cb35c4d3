package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"edgescope/simulation"
	"edgescope/utils"
)

// NodeHandlers serves the static edge-node registry.
type NodeHandlers struct {
	resolver *utils.GeoResolver
}

func NewNodeHandlers(resolver *utils.GeoResolver) *NodeHandlers {
	return &NodeHandlers{resolver: resolver}
}

func (nh *NodeHandlers) GetNodes(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"nodes": simulation.EdgeNodes,
		"count": len(simulation.EdgeNodes),
	})
}

func (nh *NodeHandlers) GetNode(c echo.Context) error {
	id := c.Param("id")

	node, found := simulation.NodeByID(simulation.EdgeNodes, id)
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "node not found"})
	}
	return c.JSON(http.StatusOK, node)
}

func (nh *NodeHandlers) GetRegions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"regions": simulation.Regions(simulation.EdgeNodes),
	})
}

func (nh *NodeHandlers) GetNodesByRegion(c echo.Context) error {
	region := c.Param("region")

	nodes := simulation.NodesByRegion(simulation.EdgeNodes, region)
	if len(nodes) == 0 {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no nodes in region"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"region": region,
		"nodes":  nodes,
		"count":  len(nodes),
	})
}

// GetNearestNode resolves the caller's IP and returns the closest edge node.
// Falls back to the client-supplied ?ip= override for local development,
// where RealIP is a loopback address that won't geolocate.
func (nh *NodeHandlers) GetNearestNode(c echo.Context) error {
	ip := c.QueryParam("ip")
	if ip == "" {
		ip = c.RealIP()
	}

	node, distanceKm, found := nh.resolver.NearestNode(ip, simulation.EdgeNodes)
	if !found {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"ip":    ip,
			"found": false,
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ip":         ip,
		"found":      true,
		"node":       node,
		"distanceKm": distanceKm,
	})
}
