package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgescope/simulation"
	"edgescope/utils"
)

func newNodeTestHandlers(t *testing.T) *NodeHandlers {
	t.Helper()
	resolver, err := utils.NewGeoResolver("")
	require.NoError(t, err)
	t.Cleanup(resolver.Close)
	return NewNodeHandlers(resolver)
}

func TestGetNodes(t *testing.T) {
	nh := newNodeTestHandlers(t)
	e := echo.New()

	rec := doRequest(e, nh.GetNodes, http.MethodGet, "/api/nodes")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Nodes []struct {
			ID     string `json:"id"`
			Region string `json:"region"`
		} `json:"nodes"`
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, len(simulation.EdgeNodes), resp.Count)
	assert.Len(t, resp.Nodes, resp.Count)
}

func TestGetNodeByID(t *testing.T) {
	nh := newNodeTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/nodes/fra", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("fra")
	require.NoError(t, nh.GetNode(c))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Frankfurt"`)
}

func TestGetNodeNotFound(t *testing.T) {
	nh := newNodeTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/nodes/xxx", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("xxx")
	require.NoError(t, nh.GetNode(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetNodesByRegion(t *testing.T) {
	nh := newNodeTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/regions/Europe/nodes", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("region")
	c.SetParamValues("Europe")
	require.NoError(t, nh.GetNodesByRegion(c))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Region string            `json:"region"`
		Count  int               `json:"count"`
		Nodes  []json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Europe", resp.Region)
	assert.Equal(t, 6, resp.Count)
}

func TestGetNodesByRegionNotFound(t *testing.T) {
	nh := newNodeTestHandlers(t)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/regions/Atlantis/nodes", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("region")
	c.SetParamValues("Atlantis")
	require.NoError(t, nh.GetNodesByRegion(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRegions(t *testing.T) {
	nh := newNodeTestHandlers(t)
	e := echo.New()

	rec := doRequest(e, nh.GetRegions, http.MethodGet, "/api/regions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "North America")
	assert.Contains(t, rec.Body.String(), "Europe")
}
