package api

import (
	"encoding/json"
	"net/http"

	"medchain/api/server"
)

func (c *Client) GetHealthMetrics() (server.NodeHealthResponse, error) {
	var out server.NodeHealthResponse
	err := c.do(http.MethodGet, "/nodehealth", nil, &out)
	return out, err
}

func (c *Client) GetLiveness() (bool, error) {
	var out server.LivenessResponse
	err := c.do(http.MethodGet, "/health/liveness", nil, &out)
	return out.Alive, err
}

// GetReadiness reads the probe body even when the node answers 503.
func (c *Client) GetReadiness() (bool, error) {
	resp, err := c.send(http.MethodGet, "/health/readiness", nil)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	var out server.ReadinessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Ready, nil
}
