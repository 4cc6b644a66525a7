// Package agentclient provides the HTTP client the orchestrator uses to probe
// and deploy agents at their registered endpoints.
package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

// ErrNoEndpoint is returned when an agent registered without an endpoint.
var ErrNoEndpoint = errors.New("agent has no endpoint")

// ProbeResult is the outcome of a health probe.
type ProbeResult struct {
	Status  domain.AgentStatus
	Metrics map[string]float64
}

// healthResponse is the body an agent may return from GET /health.
type healthResponse struct {
	Status  string             `json:"status"`
	Metrics map[string]float64 `json:"metrics"`
}

// Client is an HTTP client for talking to agents.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new agent client. Per-call deadlines come from ctx.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Minute,
		},
	}
}

// Probe calls the agent's /health endpoint. Any 2xx response means healthy
// unless the body explicitly reports another known status.
func (c *Client) Probe(ctx context.Context, agent domain.Agent) (ProbeResult, error) {
	if agent.Endpoint == "" {
		return ProbeResult{}, ErrNoEndpoint
	}

	url := strings.TrimSuffix(agent.Endpoint, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to probe agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ProbeResult{}, fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	result := ProbeResult{Status: domain.AgentStatusHealthy}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return result, nil
	}
	var hr healthResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		return result, nil
	}
	if s := domain.AgentStatus(hr.Status); s.Valid() {
		result.Status = s
	}
	result.Metrics = hr.Metrics
	return result, nil
}

// deployRequest is sent to POST /deploy on the agent.
type deployRequest struct {
	DeploymentID string `json:"deploymentId"`
	AgentID      string `json:"agentId"`
	Strategy     string `json:"strategy"`
}

// Deploy asks the agent to bring itself up for the given deployment.
func (c *Client) Deploy(ctx context.Context, deployment *domain.Deployment, agent domain.Agent) error {
	if agent.Endpoint == "" {
		return ErrNoEndpoint
	}

	body, err := json.Marshal(deployRequest{
		DeploymentID: deployment.ID,
		AgentID:      agent.AgentID,
		Strategy:     deployment.Plan.Strategy,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(agent.Endpoint, "/") + "/deploy"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Deployment-ID", deployment.ID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deploy agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}
	return nil
}
