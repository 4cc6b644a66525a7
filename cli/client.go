package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

// Client talks to the orchestrator control plane.
type Client struct {
	baseURL    string
	agentID    string
	httpClient *http.Client
}

// NewClient creates a client for the control plane at baseURL. agentID, if
// set, is sent as X-Agent-ID.
func NewClient(baseURL, agentID string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		agentID: agentID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError is the failure envelope returned by every route.
type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.agentID != "" {
		req.Header.Set("X-Agent-ID", c.agentID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e apiError
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, e.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Status fetches the coordination summary.
func (c *Client) Status(ctx context.Context) (*domain.CoordinationStatus, error) {
	var resp struct {
		Coordination domain.CoordinationStatus `json:"coordination"`
	}
	if err := c.do(ctx, http.MethodGet, "/coordination/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Coordination, nil
}

// Deploy starts a deployment and returns its id.
func (c *Client) Deploy(ctx context.Context, components []string, strategy string) (string, error) {
	var resp struct {
		DeploymentID string `json:"deploymentId"`
	}
	req := domain.DeployRequest{Components: components, Strategy: strategy}
	if err := c.do(ctx, http.MethodPost, "/coordination/deploy", req, &resp); err != nil {
		return "", err
	}
	return resp.DeploymentID, nil
}

// Deployment fetches a deployment record.
func (c *Client) Deployment(ctx context.Context, id string) (*domain.Deployment, error) {
	var resp struct {
		Deployment domain.Deployment `json:"deployment"`
	}
	if err := c.do(ctx, http.MethodGet, "/coordination/deployments/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Deployment, nil
}

// WaitDeployment polls until the deployment reaches a terminal status.
func (c *Client) WaitDeployment(ctx context.Context, id string, every time.Duration) (*domain.Deployment, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		d, err := c.Deployment(ctx, id)
		if err != nil {
			return nil, err
		}
		if d.Finished() {
			return d, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Register registers an agent.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/agents/register", req, nil)
}

// Heartbeat reports liveness for an agent.
func (c *Client) Heartbeat(ctx context.Context, agentID string, status domain.AgentStatus) error {
	req := domain.HeartbeatRequest{Status: status}
	return c.do(ctx, http.MethodPost, "/agents/"+url.PathEscape(agentID)+"/heartbeat", req, nil)
}

// Stream opens the push stream for an agent.
func (c *Client) Stream(ctx context.Context, agentID string) (*websocket.Conn, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/agents/" + url.PathEscape(agentID) + "/stream"

	header := http.Header{}
	header.Set("X-Agent-ID", agentID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}
