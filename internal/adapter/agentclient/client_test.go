package agentclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

func TestProbeHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"healthy","metrics":{"queue":3}}`)
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client()}
	result, err := client.Probe(context.Background(), domain.Agent{AgentID: "a1", Endpoint: server.URL + "/"})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentStatusHealthy, result.Status)
	assert.Equal(t, float64(3), result.Metrics["queue"])
}

func TestProbeReportedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"unhealthy"}`)
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client()}
	result, err := client.Probe(context.Background(), domain.Agent{Endpoint: server.URL})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentStatusUnhealthy, result.Status)
}

func TestProbeNonJSONBodyIsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "OK")
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client()}
	result, err := client.Probe(context.Background(), domain.Agent{Endpoint: server.URL})
	require.NoError(t, err)
	assert.Equal(t, domain.AgentStatusHealthy, result.Status)
	assert.Nil(t, result.Metrics)
}

func TestProbeErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client()}
	_, err := client.Probe(context.Background(), domain.Agent{Endpoint: server.URL})
	assert.Error(t, err)

	_, err = client.Probe(context.Background(), domain.Agent{})
	assert.ErrorIs(t, err, ErrNoEndpoint)
}

func TestProbeHonoursContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := &Client{httpClient: server.Client()}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Probe(ctx, domain.Agent{Endpoint: server.URL})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDeploy(t *testing.T) {
	var got deployRequest
	var header string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deploy" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		header = r.Header.Get("X-Deployment-ID")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client()}
	dep := &domain.Deployment{ID: "dep-1", Plan: domain.DeploymentPlan{Strategy: "sequential"}}
	err := client.Deploy(context.Background(), dep, domain.Agent{AgentID: "a1", Endpoint: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "dep-1", header)
	assert.Equal(t, "a1", got.AgentID)
	assert.Equal(t, "sequential", got.Strategy)
}

func TestDeployFailureIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "disk full")
	}))
	defer server.Close()

	client := &Client{httpClient: server.Client()}
	err := client.Deploy(context.Background(), &domain.Deployment{ID: "d"}, domain.Agent{Endpoint: server.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
