package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/service"
	transport "github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/transport/http"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/transport/ws"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/tests/helpers"
)

func newControlPlane(t *testing.T) (*httptest.Server, *ws.Hub) {
	t.Helper()
	cfg := config.Default()
	hub := ws.NewHub()
	svc := service.New(service.Deps{
		Store:  helpers.NewTestSQLiteStore(t),
		Config: cfg,
		Policy: helpers.NewTestPolicyEngine(t),
		Pusher: hub,
	})
	srv := httptest.NewServer(transport.NewServer(svc, hub, cfg))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		svc.Stop()
	})
	return srv, hub
}

func TestClientRegisterDeployAndStatus(t *testing.T) {
	srv, _ := newControlPlane(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := NewClient(srv.URL+"/", "")

	require.NoError(t, client.Register(ctx, domain.RegisterRequest{AgentID: "log-1", Type: domain.AgentTypeLogging}))
	require.NoError(t, client.Heartbeat(ctx, "log-1", domain.AgentStatusHealthy))
	require.NoError(t, client.Register(ctx, domain.RegisterRequest{AgentID: "dash-1", Type: domain.AgentTypeDashboard}))

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.TotalAgents)
	assert.Equal(t, 1, status.HealthyAgents)

	id, err := client.Deploy(ctx, nil, "")
	require.NoError(t, err)

	d, err := client.WaitDeployment(ctx, id, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, domain.DeploymentStatusCompleted, d.Status)
	require.Len(t, d.Steps, 2)
	assert.Equal(t, "log-1", d.Steps[0].AgentID)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv, _ := newControlPlane(t)
	client := NewClient(srv.URL, "")

	_, err := client.Deployment(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "deployment not found")
}

func TestClientStreamReceivesPush(t *testing.T) {
	srv, hub := newControlPlane(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := NewClient(srv.URL, "bot-1")

	require.NoError(t, client.Register(ctx, domain.RegisterRequest{AgentID: "bot-1", Type: domain.AgentTypeWhatsAppBot}))

	conn, err := client.Stream(ctx, "bot-1")
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected("bot-1") }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Push("bot-1", domain.MessageTypeSync, map[string]string{"k": "v"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev domain.PushEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, domain.MessageTypeSync, ev.Event)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b "))
	assert.Nil(t, splitList(""))
}
