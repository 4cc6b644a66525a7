package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
)

func TestReRegisterKeepsTableSize(t *testing.T) {
	env := newTestService(t, nil)
	svc := env.svc

	svc.RegisterAgent("bot-1", domain.AgentTypeWhatsAppBot, []string{"send"}, "http://a")
	svc.RegisterAgent("bot-1", domain.AgentTypeWhatsAppBot, []string{"send", "receive"}, "http://b")

	status := svc.CoordinationStatus()
	require.Equal(t, 1, status.TotalAgents)
	assert.Equal(t, []string{"send", "receive"}, status.Agents[0].Capabilities)

	a, _ := svc.GetAgent("bot-1")
	assert.Equal(t, "http://b", a.Endpoint)
}

func TestHeartbeatUnknownAgent(t *testing.T) {
	env := newTestService(t, nil)
	svc := env.svc

	assert.False(t, svc.Heartbeat("ghost", domain.AgentStatusHealthy, nil))
	assert.Equal(t, 0, svc.CoordinationStatus().TotalAgents)
}

func TestHeartbeatDefaultsToHealthy(t *testing.T) {
	env := newTestService(t, nil)
	svc := env.svc

	svc.RegisterAgent("log-1", domain.AgentTypeLogging, nil, "")
	require.True(t, svc.Heartbeat("log-1", "", map[string]float64{"written": 10}))

	status := svc.CoordinationStatus()
	assert.Equal(t, 1, status.HealthyAgents)
	a, _ := svc.GetAgent("log-1")
	assert.Equal(t, float64(10), a.Metrics["written"])
}

func TestCommunicateLogsIntent(t *testing.T) {
	env := newTestService(t, nil)
	ctx := context.Background()

	id, err := env.svc.Communicate(ctx, "bot-1", "log-1", map[string]interface{}{"text": "hi"}, "notice")
	require.NoError(t, err)
	assert.Contains(t, id, "msg_")

	records, err := env.store.Get(ctx, domain.CollectionCommunication, repository.Query{"id": id})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "bot-1", records[0]["fromAgent"])
	assert.Equal(t, "log-1", records[0]["toAgent"])
	assert.Equal(t, "notice", records[0]["type"])
	assert.NotEmpty(t, records[0]["timestamp"])
}

func TestDataPassThrough(t *testing.T) {
	env := newTestService(t, nil)
	ctx := context.Background()

	saved, err := env.svc.SaveData(ctx, "leads", repository.Record{"phone": "+55"})
	require.NoError(t, err)
	require.NotEmpty(t, saved["id"])

	got, err := env.svc.GetData(ctx, "leads", repository.Query{"phone": "+55"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDatabaseConnected(t *testing.T) {
	env := newTestService(t, nil)
	assert.True(t, env.svc.DatabaseConnected(context.Background()))
	assert.Equal(t, repository.ModeDatabase, env.svc.StoreMode())
}

func TestUpdateConfig(t *testing.T) {
	pusher := newFakePusher("dash-1")
	env := newTestService(t, func(d *Deps) {
		d.Pusher = pusher
		d.Business = config.NewBusiness(map[string]interface{}{"business": map[string]interface{}{"name": "Fair Cambio"}})
	})
	svc := env.svc
	ctx := context.Background()
	svc.RegisterAgent("dash-1", domain.AgentTypeDashboard, nil, "")

	require.NoError(t, svc.UpdateConfig(ctx, "business.hours.open", "08:30", "dash-1"))

	snap := svc.ConfigSnapshot()
	hours := snap["business"].(map[string]interface{})["hours"].(map[string]interface{})
	assert.Equal(t, "08:30", hours["open"])
	assert.Equal(t, []string{domain.MessageTypeConfigUpdated}, pusher.Events("dash-1"))

	updates, err := env.store.Get(ctx, domain.CollectionConfigUpdates, repository.Query{"agentId": "dash-1"})
	require.NoError(t, err)
	assert.Len(t, updates, 1)
}

func TestUpdateConfigDenied(t *testing.T) {
	env := newTestService(t, nil)
	svc := env.svc
	ctx := context.Background()

	err := svc.UpdateConfig(ctx, "business.name", "x", "stranger")
	assert.ErrorIs(t, err, ErrPolicyDenied)

	err = svc.UpdateConfig(ctx, "orchestrator.syncEnabled", true, "admin")
	assert.ErrorIs(t, err, ErrPolicyDenied)
	assert.Equal(t, false, svc.ConfigSnapshot()["orchestrator"].(map[string]interface{})["syncEnabled"])

	err = svc.UpdateConfig(ctx, "orchestrator", map[string]interface{}{"syncEnabled": true}, "admin")
	assert.ErrorIs(t, err, ErrPolicyDenied)
	assert.Equal(t, false, svc.ConfigSnapshot()["orchestrator"].(map[string]interface{})["syncEnabled"])
}

func TestConfigSnapshotIsReadOnlyView(t *testing.T) {
	env := newTestService(t, func(d *Deps) {
		d.Business = config.NewBusiness(map[string]interface{}{"business": map[string]interface{}{"name": "Fair Cambio"}})
	})
	snap := env.svc.ConfigSnapshot()
	snap["business"].(map[string]interface{})["name"] = "mutated"

	again := env.svc.ConfigSnapshot()
	assert.Equal(t, "Fair Cambio", again["business"].(map[string]interface{})["name"])
}
