package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
)

func TestBuildSnapshot(t *testing.T) {
	env := newTestService(t, func(d *Deps) {
		d.Business = config.NewBusiness(map[string]interface{}{"business": map[string]interface{}{"name": "Fair Cambio"}})
	})
	ctx := context.Background()

	_, err := env.store.Save(ctx, domain.CollectionExchangeRates, repository.Record{"currency": "USD", "buy": 5.1}, "usd")
	require.NoError(t, err)
	_, err = env.store.Save(ctx, domain.CollectionBranches, repository.Record{"name": "Centro"}, "b1")
	require.NoError(t, err)

	snap, err := env.svc.BuildSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Rates, 1)
	assert.Equal(t, "USD", snap.Rates[0]["currency"])
	require.Len(t, snap.Branches, 1)
	assert.Equal(t, "Centro", snap.Config["business"].(map[string]interface{})["name"])
	assert.Contains(t, snap.Config, "orchestrator")
	assert.False(t, snap.Timestamp.IsZero())
}

func TestSyncOnceDistributesToSubscribersOnly(t *testing.T) {
	pusher := newFakePusher("bot-1", "dash-1")
	pusher.failFor["bot-1"] = errors.New("socket closed")
	env := newTestService(t, func(d *Deps) { d.Pusher = pusher })
	svc := env.svc
	ctx := context.Background()

	svc.RegisterAgent("log-1", domain.AgentTypeLogging, nil, "")
	svc.RegisterAgent("sync-1", domain.AgentTypeDataSync, nil, "")
	svc.RegisterAgent("bot-1", domain.AgentTypeWhatsAppBot, nil, "")
	svc.RegisterAgent("dash-1", domain.AgentTypeDashboard, nil, "")

	delivered, err := svc.SyncOnce(ctx)
	require.NoError(t, err)
	// bot-1's push fails but sync-1 and dash-1 still receive the snapshot.
	assert.Equal(t, 2, delivered)
	assert.Equal(t, []string{domain.MessageTypeSync}, pusher.Events("dash-1"))
	assert.Empty(t, pusher.Events("bot-1"))

	comms, err := svc.ListCommunications(ctx, repository.Query{"type": domain.MessageTypeSync})
	require.NoError(t, err)
	recipients := map[string]bool{}
	for _, c := range comms {
		assert.Equal(t, domain.OrchestratorAgentID, c.FromAgent)
		recipients[c.ToAgent] = true
	}
	assert.Equal(t, map[string]bool{"sync-1": true, "bot-1": true, "dash-1": true}, recipients)
}

func TestSyncOnceLogsSnapshotReference(t *testing.T) {
	env := newTestService(t, nil)
	ctx := context.Background()
	_, err := env.store.Save(ctx, domain.CollectionExchangeRates, repository.Record{"currency": "USD", "buy": 5.1}, "usd")
	require.NoError(t, err)
	env.svc.RegisterAgent("dash-1", domain.AgentTypeDashboard, nil, "")

	_, err = env.svc.SyncOnce(ctx)
	require.NoError(t, err)

	comms, err := env.svc.ListCommunications(ctx, repository.Query{"type": domain.MessageTypeSync})
	require.NoError(t, err)
	require.Len(t, comms, 1)
	msg, ok := comms[0].Message.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), msg["rates"])
	assert.Equal(t, float64(0), msg["branches"])
	assert.NotZero(t, msg["snapshotAt"])
	assert.NotContains(t, msg, "config")
}

func TestSyncOnceWithoutPusherLogsOnly(t *testing.T) {
	env := newTestService(t, nil)
	env.svc.RegisterAgent("dash-1", domain.AgentTypeDashboard, nil, "")

	delivered, err := env.svc.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestSyncOnceStoreFailure(t *testing.T) {
	env := newTestService(t, nil)
	require.NoError(t, env.store.Close())

	_, err := env.svc.SyncOnce(context.Background())
	assert.Error(t, err)
}
