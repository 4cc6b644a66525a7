package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/adapter/agentclient"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/tests/helpers"
)

type testEnv struct {
	svc   *Service
	store repository.Store
	cfg   *config.Config
}

func newTestService(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.ProbeTimeout = 200 * time.Millisecond
	cfg.DeployStepTimeout = time.Second

	deps := Deps{
		Store:  helpers.NewTestSQLiteStore(t),
		Config: cfg,
		Policy: helpers.NewTestPolicyEngine(t),
		Prober: &fakeProber{results: map[string]agentclient.ProbeResult{}},
	}
	if mutate != nil {
		mutate(&deps)
	}
	svc := New(deps)
	t.Cleanup(svc.Stop)
	return &testEnv{svc: svc, store: deps.Store, cfg: deps.Config}
}

// deployAndWait starts a deployment and returns its final persisted record.
func (e *testEnv) deployAndWait(t *testing.T, req domain.DeployRequest) *domain.Deployment {
	t.Helper()
	ctx := context.Background()
	d, err := e.svc.StartDeployment(ctx, req)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, e.svc.WaitForDeployments(waitCtx))

	final, err := e.svc.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	return final
}

type fakeProber struct {
	mu      sync.Mutex
	results map[string]agentclient.ProbeResult
	errs    map[string]error
	panics  map[string]bool
	delay   map[string]time.Duration
	calls   []string
}

func (p *fakeProber) Probe(ctx context.Context, agent domain.Agent) (agentclient.ProbeResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, agent.AgentID)
	res, err := p.results[agent.AgentID], p.errs[agent.AgentID]
	shouldPanic, delay := p.panics[agent.AgentID], p.delay[agent.AgentID]
	p.mu.Unlock()

	if shouldPanic {
		panic("probe exploded")
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return agentclient.ProbeResult{}, ctx.Err()
		}
	}
	if err != nil {
		return agentclient.ProbeResult{}, err
	}
	if res.Status == "" {
		res.Status = domain.AgentStatusHealthy
	}
	return res, nil
}

func (p *fakeProber) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type recordingDeployer struct {
	mu      sync.Mutex
	order   []string
	failFor map[string]error
	block   chan struct{}
}

func (d *recordingDeployer) Deploy(ctx context.Context, _ *domain.Deployment, agent domain.Agent) error {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = append(d.order, agent.AgentID)
	return d.failFor[agent.AgentID]
}

func (d *recordingDeployer) Order() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

type fakePusher struct {
	mu        sync.Mutex
	connected map[string]bool
	failFor   map[string]error
	pushed    map[string][]string
}

func newFakePusher(connected ...string) *fakePusher {
	p := &fakePusher{connected: map[string]bool{}, failFor: map[string]error{}, pushed: map[string][]string{}}
	for _, id := range connected {
		p.connected[id] = true
	}
	return p
}

func (p *fakePusher) Connected(agentID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected[agentID]
}

func (p *fakePusher) Push(agentID, event string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failFor[agentID]; err != nil {
		return err
	}
	p.pushed[agentID] = append(p.pushed[agentID], event)
	return nil
}

func (p *fakePusher) Broadcast(event string, data interface{}) {
	p.mu.Lock()
	ids := make([]string, 0, len(p.connected))
	for id, ok := range p.connected {
		if ok {
			ids = append(ids, id)
		}
	}
	p.mu.Unlock()
	for _, id := range ids {
		_ = p.Push(id, event, data)
	}
}

func (p *fakePusher) Events(agentID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.pushed[agentID]...)
}
