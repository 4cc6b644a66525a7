package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/adapter/agentclient"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

// maxConcurrentProbes bounds fan-out of the health and sync loops.
const maxConcurrentProbes = 8

// RunHealthChecks probes every agent on the configured interval until ctx is done.
func (s *Service) RunHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAgents(ctx)
		}
	}
}

// checkAgents probes every agent that registered an endpoint. Agents without
// one are heartbeat driven and left to the staleness sweep.
func (s *Service) checkAgents(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	for _, agent := range s.registry.List() {
		if agent.Endpoint == "" {
			continue
		}
		g.Go(func() error {
			s.probeAgent(gctx, agent)
			return nil
		})
	}
	_ = g.Wait()
}

// probeAgent applies one probe result. A failed, panicking or timed-out
// probe marks only this agent unhealthy.
func (s *Service) probeAgent(ctx context.Context, agent domain.Agent) {
	probeCtx, cancel := context.WithTimeout(ctx, s.config.ProbeTimeout)
	defer cancel()

	result, err := s.safeProbe(probeCtx, agent)
	if err != nil {
		s.metrics.ProbeFailures.Inc()
		s.registry.ApplyProbe(agent.AgentID, domain.AgentStatusUnhealthy, nil, false)
		slog.Warn("health probe failed", "agent_id", agent.AgentID, "endpoint", agent.Endpoint, "err", err)
		return
	}
	s.registry.ApplyProbe(agent.AgentID, result.Status, result.Metrics, true)
}

// safeProbe bounds the probe by ctx even when the prober ignores it.
func (s *Service) safeProbe(ctx context.Context, agent domain.Agent) (agentclient.ProbeResult, error) {
	return callBounded(ctx, "probe", func(ctx context.Context) (agentclient.ProbeResult, error) {
		return s.prober.Probe(ctx, agent)
	})
}

// RunCleanup removes stale agents on the configured interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepStaleAgents()
		}
	}
}

// sweepStaleAgents is the only path that deletes agents from the table.
func (s *Service) sweepStaleAgents() []string {
	removed := s.registry.RemoveStale(s.config.StaleTimeout)
	if len(removed) > 0 {
		s.metrics.AgentsRemoved.Add(float64(len(removed)))
		slog.Info("removed stale agents", "agent_ids", removed, "stale_timeout", s.config.StaleTimeout)
	}
	s.metrics.AgentsRegistered.Set(float64(s.registry.Len()))
	return removed
}
