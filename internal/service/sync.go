package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
)

// RunSync broadcasts a sync snapshot on the configured interval until ctx is done.
func (s *Service) RunSync(ctx context.Context) {
	ticker := time.NewTicker(s.config.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SyncOnce(ctx); err != nil {
				slog.Warn("sync snapshot failed", "err", err)
			}
		}
	}
}

// BuildSnapshot gathers the latest rates, branches and configuration.
func (s *Service) BuildSnapshot(ctx context.Context) (*domain.SyncSnapshot, error) {
	rates, err := s.store.Get(ctx, domain.CollectionExchangeRates, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load exchange rates: %w", err)
	}
	branches, err := s.store.Get(ctx, domain.CollectionBranches, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load branches: %w", err)
	}
	return &domain.SyncSnapshot{
		Timestamp: time.Now().UTC(),
		Rates:     plainRecords(rates),
		Branches:  plainRecords(branches),
		Config:    s.ConfigSnapshot(),
	}, nil
}

// SyncOnce builds one snapshot and distributes it to every subscribing agent.
// It returns how many agents received it; a failure for one agent does not
// stop distribution to the others.
func (s *Service) SyncOnce(ctx context.Context) (int, error) {
	snapshot, err := s.BuildSnapshot(ctx)
	if err != nil {
		return 0, err
	}

	var delivered atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)

	for _, agent := range s.registry.List() {
		if !domain.SubscribesToSync(agent.Type) {
			continue
		}
		g.Go(func() error {
			distCtx, cancel := context.WithTimeout(gctx, s.config.ProbeTimeout)
			defer cancel()
			if err := s.distribute(distCtx, agent, snapshot); err != nil {
				s.metrics.SyncDistributions.WithLabelValues("error").Inc()
				slog.Warn("sync distribution failed", "agent_id", agent.AgentID, "err", err)
				return nil
			}
			s.metrics.SyncDistributions.WithLabelValues("ok").Inc()
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	slog.Debug("sync snapshot distributed", "agents", delivered.Load())
	return int(delivered.Load()), nil
}

// distribute logs a reference to the snapshot as a communication and pushes
// the full snapshot over the agent's stream when one is open.
func (s *Service) distribute(ctx context.Context, agent domain.Agent, snapshot *domain.SyncSnapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("distribution panicked: %v", r)
		}
	}()

	ref := map[string]interface{}{
		"snapshotAt": snapshot.Timestamp.UnixMilli(),
		"rates":      len(snapshot.Rates),
		"branches":   len(snapshot.Branches),
	}
	if _, err := s.recordCommunication(ctx, domain.OrchestratorAgentID, agent.AgentID, ref, domain.MessageTypeSync); err != nil {
		return err
	}
	if s.pusher != nil && s.pusher.Connected(agent.AgentID) {
		if err := s.pusher.Push(agent.AgentID, domain.MessageTypeSync, snapshot); err != nil {
			return fmt.Errorf("push failed: %w", err)
		}
	}
	return nil
}

func plainRecords(records []repository.Record) []map[string]interface{} {
	out := make([]map[string]interface{}, len(records))
	for i, r := range records {
		out[i] = map[string]interface{}(r)
	}
	return out
}
