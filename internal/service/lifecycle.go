package service

import (
	"context"
	"log/slog"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

// Start launches the health-check, cleanup and (when enabled) sync loops,
// plus the business config watcher. Calling Start again is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.stopLoops != nil || s.stopped {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.stopLoops = cancel

	s.goLoop(func() { s.RunHealthChecks(loopCtx) })
	s.goLoop(func() { s.RunCleanup(loopCtx) })
	if s.config.SyncEnabled {
		s.goLoop(func() { s.RunSync(loopCtx) })
	}
	if s.business.Path() != "" {
		s.goLoop(func() {
			err := s.business.Watch(loopCtx, func() {
				s.notifyConfigChanged(map[string]interface{}{"reloaded": true, "agentId": domain.OrchestratorAgentID})
			})
			if err != nil {
				slog.Error("business config watcher stopped", "err", err)
			}
		})
	}

	slog.Info("orchestrator loops started",
		"health_interval", s.config.HealthCheckInterval,
		"cleanup_interval", s.config.CleanupInterval,
		"sync_enabled", s.config.SyncEnabled,
	)
}

// Stop cancels every loop and waits for them to return. It is idempotent.
func (s *Service) Stop() {
	s.loopMu.Lock()
	if s.stopped {
		s.loopMu.Unlock()
		return
	}
	s.stopped = true
	cancel := s.stopLoops
	s.loopMu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.loopWG.Wait()
	slog.Info("orchestrator loops stopped")
}

func (s *Service) goLoop(fn func()) {
	s.loopWG.Add(1)
	go func() {
		defer s.loopWG.Done()
		fn()
	}()
}
