package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/policy"
)

// ConfigSnapshot returns the business configuration plus the public runtime
// settings under the "orchestrator" key.
func (s *Service) ConfigSnapshot() map[string]interface{} {
	snap := s.business.Snapshot()
	snap["orchestrator"] = s.config.Public()
	return snap
}

// UpdateConfig applies a dotted-path update on behalf of agentID after the
// admission policy accepts it. Connected agents are notified.
func (s *Service) UpdateConfig(ctx context.Context, path string, value interface{}, agentID string) error {
	_, registered := s.registry.Get(agentID)
	decision, err := s.evaluatePolicy(ctx, map[string]interface{}{
		"action":     policy.ActionConfigUpdate,
		"path":       path,
		"agent_id":   agentID,
		"registered": registered,
	})
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", ErrPolicyDenied, strings.Join(decision.Reasons, "; "))
	}

	if err := s.business.Set(path, value); err != nil {
		return err
	}

	update := map[string]interface{}{
		"path":      path,
		"value":     value,
		"agentId":   agentID,
		"timestamp": time.Now().UTC(),
	}
	rec, err := toRecord(update)
	if err != nil {
		return err
	}
	if _, err := s.store.Save(ctx, domain.CollectionConfigUpdates, rec, ""); err != nil {
		return fmt.Errorf("failed to record config update: %w", err)
	}

	slog.Info("config updated", "path", path, "agent_id", agentID)
	s.notifyConfigChanged(map[string]interface{}{"path": path, "agentId": agentID})
	return nil
}

// notifyConfigChanged pushes a config_updated event to every agent with an
// open stream.
func (s *Service) notifyConfigChanged(data map[string]interface{}) {
	if s.pusher == nil {
		return
	}
	s.pusher.Broadcast(domain.MessageTypeConfigUpdated, data)
}
