package service

import (
	"log/slog"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

// RegisterAgent inserts or replaces an agent with status initializing.
func (s *Service) RegisterAgent(agentID string, typ domain.AgentType, capabilities []string, endpoint string) domain.Agent {
	agent, replaced := s.registry.Register(agentID, typ, capabilities, endpoint)
	s.metrics.Registrations.Inc()
	s.metrics.AgentsRegistered.Set(float64(s.registry.Len()))

	if !typ.Known() {
		slog.Warn("agent registered with unknown type", "agent_id", agentID, "type", typ)
	}
	slog.Info("agent registered", "agent_id", agentID, "type", typ, "endpoint", endpoint, "replaced", replaced)
	return agent
}

// Heartbeat records a liveness report. Unknown agents are accepted without
// creating an entry; the return value reports whether the agent was known.
func (s *Service) Heartbeat(agentID string, status domain.AgentStatus, metrics map[string]float64) bool {
	if status == "" {
		status = domain.AgentStatusHealthy
	}
	known := s.registry.Heartbeat(agentID, status, metrics)
	if known {
		s.metrics.Heartbeats.WithLabelValues("true").Inc()
	} else {
		s.metrics.Heartbeats.WithLabelValues("false").Inc()
		slog.Debug("heartbeat from unknown agent ignored", "agent_id", agentID)
	}
	return known
}

// GetAgent returns a copy of one agent.
func (s *Service) GetAgent(agentID string) (domain.Agent, bool) {
	return s.registry.Get(agentID)
}

// ListAgents returns copies of every registered agent.
func (s *Service) ListAgents() []domain.Agent {
	return s.registry.List()
}

// ActiveAgentIDs returns the ids currently in the agent table.
func (s *Service) ActiveAgentIDs() []string {
	return s.registry.IDs()
}

// CoordinationStatus summarises the agent table.
func (s *Service) CoordinationStatus() domain.CoordinationStatus {
	agents := s.registry.List()
	status := domain.CoordinationStatus{
		TotalAgents: len(agents),
		Agents:      make([]domain.AgentSummary, 0, len(agents)),
	}
	for _, a := range agents {
		if a.Status == domain.AgentStatusHealthy {
			status.HealthyAgents++
		}
		status.Agents = append(status.Agents, domain.AgentSummary{
			ID:           a.AgentID,
			Type:         a.Type,
			Status:       a.Status,
			LastSeen:     a.LastSeen.UnixMilli(),
			Capabilities: a.Capabilities,
		})
	}
	return status
}
