package domain

import (
	"fmt"
	"time"
)

// Agent is a registered worker process.
type Agent struct {
	AgentID      string             `json:"id"`
	Type         AgentType          `json:"type"`
	Capabilities []string           `json:"capabilities"`
	Endpoint     string             `json:"endpoint"`
	Status       AgentStatus        `json:"status"`
	RegisteredAt time.Time          `json:"registeredAt"`
	LastSeen     time.Time          `json:"lastSeen"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Clone returns a deep copy of a.
func (a Agent) Clone() Agent {
	out := a
	if a.Capabilities != nil {
		out.Capabilities = append([]string(nil), a.Capabilities...)
	}
	out.Metrics = CloneMetrics(a.Metrics)
	return out
}

// CloneMetrics copies a metrics map. A nil map stays nil.
func CloneMetrics(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DependencyFailure classifies why a dependency check failed.
type DependencyFailure string

const (
	DependencyMissing   DependencyFailure = "missing"
	DependencyUnhealthy DependencyFailure = "unhealthy"
)

// DependencyError reports a dependency that blocks a deployment step.
type DependencyError struct {
	Kind    DependencyFailure
	Type    AgentType
	AgentID string
	Status  AgentStatus
}

func (e *DependencyError) Error() string {
	if e.Kind == DependencyMissing {
		return fmt.Sprintf("required dependency %s has no registered agent", e.Type)
	}
	return fmt.Sprintf("required dependency %s (agent %s) is %s, not healthy", e.Type, e.AgentID, e.Status)
}
