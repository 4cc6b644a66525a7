// Package registry owns the in-memory agent table shared by the control plane
// and the orchestrator loops. The table is never exposed directly; callers
// receive copies.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

type entry struct {
	agent domain.Agent
	seq   uint64 // registration sequence, used for dependency tie-breaks
}

// Registry is a concurrency-safe agent table.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*entry
	seq    uint64
	now    func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		agents: make(map[string]*entry),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Register inserts or replaces an agent. Re-registering an id replaces the
// previous record. It reports whether an existing entry was replaced.
func (r *Registry) Register(agentID string, typ domain.AgentType, capabilities []string, endpoint string) (domain.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	_, replaced := r.agents[agentID]
	r.seq++
	agent := domain.Agent{
		AgentID:      agentID,
		Type:         typ,
		Capabilities: append([]string{}, capabilities...),
		Endpoint:     endpoint,
		Status:       domain.AgentStatusInitializing,
		RegisteredAt: now,
		LastSeen:     now,
		Metrics:      map[string]float64{},
	}
	r.agents[agentID] = &entry{agent: agent, seq: r.seq}
	return agent.Clone(), replaced
}

// Heartbeat refreshes lastSeen, status and metrics of a known agent. Unknown
// ids are ignored and reported as false; heartbeats never create entries.
func (r *Registry) Heartbeat(agentID string, status domain.AgentStatus, metrics map[string]float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.agents[agentID]
	if !ok {
		return false
	}
	e.agent.LastSeen = r.now()
	if status != "" {
		e.agent.Status = status
	}
	if metrics != nil {
		e.agent.Metrics = domain.CloneMetrics(metrics)
	}
	return true
}

// ApplyProbe records the outcome of a health probe. A nil metrics map leaves
// the previous metrics untouched. When seen is false lastSeen is not moved.
func (r *Registry) ApplyProbe(agentID string, status domain.AgentStatus, metrics map[string]float64, seen bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.agents[agentID]
	if !ok {
		return false
	}
	e.agent.Status = status
	if seen {
		e.agent.LastSeen = r.now()
	}
	if metrics != nil {
		e.agent.Metrics = domain.CloneMetrics(metrics)
	}
	return true
}

// Get returns a copy of the agent with the given id.
func (r *Registry) Get(agentID string) (domain.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.agents[agentID]
	if !ok {
		return domain.Agent{}, false
	}
	return e.agent.Clone(), true
}

// List returns copies of all agents sorted by id.
func (r *Registry) List() []domain.Agent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Agent, 0, len(r.agents))
	for _, e := range r.agents {
		out = append(out, e.agent.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}

// ListByExecutionOrder returns copies of all agents sorted by the execution
// order of their type, then by registration sequence.
func (r *Registry) ListByExecutionOrder() []domain.Agent {
	r.mu.RLock()
	entries := make([]entry, 0, len(r.agents))
	for _, e := range r.agents {
		entries = append(entries, entry{agent: e.agent.Clone(), seq: e.seq})
	}
	r.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		oi, oj := domain.ExecutionOrder(entries[i].agent.Type), domain.ExecutionOrder(entries[j].agent.Type)
		if oi != oj {
			return oi < oj
		}
		return entries[i].seq < entries[j].seq
	})

	out := make([]domain.Agent, len(entries))
	for i, e := range entries {
		out[i] = e.agent
	}
	return out
}

// IDs returns the ids of all registered agents, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// ResolveDependency returns the agent serving typ. When several agents share
// a type, the most recently registered one wins.
func (r *Registry) ResolveDependency(typ domain.AgentType) (domain.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *entry
	for _, e := range r.agents {
		if e.agent.Type != typ {
			continue
		}
		if best == nil || e.seq > best.seq {
			best = e
		}
	}
	if best == nil {
		return domain.Agent{}, false
	}
	return best.agent.Clone(), true
}

// RemoveStale deletes every agent whose lastSeen is older than timeout and
// returns the removed ids.
func (r *Registry) RemoveStale(timeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed []string
	for id, e := range r.agents {
		if now.Sub(e.agent.LastSeen) > timeout {
			delete(r.agents, id)
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}
