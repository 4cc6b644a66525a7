// Package ws provides the WebSocket stream agents use to receive sync
// snapshots and configuration events from the orchestrator.
package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
)

// ErrNotConnected is returned by Push when the agent has no open stream.
var ErrNotConnected = errors.New("agent not connected")

// ErrBufferFull is returned by Push when a connection cannot keep up.
var ErrBufferFull = errors.New("connection buffer full")

// sendBufSize is the per-connection outgoing message buffer depth.
const sendBufSize = 32

// Connection represents a single agent WebSocket connection.
type Connection struct {
	ID      string
	AgentID string
	Conn    *websocket.Conn
	Send    chan []byte

	closeOnce sync.Once
}

// Hub manages agent stream connections, indexed by agent id.
type Hub struct {
	mu     sync.RWMutex
	agents map[string]map[string]*Connection
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		agents: make(map[string]map[string]*Connection),
	}
}

// NewConnection wraps ws for agentID. The connection is not registered yet.
func (h *Hub) NewConnection(agentID string, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:      uuid.NewString(),
		AgentID: agentID,
		Conn:    ws,
		Send:    make(chan []byte, sendBufSize),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	if h.agents[conn.AgentID] == nil {
		h.agents[conn.AgentID] = make(map[string]*Connection)
	}
	h.agents[conn.AgentID][conn.ID] = conn
	h.mu.Unlock()
	slog.Info("ws: agent stream connected", "agent_id", conn.AgentID, "conn_id", conn.ID)
}

// Unregister removes a connection and closes its send channel. Calling it
// more than once is safe.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if conns, ok := h.agents[conn.AgentID]; ok {
		delete(conns, conn.ID)
		if len(conns) == 0 {
			delete(h.agents, conn.AgentID)
		}
	}
	h.mu.Unlock()

	conn.closeOnce.Do(func() {
		close(conn.Send)
		slog.Info("ws: agent stream disconnected", "agent_id", conn.AgentID, "conn_id", conn.ID)
	})
}

// Push sends an event to every stream the agent has open. It never blocks:
// a connection whose buffer is full is dropped.
func (h *Hub) Push(agentID, event string, data interface{}) error {
	payload, err := json.Marshal(domain.PushEvent{
		Event:     event,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.agents[agentID]))
	for _, c := range h.agents[agentID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	if len(conns) == 0 {
		return ErrNotConnected
	}

	var dropped int
	for _, c := range conns {
		if !c.trySend(payload) {
			dropped++
			slog.Warn("ws: connection buffer full, closing", "agent_id", agentID, "conn_id", c.ID)
			h.Unregister(c)
		}
	}
	if dropped == len(conns) {
		return ErrBufferFull
	}
	return nil
}

// trySend queues payload without blocking. It reports false when the buffer
// is full or the connection was already closed.
func (c *Connection) trySend(payload []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// Broadcast pushes an event to every connected agent.
func (h *Hub) Broadcast(event string, data interface{}) {
	for _, agentID := range h.ConnectedAgents() {
		if err := h.Push(agentID, event, data); err != nil && !errors.Is(err, ErrNotConnected) {
			slog.Warn("ws: broadcast failed", "agent_id", agentID, "err", err)
		}
	}
}

// Connected reports whether the agent has at least one open stream.
func (h *Hub) Connected(agentID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents[agentID]) > 0
}

// ConnectedAgents returns the ids of agents with an open stream.
func (h *Hub) ConnectedAgents() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.agents))
	for id := range h.agents {
		ids = append(ids, id)
	}
	return ids
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*Connection
	for _, conns := range h.agents {
		for _, c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Unregister(c)
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	}
}
