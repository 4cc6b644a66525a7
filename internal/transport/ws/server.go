package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	// writeTimeout is the deadline for a single write to an agent.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the stream as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
)

// AgentLookup reports whether an agent id is registered.
type AgentLookup func(agentID string) bool

// Server upgrades agent stream requests and pumps hub events to them.
type Server struct {
	hub      *Hub
	lookup   AgentLookup
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(hub *Hub, lookup AgentLookup) *Server {
	return &Server{
		hub:    hub,
		lookup: lookup,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Agents are not browsers; origin checks belong to the proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleStream handles GET /agents/:agentId/stream.
func (s *Server) HandleStream(c echo.Context) error {
	agentID := c.Param("agentId")
	if s.lookup != nil && !s.lookup(agentID) {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"success": false,
			"error":   "agent not registered",
		})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("ws: upgrade failed", "agent_id", agentID, "err", err)
		return nil
	}

	conn := s.hub.NewConnection(agentID, ws)
	s.hub.Register(conn)

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump discards inbound frames and keeps the read deadline fresh.
func (s *Server) readPump(conn *Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
