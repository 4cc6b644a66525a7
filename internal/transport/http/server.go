// Package http provides the HTTP control plane for the orchestrator.
package http

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/service"
	v1 "github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/transport/http/v1"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/transport/ws"
)

// AgentIDHeader lets agents identify themselves for access logs and rate limiting.
const AgentIDHeader = "X-Agent-ID"

// NewServer creates and configures the control-plane HTTP server.
func NewServer(svc *service.Service, hub *ws.Hub, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	// client addresses come from the connection, never from forwarding headers
	e.IPExtractor = echo.ExtractIPDirect()
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(accessLog())
	e.Use(NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax, svc.Metrics().RateLimitRejections))

	// Handlers
	v1Handler := v1.NewHandler(svc)
	streamServer := ws.NewServer(hub, func(agentID string) bool {
		_, ok := svc.GetAgent(agentID)
		return ok
	})

	// Register Routes
	v1Handler.RegisterRoutes(e)
	e.GET("/agents/:agentId/stream", streamServer.HandleStream)
	e.GET("/metrics", echo.WrapHandler(svc.Metrics().Handler()))

	return e
}

// callerID names the caller in access logs. The header is self-reported, so
// it is never used to key the rate limiter.
func callerID(c echo.Context) string {
	if id := c.Request().Header.Get(AgentIDHeader); id != "" {
		return id
	}
	return c.RealIP()
}

func accessLog() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.Int("status", v.Status),
				slog.String("caller", callerID(c)),
				slog.Duration("latency", v.Latency),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelWarn
				attrs = append(attrs, slog.String("err", v.Error.Error()))
			}
			slog.LogAttrs(context.Background(), level, "request", attrs...)
			return nil
		},
	})
}
