// Package app assembles the orchestrator process: persistence, agent table,
// policy, push hub, loops and the control-plane HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/adapter/agentclient"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/metrics"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/registry"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/service"
	transport "github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/transport/http"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/transport/ws"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/policy"
)

// App is a fully wired orchestrator.
type App struct {
	cfg      *config.Config
	store    repository.Store
	hub      *ws.Hub
	svc      *service.Service
	server   *echo.Echo
	listener net.Listener
	serveErr chan error

	shutdownOnce sync.Once
	shutdownErr  error
}

// New opens persistence and builds every component. Nothing listens or
// ticks until Start.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := repository.Open(ctx, repository.Options{
		DatabaseURL:    cfg.DatabaseURL,
		DataDir:        cfg.DataDir,
		ConnectTimeout: cfg.ProbeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	business := config.NewBusiness(nil)
	if cfg.BusinessConfigPath != "" {
		business, err = config.LoadBusiness(cfg.BusinessConfigPath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to load business config: %w", err)
		}
	}

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	client := agentclient.NewClient()
	var deployer service.Deployer = service.SimulatedDeployer{}
	if cfg.DeployMode == "http" {
		deployer = client
	}

	hub := ws.NewHub()
	svc := service.New(service.Deps{
		Store:    store,
		Config:   cfg,
		Registry: registry.New(),
		Business: business,
		Policy:   policyEngine,
		Metrics:  metrics.New(),
		Prober:   client,
		Deployer: deployer,
		Pusher:   hub,
	})

	return &App{
		cfg:    cfg,
		store:  store,
		hub:    hub,
		svc:    svc,
		server: transport.NewServer(svc, hub, cfg),
	}, nil
}

// Service returns the orchestrator service.
func (a *App) Service() *service.Service {
	return a.svc
}

// Start binds the control-plane listener on addr, then launches the loops.
// A bind failure is returned to the caller.
func (a *App) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	a.listener = ln
	a.server.Listener = ln
	a.serveErr = make(chan error, 1)

	go func() {
		if err := a.server.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.svc.Start(ctx)
	slog.Info("control plane listening", "addr", ln.Addr().String(), "store_mode", a.svc.StoreMode())
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Err reports an HTTP server failure after Start. The channel is closed when
// the server returns.
func (a *App) Err() <-chan error {
	return a.serveErr
}

// Shutdown stops the loops, closes the listener, waits for an in-flight
// deployment, drops agent streams and closes the store, in that order.
// Later calls return the first call's result.
func (a *App) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		var errs []error

		a.svc.Stop()

		if a.listener != nil {
			if err := a.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
		}

		if err := a.svc.WaitForDeployments(ctx); err != nil {
			slog.Warn("shutdown: deployment still running", "err", err)
		}

		a.hub.Close()

		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store close: %w", err))
		}

		a.shutdownErr = errors.Join(errs...)
		slog.Info("orchestrator stopped")
	})
	return a.shutdownErr
}
