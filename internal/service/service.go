// Package service implements the orchestrator: agent registration and
// liveness, dependency-ordered deployments, the health-check and cleanup
// loops, and the synchronization broadcast.
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/adapter/agentclient"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/config"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/metrics"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/registry"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/policy"
)

var (
	// ErrDeploymentInProgress is returned when a deploy is requested while
	// another walk is still running.
	ErrDeploymentInProgress = errors.New("deployment already in progress")
	// ErrDeploymentNotFound is returned for unknown deployment ids.
	ErrDeploymentNotFound = errors.New("deployment not found")
	// ErrPolicyDenied is returned when the admission policy rejects a request.
	ErrPolicyDenied = errors.New("denied by policy")
)

// Prober checks the liveness of one agent.
type Prober interface {
	Probe(ctx context.Context, agent domain.Agent) (agentclient.ProbeResult, error)
}

// Deployer performs the agent-specific bring-up for one deployment step.
type Deployer interface {
	Deploy(ctx context.Context, deployment *domain.Deployment, agent domain.Agent) error
}

// Pusher delivers events to agents holding an open stream.
type Pusher interface {
	Connected(agentID string) bool
	Push(agentID, event string, data interface{}) error
	Broadcast(event string, data interface{})
}

// Deps are the collaborators of a Service. Store and Config are required.
type Deps struct {
	Store    repository.Store
	Config   *config.Config
	Registry *registry.Registry
	Business *config.Business
	Policy   *policy.Engine
	Metrics  *metrics.Metrics
	Prober   Prober
	Deployer Deployer
	Pusher   Pusher
}

type Service struct {
	store        repository.Store
	registry     *registry.Registry
	config       *config.Config
	business     *config.Business
	policyEngine *policy.Engine
	metrics      *metrics.Metrics
	prober       Prober
	deployer     Deployer
	pusher       Pusher

	deploying atomic.Bool
	deployWG  sync.WaitGroup

	loopMu    sync.Mutex
	stopLoops context.CancelFunc
	loopWG    sync.WaitGroup
	stopped   bool
}

// New wires a Service, filling optional collaborators with defaults.
func New(d Deps) *Service {
	s := &Service{
		store:        d.Store,
		registry:     d.Registry,
		config:       d.Config,
		business:     d.Business,
		policyEngine: d.Policy,
		metrics:      d.Metrics,
		prober:       d.Prober,
		deployer:     d.Deployer,
		pusher:       d.Pusher,
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	if s.business == nil {
		s.business = config.NewBusiness(nil)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.prober == nil {
		s.prober = agentclient.NewClient()
	}
	if s.deployer == nil {
		s.deployer = SimulatedDeployer{}
	}
	return s
}

// Registry exposes the agent table operations.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Metrics returns the service instruments.
func (s *Service) Metrics() *metrics.Metrics {
	return s.metrics
}

// StoreMode reports the active persistence backend.
func (s *Service) StoreMode() repository.Mode {
	return s.store.Mode()
}

// DatabaseConnected reports whether the structured store is in use and reachable.
func (s *Service) DatabaseConnected(ctx context.Context) bool {
	if s.store.Mode() != repository.ModeDatabase {
		return false
	}
	return s.store.Ping(ctx) == nil
}

func (s *Service) evaluatePolicy(ctx context.Context, input map[string]interface{}) (policy.Decision, error) {
	if s.policyEngine == nil {
		return policy.Decision{Allowed: true}, nil
	}
	return s.policyEngine.Evaluate(ctx, input)
}
