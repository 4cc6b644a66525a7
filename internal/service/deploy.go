package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/domain"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/internal/repository"
	"github.com/worldwidesoldier/fair-cambio-whatsapp-bot-sub001/policy"
)

// SimulatedDeployer accepts every step without contacting the agent.
type SimulatedDeployer struct{}

// Deploy implements Deployer.
func (SimulatedDeployer) Deploy(ctx context.Context, deployment *domain.Deployment, agent domain.Agent) error {
	slog.Info("simulated deployment step", "deployment_id", deployment.ID, "agent_id", agent.AgentID, "type", agent.Type)
	return ctx.Err()
}

// StartDeployment persists a new deployment and walks the agent table in the
// background. Only one walk runs at a time; a concurrent request gets
// ErrDeploymentInProgress.
func (s *Service) StartDeployment(ctx context.Context, req domain.DeployRequest) (*domain.Deployment, error) {
	strategy := req.Strategy
	if strategy == "" {
		strategy = domain.DeployStrategySequential
	}

	decision, err := s.evaluatePolicy(ctx, map[string]interface{}{
		"action":     policy.ActionDeploy,
		"strategy":   strategy,
		"components": req.Components,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrPolicyDenied, strings.Join(decision.Reasons, "; "))
	}

	if !s.deploying.CompareAndSwap(false, true) {
		return nil, ErrDeploymentInProgress
	}

	d := &domain.Deployment{
		ID: "deploy_" + uuid.NewString(),
		Plan: domain.DeploymentPlan{
			Components: append([]string{}, req.Components...),
			Strategy:   strategy,
		},
		Status:    domain.DeploymentStatusInitiated,
		StartTime: time.Now().UTC(),
		Steps:     []domain.DeploymentStep{},
	}
	if err := s.saveDeployment(ctx, d); err != nil {
		s.deploying.Store(false)
		return nil, err
	}
	created := *d

	slog.Info("deployment initiated", "deployment_id", d.ID, "components", d.Plan.Components, "strategy", strategy)

	walkCtx := context.WithoutCancel(ctx)
	s.deployWG.Add(1)
	go func() {
		defer s.deployWG.Done()
		defer s.deploying.Store(false)
		s.executeDeployment(walkCtx, d)
	}()

	return &created, nil
}

// executeDeployment walks the selected agents in ascending execution order.
// The first failing step aborts the walk.
func (s *Service) executeDeployment(ctx context.Context, d *domain.Deployment) {
	var agents []domain.Agent
	for _, a := range s.registry.ListByExecutionOrder() {
		if d.Plan.Includes(a) {
			agents = append(agents, a)
		}
	}

	for _, agent := range agents {
		step := domain.DeploymentStep{
			AgentID:   agent.AgentID,
			AgentType: agent.Type,
			StartTime: time.Now().UTC(),
		}

		err := s.validateDependencies(agent)
		if err == nil {
			err = s.deployAgent(ctx, d, agent)
		}
		step.EndTime = time.Now().UTC()

		if err != nil {
			step.Error = err.Error()
			d.Steps = append(d.Steps, step)
			d.Status = domain.DeploymentStatusFailed
			d.Error = fmt.Sprintf("agent %s: %s", agent.AgentID, err)
			slog.Warn("deployment step failed", "deployment_id", d.ID, "agent_id", agent.AgentID, "err", err)
			break
		}

		step.Success = true
		d.Steps = append(d.Steps, step)
		slog.Info("deployment step completed", "deployment_id", d.ID, "agent_id", agent.AgentID, "type", agent.Type)
	}

	if d.Status != domain.DeploymentStatusFailed {
		d.Status = domain.DeploymentStatusCompleted
	}
	end := time.Now().UTC()
	d.EndTime = &end
	s.metrics.Deployments.WithLabelValues(string(d.Status)).Inc()

	if err := s.saveDeployment(ctx, d); err != nil {
		slog.Error("failed to persist deployment result", "deployment_id", d.ID, "err", err)
		return
	}
	slog.Info("deployment finished", "deployment_id", d.ID, "status", d.Status, "steps", len(d.Steps))
}

// deployAgent runs the injected deployer bounded by the step timeout. A
// deployer that ignores its context still fails the step on time.
func (s *Service) deployAgent(ctx context.Context, d *domain.Deployment, agent domain.Agent) error {
	stepCtx, cancel := context.WithTimeout(ctx, s.config.DeployStepTimeout)
	defer cancel()
	// the deployer gets a copy: a late return must not race the walk
	snapshot := *d
	snapshot.Steps = append([]domain.DeploymentStep(nil), d.Steps...)
	_, err := callBounded(stepCtx, "deployer", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.deployer.Deploy(ctx, &snapshot, agent)
	})
	return err
}

// validateDependencies checks that each dependency type of agent resolves to
// a healthy agent.
func (s *Service) validateDependencies(agent domain.Agent) error {
	for _, dep := range domain.Dependencies(agent.Type) {
		resolved, ok := s.registry.ResolveDependency(dep)
		if !ok {
			return &domain.DependencyError{Kind: domain.DependencyMissing, Type: dep}
		}
		if resolved.Status != domain.AgentStatusHealthy {
			return &domain.DependencyError{
				Kind:    domain.DependencyUnhealthy,
				Type:    dep,
				AgentID: resolved.AgentID,
				Status:  resolved.Status,
			}
		}
	}
	return nil
}

// GetDeployment loads a persisted deployment.
func (s *Service) GetDeployment(ctx context.Context, id string) (*domain.Deployment, error) {
	records, err := s.store.Get(ctx, domain.CollectionDeployments, repository.Query{repository.IDField: id})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrDeploymentNotFound
	}
	var d domain.Deployment
	if err := fromRecord(records[0], &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeploymentInProgress reports whether a walk is running.
func (s *Service) DeploymentInProgress() bool {
	return s.deploying.Load()
}

// WaitForDeployments blocks until in-flight walks finish or ctx is done.
func (s *Service) WaitForDeployments(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.deployWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) saveDeployment(ctx context.Context, d *domain.Deployment) error {
	rec, err := toRecord(d)
	if err != nil {
		return err
	}
	if _, err := s.store.Save(ctx, domain.CollectionDeployments, rec, d.ID); err != nil {
		return fmt.Errorf("failed to save deployment: %w", err)
	}
	return nil
}
