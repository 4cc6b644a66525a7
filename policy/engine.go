package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Actions evaluated by the fleet policy.
const (
	ActionConfigUpdate = "config.update"
	ActionDeploy       = "deploy"
)

// Decision is the outcome of a policy evaluation.
type Decision struct {
	Allowed bool
	Reasons []string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.fleet_policy.result"),
		rego.Module("fleet_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks input against the policy. Input carries an "action" key
// plus action specific fields.
func (e *Engine) Evaluate(ctx context.Context, input map[string]interface{}) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("policy produced no result")
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	decision := Decision{Allowed: obj["decision"] == "allow"}
	if reasons, ok := obj["reasons"].([]interface{}); ok {
		for _, r := range reasons {
			if s, ok := r.(string); ok {
				decision.Reasons = append(decision.Reasons, s)
			}
		}
	}
	return decision, nil
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package fleet_policy

default decision := "allow"

decision := "deny" if count(deny) > 0

result := {"decision": decision, "reasons": deny}

# Runtime settings are owned by the orchestrator process.
deny contains "orchestrator settings are read-only" if {
	input.action == "config.update"
	startswith(input.path, "orchestrator.")
}

deny contains "orchestrator settings are read-only" if {
	input.action == "config.update"
	input.path == "orchestrator"
}

deny contains "agentId is required for config updates" if {
	input.action == "config.update"
	input.agent_id == ""
}

deny contains sprintf("agent %s is not registered", [input.agent_id]) if {
	input.action == "config.update"
	input.agent_id != ""
	input.agent_id != "admin"
	not input.registered
}

deny contains sprintf("unsupported deployment strategy %q", [input.strategy]) if {
	input.action == "deploy"
	not input.strategy in {"sequential"}
}
`
