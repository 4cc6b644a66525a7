package domain

import "time"

// Deployment is a single dependency-ordered walk over registered agents.
type Deployment struct {
	ID        string           `json:"id"`
	Plan      DeploymentPlan   `json:"plan"`
	Status    DeploymentStatus `json:"status"`
	StartTime time.Time        `json:"startTime"`
	EndTime   *time.Time       `json:"endTime,omitempty"`
	Steps     []DeploymentStep `json:"steps"`
	Error     string           `json:"error,omitempty"`
}

// DeploymentPlan is the caller-supplied description of a deployment.
type DeploymentPlan struct {
	Components []string `json:"components"`
	Strategy   string   `json:"strategy"`
}

// DeploymentStep records the outcome for one agent.
type DeploymentStep struct {
	AgentID   string    `json:"agentId"`
	AgentType AgentType `json:"agentType"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// Includes reports whether the plan selects the given agent. An empty
// component list selects every agent.
func (p DeploymentPlan) Includes(agent Agent) bool {
	if len(p.Components) == 0 {
		return true
	}
	for _, c := range p.Components {
		if c == agent.AgentID || AgentType(c) == agent.Type {
			return true
		}
	}
	return false
}

// Finished reports whether the deployment reached a terminal status.
func (d *Deployment) Finished() bool {
	return d.Status == DeploymentStatusCompleted || d.Status == DeploymentStatusFailed
}
