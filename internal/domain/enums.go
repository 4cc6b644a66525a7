// Package domain defines the core domain models for the orchestrator.
package domain

// AgentType identifies the kind of worker an agent is.
type AgentType string

const (
	AgentTypeLogging     AgentType = "logging"
	AgentTypeDataSync    AgentType = "dataSync"
	AgentTypeWhatsAppBot AgentType = "whatsappBot"
	AgentTypeDashboard   AgentType = "dashboard"
	AgentTypeTests       AgentType = "tests"
)

// AgentStatus represents the liveness status of an agent.
type AgentStatus string

const (
	AgentStatusInitializing AgentStatus = "initializing"
	AgentStatusHealthy      AgentStatus = "healthy"
	AgentStatusUnhealthy    AgentStatus = "unhealthy"
	AgentStatusUnknown      AgentStatus = "unknown"
)

// Valid reports whether s is one of the known statuses.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusInitializing, AgentStatusHealthy, AgentStatusUnhealthy, AgentStatusUnknown:
		return true
	}
	return false
}

// DeploymentStatus represents the status of a deployment.
type DeploymentStatus string

const (
	DeploymentStatusInitiated DeploymentStatus = "initiated"
	DeploymentStatusCompleted DeploymentStatus = "completed"
	DeploymentStatusFailed    DeploymentStatus = "failed"
)

// DeployStrategySequential walks agents one at a time in execution order.
const DeployStrategySequential = "sequential"

// Collection names used by the orchestrator.
const (
	CollectionDeployments   = "deployments"
	CollectionCommunication = "agent_communications"
	CollectionConfigUpdates = "config_updates"
	CollectionExchangeRates = "exchange_rates"
	CollectionBranches      = "branches"
)

// Communication types written by the orchestrator itself.
const (
	MessageTypeSync          = "sync"
	MessageTypeConfigUpdated = "config_updated"
)

// OrchestratorAgentID is the sender id used for messages the orchestrator emits.
const OrchestratorAgentID = "orchestrator"
