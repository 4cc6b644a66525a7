package domain

// RegisterRequest is the body of POST /agents/register.
type RegisterRequest struct {
	AgentID      string    `json:"agentId"`
	Type         AgentType `json:"type"`
	Capabilities []string  `json:"capabilities"`
	Endpoint     string    `json:"endpoint"`
}

// HeartbeatRequest is the body of POST /agents/:agentId/heartbeat.
type HeartbeatRequest struct {
	Status  AgentStatus        `json:"status"`
	Metrics map[string]float64 `json:"metrics"`
}

// CommunicateRequest is the body of POST /agents/communicate.
type CommunicateRequest struct {
	FromAgent string      `json:"fromAgent"`
	ToAgent   string      `json:"toAgent"`
	Message   interface{} `json:"message"`
	Type      string      `json:"type"`
}

// ConfigUpdateRequest is the body of POST /config/update.
type ConfigUpdateRequest struct {
	Path    string      `json:"path"`
	Value   interface{} `json:"value"`
	AgentID string      `json:"agentId"`
}

// DeployRequest is the body of POST /coordination/deploy.
type DeployRequest struct {
	Components []string `json:"components"`
	Strategy   string   `json:"strategy"`
}

// CoordinationStatus summarises the agent table.
type CoordinationStatus struct {
	TotalAgents   int            `json:"totalAgents"`
	HealthyAgents int            `json:"healthyAgents"`
	Agents        []AgentSummary `json:"agents"`
}

// AgentSummary is the per-agent view in CoordinationStatus.
type AgentSummary struct {
	ID           string      `json:"id"`
	Type         AgentType   `json:"type"`
	Status       AgentStatus `json:"status"`
	LastSeen     int64       `json:"lastSeen"`
	Capabilities []string    `json:"capabilities"`
}
