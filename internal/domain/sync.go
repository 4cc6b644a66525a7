package domain

import "time"

// SyncSnapshot is the shared business data broadcast to subscribing agents.
type SyncSnapshot struct {
	Timestamp time.Time                `json:"timestamp"`
	Rates     []map[string]interface{} `json:"rates"`
	Branches  []map[string]interface{} `json:"branches"`
	Config    map[string]interface{}   `json:"config"`
}

// Communication is a logged message between agents.
type Communication struct {
	ID        string      `json:"id"`
	FromAgent string      `json:"fromAgent"`
	ToAgent   string      `json:"toAgent"`
	Message   interface{} `json:"message"`
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// PushEvent is the envelope written to agents connected over the stream.
type PushEvent struct {
	Event     string      `json:"event"`
	Timestamp int64       `json:"ts"`
	Data      interface{} `json:"data"`
}
