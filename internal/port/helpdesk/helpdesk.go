// Package helpdesk defines the port interface for the agent roster source.
package helpdesk

import "context"

// AgentStatus is one agent as reported by the helpdesk.
type AgentStatus struct {
	ID        int64
	Name      string
	Email     string
	Available bool
}

// Source lists agents page by page. A page shorter than perPage is the last one.
type Source interface {
	ListAgents(ctx context.Context, page, perPage int) ([]AgentStatus, error)
}
