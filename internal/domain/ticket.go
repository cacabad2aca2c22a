package domain

import "time"

// Ticket is the projection of the externally owned ticket record the
// engine reads and writes. Only the SLA and workflow-state fields are
// mutated here; everything else belongs to the surrounding application.
type Ticket struct {
	ID                   string
	TenantID             string
	BrandID              *string
	Channel              TicketChannel
	Priority             TicketPriority
	WorkflowDefinitionID string
	CurrentStateSlug     string
	SlaPolicyID          *string
	FirstResponseDueAt   *time.Time
	ResolutionDueAt      *time.Time
	FirstRespondedAt     *time.Time
	ResolvedAt           *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TicketWorkflowHistory records one applied transition for audit purposes.
// Warnings carries entry-hook failure messages; the state change itself is
// committed regardless.
type TicketWorkflowHistory struct {
	ID        string
	TicketID  string
	FromSlug  string
	ToSlug    string
	Comment   string
	Actor     string
	Warnings  []string
	CreatedAt time.Time
}
