package events

import (
	"time"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketDeadlinesComputed EventType = "ticket_deadlines_computed"
	EventTicketTransitionApplied EventType = "ticket_transition_applied"
	EventTicketEntryHookFailed   EventType = "ticket_entry_hook_failed"
	EventTicketSlaBreached       EventType = "ticket_sla_breached"
)

// Event represents a lifecycle event emitted by the engine services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id"`
	Actor     string      `json:"actor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DeadlinesComputedPayload payload.
type DeadlinesComputedPayload struct {
	PolicyID           string                `json:"policy_id"`
	Channel            domain.TicketChannel  `json:"channel"`
	Priority           domain.TicketPriority `json:"priority"`
	FirstResponseDueAt *time.Time            `json:"first_response_due_at,omitempty"`
	ResolutionDueAt    *time.Time            `json:"resolution_due_at,omitempty"`
}

// TransitionAppliedPayload payload.
type TransitionAppliedPayload struct {
	DefinitionID string   `json:"definition_id"`
	FromSlug     string   `json:"from_slug"`
	ToSlug       string   `json:"to_slug"`
	Comment      string   `json:"comment,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// EntryHookFailedPayload payload.
type EntryHookFailedPayload struct {
	Hook      string `json:"hook"`
	StateSlug string `json:"state_slug"`
	Reason    string `json:"reason"`
}

// SlaBreachedPayload payload. Clock is "first_response" or "resolution".
type SlaBreachedPayload struct {
	Clock string    `json:"clock"`
	DueAt time.Time `json:"due_at"`
}
