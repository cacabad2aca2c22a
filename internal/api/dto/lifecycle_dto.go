package dto

import (
	"time"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
	"github.com/spec-kit/lifecycle-engine/internal/service"
)

// TicketCreatedRequest notifies the engine a ticket was created or had
// its channel, priority or policy changed. OccurredAt anchors the SLA
// clocks; omitted, the server uses the request instant.
type TicketCreatedRequest struct {
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// TransitionTicketRequest asks for one workflow transition.
type TransitionTicketRequest struct {
	ToState    string          `json:"to_state"`
	Comment    string          `json:"comment"`
	Actor      string          `json:"actor"`
	Context    domain.Metadata `json:"context,omitempty"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
}

// TicketDeadlinesResponse reports the recomputed SLA state.
type TicketDeadlinesResponse struct {
	TicketID           string     `json:"ticket_id"`
	SlaPolicyID        *string    `json:"sla_policy_id"`
	FirstResponseDueAt *time.Time `json:"first_response_due_at"`
	ResolutionDueAt    *time.Time `json:"resolution_due_at"`
}

// TransitionTicketResponse reports an applied transition.
type TransitionTicketResponse struct {
	TicketID           string     `json:"ticket_id"`
	FromState          string     `json:"from_state"`
	ToState            string     `json:"to_state"`
	Warnings           []string   `json:"warnings,omitempty"`
	FirstResponseDueAt *time.Time `json:"first_response_due_at"`
	ResolutionDueAt    *time.Time `json:"resolution_due_at"`
}

// HistoryEntryResponse is one audit record.
type HistoryEntryResponse struct {
	ID        string    `json:"id"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	Comment   string    `json:"comment"`
	Actor     string    `json:"actor"`
	Warnings  []string  `json:"warnings,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTicketDeadlinesResponse maps a recomputed ticket.
func NewTicketDeadlinesResponse(ticket *domain.Ticket) TicketDeadlinesResponse {
	return TicketDeadlinesResponse{
		TicketID:           ticket.ID,
		SlaPolicyID:        ticket.SlaPolicyID,
		FirstResponseDueAt: ticket.FirstResponseDueAt,
		ResolutionDueAt:    ticket.ResolutionDueAt,
	}
}

// NewTransitionTicketResponse maps a transition outcome.
func NewTransitionTicketResponse(outcome *service.TransitionOutcome) TransitionTicketResponse {
	return TransitionTicketResponse{
		TicketID:           outcome.Ticket.ID,
		FromState:          outcome.FromSlug,
		ToState:            outcome.ToSlug,
		Warnings:           outcome.Warnings,
		FirstResponseDueAt: outcome.Ticket.FirstResponseDueAt,
		ResolutionDueAt:    outcome.Ticket.ResolutionDueAt,
	}
}

// NewHistoryEntryResponses maps audit records.
func NewHistoryEntryResponses(entries []domain.TicketWorkflowHistory) []HistoryEntryResponse {
	resp := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, HistoryEntryResponse{
			ID:        e.ID,
			FromState: e.FromSlug,
			ToState:   e.ToSlug,
			Comment:   e.Comment,
			Actor:     e.Actor,
			Warnings:  e.Warnings,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp
}
