package dto

import (
	"time"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
	"github.com/spec-kit/lifecycle-engine/internal/workflow"
)

// CreateWorkflowDefinitionRequest payload.
type CreateWorkflowDefinitionRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

// WorkflowStateInput is one desired state. Omitting id creates a new
// state; carrying an existing id edits it in place even across renames.
type WorkflowStateInput struct {
	ID          *string `json:"id,omitempty"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Position    *int    `json:"position,omitempty"`
	IsInitial   bool    `json:"is_initial"`
	IsTerminal  bool    `json:"is_terminal"`
	SlaMinutes  *int    `json:"sla_minutes,omitempty"`
	EntryHook   *string `json:"entry_hook,omitempty"`
	Description string  `json:"description"`
}

// WorkflowTransitionInput is one desired transition, referencing states
// by slug.
type WorkflowTransitionInput struct {
	ID              *string         `json:"id,omitempty"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	GuardHook       *string         `json:"guard_hook,omitempty"`
	RequiresComment bool            `json:"requires_comment"`
	Metadata        domain.Metadata `json:"metadata,omitempty"`
}

// ReconcileWorkflowRequest is the full desired shape of a definition.
type ReconcileWorkflowRequest struct {
	Name        *string                   `json:"name,omitempty"`
	Description *string                   `json:"description,omitempty"`
	IsDefault   *bool                     `json:"is_default,omitempty"`
	States      []WorkflowStateInput      `json:"states"`
	Transitions []WorkflowTransitionInput `json:"transitions"`
}

// ToDesired maps the request into the reconciler's input shape.
func (r ReconcileWorkflowRequest) ToDesired() workflow.DesiredDefinition {
	desired := workflow.DesiredDefinition{
		Name:        r.Name,
		Description: r.Description,
		IsDefault:   r.IsDefault,
		States:      make([]workflow.DesiredState, 0, len(r.States)),
		Transitions: make([]workflow.DesiredTransition, 0, len(r.Transitions)),
	}
	for _, s := range r.States {
		desired.States = append(desired.States, workflow.DesiredState{
			ID:          s.ID,
			Name:        s.Name,
			Slug:        s.Slug,
			Position:    s.Position,
			IsInitial:   s.IsInitial,
			IsTerminal:  s.IsTerminal,
			SlaMinutes:  s.SlaMinutes,
			EntryHook:   s.EntryHook,
			Description: s.Description,
		})
	}
	for _, t := range r.Transitions {
		desired.Transitions = append(desired.Transitions, workflow.DesiredTransition{
			ID:              t.ID,
			FromSlug:        t.From,
			ToSlug:          t.To,
			GuardHook:       t.GuardHook,
			RequiresComment: t.RequiresComment,
			Metadata:        t.Metadata,
		})
	}
	return desired
}

// WorkflowDefinitionResponse header fields.
type WorkflowDefinitionResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	BrandID     *string   `json:"brand_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// WorkflowStateResponse is one persisted state.
type WorkflowStateResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Position    int     `json:"position"`
	IsInitial   bool    `json:"is_initial"`
	IsTerminal  bool    `json:"is_terminal"`
	SlaMinutes  *int    `json:"sla_minutes"`
	EntryHook   *string `json:"entry_hook"`
	Description string  `json:"description"`
}

// WorkflowTransitionResponse is one persisted transition.
type WorkflowTransitionResponse struct {
	ID              string          `json:"id"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	GuardHook       *string         `json:"guard_hook"`
	RequiresComment bool            `json:"requires_comment"`
	Metadata        domain.Metadata `json:"metadata,omitempty"`
}

// WorkflowSnapshotResponse is the full definition shape.
type WorkflowSnapshotResponse struct {
	Definition  WorkflowDefinitionResponse   `json:"definition"`
	States      []WorkflowStateResponse      `json:"states"`
	Transitions []WorkflowTransitionResponse `json:"transitions"`
}

// ReconcileChangesResponse counts the applied operations.
type ReconcileChangesResponse struct {
	StatesCreated      int  `json:"states_created"`
	StatesUpdated      int  `json:"states_updated"`
	StatesDeleted      int  `json:"states_deleted"`
	TransitionsCreated int  `json:"transitions_created"`
	TransitionsUpdated int  `json:"transitions_updated"`
	TransitionsDeleted int  `json:"transitions_deleted"`
	DefinitionUpdated  bool `json:"definition_updated"`
}

// ReconcileWorkflowResponse combines the persisted shape with the diff.
type ReconcileWorkflowResponse struct {
	Snapshot WorkflowSnapshotResponse `json:"snapshot"`
	Changes  ReconcileChangesResponse `json:"changes"`
}

// NewWorkflowDefinitionResponse maps a definition.
func NewWorkflowDefinitionResponse(def *domain.WorkflowDefinition) WorkflowDefinitionResponse {
	return WorkflowDefinitionResponse{
		ID:          def.ID,
		TenantID:    def.TenantID,
		BrandID:     def.BrandID,
		Slug:        def.Slug,
		Name:        def.Name,
		Description: def.Description,
		IsDefault:   def.IsDefault,
		CreatedAt:   def.CreatedAt,
		UpdatedAt:   def.UpdatedAt,
	}
}

// NewWorkflowSnapshotResponse maps a snapshot.
func NewWorkflowSnapshotResponse(snapshot *domain.WorkflowSnapshot) WorkflowSnapshotResponse {
	resp := WorkflowSnapshotResponse{
		Definition:  NewWorkflowDefinitionResponse(&snapshot.Definition),
		States:      make([]WorkflowStateResponse, 0, len(snapshot.States)),
		Transitions: make([]WorkflowTransitionResponse, 0, len(snapshot.Transitions)),
	}
	for _, s := range snapshot.States {
		resp.States = append(resp.States, WorkflowStateResponse{
			ID:          s.ID,
			Name:        s.Name,
			Slug:        s.Slug,
			Position:    s.Position,
			IsInitial:   s.IsInitial,
			IsTerminal:  s.IsTerminal,
			SlaMinutes:  s.SlaMinutes,
			EntryHook:   s.EntryHook,
			Description: s.Description,
		})
	}
	for _, t := range snapshot.Transitions {
		resp.Transitions = append(resp.Transitions, WorkflowTransitionResponse{
			ID:              t.ID,
			From:            t.FromSlug,
			To:              t.ToSlug,
			GuardHook:       t.GuardHook,
			RequiresComment: t.RequiresComment,
			Metadata:        t.Metadata,
		})
	}
	return resp
}

// NewReconcileWorkflowResponse maps a reconciliation result.
func NewReconcileWorkflowResponse(result *workflow.Result) ReconcileWorkflowResponse {
	return ReconcileWorkflowResponse{
		Snapshot: NewWorkflowSnapshotResponse(&result.Snapshot),
		Changes: ReconcileChangesResponse{
			StatesCreated:      result.Changes.StatesCreated,
			StatesUpdated:      result.Changes.StatesUpdated,
			StatesDeleted:      result.Changes.StatesDeleted,
			TransitionsCreated: result.Changes.TransitionsCreated,
			TransitionsUpdated: result.Changes.TransitionsUpdated,
			TransitionsDeleted: result.Changes.TransitionsDeleted,
			DefinitionUpdated:  result.Changes.DefinitionUpdated,
		},
	}
}
