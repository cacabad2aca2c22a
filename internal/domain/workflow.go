package domain

import (
	"sort"
	"time"
)

// Metadata is a free-form key/value map attached to transitions and passed
// through to hooks unchanged. The engine never interprets its contents.
type Metadata map[string]any

// WorkflowDefinition is a named state machine scoped to a tenant and
// optional brand. At most one definition per scope may be the default.
type WorkflowDefinition struct {
	ID          string
	TenantID    string
	BrandID     *string
	Slug        string
	Name        string
	Description string
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkflowState is a node of a definition. The id is durable across edits;
// the slug is the stable human-facing key transitions reference.
type WorkflowState struct {
	ID           string
	DefinitionID string
	Name         string
	Slug         string
	Position     int
	IsInitial    bool
	IsTerminal   bool
	SlaMinutes   *int
	EntryHook    *string
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowTransition is a directed edge of a definition. It is persisted
// against durable state ids; the slugs are denormalized for execution.
type WorkflowTransition struct {
	ID              string
	DefinitionID    string
	FromStateID     string
	ToStateID       string
	FromSlug        string
	ToSlug          string
	GuardHook       *string
	RequiresComment bool
	Metadata        Metadata
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WorkflowSnapshot is a consistent read of a definition with its states and
// transitions, the unit the runtime executes against and the cache stores.
type WorkflowSnapshot struct {
	Definition  WorkflowDefinition
	States      []WorkflowState
	Transitions []WorkflowTransition
}

// StateBySlug returns the state with the given slug, if any.
func (s *WorkflowSnapshot) StateBySlug(slug string) (*WorkflowState, bool) {
	for i := range s.States {
		if s.States[i].Slug == slug {
			return &s.States[i], true
		}
	}
	return nil, false
}

// FindTransition returns the transition from one slug to another, if any.
// The (definition, from, to) pair is unique by invariant.
func (s *WorkflowSnapshot) FindTransition(fromSlug, toSlug string) (*WorkflowTransition, bool) {
	for i := range s.Transitions {
		if s.Transitions[i].FromSlug == fromSlug && s.Transitions[i].ToSlug == toSlug {
			return &s.Transitions[i], true
		}
	}
	return nil, false
}

// InitialState resolves the effective initial state: the first state by
// position flagged is_initial. Definitions under construction may have no
// initial state, in which case ok is false.
func (s *WorkflowSnapshot) InitialState() (*WorkflowState, bool) {
	candidates := make([]*WorkflowState, 0, 1)
	for i := range s.States {
		if s.States[i].IsInitial {
			candidates = append(candidates, &s.States[i])
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Position < candidates[j].Position
	})
	return candidates[0], true
}
