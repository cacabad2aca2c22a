package workflow

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// DesiredState is one state as submitted by an administrator. A nil ID
// means create; an ID known to the definition means update in place. A nil
// Position defaults to the item's index in the desired array.
type DesiredState struct {
	ID          *string
	Name        string
	Slug        string
	Position    *int
	IsInitial   bool
	IsTerminal  bool
	SlaMinutes  *int
	EntryHook   *string
	Description string
}

// DesiredTransition references states by slug, the stable authoring key.
// A transition naming a slug absent from the desired state set is skipped,
// tolerating forward declarations and renames within one edit session.
type DesiredTransition struct {
	ID              *string
	FromSlug        string
	ToSlug          string
	GuardHook       *string
	RequiresComment bool
	Metadata        domain.Metadata
}

// DesiredDefinition is the full authoring payload. Nil header fields leave
// the persisted value untouched.
type DesiredDefinition struct {
	Name        *string
	Description *string
	IsDefault   *bool
	States      []DesiredState
	Transitions []DesiredTransition
}

// ChangeSet counts the operations one reconciliation applied. Reconciling
// the same desired set twice yields an empty second ChangeSet.
type ChangeSet struct {
	StatesCreated      int
	StatesUpdated      int
	StatesDeleted      int
	TransitionsCreated int
	TransitionsUpdated int
	TransitionsDeleted int
	DefinitionUpdated  bool
	SiblingsDemoted    bool
}

// Empty reports whether the reconciliation changed any persisted record.
func (c ChangeSet) Empty() bool {
	return c.StatesCreated == 0 && c.StatesUpdated == 0 && c.StatesDeleted == 0 &&
		c.TransitionsCreated == 0 && c.TransitionsUpdated == 0 && c.TransitionsDeleted == 0 &&
		!c.DefinitionUpdated
}

// Result is the reconciled, persisted shape plus the applied operations.
type Result struct {
	Snapshot domain.WorkflowSnapshot
	Changes  ChangeSet
}

// Store is the persistence port the reconciler drives. WithinDefinition
// must run fn inside a single atomic unit of work holding a lock on the
// definition record, so concurrent reconciliations of one definition
// serialize while different definitions proceed independently.
type Store interface {
	WithinDefinition(ctx context.Context, definitionID string, fn func(ctx context.Context, tx DefinitionTx) error) error
}

// DefinitionTx is the set of operations available inside a reconciliation
// unit of work. Insert methods assign durable ids and timestamps.
type DefinitionTx interface {
	Definition(ctx context.Context) (*domain.WorkflowDefinition, error)
	States(ctx context.Context) ([]domain.WorkflowState, error)
	Transitions(ctx context.Context) ([]domain.WorkflowTransition, error)
	InsertState(ctx context.Context, state *domain.WorkflowState) error
	UpdateState(ctx context.Context, state *domain.WorkflowState) error
	DeleteStates(ctx context.Context, ids []string) error
	InsertTransition(ctx context.Context, transition *domain.WorkflowTransition) error
	UpdateTransition(ctx context.Context, transition *domain.WorkflowTransition) error
	DeleteTransitions(ctx context.Context, ids []string) error
	UpdateDefinition(ctx context.Context, def *domain.WorkflowDefinition) error
	DemoteSiblingDefaults(ctx context.Context, def *domain.WorkflowDefinition) error
}

// Reconciler converges persisted states and transitions to a desired set:
// diff by durable identity, upsert matched items, delete by absence.
type Reconciler struct {
	store  Store
	logger *zap.Logger
}

// NewReconciler constructs a reconciler over the given store.
func NewReconciler(store Store, logger *zap.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Reconcile validates the desired set and converges the definition to it
// in one atomic unit of work. Validation failures abort before any write.
func (r *Reconciler) Reconcile(ctx context.Context, definitionID string, desired DesiredDefinition) (*Result, error) {
	if err := validateDesired(desired); err != nil {
		return nil, err
	}

	var result Result
	err := r.store.WithinDefinition(ctx, definitionID, func(ctx context.Context, tx DefinitionTx) error {
		def, err := tx.Definition(ctx)
		if err != nil {
			return err
		}

		states, deleteStateIDs, err := r.reconcileStates(ctx, tx, def, desired.States, &result.Changes)
		if err != nil {
			return err
		}
		transitions, deleteTransitionIDs, err := r.reconcileTransitions(ctx, tx, def, desired.Transitions, states, &result.Changes)
		if err != nil {
			return err
		}

		// Orphaned transitions go first so no dangling references survive
		// the state deletions.
		if len(deleteTransitionIDs) > 0 {
			if err := tx.DeleteTransitions(ctx, deleteTransitionIDs); err != nil {
				return err
			}
			result.Changes.TransitionsDeleted = len(deleteTransitionIDs)
		}
		if len(deleteStateIDs) > 0 {
			if err := tx.DeleteStates(ctx, deleteStateIDs); err != nil {
				return err
			}
			result.Changes.StatesDeleted = len(deleteStateIDs)
		}

		if err := r.reconcileDefinition(ctx, tx, def, desired, &result.Changes); err != nil {
			return err
		}

		result.Snapshot = domain.WorkflowSnapshot{
			Definition:  *def,
			States:      states,
			Transitions: transitions,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Info("workflow definition reconciled",
		zap.String("definition_id", definitionID),
		zap.Int("states_created", result.Changes.StatesCreated),
		zap.Int("states_updated", result.Changes.StatesUpdated),
		zap.Int("states_deleted", result.Changes.StatesDeleted),
		zap.Int("transitions_created", result.Changes.TransitionsCreated),
		zap.Int("transitions_updated", result.Changes.TransitionsUpdated),
		zap.Int("transitions_deleted", result.Changes.TransitionsDeleted))
	return &result, nil
}

func (r *Reconciler) reconcileStates(ctx context.Context, tx DefinitionTx, def *domain.WorkflowDefinition, desired []DesiredState, changes *ChangeSet) ([]domain.WorkflowState, []string, error) {
	existing, err := tx.States(ctx)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]*domain.WorkflowState, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}

	kept := make(map[string]struct{}, len(desired))
	states := make([]domain.WorkflowState, 0, len(desired))
	for i, ds := range desired {
		position := i
		if ds.Position != nil {
			position = *ds.Position
		}
		var current *domain.WorkflowState
		if ds.ID != nil {
			current = byID[*ds.ID]
		}
		if current != nil {
			next := *current
			next.Name = ds.Name
			next.Slug = ds.Slug
			next.Position = position
			next.IsInitial = ds.IsInitial
			next.IsTerminal = ds.IsTerminal
			next.SlaMinutes = ds.SlaMinutes
			next.EntryHook = ds.EntryHook
			next.Description = ds.Description
			if stateChanged(current, &next) {
				if err := tx.UpdateState(ctx, &next); err != nil {
					return nil, nil, err
				}
				changes.StatesUpdated++
			}
			kept[current.ID] = struct{}{}
			states = append(states, next)
			continue
		}
		state := domain.WorkflowState{
			DefinitionID: def.ID,
			Name:         ds.Name,
			Slug:         ds.Slug,
			Position:     position,
			IsInitial:    ds.IsInitial,
			IsTerminal:   ds.IsTerminal,
			SlaMinutes:   ds.SlaMinutes,
			EntryHook:    ds.EntryHook,
			Description:  ds.Description,
		}
		if err := tx.InsertState(ctx, &state); err != nil {
			return nil, nil, err
		}
		changes.StatesCreated++
		states = append(states, state)
	}

	var deleteIDs []string
	for i := range existing {
		if _, ok := kept[existing[i].ID]; !ok {
			deleteIDs = append(deleteIDs, existing[i].ID)
		}
	}
	return states, deleteIDs, nil
}

func (r *Reconciler) reconcileTransitions(ctx context.Context, tx DefinitionTx, def *domain.WorkflowDefinition, desired []DesiredTransition, states []domain.WorkflowState, changes *ChangeSet) ([]domain.WorkflowTransition, []string, error) {
	existing, err := tx.Transitions(ctx)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]*domain.WorkflowTransition, len(existing))
	byPair := make(map[string]*domain.WorkflowTransition, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
		byPair[existing[i].FromStateID+"/"+existing[i].ToStateID] = &existing[i]
	}
	bySlug := make(map[string]*domain.WorkflowState, len(states))
	for i := range states {
		bySlug[states[i].Slug] = &states[i]
	}

	kept := make(map[string]struct{}, len(desired))
	transitions := make([]domain.WorkflowTransition, 0, len(desired))
	for _, dt := range desired {
		from, fromOK := bySlug[dt.FromSlug]
		to, toOK := bySlug[dt.ToSlug]
		if !fromOK || !toOK {
			// Unknown slugs are tolerated, not rejected: the author may
			// have renamed or removed a state in the same edit.
			r.logger.Debug("skipping transition with unresolved slug",
				zap.String("definition_id", def.ID),
				zap.String("from", dt.FromSlug),
				zap.String("to", dt.ToSlug))
			continue
		}

		var current *domain.WorkflowTransition
		if dt.ID != nil {
			current = byID[*dt.ID]
		}
		if current == nil {
			current = byPair[from.ID+"/"+to.ID]
		}
		if current != nil {
			next := *current
			next.FromStateID = from.ID
			next.ToStateID = to.ID
			next.FromSlug = from.Slug
			next.ToSlug = to.Slug
			next.GuardHook = dt.GuardHook
			next.RequiresComment = dt.RequiresComment
			next.Metadata = dt.Metadata
			if transitionChanged(current, &next) {
				if err := tx.UpdateTransition(ctx, &next); err != nil {
					return nil, nil, err
				}
				changes.TransitionsUpdated++
			}
			kept[current.ID] = struct{}{}
			transitions = append(transitions, next)
			continue
		}
		transition := domain.WorkflowTransition{
			DefinitionID:    def.ID,
			FromStateID:     from.ID,
			ToStateID:       to.ID,
			FromSlug:        from.Slug,
			ToSlug:          to.Slug,
			GuardHook:       dt.GuardHook,
			RequiresComment: dt.RequiresComment,
			Metadata:        dt.Metadata,
		}
		if err := tx.InsertTransition(ctx, &transition); err != nil {
			return nil, nil, err
		}
		changes.TransitionsCreated++
		transitions = append(transitions, transition)
	}

	var deleteIDs []string
	for i := range existing {
		if _, ok := kept[existing[i].ID]; !ok {
			deleteIDs = append(deleteIDs, existing[i].ID)
		}
	}
	return transitions, deleteIDs, nil
}

func (r *Reconciler) reconcileDefinition(ctx context.Context, tx DefinitionTx, def *domain.WorkflowDefinition, desired DesiredDefinition, changes *ChangeSet) error {
	next := *def
	if desired.Name != nil {
		next.Name = *desired.Name
	}
	if desired.Description != nil {
		next.Description = *desired.Description
	}
	if desired.IsDefault != nil {
		next.IsDefault = *desired.IsDefault
	}
	if next.Name != def.Name || next.Description != def.Description || next.IsDefault != def.IsDefault {
		if err := tx.UpdateDefinition(ctx, &next); err != nil {
			return err
		}
		changes.DefinitionUpdated = true
	}
	*def = next

	if def.IsDefault {
		// At most one default per tenant+brand scope: demote every sibling
		// inside the same unit of work.
		if err := tx.DemoteSiblingDefaults(ctx, def); err != nil {
			return err
		}
		changes.SiblingsDemoted = true
	}
	return nil
}

func validateDesired(desired DesiredDefinition) error {
	slugs := make(map[string]struct{}, len(desired.States))
	initialCount := 0
	for i, ds := range desired.States {
		if ds.Slug == "" || ds.Name == "" {
			return apperrors.NewValidationError("state name and slug are required", map[string]any{
				"states": fmt.Sprintf("item %d is missing name or slug", i),
			})
		}
		if _, dup := slugs[ds.Slug]; dup {
			return apperrors.NewValidationError("state slugs must be unique within a definition", map[string]any{
				"states": fmt.Sprintf("duplicate slug %q", ds.Slug),
			})
		}
		slugs[ds.Slug] = struct{}{}
		if ds.IsInitial {
			initialCount++
		}
		if ds.SlaMinutes != nil && *ds.SlaMinutes < 0 {
			return apperrors.NewValidationError("state sla_minutes must not be negative", map[string]any{
				"states": fmt.Sprintf("state %q", ds.Slug),
			})
		}
	}
	if initialCount > 1 {
		return apperrors.NewValidationError("at most one state may be initial", map[string]any{
			"states": fmt.Sprintf("%d states flagged is_initial", initialCount),
		})
	}

	pairs := make(map[string]struct{}, len(desired.Transitions))
	for _, dt := range desired.Transitions {
		if dt.FromSlug == "" || dt.ToSlug == "" {
			return apperrors.NewValidationError("transition from and to slugs are required", map[string]any{
				"transitions": "missing from or to slug",
			})
		}
		key := dt.FromSlug + "/" + dt.ToSlug
		if _, dup := pairs[key]; dup {
			return apperrors.NewValidationError("at most one transition per (from, to) pair", map[string]any{
				"transitions": fmt.Sprintf("duplicate pair %s", key),
			})
		}
		pairs[key] = struct{}{}
	}
	return nil
}

func stateChanged(a, b *domain.WorkflowState) bool {
	return a.Name != b.Name ||
		a.Slug != b.Slug ||
		a.Position != b.Position ||
		a.IsInitial != b.IsInitial ||
		a.IsTerminal != b.IsTerminal ||
		!equalIntPtr(a.SlaMinutes, b.SlaMinutes) ||
		!equalStringPtr(a.EntryHook, b.EntryHook) ||
		a.Description != b.Description
}

func transitionChanged(a, b *domain.WorkflowTransition) bool {
	return a.FromStateID != b.FromStateID ||
		a.ToStateID != b.ToStateID ||
		!equalStringPtr(a.GuardHook, b.GuardHook) ||
		a.RequiresComment != b.RequiresComment ||
		!reflect.DeepEqual(a.Metadata, b.Metadata)
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
