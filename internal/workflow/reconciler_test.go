package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// fakeStore keeps one definition in memory and satisfies Store.
type fakeStore struct {
	def         domain.WorkflowDefinition
	states      []domain.WorkflowState
	transitions []domain.WorkflowTransition
	nextID      int
	demoted     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{def: domain.WorkflowDefinition{ID: "def-1", TenantID: "t1", Slug: "support", Name: "Support"}}
}

func (s *fakeStore) WithinDefinition(ctx context.Context, definitionID string, fn func(ctx context.Context, tx DefinitionTx) error) error {
	return fn(ctx, &fakeTx{store: s})
}

func (s *fakeStore) allocID() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) Definition(ctx context.Context) (*domain.WorkflowDefinition, error) {
	def := t.store.def
	return &def, nil
}

func (t *fakeTx) States(ctx context.Context) ([]domain.WorkflowState, error) {
	return append([]domain.WorkflowState(nil), t.store.states...), nil
}

func (t *fakeTx) Transitions(ctx context.Context) ([]domain.WorkflowTransition, error) {
	return append([]domain.WorkflowTransition(nil), t.store.transitions...), nil
}

func (t *fakeTx) InsertState(ctx context.Context, state *domain.WorkflowState) error {
	state.ID = t.store.allocID()
	t.store.states = append(t.store.states, *state)
	return nil
}

func (t *fakeTx) UpdateState(ctx context.Context, state *domain.WorkflowState) error {
	for i := range t.store.states {
		if t.store.states[i].ID == state.ID {
			t.store.states[i] = *state
			return nil
		}
	}
	return fmt.Errorf("state %s not found", state.ID)
}

func (t *fakeTx) DeleteStates(ctx context.Context, ids []string) error {
	keep := t.store.states[:0]
	for _, s := range t.store.states {
		if !contains(ids, s.ID) {
			keep = append(keep, s)
		}
	}
	t.store.states = keep
	return nil
}

func (t *fakeTx) InsertTransition(ctx context.Context, transition *domain.WorkflowTransition) error {
	transition.ID = t.store.allocID()
	t.store.transitions = append(t.store.transitions, *transition)
	return nil
}

func (t *fakeTx) UpdateTransition(ctx context.Context, transition *domain.WorkflowTransition) error {
	for i := range t.store.transitions {
		if t.store.transitions[i].ID == transition.ID {
			t.store.transitions[i] = *transition
			return nil
		}
	}
	return fmt.Errorf("transition %s not found", transition.ID)
}

func (t *fakeTx) DeleteTransitions(ctx context.Context, ids []string) error {
	keep := t.store.transitions[:0]
	for _, tr := range t.store.transitions {
		if !contains(ids, tr.ID) {
			keep = append(keep, tr)
		}
	}
	t.store.transitions = keep
	return nil
}

func (t *fakeTx) UpdateDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	t.store.def = *def
	return nil
}

func (t *fakeTx) DemoteSiblingDefaults(ctx context.Context, def *domain.WorkflowDefinition) error {
	t.store.demoted = true
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func desiredThreeStates() DesiredDefinition {
	return DesiredDefinition{
		States: []DesiredState{
			{Name: "New", Slug: "new", IsInitial: true},
			{Name: "Open", Slug: "open"},
			{Name: "Closed", Slug: "closed", IsTerminal: true},
		},
		Transitions: []DesiredTransition{
			{FromSlug: "new", ToSlug: "open"},
			{FromSlug: "open", ToSlug: "closed", RequiresComment: true},
		},
	}
}

// echo maps a persisted snapshot back into the desired shape, ids
// included, the way an authoring client resubmits what it read.
func echo(snapshot domain.WorkflowSnapshot) DesiredDefinition {
	desired := DesiredDefinition{}
	for _, s := range snapshot.States {
		s := s
		desired.States = append(desired.States, DesiredState{
			ID:          &s.ID,
			Name:        s.Name,
			Slug:        s.Slug,
			Position:    &s.Position,
			IsInitial:   s.IsInitial,
			IsTerminal:  s.IsTerminal,
			SlaMinutes:  s.SlaMinutes,
			EntryHook:   s.EntryHook,
			Description: s.Description,
		})
	}
	for _, tr := range snapshot.Transitions {
		tr := tr
		desired.Transitions = append(desired.Transitions, DesiredTransition{
			ID:              &tr.ID,
			FromSlug:        tr.FromSlug,
			ToSlug:          tr.ToSlug,
			GuardHook:       tr.GuardHook,
			RequiresComment: tr.RequiresComment,
			Metadata:        tr.Metadata,
		})
	}
	return desired
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("creates everything from empty", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		result, err := reconciler.Reconcile(ctx, "def-1", desiredThreeStates())
		require.NoError(t, err)
		assert.Equal(t, 3, result.Changes.StatesCreated)
		assert.Equal(t, 2, result.Changes.TransitionsCreated)
		assert.Len(t, store.states, 3)
		assert.Len(t, store.transitions, 2)

		// Transitions carry resolved durable state ids.
		for _, tr := range store.transitions {
			assert.NotEmpty(t, tr.FromStateID)
			assert.NotEmpty(t, tr.ToStateID)
		}
	})

	t.Run("resubmitting the same shape changes nothing", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		first, err := reconciler.Reconcile(ctx, "def-1", desiredThreeStates())
		require.NoError(t, err)

		second, err := reconciler.Reconcile(ctx, "def-1", echo(first.Snapshot))
		require.NoError(t, err)
		assert.True(t, second.Changes.Empty(), "second pass applied %+v", second.Changes)
	})

	t.Run("removing a state deletes it and its transition only", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		first, err := reconciler.Reconcile(ctx, "def-1", desiredThreeStates())
		require.NoError(t, err)

		desired := echo(first.Snapshot)
		// Drop "closed" and the transition into it.
		desired.States = desired.States[:2]
		desired.Transitions = desired.Transitions[:1]

		second, err := reconciler.Reconcile(ctx, "def-1", desired)
		require.NoError(t, err)
		assert.Equal(t, 1, second.Changes.StatesDeleted)
		assert.Equal(t, 1, second.Changes.TransitionsDeleted)
		assert.Zero(t, second.Changes.StatesCreated)
		assert.Zero(t, second.Changes.StatesUpdated)

		// Survivors keep their durable ids.
		require.Len(t, store.states, 2)
		assert.Equal(t, first.Snapshot.States[0].ID, store.states[0].ID)
		assert.Equal(t, first.Snapshot.States[1].ID, store.states[1].ID)
		require.Len(t, store.transitions, 1)
		assert.Equal(t, first.Snapshot.Transitions[0].ID, store.transitions[0].ID)
	})

	t.Run("transition naming an unknown slug is skipped", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		desired := desiredThreeStates()
		desired.Transitions = append(desired.Transitions, DesiredTransition{FromSlug: "closed", ToSlug: "archived"})

		result, err := reconciler.Reconcile(ctx, "def-1", desired)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Changes.TransitionsCreated)
		assert.Len(t, store.transitions, 2)
	})

	t.Run("rename via durable id keeps the state", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		first, err := reconciler.Reconcile(ctx, "def-1", desiredThreeStates())
		require.NoError(t, err)

		desired := echo(first.Snapshot)
		desired.States[1].Slug = "in_progress"
		desired.States[1].Name = "In Progress"
		desired.Transitions[0].ToSlug = "in_progress"
		desired.Transitions[1].FromSlug = "in_progress"

		second, err := reconciler.Reconcile(ctx, "def-1", desired)
		require.NoError(t, err)
		assert.Equal(t, 1, second.Changes.StatesUpdated)
		assert.Zero(t, second.Changes.StatesCreated)
		assert.Zero(t, second.Changes.StatesDeleted)

		renamed, ok := findStateBySlug(store.states, "in_progress")
		require.True(t, ok)
		assert.Equal(t, first.Snapshot.States[1].ID, renamed.ID)
	})

	t.Run("transitions rebind by state pair without ids", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		first, err := reconciler.Reconcile(ctx, "def-1", desiredThreeStates())
		require.NoError(t, err)

		// Resubmit with state ids but no transition ids.
		desired := echo(first.Snapshot)
		for i := range desired.Transitions {
			desired.Transitions[i].ID = nil
		}
		second, err := reconciler.Reconcile(ctx, "def-1", desired)
		require.NoError(t, err)
		assert.True(t, second.Changes.Empty())
	})

	t.Run("default definition demotes siblings in the same pass", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		isDefault := true
		desired := desiredThreeStates()
		desired.IsDefault = &isDefault

		result, err := reconciler.Reconcile(ctx, "def-1", desired)
		require.NoError(t, err)
		assert.True(t, result.Changes.DefinitionUpdated)
		assert.True(t, store.demoted)
		assert.True(t, store.def.IsDefault)
	})
}

func TestReconcileValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(d *DesiredDefinition)
		message string
	}{
		{
			name: "missing slug",
			mutate: func(d *DesiredDefinition) {
				d.States[0].Slug = ""
			},
			message: "name and slug are required",
		},
		{
			name: "duplicate slug",
			mutate: func(d *DesiredDefinition) {
				d.States[1].Slug = "new"
			},
			message: "slugs must be unique",
		},
		{
			name: "multiple initial states",
			mutate: func(d *DesiredDefinition) {
				d.States[1].IsInitial = true
			},
			message: "at most one state may be initial",
		},
		{
			name: "negative sla minutes",
			mutate: func(d *DesiredDefinition) {
				minutes := -5
				d.States[0].SlaMinutes = &minutes
			},
			message: "must not be negative",
		},
		{
			name: "duplicate transition pair",
			mutate: func(d *DesiredDefinition) {
				d.Transitions = append(d.Transitions, DesiredTransition{FromSlug: "new", ToSlug: "open"})
			},
			message: "one transition per",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			reconciler := NewReconciler(store, zap.NewNop())

			desired := desiredThreeStates()
			tt.mutate(&desired)

			_, err := reconciler.Reconcile(ctx, "def-1", desired)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
			// Validation aborts before any write.
			assert.Empty(t, store.states)
			assert.Empty(t, store.transitions)
		})
	}

	t.Run("zero initial states is permitted", func(t *testing.T) {
		store := newFakeStore()
		reconciler := NewReconciler(store, zap.NewNop())

		desired := desiredThreeStates()
		desired.States[0].IsInitial = false

		_, err := reconciler.Reconcile(ctx, "def-1", desired)
		require.NoError(t, err)
	})
}

func findStateBySlug(states []domain.WorkflowState, slug string) (*domain.WorkflowState, bool) {
	for i := range states {
		if states[i].Slug == slug {
			return &states[i], true
		}
	}
	return nil, false
}
