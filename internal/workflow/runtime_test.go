package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

type spyInvoker struct {
	calls []string
	fn    func(ctx context.Context, hook string, req HookRequest) error
}

func (s *spyInvoker) Invoke(ctx context.Context, hook string, req HookRequest) error {
	s.calls = append(s.calls, hook)
	if s.fn != nil {
		return s.fn(ctx, hook, req)
	}
	return nil
}

func strPtr(v string) *string { return &v }

func supportSnapshot() domain.WorkflowSnapshot {
	return domain.WorkflowSnapshot{
		Definition: domain.WorkflowDefinition{ID: "def-1", TenantID: "t1", Slug: "support"},
		States: []domain.WorkflowState{
			{ID: "s-new", DefinitionID: "def-1", Slug: "new", Position: 0, IsInitial: true},
			{ID: "s-open", DefinitionID: "def-1", Slug: "open", Position: 1, EntryHook: strPtr("notify_agent")},
			{ID: "s-closed", DefinitionID: "def-1", Slug: "closed", Position: 2, IsTerminal: true},
		},
		Transitions: []domain.WorkflowTransition{
			{ID: "t-1", DefinitionID: "def-1", FromStateID: "s-new", ToStateID: "s-open", FromSlug: "new", ToSlug: "open", GuardHook: strPtr("check_assignable")},
			{ID: "t-2", DefinitionID: "def-1", FromStateID: "s-open", ToStateID: "s-closed", FromSlug: "open", ToSlug: "closed", RequiresComment: true},
		},
	}
}

func TestRuntimeApply(t *testing.T) {
	ticket := domain.Ticket{ID: "tick-1", TenantID: "t1", CurrentStateSlug: "new"}

	t.Run("unknown edge fails with no hook call", func(t *testing.T) {
		invoker := &spyInvoker{}
		runtime := NewRuntime(invoker, 0, zap.NewNop())

		_, err := runtime.Apply(context.Background(), supportSnapshot(), ticket, TransitionRequest{TargetSlug: "closed"})
		require.ErrorIs(t, err, ErrNoSuchTransition)
		assert.Empty(t, invoker.calls)
	})

	t.Run("comment requirement checked before guard", func(t *testing.T) {
		invoker := &spyInvoker{}
		runtime := NewRuntime(invoker, 0, zap.NewNop())
		open := domain.Ticket{ID: "tick-1", TenantID: "t1", CurrentStateSlug: "open"}

		_, err := runtime.Apply(context.Background(), supportSnapshot(), open, TransitionRequest{TargetSlug: "closed"})
		require.ErrorIs(t, err, ErrCommentRequired)
		assert.Empty(t, invoker.calls)
	})

	t.Run("guard rejection fails closed", func(t *testing.T) {
		invoker := &spyInvoker{fn: func(ctx context.Context, hook string, req HookRequest) error {
			return errors.New("ticket not assignable")
		}}
		runtime := NewRuntime(invoker, 0, zap.NewNop())

		_, err := runtime.Apply(context.Background(), supportSnapshot(), ticket, TransitionRequest{TargetSlug: "open"})
		require.ErrorIs(t, err, ErrGuardRejected)
		assert.Equal(t, []string{"check_assignable"}, invoker.calls)
	})

	t.Run("guard timeout fails closed", func(t *testing.T) {
		invoker := &spyInvoker{fn: func(ctx context.Context, hook string, req HookRequest) error {
			<-ctx.Done()
			return ctx.Err()
		}}
		runtime := NewRuntime(invoker, 10*time.Millisecond, zap.NewNop())

		_, err := runtime.Apply(context.Background(), supportSnapshot(), ticket, TransitionRequest{TargetSlug: "open"})
		require.ErrorIs(t, err, ErrGuardRejected)
	})

	t.Run("successful transition runs guard then entry hook", func(t *testing.T) {
		invoker := &spyInvoker{}
		runtime := NewRuntime(invoker, 0, zap.NewNop())

		result, err := runtime.Apply(context.Background(), supportSnapshot(), ticket, TransitionRequest{TargetSlug: "open"})
		require.NoError(t, err)
		assert.Equal(t, "new", result.FromSlug)
		assert.Equal(t, "open", result.ToState.Slug)
		assert.Empty(t, result.Warnings)
		assert.Equal(t, []string{"check_assignable", "notify_agent"}, invoker.calls)
	})

	t.Run("entry hook failure is a warning, not an error", func(t *testing.T) {
		invoker := &spyInvoker{fn: func(ctx context.Context, hook string, req HookRequest) error {
			if hook == "notify_agent" {
				return errors.New("smtp unavailable")
			}
			return nil
		}}
		runtime := NewRuntime(invoker, 0, zap.NewNop())

		result, err := runtime.Apply(context.Background(), supportSnapshot(), ticket, TransitionRequest{TargetSlug: "open"})
		require.NoError(t, err)
		assert.Equal(t, "open", result.ToState.Slug)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], "notify_agent")
	})

	t.Run("entry hook sees the destination state on the ticket", func(t *testing.T) {
		var seenSlug string
		invoker := &spyInvoker{fn: func(ctx context.Context, hook string, req HookRequest) error {
			if hook == "notify_agent" {
				seenSlug = req.Ticket.CurrentStateSlug
			}
			return nil
		}}
		runtime := NewRuntime(invoker, 0, zap.NewNop())

		_, err := runtime.Apply(context.Background(), supportSnapshot(), ticket, TransitionRequest{TargetSlug: "open"})
		require.NoError(t, err)
		assert.Equal(t, "open", seenSlug)
	})

	t.Run("entry hook can request deadline recompute", func(t *testing.T) {
		invoker := &spyInvoker{fn: func(ctx context.Context, hook string, req HookRequest) error {
			if hook == "notify_agent" {
				req.Outcome.RecomputeDeadlines = true
			}
			return nil
		}}
		runtime := NewRuntime(invoker, 0, zap.NewNop())

		result, err := runtime.Apply(context.Background(), supportSnapshot(), ticket, TransitionRequest{TargetSlug: "open"})
		require.NoError(t, err)
		assert.True(t, result.RecomputeDeadlines)
	})

	t.Run("comment satisfies the requirement", func(t *testing.T) {
		invoker := &spyInvoker{}
		runtime := NewRuntime(invoker, 0, zap.NewNop())
		open := domain.Ticket{ID: "tick-1", TenantID: "t1", CurrentStateSlug: "open"}

		result, err := runtime.Apply(context.Background(), supportSnapshot(), open, TransitionRequest{TargetSlug: "closed", Comment: "resolved by restart"})
		require.NoError(t, err)
		assert.Equal(t, "closed", result.ToState.Slug)
	})
}
