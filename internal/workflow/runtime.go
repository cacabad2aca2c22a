package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// Transition failure conditions. These are expected, recoverable outcomes
// reported to the caller with the ticket state unchanged.
var (
	ErrNoSuchTransition = errors.New("no transition from the current state to the requested state")
	ErrCommentRequired  = errors.New("transition requires a comment")
	ErrGuardRejected    = errors.New("transition rejected by guard hook")
)

// HookInvoker resolves opaque hook identifiers and executes them. The
// engine treats identifiers as strings; resolution happens in the
// surrounding application's registry. A non-nil error is a veto for guard
// hooks and a reported failure for entry hooks.
type HookInvoker interface {
	Invoke(ctx context.Context, hook string, req HookRequest) error
}

// HookRequest carries everything a hook receives. Metadata and Context are
// passed through uninterpreted. Outcome lets an entry hook ask the
// coordinator for work the engine will not do on its own, such as a
// deadline recompute.
type HookRequest struct {
	Ticket     domain.Ticket
	Transition domain.WorkflowTransition
	Context    domain.Metadata
	Outcome    *HookOutcome
}

// HookOutcome collects requests an entry hook made while running.
type HookOutcome struct {
	RecomputeDeadlines bool
}

// TransitionRequest is one caller-initiated transition attempt.
type TransitionRequest struct {
	TargetSlug string
	Comment    string
	Context    domain.Metadata
}

// TransitionResult reports an applied transition. Warnings holds entry-hook
// failures; the state change is committed regardless of them.
type TransitionResult struct {
	FromSlug           string
	ToState            domain.WorkflowState
	Transition         domain.WorkflowTransition
	Warnings           []string
	RecomputeDeadlines bool
}

// Runtime validates and applies transition requests against a definition
// snapshot. It is stateless; the caller persists the resulting state.
type Runtime struct {
	hooks       HookInvoker
	hookTimeout time.Duration
	logger      *zap.Logger
}

// NewRuntime constructs the runtime. hookTimeout bounds each hook call;
// zero disables the bound.
func NewRuntime(hooks HookInvoker, hookTimeout time.Duration, logger *zap.Logger) *Runtime {
	return &Runtime{hooks: hooks, hookTimeout: hookTimeout, logger: logger}
}

// Apply executes one transition request. Check order: transition lookup,
// comment requirement, guard hook. Guard failures (including timeouts)
// fail closed. The destination's entry hook runs after the state change is
// decided and fails open.
func (r *Runtime) Apply(ctx context.Context, snapshot domain.WorkflowSnapshot, ticket domain.Ticket, req TransitionRequest) (*TransitionResult, error) {
	transition, ok := snapshot.FindTransition(ticket.CurrentStateSlug, req.TargetSlug)
	if !ok {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoSuchTransition, ticket.CurrentStateSlug, req.TargetSlug)
	}
	if transition.RequiresComment && req.Comment == "" {
		return nil, ErrCommentRequired
	}

	target, ok := snapshot.StateBySlug(req.TargetSlug)
	if !ok {
		return nil, fmt.Errorf("%w: target state %q missing from definition", ErrNoSuchTransition, req.TargetSlug)
	}

	hookReq := HookRequest{
		Ticket:     ticket,
		Transition: *transition,
		Context:    req.Context,
		Outcome:    &HookOutcome{},
	}

	if transition.GuardHook != nil {
		if err := r.invokeHook(ctx, *transition.GuardHook, hookReq); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrGuardRejected, *transition.GuardHook, err)
		}
	}

	result := &TransitionResult{
		FromSlug:   ticket.CurrentStateSlug,
		ToState:    *target,
		Transition: *transition,
	}

	if target.EntryHook != nil {
		hookReq.Ticket.CurrentStateSlug = target.Slug
		if err := r.invokeHook(ctx, *target.EntryHook, hookReq); err != nil {
			r.logger.Warn("entry hook failed; state change stands",
				zap.String("ticket_id", ticket.ID),
				zap.String("hook", *target.EntryHook),
				zap.Error(err))
			result.Warnings = append(result.Warnings, fmt.Sprintf("entry hook %s failed: %v", *target.EntryHook, err))
		}
	}
	result.RecomputeDeadlines = hookReq.Outcome.RecomputeDeadlines

	return result, nil
}

func (r *Runtime) invokeHook(ctx context.Context, hook string, req HookRequest) error {
	if r.hooks == nil {
		return fmt.Errorf("no hook invoker configured for %q", hook)
	}
	if r.hookTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.hookTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- r.hooks.Invoke(ctx, hook, req) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
