package hooks

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/workflow"
)

// Func is one registered hook implementation. Guards veto a transition by
// returning an error; entry hooks report failure the same way.
type Func func(ctx context.Context, req workflow.HookRequest) error

// Registry maps opaque hook identifiers to implementations registered at
// application start. It satisfies workflow.HookInvoker.
type Registry struct {
	mu     sync.RWMutex
	hooks  map[string]Func
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{hooks: make(map[string]Func), logger: logger}
}

// Register binds a hook name to an implementation, replacing any previous
// binding for the same name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[name] = fn
}

// Invoke runs the named hook. An unregistered name is an error, which the
// runtime treats as a guard rejection or an entry-hook warning.
func (r *Registry) Invoke(ctx context.Context, name string, req workflow.HookRequest) error {
	r.mu.RLock()
	fn, ok := r.hooks[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("hook %q is not registered", name)
	}
	r.logger.Debug("invoking hook", zap.String("hook", name), zap.String("ticket_id", req.Ticket.ID))
	return fn(ctx, req)
}
