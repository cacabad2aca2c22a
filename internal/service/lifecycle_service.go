package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/cache"
	"github.com/spec-kit/lifecycle-engine/internal/domain"
	"github.com/spec-kit/lifecycle-engine/internal/events"
	"github.com/spec-kit/lifecycle-engine/internal/observability"
	"github.com/spec-kit/lifecycle-engine/internal/repository"
	"github.com/spec-kit/lifecycle-engine/internal/sla"
	"github.com/spec-kit/lifecycle-engine/internal/workflow"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// LifecycleService is the façade the surrounding application drives: SLA
// recomputation on creation and targeting changes, workflow transitions on
// request. The two axes share the ticket but are not causally chained; a
// transition recomputes deadlines only when an entry hook asks for it.
type LifecycleService struct {
	tickets    repository.TicketRepository
	workflows  repository.WorkflowRepository
	policies   repository.SlaPolicyRepository
	history    repository.HistoryRepository
	runtime    *workflow.Runtime
	snapshots  *cache.SnapshotCache
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// LifecycleDependencies bundles collaborators for the coordinator.
type LifecycleDependencies struct {
	TicketRepo   repository.TicketRepository
	WorkflowRepo repository.WorkflowRepository
	PolicyRepo   repository.SlaPolicyRepository
	HistoryRepo  repository.HistoryRepository
	Runtime      *workflow.Runtime
	Snapshots    *cache.SnapshotCache
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// TransitionOutcome reports an applied transition back to the caller.
type TransitionOutcome struct {
	Ticket   *domain.Ticket
	FromSlug string
	ToSlug   string
	Warnings []string
}

// NewLifecycleService constructs the coordinator.
func NewLifecycleService(deps LifecycleDependencies) *LifecycleService {
	return &LifecycleService{
		tickets:    deps.TicketRepo,
		workflows:  deps.WorkflowRepo,
		policies:   deps.PolicyRepo,
		history:    deps.HistoryRepo,
		runtime:    deps.Runtime,
		snapshots:  deps.Snapshots,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// OnTicketCreatedOrRetargeted recomputes both SLA deadlines from the given
// instant and writes them back. The caller supplies the clock: both clocks
// restart from `at` whenever the channel, priority or policy changed.
func (s *LifecycleService) OnTicketCreatedOrRetargeted(ctx context.Context, execCtx domain.ExecutionContext, ticketID string, at time.Time) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, execCtx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.SlaPolicyID == nil {
		// No policy assigned: both deadlines untracked.
		if err := s.tickets.UpdateDeadlines(ctx, ticket.ID, nil, nil); err != nil {
			return nil, err
		}
		ticket.FirstResponseDueAt = nil
		ticket.ResolutionDueAt = nil
		return ticket, nil
	}
	if err := s.recomputeDeadlines(ctx, ticket, at); err != nil {
		return nil, err
	}
	return ticket, nil
}

// OnTransitionRequested validates and applies one transition. Expected
// failures come back as DomainErrors carrying the short status code with
// the ticket state untouched; entry-hook failures surface as warnings on a
// successful outcome.
func (s *LifecycleService) OnTransitionRequested(ctx context.Context, execCtx domain.ExecutionContext, ticketID, targetSlug, comment, actor string, hookContext domain.Metadata, at time.Time) (*TransitionOutcome, error) {
	ticket, err := s.loadTicket(ctx, execCtx, ticketID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.workflowSnapshot(ctx, ticket.WorkflowDefinitionID)
	if err != nil {
		return nil, err
	}

	result, err := s.runtime.Apply(ctx, *snapshot, *ticket, workflow.TransitionRequest{
		TargetSlug: targetSlug,
		Comment:    comment,
		Context:    hookContext,
	})
	if err != nil {
		return nil, s.mapTransitionError(snapshot.Definition.ID, err)
	}

	if err := s.tickets.UpdateState(ctx, ticket.ID, result.ToState.Slug); err != nil {
		return nil, err
	}
	fromSlug := ticket.CurrentStateSlug
	ticket.CurrentStateSlug = result.ToState.Slug
	s.metrics.RecordTransition(snapshot.Definition.ID, "applied")

	if err := s.history.Create(ctx, &domain.TicketWorkflowHistory{
		TicketID: ticket.ID,
		FromSlug: fromSlug,
		ToSlug:   result.ToState.Slug,
		Comment:  comment,
		Actor:    actor,
		Warnings: result.Warnings,
	}); err != nil {
		// The state change is already durable; the audit row is best
		// effort alongside it.
		s.logger.Error("failed to record transition history", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketTransitionApplied,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TransitionAppliedPayload{
			DefinitionID: snapshot.Definition.ID,
			FromSlug:     fromSlug,
			ToSlug:       result.ToState.Slug,
			Comment:      comment,
			Warnings:     result.Warnings,
		},
	})
	for _, warning := range result.Warnings {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketEntryHookFailed,
			TenantID: ticket.TenantID,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.EntryHookFailedPayload{
				Hook:      valueOrEmpty(result.ToState.EntryHook),
				StateSlug: result.ToState.Slug,
				Reason:    warning,
			},
		})
	}

	if result.RecomputeDeadlines && ticket.SlaPolicyID != nil {
		if err := s.recomputeDeadlines(ctx, ticket, at); err != nil {
			s.logger.Error("entry hook requested deadline recompute failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	return &TransitionOutcome{
		Ticket:   ticket,
		FromSlug: fromSlug,
		ToSlug:   result.ToState.Slug,
		Warnings: result.Warnings,
	}, nil
}

// History returns the transition audit trail for a ticket.
func (s *LifecycleService) History(ctx context.Context, execCtx domain.ExecutionContext, ticketID string, limit, offset int) ([]domain.TicketWorkflowHistory, error) {
	if _, err := s.loadTicket(ctx, execCtx, ticketID); err != nil {
		return nil, err
	}
	return s.history.ListByTicket(ctx, ticketID, limit, offset)
}

func (s *LifecycleService) recomputeDeadlines(ctx context.Context, ticket *domain.Ticket, at time.Time) error {
	snapshot, err := s.policySnapshot(ctx, *ticket.SlaPolicyID)
	if err != nil {
		return err
	}
	deadlines, err := sla.ComputeDeadlines(*snapshot, ticket.Channel, ticket.Priority, at)
	if err != nil {
		if errors.Is(err, sla.ErrHorizonExceeded) {
			return apperrors.NewDomainError("SLA_POLICY_CONTRADICTORY",
				"policy enforces business hours no projection can satisfy", 422, map[string]any{
					"policy_id": snapshot.Policy.ID,
				})
		}
		return err
	}
	if err := s.tickets.UpdateDeadlines(ctx, ticket.ID, deadlines.FirstResponseDueAt, deadlines.ResolutionDueAt); err != nil {
		return err
	}
	ticket.FirstResponseDueAt = deadlines.FirstResponseDueAt
	ticket.ResolutionDueAt = deadlines.ResolutionDueAt
	s.metrics.RecordDeadlineComputation()

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeadlinesComputed,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.DeadlinesComputedPayload{
			PolicyID:           snapshot.Policy.ID,
			Channel:            ticket.Channel,
			Priority:           ticket.Priority,
			FirstResponseDueAt: deadlines.FirstResponseDueAt,
			ResolutionDueAt:    deadlines.ResolutionDueAt,
		},
	})
	return nil
}

func (s *LifecycleService) loadTicket(ctx context.Context, execCtx domain.ExecutionContext, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !execCtx.Owns(ticket.TenantID, ticket.BrandID) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

func (s *LifecycleService) workflowSnapshot(ctx context.Context, definitionID string) (*domain.WorkflowSnapshot, error) {
	if snapshot, ok := s.snapshots.WorkflowSnapshot(ctx, definitionID); ok {
		return snapshot, nil
	}
	snapshot, err := s.workflows.GetSnapshot(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	s.snapshots.StoreWorkflowSnapshot(ctx, snapshot)
	return snapshot, nil
}

func (s *LifecycleService) policySnapshot(ctx context.Context, policyID string) (*domain.SlaPolicySnapshot, error) {
	if snapshot, ok := s.snapshots.PolicySnapshot(ctx, policyID); ok {
		return snapshot, nil
	}
	snapshot, err := s.policies.GetSnapshot(ctx, policyID)
	if err != nil {
		return nil, err
	}
	s.snapshots.StorePolicySnapshot(ctx, snapshot)
	return snapshot, nil
}

func (s *LifecycleService) mapTransitionError(definitionID string, err error) error {
	switch {
	case errors.Is(err, workflow.ErrNoSuchTransition):
		s.metrics.RecordTransition(definitionID, "no_such_transition")
		return apperrors.NewTransitionError("NO_SUCH_TRANSITION", err)
	case errors.Is(err, workflow.ErrCommentRequired):
		s.metrics.RecordTransition(definitionID, "comment_required")
		return apperrors.NewTransitionError("COMMENT_REQUIRED", err)
	case errors.Is(err, workflow.ErrGuardRejected):
		s.metrics.RecordTransition(definitionID, "guard_rejected")
		return apperrors.NewTransitionError("GUARD_REJECTED", err)
	default:
		return err
	}
}

func (s *LifecycleService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func valueOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
