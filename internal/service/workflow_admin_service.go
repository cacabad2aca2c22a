package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/cache"
	"github.com/spec-kit/lifecycle-engine/internal/domain"
	"github.com/spec-kit/lifecycle-engine/internal/observability"
	"github.com/spec-kit/lifecycle-engine/internal/repository"
	"github.com/spec-kit/lifecycle-engine/internal/workflow"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

// WorkflowAdminService is the definition authoring surface: shell
// creation, reconciliation of desired states/transitions, and reads of
// the persisted shape.
type WorkflowAdminService struct {
	workflows  repository.WorkflowRepository
	reconciler *workflow.Reconciler
	snapshots  *cache.SnapshotCache
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// WorkflowAdminDependencies bundles collaborators for the service.
type WorkflowAdminDependencies struct {
	WorkflowRepo repository.WorkflowRepository
	Reconciler   *workflow.Reconciler
	Snapshots    *cache.SnapshotCache
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// DefinitionCreateInput describes a new definition shell.
type DefinitionCreateInput struct {
	Slug        string
	Name        string
	Description string
	IsDefault   bool
}

// NewWorkflowAdminService constructs the service.
func NewWorkflowAdminService(deps WorkflowAdminDependencies) *WorkflowAdminService {
	return &WorkflowAdminService{
		workflows:  deps.WorkflowRepo,
		reconciler: deps.Reconciler,
		snapshots:  deps.Snapshots,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// CreateDefinition persists an empty definition in the caller's scope.
// States and transitions arrive through Reconcile.
func (s *WorkflowAdminService) CreateDefinition(ctx context.Context, execCtx domain.ExecutionContext, input DefinitionCreateInput) (*domain.WorkflowDefinition, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, apperrors.NewValidationError("slug and name are required", map[string]any{
			"slug": slug, "name": name,
		})
	}
	def := &domain.WorkflowDefinition{
		TenantID:    execCtx.TenantID,
		BrandID:     execCtx.BrandID,
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsDefault:   input.IsDefault,
	}
	if err := s.workflows.CreateDefinition(ctx, def); err != nil {
		return nil, err
	}
	if def.IsDefault {
		// A freshly created default demotes its siblings on the first
		// reconcile; force it now so the scope invariant holds immediately.
		if _, err := s.Reconcile(ctx, execCtx, def.ID, workflow.DesiredDefinition{IsDefault: &def.IsDefault}); err != nil {
			return nil, err
		}
	}
	return def, nil
}

// Reconcile converges the definition to the desired set after checking it
// belongs to the caller's scope, then drops the cached snapshot.
func (s *WorkflowAdminService) Reconcile(ctx context.Context, execCtx domain.ExecutionContext, definitionID string, desired workflow.DesiredDefinition) (*workflow.Result, error) {
	def, err := s.workflows.GetDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	if !execCtx.Owns(def.TenantID, def.BrandID) {
		return nil, apperrors.NewNotFound("workflow definition", map[string]any{"id": definitionID})
	}

	result, err := s.reconciler.Reconcile(ctx, definitionID, desired)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordReconciliation(definitionID, !result.Changes.Empty())
	s.snapshots.InvalidateWorkflow(ctx, definitionID)
	return result, nil
}

// GetSnapshot returns the persisted shape of a definition.
func (s *WorkflowAdminService) GetSnapshot(ctx context.Context, execCtx domain.ExecutionContext, definitionID string) (*domain.WorkflowSnapshot, error) {
	snapshot, err := s.workflows.GetSnapshot(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	if !execCtx.Owns(snapshot.Definition.TenantID, snapshot.Definition.BrandID) {
		return nil, apperrors.NewNotFound("workflow definition", map[string]any{"id": definitionID})
	}
	return snapshot, nil
}

// ListDefinitions returns the definitions in the caller's scope.
func (s *WorkflowAdminService) ListDefinitions(ctx context.Context, execCtx domain.ExecutionContext) ([]domain.WorkflowDefinition, error) {
	return s.workflows.ListDefinitions(ctx, execCtx)
}
