package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
	"github.com/spec-kit/lifecycle-engine/internal/workflow"
)

// WorkflowRepository encapsulates workflow definition persistence. It also
// serves as the reconciler's store: WithinDefinition opens a transaction
// holding a row lock on the definition, so reconciliations of one
// definition serialize while different definitions proceed in parallel.
type WorkflowRepository interface {
	workflow.Store
	CreateDefinition(ctx context.Context, def *domain.WorkflowDefinition) error
	GetDefinition(ctx context.Context, id string) (*domain.WorkflowDefinition, error)
	ListDefinitions(ctx context.Context, execCtx domain.ExecutionContext) ([]domain.WorkflowDefinition, error)
	GetSnapshot(ctx context.Context, definitionID string) (*domain.WorkflowSnapshot, error)
}

type workflowRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository instantiates the repository.
func NewWorkflowRepository(pool *pgxpool.Pool) WorkflowRepository {
	return &workflowRepository{pool: pool}
}

const definitionColumns = `id, tenant_id, brand_id, slug, name, description, is_default, created_at, updated_at`

func (r *workflowRepository) CreateDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	const query = `
        INSERT INTO workflow_definitions (tenant_id, brand_id, slug, name, description, is_default)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		def.TenantID,
		def.BrandID,
		def.Slug,
		def.Name,
		def.Description,
		def.IsDefault,
	).Scan(&def.ID, &def.CreatedAt, &def.UpdatedAt)
}

func (r *workflowRepository) GetDefinition(ctx context.Context, id string) (*domain.WorkflowDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_definitions WHERE id=$1`, definitionColumns)
	return scanDefinition(r.pool.QueryRow(ctx, query, id))
}

func (r *workflowRepository) ListDefinitions(ctx context.Context, execCtx domain.ExecutionContext) ([]domain.WorkflowDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_definitions
        WHERE tenant_id=$1 AND brand_id IS NOT DISTINCT FROM $2
        ORDER BY slug`, definitionColumns)
	rows, err := r.pool.Query(ctx, query, execCtx.TenantID, execCtx.BrandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkflowDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *def)
	}
	return result, rows.Err()
}

func (r *workflowRepository) GetSnapshot(ctx context.Context, definitionID string) (*domain.WorkflowSnapshot, error) {
	def, err := r.GetDefinition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	states, err := queryStates(ctx, r.pool, definitionID)
	if err != nil {
		return nil, err
	}
	transitions, err := queryTransitions(ctx, r.pool, definitionID)
	if err != nil {
		return nil, err
	}
	return &domain.WorkflowSnapshot{
		Definition:  *def,
		States:      states,
		Transitions: transitions,
	}, nil
}

// WithinDefinition runs fn inside one transaction with the definition row
// locked FOR UPDATE. Any error rolls the whole unit of work back.
func (r *workflowRepository) WithinDefinition(ctx context.Context, definitionID string, fn func(ctx context.Context, tx workflow.DefinitionTx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	dtx := &definitionTx{tx: tx, definitionID: definitionID}
	if err := fn(ctx, dtx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// definitionTx implements workflow.DefinitionTx over one pgx transaction.
type definitionTx struct {
	tx           pgx.Tx
	definitionID string
}

func (t *definitionTx) Definition(ctx context.Context) (*domain.WorkflowDefinition, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflow_definitions WHERE id=$1 FOR UPDATE`, definitionColumns)
	return scanDefinition(t.tx.QueryRow(ctx, query, t.definitionID))
}

func (t *definitionTx) States(ctx context.Context) ([]domain.WorkflowState, error) {
	return queryStates(ctx, t.tx, t.definitionID)
}

func (t *definitionTx) Transitions(ctx context.Context) ([]domain.WorkflowTransition, error) {
	return queryTransitions(ctx, t.tx, t.definitionID)
}

func (t *definitionTx) InsertState(ctx context.Context, state *domain.WorkflowState) error {
	const query = `
        INSERT INTO workflow_states (definition_id, name, slug, position, is_initial, is_terminal, sla_minutes, entry_hook, description)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return t.tx.QueryRow(ctx, query,
		state.DefinitionID,
		state.Name,
		state.Slug,
		state.Position,
		state.IsInitial,
		state.IsTerminal,
		state.SlaMinutes,
		state.EntryHook,
		state.Description,
	).Scan(&state.ID, &state.CreatedAt, &state.UpdatedAt)
}

func (t *definitionTx) UpdateState(ctx context.Context, state *domain.WorkflowState) error {
	const query = `
        UPDATE workflow_states SET name=$1, slug=$2, position=$3, is_initial=$4, is_terminal=$5,
            sla_minutes=$6, entry_hook=$7, description=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`
	return t.tx.QueryRow(ctx, query,
		state.Name,
		state.Slug,
		state.Position,
		state.IsInitial,
		state.IsTerminal,
		state.SlaMinutes,
		state.EntryHook,
		state.Description,
		state.ID,
	).Scan(&state.UpdatedAt)
}

func (t *definitionTx) DeleteStates(ctx context.Context, ids []string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM workflow_states WHERE id = ANY($1)`, ids)
	return err
}

func (t *definitionTx) InsertTransition(ctx context.Context, transition *domain.WorkflowTransition) error {
	const query = `
        INSERT INTO workflow_transitions (definition_id, from_state_id, to_state_id, guard_hook, requires_comment, metadata)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return t.tx.QueryRow(ctx, query,
		transition.DefinitionID,
		transition.FromStateID,
		transition.ToStateID,
		transition.GuardHook,
		transition.RequiresComment,
		transition.Metadata,
	).Scan(&transition.ID, &transition.CreatedAt, &transition.UpdatedAt)
}

func (t *definitionTx) UpdateTransition(ctx context.Context, transition *domain.WorkflowTransition) error {
	const query = `
        UPDATE workflow_transitions SET from_state_id=$1, to_state_id=$2, guard_hook=$3,
            requires_comment=$4, metadata=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return t.tx.QueryRow(ctx, query,
		transition.FromStateID,
		transition.ToStateID,
		transition.GuardHook,
		transition.RequiresComment,
		transition.Metadata,
		transition.ID,
	).Scan(&transition.UpdatedAt)
}

func (t *definitionTx) DeleteTransitions(ctx context.Context, ids []string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM workflow_transitions WHERE id = ANY($1)`, ids)
	return err
}

func (t *definitionTx) UpdateDefinition(ctx context.Context, def *domain.WorkflowDefinition) error {
	const query = `
        UPDATE workflow_definitions SET name=$1, description=$2, is_default=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return t.tx.QueryRow(ctx, query,
		def.Name,
		def.Description,
		def.IsDefault,
		def.ID,
	).Scan(&def.UpdatedAt)
}

func (t *definitionTx) DemoteSiblingDefaults(ctx context.Context, def *domain.WorkflowDefinition) error {
	const query = `
        UPDATE workflow_definitions SET is_default=FALSE, updated_at=NOW()
        WHERE tenant_id=$1 AND brand_id IS NOT DISTINCT FROM $2 AND id <> $3 AND is_default`
	_, err := t.tx.Exec(ctx, query, def.TenantID, def.BrandID, def.ID)
	return err
}

// querier is the subset of pgx shared by pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanDefinition(row pgx.Row) (*domain.WorkflowDefinition, error) {
	var def domain.WorkflowDefinition
	if err := row.Scan(
		&def.ID,
		&def.TenantID,
		&def.BrandID,
		&def.Slug,
		&def.Name,
		&def.Description,
		&def.IsDefault,
		&def.CreatedAt,
		&def.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &def, nil
}

func queryStates(ctx context.Context, q querier, definitionID string) ([]domain.WorkflowState, error) {
	const query = `
        SELECT id, definition_id, name, slug, position, is_initial, is_terminal, sla_minutes, entry_hook, description, created_at, updated_at
        FROM workflow_states WHERE definition_id=$1 ORDER BY position, slug`
	rows, err := q.Query(ctx, query, definitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkflowState
	for rows.Next() {
		var state domain.WorkflowState
		if err := rows.Scan(
			&state.ID,
			&state.DefinitionID,
			&state.Name,
			&state.Slug,
			&state.Position,
			&state.IsInitial,
			&state.IsTerminal,
			&state.SlaMinutes,
			&state.EntryHook,
			&state.Description,
			&state.CreatedAt,
			&state.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, state)
	}
	return result, rows.Err()
}

func queryTransitions(ctx context.Context, q querier, definitionID string) ([]domain.WorkflowTransition, error) {
	const query = `
        SELECT t.id, t.definition_id, t.from_state_id, t.to_state_id, f.slug, s.slug,
               t.guard_hook, t.requires_comment, t.metadata, t.created_at, t.updated_at
        FROM workflow_transitions t
        JOIN workflow_states f ON f.id = t.from_state_id
        JOIN workflow_states s ON s.id = t.to_state_id
        WHERE t.definition_id=$1
        ORDER BY f.position, s.position`
	rows, err := q.Query(ctx, query, definitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkflowTransition
	for rows.Next() {
		var transition domain.WorkflowTransition
		if err := rows.Scan(
			&transition.ID,
			&transition.DefinitionID,
			&transition.FromStateID,
			&transition.ToStateID,
			&transition.FromSlug,
			&transition.ToSlug,
			&transition.GuardHook,
			&transition.RequiresComment,
			&transition.Metadata,
			&transition.CreatedAt,
			&transition.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, transition)
	}
	return result, rows.Err()
}
