package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// OverdueTicket pairs a ticket with the clock that ran out.
type OverdueTicket struct {
	Ticket domain.Ticket
	Clock  string
	DueAt  time.Time
}

// TicketRepository reads and writes the engine-owned slice of the ticket
// record: SLA due timestamps and the current workflow state.
type TicketRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateDeadlines(ctx context.Context, ticketID string, firstResponseDueAt, resolutionDueAt *time.Time) error
	UpdateState(ctx context.Context, ticketID, stateSlug string) error
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]OverdueTicket, error)
	MarkBreached(ctx context.Context, ticketID, clock string, at time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, tenant_id, brand_id, channel, priority, workflow_definition_id, current_state_slug,
               sla_policy_id, first_response_due_at, resolution_due_at, first_responded_at, resolved_at,
               created_at, updated_at`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets WHERE id=$1`
	return scanTicket(r.pool.QueryRow(ctx, query, id))
}

func (r *ticketRepository) UpdateDeadlines(ctx context.Context, ticketID string, firstResponseDueAt, resolutionDueAt *time.Time) error {
	const query = `
        UPDATE tickets SET first_response_due_at=$1, resolution_due_at=$2,
            first_response_breached_at=NULL, resolution_breached_at=NULL, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, firstResponseDueAt, resolutionDueAt, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateState(ctx context.Context, ticketID, stateSlug string) error {
	const query = `UPDATE tickets SET current_state_slug=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, stateSlug, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListOverdue returns tickets whose first-response or resolution clock has
// run past its due instant without the matching milestone or an earlier
// breach mark.
func (r *ticketRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]OverdueTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT ` + ticketColumns + `,
               CASE WHEN first_response_due_at <= $1 AND first_responded_at IS NULL AND first_response_breached_at IS NULL
                    THEN 'first_response' ELSE 'resolution' END AS clock
        FROM tickets
        WHERE (first_response_due_at <= $1 AND first_responded_at IS NULL AND first_response_breached_at IS NULL)
           OR (resolution_due_at <= $1 AND resolved_at IS NULL AND resolution_breached_at IS NULL)
        ORDER BY updated_at
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OverdueTicket
	for rows.Next() {
		var ticket domain.Ticket
		var clock string
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TenantID,
			&ticket.BrandID,
			&ticket.Channel,
			&ticket.Priority,
			&ticket.WorkflowDefinitionID,
			&ticket.CurrentStateSlug,
			&ticket.SlaPolicyID,
			&ticket.FirstResponseDueAt,
			&ticket.ResolutionDueAt,
			&ticket.FirstRespondedAt,
			&ticket.ResolvedAt,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&clock,
		); err != nil {
			return nil, err
		}
		overdue := OverdueTicket{Ticket: ticket, Clock: clock}
		if clock == "first_response" && ticket.FirstResponseDueAt != nil {
			overdue.DueAt = *ticket.FirstResponseDueAt
		} else if ticket.ResolutionDueAt != nil {
			overdue.DueAt = *ticket.ResolutionDueAt
		}
		result = append(result, overdue)
	}
	return result, rows.Err()
}

func (r *ticketRepository) MarkBreached(ctx context.Context, ticketID, clock string, at time.Time) error {
	query := `UPDATE tickets SET resolution_breached_at=$1, updated_at=NOW() WHERE id=$2`
	if clock == "first_response" {
		query = `UPDATE tickets SET first_response_breached_at=$1, updated_at=NOW() WHERE id=$2`
	}
	_, err := r.pool.Exec(ctx, query, at, ticketID)
	return err
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.BrandID,
		&ticket.Channel,
		&ticket.Priority,
		&ticket.WorkflowDefinitionID,
		&ticket.CurrentStateSlug,
		&ticket.SlaPolicyID,
		&ticket.FirstResponseDueAt,
		&ticket.ResolutionDueAt,
		&ticket.FirstRespondedAt,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
