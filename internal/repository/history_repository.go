package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// HistoryRepository persists the transition audit trail.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.TicketWorkflowHistory) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketWorkflowHistory, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository instantiates the repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.TicketWorkflowHistory) error {
	const query = `
        INSERT INTO ticket_workflow_history (ticket_id, from_slug, to_slug, comment, actor, warnings)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	warnings := entry.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.FromSlug,
		entry.ToSlug,
		entry.Comment,
		entry.Actor,
		warnings,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketWorkflowHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, from_slug, to_slug, comment, actor, warnings, created_at
        FROM ticket_workflow_history
        WHERE ticket_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketWorkflowHistory
	for rows.Next() {
		var entry domain.TicketWorkflowHistory
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.FromSlug,
			&entry.ToSlug,
			&entry.Comment,
			&entry.Actor,
			&entry.Warnings,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
