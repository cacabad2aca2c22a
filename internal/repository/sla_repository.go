package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

const holidayDateLayout = "2006-01-02"

// SlaPolicyRepository encapsulates SLA policy persistence. The schedule
// children (windows, holidays, targets) are replaced wholesale inside one
// transaction on authoring writes; the policy row keeps its id.
type SlaPolicyRepository interface {
	CreatePolicy(ctx context.Context, policy *domain.SlaPolicy) error
	GetPolicy(ctx context.Context, id string) (*domain.SlaPolicy, error)
	ListPolicies(ctx context.Context, execCtx domain.ExecutionContext) ([]domain.SlaPolicy, error)
	GetSnapshot(ctx context.Context, policyID string) (*domain.SlaPolicySnapshot, error)
	ReplaceSchedule(ctx context.Context, policy *domain.SlaPolicy, windows []domain.BusinessHoursWindow, holidays []domain.HolidayException, targets []domain.SlaTarget) error
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSlaPolicyRepository instantiates the repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) SlaPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const policyColumns = `id, tenant_id, brand_id, slug, name, timezone, enforce_business_hours,
               default_first_response_minutes, default_resolution_minutes, created_at, updated_at`

func (r *slaPolicyRepository) CreatePolicy(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (tenant_id, brand_id, slug, name, timezone, enforce_business_hours,
            default_first_response_minutes, default_resolution_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.TenantID,
		policy.BrandID,
		policy.Slug,
		policy.Name,
		policy.Timezone,
		policy.EnforceBusinessHours,
		policy.DefaultFirstResponseMinutes,
		policy.DefaultResolutionMinutes,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) GetPolicy(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_policies WHERE id=$1`, policyColumns)
	return scanPolicy(r.pool.QueryRow(ctx, query, id))
}

func (r *slaPolicyRepository) ListPolicies(ctx context.Context, execCtx domain.ExecutionContext) ([]domain.SlaPolicy, error) {
	query := fmt.Sprintf(`SELECT %s FROM sla_policies
        WHERE tenant_id=$1 AND brand_id IS NOT DISTINCT FROM $2
        ORDER BY slug`, policyColumns)
	rows, err := r.pool.Query(ctx, query, execCtx.TenantID, execCtx.BrandID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func (r *slaPolicyRepository) GetSnapshot(ctx context.Context, policyID string) (*domain.SlaPolicySnapshot, error) {
	policy, err := r.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	snapshot := &domain.SlaPolicySnapshot{Policy: *policy}

	rows, err := r.pool.Query(ctx, `
        SELECT id, policy_id, weekday, start_minute, end_minute
        FROM sla_business_hours WHERE policy_id=$1 ORDER BY weekday, start_minute`, policyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var window domain.BusinessHoursWindow
		var weekday int
		if err := rows.Scan(&window.ID, &window.PolicyID, &weekday, &window.StartMinute, &window.EndMinute); err != nil {
			return nil, err
		}
		window.Weekday = time.Weekday(weekday)
		snapshot.Windows = append(snapshot.Windows, window)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	holidayRows, err := r.pool.Query(ctx, `
        SELECT id, policy_id, holiday_date, label
        FROM sla_holidays WHERE policy_id=$1 ORDER BY holiday_date`, policyID)
	if err != nil {
		return nil, err
	}
	defer holidayRows.Close()
	for holidayRows.Next() {
		var holiday domain.HolidayException
		var date time.Time
		if err := holidayRows.Scan(&holiday.ID, &holiday.PolicyID, &date, &holiday.Label); err != nil {
			return nil, err
		}
		holiday.Date = date.Format(holidayDateLayout)
		snapshot.Holidays = append(snapshot.Holidays, holiday)
	}
	if err := holidayRows.Err(); err != nil {
		return nil, err
	}

	targetRows, err := r.pool.Query(ctx, `
        SELECT id, policy_id, channel, priority, first_response_minutes, resolution_minutes, use_business_hours
        FROM sla_targets WHERE policy_id=$1 ORDER BY channel, priority`, policyID)
	if err != nil {
		return nil, err
	}
	defer targetRows.Close()
	for targetRows.Next() {
		var target domain.SlaTarget
		if err := targetRows.Scan(
			&target.ID,
			&target.PolicyID,
			&target.Channel,
			&target.Priority,
			&target.FirstResponseMinutes,
			&target.ResolutionMinutes,
			&target.UseBusinessHours,
		); err != nil {
			return nil, err
		}
		snapshot.Targets = append(snapshot.Targets, target)
	}
	return snapshot, targetRows.Err()
}

func (r *slaPolicyRepository) ReplaceSchedule(ctx context.Context, policy *domain.SlaPolicy, windows []domain.BusinessHoursWindow, holidays []domain.HolidayException, targets []domain.SlaTarget) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateQuery = `
        UPDATE sla_policies SET name=$1, timezone=$2, enforce_business_hours=$3,
            default_first_response_minutes=$4, default_resolution_minutes=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	if err := tx.QueryRow(ctx, updateQuery,
		policy.Name,
		policy.Timezone,
		policy.EnforceBusinessHours,
		policy.DefaultFirstResponseMinutes,
		policy.DefaultResolutionMinutes,
		policy.ID,
	).Scan(&policy.UpdatedAt); err != nil {
		return err
	}

	for _, table := range []string{"sla_business_hours", "sla_holidays", "sla_targets"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE policy_id=$1`, table), policy.ID); err != nil {
			return err
		}
	}

	for i := range windows {
		if err := tx.QueryRow(ctx, `
            INSERT INTO sla_business_hours (policy_id, weekday, start_minute, end_minute)
            VALUES ($1,$2,$3,$4) RETURNING id`,
			policy.ID, int(windows[i].Weekday), windows[i].StartMinute, windows[i].EndMinute,
		).Scan(&windows[i].ID); err != nil {
			return err
		}
		windows[i].PolicyID = policy.ID
	}
	for i := range holidays {
		if err := tx.QueryRow(ctx, `
            INSERT INTO sla_holidays (policy_id, holiday_date, label)
            VALUES ($1,$2,$3) RETURNING id`,
			policy.ID, holidays[i].Date, holidays[i].Label,
		).Scan(&holidays[i].ID); err != nil {
			return err
		}
		holidays[i].PolicyID = policy.ID
	}
	for i := range targets {
		if err := tx.QueryRow(ctx, `
            INSERT INTO sla_targets (policy_id, channel, priority, first_response_minutes, resolution_minutes, use_business_hours)
            VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
			policy.ID, targets[i].Channel, targets[i].Priority,
			targets[i].FirstResponseMinutes, targets[i].ResolutionMinutes, targets[i].UseBusinessHours,
		).Scan(&targets[i].ID); err != nil {
			return err
		}
		targets[i].PolicyID = policy.ID
	}

	return tx.Commit(ctx)
}

func scanPolicy(row pgx.Row) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	if err := row.Scan(
		&policy.ID,
		&policy.TenantID,
		&policy.BrandID,
		&policy.Slug,
		&policy.Name,
		&policy.Timezone,
		&policy.EnforceBusinessHours,
		&policy.DefaultFirstResponseMinutes,
		&policy.DefaultResolutionMinutes,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}
