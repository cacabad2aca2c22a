package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/cache"
	"github.com/spec-kit/lifecycle-engine/internal/domain"
	"github.com/spec-kit/lifecycle-engine/internal/repository"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

const holidayDateLayout = "2006-01-02"

// SlaAdminService is the SLA policy authoring surface. All validation
// happens before any persistence: nothing partial is ever written.
type SlaAdminService struct {
	policies  repository.SlaPolicyRepository
	snapshots *cache.SnapshotCache
	logger    *zap.Logger
}

// PolicyCreateInput describes a new policy.
type PolicyCreateInput struct {
	Slug                        string
	Name                        string
	Timezone                    string
	EnforceBusinessHours        bool
	DefaultFirstResponseMinutes *int
	DefaultResolutionMinutes    *int
}

// PolicyUpdateInput replaces a policy's header fields and its full
// schedule (windows, holidays, targets).
type PolicyUpdateInput struct {
	Name                        string
	Timezone                    string
	EnforceBusinessHours        bool
	DefaultFirstResponseMinutes *int
	DefaultResolutionMinutes    *int
	Windows                     []domain.BusinessHoursWindow
	Holidays                    []domain.HolidayException
	Targets                     []domain.SlaTarget
}

// NewSlaAdminService constructs the service.
func NewSlaAdminService(policies repository.SlaPolicyRepository, snapshots *cache.SnapshotCache, logger *zap.Logger) *SlaAdminService {
	return &SlaAdminService{policies: policies, snapshots: snapshots, logger: logger}
}

// CreatePolicy persists a new policy in the caller's scope.
func (s *SlaAdminService) CreatePolicy(ctx context.Context, execCtx domain.ExecutionContext, input PolicyCreateInput) (*domain.SlaPolicy, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" {
		return nil, apperrors.NewValidationError("slug and name are required", map[string]any{
			"slug": slug, "name": name,
		})
	}
	if err := validateTimezone(input.Timezone); err != nil {
		return nil, err
	}
	if err := validateBudget("default_first_response_minutes", input.DefaultFirstResponseMinutes); err != nil {
		return nil, err
	}
	if err := validateBudget("default_resolution_minutes", input.DefaultResolutionMinutes); err != nil {
		return nil, err
	}

	policy := &domain.SlaPolicy{
		TenantID:                    execCtx.TenantID,
		BrandID:                     execCtx.BrandID,
		Slug:                        slug,
		Name:                        name,
		Timezone:                    input.Timezone,
		EnforceBusinessHours:        input.EnforceBusinessHours,
		DefaultFirstResponseMinutes: input.DefaultFirstResponseMinutes,
		DefaultResolutionMinutes:    input.DefaultResolutionMinutes,
	}
	if err := s.policies.CreatePolicy(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// UpdatePolicy validates and replaces a policy's fields and schedule,
// then drops the cached snapshot.
func (s *SlaAdminService) UpdatePolicy(ctx context.Context, execCtx domain.ExecutionContext, policyID string, input PolicyUpdateInput) (*domain.SlaPolicySnapshot, error) {
	policy, err := s.policies.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if !execCtx.Owns(policy.TenantID, policy.BrandID) {
		return nil, apperrors.NewNotFound("sla policy", map[string]any{"id": policyID})
	}

	if err := validateTimezone(input.Timezone); err != nil {
		return nil, err
	}
	if err := validateBudget("default_first_response_minutes", input.DefaultFirstResponseMinutes); err != nil {
		return nil, err
	}
	if err := validateBudget("default_resolution_minutes", input.DefaultResolutionMinutes); err != nil {
		return nil, err
	}
	if err := validateWindows(input.Windows); err != nil {
		return nil, err
	}
	if err := validateHolidays(input.Holidays); err != nil {
		return nil, err
	}
	if err := validateTargets(input.Targets); err != nil {
		return nil, err
	}

	policy.Name = strings.TrimSpace(input.Name)
	policy.Timezone = input.Timezone
	policy.EnforceBusinessHours = input.EnforceBusinessHours
	policy.DefaultFirstResponseMinutes = input.DefaultFirstResponseMinutes
	policy.DefaultResolutionMinutes = input.DefaultResolutionMinutes

	if err := s.policies.ReplaceSchedule(ctx, policy, input.Windows, input.Holidays, input.Targets); err != nil {
		return nil, err
	}
	s.snapshots.InvalidatePolicy(ctx, policyID)

	return &domain.SlaPolicySnapshot{
		Policy:   *policy,
		Windows:  input.Windows,
		Holidays: input.Holidays,
		Targets:  input.Targets,
	}, nil
}

// GetSnapshot returns the persisted shape of a policy.
func (s *SlaAdminService) GetSnapshot(ctx context.Context, execCtx domain.ExecutionContext, policyID string) (*domain.SlaPolicySnapshot, error) {
	snapshot, err := s.policies.GetSnapshot(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if !execCtx.Owns(snapshot.Policy.TenantID, snapshot.Policy.BrandID) {
		return nil, apperrors.NewNotFound("sla policy", map[string]any{"id": policyID})
	}
	return snapshot, nil
}

// ListPolicies returns the policies in the caller's scope.
func (s *SlaAdminService) ListPolicies(ctx context.Context, execCtx domain.ExecutionContext) ([]domain.SlaPolicy, error) {
	return s.policies.ListPolicies(ctx, execCtx)
}

func validateTimezone(tz string) error {
	if strings.TrimSpace(tz) == "" {
		return apperrors.NewValidationError("timezone is required", map[string]any{"timezone": tz})
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return apperrors.NewValidationError("timezone must be a valid IANA identifier", map[string]any{"timezone": tz})
	}
	return nil
}

func validateBudget(field string, minutes *int) error {
	if minutes != nil && *minutes < 0 {
		return apperrors.NewValidationError("minute budgets must not be negative", map[string]any{field: *minutes})
	}
	return nil
}

func validateWindows(windows []domain.BusinessHoursWindow) error {
	for i, w := range windows {
		if w.Weekday < time.Sunday || w.Weekday > time.Saturday {
			return apperrors.NewValidationError("window weekday out of range", map[string]any{
				"windows": fmt.Sprintf("item %d weekday %d", i, w.Weekday),
			})
		}
		if w.StartMinute < 0 || w.EndMinute > 24*60 {
			return apperrors.NewValidationError("window must fall within the day", map[string]any{
				"windows": fmt.Sprintf("item %d spans %d-%d", i, w.StartMinute, w.EndMinute),
			})
		}
		if w.EndMinute <= w.StartMinute {
			return apperrors.NewValidationError("window end must be strictly after start", map[string]any{
				"windows": fmt.Sprintf("item %d spans %d-%d", i, w.StartMinute, w.EndMinute),
			})
		}
	}
	return nil
}

func validateHolidays(holidays []domain.HolidayException) error {
	seen := make(map[string]struct{}, len(holidays))
	for i, h := range holidays {
		if _, err := time.Parse(holidayDateLayout, h.Date); err != nil {
			return apperrors.NewValidationError("holiday date must use YYYY-MM-DD", map[string]any{
				"holidays": fmt.Sprintf("item %d date %q", i, h.Date),
			})
		}
		if _, dup := seen[h.Date]; dup {
			return apperrors.NewValidationError("holiday dates must be unique", map[string]any{
				"holidays": fmt.Sprintf("duplicate date %s", h.Date),
			})
		}
		seen[h.Date] = struct{}{}
	}
	return nil
}

func validateTargets(targets []domain.SlaTarget) error {
	seen := make(map[string]struct{}, len(targets))
	for i, t := range targets {
		if t.Channel == "" || t.Priority == "" {
			return apperrors.NewValidationError("target channel and priority are required", map[string]any{
				"targets": fmt.Sprintf("item %d", i),
			})
		}
		key := string(t.Channel) + "/" + string(t.Priority)
		if _, dup := seen[key]; dup {
			return apperrors.NewValidationError("at most one target per (channel, priority) pair", map[string]any{
				"targets": fmt.Sprintf("duplicate pair %s", key),
			})
		}
		seen[key] = struct{}{}
		if err := validateBudget("targets", t.FirstResponseMinutes); err != nil {
			return err
		}
		if err := validateBudget("targets", t.ResolutionMinutes); err != nil {
			return err
		}
	}
	return nil
}
