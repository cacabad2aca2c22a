package dto

import (
	"fmt"
	"time"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

const clockLayout = "15:04"

// CreateSlaPolicyRequest payload.
type CreateSlaPolicyRequest struct {
	Slug                        string `json:"slug"`
	Name                        string `json:"name"`
	Timezone                    string `json:"timezone"`
	EnforceBusinessHours        bool   `json:"enforce_business_hours"`
	DefaultFirstResponseMinutes *int   `json:"default_first_response_minutes"`
	DefaultResolutionMinutes    *int   `json:"default_resolution_minutes"`
}

// BusinessHoursWindowInput is one in-hours span, authored as local wall
// clock times ("09:00" to "17:30").
type BusinessHoursWindowInput struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// HolidayInput marks one local calendar date out of hours.
type HolidayInput struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

// SlaTargetInput overrides budgets for one (channel, priority) pair.
type SlaTargetInput struct {
	Channel              domain.TicketChannel  `json:"channel"`
	Priority             domain.TicketPriority `json:"priority"`
	FirstResponseMinutes *int                  `json:"first_response_minutes"`
	ResolutionMinutes    *int                  `json:"resolution_minutes"`
	UseBusinessHours     *bool                 `json:"use_business_hours"`
}

// UpdateSlaPolicyRequest replaces the policy header and full schedule.
type UpdateSlaPolicyRequest struct {
	Name                        string                     `json:"name"`
	Timezone                    string                     `json:"timezone"`
	EnforceBusinessHours        bool                       `json:"enforce_business_hours"`
	DefaultFirstResponseMinutes *int                       `json:"default_first_response_minutes"`
	DefaultResolutionMinutes    *int                       `json:"default_resolution_minutes"`
	Windows                     []BusinessHoursWindowInput `json:"windows"`
	Holidays                    []HolidayInput             `json:"holidays"`
	Targets                     []SlaTargetInput           `json:"targets"`
}

// ToDomain converts the authored schedule to domain shapes. Wall clock
// strings become minutes from local midnight here; the services validate
// everything else.
func (r UpdateSlaPolicyRequest) ToDomain() ([]domain.BusinessHoursWindow, []domain.HolidayException, []domain.SlaTarget, error) {
	windows := make([]domain.BusinessHoursWindow, 0, len(r.Windows))
	for i, w := range r.Windows {
		start, err := parseClock(w.Start)
		if err != nil {
			return nil, nil, nil, apperrors.NewValidationError("window times must use HH:MM", map[string]any{
				"windows": fmt.Sprintf("item %d start %q", i, w.Start),
			})
		}
		end, err := parseClock(w.End)
		if err != nil {
			return nil, nil, nil, apperrors.NewValidationError("window times must use HH:MM", map[string]any{
				"windows": fmt.Sprintf("item %d end %q", i, w.End),
			})
		}
		windows = append(windows, domain.BusinessHoursWindow{
			Weekday:     time.Weekday(w.Weekday),
			StartMinute: start,
			EndMinute:   end,
		})
	}

	holidays := make([]domain.HolidayException, 0, len(r.Holidays))
	for _, h := range r.Holidays {
		holidays = append(holidays, domain.HolidayException{Date: h.Date, Label: h.Label})
	}

	targets := make([]domain.SlaTarget, 0, len(r.Targets))
	for _, t := range r.Targets {
		targets = append(targets, domain.SlaTarget{
			Channel:              t.Channel,
			Priority:             t.Priority,
			FirstResponseMinutes: t.FirstResponseMinutes,
			ResolutionMinutes:    t.ResolutionMinutes,
			UseBusinessHours:     t.UseBusinessHours,
		})
	}
	return windows, holidays, targets, nil
}

func parseClock(value string) (int, error) {
	parsed, err := time.Parse(clockLayout, value)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// SlaPolicyResponse header fields.
type SlaPolicyResponse struct {
	ID                          string    `json:"id"`
	TenantID                    string    `json:"tenant_id"`
	BrandID                     *string   `json:"brand_id"`
	Slug                        string    `json:"slug"`
	Name                        string    `json:"name"`
	Timezone                    string    `json:"timezone"`
	EnforceBusinessHours        bool      `json:"enforce_business_hours"`
	DefaultFirstResponseMinutes *int      `json:"default_first_response_minutes"`
	DefaultResolutionMinutes    *int      `json:"default_resolution_minutes"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// BusinessHoursWindowResponse renders a window back to wall clock times.
type BusinessHoursWindowResponse struct {
	ID      string `json:"id"`
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// HolidayResponse is one persisted holiday.
type HolidayResponse struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Label string `json:"label"`
}

// SlaTargetResponse is one persisted target.
type SlaTargetResponse struct {
	ID                   string                `json:"id"`
	Channel              domain.TicketChannel  `json:"channel"`
	Priority             domain.TicketPriority `json:"priority"`
	FirstResponseMinutes *int                  `json:"first_response_minutes"`
	ResolutionMinutes    *int                  `json:"resolution_minutes"`
	UseBusinessHours     *bool                 `json:"use_business_hours"`
}

// SlaPolicySnapshotResponse is the full policy shape.
type SlaPolicySnapshotResponse struct {
	Policy   SlaPolicyResponse             `json:"policy"`
	Windows  []BusinessHoursWindowResponse `json:"windows"`
	Holidays []HolidayResponse             `json:"holidays"`
	Targets  []SlaTargetResponse           `json:"targets"`
}

// NewSlaPolicyResponse maps a policy.
func NewSlaPolicyResponse(policy *domain.SlaPolicy) SlaPolicyResponse {
	return SlaPolicyResponse{
		ID:                          policy.ID,
		TenantID:                    policy.TenantID,
		BrandID:                     policy.BrandID,
		Slug:                        policy.Slug,
		Name:                        policy.Name,
		Timezone:                    policy.Timezone,
		EnforceBusinessHours:        policy.EnforceBusinessHours,
		DefaultFirstResponseMinutes: policy.DefaultFirstResponseMinutes,
		DefaultResolutionMinutes:    policy.DefaultResolutionMinutes,
		CreatedAt:                   policy.CreatedAt,
		UpdatedAt:                   policy.UpdatedAt,
	}
}

// NewSlaPolicySnapshotResponse maps a policy snapshot.
func NewSlaPolicySnapshotResponse(snapshot *domain.SlaPolicySnapshot) SlaPolicySnapshotResponse {
	resp := SlaPolicySnapshotResponse{
		Policy:   NewSlaPolicyResponse(&snapshot.Policy),
		Windows:  make([]BusinessHoursWindowResponse, 0, len(snapshot.Windows)),
		Holidays: make([]HolidayResponse, 0, len(snapshot.Holidays)),
		Targets:  make([]SlaTargetResponse, 0, len(snapshot.Targets)),
	}
	for _, w := range snapshot.Windows {
		resp.Windows = append(resp.Windows, BusinessHoursWindowResponse{
			ID:      w.ID,
			Weekday: int(w.Weekday),
			Start:   formatClock(w.StartMinute),
			End:     formatClock(w.EndMinute),
		})
	}
	for _, h := range snapshot.Holidays {
		resp.Holidays = append(resp.Holidays, HolidayResponse{ID: h.ID, Date: h.Date, Label: h.Label})
	}
	for _, t := range snapshot.Targets {
		resp.Targets = append(resp.Targets, SlaTargetResponse{
			ID:                   t.ID,
			Channel:              t.Channel,
			Priority:             t.Priority,
			FirstResponseMinutes: t.FirstResponseMinutes,
			ResolutionMinutes:    t.ResolutionMinutes,
			UseBusinessHours:     t.UseBusinessHours,
		})
	}
	return resp
}
