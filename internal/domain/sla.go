package domain

import "time"

// TicketChannel enumerates intake channels used for SLA target matching.
type TicketChannel string

const (
	ChannelEmail TicketChannel = "EMAIL"
	ChannelWeb   TicketChannel = "WEB"
	ChannelChat  TicketChannel = "CHAT"
	ChannelPhone TicketChannel = "PHONE"
	ChannelAPI   TicketChannel = "API"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// SlaPolicy holds the schedule scope and default minute budgets for a
// tenant/brand. A nil default budget means the corresponding deadline is
// not tracked unless a target supplies one.
type SlaPolicy struct {
	ID                          string
	TenantID                    string
	BrandID                     *string
	Slug                        string
	Name                        string
	Timezone                    string
	EnforceBusinessHours        bool
	DefaultFirstResponseMinutes *int
	DefaultResolutionMinutes    *int
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// BusinessHoursWindow is one in-hours span on a weekday, expressed as
// minutes from local midnight in the policy timezone. End is strictly
// after Start; multiple windows per weekday model split shifts.
type BusinessHoursWindow struct {
	ID          string
	PolicyID    string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// HolidayException marks a policy-local calendar date (layout 2006-01-02)
// as fully out of hours regardless of configured windows.
type HolidayException struct {
	ID       string
	PolicyID string
	Date     string
	Label    string
}

// SlaTarget overrides policy defaults for one (channel, priority) pair.
// Nil minute fields fall back to the policy default independently; a nil
// UseBusinessHours inherits the policy-level flag.
type SlaTarget struct {
	ID                   string
	PolicyID             string
	Channel              TicketChannel
	Priority             TicketPriority
	FirstResponseMinutes *int
	ResolutionMinutes    *int
	UseBusinessHours     *bool
}

// SlaPolicySnapshot is a consistent read of a policy with its schedule and
// targets, the unit the calculators consume and the cache stores.
type SlaPolicySnapshot struct {
	Policy   SlaPolicy
	Windows  []BusinessHoursWindow
	Holidays []HolidayException
	Targets  []SlaTarget
}

// TargetFor returns the target exactly matching (channel, priority), if
// any. There is no partial or fuzzy matching.
func (s *SlaPolicySnapshot) TargetFor(channel TicketChannel, priority TicketPriority) (*SlaTarget, bool) {
	for i := range s.Targets {
		if s.Targets[i].Channel == channel && s.Targets[i].Priority == priority {
			return &s.Targets[i], true
		}
	}
	return nil, false
}
