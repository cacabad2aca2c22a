package sla

import (
	"time"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

// Deadlines are the computed due instants for one ticket. A nil field
// means the corresponding budget was unset, a valid non-error outcome.
type Deadlines struct {
	FirstResponseDueAt *time.Time
	ResolutionDueAt    *time.Time
}

// ComputeDeadlines turns "ticket created or re-targeted at start" into
// concrete due instants. Both clocks run in parallel from start; the
// resolution deadline is never chained after the first-response one.
func ComputeDeadlines(snapshot domain.SlaPolicySnapshot, channel domain.TicketChannel, priority domain.TicketPriority, start time.Time) (Deadlines, error) {
	target := ResolveTarget(snapshot, channel, priority)

	cal, err := NewCalendar(snapshot)
	if err != nil {
		return Deadlines{}, err
	}
	// The resolved target decides whether the schedule applies to this
	// ticket, overriding the policy-level flag the calendar was built with.
	cal.Enforce = target.UseBusinessHours

	var result Deadlines
	if target.FirstResponseMinutes != nil {
		due, err := cal.AddBusinessMinutes(start, *target.FirstResponseMinutes)
		if err != nil {
			return Deadlines{}, err
		}
		result.FirstResponseDueAt = &due
	}
	if target.ResolutionMinutes != nil {
		due, err := cal.AddBusinessMinutes(start, *target.ResolutionMinutes)
		if err != nil {
			return Deadlines{}, err
		}
		result.ResolutionDueAt = &due
	}
	return result, nil
}
