package sla

import "github.com/spec-kit/lifecycle-engine/internal/domain"

// ResolvedTarget is the effective budget for one ticket after target
// lookup. Nil minute fields mean the corresponding deadline is untracked.
type ResolvedTarget struct {
	FirstResponseMinutes *int
	ResolutionMinutes    *int
	UseBusinessHours     bool
}

// ResolveTarget picks the effective budgets for (channel, priority).
// An exact-match target overrides each minute field independently and the
// business-hours flag only when it explicitly sets one; with no exact
// match the policy defaults apply unconditionally.
func ResolveTarget(snapshot domain.SlaPolicySnapshot, channel domain.TicketChannel, priority domain.TicketPriority) ResolvedTarget {
	resolved := ResolvedTarget{
		FirstResponseMinutes: snapshot.Policy.DefaultFirstResponseMinutes,
		ResolutionMinutes:    snapshot.Policy.DefaultResolutionMinutes,
		UseBusinessHours:     snapshot.Policy.EnforceBusinessHours,
	}

	target, ok := snapshot.TargetFor(channel, priority)
	if !ok {
		return resolved
	}
	if target.FirstResponseMinutes != nil {
		resolved.FirstResponseMinutes = target.FirstResponseMinutes
	}
	if target.ResolutionMinutes != nil {
		resolved.ResolutionMinutes = target.ResolutionMinutes
	}
	if target.UseBusinessHours != nil {
		resolved.UseBusinessHours = *target.UseBusinessHours
	}
	return resolved
}
