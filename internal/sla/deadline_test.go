package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

func TestComputeDeadlines(t *testing.T) {
	start := time.Date(2025, time.December, 22, 10, 0, 0, 0, time.UTC) // Monday

	t.Run("both clocks run in parallel from start", func(t *testing.T) {
		snapshot := weekdayPolicy(true)
		snapshot.Policy.DefaultFirstResponseMinutes = intPtr(60)
		snapshot.Policy.DefaultResolutionMinutes = intPtr(240)

		deadlines, err := ComputeDeadlines(snapshot, domain.ChannelEmail, domain.TicketPriorityMedium, start)
		require.NoError(t, err)
		require.NotNil(t, deadlines.FirstResponseDueAt)
		require.NotNil(t, deadlines.ResolutionDueAt)
		assert.Equal(t, start.Add(time.Hour), *deadlines.FirstResponseDueAt)
		// Anchored to start, not to the first-response deadline.
		assert.Equal(t, start.Add(4*time.Hour), *deadlines.ResolutionDueAt)
	})

	t.Run("nil budgets yield nil deadlines", func(t *testing.T) {
		snapshot := weekdayPolicy(true)
		deadlines, err := ComputeDeadlines(snapshot, domain.ChannelEmail, domain.TicketPriorityMedium, start)
		require.NoError(t, err)
		assert.Nil(t, deadlines.FirstResponseDueAt)
		assert.Nil(t, deadlines.ResolutionDueAt)
	})

	t.Run("target without business hours ignores the schedule", func(t *testing.T) {
		snapshot := weekdayPolicy(true, "2025-12-25")
		snapshot.Policy.DefaultResolutionMinutes = intPtr(24 * 60)
		snapshot.Targets = []domain.SlaTarget{{
			Channel:          domain.ChannelPhone,
			Priority:         domain.TicketPriorityUrgent,
			UseBusinessHours: boolPtr(false),
		}}

		deadlines, err := ComputeDeadlines(snapshot, domain.ChannelPhone, domain.TicketPriorityUrgent, start)
		require.NoError(t, err)
		require.NotNil(t, deadlines.ResolutionDueAt)
		assert.Equal(t, start.Add(24*time.Hour), *deadlines.ResolutionDueAt)
	})

	t.Run("contradictory schedule surfaces horizon error", func(t *testing.T) {
		snapshot := domain.SlaPolicySnapshot{
			Policy: domain.SlaPolicy{
				Timezone:                    "UTC",
				EnforceBusinessHours:        true,
				DefaultFirstResponseMinutes: intPtr(60),
			},
		}
		_, err := ComputeDeadlines(snapshot, domain.ChannelWeb, domain.TicketPriorityLow, start)
		require.ErrorIs(t, err, ErrHorizonExceeded)
	})

	t.Run("invalid timezone fails before projection", func(t *testing.T) {
		snapshot := weekdayPolicy(true)
		snapshot.Policy.Timezone = "Nowhere/Else"
		snapshot.Policy.DefaultResolutionMinutes = intPtr(60)
		_, err := ComputeDeadlines(snapshot, domain.ChannelWeb, domain.TicketPriorityLow, start)
		require.Error(t, err)
	})
}
