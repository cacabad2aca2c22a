package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowSnapshotLookups(t *testing.T) {
	snapshot := WorkflowSnapshot{
		States: []WorkflowState{
			{ID: "s1", Slug: "new", Position: 0},
			{ID: "s2", Slug: "open", Position: 1},
		},
		Transitions: []WorkflowTransition{
			{ID: "t1", FromSlug: "new", ToSlug: "open"},
		},
	}

	t.Run("state by slug", func(t *testing.T) {
		state, ok := snapshot.StateBySlug("open")
		require.True(t, ok)
		assert.Equal(t, "s2", state.ID)

		_, ok = snapshot.StateBySlug("archived")
		assert.False(t, ok)
	})

	t.Run("transition by edge", func(t *testing.T) {
		transition, ok := snapshot.FindTransition("new", "open")
		require.True(t, ok)
		assert.Equal(t, "t1", transition.ID)

		_, ok = snapshot.FindTransition("open", "new")
		assert.False(t, ok)
	})
}

func TestInitialState(t *testing.T) {
	t.Run("none flagged", func(t *testing.T) {
		snapshot := WorkflowSnapshot{States: []WorkflowState{{Slug: "a"}, {Slug: "b"}}}
		_, ok := snapshot.InitialState()
		assert.False(t, ok)
	})

	t.Run("first by position wins among flagged", func(t *testing.T) {
		snapshot := WorkflowSnapshot{States: []WorkflowState{
			{Slug: "b", Position: 2, IsInitial: true},
			{Slug: "a", Position: 1, IsInitial: true},
			{Slug: "c", Position: 0},
		}}
		state, ok := snapshot.InitialState()
		require.True(t, ok)
		assert.Equal(t, "a", state.Slug)
	})
}

func TestExecutionContextOwns(t *testing.T) {
	brand := "b1"
	other := "b2"

	tests := []struct {
		name     string
		ctx      ExecutionContext
		tenantID string
		brandID  *string
		want     bool
	}{
		{"same tenant no brands", ExecutionContext{TenantID: "t1"}, "t1", nil, true},
		{"different tenant", ExecutionContext{TenantID: "t1"}, "t2", nil, false},
		{"matching brand", ExecutionContext{TenantID: "t1", BrandID: &brand}, "t1", &brand, true},
		{"different brand", ExecutionContext{TenantID: "t1", BrandID: &brand}, "t1", &other, false},
		{"brand scope reading tenant-wide record", ExecutionContext{TenantID: "t1", BrandID: &brand}, "t1", nil, false},
		{"tenant scope reading brand record", ExecutionContext{TenantID: "t1"}, "t1", &brand, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ctx.Owns(tt.tenantID, tt.brandID))
		})
	}
}

func TestTargetFor(t *testing.T) {
	snapshot := SlaPolicySnapshot{
		Targets: []SlaTarget{
			{ID: "tg1", Channel: ChannelChat, Priority: TicketPriorityUrgent},
		},
	}

	target, ok := snapshot.TargetFor(ChannelChat, TicketPriorityUrgent)
	require.True(t, ok)
	assert.Equal(t, "tg1", target.ID)

	_, ok = snapshot.TargetFor(ChannelChat, TicketPriorityLow)
	assert.False(t, ok)
}
