package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/lifecycle-engine/internal/cache"
	"github.com/spec-kit/lifecycle-engine/internal/domain"
	apperrors "github.com/spec-kit/lifecycle-engine/pkg/util"
)

type recordingPolicyRepo struct {
	fakePolicyRepo
	created  *domain.SlaPolicy
	replaced bool
}

func (f *recordingPolicyRepo) CreatePolicy(ctx context.Context, policy *domain.SlaPolicy) error {
	policy.ID = "pol-new"
	f.created = policy
	return nil
}

func (f *recordingPolicyRepo) ReplaceSchedule(ctx context.Context, policy *domain.SlaPolicy, windows []domain.BusinessHoursWindow, holidays []domain.HolidayException, targets []domain.SlaTarget) error {
	f.replaced = true
	return nil
}

func newSlaAdmin(repo *recordingPolicyRepo) *SlaAdminService {
	return NewSlaAdminService(repo, cache.NewSnapshotCache(nil, 0, zap.NewNop()), zap.NewNop())
}

func validUpdate() PolicyUpdateInput {
	return PolicyUpdateInput{
		Name:                     "Support Hours",
		Timezone:                 "Europe/Berlin",
		EnforceBusinessHours:     true,
		DefaultResolutionMinutes: intPtr(480),
		Windows: []domain.BusinessHoursWindow{
			{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 17 * 60},
		},
		Holidays: []domain.HolidayException{{Date: "2025-12-25", Label: "Christmas"}},
		Targets: []domain.SlaTarget{{
			Channel:              domain.ChannelChat,
			Priority:             domain.TicketPriorityUrgent,
			FirstResponseMinutes: intPtr(15),
		}},
	}
}

func TestSlaAdminCreatePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("creates in the caller's scope", func(t *testing.T) {
		repo := &recordingPolicyRepo{}
		policy, err := newSlaAdmin(repo).CreatePolicy(ctx, execCtx(), PolicyCreateInput{
			Slug: "default", Name: "Default", Timezone: "UTC",
		})
		require.NoError(t, err)
		assert.Equal(t, "t1", policy.TenantID)
		assert.NotNil(t, repo.created)
	})

	t.Run("rejects unknown timezone before persistence", func(t *testing.T) {
		repo := &recordingPolicyRepo{}
		_, err := newSlaAdmin(repo).CreatePolicy(ctx, execCtx(), PolicyCreateInput{
			Slug: "default", Name: "Default", Timezone: "Mars/Olympus",
		})
		require.Error(t, err)
		assert.Nil(t, repo.created)
	})

	t.Run("rejects negative default budget", func(t *testing.T) {
		repo := &recordingPolicyRepo{}
		_, err := newSlaAdmin(repo).CreatePolicy(ctx, execCtx(), PolicyCreateInput{
			Slug: "default", Name: "Default", Timezone: "UTC",
			DefaultResolutionMinutes: intPtr(-1),
		})
		require.Error(t, err)
	})
}

func TestSlaAdminUpdatePolicy(t *testing.T) {
	ctx := context.Background()

	withPolicy := func() *recordingPolicyRepo {
		repo := &recordingPolicyRepo{}
		repo.snapshot = relaxedPolicy()
		return repo
	}

	t.Run("valid schedule replaces wholesale", func(t *testing.T) {
		repo := withPolicy()
		snapshot, err := newSlaAdmin(repo).UpdatePolicy(ctx, execCtx(), "pol-1", validUpdate())
		require.NoError(t, err)
		assert.True(t, repo.replaced)
		assert.Equal(t, "Support Hours", snapshot.Policy.Name)
		assert.Len(t, snapshot.Windows, 1)
	})

	t.Run("foreign tenant sees not found", func(t *testing.T) {
		repo := withPolicy()
		_, err := newSlaAdmin(repo).UpdatePolicy(ctx, domain.ExecutionContext{TenantID: "t2"}, "pol-1", validUpdate())
		var domainErr *apperrors.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
		assert.False(t, repo.replaced)
	})

	invalid := []struct {
		name   string
		mutate func(in *PolicyUpdateInput)
	}{
		{"window end before start", func(in *PolicyUpdateInput) {
			in.Windows[0].EndMinute = in.Windows[0].StartMinute - 30
		}},
		{"window weekday out of range", func(in *PolicyUpdateInput) {
			in.Windows[0].Weekday = 9
		}},
		{"window past midnight", func(in *PolicyUpdateInput) {
			in.Windows[0].EndMinute = 25 * 60
		}},
		{"malformed holiday date", func(in *PolicyUpdateInput) {
			in.Holidays[0].Date = "25.12.2025"
		}},
		{"duplicate holiday date", func(in *PolicyUpdateInput) {
			in.Holidays = append(in.Holidays, domain.HolidayException{Date: "2025-12-25"})
		}},
		{"duplicate target pair", func(in *PolicyUpdateInput) {
			in.Targets = append(in.Targets, in.Targets[0])
		}},
		{"negative target budget", func(in *PolicyUpdateInput) {
			in.Targets[0].FirstResponseMinutes = intPtr(-15)
		}},
	}

	for _, tt := range invalid {
		t.Run(tt.name+" aborts before persistence", func(t *testing.T) {
			repo := withPolicy()
			input := validUpdate()
			tt.mutate(&input)

			_, err := newSlaAdmin(repo).UpdatePolicy(ctx, execCtx(), "pol-1", input)
			require.Error(t, err)
			assert.False(t, repo.replaced)
		})
	}
}
