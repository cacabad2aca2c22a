package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/lifecycle-engine/internal/domain"
)

func weekdayPolicy(enforce bool, holidays ...string) domain.SlaPolicySnapshot {
	snapshot := domain.SlaPolicySnapshot{
		Policy: domain.SlaPolicy{
			ID:                   "policy-1",
			Timezone:             "UTC",
			EnforceBusinessHours: enforce,
		},
	}
	for day := time.Monday; day <= time.Friday; day++ {
		snapshot.Windows = append(snapshot.Windows, domain.BusinessHoursWindow{
			Weekday:     day,
			StartMinute: 9 * 60,
			EndMinute:   17 * 60,
		})
	}
	for _, h := range holidays {
		snapshot.Holidays = append(snapshot.Holidays, domain.HolidayException{Date: h})
	}
	return snapshot
}

func TestNewCalendar(t *testing.T) {
	t.Run("rejects unknown timezone", func(t *testing.T) {
		snapshot := weekdayPolicy(true)
		snapshot.Policy.Timezone = "Mars/Olympus"
		_, err := NewCalendar(snapshot)
		require.Error(t, err)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		snapshot := weekdayPolicy(true)
		snapshot.Windows = append(snapshot.Windows, domain.BusinessHoursWindow{
			Weekday:     time.Monday,
			StartMinute: 17 * 60,
			EndMinute:   9 * 60,
		})
		_, err := NewCalendar(snapshot)
		require.Error(t, err)
	})

	t.Run("merges overlapping windows", func(t *testing.T) {
		snapshot := domain.SlaPolicySnapshot{
			Policy: domain.SlaPolicy{Timezone: "UTC", EnforceBusinessHours: true},
			Windows: []domain.BusinessHoursWindow{
				{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 13 * 60},
				{Weekday: time.Monday, StartMinute: 12 * 60, EndMinute: 17 * 60},
			},
		}
		cal, err := NewCalendar(snapshot)
		require.NoError(t, err)

		// Overlap must not double-count: 09:00-17:00 is 480 minutes.
		from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC) // a Monday
		to := from.Add(24 * time.Hour)
		assert.Equal(t, 480, cal.MinutesInHours(from, to))
	})
}

func TestAddBusinessMinutes(t *testing.T) {
	tests := []struct {
		name     string
		holidays []string
		from     time.Time
		minutes  int
		want     time.Time
	}{
		{
			name:    "same day within window",
			from:    time.Date(2025, time.December, 22, 9, 0, 0, 0, time.UTC), // Monday
			minutes: 120,
			want:    time.Date(2025, time.December, 22, 11, 0, 0, 0, time.UTC),
		},
		{
			name:    "start before window snaps to opening",
			from:    time.Date(2025, time.December, 22, 6, 30, 0, 0, time.UTC),
			minutes: 60,
			want:    time.Date(2025, time.December, 22, 10, 0, 0, 0, time.UTC),
		},
		{
			name:    "start after close rolls to next day",
			from:    time.Date(2025, time.December, 22, 18, 0, 0, 0, time.UTC),
			minutes: 60,
			want:    time.Date(2025, time.December, 23, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "skips holiday",
			holidays: []string{"2025-12-25"},
			from:     time.Date(2025, time.December, 24, 15, 0, 0, 0, time.UTC), // Wednesday
			minutes:  480,
			// 2h left on the 24th, 25th is out, remaining 6h land on Friday.
			want: time.Date(2025, time.December, 26, 15, 0, 0, 0, time.UTC),
		},
		{
			name:     "skips holiday and weekend",
			holidays: []string{"2025-12-25"},
			from:     time.Date(2025, time.December, 24, 15, 0, 0, 0, time.UTC),
			minutes:  900,
			// 2h on the 24th + 8h on Friday the 26th + 5h on Monday the 29th.
			want: time.Date(2025, time.December, 29, 14, 0, 0, 0, time.UTC),
		},
		{
			name:    "crosses plain weekend",
			from:    time.Date(2025, time.December, 19, 16, 0, 0, 0, time.UTC), // Friday
			minutes: 120,
			want:    time.Date(2025, time.December, 22, 10, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, err := NewCalendar(weekdayPolicy(true, tt.holidays...))
			require.NoError(t, err)

			got, err := cal.AddBusinessMinutes(tt.from, tt.minutes)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}

	t.Run("enforcement off is wall-clock addition", func(t *testing.T) {
		cal, err := NewCalendar(weekdayPolicy(false, "2025-12-25"))
		require.NoError(t, err)

		from := time.Date(2025, time.December, 24, 23, 0, 0, 0, time.UTC)
		got, err := cal.AddBusinessMinutes(from, 180)
		require.NoError(t, err)
		assert.Equal(t, from.Add(3*time.Hour), got)
	})

	t.Run("zero budget returns start", func(t *testing.T) {
		cal, err := NewCalendar(weekdayPolicy(true))
		require.NoError(t, err)

		from := time.Date(2025, time.December, 21, 3, 0, 0, 0, time.UTC)
		got, err := cal.AddBusinessMinutes(from, 0)
		require.NoError(t, err)
		assert.Equal(t, from, got)
	})

	t.Run("no windows with enforcement on exceeds horizon", func(t *testing.T) {
		snapshot := domain.SlaPolicySnapshot{
			Policy: domain.SlaPolicy{Timezone: "UTC", EnforceBusinessHours: true},
		}
		cal, err := NewCalendar(snapshot)
		require.NoError(t, err)

		_, err = cal.AddBusinessMinutes(time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC), 60)
		require.ErrorIs(t, err, ErrHorizonExceeded)
	})

	t.Run("monotonic over start instants", func(t *testing.T) {
		cal, err := NewCalendar(weekdayPolicy(true, "2025-12-25"))
		require.NoError(t, err)

		base := time.Date(2025, time.December, 22, 8, 0, 0, 0, time.UTC)
		var prev time.Time
		for i := 0; i < 96; i++ {
			got, err := cal.AddBusinessMinutes(base.Add(time.Duration(i)*time.Hour), 240)
			require.NoError(t, err)
			if i > 0 {
				assert.False(t, got.Before(prev), "projection went backwards at offset %dh", i)
			}
			prev = got
		}
	})

	t.Run("split shift consumes both windows", func(t *testing.T) {
		snapshot := domain.SlaPolicySnapshot{
			Policy: domain.SlaPolicy{Timezone: "UTC", EnforceBusinessHours: true},
			Windows: []domain.BusinessHoursWindow{
				{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60},
				{Weekday: time.Monday, StartMinute: 13 * 60, EndMinute: 17 * 60},
			},
		}
		cal, err := NewCalendar(snapshot)
		require.NoError(t, err)

		from := time.Date(2025, time.June, 2, 11, 0, 0, 0, time.UTC)
		got, err := cal.AddBusinessMinutes(from, 120)
		require.NoError(t, err)
		// 1h to noon, the lunch gap is skipped, 1h more from 13:00.
		assert.Equal(t, time.Date(2025, time.June, 2, 14, 0, 0, 0, time.UTC), got)
	})

	t.Run("windows are local wall clock across DST", func(t *testing.T) {
		snapshot := domain.SlaPolicySnapshot{
			Policy: domain.SlaPolicy{Timezone: "America/New_York", EnforceBusinessHours: true},
		}
		for day := time.Monday; day <= time.Friday; day++ {
			snapshot.Windows = append(snapshot.Windows, domain.BusinessHoursWindow{
				Weekday: day, StartMinute: 9 * 60, EndMinute: 17 * 60,
			})
		}
		cal, err := NewCalendar(snapshot)
		require.NoError(t, err)

		loc, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		// Friday before the spring-forward weekend of 2025-03-09.
		from := time.Date(2025, time.March, 7, 16, 0, 0, 0, loc)
		got, err := cal.AddBusinessMinutes(from, 120)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, time.March, 10, 10, 0, 0, 0, loc), got.In(loc))
	})
}

func TestMinutesInHours(t *testing.T) {
	cal, err := NewCalendar(weekdayPolicy(true, "2025-12-25"))
	require.NoError(t, err)

	t.Run("inverted range is zero", func(t *testing.T) {
		from := time.Date(2025, time.December, 22, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, cal.MinutesInHours(from, from.Add(-time.Hour)))
	})

	t.Run("holiday contributes nothing", func(t *testing.T) {
		from := time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, 0, cal.MinutesInHours(from, from.Add(24*time.Hour)))
	})

	t.Run("spans days clipping both edges", func(t *testing.T) {
		from := time.Date(2025, time.December, 22, 16, 0, 0, 0, time.UTC) // Monday
		to := time.Date(2025, time.December, 23, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, 120, cal.MinutesInHours(from, to))
	})

	t.Run("enforcement off counts every minute", func(t *testing.T) {
		relaxed, err := NewCalendar(weekdayPolicy(false))
		require.NoError(t, err)
		from := time.Date(2025, time.December, 27, 3, 0, 0, 0, time.UTC) // Saturday
		assert.Equal(t, 90, relaxed.MinutesInHours(from, from.Add(90*time.Minute)))
	})
}
