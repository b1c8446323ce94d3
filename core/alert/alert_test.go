package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbureau/datahub/core/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStatusBadge(t *testing.T) {
	for _, st := range []schedule.Status{
		schedule.StatusOpen, schedule.StatusCollection, schedule.StatusPublished, schedule.StatusCancelled, "bogus",
	} {
		first := StatusBadge(st)
		assert.Equal(t, first, StatusBadge(st), "badge of %q must only depend on the status", st)
		assert.NotEmpty(t, first.Label)
	}
	assert.NotEqual(t, StatusBadge(schedule.StatusOpen), StatusBadge(schedule.StatusCollection))
	assert.NotEqual(t, StatusBadge(schedule.StatusCollection), StatusBadge(schedule.StatusPublished))
}

func TestDaysUntilEnd(t *testing.T) {
	today := date(2025, time.March, 10)
	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{name: "same day", end: today, want: 0},
		{name: "tomorrow", end: date(2025, time.March, 11), want: 1},
		{name: "partial day rounds up", end: today.Add(90 * time.Minute), want: 1},
		{name: "yesterday", end: date(2025, time.March, 9), want: -1},
		{name: "partial day in the past rounds towards zero", end: today.Add(-90 * time.Minute), want: 0},
		{name: "one week", end: date(2025, time.March, 17), want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntilEnd(tt.end, today))
		})
	}
}

func TestDerive(t *testing.T) {
	today := date(2025, time.March, 10)
	collection := func(id string, end time.Time) schedule.Schedule {
		return schedule.Schedule{
			ID: id, Name: id, Status: schedule.StatusCollection,
			StartDate: date(2025, time.January, 1), EndDate: end,
		}
	}
	open := schedule.Schedule{ID: "o", Name: "o", Status: schedule.StatusOpen, EndDate: date(2025, time.June, 1)}

	t.Run("deadline levels", func(t *testing.T) {
		for days := -3; days <= 10; days++ {
			alerts := Derive([]schedule.Schedule{open, collection("s", today.AddDate(0, 0, days))}, today)
			switch {
			case days <= 0:
				require.Len(t, alerts, 1, "days=%d", days)
				assert.Equal(t, LevelError, alerts[0].Level, "days=%d", days)
				assert.Contains(t, alerts[0].Message, "overdue")
			case days <= WarningWindow:
				require.Len(t, alerts, 1, "days=%d", days)
				assert.Equal(t, LevelWarning, alerts[0].Level, "days=%d", days)
				require.NotNil(t, alerts[0].DaysLeft)
				assert.Equal(t, days, *alerts[0].DaysLeft)
			default:
				assert.Empty(t, alerts, "days=%d", days)
			}
		}
	})

	t.Run("no open schedule", func(t *testing.T) {
		alerts := Derive([]schedule.Schedule{collection("late", date(2025, time.March, 1)), collection("soon", date(2025, time.March, 12))}, today)
		require.Len(t, alerts, 3)
		assert.Equal(t, []Level{LevelError, LevelWarning, LevelInfo}, []Level{alerts[0].Level, alerts[1].Level, alerts[2].Level})
		assert.Equal(t, "soon ends in 2 days", alerts[1].Message)
	})

	t.Run("only collection schedules get deadline alerts", func(t *testing.T) {
		published := schedule.Schedule{ID: "p", Status: schedule.StatusPublished, EndDate: date(2025, time.January, 1)}
		alerts := Derive([]schedule.Schedule{open, published}, today)
		assert.Empty(t, alerts)
	})

	t.Run("no schedules at all", func(t *testing.T) {
		alerts := Derive(nil, today)
		require.Len(t, alerts, 1)
		assert.Equal(t, LevelInfo, alerts[0].Level)
	})
}
