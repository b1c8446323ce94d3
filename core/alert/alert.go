// Package alert derives status badges and deadline alerts from schedules.
// Everything here is a pure function of its inputs.
package alert

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/statbureau/datahub/core/schedule"
)

// WarningWindow is the number of days before the end of a collection that triggers a warning.
const WarningWindow = 7

const day = 24 * time.Hour

type Level string

// Levels, from most to least severe.
const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

var levelRank = map[Level]int{LevelError: 0, LevelWarning: 1, LevelInfo: 2}

type (
	Badge struct {
		Label string `json:"label"`
		Style string `json:"style"`
		Icon  string `json:"icon"`
	}

	Alert struct {
		Level        Level  `json:"level"`
		Message      string `json:"message"`
		ScheduleID   string `json:"schedule_id,omitempty"`
		ScheduleName string `json:"schedule_name,omitempty"`
		DaysLeft     *int   `json:"days_left,omitempty"`
	}
)

var badges = map[schedule.Status]Badge{
	schedule.StatusOpen:       {Label: "Open", Style: "info", Icon: "clock"},
	schedule.StatusCollection: {Label: "Collection", Style: "success", Icon: "edit"},
	schedule.StatusPublished:  {Label: "Published", Style: "primary", Icon: "check-circle"},
	schedule.StatusCancelled:  {Label: "Cancelled", Style: "secondary", Icon: "x-circle"},
}

// StatusBadge maps a schedule status to its badge. Unknown statuses get a neutral badge.
func StatusBadge(status schedule.Status) Badge {
	if b, ok := badges[status]; ok {
		return b
	}
	return Badge{Label: string(status), Style: "secondary", Icon: "help-circle"}
}

// DaysUntilEnd returns the number of days left until end, rounded up.
// It is zero or negative once end is reached.
func DaysUntilEnd(end, today time.Time) int {
	return int(math.Ceil(float64(end.Sub(today)) / float64(day)))
}

// Derive computes the deadline alerts of the given schedules on today, most severe first.
func Derive(schedules []schedule.Schedule, today time.Time) []Alert {
	alerts := make([]Alert, 0)
	hasOpen := false
	for _, sch := range schedules {
		switch sch.Status {
		case schedule.StatusOpen:
			hasOpen = true
		case schedule.StatusCollection:
			days := DaysUntilEnd(sch.EndDate, today)
			switch {
			case days <= 0:
				alerts = append(alerts, Alert{
					Level:        LevelError,
					Message:      fmt.Sprintf("%s is overdue", sch.Name),
					ScheduleID:   sch.ID,
					ScheduleName: sch.Name,
					DaysLeft:     &days,
				})
			case days <= WarningWindow:
				alerts = append(alerts, Alert{
					Level:        LevelWarning,
					Message:      fmt.Sprintf("%s ends in %d %s", sch.Name, days, plural(days, "day", "days")),
					ScheduleID:   sch.ID,
					ScheduleName: sch.Name,
					DaysLeft:     &days,
				})
			}
		}
	}
	if !hasOpen {
		alerts = append(alerts, Alert{Level: LevelInfo, Message: "no schedules open for setup"})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return levelRank[alerts[i].Level] < levelRank[alerts[j].Level]
	})
	return alerts
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
