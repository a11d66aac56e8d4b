package timecond

import (
	"fmt"
	"log/slog"
	"time"

	"voip-router/internal/models"
)

type Classification string

const (
	Business   Classification = "business"
	AfterHours Classification = "after_hours"
	Holiday    Classification = "holiday"
)

type Result struct {
	Classification Classification
	Action         models.Action
}

const dateLayout = "2006-01-02"

// Evaluate classifies instant against the condition. It never fails: a
// condition without a usable timezone is treated as after hours with a
// hangup, so the caller can always render a document.
func Evaluate(cond *models.TimeCondition, instant time.Time) Result {
	if cond == nil || cond.Timezone == "" {
		return Result{Classification: AfterHours, Action: models.HangupAction()}
	}

	loc, err := time.LoadLocation(cond.Timezone)
	if err != nil {
		slog.Warn("time condition timezone not loadable", "time_condition_id", cond.ID, "timezone", cond.Timezone, "error", err)
		return Result{Classification: AfterHours, Action: models.HangupAction()}
	}

	local := instant.In(loc)

	date := local.Format(dateLayout)
	for _, h := range cond.Holidays {
		if h.Enabled && h.Date == date {
			return Result{Classification: Holiday, Action: cond.HolidayAction}
		}
	}

	if day, ok := cond.BusinessHours[local.Weekday()]; ok && day.Enabled {
		if withinDay(local, day) {
			return Result{Classification: Business, Action: cond.BusinessHoursAction}
		}
	}

	return Result{Classification: AfterHours, Action: cond.AfterHoursAction}
}

func withinDay(local time.Time, day models.DaySchedule) bool {
	start, err := ParseClock(day.StartTime)
	if err != nil {
		return false
	}
	end, err := ParseClock(day.EndTime)
	if err != nil {
		return false
	}
	now := local.Hour()*60 + local.Minute()
	return now >= start && now <= end
}

// ParseClock turns "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time of day %q", models.ErrConfigInvalid, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}
