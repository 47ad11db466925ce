package notify

import (
	"fmt"
	"time"

	"github.com/calloway/dispatchline/internal/models"
)

// QuietHoursEnd evaluates the operator's local quiet-hours window. If now
// falls inside the window it returns the instant the window ends and true;
// otherwise it returns the zero time and false. Windows may wrap midnight
// (the 21:00–08:00 default does).
func QuietHoursEnd(op *models.OperatorProfile, now time.Time) (time.Time, bool, error) {
	loc, err := time.LoadLocation(op.Timezone)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("notify: operator timezone %q: %w", op.Timezone, err)
	}
	start, err := time.Parse("15:04", op.QuietStart)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("notify: quiet start %q: %w", op.QuietStart, err)
	}
	end, err := time.Parse("15:04", op.QuietEnd)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("notify: quiet end %q: %w", op.QuietEnd, err)
	}

	local := now.In(loc)
	nowMin := local.Hour()*60 + local.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	atMinute := func(day time.Time, minutes int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
	}

	if startMin == endMin {
		// Degenerate window: quiet hours disabled.
		return time.Time{}, false, nil
	}

	if startMin < endMin {
		// Same-day window, e.g. 13:00–15:00.
		if nowMin >= startMin && nowMin < endMin {
			return atMinute(local, endMin), true, nil
		}
		return time.Time{}, false, nil
	}

	// Window wraps midnight, e.g. 21:00–08:00.
	if nowMin >= startMin {
		return atMinute(local.AddDate(0, 0, 1), endMin), true, nil
	}
	if nowMin < endMin {
		return atMinute(local, endMin), true, nil
	}
	return time.Time{}, false, nil
}
