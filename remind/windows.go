package remind

import (
	"fmt"
	"time"

	"contest-notifier/pkg/contest"
)

// Window boundaries, in fractional hours until contest start. Both windows
// are deliberately wider than the expected trigger cadence (hourly to every
// few hours) so a contest cannot slip between two ticks; the ledger is what
// keeps a contest observed twice inside one window from notifying twice.
//
// Each bound is exclusive on the low side and inclusive on the high side.
const (
	farWindowMin  = 18.0
	farWindowMax  = 27.0
	nearWindowMin = 0.1
	nearWindowMax = 6.0
)

// ContestGrace is how long after its start instant a contest stays in the
// store and keeps its ledger records.
const ContestGrace = time.Hour

// reminderKinds is the evaluation order within a tick. The predicates are
// independent, not mutually exclusive: a contest discovered late with a
// lead time in both ranges fires both reminders in the same tick.
var reminderKinds = []contest.ReminderKind{contest.ReminderFar, contest.ReminderNear}

// inWindow reports whether hoursUntilStart falls inside the window for the
// given reminder kind.
func inWindow(kind contest.ReminderKind, hoursUntilStart float64) bool {
	switch kind {
	case contest.ReminderFar:
		return hoursUntilStart > farWindowMin && hoursUntilStart <= farWindowMax
	case contest.ReminderNear:
		return hoursUntilStart > nearWindowMin && hoursUntilStart <= nearWindowMax
	default:
		return false
	}
}

// FormatTimeLeft renders the time remaining until start for notification
// bodies. Far-window reminders always round to hours; near-window reminders
// use minutes when 90 minutes or less remain ("45 minutes" vs "3 hours").
func FormatTimeLeft(kind contest.ReminderKind, until time.Duration) string {
	if kind == contest.ReminderNear && until <= 90*time.Minute {
		minutes := int(until.Round(time.Minute).Minutes())
		if minutes < 1 {
			minutes = 1
		}
		return pluralize(minutes, "minute")
	}

	hours := int(until.Round(time.Hour).Hours())
	if hours < 1 {
		hours = 1
	}
	return pluralize(hours, "hour")
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
