package remind

import (
	"testing"
	"time"

	"contest-notifier/pkg/contest"
)

func TestInWindow(t *testing.T) {
	tests := []struct {
		name  string
		kind  contest.ReminderKind
		hours float64
		want  bool
	}{
		{"far mid window", contest.ReminderFar, 22.5, true},
		{"far lower bound", contest.ReminderFar, 18.0, false},
		{"far just above lower", contest.ReminderFar, 18.01, true},
		{"far upper bound", contest.ReminderFar, 27.0, true},
		{"far just above upper", contest.ReminderFar, 27.01, false},
		{"near mid window", contest.ReminderNear, 3.0, true},
		{"near lower bound", contest.ReminderNear, 0.1, false},
		{"near just above lower", contest.ReminderNear, 0.11, true},
		{"near upper bound", contest.ReminderNear, 6.0, true},
		{"near just above upper", contest.ReminderNear, 6.01, false},
		{"near negative", contest.ReminderNear, -0.5, false},
		{"unknown kind", contest.ReminderKind("weekly"), 3.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inWindow(tt.kind, tt.hours); got != tt.want {
				t.Errorf("inWindow(%q, %v) = %v, want %v", tt.kind, tt.hours, got, tt.want)
			}
		})
	}
}

func TestFormatTimeLeft(t *testing.T) {
	tests := []struct {
		name  string
		kind  contest.ReminderKind
		until time.Duration
		want  string
	}{
		{"near under 90 minutes", contest.ReminderNear, 45 * time.Minute, "45 minutes"},
		{"near exactly 90 minutes", contest.ReminderNear, 90 * time.Minute, "90 minutes"},
		{"near above 90 minutes", contest.ReminderNear, 3 * time.Hour, "3 hours"},
		{"near rounds minutes", contest.ReminderNear, 44*time.Minute + 40*time.Second, "45 minutes"},
		{"near single minute", contest.ReminderNear, time.Minute, "1 minute"},
		{"near floors at one minute", contest.ReminderNear, 10 * time.Second, "1 minute"},
		{"near hours round", contest.ReminderNear, 5*time.Hour + 40*time.Minute, "6 hours"},
		{"far whole hours", contest.ReminderFar, 20 * time.Hour, "20 hours"},
		{"far rounds down", contest.ReminderFar, 20*time.Hour + 20*time.Minute, "20 hours"},
		{"far rounds up", contest.ReminderFar, 20*time.Hour + 40*time.Minute, "21 hours"},
		{"far single hour", contest.ReminderFar, time.Hour, "1 hour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimeLeft(tt.kind, tt.until); got != tt.want {
				t.Errorf("FormatTimeLeft(%q, %v) = %q, want %q", tt.kind, tt.until, got, tt.want)
			}
		})
	}
}
