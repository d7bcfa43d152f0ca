// Package contest contains the core domain types for the contest
// notification service.
package contest

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Platform identifies which site a contest was fetched from.
type Platform string

const (
	PlatformCodeforces Platform = "codeforces"
	PlatformAtCoder    Platform = "atcoder"
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeChef   Platform = "codechef"
)

// Label returns the human-readable platform name used in notifications.
func (p Platform) Label() string {
	switch p {
	case PlatformCodeforces:
		return "Codeforces"
	case PlatformAtCoder:
		return "AtCoder"
	case PlatformLeetCode:
		return "LeetCode"
	case PlatformCodeChef:
		return "CodeChef"
	default:
		return string(p)
	}
}

// Contest is the normalized shape every platform fetcher produces.
type Contest struct {
	StartsAt time.Time     `json:"starts_at"` // absolute start instant, UTC
	Platform Platform      `json:"platform"`
	Key      string        `json:"key"` // source-native slug or numeric ID, stable across refreshes
	Name     string        `json:"name"`
	URL      string        `json:"url"`
	Duration time.Duration `json:"duration"`
}

// ID returns the merge identity: at most one stored record per ID.
func (c *Contest) ID() string {
	return string(c.Platform) + ":" + c.Key
}

// HoursUntilStart returns the signed distance from now to the start
// instant, in fractional hours. Negative once the contest has started.
func (c *Contest) HoursUntilStart(now time.Time) float64 {
	return c.StartsAt.Sub(now).Hours()
}

// SortByStart orders contests ascending by start instant, with ID as a
// tiebreaker so the order is deterministic.
func SortByStart(contests []Contest) {
	sort.Slice(contests, func(i, j int) bool {
		if !contests[i].StartsAt.Equal(contests[j].StartsAt) {
			return contests[i].StartsAt.Before(contests[j].StartsAt)
		}
		return contests[i].ID() < contests[j].ID()
	})
}

// Channel is the closed set of notification channels a subscriber can
// select, represented as flags rather than free-form strings.
type Channel uint8

const (
	ChannelEmail Channel = 1 << iota
	ChannelSMS
)

// Has reports whether the flag set includes ch.
func (c Channel) Has(ch Channel) bool {
	return c&ch != 0
}

// Slice returns the selected channels as names, for JSON responses.
func (c Channel) Slice() []string {
	var out []string
	if c.Has(ChannelEmail) {
		out = append(out, "email")
	}
	if c.Has(ChannelSMS) {
		out = append(out, "sms")
	}
	return out
}

func (c Channel) String() string {
	return strings.Join(c.Slice(), ",")
}

// ParseChannels converts channel names into flags. Unknown names are
// rejected rather than ignored so a typo surfaces as a client error.
func ParseChannels(names []string) (Channel, error) {
	var c Channel
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "email":
			c |= ChannelEmail
		case "sms":
			c |= ChannelSMS
		case "":
		default:
			return 0, fmt.Errorf("unknown channel %q", name)
		}
	}
	return c, nil
}

// Subscriber is a persisted subscriber record, keyed by email.
type Subscriber struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Channels  Channel   `json:"-"`
}

// WantsEmail reports whether reminder emails should be sent.
func (s *Subscriber) WantsEmail() bool {
	return s.Channels.Has(ChannelEmail)
}

// WantsSMS reports whether reminder texts should be sent. A selected SMS
// channel without a phone number on file is inert.
func (s *Subscriber) WantsSMS() bool {
	return s.Channels.Has(ChannelSMS) && s.Phone != ""
}

// ReminderKind distinguishes the two reminder windows.
type ReminderKind string

const (
	// ReminderFar is the "day before" reminder.
	ReminderFar ReminderKind = "far"
	// ReminderNear is the "starting soon" reminder.
	ReminderNear ReminderKind = "near"
)

// ReminderRecord is a ledger entry marking that the notification batch for
// one (contest, kind) pair has been sent. Its uniqueness is the sole guard
// against duplicate fan-outs across repeated ticks.
type ReminderRecord struct {
	SentAt    time.Time    `json:"sent_at"`
	ContestID string       `json:"contest_id"`
	Kind      ReminderKind `json:"kind"`
	Snapshot  Contest      `json:"snapshot"` // contest state at send time
}
