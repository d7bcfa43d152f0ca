package contest

import (
	"testing"
	"time"
)

func TestContestID(t *testing.T) {
	c := Contest{Platform: PlatformCodeforces, Key: "900"}
	if got := c.ID(); got != "codeforces:900" {
		t.Errorf("ID() = %q, want codeforces:900", got)
	}
}

func TestHoursUntilStart(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		startsAt time.Time
		want     float64
	}{
		{"20 hours out", now.Add(20 * time.Hour), 20},
		{"90 minutes out", now.Add(90 * time.Minute), 1.5},
		{"already started", now.Add(-2 * time.Hour), -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Contest{StartsAt: tt.startsAt}
			if got := c.HoursUntilStart(now); got != tt.want {
				t.Errorf("HoursUntilStart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortByStartDeterministic(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	contests := []Contest{
		{Platform: PlatformLeetCode, Key: "weekly-450", StartsAt: base},
		{Platform: PlatformCodeforces, Key: "900", StartsAt: base.Add(time.Hour)},
		{Platform: PlatformAtCoder, Key: "abc407", StartsAt: base},
	}

	SortByStart(contests)

	want := []string{"atcoder:abc407", "leetcode:weekly-450", "codeforces:900"}
	for i, id := range want {
		if contests[i].ID() != id {
			t.Errorf("position %d = %q, want %q", i, contests[i].ID(), id)
		}
	}
}

func TestParseChannels(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    Channel
		wantErr bool
	}{
		{"empty", nil, 0, false},
		{"email only", []string{"email"}, ChannelEmail, false},
		{"both", []string{"email", "sms"}, ChannelEmail | ChannelSMS, false},
		{"case and whitespace", []string{" Email ", "SMS"}, ChannelEmail | ChannelSMS, false},
		{"duplicates collapse", []string{"email", "email"}, ChannelEmail, false},
		{"blank entries ignored", []string{"", "sms"}, ChannelSMS, false},
		{"unknown rejected", []string{"email", "pigeon"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannels(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseChannels(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseChannels(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestChannelSlice(t *testing.T) {
	if got := (ChannelEmail | ChannelSMS).String(); got != "email,sms" {
		t.Errorf("String() = %q, want email,sms", got)
	}
	if got := Channel(0).Slice(); got != nil {
		t.Errorf("Slice() = %v, want nil", got)
	}
}

func TestSubscriberWants(t *testing.T) {
	tests := []struct {
		name      string
		sub       Subscriber
		wantEmail bool
		wantSMS   bool
	}{
		{"email only", Subscriber{Email: "a@b.com", Channels: ChannelEmail}, true, false},
		{"sms with phone", Subscriber{Email: "a@b.com", Phone: "+15550000000", Channels: ChannelSMS}, false, true},
		{"sms without phone is inert", Subscriber{Email: "a@b.com", Channels: ChannelSMS}, false, false},
		{"both", Subscriber{Email: "a@b.com", Phone: "+15550000000", Channels: ChannelEmail | ChannelSMS}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.WantsEmail(); got != tt.wantEmail {
				t.Errorf("WantsEmail() = %v, want %v", got, tt.wantEmail)
			}
			if got := tt.sub.WantsSMS(); got != tt.wantSMS {
				t.Errorf("WantsSMS() = %v, want %v", got, tt.wantSMS)
			}
		})
	}
}
