package remind

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"contest-notifier/pkg/contest"
)

var testClock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	contests []contest.Contest
}

func (f *fakeFetcher) FetchAll(_ context.Context) []contest.Contest {
	return f.contests
}

type fakeContestStore struct {
	contests map[string]contest.Contest
	upserts  int
}

func newFakeContestStore() *fakeContestStore {
	return &fakeContestStore{contests: make(map[string]contest.Contest)}
}

func (s *fakeContestStore) UpsertContests(_ context.Context, contests []contest.Contest) error {
	s.upserts++
	for _, c := range contests {
		s.contests[c.ID()] = c
	}
	return nil
}

func (s *fakeContestStore) DeleteContestsOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range s.contests {
		if c.StartsAt.Before(cutoff) {
			delete(s.contests, id)
			n++
		}
	}
	return n, nil
}

func (s *fakeContestStore) ListContests(_ context.Context) ([]contest.Contest, error) {
	out := make([]contest.Contest, 0, len(s.contests))
	for _, c := range s.contests {
		out = append(out, c)
	}
	contest.SortByStart(out)
	return out, nil
}

type fakeSubscriberStore struct {
	subs    []contest.Subscriber
	listErr error
}

func (s *fakeSubscriberStore) ListSubscribers(_ context.Context) ([]contest.Subscriber, error) {
	return s.subs, s.listErr
}

type fakeLedger struct {
	records   map[string]contest.ReminderRecord
	existsErr error
	insertErr error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]contest.ReminderRecord)}
}

func ledgerKey(contestID string, kind contest.ReminderKind) string {
	return contestID + "|" + string(kind)
}

func (l *fakeLedger) ReminderExists(_ context.Context, contestID string, kind contest.ReminderKind) (bool, error) {
	if l.existsErr != nil {
		return false, l.existsErr
	}
	_, ok := l.records[ledgerKey(contestID, kind)]
	return ok, nil
}

func (l *fakeLedger) InsertReminderIfAbsent(_ context.Context, rec *contest.ReminderRecord) (bool, error) {
	if l.insertErr != nil {
		return false, l.insertErr
	}
	key := ledgerKey(rec.ContestID, rec.Kind)
	if _, ok := l.records[key]; ok {
		return false, nil
	}
	l.records[key] = *rec
	return true, nil
}

func (l *fakeLedger) DeleteRemindersByContest(_ context.Context, contestID string) (int64, error) {
	var n int64
	for key, rec := range l.records {
		if rec.ContestID == contestID {
			delete(l.records, key)
			n++
		}
	}
	return n, nil
}

func (l *fakeLedger) ListReminders(_ context.Context) ([]contest.ReminderRecord, error) {
	out := make([]contest.ReminderRecord, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	return out, nil
}

type emailCall struct {
	to   string
	id   string
	kind contest.ReminderKind
	left string
}

type fakeEmailSender struct {
	calls []emailCall
	err   error
}

func (f *fakeEmailSender) SendReminder(_ context.Context, sub *contest.Subscriber, c *contest.Contest, kind contest.ReminderKind, timeLeft string) error {
	f.calls = append(f.calls, emailCall{to: sub.Email, id: c.ID(), kind: kind, left: timeLeft})
	return f.err
}

type smsCall struct {
	to   string
	id   string
	left string
}

type fakeSMSSender struct {
	calls []smsCall
	err   error
}

func (f *fakeSMSSender) SendReminder(_ context.Context, sub *contest.Subscriber, c *contest.Contest, timeLeft string) error {
	f.calls = append(f.calls, smsCall{to: sub.Phone, id: c.ID(), left: timeLeft})
	return f.err
}

type engineFixture struct {
	fetcher  *fakeFetcher
	contests *fakeContestStore
	subs     *fakeSubscriberStore
	ledger   *fakeLedger
	email    *fakeEmailSender
	sms      *fakeSMSSender
	engine   *Engine
	now      time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	f := &engineFixture{
		fetcher:  &fakeFetcher{},
		contests: newFakeContestStore(),
		subs:     &fakeSubscriberStore{},
		ledger:   newFakeLedger(),
		email:    &fakeEmailSender{},
		sms:      &fakeSMSSender{},
		now:      testClock,
	}
	f.engine = New(&Config{
		Fetcher:     f.fetcher,
		Contests:    f.contests,
		Subscribers: f.subs,
		Ledger:      f.ledger,
		Email:       f.email,
		SMS:         f.sms,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         func() time.Time { return f.now },
	})
	return f
}

func startingIn(now time.Time, d time.Duration) contest.Contest {
	return contest.Contest{
		Platform: contest.PlatformCodeforces,
		Key:      "900",
		Name:     "Div 2 Round 900",
		URL:      "https://codeforces.com/contests/900",
		StartsAt: now.Add(d),
		Duration: 2 * time.Hour,
	}
}

func emailSubscriber(email string) contest.Subscriber {
	return contest.Subscriber{Email: email, Channels: contest.ChannelEmail}
}

func TestTickSendsFarReminderExactlyOnce(t *testing.T) {
	f := newEngineFixture(t)
	f.fetcher.contests = []contest.Contest{startingIn(f.now, 20 * time.Hour)}
	f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("first Tick() error = %v", err)
	}

	if len(f.email.calls) != 1 {
		t.Fatalf("email sends = %d, want 1", len(f.email.calls))
	}
	call := f.email.calls[0]
	if call.to != "alice@example.com" {
		t.Errorf("sent to %q, want alice@example.com", call.to)
	}
	if call.kind != contest.ReminderFar {
		t.Errorf("kind = %q, want %q", call.kind, contest.ReminderFar)
	}
	if call.left != "20 hours" {
		t.Errorf("timeLeft = %q, want \"20 hours\"", call.left)
	}
	if len(f.sms.calls) != 0 {
		t.Errorf("sms sends = %d, want 0", len(f.sms.calls))
	}
	if len(f.ledger.records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(f.ledger.records))
	}

	// Second tick inside the same window must be a no-op for sends.
	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}
	if len(f.email.calls) != 1 {
		t.Errorf("email sends after second tick = %d, want 1", len(f.email.calls))
	}
}

func TestTickWindowBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		startsIn  time.Duration
		wantKinds []contest.ReminderKind
	}{
		{"far lower bound excluded", 18 * time.Hour, nil},
		{"just inside far window", 18*time.Hour + time.Minute, []contest.ReminderKind{contest.ReminderFar}},
		{"far upper bound included", 27 * time.Hour, []contest.ReminderKind{contest.ReminderFar}},
		{"just past far window", 27*time.Hour + time.Minute, nil},
		{"between windows", 12 * time.Hour, nil},
		{"near upper bound included", 6 * time.Hour, []contest.ReminderKind{contest.ReminderNear}},
		{"near lower bound excluded", 6 * time.Minute, nil},
		{"just inside near window", 7 * time.Minute, []contest.ReminderKind{contest.ReminderNear}},
		{"already started", -time.Minute, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t)
			f.fetcher.contests = []contest.Contest{startingIn(f.now, tt.startsIn)}
			f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}

			if err := f.engine.Tick(context.Background()); err != nil {
				t.Fatalf("Tick() error = %v", err)
			}

			if got, want := len(f.email.calls), len(tt.wantKinds); got != want {
				t.Fatalf("email sends = %d, want %d", got, want)
			}
			for i, kind := range tt.wantKinds {
				if f.email.calls[i].kind != kind {
					t.Errorf("call %d kind = %q, want %q", i, f.email.calls[i].kind, kind)
				}
			}
		})
	}
}

func TestTickFiresBothWindowsAcrossTicks(t *testing.T) {
	f := newEngineFixture(t)
	start := f.now.Add(20 * time.Hour)
	c := startingIn(f.now, 20*time.Hour)
	f.fetcher.contests = []contest.Contest{c}
	f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("far-window Tick() error = %v", err)
	}

	// 15 hours later the same contest sits in the near window.
	f.now = start.Add(-5 * time.Hour)
	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("near-window Tick() error = %v", err)
	}

	if len(f.email.calls) != 2 {
		t.Fatalf("email sends = %d, want 2", len(f.email.calls))
	}
	if f.email.calls[0].kind != contest.ReminderFar || f.email.calls[1].kind != contest.ReminderNear {
		t.Errorf("kinds = %q, %q; want far then near",
			f.email.calls[0].kind, f.email.calls[1].kind)
	}
	if len(f.ledger.records) != 2 {
		t.Errorf("ledger records = %d, want 2", len(f.ledger.records))
	}
}

func TestTickSMSChannelWithoutPhoneSendsNothing(t *testing.T) {
	f := newEngineFixture(t)
	f.fetcher.contests = []contest.Contest{startingIn(f.now, 3 * time.Hour)}
	f.subs.subs = []contest.Subscriber{{Email: "bob@example.com", Channels: contest.ChannelSMS}}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(f.sms.calls) != 0 {
		t.Errorf("sms sends = %d, want 0", len(f.sms.calls))
	}
	if len(f.email.calls) != 0 {
		t.Errorf("email sends = %d, want 0", len(f.email.calls))
	}
	// The window is still consumed: a phone added later must not trigger
	// a late duplicate for the same window.
	if len(f.ledger.records) != 1 {
		t.Errorf("ledger records = %d, want 1", len(f.ledger.records))
	}
}

func TestTickBothChannels(t *testing.T) {
	f := newEngineFixture(t)
	f.fetcher.contests = []contest.Contest{startingIn(f.now, 3 * time.Hour)}
	f.subs.subs = []contest.Subscriber{{
		Email:    "carol@example.com",
		Phone:    "+15551234567",
		Channels: contest.ChannelEmail | contest.ChannelSMS,
	}}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(f.email.calls) != 1 {
		t.Errorf("email sends = %d, want 1", len(f.email.calls))
	}
	if len(f.sms.calls) != 1 {
		t.Fatalf("sms sends = %d, want 1", len(f.sms.calls))
	}
	if f.sms.calls[0].to != "+15551234567" {
		t.Errorf("sms to = %q, want +15551234567", f.sms.calls[0].to)
	}
}

func TestTickNoSubscribersIsNoOp(t *testing.T) {
	f := newEngineFixture(t)
	f.fetcher.contests = []contest.Contest{startingIn(f.now, 20 * time.Hour)}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(f.email.calls) != 0 || len(f.sms.calls) != 0 {
		t.Errorf("sends = %d email, %d sms; want none",
			len(f.email.calls), len(f.sms.calls))
	}
	if len(f.ledger.records) != 0 {
		t.Errorf("ledger records = %d, want 0", len(f.ledger.records))
	}
	// The cache still refreshes so /contests stays current.
	if f.contests.upserts != 1 {
		t.Errorf("contest upserts = %d, want 1", f.contests.upserts)
	}
}

func TestTickSendFailureStillMarksLedger(t *testing.T) {
	f := newEngineFixture(t)
	f.fetcher.contests = []contest.Contest{startingIn(f.now, 3 * time.Hour)}
	f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}
	f.email.err = errors.New("smtp down")

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(f.ledger.records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(f.ledger.records))
	}

	// No retry on the next tick: the window was consumed by the attempt.
	f.email.err = nil
	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("second Tick() error = %v", err)
	}
	if len(f.email.calls) != 1 {
		t.Errorf("email sends = %d, want 1", len(f.email.calls))
	}
}

func TestTickLedgerCheckErrorSurfaces(t *testing.T) {
	f := newEngineFixture(t)
	f.fetcher.contests = []contest.Contest{startingIn(f.now, 3 * time.Hour)}
	f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}
	f.ledger.existsErr = errors.New("db locked")

	if err := f.engine.Tick(context.Background()); err == nil {
		t.Fatal("Tick() = nil, want error when the ledger check fails")
	}
	if len(f.email.calls) != 0 {
		t.Errorf("email sends = %d, want 0 when the ledger is unreadable", len(f.email.calls))
	}
}

func TestTickLedgerInsertErrorSurfacesAfterFanOut(t *testing.T) {
	f := newEngineFixture(t)
	f.fetcher.contests = []contest.Contest{startingIn(f.now, 3 * time.Hour)}
	f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}
	f.ledger.insertErr = errors.New("disk full")

	err := f.engine.Tick(context.Background())
	if err == nil {
		t.Fatal("Tick() = nil, want error when the ledger mark fails")
	}
	// The batch itself already went out.
	if len(f.email.calls) != 1 {
		t.Errorf("email sends = %d, want 1", len(f.email.calls))
	}
}

func TestTickExpiresContestsAndCleansLedger(t *testing.T) {
	f := newEngineFixture(t)
	f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}

	past := startingIn(f.now, -2*time.Hour)
	f.contests.contests[past.ID()] = past
	for _, kind := range []contest.ReminderKind{contest.ReminderFar, contest.ReminderNear} {
		f.ledger.records[ledgerKey(past.ID(), kind)] = contest.ReminderRecord{
			ContestID: past.ID(),
			Kind:      kind,
			SentAt:    f.now.Add(-24 * time.Hour),
			Snapshot:  past,
		}
	}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(f.contests.contests) != 0 {
		t.Errorf("stored contests = %d, want 0 after expiry", len(f.contests.contests))
	}
	if len(f.ledger.records) != 0 {
		t.Errorf("ledger records = %d, want 0 after cleanup", len(f.ledger.records))
	}
}

func TestTickKeepsLedgerWithinGrace(t *testing.T) {
	f := newEngineFixture(t)
	f.subs.subs = []contest.Subscriber{emailSubscriber("alice@example.com")}

	// Started 30 minutes ago: inside the grace period on both sides.
	recent := startingIn(f.now, -30*time.Minute)
	f.contests.contests[recent.ID()] = recent
	f.ledger.records[ledgerKey(recent.ID(), contest.ReminderNear)] = contest.ReminderRecord{
		ContestID: recent.ID(),
		Kind:      contest.ReminderNear,
		SentAt:    f.now.Add(-3 * time.Hour),
		Snapshot:  recent,
	}

	if err := f.engine.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() error = %v", err)
	}

	if len(f.contests.contests) != 1 {
		t.Errorf("stored contests = %d, want 1 inside grace", len(f.contests.contests))
	}
	if len(f.ledger.records) != 1 {
		t.Errorf("ledger records = %d, want 1 inside grace", len(f.ledger.records))
	}
}
