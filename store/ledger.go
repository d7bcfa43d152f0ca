package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"contest-notifier/pkg/contest"
)

type reminderRow struct {
	SentAt    time.Time `db:"sent_at"`
	ContestID string    `db:"contest_id"`
	Kind      string    `db:"kind"`
	Snapshot  string    `db:"snapshot"`
}

// ReminderExists reports whether a ledger record exists for the
// (contest, kind) pair.
func (s *Store) ReminderExists(ctx context.Context, contestID string, kind contest.ReminderKind) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM reminders WHERE contest_id = ? AND kind = ?",
		contestID, string(kind))
	if err != nil {
		return false, fmt.Errorf("reminder exists %s/%s: %w", contestID, kind, err)
	}
	return n > 0, nil
}

// InsertReminderIfAbsent writes a ledger record unless one already exists
// for the (contest, kind) pair. The write is a single atomic statement so
// two overlapping ticks racing on the same key cannot both insert; exactly
// one caller observes inserted == true.
func (s *Store) InsertReminderIfAbsent(ctx context.Context, rec *contest.ReminderRecord) (bool, error) {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return false, fmt.Errorf("marshal reminder snapshot: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO reminders (contest_id, kind, sent_at, snapshot)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(contest_id, kind) DO NOTHING
	`, rec.ContestID, string(rec.Kind), rec.SentAt.UTC(), string(snapshot))
	if err != nil {
		return false, fmt.Errorf("insert reminder %s/%s: %w", rec.ContestID, rec.Kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reminder rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteRemindersByContest removes every ledger record for the contest,
// regardless of kind. Used for cleanup once the contest is in the past.
func (s *Store) DeleteRemindersByContest(ctx context.Context, contestID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM reminders WHERE contest_id = ?", contestID)
	if err != nil {
		return 0, fmt.Errorf("delete reminders %s: %w", contestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reminder rows affected: %w", err)
	}
	return n, nil
}

// ListReminders returns all ledger records, oldest first.
func (s *Store) ListReminders(ctx context.Context) ([]contest.ReminderRecord, error) {
	var rows []reminderRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM reminders ORDER BY sent_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	recs := make([]contest.ReminderRecord, 0, len(rows))
	for i := range rows {
		rec := contest.ReminderRecord{
			ContestID: rows[i].ContestID,
			Kind:      contest.ReminderKind(rows[i].Kind),
			SentAt:    rows[i].SentAt.UTC(),
		}
		if err := json.Unmarshal([]byte(rows[i].Snapshot), &rec.Snapshot); err != nil {
			s.logger.Warn("Failed to unmarshal reminder snapshot",
				"contest_id", rec.ContestID, "kind", rec.Kind, "error", err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
