package store

import (
	"context"
	"fmt"
	"time"

	"contest-notifier/pkg/contest"
)

type contestRow struct {
	StartsAt  time.Time `db:"starts_at"`
	FetchedAt time.Time `db:"fetched_at"`
	ID        string    `db:"id"`
	Platform  string    `db:"platform"`
	Key       string    `db:"key"`
	Name      string    `db:"name"`
	URL       string    `db:"url"`
	DurationS int64     `db:"duration_s"`
}

func (r *contestRow) toContest() contest.Contest {
	return contest.Contest{
		Platform: contest.Platform(r.Platform),
		Key:      r.Key,
		Name:     r.Name,
		URL:      r.URL,
		StartsAt: r.StartsAt.UTC(),
		Duration: time.Duration(r.DurationS) * time.Second,
	}
}

// UpsertContests merges fetched contests into the store, last write wins
// per identity. A corrected start instant from the source overwrites the
// stored one.
func (s *Store) UpsertContests(ctx context.Context, contests []contest.Contest) error {
	now := time.Now().UTC()
	for i := range contests {
		c := &contests[i]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO contests (id, platform, key, name, url, starts_at, duration_s, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				url = excluded.url,
				starts_at = excluded.starts_at,
				duration_s = excluded.duration_s,
				fetched_at = excluded.fetched_at
		`, c.ID(), c.Platform, c.Key, c.Name, c.URL,
			c.StartsAt.UTC(), int64(c.Duration.Seconds()), now)
		if err != nil {
			return fmt.Errorf("upsert contest %s: %w", c.ID(), err)
		}
	}
	return nil
}

// DeleteContestsOlderThan removes contests whose start instant is before
// the cutoff.
func (s *Store) DeleteContestsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM contests WHERE starts_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired contests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired contests rows affected: %w", err)
	}
	return n, nil
}

// ListContests returns all stored contests ascending by start instant.
func (s *Store) ListContests(ctx context.Context) ([]contest.Contest, error) {
	var rows []contestRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM contests ORDER BY starts_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}

	contests := make([]contest.Contest, 0, len(rows))
	for i := range rows {
		contests = append(contests, rows[i].toContest())
	}
	return contests, nil
}
