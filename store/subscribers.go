package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"contest-notifier/pkg/contest"
)

type subscriberRow struct {
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Channels  int64     `db:"channels"`
}

func (r *subscriberRow) toSubscriber() contest.Subscriber {
	return contest.Subscriber{
		Email:     r.Email,
		Phone:     r.Phone,
		Channels:  contest.Channel(r.Channels),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// UpsertSubscriber creates or updates a subscriber record keyed by email.
// Returns true when the record was newly created, which gates the welcome
// notification to at most one per subscriber.
func (s *Store) UpsertSubscriber(ctx context.Context, sub *contest.Subscriber) (bool, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (email, phone, channels, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, sub.Email, sub.Phone, int64(sub.Channels), now, now)
	if err != nil {
		return false, fmt.Errorf("insert subscriber %s: %w", sub.Email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("subscriber rows affected: %w", err)
	}
	if n > 0 {
		sub.CreatedAt = now
		sub.UpdatedAt = now
		return true, nil
	}

	// Existing record: update channels and phone, keep created_at.
	_, err = s.db.ExecContext(ctx, `
		UPDATE subscribers SET phone = ?, channels = ?, updated_at = ? WHERE email = ?
	`, sub.Phone, int64(sub.Channels), now, sub.Email)
	if err != nil {
		return false, fmt.Errorf("update subscriber %s: %w", sub.Email, err)
	}
	sub.UpdatedAt = now
	return false, nil
}

// GetSubscriber loads a subscriber by email. Returns ErrNotFound when no
// record exists.
func (s *Store) GetSubscriber(ctx context.Context, email string) (*contest.Subscriber, error) {
	var row subscriberRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM subscribers WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber %s: %w", email, err)
	}
	sub := row.toSubscriber()
	return &sub, nil
}

// DeleteSubscriber removes a subscriber by email. Returns ErrNotFound when
// no record existed, leaving the store unchanged.
func (s *Store) DeleteSubscriber(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM subscribers WHERE email = ?", email)
	if err != nil {
		return fmt.Errorf("delete subscriber %s: %w", email, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("subscriber rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscribers returns all subscriber records.
func (s *Store) ListSubscribers(ctx context.Context) ([]contest.Subscriber, error) {
	var rows []subscriberRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM subscribers ORDER BY email ASC")
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}

	subs := make([]contest.Subscriber, 0, len(rows))
	for i := range rows {
		subs = append(subs, rows[i].toSubscriber())
	}
	return subs, nil
}
