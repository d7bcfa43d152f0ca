// Package email handles sending notification emails via pluggable
// providers.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"contest-notifier/pkg/contest"
)

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send sends an email with the given parameters.
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Sender sends notification emails using a pluggable provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
	baseURL  string // for links in emails
}

// New creates a new email sender with the given provider.
func New(provider Provider, logger *slog.Logger, baseURL string) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
		baseURL:  baseURL,
	}
}

// SendReminder sends one contest reminder email.
func (s *Sender) SendReminder(ctx context.Context, sub *contest.Subscriber, c *contest.Contest, kind contest.ReminderKind, timeLeft string) error {
	subject := fmt.Sprintf("%s starts in %s", c.Name, timeLeft)
	body := s.formatReminderBody(c, kind, timeLeft)

	s.logger.Info("Sending reminder email",
		"to", sub.Email,
		"contest_id", c.ID(),
		"kind", kind,
		"subject", subject)

	return s.provider.Send(ctx, sub.Email, subject, body)
}

// SendWelcome sends a welcome email when a user first subscribes.
func (s *Sender) SendWelcome(ctx context.Context, sub *contest.Subscriber) error {
	subject := "Contest reminders are on"
	body := s.formatWelcomeBody(sub)

	s.logger.Info("Sending welcome email", "to", sub.Email)

	return s.provider.Send(ctx, sub.Email, subject, body)
}
