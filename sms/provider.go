// Package sms handles sending notification texts via pluggable providers.
package sms

import (
	"context"
	"fmt"
	"log/slog"

	"contest-notifier/pkg/contest"
)

// Provider defines the interface for SMS sending implementations.
type Provider interface {
	// Send sends a text message to the given phone number.
	Send(ctx context.Context, to, text string) error
}

// Sender sends notification texts using a pluggable provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
}

// New creates a new SMS sender with the given provider.
func New(provider Provider, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
	}
}

// SendReminder sends one contest reminder text: name, platform, start
// time, and URL, kept short for a single SMS segment where possible.
func (s *Sender) SendReminder(ctx context.Context, sub *contest.Subscriber, c *contest.Contest, timeLeft string) error {
	text := fmt.Sprintf("%s (%s) starts in %s at %s UTC. %s",
		c.Name,
		c.Platform.Label(),
		timeLeft,
		c.StartsAt.UTC().Format("Jan 2 15:04"),
		c.URL)

	s.logger.Info("Sending reminder SMS",
		"to", sub.Phone,
		"contest_id", c.ID())

	return s.provider.Send(ctx, sub.Phone, text)
}

// SendWelcome sends a welcome text when a user first subscribes with the
// SMS channel enabled.
func (s *Sender) SendWelcome(ctx context.Context, sub *contest.Subscriber) error {
	text := "Contest Notifier: you're subscribed. You'll get a text before each programming contest starts."

	s.logger.Info("Sending welcome SMS", "to", sub.Phone)

	return s.provider.Send(ctx, sub.Phone, text)
}
