package sms

import (
	"context"
	"log/slog"
)

// MockProvider is a mock SMS provider used when no Twilio credentials are
// configured. It logs intent and never fails.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock SMS provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the text instead of sending it.
func (m *MockProvider) Send(ctx context.Context, to, text string) error {
	m.logger.Info("MOCK SMS",
		"to", to,
		"length", len(text),
		"text", text)
	return nil
}
