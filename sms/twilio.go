package sms

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const twilioAPIBase = "https://api.twilio.com"

// TwilioProvider sends texts via the Twilio Messages API.
type TwilioProvider struct {
	client     *http.Client
	logger     *slog.Logger
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
}

// NewTwilioProvider creates a new Twilio SMS provider. An empty baseURL
// uses the public API.
func NewTwilioProvider(accountSID, authToken, fromNumber, baseURL string, logger *slog.Logger) *TwilioProvider {
	if baseURL == "" {
		baseURL = twilioAPIBase
	}
	return &TwilioProvider{
		accountSID: accountSID,
		authToken:  authToken,
		fromNumber: fromNumber,
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Send sends a text via Twilio.
func (t *TwilioProvider) Send(ctx context.Context, to, text string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.fromNumber)
	form.Set("Body", text)
	payload := form.Encode()

	err := retry.Do(
		func() error {
			startTime := time.Now()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost,
				endpoint, strings.NewReader(payload))
			if err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.SetBasicAuth(t.accountSID, t.authToken)

			resp, err := t.client.Do(req)
			duration := time.Since(startTime)

			if err != nil {
				t.logger.Warn("Twilio API request failed, will retry",
					"to", to,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					t.logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				t.logger.Warn("Twilio API returned non-2xx status, will retry",
					"status_code", resp.StatusCode,
					"to", to,
					"body", string(body))
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			t.logger.Info("Twilio API request completed",
				"endpoint", "Messages.json",
				"to", to,
				"duration_ms", duration.Milliseconds(),
				"status", "success")

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(2*time.Minute),
		retry.MaxJitter(10*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			t.logger.Info("Retrying SMS send after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("after retries: %w", err)
	}
	return nil
}
