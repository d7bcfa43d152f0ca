// Package source fetches upcoming contests from third-party platforms and
// normalizes them into the common contest shape.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"contest-notifier/pkg/contest"
)

// Source is the interface every platform fetcher implements. Fetch is a
// stateless read-only call returning normalized upcoming contests.
type Source interface {
	Name() contest.Platform
	Fetch(ctx context.Context) ([]contest.Contest, error)
}

// Fetcher aggregates all configured platform fetchers.
type Fetcher struct {
	logger  *slog.Logger
	sources []Source
}

// NewFetcher creates a fetcher over the given sources.
func NewFetcher(sources []Source, logger *slog.Logger) *Fetcher {
	return &Fetcher{sources: sources, logger: logger}
}

// FetchAll attempts every platform independently and returns the
// concatenation of whatever succeeded, sorted ascending by start instant.
// Per-platform failures are logged and absorbed; FetchAll never fails.
func (f *Fetcher) FetchAll(ctx context.Context) []contest.Contest {
	var (
		mu  sync.Mutex
		all []contest.Contest
		wg  sync.WaitGroup
	)

	start := time.Now()
	for _, src := range f.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			contests, err := src.Fetch(ctx)
			if err != nil {
				f.logger.Warn("Platform fetch failed, excluding from this refresh",
					"platform", src.Name(), "error", err)
				return
			}

			f.logger.Info("Platform fetched", "platform", src.Name(), "count", len(contests))
			mu.Lock()
			all = append(all, contests...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	contest.SortByStart(all)
	f.logger.Info("Contest refresh completed",
		"platforms", len(f.sources),
		"contests", len(all),
		"duration_ms", time.Since(start).Milliseconds())
	return all
}

// fetchBody performs one HTTP request with retry and hands the response
// body to parse. Non-2xx responses are retried.
func fetchBody(ctx context.Context, client *http.Client, logger *slog.Logger, req func() (*http.Request, error), parse func(io.Reader) error) error {
	err := retry.Do(
		func() error {
			r, err := req()
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}

			startTime := time.Now()
			resp, err := client.Do(r)
			duration := time.Since(startTime)

			if err != nil {
				logger.Warn("HTTP request failed, will retry",
					"url", r.URL.String(),
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			defer func() {
				if closeErr := resp.Body.Close(); closeErr != nil {
					logger.Warn("Failed to close response body", "error", closeErr)
				}
			}()

			if resp.StatusCode != http.StatusOK {
				logger.Warn("HTTP request returned non-OK status, will retry",
					"url", r.URL.String(), "status_code", resp.StatusCode)
				return fmt.Errorf("HTTP %d", resp.StatusCode)
			}

			if err := parse(resp.Body); err != nil {
				logger.Warn("Failed to parse response, will retry",
					"url", r.URL.String(), "error", err)
				return err
			}
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Info("Retrying fetch after error", "attempt", n, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("after retries: %w", err)
	}
	return nil
}

// fetchJSON is fetchBody with a JSON-decoded body.
func fetchJSON(ctx context.Context, client *http.Client, logger *slog.Logger, req func() (*http.Request, error), v any) error {
	return fetchBody(ctx, client, logger, req, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(v)
	})
}
