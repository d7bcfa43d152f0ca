package source

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"contest-notifier/pkg/contest"
)

const codechefBaseURL = "https://www.codechef.com"

// CodeChef fetches upcoming contests from the CodeChef contest-list API.
type CodeChef struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewCodeChef creates a CodeChef fetcher. An empty baseURL uses the public
// API.
func NewCodeChef(client *http.Client, baseURL string, logger *slog.Logger) *CodeChef {
	if baseURL == "" {
		baseURL = codechefBaseURL
	}
	return &CodeChef{client: client, baseURL: baseURL, logger: logger}
}

func (c *CodeChef) Name() contest.Platform { return contest.PlatformCodeChef }

type ccResponse struct {
	FutureContests []ccContest `json:"future_contests"`
}

type ccContest struct {
	Code     string `json:"contest_code"`
	Name     string `json:"contest_name"`
	StartISO string `json:"contest_start_date_iso"`
	Duration string `json:"contest_duration"` // minutes, as a string
}

// Fetch returns the future contests list.
func (c *CodeChef) Fetch(ctx context.Context) ([]contest.Contest, error) {
	var resp ccResponse
	err := fetchJSON(ctx, c.client, c.logger, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/api/list/contests/all?sort_by=START&sorting_order=asc", http.NoBody)
	}, &resp)
	if err != nil {
		return nil, err
	}

	var contests []contest.Contest
	for _, cc := range resp.FutureContests {
		if cc.Code == "" {
			continue
		}

		startsAt, err := time.Parse(time.RFC3339, cc.StartISO)
		if err != nil {
			c.logger.Warn("Failed to parse contest start time",
				"code", cc.Code, "text", cc.StartISO, "error", err)
			continue
		}

		minutes, err := strconv.ParseInt(cc.Duration, 10, 64)
		if err != nil {
			minutes = 0
		}

		contests = append(contests, contest.Contest{
			Platform: contest.PlatformCodeChef,
			Key:      cc.Code,
			Name:     cc.Name,
			URL:      c.baseURL + "/" + cc.Code,
			StartsAt: startsAt.UTC(),
			Duration: time.Duration(minutes) * time.Minute,
		})
	}
	return contests, nil
}
