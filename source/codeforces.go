package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"contest-notifier/pkg/contest"
)

const codeforcesBaseURL = "https://codeforces.com"

// Codeforces fetches upcoming contests from the Codeforces API.
type Codeforces struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewCodeforces creates a Codeforces fetcher. An empty baseURL uses the
// public API.
func NewCodeforces(client *http.Client, baseURL string, logger *slog.Logger) *Codeforces {
	if baseURL == "" {
		baseURL = codeforcesBaseURL
	}
	return &Codeforces{client: client, baseURL: baseURL, logger: logger}
}

func (c *Codeforces) Name() contest.Platform { return contest.PlatformCodeforces }

type cfResponse struct {
	Status  string      `json:"status"`
	Comment string      `json:"comment"`
	Result  []cfContest `json:"result"`
}

type cfContest struct {
	Phase            string `json:"phase"`
	Name             string `json:"name"`
	ID               int64  `json:"id"`
	DurationSeconds  int64  `json:"durationSeconds"`
	StartTimeSeconds int64  `json:"startTimeSeconds"`
}

// Fetch returns all contests in the BEFORE phase.
func (c *Codeforces) Fetch(ctx context.Context) ([]contest.Contest, error) {
	var resp cfResponse
	err := fetchJSON(ctx, c.client, c.logger, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+"/api/contest.list?gym=false", http.NoBody)
	}, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Status != "OK" {
		return nil, fmt.Errorf("codeforces API status %q: %s", resp.Status, resp.Comment)
	}

	var contests []contest.Contest
	for _, cf := range resp.Result {
		if cf.Phase != "BEFORE" || cf.StartTimeSeconds == 0 {
			continue
		}
		key := strconv.FormatInt(cf.ID, 10)
		contests = append(contests, contest.Contest{
			Platform: contest.PlatformCodeforces,
			Key:      key,
			Name:     cf.Name,
			URL:      c.baseURL + "/contests/" + key,
			StartsAt: time.Unix(cf.StartTimeSeconds, 0).UTC(),
			Duration: time.Duration(cf.DurationSeconds) * time.Second,
		})
	}
	return contests, nil
}
