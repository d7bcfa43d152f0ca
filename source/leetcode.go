package source

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"contest-notifier/pkg/contest"
)

const leetcodeBaseURL = "https://leetcode.com"

// leetcodeQuery asks the GraphQL endpoint for upcoming contests.
const leetcodeQuery = `{"query":"{ upcomingContests { title titleSlug startTime duration } }"}`

// LeetCode fetches upcoming contests from the LeetCode GraphQL API.
type LeetCode struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewLeetCode creates a LeetCode fetcher. An empty baseURL uses the public
// API.
func NewLeetCode(client *http.Client, baseURL string, logger *slog.Logger) *LeetCode {
	if baseURL == "" {
		baseURL = leetcodeBaseURL
	}
	return &LeetCode{client: client, baseURL: baseURL, logger: logger}
}

func (l *LeetCode) Name() contest.Platform { return contest.PlatformLeetCode }

type lcResponse struct {
	Data struct {
		UpcomingContests []lcContest `json:"upcomingContests"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type lcContest struct {
	Title     string `json:"title"`
	TitleSlug string `json:"titleSlug"`
	StartTime int64  `json:"startTime"` // unix seconds
	Duration  int64  `json:"duration"`  // seconds
}

// Fetch returns upcoming contests from the GraphQL endpoint.
func (l *LeetCode) Fetch(ctx context.Context) ([]contest.Contest, error) {
	var resp lcResponse
	err := fetchJSON(ctx, l.client, l.logger, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			l.baseURL+"/graphql", bytes.NewReader([]byte(leetcodeQuery)))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		data, _ := json.Marshal(resp.Errors)
		l.logger.Warn("LeetCode GraphQL returned errors", "errors", string(data))
	}

	var contests []contest.Contest
	for _, lc := range resp.Data.UpcomingContests {
		if lc.TitleSlug == "" || lc.StartTime == 0 {
			continue
		}
		contests = append(contests, contest.Contest{
			Platform: contest.PlatformLeetCode,
			Key:      lc.TitleSlug,
			Name:     lc.Title,
			URL:      l.baseURL + "/contest/" + lc.TitleSlug,
			StartsAt: time.Unix(lc.StartTime, 0).UTC(),
			Duration: time.Duration(lc.Duration) * time.Second,
		})
	}
	return contests, nil
}
