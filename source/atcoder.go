package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"contest-notifier/pkg/contest"
)

const atcoderBaseURL = "https://atcoder.jp"

// AtCoder scrapes the upcoming-contests table from the AtCoder schedule
// page; there is no official JSON API.
type AtCoder struct {
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewAtCoder creates an AtCoder fetcher. An empty baseURL uses the public
// site.
func NewAtCoder(client *http.Client, baseURL string, logger *slog.Logger) *AtCoder {
	if baseURL == "" {
		baseURL = atcoderBaseURL
	}
	return &AtCoder{client: client, baseURL: baseURL, logger: logger}
}

func (a *AtCoder) Name() contest.Platform { return contest.PlatformAtCoder }

// Fetch parses the contests page for the upcoming table.
func (a *AtCoder) Fetch(ctx context.Context) ([]contest.Contest, error) {
	var contests []contest.Contest
	err := fetchBody(ctx, a.client, a.logger, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			a.baseURL+"/contests/?lang=en", http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Language", "en")
		return req, nil
	}, func(body io.Reader) error {
		var parseErr error
		contests, parseErr = a.parseSchedule(body)
		return parseErr
	})
	if err != nil {
		return nil, err
	}
	return contests, nil
}

func (a *AtCoder) parseSchedule(body io.Reader) ([]contest.Contest, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse schedule page: %w", err)
	}

	var contests []contest.Contest
	doc.Find("#contest-table-upcoming tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		startText := strings.TrimSpace(cells.Eq(0).Text())
		link := cells.Eq(1).Find("a").Last()
		name := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		durationText := strings.TrimSpace(cells.Eq(2).Text())

		slug := strings.TrimPrefix(href, "/contests/")
		if name == "" || slug == "" || slug == href {
			a.logger.Debug("Skipping unparseable schedule row", "name", name, "href", href)
			return
		}

		startsAt, err := time.Parse("2006-01-02 15:04:05-0700", startText)
		if err != nil {
			a.logger.Warn("Failed to parse contest start time", "slug", slug, "text", startText, "error", err)
			return
		}

		contests = append(contests, contest.Contest{
			Platform: contest.PlatformAtCoder,
			Key:      slug,
			Name:     name,
			URL:      a.baseURL + "/contests/" + slug,
			StartsAt: startsAt.UTC(),
			Duration: parseClockDuration(durationText),
		})
	})

	return contests, nil
}

// parseClockDuration converts "HH:MM" into a duration. Returns zero for
// anything else (AtCoder marks open-ended contests with a dash).
func parseClockDuration(s string) time.Duration {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}
