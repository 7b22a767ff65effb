package scrape

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hazyhaar/homed/internal/extractor"
	"github.com/hazyhaar/homed/internal/record"
)

// GitHub is scraped without a tab: three authenticated dashboard fetches in
// parallel, merged in fixed section order regardless of completion order.
const (
	githubCreatedURL         = "https://github.com/pulls"
	githubReviewRequestedURL = "https://github.com/pulls/review-requested"
	githubAssignedURL        = "https://github.com/pulls/assigned"

	githubFetchTimeout = 15 * time.Second
)

// CookieSource supplies session cookies for a URL. The browser manager
// implements this from the live Chrome cookie jar, so the fetch path rides
// the user's existing GitHub login.
type CookieSource interface {
	Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error)
}

// GitHubFetcher performs the direct fetch path.
type GitHubFetcher struct {
	client  *http.Client
	cookies CookieSource
	logger  *slog.Logger
	urls    [3]string // created, review-requested, assigned
}

// NewGitHubFetcher creates a fetcher. A nil client uses a default with the
// per-request timeout; a nil cookie source sends unauthenticated requests.
func NewGitHubFetcher(client *http.Client, cookies CookieSource, logger *slog.Logger) *GitHubFetcher {
	if client == nil {
		client = &http.Client{Timeout: githubFetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHubFetcher{
		client:  client,
		cookies: cookies,
		logger:  logger,
		urls:    [3]string{githubCreatedURL, githubReviewRequestedURL, githubAssignedURL},
	}
}

// Fetch retrieves and merges the three PR dashboards. Each sub-fetch
// degrades to an empty list on failure; only a total inability to issue
// requests is an error.
func (f *GitHubFetcher) Fetch(ctx context.Context) ([]record.PullRequest, error) {
	var lists [3][]record.PullRequest
	var wg sync.WaitGroup
	for i, u := range f.urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			lists[i] = f.fetchList(ctx, u)
		}(i, u)
	}
	wg.Wait()

	return MergePullRequests(lists[0], lists[1], lists[2]), nil
}

// fetchList GETs one dashboard and parses its rows. Failures log and
// return nil so one bad source never poisons the aggregate.
func (f *GitHubFetcher) fetchList(ctx context.Context, url string) []record.PullRequest {
	ctx, cancel := context.WithTimeout(ctx, githubFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		f.logger.Warn("scrape: github request build failed", "url", url, "error", err)
		return nil
	}
	req.Header.Set("Accept", "text/html")

	if f.cookies != nil {
		cookies, err := f.cookies.Cookies(ctx, url)
		if err != nil {
			f.logger.Warn("scrape: github cookie lookup failed", "url", url, "error", err)
		}
		for _, c := range cookies {
			req.AddCookie(c)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("scrape: github fetch failed", "url", url, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Warn("scrape: github fetch status", "url", url, "status", resp.StatusCode)
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		f.logger.Warn("scrape: github read failed", "url", url, "error", err)
		return nil
	}

	return extractor.ParsePullRequestsHTML(string(body))
}

// MergePullRequests tags each list with its section, concatenates in fixed
// order (created, review-requested, assigned), and de-duplicates by URL
// keeping the first occurrence. Idempotent over already-merged input.
func MergePullRequests(created, reviewRequested, assigned []record.PullRequest) []record.PullRequest {
	merged := make([]record.PullRequest, 0, len(created)+len(reviewRequested)+len(assigned))
	for _, pr := range created {
		pr.Section = record.SectionCreated
		merged = append(merged, pr)
	}
	for _, pr := range reviewRequested {
		pr.Section = record.SectionReviewRequested
		merged = append(merged, pr)
	}
	for _, pr := range assigned {
		pr.Section = record.SectionAssigned
		merged = append(merged, pr)
	}

	seen := make(map[string]bool, len(merged))
	unique := merged[:0]
	for _, pr := range merged {
		if seen[pr.URL] {
			continue
		}
		seen[pr.URL] = true
		unique = append(unique, pr)
	}
	return unique
}
