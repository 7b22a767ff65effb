package scrape

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hazyhaar/homed/internal/record"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pr(url string) record.PullRequest {
	return record.PullRequest{Title: "t " + url, URL: url}
}

// WHAT: merge order is created, review-requested, assigned, with URL
// duplicates keeping the first occurrence and its section.
// WHY: a PR the user authored and was asked to review must appear once,
// under the authored section.
func TestMergePullRequests(t *testing.T) {
	got := MergePullRequests(
		[]record.PullRequest{pr("a"), pr("b")},
		[]record.PullRequest{pr("b"), pr("c")},
		nil,
	)

	want := []struct {
		url     string
		section string
	}{
		{"a", record.SectionCreated},
		{"b", record.SectionCreated},
		{"c", record.SectionReviewRequested},
	}
	if len(got) != len(want) {
		t.Fatalf("merged %d PRs, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i].URL != w.url || got[i].Section != w.section {
			t.Errorf("merged[%d] = (%s, %s), want (%s, %s)",
				i, got[i].URL, got[i].Section, w.url, w.section)
		}
	}
}

func TestMergePullRequestsAssignedSection(t *testing.T) {
	got := MergePullRequests(nil, nil, []record.PullRequest{pr("x")})
	if len(got) != 1 || got[0].Section != record.SectionAssigned {
		t.Fatalf("merged = %+v, want single assigned PR", got)
	}
}

func TestMergePullRequestsEmpty(t *testing.T) {
	if got := MergePullRequests(nil, nil, nil); len(got) != 0 {
		t.Fatalf("merged = %+v, want empty", got)
	}
}

type staticCookies struct{ cookies []*http.Cookie }

func (s staticCookies) Cookies(ctx context.Context, rawURL string) ([]*http.Cookie, error) {
	return s.cookies, nil
}

// WHAT: one failing dashboard degrades to empty while the others still
// contribute, and session cookies ride along on each request.
// WHY: GitHub intermittently 429s individual dashboards; losing one list
// must not blank the whole panel.
func TestGitHubFetchDegradesPerSource(t *testing.T) {
	row := `<div id="issue_1_x" class="js-issue-row">` +
		`<a class="Link--muted" href="/acme/widgets">acme/widgets</a>` +
		`<a class="js-navigation-open" href="/acme/widgets/pull/7">Fix the gadget</a>` +
		`</div>`

	var sawCookie bool
	created := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("user_session"); err == nil && c.Value == "s3cret" {
			sawCookie = true
		}
		w.Write([]byte(row))
	}))
	defer created.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer empty.Close()

	f := NewGitHubFetcher(created.Client(),
		staticCookies{cookies: []*http.Cookie{{Name: "user_session", Value: "s3cret"}}},
		testLogger())
	f.urls = [3]string{created.URL, failing.URL, empty.URL}

	got, err := f.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("fetched %d PRs, want 1: %+v", len(got), got)
	}
	if got[0].Title != "Fix the gadget" || got[0].Section != record.SectionCreated {
		t.Fatalf("fetched PR = %+v", got[0])
	}
	if !sawCookie {
		t.Fatal("created dashboard request carried no session cookie")
	}
}
