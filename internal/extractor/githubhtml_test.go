package extractor

import (
	"encoding/json"
	"testing"

	"github.com/hazyhaar/homed/internal/record"
)

const sampleRow = `
<div id="issue_42_octo/widgets" class="js-issue-row Box-row">
  <a class="Link--muted" href="/octo/widgets">octo/widgets</a>
  <a class="js-navigation-open markdown-title" href="/octo/widgets/pull/42">Add <em>frobnicator</em> support</a>
  <span>#42</span>
  <relative-time datetime="2026-08-30T10:00:00Z">yesterday</relative-time>
  <a aria-label="3 comments">3</a>
</div>`

const sampleMergedRow = `
<div id="issue_7_octo/gears" class="js-issue-row Box-row">
  <a class="Link--muted" href="/octo/gears">octo/gears</a>
  <span class="color-fg-merged"></span>
  <a class="js-navigation-open" href="/octo/gears/pull/7">Retune gearbox</a>
</div>`

func TestParsePullRequestsHTML(t *testing.T) {
	prs := ParsePullRequestsHTML(sampleRow + sampleMergedRow)
	if len(prs) != 2 {
		t.Fatalf("parsed %d PRs, want 2", len(prs))
	}

	first := prs[0]
	if first.Title != "Add frobnicator support" {
		t.Errorf("title: got %q", first.Title)
	}
	if first.URL != "https://github.com/octo/widgets/pull/42" {
		t.Errorf("url: got %q", first.URL)
	}
	if first.Repo != "octo/widgets" {
		t.Errorf("repo: got %q", first.Repo)
	}
	if first.Number != "42" {
		t.Errorf("number: got %q", first.Number)
	}
	if first.State != record.StateOpen {
		t.Errorf("state: got %q, want open", first.State)
	}
	if first.Time != "yesterday" {
		t.Errorf("time: got %q", first.Time)
	}
	if first.Comments != "3" {
		t.Errorf("comments: got %q", first.Comments)
	}

	if prs[1].State != record.StateMerged {
		t.Errorf("second state: got %q, want merged", prs[1].State)
	}
}

func TestParsePullRequestsHTML_Empty(t *testing.T) {
	if got := ParsePullRequestsHTML("<html><body>nothing here</body></html>"); len(got) != 0 {
		t.Errorf("parsed %d PRs from empty page, want 0", len(got))
	}
}

func TestParsePullRequestsHTML_RowWithoutTitleDropped(t *testing.T) {
	html := `<div id="issue_9_x" class="js-issue-row"><span>no link at all</span></div>`
	if got := ParsePullRequestsHTML(html); len(got) != 0 {
		t.Errorf("parsed %d PRs, want 0 (title-less rows are dropped)", len(got))
	}
}

func TestDecodeRoundTrips(t *testing.T) {
	gh, err := For("github")
	if err != nil {
		t.Fatalf("extractor for github: %v", err)
	}
	raw := json.RawMessage(`[{"title":"t","url":"u","repo":"r","state":"open","draft":false,"reviewStatus":"","time":"","comments":"","number":"1","section":"created"}]`)
	recs, err := gh.Decode(raw)
	if err != nil {
		t.Fatalf("decode github: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("decoded %d records, want 1", len(recs))
	}
	pr, ok := recs[0].(record.PullRequest)
	if !ok {
		t.Fatalf("record type: got %T", recs[0])
	}
	if pr.Section != record.SectionCreated {
		t.Errorf("section: got %q", pr.Section)
	}

	sl, _ := For("slack")
	if _, err := sl.Decode(json.RawMessage(`[{"sender":"a","text":"hi","sortTs":120}]`)); err != nil {
		t.Errorf("decode slack: %v", err)
	}
	cal, _ := For("calendar")
	if _, err := cal.Decode(json.RawMessage(`[{"title":"standup","timeDisplay":"10:00 AM"}]`)); err != nil {
		t.Errorf("decode calendar: %v", err)
	}

	if _, err := For("mastodon"); err == nil {
		t.Error("expected error for unknown service")
	}
}
