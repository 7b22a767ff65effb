package extractor

import (
	"regexp"
	"strings"

	"github.com/hazyhaar/homed/internal/record"
)

// Fetch-path parsing of the github.com/pulls HTML. Regex text extraction,
// coupled to GitHub's server-rendered markup; kept behind this package
// boundary so breakage stays local.
var (
	issueRowRe = regexp.MustCompile(`<div[^>]*id="issue_\d+_[^"]*"[^>]*class="[^"]*js-issue-row[^"]*"[^>]*>`)

	repoMutedRe     = regexp.MustCompile(`class="[^"]*Link--muted[^"]*"[^>]*>([^<]+)</a>`)
	repoHovercardRe = regexp.MustCompile(`data-hovercard-type="repository"[^>]*>([^<]+)</a>`)

	titleNavRe       = regexp.MustCompile(`class="[^"]*js-navigation-open[^"]*"[^>]*href="([^"]*)"[^>]*>([\s\S]*?)</a>`)
	titleHovercardRe = regexp.MustCompile(`data-hovercard-type="pull_request"[^>]*href="([^"]*)"[^>]*>([\s\S]*?)</a>`)

	numberHashRe = regexp.MustCompile(`#(\d+)`)
	numberURLRe  = regexp.MustCompile(`/pull/(\d+)`)

	timeRelativeRe = regexp.MustCompile(`<relative-time[^>]*>([\s\S]*?)</relative-time>`)
	timeDatetimeRe = regexp.MustCompile(`datetime="[^"]*"[^>]*>([^<]+)<`)

	commentAriaRe = regexp.MustCompile(`aria-label="(\d+) comments?"`)
	commentIconRe = regexp.MustCompile(`>(\d+)</a>\s*</span>\s*<svg[^>]*class="[^"]*octicon-comment`)

	tagRe = regexp.MustCompile(`<[^>]*>`)
)

// ParsePullRequestsHTML extracts PR rows from a pulls dashboard page.
// Rows missing a title or URL are dropped; everything else degrades to
// empty fields rather than failing the parse.
func ParsePullRequestsHTML(html string) []record.PullRequest {
	starts := issueRowRe.FindAllStringIndex(html, -1)
	prs := make([]record.PullRequest, 0, len(starts))

	for i, loc := range starts {
		end := len(html)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		row := html[loc[1]:end]

		pr := parsePullRequestRow(row)
		if pr.Title != "" && pr.URL != "" {
			prs = append(prs, pr)
		}
	}
	return prs
}

func parsePullRequestRow(row string) record.PullRequest {
	var pr record.PullRequest

	if m := repoMutedRe.FindStringSubmatch(row); m != nil {
		pr.Repo = strings.TrimSpace(m[1])
	} else if m := repoHovercardRe.FindStringSubmatch(row); m != nil {
		pr.Repo = strings.TrimSpace(m[1])
	}

	if m := titleNavRe.FindStringSubmatch(row); m != nil {
		pr.URL = "https://github.com" + m[1]
		pr.Title = strings.TrimSpace(tagRe.ReplaceAllString(m[2], ""))
	} else if m := titleHovercardRe.FindStringSubmatch(row); m != nil {
		pr.URL = "https://github.com" + m[1]
		pr.Title = strings.TrimSpace(tagRe.ReplaceAllString(m[2], ""))
	}

	if m := numberHashRe.FindStringSubmatch(row); m != nil {
		pr.Number = m[1]
	} else if m := numberURLRe.FindStringSubmatch(pr.URL); m != nil {
		pr.Number = m[1]
	}

	pr.State = record.StateOpen
	switch {
	case strings.Contains(row, "color-fg-merged") || strings.Contains(row, "merged"):
		pr.State = record.StateMerged
	case strings.Contains(row, "color-fg-closed") || strings.Contains(row, "closed"):
		pr.State = record.StateClosed
	}
	if strings.Contains(row, "Draft") || strings.Contains(row, "draft") {
		pr.Draft = true
	}

	switch {
	case strings.Contains(row, "octicon-check") || strings.Contains(row, "Approved"):
		pr.ReviewStatus = record.ReviewApproved
	case strings.Contains(row, "octicon-dot-fill") || strings.Contains(row, "Changes requested"):
		pr.ReviewStatus = record.ReviewChangesRequested
	case strings.Contains(row, "Review required"):
		pr.ReviewStatus = record.ReviewRequired
	}

	if m := timeRelativeRe.FindStringSubmatch(row); m != nil {
		pr.Time = strings.TrimSpace(m[1])
	} else if m := timeDatetimeRe.FindStringSubmatch(row); m != nil {
		pr.Time = strings.TrimSpace(m[1])
	}

	if m := commentAriaRe.FindStringSubmatch(row); m != nil {
		pr.Comments = m[1]
	} else if m := commentIconRe.FindStringSubmatch(row); m != nil {
		pr.Comments = m[1]
	}

	return pr
}
