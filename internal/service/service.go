// Package service enumerates the tracked attention sources and their
// per-service wiring: URL predicate, canonical URL, and scrape message name.
// Adding a service means extending this table plus an extractor program.
package service

import (
	"context"
	"fmt"
	"strings"
)

// Name identifies a tracked service.
type Name string

const (
	GitHub   Name = "github"
	Slack    Name = "slack"
	Calendar Name = "calendar"
)

// All lists the tracked services in their fixed order.
func All() []Name { return []Name{GitHub, Slack, Calendar} }

// Valid reports whether s names a tracked service.
func Valid(s Name) bool {
	switch s {
	case GitHub, Slack, Calendar:
		return true
	}
	return false
}

// Settings supplies the user configuration a service may need to build its
// target URL. Backed by the persistent store.
type Settings interface {
	SlackWorkspaceID(ctx context.Context) (string, error)
}

// ErrConfigurationMissing reports a required user setting that is unset.
// The message names the setting and the remedy; it is surfaced verbatim.
type ErrConfigurationMissing struct {
	Service Name
	Setting string
}

func (e *ErrConfigurationMissing) Error() string {
	return fmt.Sprintf("%s %s not set. Please configure it in Settings.", e.Service, e.Setting)
}

// Descriptor is one row of the service table.
type Descriptor struct {
	Name Name

	// Matches is the URL predicate used by the tab locator and the
	// navigation watcher.
	Matches func(url string) bool

	// CanonicalURL is the default page opened when no tab matches.
	CanonicalURL string

	// ScrapeName is the request name sent to the page-side extractor.
	ScrapeName string
}

// TargetURL builds the URL to open for a fresh tab. For Slack this requires
// the workspace ID from settings and fails fast when it is unset.
func (d Descriptor) TargetURL(ctx context.Context, settings Settings) (string, error) {
	if d.Name != Slack {
		return d.CanonicalURL, nil
	}
	id, err := settings.SlackWorkspaceID(ctx)
	if err != nil {
		return "", fmt.Errorf("service: read slack workspace id: %w", err)
	}
	if id == "" {
		return "", &ErrConfigurationMissing{Service: Slack, Setting: "workspace ID"}
	}
	return "https://app.slack.com/client/" + id + "/activity", nil
}

var table = map[Name]Descriptor{
	GitHub: {
		Name:         GitHub,
		Matches:      func(url string) bool { return strings.Contains(url, "github.com") },
		CanonicalURL: "https://github.com/pulls",
		ScrapeName:   "SCRAPE_GITHUB",
	},
	Slack: {
		Name: Slack,
		Matches: func(url string) bool {
			return strings.Contains(url, "app.slack.com") && strings.Contains(url, "/activity")
		},
		CanonicalURL: "https://app.slack.com/client",
		ScrapeName:   "SCRAPE_SLACK",
	},
	Calendar: {
		Name:         Calendar,
		Matches:      func(url string) bool { return strings.Contains(url, "calendar.google.com") },
		CanonicalURL: "https://calendar.google.com/calendar/u/0/r",
		ScrapeName:   "SCRAPE_CALENDAR",
	},
}

// Lookup returns the descriptor for a service.
func Lookup(s Name) (Descriptor, bool) {
	d, ok := table[s]
	return d, ok
}

// MatchAny returns the first service whose predicate matches the URL.
func MatchAny(url string) (Name, bool) {
	for _, s := range All() {
		if table[s].Matches(url) {
			return s, true
		}
	}
	return "", false
}
