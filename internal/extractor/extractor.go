// Package extractor holds the per-service scrape programs evaluated in the
// page context and the decoders that turn their output into typed records.
//
// Programs are fragile by nature: they are coupled to an external site's
// markup and are expected to break. Everything behind this interface must
// tolerate absent or changed markup by returning an empty or partial list,
// never an uncaught throw.
package extractor

import (
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/homed/internal/record"
	"github.com/hazyhaar/homed/internal/service"
)

// Extractor is one service's page-side scraper.
type Extractor interface {
	// Service names the attention source this extractor serves.
	Service() service.Name

	// Program is the JavaScript evaluated once per tab. It registers the
	// service's scrape handler and the shared liveness dispatcher; it must
	// be idempotent and side-effect-free on the host document.
	Program() string

	// Decode turns the page response payload into typed records.
	Decode(raw json.RawMessage) ([]record.Record, error)
}

// For returns the extractor for a service.
func For(s service.Name) (Extractor, error) {
	switch s {
	case service.GitHub:
		return gitHubExtractor{}, nil
	case service.Slack:
		return slackExtractor{}, nil
	case service.Calendar:
		return calendarExtractor{}, nil
	}
	return nil, fmt.Errorf("extractor: unknown service %q", s)
}

type gitHubExtractor struct{}

func (gitHubExtractor) Service() service.Name { return service.GitHub }
func (gitHubExtractor) Program() string       { return githubJS }

func (gitHubExtractor) Decode(raw json.RawMessage) ([]record.Record, error) {
	var prs []record.PullRequest
	if err := json.Unmarshal(raw, &prs); err != nil {
		return nil, fmt.Errorf("extractor: decode github: %w", err)
	}
	return record.PullRequests(prs), nil
}

type slackExtractor struct{}

func (slackExtractor) Service() service.Name { return service.Slack }
func (slackExtractor) Program() string       { return slackJS }

func (slackExtractor) Decode(raw json.RawMessage) ([]record.Record, error) {
	var ms []record.Mention
	if err := json.Unmarshal(raw, &ms); err != nil {
		return nil, fmt.Errorf("extractor: decode slack: %w", err)
	}
	return record.Mentions(ms), nil
}

type calendarExtractor struct{}

func (calendarExtractor) Service() service.Name { return service.Calendar }
func (calendarExtractor) Program() string       { return calendarJS }

func (calendarExtractor) Decode(raw json.RawMessage) ([]record.Record, error) {
	var es []record.Event
	if err := json.Unmarshal(raw, &es); err != nil {
		return nil, fmt.Errorf("extractor: decode calendar: %w", err)
	}
	return record.Events(es), nil
}
