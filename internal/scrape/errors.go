package scrape

import "fmt"

// ErrNoTabsResponded is returned when every candidate tab failed injection
// or messaging. The message is the user-facing hint.
type ErrNoTabsResponded struct {
	Service string
}

func (e *ErrNoTabsResponded) Error() string {
	return fmt.Sprintf("Could not scrape %s. Try refreshing the %s tab.", e.Service, e.Service)
}

// ErrGitHubFetch wraps a failure of the direct fetch path with its remedy.
type ErrGitHubFetch struct {
	Cause error
}

func (e *ErrGitHubFetch) Error() string {
	return fmt.Sprintf("GitHub fetch failed: %v. Ensure you're logged into GitHub.", e.Cause)
}

func (e *ErrGitHubFetch) Unwrap() error { return e.Cause }
