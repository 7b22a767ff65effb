// Package record defines the structured records produced by the per-service
// extractors. One variant per tracked service; the shapes mirror what the
// page-side scrape programs emit.
package record

// Record is implemented by every per-service record type. The orchestrator
// and cache handle records uniformly; callers switch on the concrete type.
type Record interface {
	recordKind() string
}

// PR states.
const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateMerged = "merged"
)

// PR review statuses. Empty means no review signal on the row.
const (
	ReviewApproved         = "approved"
	ReviewChangesRequested = "changes-requested"
	ReviewRequired         = "review"
)

// PR dashboard sections. Empty means the source page carried no section.
const (
	SectionCreated         = "created"
	SectionReviewRequested = "review-requested"
	SectionAssigned        = "assigned"
)

// PullRequest is one GitHub pull request row.
type PullRequest struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Repo         string `json:"repo"`
	State        string `json:"state"`
	Draft        bool   `json:"draft"`
	ReviewStatus string `json:"reviewStatus"`
	Time         string `json:"time"`
	Comments     string `json:"comments"`
	Number       string `json:"number"`
	Section      string `json:"section"`
}

func (PullRequest) recordKind() string { return "github" }

// Mention is one Slack activity item.
type Mention struct {
	Sender  string `json:"sender"`
	Text    string `json:"text"`
	Time    string `json:"time"`
	Avatar  string `json:"avatar"`
	URL     string `json:"url"`
	Channel string `json:"channel"`
	SortTs  int64  `json:"sortTs"`
}

func (Mention) recordKind() string { return "slack" }

// Event is one calendar event.
type Event struct {
	Title        string `json:"title"`
	TimeDisplay  string `json:"timeDisplay"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	Location     string `json:"location"`
	URL          string `json:"url"`
	CalendarName string `json:"calendarName"`
}

func (Event) recordKind() string { return "calendar" }

// PullRequests wraps a typed slice as []Record.
func PullRequests(prs []PullRequest) []Record {
	out := make([]Record, len(prs))
	for i, pr := range prs {
		out[i] = pr
	}
	return out
}

// Mentions wraps a typed slice as []Record.
func Mentions(ms []Mention) []Record {
	out := make([]Record, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// Events wraps a typed slice as []Record.
func Events(es []Event) []Record {
	out := make([]Record, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}
