// Package queryengine derives structured query context from raw query text.
package queryengine

import "time"

// QueryContext is the structured view of a raw query, produced once per
// query and consumed read-only downstream.
type QueryContext struct {
	// Intent is a coarse hint from the planner, refined by the classifier.
	Intent string
	// Keywords is the ordered content-bearing words of the query.
	Keywords []string
	// TimeRange is the detected time window, if any.
	TimeRange *TimeRange
	// Filters are equality filters against record fields.
	Filters map[string]string
	// TargetDomains names the domains the query appears to be about.
	TargetDomains []string
}

// TimeRange is a half-open time window [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
	Label string
}

// Contains checks whether t falls inside the range.
func (tr *TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// Duration returns the window length.
func (tr *TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}
