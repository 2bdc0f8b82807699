package queue

import (
	"time"

	"github.com/reviewq/reviewq/model/suggestion"
)

// Kind discriminates the two suggestion variants an Item may wrap.
type Kind string

const (
	KindDecision Kind = "decision"
	KindTask     Kind = "task"
)

// Status is the queue-level review projection. It is coarser than the
// suggestion-level status: Pending covers both Suggested and Modified.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// DefaultEscalationThreshold is how long an item may sit unreviewed before
// NeedingEscalation reports it.
const DefaultEscalationThreshold = 72 * time.Hour

// Item is the review envelope around a suggestion. Exactly one of Decision
// or Task is non-nil, matching Kind. The queue store is the sole owner of all
// items; callers receive copies and write changes back through the store.
//
// Invariant: Status Pending corresponds to a suggestion status of Suggested
// or Modified; Status Approved/Rejected corresponds exactly to the suggestion
// status of the same name. Transitions must keep the two projections in sync.
type Item struct {
	ID          string               `json:"id"`
	Kind        Kind                 `json:"kind"`
	Decision    *suggestion.Decision `json:"decision,omitempty"`
	Task        *suggestion.Task     `json:"task,omitempty"`
	MeetingID   string               `json:"meetingId"`
	Status      Status               `json:"status"`
	AddedAt     time.Time            `json:"addedAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
	Escalated   bool                 `json:"escalated"`
	EscalatedAt *time.Time           `json:"escalatedAt,omitempty"`
}

// Clone returns a deep copy.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	ret := *i
	ret.Decision = i.Decision.Clone()
	ret.Task = i.Task.Clone()
	if i.EscalatedAt != nil {
		ts := *i.EscalatedAt
		ret.EscalatedAt = &ts
	}
	return &ret
}

// SuggestionStatus returns the wrapped suggestion's fine-grained status.
func (i *Item) SuggestionStatus() suggestion.Status {
	if i.Kind == KindDecision && i.Decision != nil {
		return i.Decision.Status
	}
	if i.Task != nil {
		return i.Task.Status
	}
	return ""
}

// SetSuggestionStatus applies the queue→suggestion status mapping:
// Approved→Approved, Rejected→Rejected, anything else→Suggested. It is used
// by store implementations; it performs no precondition check.
func (i *Item) SetSuggestionStatus(status Status) {
	mapped := suggestion.StatusSuggested
	switch status {
	case StatusApproved:
		mapped = suggestion.StatusApproved
	case StatusRejected:
		mapped = suggestion.StatusRejected
	}
	if i.Kind == KindDecision && i.Decision != nil {
		i.Decision.Status = mapped
	}
	if i.Kind == KindTask && i.Task != nil {
		i.Task.Status = mapped
	}
}

// Filter narrows List results. All set fields are AND-combined; zero-value
// fields impose no constraint. Escalated uses a pointer so that filtering on
// "not escalated" stays expressible.
type Filter struct {
	Status      Status
	Kind        Kind
	MeetingID   string
	Escalated   *bool
	AddedBefore *time.Time
	AddedAfter  *time.Time
}

// Matches reports whether an item satisfies every set filter field.
func (f *Filter) Matches(item *Item) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.Kind != "" && item.Kind != f.Kind {
		return false
	}
	if f.MeetingID != "" && item.MeetingID != f.MeetingID {
		return false
	}
	if f.Escalated != nil && item.Escalated != *f.Escalated {
		return false
	}
	if f.AddedBefore != nil && !item.AddedAt.Before(*f.AddedBefore) {
		return false
	}
	if f.AddedAfter != nil && !item.AddedAt.After(*f.AddedAfter) {
		return false
	}
	return true
}

// Bool is a convenience for building Filter.Escalated values.
func Bool(v bool) *bool { return &v }
