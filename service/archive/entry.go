package archive

import (
	"strings"
	"time"

	"github.com/reviewq/reviewq/model/suggestion"
)

// EntryStatus tracks the lifecycle of an archived decision.
type EntryStatus string

const (
	// StatusActive marks a decision that is currently in force.
	StatusActive EntryStatus = "active"
	// StatusSuperseded marks a decision replaced by a later one.
	StatusSuperseded EntryStatus = "superseded"
	// StatusArchived marks a decision retired without replacement.
	StatusArchived EntryStatus = "archived"
)

// Entry is the immutable audit record of an approved decision. DecisionText
// holds the final (possibly reviewer-edited) text; OriginalAISuggestion keeps
// the producer's wording so edits remain traceable.
type Entry struct {
	ID                   string                `json:"id"`
	DecisionText         string                `json:"decisionText"`
	OriginalAISuggestion string                `json:"originalAiSuggestion"`
	Approver             string                `json:"approver"`
	ApprovalDate         time.Time             `json:"approvalDate"`
	MeetingReference     string                `json:"meetingReference"`
	ConfidenceScore      int                   `json:"confidenceScore"`
	SourceKind           suggestion.SourceKind `json:"sourceKind"`
	Status               EntryStatus           `json:"status"`
	SupersededBy         string                `json:"supersededBy,omitempty"`
	CreatedAt            time.Time             `json:"createdAt"`
	ModifiedAt           time.Time             `json:"modifiedAt"`
}

// Clone returns a copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	ret := *e
	return &ret
}

// Query narrows Search results; zero-valued fields are ignored and the
// populated ones combine with AND. Limit defaults to 50.
type Query struct {
	Keyword    string
	DateFrom   *time.Time
	DateTo     *time.Time
	MeetingID  string
	Approver   string
	SourceKind suggestion.SourceKind
	Status     EntryStatus
	Limit      int
	Offset     int
}

// DefaultSearchLimit caps Search results when Query.Limit is unset.
const DefaultSearchLimit = 50

// Matches reports whether the entry satisfies every populated criterion.
func (q *Query) Matches(e *Entry) bool {
	if q == nil {
		return true
	}
	if q.Keyword != "" {
		keyword := strings.ToLower(q.Keyword)
		if !strings.Contains(strings.ToLower(e.DecisionText), keyword) &&
			!strings.Contains(strings.ToLower(e.OriginalAISuggestion), keyword) {
			return false
		}
	}
	if q.DateFrom != nil && e.ApprovalDate.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && e.ApprovalDate.After(*q.DateTo) {
		return false
	}
	if q.MeetingID != "" && !strings.Contains(e.MeetingReference, q.MeetingID) {
		return false
	}
	if q.Approver != "" && e.Approver != q.Approver {
		return false
	}
	if q.SourceKind != "" && e.SourceKind != q.SourceKind {
		return false
	}
	if q.Status != "" && e.Status != q.Status {
		return false
	}
	return true
}

// Page applies the query's offset and limit to an already-filtered,
// already-sorted result set.
func (q *Query) Page(entries []*Entry) []*Entry {
	offset, limit := 0, DefaultSearchLimit
	if q != nil {
		if q.Offset > 0 {
			offset = q.Offset
		}
		if q.Limit > 0 {
			limit = q.Limit
		}
	}
	if offset >= len(entries) {
		return nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
