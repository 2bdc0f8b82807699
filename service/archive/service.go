// Package archive records approved decisions for audit and later lookup.
// Only decisions that passed human review enter the archive; the service
// refuses anything still pending or rejected.
package archive

import (
	"context"
	"errors"
	"sort"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/internal/idgen"
	"github.com/reviewq/reviewq/model/suggestion"
)

var (
	// ErrNotApproved is returned when archiving a decision that has not been
	// approved.
	ErrNotApproved = errors.New("cannot archive unapproved decision")
	// ErrNoApprover is returned when an approved decision carries no approver.
	ErrNoApprover = errors.New("decision must have an approver before archiving")
	// ErrNotFound is returned when the requested entry does not exist.
	ErrNotFound = errors.New("archive entry not found")
)

// Service stores and retrieves archived decision records.
type Service interface {
	// Archive records an approved decision and returns the created entry.
	Archive(ctx context.Context, d *suggestion.Decision, meetingReference string) (*Entry, error)

	// Get returns the entry or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)

	// Search returns matching entries sorted by approval date, most recent
	// first, plus the total match count before pagination.
	Search(ctx context.Context, query *Query) ([]*Entry, int, error)

	// ByMeeting returns all entries recorded for a meeting.
	ByMeeting(ctx context.Context, meetingReference string) ([]*Entry, error)

	// Supersede marks an entry as replaced by another. successorID may be
	// empty when the decision is retired without replacement.
	Supersede(ctx context.Context, id, successorID string) (*Entry, error)

	// Count returns the number of archived entries.
	Count(ctx context.Context) (int, error)
}

// NewEntry builds an archive entry from an approved decision. It validates
// the approval audit trail but does not persist anything.
func NewEntry(d *suggestion.Decision, meetingReference string) (*Entry, error) {
	if d == nil || d.Status != suggestion.StatusApproved {
		return nil, ErrNotApproved
	}
	if d.ApprovedBy == "" {
		return nil, ErrNoApprover
	}
	approvalDate := clock.Now()
	if d.ApprovalTimestamp != nil {
		approvalDate = *d.ApprovalTimestamp
	}
	now := clock.Now()
	return &Entry{
		ID:                   idgen.Prefixed("arc"),
		DecisionText:         d.FinalText(),
		OriginalAISuggestion: d.DecisionText,
		Approver:             d.ApprovedBy,
		ApprovalDate:         approvalDate,
		MeetingReference:     meetingReference,
		ConfidenceScore:      d.ConfidenceScore,
		SourceKind:           d.SourceReference.Kind,
		Status:               StatusActive,
		CreatedAt:            now,
		ModifiedAt:           now,
	}, nil
}

// SortByApprovalDate orders entries most recent first, falling back to id for
// a stable order on equal timestamps.
func SortByApprovalDate(entries []*Entry) {
	sort.Slice(entries, func(a, b int) bool {
		if entries[a].ApprovalDate.Equal(entries[b].ApprovalDate) {
			return entries[a].ID < entries[b].ID
		}
		return entries[a].ApprovalDate.After(entries[b].ApprovalDate)
	})
}
