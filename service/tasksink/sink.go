// Package tasksink hands approved task suggestions to an external task
// tracker. The Sink interface is what the dispatcher calls once a task item
// commits to Approved; implementations map the suggestion onto whatever
// system they front.
package tasksink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reviewq/reviewq/model/suggestion"
)

var (
	// ErrNotApproved is returned when the suggestion has not passed review.
	ErrNotApproved = errors.New("cannot create task from unapproved suggestion")
	// ErrNoAssignee is returned when neither a final nor suggested assignee
	// is present.
	ErrNoAssignee = errors.New("task must have an assignee")
	// ErrNoTitle is returned on a blank task title.
	ErrNoTitle = errors.New("task title is required")
)

// Priority uses the 1/3/5/9 scale common to task planners: 1 urgent,
// 3 important, 5 medium, 9 low.
type Priority int

const (
	PriorityUrgent    Priority = 1
	PriorityImportant Priority = 3
	PriorityMedium    Priority = 5
	PriorityLow       Priority = 9
)

// PriorityFor maps a confidence score to a task priority: high-confidence
// suggestions land as important, medium as medium, low as low.
func PriorityFor(confidence int) Priority {
	switch suggestion.LevelOf(confidence) {
	case suggestion.ConfidenceHigh:
		return PriorityImportant
	case suggestion.ConfidenceMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Request is the sink-agnostic task creation payload.
type Request struct {
	Title      string     `json:"title"`
	AssigneeID string     `json:"assigneeId"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	MeetingID  string     `json:"meetingId,omitempty"`
	Priority   Priority   `json:"priority"`
}

// Created describes the task the sink produced.
type Created struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Assignee  string     `json:"assignee"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	WebURL    string     `json:"webUrl,omitempty"`
}

// Sink creates tasks in an external tracker.
type Sink interface {
	CreateTask(ctx context.Context, req Request) (*Created, error)
}

// FromSuggestion builds a Request from an approved task suggestion. The
// final assignee wins over the suggested one, the final due date over the
// suggested one, and the reviewer-edited description over the original.
func FromSuggestion(t *suggestion.Task, meetingID string) (Request, error) {
	if t == nil || t.Status != suggestion.StatusApproved {
		return Request{}, ErrNotApproved
	}
	assignee := t.FinalAssignee
	if assignee == "" {
		assignee = t.SuggestedAssignee
	}
	if strings.TrimSpace(assignee) == "" {
		return Request{}, ErrNoAssignee
	}
	dueDate := t.FinalDueDate
	if dueDate == nil {
		dueDate = t.SuggestedDueDate
	}
	return Request{
		Title:      t.FinalDescription(),
		AssigneeID: assignee,
		DueDate:    dueDate,
		Notes:      buildNotes(t, meetingID),
		MeetingID:  meetingID,
		Priority:   PriorityFor(t.ConfidenceScore),
	}, nil
}

func buildNotes(t *suggestion.Task, meetingID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", t.SourceReference.Kind)
	fmt.Fprintf(&b, "Meeting: %s\n", meetingID)
	fmt.Fprintf(&b, "Confidence: %d%%\n", t.ConfidenceScore)
	if t.ModifiedDescription != "" && t.ModifiedDescription != t.Description {
		fmt.Fprintf(&b, "Original suggestion: %s\n", t.Description)
	}
	return b.String()
}
