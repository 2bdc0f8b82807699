package suggestion

import (
	"fmt"
	"time"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/internal/idgen"
)

// Task represents an AI-suggested action item awaiting human review.
//
// Suggested* fields hold the producer's proposal and are never overwritten;
// Final* fields hold the reviewer's choice. FinalDescription resolves the
// description downstream sinks should use. As with Decision, ApprovedBy also
// records the rejecting reviewer on rejection.
type Task struct {
	ID                  string          `json:"id"`
	Description         string          `json:"description"`
	SuggestedAssignee   string          `json:"suggestedAssignee,omitempty"`
	SuggestedDueDate    *time.Time      `json:"suggestedDueDate,omitempty"`
	ConfidenceScore     int             `json:"confidenceScore"`
	Status              Status          `json:"status"`
	SourceReference     SourceReference `json:"sourceReference"`
	CreatedAt           time.Time       `json:"createdAt"`
	ApprovedBy          string          `json:"approvedBy,omitempty"`
	ApprovalTimestamp   *time.Time      `json:"approvalTimestamp,omitempty"`
	RejectionReason     string          `json:"rejectionReason,omitempty"`
	ModifiedDescription string          `json:"modifiedDescription,omitempty"`
	FinalAssignee       string          `json:"finalAssignee,omitempty"`
	FinalDueDate        *time.Time      `json:"finalDueDate,omitempty"`
}

// NewTask creates a task suggestion in the Suggested state. When id is empty
// a unique one is generated.
func NewTask(id, description, suggestedAssignee string, suggestedDueDate *time.Time, confidence int, source SourceReference) (*Task, error) {
	if confidence < 0 || confidence > 100 {
		return nil, fmt.Errorf("confidence score %d out of range [0,100]", confidence)
	}
	if id == "" {
		id = idgen.Prefixed("task")
	}
	return &Task{
		ID:                id,
		Description:       description,
		SuggestedAssignee: suggestedAssignee,
		SuggestedDueDate:  cloneTime(suggestedDueDate),
		ConfidenceScore:   confidence,
		Status:            StatusSuggested,
		SourceReference:   source,
		CreatedAt:         clock.Now(),
	}, nil
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	ret := *t
	ret.SuggestedDueDate = cloneTime(t.SuggestedDueDate)
	ret.ApprovalTimestamp = cloneTime(t.ApprovalTimestamp)
	ret.FinalDueDate = cloneTime(t.FinalDueDate)
	return &ret
}

// Approve returns a copy in the Approved state. finalDueDate defaults to the
// suggested due date when nil. No state precondition is checked here – that
// is the workflow service's job.
func (t *Task) Approve(approvedBy, finalAssignee string, finalDueDate *time.Time) *Task {
	ret := t.Clone()
	now := clock.Now()
	ret.Status = StatusApproved
	ret.ApprovedBy = approvedBy
	ret.ApprovalTimestamp = &now
	ret.FinalAssignee = finalAssignee
	if finalDueDate != nil {
		ret.FinalDueDate = cloneTime(finalDueDate)
	} else {
		ret.FinalDueDate = cloneTime(t.SuggestedDueDate)
	}
	return ret
}

// Reject returns a copy in the Rejected state, recording the acting reviewer
// in ApprovedBy.
func (t *Task) Reject(rejectedBy, reason string) *Task {
	ret := t.Clone()
	now := clock.Now()
	ret.Status = StatusRejected
	ret.ApprovedBy = rejectedBy
	ret.ApprovalTimestamp = &now
	ret.RejectionReason = reason
	return ret
}

// Modify returns a copy in the Modified state. Assignee and due date default
// to the previously suggested values when not explicitly given.
func (t *Task) Modify(modifiedDescription, modifiedAssignee string, modifiedDueDate *time.Time) *Task {
	ret := t.Clone()
	ret.Status = StatusModified
	ret.ModifiedDescription = modifiedDescription
	if modifiedAssignee != "" {
		ret.FinalAssignee = modifiedAssignee
	} else {
		ret.FinalAssignee = t.SuggestedAssignee
	}
	if modifiedDueDate != nil {
		ret.FinalDueDate = cloneTime(modifiedDueDate)
	} else {
		ret.FinalDueDate = cloneTime(t.SuggestedDueDate)
	}
	return ret
}

// FinalDescription resolves to the modified description when present, else
// the original.
func (t *Task) FinalDescription() string {
	if t.ModifiedDescription != "" {
		return t.ModifiedDescription
	}
	return t.Description
}

// IsPending reports whether the task still awaits review.
func (t *Task) IsPending() bool { return t.Status.IsPending() }

// IsProcessed reports whether a terminal decision was recorded.
func (t *Task) IsProcessed() bool { return t.Status.IsProcessed() }

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ts := *t
	return &ts
}
