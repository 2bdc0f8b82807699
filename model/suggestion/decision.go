package suggestion

import (
	"fmt"
	"time"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/internal/idgen"
)

// Decision represents an AI-suggested decision awaiting human review.
//
// Audit fields are append-only: the original DecisionText is never
// overwritten – an edit before approval populates ModifiedText instead, and
// FinalText resolves which of the two downstream consumers should use.
//
// ApprovedBy doubles as the acting reviewer on rejection as well; the field
// name is kept for compatibility with existing audit consumers even though it
// then records who rejected the item.
type Decision struct {
	ID                string          `json:"id"`
	DecisionText      string          `json:"decisionText"`
	Context           string          `json:"context,omitempty"`
	TranscriptExcerpt string          `json:"transcriptExcerpt,omitempty"`
	ConfidenceScore   int             `json:"confidenceScore"`
	Status            Status          `json:"status"`
	SourceReference   SourceReference `json:"sourceReference"`
	CreatedAt         time.Time       `json:"createdAt"`
	ModifiedText      string          `json:"modifiedText,omitempty"`
	ApprovedBy        string          `json:"approvedBy,omitempty"`
	ApprovalTimestamp *time.Time      `json:"approvalTimestamp,omitempty"`
	RejectionReason   string          `json:"rejectionReason,omitempty"`
}

// NewDecision creates a decision suggestion in the Suggested state. When id
// is empty a unique one is generated.
func NewDecision(id, decisionText, context, excerpt string, confidence int, source SourceReference) (*Decision, error) {
	if confidence < 0 || confidence > 100 {
		return nil, fmt.Errorf("confidence score %d out of range [0,100]", confidence)
	}
	if id == "" {
		id = idgen.Prefixed("dec")
	}
	return &Decision{
		ID:                id,
		DecisionText:      decisionText,
		Context:           context,
		TranscriptExcerpt: excerpt,
		ConfidenceScore:   confidence,
		Status:            StatusSuggested,
		SourceReference:   source,
		CreatedAt:         clock.Now(),
	}, nil
}

// Clone returns a deep copy.
func (d *Decision) Clone() *Decision {
	if d == nil {
		return nil
	}
	ret := *d
	if d.ApprovalTimestamp != nil {
		ts := *d.ApprovalTimestamp
		ret.ApprovalTimestamp = &ts
	}
	return &ret
}

// Approve returns a copy in the Approved state, recording who approved and
// when. It does not check the current state – the workflow service is the
// sole enforcement point for transition preconditions.
func (d *Decision) Approve(approvedBy string) *Decision {
	ret := d.Clone()
	now := clock.Now()
	ret.Status = StatusApproved
	ret.ApprovedBy = approvedBy
	ret.ApprovalTimestamp = &now
	return ret
}

// Reject returns a copy in the Rejected state. The acting reviewer is stored
// in ApprovedBy and the action time in ApprovalTimestamp (see struct doc).
func (d *Decision) Reject(rejectedBy, reason string) *Decision {
	ret := d.Clone()
	now := clock.Now()
	ret.Status = StatusRejected
	ret.ApprovedBy = rejectedBy
	ret.ApprovalTimestamp = &now
	ret.RejectionReason = reason
	return ret
}

// Modify returns a copy in the Modified state with the edited text recorded
// alongside the untouched original.
func (d *Decision) Modify(modifiedText string) *Decision {
	ret := d.Clone()
	ret.Status = StatusModified
	ret.ModifiedText = modifiedText
	return ret
}

// ApproveModified records an edit and approves it in one step, so both the
// original and the final wording survive in the audit trail.
func (d *Decision) ApproveModified(approvedBy, modifiedText string) *Decision {
	return d.Modify(modifiedText).Approve(approvedBy)
}

// FinalText resolves to the modified text when present, else the original.
// This is the value handed to downstream sinks.
func (d *Decision) FinalText() string {
	if d.ModifiedText != "" {
		return d.ModifiedText
	}
	return d.DecisionText
}

// IsPending reports whether the decision still awaits review.
func (d *Decision) IsPending() bool { return d.Status.IsPending() }

// IsProcessed reports whether a terminal decision was recorded.
func (d *Decision) IsProcessed() bool { return d.Status.IsProcessed() }
