package suggestion

// Status represents the review state of a suggestion. A suggestion starts as
// Suggested and moves monotonically: Suggested may become Modified, Approved
// or Rejected; Modified may become Approved or Rejected. Approved and
// Rejected are terminal – no transition function accepts them as input state.
type Status string

const (
	// StatusSuggested is the initial state assigned at creation only.
	StatusSuggested Status = "Suggested"
	// StatusModified indicates a human edited the suggestion before deciding.
	StatusModified Status = "Modified"
	// StatusApproved is terminal.
	StatusApproved Status = "Approved"
	// StatusRejected is terminal.
	StatusRejected Status = "Rejected"
)

// IsPending reports whether the suggestion still awaits a decision.
func (s Status) IsPending() bool {
	return s == StatusSuggested || s == StatusModified
}

// IsProcessed reports whether a terminal decision has been recorded.
func (s Status) IsProcessed() bool {
	return s == StatusApproved || s == StatusRejected
}

// ConfidenceLevel classifies a 0-100 confidence score.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// LevelOf returns the confidence level for a score.
func LevelOf(score int) ConfidenceLevel {
	switch {
	case score >= 80:
		return ConfidenceHigh
	case score >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
