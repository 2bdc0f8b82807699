package suggestion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reviewq/reviewq/internal/clock"
)

func TestNewDecision(t *testing.T) {
	src := SourceReference{Kind: SourceMeeting, SourceID: "M1"}

	type testCase struct {
		name       string
		confidence int
		expectErr  bool
	}

	tests := []testCase{
		{name: "valid mid-range", confidence: 70},
		{name: "lower bound", confidence: 0},
		{name: "upper bound", confidence: 100},
		{name: "negative", confidence: -1, expectErr: true},
		{name: "above range", confidence: 101, expectErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDecision("", "ship v2", "roadmap sync", "we agreed to ship", tc.confidence, src)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, d.ID)
			assert.EqualValues(t, StatusSuggested, d.Status)
			assert.Empty(t, d.ApprovedBy)
			assert.Nil(t, d.ApprovalTimestamp)
			assert.True(t, d.IsPending())
		})
	}
}

func TestDecisionTransitions(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return fixed }
	defer func() { clock.NowFunc = time.Now }()

	src := SourceReference{Kind: SourceMeeting, SourceID: "M1"}
	d, err := NewDecision("d1", "ship v2", "", "", 80, src)
	assert.NoError(t, err)

	t.Run("approve original", func(t *testing.T) {
		approved := d.Approve("alice@x")
		assert.EqualValues(t, StatusApproved, approved.Status)
		assert.EqualValues(t, "alice@x", approved.ApprovedBy)
		assert.EqualValues(t, fixed, *approved.ApprovalTimestamp)
		assert.EqualValues(t, "ship v2", approved.DecisionText)
		assert.EqualValues(t, "ship v2", approved.FinalText())
		// input remains untouched
		assert.EqualValues(t, StatusSuggested, d.Status)
	})

	t.Run("modify then approve", func(t *testing.T) {
		modified := d.Modify("ship v2 in Q3")
		assert.EqualValues(t, StatusModified, modified.Status)
		assert.True(t, modified.IsPending())

		approved := modified.Approve("bob@x")
		assert.EqualValues(t, StatusApproved, approved.Status)
		assert.EqualValues(t, "ship v2 in Q3", approved.FinalText())
		// original text survives for the audit trail
		assert.EqualValues(t, "ship v2", approved.DecisionText)
	})

	t.Run("reject records actor in ApprovedBy", func(t *testing.T) {
		rejected := d.Reject("carol@x", "budget not ready")
		assert.EqualValues(t, StatusRejected, rejected.Status)
		assert.EqualValues(t, "carol@x", rejected.ApprovedBy)
		assert.EqualValues(t, "budget not ready", rejected.RejectionReason)
		assert.True(t, rejected.IsProcessed())
	})
}

func TestLevelOf(t *testing.T) {
	type testCase struct {
		score    int
		expected ConfidenceLevel
	}
	tests := []testCase{
		{score: 95, expected: ConfidenceHigh},
		{score: 80, expected: ConfidenceHigh},
		{score: 79, expected: ConfidenceMedium},
		{score: 60, expected: ConfidenceMedium},
		{score: 59, expected: ConfidenceLow},
		{score: 0, expected: ConfidenceLow},
	}
	for _, tc := range tests {
		assert.EqualValues(t, tc.expected, LevelOf(tc.score), "score %d", tc.score)
	}
}
