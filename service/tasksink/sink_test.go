package tasksink_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/service/tasksink"
	"github.com/reviewq/reviewq/service/tasksink/memory"
)

func newTask(t *testing.T, description string, confidence int, due *time.Time) *suggestion.Task {
	t.Helper()
	task, err := suggestion.NewTask("", description, "", due, confidence, suggestion.SourceReference{
		Kind:     suggestion.SourceMeeting,
		SourceID: "M1",
	})
	assert.NoError(t, err)
	return task
}

func TestPriorityFor(t *testing.T) {
	type testCase struct {
		name       string
		confidence int
		expected   tasksink.Priority
	}
	tests := []testCase{
		{name: "high confidence is important", confidence: 90, expected: tasksink.PriorityImportant},
		{name: "boundary high", confidence: 80, expected: tasksink.PriorityImportant},
		{name: "medium confidence", confidence: 70, expected: tasksink.PriorityMedium},
		{name: "boundary medium", confidence: 60, expected: tasksink.PriorityMedium},
		{name: "low confidence", confidence: 40, expected: tasksink.PriorityLow},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.EqualValues(t, tc.expected, tasksink.PriorityFor(tc.confidence))
		})
	}
}

func TestFromSuggestion(t *testing.T) {
	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("unapproved rejected", func(t *testing.T) {
		_, err := tasksink.FromSuggestion(newTask(t, "Prepare report", 70, nil), "M1")
		assert.ErrorIs(t, err, tasksink.ErrNotApproved)
	})

	t.Run("assignee required", func(t *testing.T) {
		approved := newTask(t, "Prepare report", 70, nil).Approve("alice@x", "", nil)
		_, err := tasksink.FromSuggestion(approved, "M1")
		assert.ErrorIs(t, err, tasksink.ErrNoAssignee)
	})

	t.Run("final fields win", func(t *testing.T) {
		task := newTask(t, "Prepare report", 85, &due)
		approved := task.Modify("Prepare the quarterly report", "", nil).Approve("alice@x", "bob@x", nil)

		req, err := tasksink.FromSuggestion(approved, "M1")
		assert.NoError(t, err)
		assert.EqualValues(t, "Prepare the quarterly report", req.Title)
		assert.EqualValues(t, "bob@x", req.AssigneeID)
		assert.EqualValues(t, due, *req.DueDate)
		assert.EqualValues(t, tasksink.PriorityImportant, req.Priority)
		assert.Contains(t, req.Notes, "Original suggestion: Prepare report")
		assert.Contains(t, req.Notes, "Meeting: M1")
	})
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	sink := memory.New()

	_, err := sink.CreateTask(ctx, tasksink.Request{Title: "", AssigneeID: "bob@x"})
	assert.ErrorIs(t, err, tasksink.ErrNoTitle)

	_, err = sink.CreateTask(ctx, tasksink.Request{Title: "Prepare report", AssigneeID: " "})
	assert.ErrorIs(t, err, tasksink.ErrNoAssignee)

	created, err := sink.CreateTask(ctx, tasksink.Request{Title: "Prepare report", AssigneeID: "bob@x", Priority: tasksink.PriorityMedium})
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	recorded := sink.Created()
	assert.Len(t, recorded, 1)
	assert.EqualValues(t, "Prepare report", recorded[0].Title)
	assert.EqualValues(t, "bob@x", recorded[0].Assignee)
}
