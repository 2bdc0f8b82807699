package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/service/messaging/memory"
	"github.com/reviewq/reviewq/service/queue"
	qmemory "github.com/reviewq/reviewq/service/queue/memory"
	"github.com/reviewq/reviewq/service/workflow"
)

func meetingSource(meetingID string) suggestion.SourceReference {
	return suggestion.SourceReference{Kind: suggestion.SourceMeeting, SourceID: meetingID}
}

func submitDecision(t *testing.T, svc *workflow.Service, id, text, meetingID string) *queue.Item {
	t.Helper()
	d, err := suggestion.NewDecision(id, text, "", "", 80, meetingSource(meetingID))
	assert.NoError(t, err)
	item, err := svc.SubmitDecision(context.Background(), d, meetingID)
	assert.NoError(t, err)
	return item
}

func submitTask(t *testing.T, svc *workflow.Service, id, description, meetingID string, due *time.Time) *queue.Item {
	t.Helper()
	task, err := suggestion.NewTask(id, description, "", due, 70, meetingSource(meetingID))
	assert.NoError(t, err)
	item, err := svc.SubmitTask(context.Background(), task, meetingID)
	assert.NoError(t, err)
	return item
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	svc := workflow.New(qmemory.New())

	item := submitDecision(t, svc, "d1", "ship v2", "M1")
	assert.EqualValues(t, queue.StatusPending, item.Status)
	assert.False(t, item.Escalated)

	d2, err := suggestion.NewDecision("d2", "hire contractor", "", "", 60, meetingSource("M1"))
	assert.NoError(t, err)
	t1, err := suggestion.NewTask("t1", "Prepare report", "", nil, 70, meetingSource("M1"))
	assert.NoError(t, err)

	items, err := svc.Submit(ctx, []*suggestion.Decision{d2}, []*suggestion.Task{t1}, "M1")
	assert.NoError(t, err)
	assert.Len(t, items, 2)
	// decisions first, then tasks
	assert.EqualValues(t, "d2", items[0].ID)
	assert.EqualValues(t, "t1", items[1].ID)
	for _, item := range items {
		assert.EqualValues(t, queue.StatusPending, item.Status)
	}
}

func TestApproveDecision(t *testing.T) {
	ctx := context.Background()

	type testCase struct {
		name          string
		modifiedText  string
		expectedFinal string
		expectedState suggestion.Status
	}

	tests := []testCase{
		{
			name:          "without modification",
			modifiedText:  "",
			expectedFinal: "ship v2",
		},
		{
			name:          "with modified text",
			modifiedText:  "ship v2 in Q3",
			expectedFinal: "ship v2 in Q3",
		},
		{
			name:          "modification equal to original applies directly",
			modifiedText:  "ship v2",
			expectedFinal: "ship v2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := workflow.New(qmemory.New())
			submitDecision(t, svc, "d1", "ship v2", "M1")

			result, err := svc.ApproveDecision(ctx, workflow.ApproveDecisionRequest{
				ItemID:       "d1",
				ApprovedBy:   "alice@x",
				ModifiedText: tc.modifiedText,
			})
			assert.NoError(t, err)
			assert.True(t, result.Success)
			assert.EqualValues(t, queue.StatusApproved, result.Item.Status)

			d := result.Item.Decision
			assert.EqualValues(t, suggestion.StatusApproved, d.Status)
			assert.EqualValues(t, "alice@x", d.ApprovedBy)
			assert.NotNil(t, d.ApprovalTimestamp)
			assert.EqualValues(t, tc.expectedFinal, d.FinalText())
			// original is always preserved for audit
			assert.EqualValues(t, "ship v2", d.DecisionText)
		})
	}
}

func TestApproveDecisionFailures(t *testing.T) {
	ctx := context.Background()

	type testCase struct {
		name     string
		setup    func(t *testing.T, svc *workflow.Service)
		itemID   string
		expected string
	}

	tests := []testCase{
		{
			name:     "missing item",
			setup:    func(*testing.T, *workflow.Service) {},
			itemID:   "missing",
			expected: workflow.MsgNotFound,
		},
		{
			name: "wrong kind",
			setup: func(t *testing.T, svc *workflow.Service) {
				submitTask(t, svc, "t1", "Prepare report", "M1", nil)
			},
			itemID:   "t1",
			expected: workflow.MsgNotDecision,
		},
		{
			name: "already processed",
			setup: func(t *testing.T, svc *workflow.Service) {
				submitDecision(t, svc, "d1", "ship v2", "M1")
				_, err := svc.ApproveDecision(ctx, workflow.ApproveDecisionRequest{ItemID: "d1", ApprovedBy: "alice@x"})
				assert.NoError(t, err)
			},
			itemID:   "d1",
			expected: workflow.MsgAlreadyProcessed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := workflow.New(qmemory.New())
			tc.setup(t, svc)

			result, err := svc.ApproveDecision(ctx, workflow.ApproveDecisionRequest{ItemID: tc.itemID, ApprovedBy: "alice@x"})
			assert.NoError(t, err)
			assert.False(t, result.Success)
			assert.Nil(t, result.Item)
			assert.EqualValues(t, tc.expected, result.Error)
		})
	}
}

func TestApproveTask(t *testing.T) {
	ctx := context.Background()

	t.Run("final due date defaults to suggested", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		submitTask(t, svc, "t1", "Prepare report", "M1", &due)

		result, err := svc.ApproveTask(ctx, workflow.ApproveTaskRequest{
			ItemID:        "t1",
			ApprovedBy:    "alice@x",
			FinalAssignee: "bob@x",
		})
		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.EqualValues(t, queue.StatusApproved, result.Item.Status)
		assert.EqualValues(t, "bob@x", result.Item.Task.FinalAssignee)
		assert.EqualValues(t, due, *result.Item.Task.FinalDueDate)
	})

	t.Run("nil final due date when none suggested", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitTask(t, svc, "t1", "Prepare report", "M1", nil)

		result, err := svc.ApproveTask(ctx, workflow.ApproveTaskRequest{ItemID: "t1", ApprovedBy: "alice@x", FinalAssignee: "bob@x"})
		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.Nil(t, result.Item.Task.FinalDueDate)
	})

	t.Run("modified description keeps original for audit", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitTask(t, svc, "t1", "Prepare report", "M1", nil)

		result, err := svc.ApproveTask(ctx, workflow.ApproveTaskRequest{
			ItemID:              "t1",
			ApprovedBy:          "alice@x",
			FinalAssignee:       "bob@x",
			ModifiedDescription: "Prepare the quarterly report",
		})
		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.EqualValues(t, "Prepare the quarterly report", result.Item.Task.FinalDescription())
		assert.EqualValues(t, "Prepare report", result.Item.Task.Description)
	})

	t.Run("assignee required", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitTask(t, svc, "t1", "Prepare report", "M1", nil)

		result, err := svc.ApproveTask(ctx, workflow.ApproveTaskRequest{ItemID: "t1", ApprovedBy: "alice@x", FinalAssignee: "   "})
		assert.NoError(t, err)
		assert.False(t, result.Success)
		assert.EqualValues(t, workflow.MsgAssigneeRequired, result.Error)

		// the failed attempt must not consume the item
		result, err = svc.ApproveTask(ctx, workflow.ApproveTaskRequest{ItemID: "t1", ApprovedBy: "alice@x", FinalAssignee: "bob@x"})
		assert.NoError(t, err)
		assert.True(t, result.Success)
	})

	t.Run("wrong kind", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitDecision(t, svc, "d1", "ship v2", "M1")

		result, err := svc.ApproveTask(ctx, workflow.ApproveTaskRequest{ItemID: "d1", ApprovedBy: "alice@x", FinalAssignee: "bob@x"})
		assert.NoError(t, err)
		assert.EqualValues(t, workflow.MsgNotTask, result.Error)
	})
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	t.Run("requires non-blank reason regardless of state", func(t *testing.T) {
		svc := workflow.New(qmemory.New())

		for _, reason := range []string{"", "   ", "\t\n"} {
			result, err := svc.Reject(ctx, workflow.RejectRequest{ItemID: "missing", RejectedBy: "alice@x", RejectionReason: reason})
			assert.NoError(t, err)
			assert.False(t, result.Success)
			assert.EqualValues(t, workflow.MsgReasonRequired, result.Error)
		}
	})

	t.Run("rejects a decision", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitDecision(t, svc, "d1", "ship v2", "M1")

		result, err := svc.Reject(ctx, workflow.RejectRequest{ItemID: "d1", RejectedBy: "alice@x", RejectionReason: "budget not ready"})
		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.EqualValues(t, queue.StatusRejected, result.Item.Status)
		assert.EqualValues(t, suggestion.StatusRejected, result.Item.Decision.Status)
		assert.EqualValues(t, "budget not ready", result.Item.Decision.RejectionReason)
		// the acting reviewer lands in ApprovedBy (inherited field naming)
		assert.EqualValues(t, "alice@x", result.Item.Decision.ApprovedBy)
	})

	t.Run("rejects a task", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitTask(t, svc, "t1", "Prepare report", "M1", nil)

		result, err := svc.Reject(ctx, workflow.RejectRequest{ItemID: "t1", RejectedBy: "alice@x", RejectionReason: "duplicate"})
		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.EqualValues(t, suggestion.StatusRejected, result.Item.Task.Status)
	})

	t.Run("double reject fails with already processed", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitDecision(t, svc, "d1", "ship v2", "M1")

		result, err := svc.Reject(ctx, workflow.RejectRequest{ItemID: "d1", RejectedBy: "alice@x", RejectionReason: "no"})
		assert.NoError(t, err)
		assert.True(t, result.Success)

		result, err = svc.Reject(ctx, workflow.RejectRequest{ItemID: "d1", RejectedBy: "alice@x", RejectionReason: "no"})
		assert.NoError(t, err)
		assert.EqualValues(t, workflow.MsgAlreadyProcessed, result.Error)
	})
}

func TestModify(t *testing.T) {
	ctx := context.Background()

	t.Run("modify decision keeps item pending", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		submitDecision(t, svc, "d1", "ship v2", "M1")

		result, err := svc.ModifyDecision(ctx, workflow.ModifyDecisionRequest{ItemID: "d1", ModifiedText: "ship v2 in Q3"})
		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.EqualValues(t, queue.StatusPending, result.Item.Status)
		assert.EqualValues(t, suggestion.StatusModified, result.Item.Decision.Status)
		assert.EqualValues(t, "ship v2", result.Item.Decision.DecisionText)
		assert.EqualValues(t, "ship v2 in Q3", result.Item.Decision.FinalText())

		// a modified item can still be approved
		approveResult, err := svc.ApproveDecision(ctx, workflow.ApproveDecisionRequest{ItemID: "d1", ApprovedBy: "alice@x"})
		assert.NoError(t, err)
		assert.True(t, approveResult.Success)
		assert.EqualValues(t, "ship v2 in Q3", approveResult.Item.Decision.FinalText())
	})

	t.Run("modify task defaults assignee and due date", func(t *testing.T) {
		svc := workflow.New(qmemory.New())
		due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		task, err := suggestion.NewTask("t1", "Prepare report", "bob@x", &due, 70, meetingSource("M1"))
		assert.NoError(t, err)
		_, err = svc.SubmitTask(ctx, task, "M1")
		assert.NoError(t, err)

		result, err := svc.ModifyTask(ctx, workflow.ModifyTaskRequest{ItemID: "t1", ModifiedDescription: "Prepare the quarterly report"})
		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.EqualValues(t, queue.StatusPending, result.Item.Status)
		assert.EqualValues(t, "bob@x", result.Item.Task.FinalAssignee)
		assert.EqualValues(t, due, *result.Item.Task.FinalDueDate)
	})
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	svc := workflow.New(qmemory.New())

	submitDecision(t, svc, "d1", "ship v2", "M1")
	submitTask(t, svc, "t1", "Prepare report", "M1", nil)
	submitTask(t, svc, "t2", "Book venue", "M2", nil)

	_, err := svc.ApproveTask(ctx, workflow.ApproveTaskRequest{ItemID: "t2", ApprovedBy: "alice@x", FinalAssignee: "bob@x"})
	assert.NoError(t, err)

	pending, err := svc.AllPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, pending, 2)

	forMeeting, err := svc.PendingForMeeting(ctx, "M1")
	assert.NoError(t, err)
	assert.Len(t, forMeeting, 2)

	decisions, err := svc.PendingDecisions(ctx)
	assert.NoError(t, err)
	assert.Len(t, decisions, 1)

	tasks, err := svc.PendingTasks(ctx)
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.EqualValues(t, "t1", tasks[0].ID)
}

func TestBatchApprove(t *testing.T) {
	ctx := context.Background()
	svc := workflow.New(qmemory.New())

	submitDecision(t, svc, "d1", "ship v2", "M1")
	submitTask(t, svc, "t1", "Prepare report", "M1", nil)
	submitTask(t, svc, "t2", "Book venue", "M1", nil)

	results, err := svc.BatchApprove(ctx,
		[]string{"d1", "t1", "t2", "missing"},
		"alice@x",
		map[string]string{"t1": "bob@x"})
	assert.NoError(t, err)
	assert.Len(t, results, 4)

	// decision approved without an assignee entry
	assert.True(t, results[0].Success)
	// task with assignee approved
	assert.True(t, results[1].Success)
	assert.EqualValues(t, "bob@x", results[1].Item.Task.FinalAssignee)
	// task without assignee fails independently
	assert.False(t, results[2].Success)
	assert.EqualValues(t, workflow.MsgAssigneeRequired, results[2].Error)
	// missing id fails independently
	assert.False(t, results[3].Success)
	assert.EqualValues(t, workflow.MsgNotFound, results[3].Error)

	// failures must not have blocked the successes
	item, err := svc.PendingTasks(ctx)
	assert.NoError(t, err)
	assert.Len(t, item, 1)
	assert.EqualValues(t, "t2", item[0].ID)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	ctx := context.Background()
	events := memory.NewQueue[workflow.Event](memory.DefaultConfig())
	svc := workflow.New(qmemory.New(), workflow.WithEventQueue(events))

	submitDecision(t, svc, "d1", "ship v2", "M1")

	msg, err := events.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, workflow.TopicItemSubmitted, msg.T().Topic)
	assert.NoError(t, msg.Ack())

	_, err = svc.ApproveDecision(ctx, workflow.ApproveDecisionRequest{ItemID: "d1", ApprovedBy: "alice@x"})
	assert.NoError(t, err)

	msg, err = events.Consume(ctx)
	assert.NoError(t, err)
	event := msg.T()
	assert.EqualValues(t, workflow.TopicItemApproved, event.Topic)
	assert.EqualValues(t, "alice@x", event.Actor)
	// the event carries the committed item
	assert.EqualValues(t, queue.StatusApproved, event.Item.Status)
}

func TestConcurrentApprovalsSingleWinner(t *testing.T) {
	ctx := context.Background()
	svc := workflow.New(qmemory.New())
	submitDecision(t, svc, "d1", "ship v2", "M1")

	const attempts = 16
	var wg sync.WaitGroup
	results := make([]workflow.Result, attempts)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			result, err := svc.ApproveDecision(ctx, workflow.ApproveDecisionRequest{ItemID: "d1", ApprovedBy: "alice@x"})
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, result := range results {
		if result.Success {
			succeeded++
		} else {
			assert.EqualValues(t, workflow.MsgAlreadyProcessed, result.Error)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one terminal transition per item")
}

func TestScenarioTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := workflow.New(qmemory.New())

	task, err := suggestion.NewTask("", "Prepare report", "", nil, 70, meetingSource("M1"))
	assert.NoError(t, err)

	item, err := svc.SubmitTask(ctx, task, "M1")
	assert.NoError(t, err)
	assert.EqualValues(t, queue.StatusPending, item.Status)

	result, err := svc.ApproveTask(ctx, workflow.ApproveTaskRequest{ItemID: item.ID, ApprovedBy: "alice@x", FinalAssignee: "bob@x"})
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.EqualValues(t, queue.StatusApproved, result.Item.Status)
	assert.EqualValues(t, "bob@x", result.Item.Task.FinalAssignee)
	assert.Nil(t, result.Item.Task.FinalDueDate)
}

func TestScenarioDecisionRejection(t *testing.T) {
	ctx := context.Background()
	svc := workflow.New(qmemory.New())
	item := submitDecision(t, svc, "", "ship v2", "M1")

	result, err := svc.Reject(ctx, workflow.RejectRequest{ItemID: item.ID, RejectedBy: "alice@x", RejectionReason: ""})
	assert.NoError(t, err)
	assert.False(t, result.Success)
	assert.EqualValues(t, workflow.MsgReasonRequired, result.Error)

	result, err = svc.Reject(ctx, workflow.RejectRequest{ItemID: item.ID, RejectedBy: "alice@x", RejectionReason: "budget not ready"})
	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.EqualValues(t, queue.StatusRejected, result.Item.Status)
	assert.EqualValues(t, "budget not ready", result.Item.Decision.RejectionReason)
}

func TestApprovalTimestampUsesClock(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return fixed }
	defer func() { clock.NowFunc = time.Now }()

	ctx := context.Background()
	svc := workflow.New(qmemory.New())
	submitDecision(t, svc, "d1", "ship v2", "M1")

	result, err := svc.ApproveDecision(ctx, workflow.ApproveDecisionRequest{ItemID: "d1", ApprovedBy: "alice@x"})
	assert.NoError(t, err)
	assert.EqualValues(t, fixed, *result.Item.Decision.ApprovalTimestamp)
	assert.EqualValues(t, fixed, result.Item.UpdatedAt)
}
