package workflow

import (
	"github.com/reviewq/reviewq/service/queue"
)

// Expected business failure messages. These cross the workflow boundary as
// Result.Error values, never as Go errors, so reviewers always get an
// actionable message rather than a fault.
const (
	MsgNotFound         = "item not found"
	MsgNotDecision      = "item is not a decision"
	MsgNotTask          = "item is not a task"
	MsgAlreadyProcessed = "item has already been processed"
	MsgReasonRequired   = "rejection reason is required"
	MsgAssigneeRequired = "final assignee is required"
)

// Result is the structured outcome of a workflow operation. Success carries
// the post-transition item; failure carries a message from the constants
// above and a nil item.
type Result struct {
	Success bool        `json:"success"`
	Item    *queue.Item `json:"item,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func succeeded(item *queue.Item) Result {
	return Result{Success: true, Item: item}
}

func failed(message string) Result {
	return Result{Success: false, Error: message}
}
