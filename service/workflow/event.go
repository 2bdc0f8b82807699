package workflow

import (
	"time"

	"github.com/reviewq/reviewq/service/queue"
)

// Standard event topics published after a queue transition commits.
const (
	TopicItemSubmitted = "item.submitted"
	TopicItemApproved  = "item.approved"
	TopicItemRejected  = "item.rejected"
	TopicItemModified  = "item.modified"
	TopicItemEscalated = "item.escalated"
)

// Event is published on the workflow's event queue so downstream sinks can
// consume approved items without polling. Events are emitted only after the
// queue transition has committed – the queue remains the single source of
// truth and a failed consumer can retry against the committed item.
type Event struct {
	Topic string      `json:"topic"`
	Item  *queue.Item `json:"item"`
	Actor string      `json:"actor,omitempty"`
	At    time.Time   `json:"at"`
}
