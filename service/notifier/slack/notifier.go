// Package slack delivers escalation alerts to a Slack channel.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/reviewq/reviewq/service/notifier"
	"github.com/reviewq/reviewq/service/queue"
)

// poster is the slice of the Slack client the notifier needs; the real
// *slack.Client satisfies it.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts escalation alerts to one channel.
type Notifier struct {
	api       poster
	channelID string
}

var _ notifier.Notifier = (*Notifier)(nil)

// New creates a Slack notifier posting to channelID.
func New(botToken, channelID string) *Notifier {
	return &Notifier{api: slackapi.New(botToken), channelID: channelID}
}

// NewWithClient creates a notifier on an existing client, letting tests
// substitute a fake.
func NewWithClient(api poster, channelID string) *Notifier {
	return &Notifier{api: api, channelID: channelID}
}

// NotifyEscalation posts the alert to the configured channel.
func (n *Notifier) NotifyEscalation(ctx context.Context, item *queue.Item) error {
	msg := notifier.Message(item)
	if _, _, err := n.api.PostMessageContext(ctx, n.channelID, slackapi.MsgOptionText(msg, false)); err != nil {
		return fmt.Errorf("failed to post escalation for %s: %w", item.ID, err)
	}
	return nil
}
