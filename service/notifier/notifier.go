// Package notifier delivers escalation alerts for items stuck in review.
package notifier

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/service/queue"
)

// Notifier delivers an alert about an item overdue for review.
type Notifier interface {
	NotifyEscalation(ctx context.Context, item *queue.Item) error
}

// Message renders the escalation alert text for an item: what it is, which
// meeting it came from and how long it has been waiting.
func Message(item *queue.Item) string {
	var summary string
	switch item.Kind {
	case queue.KindDecision:
		summary = fmt.Sprintf("decision %q", item.Decision.FinalText())
	case queue.KindTask:
		summary = fmt.Sprintf("task %q", item.Task.FinalDescription())
	default:
		summary = fmt.Sprintf("item %s", item.ID)
	}
	age := clock.Now().Sub(item.AddedAt).Round(time.Hour)
	return fmt.Sprintf("Review overdue: %s from meeting %s has been pending for %s (id %s).",
		summary, item.MeetingID, age, item.ID)
}

// Log writes escalation alerts to the process log. It is the fallback when
// no delivery channel is configured.
type Log struct{}

var _ Notifier = Log{}

// NotifyEscalation logs the alert.
func (Log) NotifyEscalation(ctx context.Context, item *queue.Item) error {
	log.Printf("[escalation] %s", Message(item))
	return nil
}
