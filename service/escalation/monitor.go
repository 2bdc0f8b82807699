// Package escalation runs the periodic sweep that flags items stuck in
// review. Marking an item escalated never changes its queue status – it only
// surfaces the item so a human looks at it.
package escalation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/service/messaging"
	"github.com/reviewq/reviewq/service/notifier"
	"github.com/reviewq/reviewq/service/queue"
	"github.com/reviewq/reviewq/service/workflow"
)

// Monitor periodically finds pending items older than the threshold, marks
// them escalated and alerts the notifier.
type Monitor struct {
	store     queue.Store
	threshold time.Duration
	notifier  notifier.Notifier
	events    messaging.Queue[workflow.Event]
}

// Option customises the monitor.
type Option func(*Monitor)

// WithThreshold overrides the escalation age threshold.
func WithThreshold(threshold time.Duration) Option {
	return func(m *Monitor) {
		if threshold > 0 {
			m.threshold = threshold
		}
	}
}

// WithNotifier sets the alert destination.
func WithNotifier(n notifier.Notifier) Option {
	return func(m *Monitor) { m.notifier = n }
}

// WithEventQueue attaches a queue receiving an item.escalated event per
// marked item.
func WithEventQueue(q messaging.Queue[workflow.Event]) Option {
	return func(m *Monitor) { m.events = q }
}

// New creates a monitor over the queue store. The default threshold is 72h
// and alerts go to the process log.
func New(store queue.Store, options ...Option) *Monitor {
	ret := &Monitor{
		store:     store,
		threshold: queue.DefaultEscalationThreshold,
		notifier:  notifier.Log{},
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Sweep runs one escalation pass and returns the items it marked. Items that
// fail to mark are logged and skipped; the sweep continues.
func (m *Monitor) Sweep(ctx context.Context) ([]*queue.Item, error) {
	now := clock.Now()
	overdue, err := m.store.NeedingEscalation(ctx, m.threshold, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue items: %w", err)
	}

	var marked []*queue.Item
	for _, item := range overdue {
		updated, err := m.store.MarkEscalated(ctx, item.ID)
		if err != nil {
			log.Printf("escalation: failed to mark %s: %v", item.ID, err)
			continue
		}
		marked = append(marked, updated)
		if err := m.notifier.NotifyEscalation(ctx, updated); err != nil {
			log.Printf("escalation: failed to notify for %s: %v", updated.ID, err)
		}
		if m.events != nil {
			_ = m.events.Publish(ctx, &workflow.Event{
				Topic: workflow.TopicItemEscalated,
				Item:  updated,
				At:    clock.Now(),
			})
		}
	}
	if len(marked) > 0 {
		log.Printf("escalation: marked %d item(s) overdue (threshold %s)", len(marked), m.threshold)
	}
	return marked, nil
}

// Start runs sweeps on a standard 5-field cron schedule (minute hour
// day-of-month month day-of-week) until the context is cancelled. Examples:
// "0 * * * *" (hourly), "0 9 * * 1-5" (weekdays 9am).
func (m *Monitor) Start(ctx context.Context, schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid escalation schedule %q: %w", schedule, err)
	}
	log.Printf("escalation sweep scheduled (cron: %s, threshold: %s)", schedule, m.threshold)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if _, err := m.Sweep(ctx); err != nil {
				log.Printf("escalation sweep failed: %v", err)
			}
		}
	}()
	return nil
}
