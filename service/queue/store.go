package queue

import (
	"context"
	"time"

	"github.com/reviewq/reviewq/model/suggestion"
)

// Store is the authoritative keyed store of review items. It performs no
// business-rule validation: UpdateStatus in particular is an unchecked
// primitive that transitions regardless of the current state. All
// precondition enforcement (such as "must currently be Pending") lives in the
// workflow service – implementations must not duplicate it here.
//
// Suggestion ids are caller-generated and must be unique; Add does not check
// for collisions.
type Store interface {
	// AddDecision wraps a decision suggestion in a Pending envelope.
	AddDecision(ctx context.Context, d *suggestion.Decision, meetingID string) (*Item, error)

	// AddTask wraps a task suggestion in a Pending envelope.
	AddTask(ctx context.Context, t *suggestion.Task, meetingID string) (*Item, error)

	// Get returns a copy of the item or dao.ErrNotFound.
	Get(ctx context.Context, id string) (*Item, error)

	// Save overwrites an existing item. Used by the workflow service to
	// persist a transitioned suggestion together with its envelope.
	Save(ctx context.Context, item *Item) error

	// List returns copies of all items matching the filter, in insertion
	// order. A nil filter returns everything.
	List(ctx context.Context, filter *Filter) ([]*Item, error)

	// UpdateStatus sets the envelope status and maps it onto the wrapped
	// suggestion's status. It is a low-level primitive: no precondition
	// check, no compare-and-swap.
	UpdateStatus(ctx context.Context, id string, status Status) (*Item, error)

	// MarkEscalated flags an item as overdue for review. Idempotent in
	// effect; callers should consult Escalated first when deciding whether
	// to notify.
	MarkEscalated(ctx context.Context, id string) (*Item, error)

	// Remove deletes an item. Items are never implicitly expired.
	Remove(ctx context.Context, id string) error

	// CountByStatus returns item counts per queue status.
	CountByStatus(ctx context.Context) (map[Status]int, error)

	// NeedingEscalation returns Pending, not-yet-escalated items added
	// before now−threshold. It is a pure query: marking is a separate,
	// explicit step so callers control notification side effects.
	NeedingEscalation(ctx context.Context, threshold time.Duration, now time.Time) ([]*Item, error)
}
