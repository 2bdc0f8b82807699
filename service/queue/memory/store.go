package memory

import (
	"context"
	"sync"
	"time"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/service/dao"
	"github.com/reviewq/reviewq/service/queue"
)

// Store implements an in-memory approval queue. All operations are
// thread-safe and return **copies** of the underlying items to prevent data
// races when callers mutate the returned instances. Insertion order is
// preserved for List.
type Store struct {
	items map[string]*queue.Item
	order []string
	mux   sync.RWMutex
}

// Compile-time check.
var _ queue.Store = (*Store)(nil)

// New creates an empty in-memory queue store.
func New() *Store {
	return &Store{items: map[string]*queue.Item{}}
}

// AddDecision wraps a decision suggestion in a Pending envelope.
func (s *Store) AddDecision(_ context.Context, d *suggestion.Decision, meetingID string) (*queue.Item, error) {
	if d == nil {
		return nil, dao.ErrNilEntity
	}
	if d.ID == "" {
		return nil, dao.ErrInvalidID
	}
	item := newItem(d.ID, queue.KindDecision, meetingID)
	item.Decision = d.Clone()
	return s.add(item)
}

// AddTask wraps a task suggestion in a Pending envelope.
func (s *Store) AddTask(_ context.Context, t *suggestion.Task, meetingID string) (*queue.Item, error) {
	if t == nil {
		return nil, dao.ErrNilEntity
	}
	if t.ID == "" {
		return nil, dao.ErrInvalidID
	}
	item := newItem(t.ID, queue.KindTask, meetingID)
	item.Task = t.Clone()
	return s.add(item)
}

func newItem(id string, kind queue.Kind, meetingID string) *queue.Item {
	now := clock.Now()
	return &queue.Item{
		ID:        id,
		Kind:      kind,
		MeetingID: meetingID,
		Status:    queue.StatusPending,
		AddedAt:   now,
		UpdatedAt: now,
	}
}

func (s *Store) add(item *queue.Item) (*queue.Item, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, exists := s.items[item.ID]; !exists {
		s.order = append(s.order, item.ID)
	}
	s.items[item.ID] = item
	return item.Clone(), nil
}

// Get returns a copy of the item or dao.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (*queue.Item, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mux.RLock()
	item, ok := s.items[id]
	s.mux.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return item.Clone(), nil
}

// Save overwrites an existing item.
func (s *Store) Save(_ context.Context, item *queue.Item) error {
	if item == nil {
		return dao.ErrNilEntity
	}
	if item.ID == "" {
		return dao.ErrInvalidID
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return dao.ErrNotFound
	}
	s.items[item.ID] = item.Clone()
	return nil
}

// List returns copies of matching items in insertion order.
func (s *Store) List(_ context.Context, filter *queue.Filter) ([]*queue.Item, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	out := make([]*queue.Item, 0, len(s.order))
	for _, id := range s.order {
		item := s.items[id]
		if filter.Matches(item) {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

// UpdateStatus sets the envelope status and maps it onto the wrapped
// suggestion. It performs no precondition check – see queue.Store.
func (s *Store) UpdateStatus(_ context.Context, id string, status queue.Status) (*queue.Item, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	item.Status = status
	item.UpdatedAt = clock.Now()
	item.SetSuggestionStatus(status)
	return item.Clone(), nil
}

// MarkEscalated flags an item as overdue for review.
func (s *Store) MarkEscalated(_ context.Context, id string) (*queue.Item, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, dao.ErrNotFound
	}
	now := clock.Now()
	item.Escalated = true
	item.EscalatedAt = &now
	item.UpdatedAt = now
	return item.Clone(), nil
}

// Remove deletes an item.
func (s *Store) Remove(_ context.Context, id string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if _, ok := s.items[id]; !ok {
		return dao.ErrNotFound
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// CountByStatus returns item counts per queue status.
func (s *Store) CountByStatus(_ context.Context) (map[queue.Status]int, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	counts := map[queue.Status]int{
		queue.StatusPending:  0,
		queue.StatusApproved: 0,
		queue.StatusRejected: 0,
	}
	for _, item := range s.items {
		counts[item.Status]++
	}
	return counts, nil
}

// NeedingEscalation returns Pending, not-yet-escalated items older than the
// threshold.
func (s *Store) NeedingEscalation(ctx context.Context, threshold time.Duration, now time.Time) ([]*queue.Item, error) {
	if threshold <= 0 {
		threshold = queue.DefaultEscalationThreshold
	}
	cutoff := now.Add(-threshold)
	return s.List(ctx, &queue.Filter{
		Status:      queue.StatusPending,
		Escalated:   queue.Bool(false),
		AddedBefore: &cutoff,
	})
}

// Size returns the total number of items.
func (s *Store) Size() int {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return len(s.items)
}
