package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/service/dao"
	"github.com/reviewq/reviewq/service/queue"
)

// Store implements a filesystem-backed approval queue. Each item is stored
// as a JSON document under basePath; the abstract file storage layer lets
// basePath point at a local directory, memory, or cloud URL alike.
//
// List order follows AddedAt (then id), which matches insertion order for a
// single writer.
type Store struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

// Compile-time check.
var _ queue.Store = (*Store)(nil)

// New creates a filesystem-backed queue store rooted at basePath.
func New(basePath string) *Store {
	return &Store{basePath: basePath, fs: afs.New()}
}

// AddDecision wraps a decision suggestion in a Pending envelope.
func (s *Store) AddDecision(ctx context.Context, d *suggestion.Decision, meetingID string) (*queue.Item, error) {
	if d == nil {
		return nil, dao.ErrNilEntity
	}
	if d.ID == "" {
		return nil, dao.ErrInvalidID
	}
	item := s.newItem(d.ID, queue.KindDecision, meetingID)
	item.Decision = d.Clone()
	if err := s.upload(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AddTask wraps a task suggestion in a Pending envelope.
func (s *Store) AddTask(ctx context.Context, t *suggestion.Task, meetingID string) (*queue.Item, error) {
	if t == nil {
		return nil, dao.ErrNilEntity
	}
	if t.ID == "" {
		return nil, dao.ErrInvalidID
	}
	item := s.newItem(t.ID, queue.KindTask, meetingID)
	item.Task = t.Clone()
	if err := s.upload(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) newItem(id string, kind queue.Kind, meetingID string) *queue.Item {
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

// Get returns the item or dao.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*queue.Item, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx, id)
}

// Save overwrites an existing item.
func (s *Store) Save(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return dao.ErrNilEntity
	}
	if item.ID == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.load(ctx, item.ID); err != nil {
		return err
	}
	return s.upload(ctx, item)
}

// List returns all matching items ordered by AddedAt.
func (s *Store) List(ctx context.Context, filter *queue.Filter) ([]*queue.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*queue.Item, 0, len(items))
	for _, item := range items {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	return out, nil
}

// UpdateStatus sets the envelope status and maps it onto the wrapped
// suggestion. It performs no precondition check – see queue.Store.
func (s *Store) UpdateStatus(ctx context.Context, id string, status queue.Status) (*queue.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Status = status
	item.UpdatedAt = clock.Now()
	item.SetSuggestionStatus(status)
	if err := s.upload(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// MarkEscalated flags an item as overdue for review.
func (s *Store) MarkEscalated(ctx context.Context, id string) (*queue.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := clock.Now()
	item.Escalated = true
	item.EscalatedAt = &now
	item.UpdatedAt = now
	if err := s.upload(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes an item.
func (s *Store) Remove(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	itemPath := s.itemPath(id)
	exists, err := s.fs.Exists(ctx, itemPath)
	if err != nil {
		return fmt.Errorf("failed to check item %s: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	if err := s.fs.Delete(ctx, itemPath); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	return nil
}

// CountByStatus returns item counts per queue status.
func (s *Store) CountByStatus(ctx context.Context) (map[queue.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[queue.Status]int{
		queue.StatusPending:  0,
		queue.StatusApproved: 0,
		queue.StatusRejected: 0,
	}
	for _, item := range items {
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

func (s *Store) load(ctx context.Context, id string) (*queue.Item, error) {
	itemPath := s.itemPath(id)
	exists, err := s.fs.Exists(ctx, itemPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check item %s: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, itemPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read item %s: %w", id, err)
	}
	var item queue.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item %s: %w", id, err)
	}
	return &item, nil
}

func (s *Store) loadAll(ctx context.Context) ([]*queue.Item, error) {
	exists, err := s.fs.Exists(ctx, s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check base path: %w", err)
	}
	if !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	var items []*queue.Item
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", object.URL(), err)
		}
		item := &queue.Item{}
		if err := json.Unmarshal(data, item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", object.URL(), err)
		}
		items = append(items, item)
	}
	sort.Slice(items, func(a, b int) bool {
		if items[a].AddedAt.Equal(items[b].AddedAt) {
			return items[a].ID < items[b].ID
		}
		return items[a].AddedAt.Before(items[b].AddedAt)
	})
	return items, nil
}

func (s *Store) upload(ctx context.Context, item *queue.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item %s: %w", item.ID, err)
	}
	if err := s.fs.Upload(ctx, s.itemPath(item.ID), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save item %s: %w", item.ID, err)
	}
	return nil
}

func (s *Store) itemPath(id string) string {
	return path.Join(s.basePath, id+".json")
}
