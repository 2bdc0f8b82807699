// Package memory provides an in-memory decision archive layered on the
// generic keyed store.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/service/archive"
	"github.com/reviewq/reviewq/service/dao"
	"github.com/reviewq/reviewq/service/dao/store"
)

// Service keeps archived decisions in a generic in-memory store. Results are
// deep copies so callers cannot mutate stored state; the service-level mutex
// serialises Supersede's read-modify-write.
type Service struct {
	entries *store.MemoryStore[string, archive.Entry]
	mu      sync.Mutex
}

var _ archive.Service = (*Service)(nil)

// New creates an empty in-memory archive.
func New() *Service {
	return &Service{
		entries: store.NewMemoryStore[string, archive.Entry](func(e *archive.Entry) string { return e.ID }),
	}
}

// Archive records an approved decision.
func (s *Service) Archive(ctx context.Context, d *suggestion.Decision, meetingReference string) (*archive.Entry, error) {
	entry, err := archive.NewEntry(d, meetingReference)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Save(ctx, entry); err != nil {
		return nil, err
	}
	return entry.Clone(), nil
}

// Get returns the entry or archive.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*archive.Entry, error) {
	entry, err := s.entries.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, archive.ErrNotFound
		}
		return nil, err
	}
	return entry.Clone(), nil
}

// Search filters, sorts by approval date descending and paginates. The int
// result is the total match count before pagination.
func (s *Service) Search(ctx context.Context, query *archive.Query) ([]*archive.Entry, int, error) {
	all, err := s.entries.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	matched := make([]*archive.Entry, 0, len(all))
	for _, entry := range all {
		if query.Matches(entry) {
			matched = append(matched, entry.Clone())
		}
	}
	total := len(matched)
	archive.SortByApprovalDate(matched)
	return query.Page(matched), total, nil
}

// ByMeeting returns all entries for one meeting, most recent first.
func (s *Service) ByMeeting(ctx context.Context, meetingReference string) ([]*archive.Entry, error) {
	all, err := s.entries.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*archive.Entry
	for _, entry := range all {
		if entry.MeetingReference == meetingReference {
			out = append(out, entry.Clone())
		}
	}
	archive.SortByApprovalDate(out)
	return out, nil
}

// Supersede marks an entry as replaced.
func (s *Service) Supersede(ctx context.Context, id, successorID string) (*archive.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.entries.Load(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, archive.ErrNotFound
		}
		return nil, err
	}
	if successorID != "" {
		if _, err := s.entries.Load(ctx, successorID); err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				return nil, fmt.Errorf("successor %s: %w", successorID, archive.ErrNotFound)
			}
			return nil, err
		}
	}
	updated := entry.Clone()
	updated.Status = archive.StatusSuperseded
	updated.SupersededBy = successorID
	updated.ModifiedAt = clock.Now()
	if err := s.entries.Save(ctx, updated); err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Count returns the number of archived entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	all, err := s.entries.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
