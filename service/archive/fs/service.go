// Package fs provides a filesystem-backed decision archive built on the
// abstract file storage layer, so basePath can point at a local directory,
// memory, or cloud URL alike. Each entry is one JSON document.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/service/archive"
)

// Service persists archive entries as JSON files under basePath.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

var _ archive.Service = (*Service)(nil)

// New creates a filesystem-backed archive rooted at basePath.
func New(basePath string) *Service {
	return &Service{basePath: basePath, fs: afs.New()}
}

// Archive records an approved decision.
func (s *Service) Archive(ctx context.Context, d *suggestion.Decision, meetingReference string) (*archive.Entry, error) {
	entry, err := archive.NewEntry(d, meetingReference)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.upload(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Get returns the entry or archive.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*archive.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx, id)
}

// Search filters, sorts by approval date descending and paginates.
func (s *Service) Search(ctx context.Context, query *archive.Query) ([]*archive.Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	matched := make([]*archive.Entry, 0, len(entries))
	for _, entry := range entries {
		if query.Matches(entry) {
			matched = append(matched, entry)
		}
	}
	total := len(matched)
	archive.SortByApprovalDate(matched)
	return query.Page(matched), total, nil
}

// ByMeeting returns all entries for one meeting, most recent first.
func (s *Service) ByMeeting(ctx context.Context, meetingReference string) ([]*archive.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*archive.Entry
	for _, entry := range entries {
		if entry.MeetingReference == meetingReference {
			out = append(out, entry)
		}
	}
	archive.SortByApprovalDate(out)
	return out, nil
}

// Supersede marks an entry as replaced.
func (s *Service) Supersede(ctx context.Context, id, successorID string) (*archive.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if successorID != "" {
		if _, err := s.load(ctx, successorID); err != nil {
			return nil, fmt.Errorf("successor %s: %w", successorID, err)
		}
	}
	entry.Status = archive.StatusSuperseded
	entry.SupersededBy = successorID
	entry.ModifiedAt = clock.Now()
	if err := s.upload(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Count returns the number of archived entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := s.loadAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (s *Service) load(ctx context.Context, id string) (*archive.Entry, error) {
	entryPath := s.entryPath(id)
	exists, err := s.fs.Exists(ctx, entryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check entry %s: %w", id, err)
	}
	if !exists {
		return nil, archive.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, entryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", id, err)
	}
	var entry archive.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry %s: %w", id, err)
	}
	return &entry, nil
}

func (s *Service) loadAll(ctx context.Context) ([]*archive.Entry, error) {
	exists, err := s.fs.Exists(ctx, s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check base path: %w", err)
	}
	if !exists {
		return nil, nil
	}
	objects, err := s.fs.List(ctx, s.basePath, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	var entries []*archive.Entry
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.DownloadWithURL(ctx, object.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", object.URL(), err)
		}
		entry := &archive.Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", object.URL(), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) upload(ctx context.Context, entry *archive.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry %s: %w", entry.ID, err)
	}
	if err := s.fs.Upload(ctx, s.entryPath(entry.ID), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save entry %s: %w", entry.ID, err)
	}
	return nil
}

func (s *Service) entryPath(id string) string {
	return path.Join(s.basePath, id+".json")
}
