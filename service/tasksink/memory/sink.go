// Package memory provides an in-memory task sink that records created tasks
// instead of reaching an external tracker. Useful for tests and deployments
// without a planner integration.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/internal/idgen"
	"github.com/reviewq/reviewq/service/tasksink"
)

// Sink records every created task in insertion order.
type Sink struct {
	created []*tasksink.Created
	mu      sync.RWMutex
}

var _ tasksink.Sink = (*Sink)(nil)

// New creates an empty recording sink.
func New() *Sink {
	return &Sink{}
}

// CreateTask validates the request and records a created task.
func (s *Sink) CreateTask(ctx context.Context, req tasksink.Request) (*tasksink.Created, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, tasksink.ErrNoTitle
	}
	if strings.TrimSpace(req.AssigneeID) == "" {
		return nil, tasksink.ErrNoAssignee
	}
	created := &tasksink.Created{
		ID:        idgen.Prefixed("task"),
		Title:     req.Title,
		Assignee:  req.AssigneeID,
		DueDate:   req.DueDate,
		CreatedAt: clock.Now(),
	}
	s.mu.Lock()
	s.created = append(s.created, created)
	s.mu.Unlock()
	return created, nil
}

// Created returns copies of all recorded tasks in creation order.
func (s *Sink) Created() []*tasksink.Created {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*tasksink.Created, len(s.created))
	for i, c := range s.created {
		cc := *c
		out[i] = &cc
	}
	return out
}
