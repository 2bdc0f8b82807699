// Package fs provides a filesystem-backed message queue for deployments that
// need workflow events to survive a restart. Messages live as JSON documents
// and move between state directories (pending, processing, dlq) as they are
// consumed, acked and nacked. The abstract file storage layer lets the base
// path point at a local directory, memory, or cloud URL alike.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/internal/idgen"
	"github.com/reviewq/reviewq/service/messaging"
)

// Config holds the queue settings.
type Config struct {
	BasePath     string        // root directory for the state subdirectories
	MaxRetries   int           // nacks before a message lands in dlq
	PollInterval time.Duration // how often Consume re-checks for work
}

// DefaultConfig returns the standard settings for a basePath.
func DefaultConfig(basePath string) Config {
	return Config{
		BasePath:     basePath,
		MaxRetries:   3,
		PollInterval: 100 * time.Millisecond,
	}
}

// envelope is the persisted form of a message.
type envelope[T any] struct {
	ID        string    `json:"id"`
	Payload   T         `json:"payload"`
	Retries   int       `json:"retries"`
	LastError string    `json:"lastError,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is a consumed envelope awaiting Ack or Nack.
type Message[T any] struct {
	env       *envelope[T]
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.env.Payload
}

// Ack removes the message from the processing directory.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return m.queue.remove(context.Background(), m.queue.processingDir, m.env.ID)
}

// Nack records the failure and requeues the message, or moves it to the dead
// letter directory once retries are exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.env.Retries++
	if err != nil {
		m.env.LastError = err.Error()
	}
	m.env.UpdatedAt = clock.Now()

	ctx := context.Background()
	destDir := m.queue.pendingDir
	if m.env.Retries > m.queue.config.MaxRetries {
		destDir = m.queue.dlqDir
	}
	if err := m.queue.write(ctx, destDir, m.env); err != nil {
		return err
	}
	return m.queue.remove(ctx, m.queue.processingDir, m.env.ID)
}

// Queue implements messaging.Queue on the filesystem.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingDir    string
	processingDir string
	dlqDir        string
	mu            sync.Mutex
}

var _ messaging.Queue[any] = (*Queue[any])(nil)

// NewQueue creates a filesystem queue rooted at config.BasePath.
func NewQueue[T any](config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig(config.BasePath).PollInterval
	}
	q := &Queue[T]{
		fs:            afs.New(),
		config:        config,
		pendingDir:    path.Join(config.BasePath, "pending"),
		processingDir: path.Join(config.BasePath, "processing"),
		dlqDir:        path.Join(config.BasePath, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingDir, q.processingDir, q.dlqDir} {
		if exists, _ := q.fs.Exists(ctx, dir); !exists {
			if err := q.fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}
	return q, nil
}

// Publish writes a new message into the pending directory.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	now := clock.Now()
	env := &envelope[T]{
		ID:        idgen.New(),
		Payload:   *t,
		CreatedAt: now,
		UpdatedAt: now,
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.write(ctx, q.pendingDir, env)
}

// Consume blocks until a pending message is available or the context is
// cancelled, claiming the oldest message by moving it into processing.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()
	for {
		message, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if message != nil {
			return message, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Size returns the number of pending messages.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	objects, err := q.listJSON(context.Background(), q.pendingDir)
	if err != nil {
		return 0
	}
	return len(objects)
}

// DLQSize returns the number of dead-lettered messages.
func (q *Queue[T]) DLQSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	objects, err := q.listJSON(context.Background(), q.dlqDir)
	if err != nil {
		return 0
	}
	return len(objects)
}

func (q *Queue[T]) claim(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.listJSON(ctx, q.pendingDir)
	if err != nil {
		return nil, err
	}
	if len(objects) == 0 {
		return nil, nil
	}
	oldest := objects[0]
	for _, object := range objects[1:] {
		if object.Name() < oldest.Name() {
			oldest = object
		}
	}

	data, err := q.fs.DownloadWithURL(ctx, oldest.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", oldest.URL(), err)
	}
	env := &envelope[T]{}
	if err := json.Unmarshal(data, env); err != nil {
		// quarantine the unreadable message instead of blocking the queue
		_ = q.fs.Move(ctx, oldest.URL(), path.Join(q.dlqDir, "invalid-"+oldest.Name()))
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", oldest.URL(), err)
	}
	env.UpdatedAt = clock.Now()

	if err := q.write(ctx, q.processingDir, env); err != nil {
		return nil, err
	}
	if err := q.fs.Delete(ctx, oldest.URL()); err != nil {
		return nil, fmt.Errorf("failed to remove claimed message %s: %w", env.ID, err)
	}
	return &Message[T]{env: env, queue: q}, nil
}

func (q *Queue[T]) listJSON(ctx context.Context, dir string) ([]storage.Object, error) {
	objects, err := q.fs.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []storage.Object
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			out = append(out, object)
		}
	}
	return out, nil
}

func (q *Queue[T]) write(ctx context.Context, dir string, env *envelope[T]) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", env.ID, err)
	}
	dest := path.Join(dir, env.ID+".json")
	if err := q.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write message %s: %w", env.ID, err)
	}
	return nil
}

func (q *Queue[T]) remove(ctx context.Context, dir, id string) error {
	target := path.Join(dir, id+".json")
	if exists, _ := q.fs.Exists(ctx, target); !exists {
		return nil
	}
	if err := q.fs.Delete(ctx, target); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	return nil
}
