package fs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type reviewEvent struct {
	Topic  string `json:"topic"`
	ItemID string `json:"itemId"`
}

func newTestQueue(t *testing.T) *Queue[reviewEvent] {
	t.Helper()
	config := DefaultConfig(t.TempDir())
	config.MaxRetries = 1
	config.PollInterval = 5 * time.Millisecond
	q, err := NewQueue[reviewEvent](config)
	assert.NoError(t, err)
	return q
}

func TestPublishConsumeAck(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	assert.NoError(t, q.Publish(ctx, &reviewEvent{Topic: "item.approved", ItemID: "d1"}))
	assert.Equal(t, 1, q.Size())

	msg, err := q.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, "d1", msg.T().ItemID)
	assert.Equal(t, 0, q.Size())

	assert.NoError(t, msg.Ack())
	assert.Error(t, msg.Ack())
}

func TestOldestFirst(t *testing.T) {
	ctx := context.Background()
	config := DefaultConfig(t.TempDir())
	q, err := NewQueue[reviewEvent](config)
	assert.NoError(t, err)

	assert.NoError(t, q.Publish(ctx, &reviewEvent{Topic: "item.submitted", ItemID: "a"}))
	assert.NoError(t, q.Publish(ctx, &reviewEvent{Topic: "item.submitted", ItemID: "b"}))
	assert.Equal(t, 2, q.Size())

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		msg, err := q.Consume(ctx)
		assert.NoError(t, err)
		seen[msg.T().ItemID] = true
		assert.NoError(t, msg.Ack())
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}

func TestNackRetriesThenDLQ(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	assert.NoError(t, q.Publish(ctx, &reviewEvent{Topic: "item.approved", ItemID: "d1"}))

	// first nack requeues
	msg, err := q.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, msg.Nack(errors.New("archive unavailable")))
	assert.Equal(t, 1, q.Size())
	assert.Equal(t, 0, q.DLQSize())

	// second nack exhausts MaxRetries=1 and dead-letters
	msg, err = q.Consume(ctx)
	assert.NoError(t, err)
	assert.NoError(t, msg.Nack(errors.New("archive unavailable")))
	assert.Equal(t, 0, q.Size())
	assert.Equal(t, 1, q.DLQSize())
}

func TestConsumeHonoursContext(t *testing.T) {
	q := newTestQueue(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := q.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	q1, err := NewQueue[reviewEvent](DefaultConfig(base))
	assert.NoError(t, err)
	assert.NoError(t, q1.Publish(ctx, &reviewEvent{Topic: "item.approved", ItemID: "d1"}))

	q2, err := NewQueue[reviewEvent](DefaultConfig(base))
	assert.NoError(t, err)
	msg, err := q2.Consume(ctx)
	assert.NoError(t, err)
	assert.EqualValues(t, "d1", msg.T().ItemID)
	assert.NoError(t, msg.Ack())
}
