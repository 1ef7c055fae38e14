package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"LetterFlow/internal/broker"
	"LetterFlow/internal/models"
)

func newTestQueue() (*DispatchQueue, *broker.Memory) {
	mem := broker.NewMemory()
	return New(mem, zap.NewNop()), mem
}

func testJob(recipients ...string) models.EmailJob {
	job := models.NewIssuePublishedJob("issue-1", "news-1", recipients)
	job.Subject = "Hello"
	return job
}

func requireStats(t *testing.T, q *DispatchQueue, pending, inFlight, dead int64) {
	t.Helper()
	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: pending, InFlight: inFlight, Dead: dead}, stats)
}

func TestDispatchQueue_AtomicHandoff(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	job := testJob("a@x.com")
	require.NoError(t, q.Enqueue(ctx, job))
	requireStats(t, q, 1, 0, 0)

	got, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, []string{"a@x.com"}, got.RecipientEmails)

	// Claimed jobs live in in-flight and nowhere else.
	requireStats(t, q, 0, 1, 0)
}

func TestDispatchQueue_DequeueTimeout(t *testing.T) {
	q, _ := newTestQueue()

	got, err := q.DequeueBlocking(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDispatchQueue_Acknowledge(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	require.NoError(t, q.Enqueue(ctx, testJob("a@x.com")))
	got, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, q.Acknowledge(ctx, got))
	requireStats(t, q, 0, 0, 0)

	// A duplicate ack is a no-op success.
	require.NoError(t, q.Acknowledge(ctx, got))
}

func TestDispatchQueue_RetryRequeuesWithIncrement(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	require.NoError(t, q.Enqueue(ctx, testJob("a@x.com")))
	got, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RetryCount)

	dead, err := q.RetryOrKill(ctx, got, "smtp timeout")
	require.NoError(t, err)
	assert.False(t, dead)
	requireStats(t, q, 1, 0, 0)

	retried, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, retried)
	assert.Equal(t, got.ID, retried.ID)
	assert.Equal(t, 1, retried.RetryCount)
}

func TestDispatchQueue_RetryCeiling(t *testing.T) {
	ctx := context.Background()
	q, mem := newTestQueue()

	require.NoError(t, q.Enqueue(ctx, testJob("a@x.com")))

	// Fail MaxRetryCount+1 times; the last failure must go to dead, never
	// back to pending.
	for i := 0; i <= MaxRetryCount; i++ {
		got, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
		require.NoError(t, err)
		require.NotNil(t, got, "attempt %d found no job", i+1)
		assert.Equal(t, i, got.RetryCount)

		dead, err := q.RetryOrKill(ctx, got, "permanent failure")
		require.NoError(t, err)
		assert.Equal(t, i == MaxRetryCount, dead)
	}

	requireStats(t, q, 0, 0, 1)

	// The dead copy records the total number of failed attempts.
	raw, err := mem.PopAndMoveBlocking(ctx, ListDead, "scratch", 100*time.Millisecond)
	require.NoError(t, err)
	deadJob, err := models.UnmarshalEmailJob(raw)
	require.NoError(t, err)
	assert.Equal(t, MaxRetryCount+1, deadJob.RetryCount)
}

func TestDispatchQueue_AckRemovesExactRawValue(t *testing.T) {
	ctx := context.Background()
	q, mem := newTestQueue()

	// A job written by a newer deploy carries a field this build does not
	// know about. It must still dequeue, ack, and disappear.
	raw := `{"id":"j-future","type":"issue_published","recipient_emails":["a@x.com"],"retry_count":0,"shiny_new_field":true}`
	require.NoError(t, mem.Push(ctx, ListPending, raw))

	got, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "j-future", got.ID)

	require.NoError(t, q.Acknowledge(ctx, got))
	requireStats(t, q, 0, 0, 0)
}

func TestDispatchQueue_Stats(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue()

	require.NoError(t, q.Enqueue(ctx, testJob("a@x.com")))
	require.NoError(t, q.Enqueue(ctx, testJob("b@x.com")))

	_, err := q.DequeueBlocking(ctx, 100*time.Millisecond)
	require.NoError(t, err)

	requireStats(t, q, 1, 1, 0)
}
