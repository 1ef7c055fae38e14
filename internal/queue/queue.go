// Package queue implements the durable hand-off between the publish trigger
// and the dispatch worker.
//
// A job lives in exactly one of three broker lists: pending (not yet
// claimed), in-flight (claimed, not yet acknowledged), dead (exhausted its
// retries). The only transitions are
//
//	Pending -> InFlight -> Acknowledged (removed)
//	                    -> Pending with retry count + 1
//	                    -> Dead
//
// There is no reaper for the in-flight list: a worker that crashes between
// dequeue and acknowledge strands its job there. Stats exposes the list
// depth so operators can spot stranded work.
package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"LetterFlow/internal/broker"
	"LetterFlow/internal/models"
)

const (
	ListPending  = "dispatch:pending"
	ListInFlight = "dispatch:in-flight"
	ListDead     = "dispatch:dead"

	// MaxRetryCount is how many times a failed job is re-queued before it
	// is moved to the dead list.
	MaxRetryCount = 3

	// DequeueTimeout is the default block duration for DequeueBlocking.
	DequeueTimeout = 5 * time.Second
)

// Job is a dequeued EmailJob together with the exact serialized value the
// broker holds in the in-flight list. Acknowledge and RetryOrKill remove
// that raw value, not a re-marshalled one: re-marshalling would drop JSON
// fields written by a newer deploy and the removal would miss.
type Job struct {
	models.EmailJob
	raw string
}

// Stats reports the depth of the three lists. Observability only, never
// used for control flow.
type Stats struct {
	Pending  int64 `json:"pending"`
	InFlight int64 `json:"in_flight"`
	Dead     int64 `json:"dead"`
}

type DispatchQueue struct {
	broker broker.Broker
	log    *zap.Logger
}

func New(b broker.Broker, log *zap.Logger) *DispatchQueue {
	return &DispatchQueue{broker: b, log: log}
}

// Enqueue serializes the job and pushes it onto the head of pending. A
// failure here means the broker is unreachable; callers log it and move on —
// dispatch failure must never block issue publication.
func (q *DispatchQueue) Enqueue(ctx context.Context, job models.EmailJob) error {
	raw, err := job.Marshal()
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", job.ID, err)
	}

	if err := q.broker.Push(ctx, ListPending, raw); err != nil {
		return fmt.Errorf("queue: enqueue job %s: %w", job.ID, err)
	}

	q.log.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.Int("recipients", len(job.RecipientEmails)),
	)
	return nil
}

// DequeueBlocking atomically moves the oldest pending job to in-flight,
// blocking up to timeout. Returns (nil, nil) when the wait times out with
// nothing to do.
func (q *DispatchQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*Job, error) {
	raw, err := q.broker.PopAndMoveBlocking(ctx, ListPending, ListInFlight, timeout)
	if err != nil {
		return nil, fmt.Errorf("queue: dequeue: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	job, err := models.UnmarshalEmailJob(raw)
	if err != nil {
		// The value is already in in-flight; drop it there for inspection
		// rather than losing it.
		q.log.Error("undecodable job left in in-flight", zap.Error(err))
		return nil, fmt.Errorf("queue: decode job: %w", err)
	}

	return &Job{EmailJob: job, raw: raw}, nil
}

// Acknowledge removes a successfully processed job from in-flight. A value
// that is already gone (duplicate ack) is a no-op success.
func (q *DispatchQueue) Acknowledge(ctx context.Context, job *Job) error {
	removed, err := q.broker.RemoveFirst(ctx, ListInFlight, job.raw)
	if err != nil {
		return fmt.Errorf("queue: acknowledge job %s: %w", job.ID, err)
	}
	if removed == 0 {
		q.log.Warn("acknowledge found no in-flight entry", zap.String("job_id", job.ID))
	}

	q.log.Info("job acknowledged",
		zap.String("job_id", job.ID),
		zap.Int("retry_count", job.RetryCount),
	)
	return nil
}

// RetryOrKill removes a failed job from in-flight and either re-queues it
// with the retry count incremented or, past MaxRetryCount, moves it to the
// dead list for operator inspection. The dead copy carries the incremented
// count too, so it records the total number of failed attempts.
// The returned bool reports whether the job was killed (moved to dead)
// rather than re-queued.
func (q *DispatchQueue) RetryOrKill(ctx context.Context, job *Job, errMsg string) (bool, error) {
	if _, err := q.broker.RemoveFirst(ctx, ListInFlight, job.raw); err != nil {
		return false, fmt.Errorf("queue: remove failed job %s from in-flight: %w", job.ID, err)
	}

	retried := job.WithRetry()
	raw, err := retried.Marshal()
	if err != nil {
		return false, fmt.Errorf("queue: marshal retry of job %s: %w", job.ID, err)
	}

	if job.RetryCount < MaxRetryCount {
		if err := q.broker.Push(ctx, ListPending, raw); err != nil {
			return false, fmt.Errorf("queue: requeue job %s: %w", job.ID, err)
		}
		q.log.Warn("job requeued after failure",
			zap.String("job_id", job.ID),
			zap.Int("retry_count", retried.RetryCount),
			zap.String("error", errMsg),
		)
		return false, nil
	}

	if err := q.broker.Push(ctx, ListDead, raw); err != nil {
		return false, fmt.Errorf("queue: move job %s to dead list: %w", job.ID, err)
	}
	q.log.Error("job moved to dead list",
		zap.String("job_id", job.ID),
		zap.Int("failed_attempts", retried.RetryCount),
		zap.String("error", errMsg),
	)
	return true, nil
}

// Stats returns the current depth of the three lists.
func (q *DispatchQueue) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error

	if s.Pending, err = q.broker.Length(ctx, ListPending); err != nil {
		return Stats{}, fmt.Errorf("queue: pending length: %w", err)
	}
	if s.InFlight, err = q.broker.Length(ctx, ListInFlight); err != nil {
		return Stats{}, fmt.Errorf("queue: in-flight length: %w", err)
	}
	if s.Dead, err = q.broker.Length(ctx, ListDead); err != nil {
		return Stats{}, fmt.Errorf("queue: dead length: %w", err)
	}
	return s, nil
}
