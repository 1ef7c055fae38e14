package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"LetterFlow/internal/metrics"
	"LetterFlow/internal/processor"
	"LetterFlow/internal/queue"
)

// errorBackoff is slept after a loop-level failure (broker down, ack
// failure) so a persistent error cannot spin the loop hot.
const errorBackoff = 5 * time.Second

// Worker drives the queue-to-processor loop: dequeue, process, acknowledge
// or retry-or-kill, forever. One Worker runs one sequential loop; run more
// replicas against the same broker to scale out — the broker's atomic
// pop-and-move means no further coordination is needed.
type Worker struct {
	queue    *queue.DispatchQueue
	registry *processor.Registry
	log      *zap.Logger

	dequeueTimeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(q *queue.DispatchQueue, registry *processor.Registry, log *zap.Logger) *Worker {
	return &Worker{
		queue:          q,
		registry:       registry,
		log:            log,
		dequeueTimeout: queue.DequeueTimeout,
	}
}

// Start spawns the control loop. Calling it while the worker is already
// running is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.log.Warn("dispatch worker already running")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(loopCtx, w.done)
}

// Stop signals the loop and waits for it to exit. The stop is cooperative:
// a job that is mid-processing finishes (ack or retry-or-kill) before the
// loop observes the signal. No new job is dequeued afterwards.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	w.log.Info("dispatch worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("dispatch worker stopped")
			return
		default:
		}

		job, err := w.queue.DequeueBlocking(ctx, w.dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("dispatch worker stopped")
				return
			}
			w.log.Error("dequeue failed", zap.Error(err))
			w.pause(ctx)
			continue
		}
		if job == nil {
			// Timed out empty; the blocking call was the wait.
			continue
		}

		// The job runs on an uncancellable context so Stop never aborts
		// it mid-flight; cancellation is only observed between jobs.
		if err := w.handle(context.WithoutCancel(ctx), job); err != nil {
			w.log.Error("job handling failed", zap.String("job_id", job.ID), zap.Error(err))
			w.pause(ctx)
		}
	}
}

// handle runs one job to a terminal queue transition. The returned error
// covers queue operations only; processor failures are routed to
// RetryOrKill and are not loop errors.
func (w *Worker) handle(ctx context.Context, job *queue.Job) error {
	w.log.Info("processing job",
		zap.String("job_id", job.ID),
		zap.String("job_type", string(job.Type)),
		zap.Int("retry_count", job.RetryCount),
	)

	if procErr := w.process(ctx, job); procErr != nil {
		dead, err := w.queue.RetryOrKill(ctx, job, procErr.Error())
		if err != nil {
			return err
		}
		if dead {
			metrics.JobsDead.Inc()
		} else {
			metrics.JobsRetried.Inc()
		}
		return nil
	}

	if err := w.queue.Acknowledge(ctx, job); err != nil {
		return err
	}
	metrics.JobsAcknowledged.Inc()
	return nil
}

// process dispatches to the registered processor, converting panics into
// job-level errors so one poisonous job cannot take the loop down.
func (w *Worker) process(ctx context.Context, job *queue.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor panic: %v", r)
		}
	}()

	proc, err := w.registry.Get(job.Type)
	if err != nil {
		return err
	}
	return proc.Process(ctx, job.EmailJob)
}

func (w *Worker) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(errorBackoff):
	}
}
