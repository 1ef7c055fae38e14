package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"LetterFlow/internal/metrics"
	"LetterFlow/internal/queue"
)

// PollQueueStats publishes the three list depths as gauges until ctx is
// cancelled. Run it as its own goroutine; a failed poll is logged and the
// next tick tries again.
func PollQueueStats(ctx context.Context, q *queue.DispatchQueue, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := q.Stats(ctx)
			if err != nil {
				log.Warn("queue stats poll failed", zap.Error(err))
				continue
			}
			metrics.QueuePending.Set(float64(stats.Pending))
			metrics.QueueInFlight.Set(float64(stats.InFlight))
			metrics.QueueDead.Set(float64(stats.Dead))
		}
	}
}
