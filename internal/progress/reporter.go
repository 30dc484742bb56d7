// Package progress delivers asynchronous status updates to the
// metadata store without blocking pipeline workers. Updates carry
// absolute counts, so a dropped or reordered delivery costs at most a
// momentarily stale display, never a corrupted one.
package progress

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/facedex/internal/metrics"
)

// ReportEvery is the progress throttle: an update is due every N items
// and always on the final one.
const ReportEvery = 10

// Due reports whether a progress update should be emitted for the
// given absolute processed count.
func Due(processed, total int) bool {
	return processed%ReportEvery == 0 || processed == total
}

// ApplyFunc persists one absolute progress count.
type ApplyFunc func(ctx context.Context, processed int) error

// Reporter is a bounded-queue asynchronous progress sink. A single
// consumer goroutine applies updates in arrival order; Report never
// blocks and drops updates when the queue is full.
type Reporter struct {
	apply  ApplyFunc
	ch     chan int
	wg     sync.WaitGroup
	once   sync.Once
	logger *zap.Logger
}

// NewReporter starts a reporter with the given queue capacity. ctx
// bounds the apply calls, not the queue: Close drains what was queued.
func NewReporter(ctx context.Context, apply ApplyFunc, buffer int, logger *zap.Logger) *Reporter {
	if buffer <= 0 {
		buffer = 16
	}
	r := &Reporter{
		apply:  apply,
		ch:     make(chan int, buffer),
		logger: logger,
	}
	r.wg.Add(1)
	go r.run(ctx)
	return r
}

func (r *Reporter) run(ctx context.Context) {
	defer r.wg.Done()
	for processed := range r.ch {
		if err := r.apply(ctx, processed); err != nil {
			r.logger.Warn("progress update failed",
				zap.Int("processed", processed),
				zap.Error(err),
			)
		}
	}
}

// Report queues an absolute processed count. Non-blocking; a full
// queue drops the update and counts the drop.
func (r *Reporter) Report(processed int) {
	select {
	case r.ch <- processed:
	default:
		metrics.ProgressUpdatesDropped.Inc()
		r.logger.Debug("progress update dropped", zap.Int("processed", processed))
	}
}

// Close stops accepting updates and waits for queued ones to be applied.
func (r *Reporter) Close() {
	r.once.Do(func() { close(r.ch) })
	r.wg.Wait()
}
