// Package async provides a small in-process queue for background
// receipt processing.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is the smallest useful unit. Extend as needed later (retry,
// priorities, etc).
type Job struct {
	FileID      uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// ErrQueueFull is returned when the queue buffer is saturated; callers
// should surface backpressure rather than block a request handler.
var ErrQueueFull = errors.New("process queue full")

// WorkerQueue runs jobs on a fixed pool of goroutines over a bounded
// channel.
type WorkerQueue struct {
	jobs   chan Job
	fn     func(context.Context, Job)
	logger *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorkerQueue starts workers goroutines draining a buffer-sized
// channel into fn. fn must absorb its own errors; the queue only logs.
func NewWorkerQueue(workers, buffer int, fn func(context.Context, Job), logger *slog.Logger) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 16
	}
	q := &WorkerQueue{
		jobs:   make(chan Job, buffer),
		fn:     fn,
		logger: logger,
		stop:   make(chan struct{}),
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

func (q *WorkerQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stop:
			return
		case job := <-q.jobs:
			start := time.Now()
			q.fn(context.Background(), job)
			q.logger.Debug("async.job.done",
				"file_id", job.FileID,
				"trace_id", job.TraceID,
				"queued_ms", start.Sub(job.SubmittedAt).Milliseconds(),
				"run_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}

func (q *WorkerQueue) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops the workers. In-flight jobs finish; queued jobs are
// dropped. Returns when workers exit or ctx expires.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.stopOnce.Do(func() { close(q.stop) })
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.timeout")
	}
}
