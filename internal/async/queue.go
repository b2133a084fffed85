package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one input file waiting for a run.
type Job struct {
	Path        string
	Force       bool // enqueue even if the same path is already pending
	SubmittedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler runs one job. Its error is logged, never retried.
type Handler func(ctx context.Context, job Job) error

// RunQueue feeds jobs to a fixed set of workers. With one worker, the
// default, runs never overlap.
type RunQueue struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool

	pendingMu sync.Mutex
	pending   map[string]struct{}
}

type Option func(*RunQueue)

func WithWorkers(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunQueue(handle Handler, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		handle:  handle,
		logger:  logger,
		workers: 1,
		timeout: time.Hour,
		ch:      make(chan Job, 64),
		pending: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunQueue) run(workerID int, job Job) {
	defer q.done(job.Path)

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	start := time.Now()
	if err := q.handle(ctx, job); err != nil {
		q.logger.Error("queue.job.failed", "worker_id", workerID, "path", job.Path, "error", err)
		return
	}
	q.logger.Info("queue.job.done",
		"worker_id", workerID,
		"path", job.Path,
		"waited_ms", start.Sub(job.SubmittedAt).Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

func (q *RunQueue) done(path string) {
	q.pendingMu.Lock()
	delete(q.pending, path)
	q.pendingMu.Unlock()
}

// Enqueue blocks while the queue is full. A path already waiting or running
// is skipped unless the job is forced.
func (q *RunQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.pendingMu.Lock()
	if _, ok := q.pending[job.Path]; ok && !job.Force {
		q.pendingMu.Unlock()
		q.logger.Debug("queue.enqueue.duplicate", "path", job.Path)
		return nil
	}
	q.pending[job.Path] = struct{}{}
	q.pendingMu.Unlock()

	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueue.ok", "path", job.Path, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.full", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		q.done(job.Path)
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or ctx
// to end.
func (q *RunQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
}
