// Package worker runs detached background jobs with bounded concurrency.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"tasktrack/internal/logging"
)

// DefaultConcurrency bounds how many jobs run at once.
const DefaultConcurrency = 4

// Job is one unit of background work.
type Job func(ctx context.Context) error

// Queue runs submitted jobs on their own goroutines. Callers never wait for a
// job; Wait and Close exist for shutdown.
type Queue struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	lim    *rate.Limiter
	logger *slog.Logger

	wg       sync.WaitGroup
	mu       sync.Mutex
	inFlight map[string]int
	closed   bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithConcurrency sets the maximum number of concurrently running jobs.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithRate paces job starts to rps per second. Zero leaves jobs unpaced.
func WithRate(rps float64) Option {
	return func(q *Queue) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			q.lim = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithLogger sets the logger for job failures.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = logging.OrDiscard(l) }
}

// New returns a running Queue.
func New(opts ...Option) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		ctx:      ctx,
		cancel:   cancel,
		sem:      semaphore.NewWeighted(DefaultConcurrency),
		logger:   logging.Discard(),
		inFlight: make(map[string]int),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit schedules job under key and returns immediately. A failing job is
// logged and otherwise dropped. Submit after Close is a no-op and reports false.
func (q *Queue) Submit(key string, job Job) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.inFlight[key]++
	q.wg.Add(1)
	q.mu.Unlock()

	go q.run(key, job)
	return true
}

func (q *Queue) run(key string, job Job) {
	defer q.wg.Done()
	defer q.release(key)

	if err := q.sem.Acquire(q.ctx, 1); err != nil {
		q.logger.Warn("background job dropped", "key", key, "error", err)
		return
	}
	defer q.sem.Release(1)

	if q.lim != nil {
		if err := q.lim.Wait(q.ctx); err != nil {
			q.logger.Warn("background job dropped", "key", key, "error", err)
			return
		}
	}

	if err := job(q.ctx); err != nil {
		q.logger.Warn("background job failed", "key", key, "error", err)
	}
}

func (q *Queue) release(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight[key] <= 1 {
		delete(q.inFlight, key)
		return
	}
	q.inFlight[key]--
}

// InFlight returns the number of unfinished jobs submitted under key.
func (q *Queue) InFlight(key string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight[key]
}

// Pending returns the number of unfinished jobs.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, c := range q.inFlight {
		n += c
	}
	return n
}

// Wait blocks until every submitted job has finished or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and cancels the context of running ones.
// Jobs that have not started are dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
}
