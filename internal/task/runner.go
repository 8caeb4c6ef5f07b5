package task

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"golang.org/x/sync/semaphore"
)

// Option configures a Queue.
type Option func(*Queue)

// WithObserver installs an observer notified around every execution attempt.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// Queue is a priority-ordered executor with a fixed number of concurrent slots.
// Items of a higher priority always start before items of a lower one; items of
// equal priority start in submission order.
type Queue struct {
	mu         sync.Mutex
	pending    itemHeap
	processing map[uuid.UUID]*Item
	seq        uint64
	started    bool
	closed     bool
	stats      Stats

	maxConcurrent int
	maxRetries    int
	slots         *semaphore.Weighted
	wake          chan struct{}

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	observer Observer
	logger   *slog.Logger
}

// NewQueue creates a queue. Nothing is dispatched until Start is called.
func NewQueue(cfg config.QueueConfig, logger *slog.Logger, opts ...Option) *Queue {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
		logger.Warn("invalid max concurrency specified, using default",
			"specified", cfg.MaxConcurrent,
			"default", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		processing:    make(map[uuid.UUID]*Item),
		maxConcurrent: maxConcurrent,
		maxRetries:    cfg.MaxRetries,
		slots:         semaphore.NewWeighted(int64(maxConcurrent)),
		wake:          make(chan struct{}, 1),
		ctx:           ctx,
		cancelFunc:    cancel,
		observer:      nopObserver{},
		logger:        logger.With("component", "task_queue"),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start launches the dispatcher.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.started {
		return nil
	}
	q.started = true

	q.wg.Add(1)
	go q.dispatch()

	q.logger.Info("task queue started",
		"max_concurrent", q.maxConcurrent,
		"max_retries", q.maxRetries)
	return nil
}

// Stop rejects new submissions, fails every item still waiting with
// ErrQueueClosed and waits for running executions to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	abandoned := len(q.pending)
	for _, it := range q.pending {
		it.index = -1
		it.Status = ItemStatusFailed
		it.done <- outcome{err: ErrQueueClosed}
	}
	q.pending = nil
	q.mu.Unlock()

	q.cancelFunc()
	q.wg.Wait()

	q.logger.Info("task queue stopped", "abandoned", abandoned)
}

// Process submits exec at the given priority and blocks until it succeeds, fails
// for good, or ctx is done. Failed attempts are retried up to the configured
// limit unless the error is marked Permanent or ctx has ended. Once retries are
// used up the error wraps domain.ErrQueueExhausted and domain.ErrProcessing.
func (q *Queue) Process(ctx context.Context, exec Executor, priority domain.Priority) (any, error) {
	if exec == nil {
		return nil, ErrNilExecutor
	}

	it := &Item{
		ID:         uuid.New(),
		Priority:   priority,
		EnqueuedAt: time.Now(),
		MaxRetries: q.maxRetries,
		Status:     ItemStatusPending,
		exec:       exec,
		ctx:        ctx,
		index:      -1,
		done:       make(chan outcome, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	q.enqueue(it)
	q.mu.Unlock()
	q.signal()

	q.logger.DebugContext(ctx, "item enqueued",
		"item_id", it.ID,
		"priority", priority)

	select {
	case out := <-it.done:
		return out.value, out.err
	case <-ctx.Done():
		if q.remove(it) {
			return nil, fmt.Errorf("waiting in queue: %w", ctx.Err())
		}
		// Already running; the executor observes the same ctx and its
		// outcome lands in the buffered channel.
		return nil, fmt.Errorf("item %s: %w", it.ID, ctx.Err())
	}
}

// Stats returns queue depth, in-flight count and cumulative counters.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := q.stats
	s.Queued = len(q.pending)
	s.InFlight = len(q.processing)
	s.MaxConcurrent = q.maxConcurrent
	return s
}

// enqueue pushes it at the tail of its tier. Callers must hold q.mu.
func (q *Queue) enqueue(it *Item) {
	q.seq++
	it.seq = q.seq
	it.Status = ItemStatusPending
	heap.Push(&q.pending, it)
}

// remove takes it out of the pending heap. It reports false if it already started.
func (q *Queue) remove(it *Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if it.index < 0 {
		return false
	}
	heap.Remove(&q.pending, it.index)
	it.Status = ItemStatusFailed
	return true
}

// signal wakes the dispatcher without blocking.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func retryable(it *Item, err error) bool {
	return it.Retries < it.MaxRetries && retryableError(it, err)
}

// retryableError reports whether err is the kind of failure another attempt could fix.
func retryableError(it *Item, err error) bool {
	if IsPermanent(err) || it.ctx.Err() != nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
