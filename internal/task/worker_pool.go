package task

import (
	"container/heap"
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/aiorch/internal/domain"
)

// dispatch claims a free slot, then takes the highest priority item waiting at
// that moment. Holding the slot first keeps a lower priority item from starting
// ahead of one that arrives while no slot is free.
func (q *Queue) dispatch() {
	defer q.wg.Done()

	q.logger.Debug("dispatcher started")

	for {
		if err := q.slots.Acquire(q.ctx, 1); err != nil {
			q.logger.Debug("dispatcher stopped")
			return
		}

		it := q.next()
		if it == nil {
			q.slots.Release(1)
			q.logger.Debug("dispatcher stopped")
			return
		}

		q.wg.Add(1)
		go q.execute(it)
	}
}

// next blocks until an item is pending or the queue is stopped.
func (q *Queue) next() *Item {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			it := heap.Pop(&q.pending).(*Item)
			it.Status = ItemStatusProcessing
			q.processing[it.ID] = it
			q.mu.Unlock()
			return it
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-q.ctx.Done():
			return nil
		}
	}
}

// execute runs one attempt of it in the slot acquired by the dispatcher.
func (q *Queue) execute(it *Item) {
	defer q.wg.Done()
	defer q.slots.Release(1)

	info := it.info()
	logger := q.logger.With(
		"item_id", it.ID,
		"priority", it.Priority,
		"attempt", it.Retries+1,
	)

	q.observer.OnStart(info)
	start := time.Now()

	value, err := q.run(it)

	q.observer.OnFinish(info, err)

	if err != nil {
		logger.Warn("execution attempt failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
	} else {
		logger.Debug("execution completed",
			"duration_ms", time.Since(start).Milliseconds())
	}

	q.finish(it, value, err)
}

// run calls the executor, turning a panic into an error.
func (q *Queue) run(it *Item) (value any, err error) {
	if err := it.ctx.Err(); err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panicked: %v", r)
		}
	}()
	return it.exec(it.ctx)
}

// finish either completes it, re-enqueues it for another attempt, or fails it.
func (q *Queue) finish(it *Item, value any, err error) {
	q.mu.Lock()
	delete(q.processing, it.ID)

	if err == nil {
		it.Status = ItemStatusCompleted
		q.stats.Completed++
		q.mu.Unlock()
		it.done <- outcome{value: value}
		return
	}

	if !q.closed && retryable(it, err) {
		it.Retries++
		q.stats.Retried++
		q.enqueue(it)
		q.mu.Unlock()
		q.signal()
		return
	}

	it.Status = ItemStatusFailed
	q.stats.Failed++
	q.mu.Unlock()

	it.done <- outcome{err: q.terminalError(it, err)}
}

func (q *Queue) terminalError(it *Item, err error) error {
	if !errors.Is(err, domain.ErrProcessing) {
		err = fmt.Errorf("%w: %w", domain.ErrProcessing, err)
	}
	if !retryableError(it, err) {
		return err
	}
	if it.Retries < it.MaxRetries {
		// retries were left but the queue stopped underneath the item
		return fmt.Errorf("%w: %w", ErrQueueClosed, err)
	}
	q.logger.Error("item failed after all retries",
		"item_id", it.ID,
		"attempts", it.Retries+1,
		"error", err)
	return fmt.Errorf("%w after %d attempts: %w", domain.ErrQueueExhausted, it.Retries+1, err)
}
