package task

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/aiorch/internal/domain"
)

// ItemStatus represents the current state of a queue item
type ItemStatus string

// Possible item status values
const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
)

// Executor is the unit of work wrapped by a queue item. It receives the
// submitter's context and must honour its cancellation.
type Executor func(ctx context.Context) (any, error)

// Item is a queued execution.
type Item struct {
	ID         uuid.UUID
	Priority   domain.Priority
	EnqueuedAt time.Time
	Retries    int
	MaxRetries int
	Status     ItemStatus

	exec  Executor
	ctx   context.Context
	seq   uint64
	index int
	done  chan outcome
}

// Info is a read-only snapshot of an item handed to observers.
type Info struct {
	ID         uuid.UUID
	Priority   domain.Priority
	EnqueuedAt time.Time
	Retries    int
}

func (it *Item) info() Info {
	return Info{
		ID:         it.ID,
		Priority:   it.Priority,
		EnqueuedAt: it.EnqueuedAt,
		Retries:    it.Retries,
	}
}

type outcome struct {
	value any
	err   error
}

// Observer is notified around every execution attempt.
type Observer interface {
	OnStart(Info)
	OnFinish(Info, error)
}

type nopObserver struct{}

func (nopObserver) OnStart(Info)         {}
func (nopObserver) OnFinish(Info, error) {}

// Stats describes the queue at a point in time.
type Stats struct {
	Queued        int   `json:"queued"`
	InFlight      int   `json:"inFlight"`
	MaxConcurrent int   `json:"maxConcurrent"`
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
	Retried       int64 `json:"retried"`
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
