package monitor

import (
	"time"

	"github.com/phrazzld/aiorch/internal/domain"
)

// Kind identifies what a metric measures.
type Kind string

// Metric kinds.
const (
	KindProcessingTime Kind = "processing_time"
	KindCacheHit       Kind = "cache_hit"
	KindError          Kind = "error"
	KindModelUsage     Kind = "model_usage"
)

// Metric is a single entry in the log.
type Metric struct {
	Kind      Kind
	Value     float64
	Timestamp time.Time
	TaskType  domain.TaskType
	Model     string
	ErrorKind string
}

// ring is a fixed capacity FIFO that overwrites its oldest element when full.
// Entries are kept in append order, which is also timestamp order.
type ring struct {
	buf  []Metric
	head int
	size int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]Metric, capacity)}
}

func (r *ring) push(m Metric) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = m
		r.size++
		return
	}
	r.buf[r.head] = m
	r.head = (r.head + 1) % len(r.buf)
}

// dropOlderThan removes leading entries stamped before cutoff and returns how many went.
func (r *ring) dropOlderThan(cutoff time.Time) int {
	dropped := 0
	for r.size > 0 && r.buf[r.head].Timestamp.Before(cutoff) {
		r.buf[r.head] = Metric{}
		r.head = (r.head + 1) % len(r.buf)
		r.size--
		dropped++
	}
	return dropped
}

// each calls fn for every entry from oldest to newest.
func (r *ring) each(fn func(Metric)) {
	for i := 0; i < r.size; i++ {
		fn(r.buf[(r.head+i)%len(r.buf)])
	}
}

func (r *ring) len() int {
	return r.size
}
