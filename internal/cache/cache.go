package cache

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"golang.org/x/crypto/blake2b"
)

// Value is what gets remembered for a processed task.
type Value struct {
	Result     domain.Result
	ModelUsed  string
	Confidence float64
}

// Entry is a cached result together with the task that produced it.
type Entry struct {
	Fingerprint string
	Task        domain.Task
	Value       Value
	StoredAt    time.Time

	// seq orders entries stored at the same instant.
	seq uint64
}

// Match is a search hit. Similarity is computed at lookup time and is 1 for exact hits.
type Match struct {
	Entry      Entry
	Similarity float64
}

// Stats are cumulative counters plus the current entry count.
type Stats struct {
	Entries     int   `json:"entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// ErrorHook receives failures the cache absorbs. *monitor.Monitor's RecordError fits.
type ErrorHook func(ctx context.Context, taskType domain.TaskType, err error)

// Option configures a Cache.
type Option func(*Cache)

// WithSimilarity replaces the default Jaccard similarity.
func WithSimilarity(s Similarity) Option {
	return func(c *Cache) {
		c.similarity = s
	}
}

// WithErrorHook reports absorbed failures to hook.
func WithErrorHook(hook ErrorHook) Option {
	return func(c *Cache) {
		c.onError = hook
	}
}

// WithClock sets the time source used for StoredAt and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is a bounded, TTL-limited semantic result cache. It is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	maxSize   int
	ttl       time.Duration
	threshold float64

	similarity Similarity
	onError    ErrorHook
	now        func() time.Time
	logger     *slog.Logger

	seq   uint64
	stats Stats
}

// New creates a cache sized and tuned by cfg.
func New(cfg config.CacheConfig, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		entries:    make(map[string]*Entry),
		maxSize:    cfg.MaxSize,
		ttl:        cfg.TTL,
		threshold:  cfg.AcceptThreshold,
		similarity: Jaccard,
		now:        time.Now,
		logger:     logger.With("component", "semantic_cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fingerprint returns the exact-match key for a task: hex BLAKE2b-256 of type and input.
func Fingerprint(t domain.Task) string {
	sum := blake2b.Sum256([]byte(string(t.Type) + "\x00" + t.Input))
	return hex.EncodeToString(sum[:])
}

// SetErrorHook replaces the hook that receives absorbed failures.
func (c *Cache) SetErrorHook(hook ErrorHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = hook
}

// Search returns the exact entry for task if one is live, otherwise the most similar
// live entry of the same task type whose similarity exceeds the acceptance threshold.
// Internal failures are logged, reported to the error hook and treated as a miss.
func (c *Cache) Search(ctx context.Context, task domain.Task) (Match, bool) {
	c.mu.Lock()
	m, ok, failures := c.search(ctx, task)
	hook := c.onError
	c.mu.Unlock()

	c.report(ctx, hook, task.Type, failures)
	return m, ok
}

func (c *Cache) search(ctx context.Context, task domain.Task) (Match, bool, []error) {
	c.expire()

	fp, err := c.safeFingerprint(task)
	if err != nil {
		c.logger.WarnContext(ctx, "cache lookup degraded to miss",
			"error", err,
			"task_type", task.Type)
		c.stats.Misses++
		return Match{}, false, []error{err}
	}

	if e, ok := c.entries[fp]; ok {
		c.stats.Hits++
		return Match{Entry: copyEntry(e), Similarity: 1}, true, nil
	}

	var (
		best      *Entry
		bestScore float64
		failures  []error
	)
	for _, e := range c.entries {
		if e.Task.Type != task.Type {
			continue
		}
		score, err := c.safeScore(task, e.Task)
		if err != nil {
			c.logger.WarnContext(ctx, "similarity scoring failed",
				"error", err,
				"task_type", task.Type)
			failures = append(failures, err)
			continue
		}
		if score > bestScore {
			best, bestScore = e, score
		}
	}

	if best == nil || bestScore <= c.threshold {
		c.stats.Misses++
		return Match{}, false, failures
	}

	c.stats.Hits++
	c.logger.DebugContext(ctx, "similar cache entry found",
		"task_type", task.Type,
		"similarity", bestScore)
	return Match{Entry: copyEntry(best), Similarity: bestScore}, true, failures
}

// Store remembers v for task. At capacity the oldest entry is evicted first; storing
// a fingerprint that already exists replaces that entry in place.
func (c *Cache) Store(ctx context.Context, task domain.Task, v Value) {
	c.mu.Lock()
	fp, err := c.safeFingerprint(task)
	if err != nil {
		hook := c.onError
		c.mu.Unlock()
		c.logger.WarnContext(ctx, "cache store skipped",
			"error", err,
			"task_type", task.Type)
		c.report(ctx, hook, task.Type, []error{err})
		return
	}
	defer c.mu.Unlock()

	if _, exists := c.entries[fp]; !exists && c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.seq++
	v.Result = v.Result.Clone()
	c.entries[fp] = &Entry{
		Fingerprint: fp,
		Task:        task.Clone(),
		Value:       v,
		StoredAt:    c.now(),
		seq:         c.seq,
	}
}

// Len returns the number of entries, including any not yet lazily expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// expire removes entries older than the TTL. Callers must hold c.mu.
func (c *Cache) expire() {
	if c.ttl <= 0 {
		return
	}
	now := c.now()
	for fp, e := range c.entries {
		if now.Sub(e.StoredAt) > c.ttl {
			delete(c.entries, fp)
			c.stats.Expirations++
		}
	}
}

// evictOldest removes the entry with the earliest StoredAt, the first stored
// among equals. Callers must hold c.mu.
func (c *Cache) evictOldest() {
	var oldest *Entry
	for _, e := range c.entries {
		if oldest == nil || olderThan(e, oldest) {
			oldest = e
		}
	}
	if oldest == nil {
		return
	}
	delete(c.entries, oldest.Fingerprint)
	c.stats.Evictions++
	c.logger.Debug("evicted oldest cache entry",
		"task_type", oldest.Task.Type,
		"stored_at", oldest.StoredAt)
}

func olderThan(a, b *Entry) bool {
	if a.StoredAt.Equal(b.StoredAt) {
		return a.seq < b.seq
	}
	return a.StoredAt.Before(b.StoredAt)
}

// report hands absorbed failures to hook. It must be called without c.mu held.
func (c *Cache) report(ctx context.Context, hook ErrorHook, taskType domain.TaskType, failures []error) {
	if hook == nil {
		return
	}
	for _, err := range failures {
		hook(ctx, taskType, err)
	}
}

func (c *Cache) safeFingerprint(t domain.Task) (fp string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: fingerprint: %v", domain.ErrCache, r)
		}
	}()
	return Fingerprint(t), nil
}

func (c *Cache) safeScore(a, b domain.Task) (score float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: similarity: %v", domain.ErrCache, r)
		}
	}()
	return c.similarity.Score(a, b), nil
}

func copyEntry(e *Entry) Entry {
	out := *e
	out.Task = e.Task.Clone()
	out.Value.Result = e.Value.Result.Clone()
	return out
}
