package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	lookupCacheEntries = 10_000
	businessKeyPrefix  = "business:"
	prefsKeyPrefix     = "prefs:"
)

// ErrorHook receives lookup failures the enricher absorbs.
type ErrorHook func(ctx context.Context, taskType domain.TaskType, err error)

// Option configures an Enricher.
type Option func(*Enricher)

// WithClock sets the time source for context timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) {
		e.now = now
	}
}

// WithErrorHook reports failed, timed out or panicking lookups to hook.
func WithErrorHook(hook ErrorHook) Option {
	return func(e *Enricher) {
		e.onError = hook
	}
}

// Enricher builds the TaskContext for a task. Lookups that fail or time out
// degrade to empty values; enrichment itself never fails.
type Enricher struct {
	business BusinessContextProvider
	prefs    PreferenceStore
	history  *History
	lookups  *ristretto.Cache[string, map[string]any]

	cacheTTL time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger

	hookMu  sync.RWMutex
	onError ErrorHook
}

// New creates an Enricher. Any of business, prefs and history may be nil.
func New(
	cfg config.EnrichConfig,
	business BusinessContextProvider,
	prefs PreferenceStore,
	history *History,
	logger *slog.Logger,
	opts ...Option,
) (*Enricher, error) {
	lookups, err := ristretto.NewCache(&ristretto.Config[string, map[string]any]{
		NumCounters: lookupCacheEntries * 10,
		MaxCost:     lookupCacheEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}

	e := &Enricher{
		business: business,
		prefs:    prefs,
		history:  history,
		lookups:  lookups,
		cacheTTL: cfg.CacheTTL,
		timeout:  cfg.LookupTimeout,
		now:      time.Now,
		logger:   logger.With("component", "context_enricher"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Enrich returns a copy of task carrying its resolved context. The original is untouched.
func (e *Enricher) Enrich(ctx context.Context, task domain.Task, userID string) domain.Task {
	tc := domain.TaskContext{
		Timestamp: e.now(),
		SessionID: task.SessionID,
		UserID:    userID,
	}
	if e.history != nil {
		tc.RecentTasks = e.history.Recent(task.SessionID)
	}

	if userID != "" {
		var business, prefs map[string]any
		g, gctx := errgroup.WithContext(ctx)
		if e.business != nil {
			g.Go(func() error {
				business = e.lookup(gctx, task.Type, businessKeyPrefix+userID, func(ctx context.Context) (map[string]any, error) {
					return e.business.BusinessContext(ctx, userID)
				})
				return nil
			})
		}
		if e.prefs != nil {
			g.Go(func() error {
				prefs = e.lookup(gctx, task.Type, prefsKeyPrefix+userID, func(ctx context.Context) (map[string]any, error) {
					return e.prefs.Preferences(ctx, userID)
				})
				return nil
			})
		}
		_ = g.Wait() // lookups swallow their own errors
		tc.Business = business
		tc.Preferences = prefs
	}

	return task.WithContext(tc)
}

// History returns the session history the enricher reads from, if any.
func (e *Enricher) History() *History {
	return e.history
}

// SetErrorHook replaces the hook that receives absorbed lookup failures.
func (e *Enricher) SetErrorHook(hook ErrorHook) {
	e.hookMu.Lock()
	defer e.hookMu.Unlock()
	e.onError = hook
}

// Close releases the lookup cache.
func (e *Enricher) Close() {
	e.lookups.Close()
}

// lookup serves key from the cache or calls fetch under the lookup timeout.
// A panicking fetch is treated like a failed one.
func (e *Enricher) lookup(
	ctx context.Context,
	taskType domain.TaskType,
	key string,
	fetch func(context.Context) (map[string]any, error),
) map[string]any {
	if v, ok := e.lookups.Get(key); ok {
		return v
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	type fetched struct {
		values map[string]any
		err    error
	}
	done := make(chan fetched, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetched{err: fmt.Errorf("lookup panicked: %v", r)}
			}
		}()
		v, err := fetch(ctx)
		done <- fetched{values: v, err: err}
	}()

	var (
		v   map[string]any
		err error
	)
	select {
	case f := <-done:
		v, err = f.values, f.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		e.logger.WarnContext(ctx, "context lookup failed, continuing without it",
			"key", key,
			"error", err)
		e.hookMu.RLock()
		hook := e.onError
		e.hookMu.RUnlock()
		if hook != nil {
			hook(ctx, taskType, fmt.Errorf("%w: %s: %w", domain.ErrEnrichment, key, err))
		}
		return nil
	}

	e.lookups.SetWithTTL(key, v, 1, e.cacheTTL)
	return v
}
