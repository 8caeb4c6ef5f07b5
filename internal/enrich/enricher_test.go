package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls  atomic.Int32
	values map[string]any
	err    error
	delay  time.Duration
}

func (p *countingProvider) BusinessContext(ctx context.Context, _ string) (map[string]any, error) {
	return p.fetch(ctx)
}

func (p *countingProvider) Preferences(ctx context.Context, _ string) (map[string]any, error) {
	return p.fetch(ctx)
}

func (p *countingProvider) fetch(ctx context.Context) (map[string]any, error) {
	p.calls.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return p.values, p.err
}

func testConfig() config.EnrichConfig {
	return config.EnrichConfig{
		CacheTTL:      time.Minute,
		HistorySize:   3,
		LookupTimeout: 50 * time.Millisecond,
	}
}

type panickingProvider struct{}

func (panickingProvider) BusinessContext(context.Context, string) (map[string]any, error) {
	panic("provider bug")
}

func (panickingProvider) Preferences(context.Context, string) (map[string]any, error) {
	panic("provider bug")
}

// errorRecorder collects hook calls from concurrent lookups.
type errorRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errorRecorder) hook(_ context.Context, _ domain.TaskType, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *errorRecorder) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func newTestEnricher(
	t *testing.T,
	business BusinessContextProvider,
	prefs PreferenceStore,
	history *History,
	opts ...Option,
) *Enricher {
	t.Helper()
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	e, err := New(testConfig(), business, prefs, history,
		slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestEnrich_ResolvesContext(t *testing.T) {
	t.Parallel()

	store := NewMapStore()
	store.SetBusinessContext("u1", map[string]any{"industry": "retail"})
	store.SetPreferences("u1", map[string]any{"language": "de"})
	history := NewHistory(3)
	history.Append("s1", domain.TaskSearch)

	e := newTestEnricher(t, store, store, history)
	original := domain.Task{Type: domain.TaskAnalysis, Input: "numbers", SessionID: "s1"}

	enriched := e.Enrich(context.Background(), original, "u1")

	require.NotNil(t, enriched.Context)
	assert.Nil(t, original.Context, "caller's task is not mutated")
	assert.Equal(t, "s1", enriched.Context.SessionID)
	assert.Equal(t, "u1", enriched.Context.UserID)
	assert.Equal(t, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), enriched.Context.Timestamp)
	assert.Equal(t, []domain.TaskType{domain.TaskSearch}, enriched.Context.RecentTasks)
	assert.Equal(t, "retail", enriched.Context.Business["industry"])
	assert.Equal(t, "de", enriched.Context.Preferences["language"])
}

func TestEnrich_DegradesOnFailure(t *testing.T) {
	t.Parallel()

	failing := &countingProvider{err: errors.New("crm down")}
	slow := &countingProvider{values: map[string]any{"late": true}, delay: time.Second}
	rec := &errorRecorder{}
	e := newTestEnricher(t, failing, slow, nil, WithErrorHook(rec.hook))

	start := time.Now()
	enriched := e.Enrich(context.Background(), domain.Task{Type: domain.TaskSearch, Input: "q", SessionID: "s"}, "u")

	assert.Less(t, time.Since(start), 500*time.Millisecond, "lookups are bounded by the timeout")
	require.NotNil(t, enriched.Context)
	assert.Equal(t, "s", enriched.Context.SessionID)
	assert.False(t, enriched.Context.Timestamp.IsZero())
	assert.Nil(t, enriched.Context.Business)
	assert.Nil(t, enriched.Context.Preferences)

	errs := rec.all()
	require.Len(t, errs, 2, "both absorbed failures are reported")
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrEnrichment)
	}
}

func TestEnrich_SurvivesPanickingProvider(t *testing.T) {
	t.Parallel()

	rec := &errorRecorder{}
	e := newTestEnricher(t, panickingProvider{}, panickingProvider{}, nil)
	e.SetErrorHook(rec.hook)
	task := domain.Task{Type: domain.TaskSupport, Input: "help", SessionID: "s1"}

	var enriched domain.Task
	require.NotPanics(t, func() {
		enriched = e.Enrich(context.Background(), task, "user-1")
	})

	require.NotNil(t, enriched.Context)
	assert.Equal(t, "user-1", enriched.Context.UserID)
	assert.Nil(t, enriched.Context.Business)
	assert.Nil(t, enriched.Context.Preferences)

	errs := rec.all()
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, domain.ErrEnrichment)
		assert.Contains(t, err.Error(), "lookup panicked: provider bug")
	}
}

func TestEnrich_CachesLookups(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{values: map[string]any{"tier": "gold"}}
	e := newTestEnricher(t, provider, nil, nil)
	task := domain.Task{Type: domain.TaskSearch, Input: "q"}

	e.Enrich(context.Background(), task, "u")
	e.lookups.Wait()
	enriched := e.Enrich(context.Background(), task, "u")

	assert.Equal(t, int32(1), provider.calls.Load())
	assert.Equal(t, "gold", enriched.Context.Business["tier"])
}

func TestEnrich_AnonymousSkipsLookups(t *testing.T) {
	t.Parallel()

	provider := &countingProvider{values: map[string]any{"x": 1}}
	e := newTestEnricher(t, provider, provider, nil)

	enriched := e.Enrich(context.Background(), domain.Task{Type: domain.TaskSearch, Input: "q"}, "")

	assert.Zero(t, provider.calls.Load())
	assert.Empty(t, enriched.Context.UserID)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	h := NewHistory(2)
	h.Append("", domain.TaskSearch)
	h.Append("s", domain.TaskSearch)
	h.Append("s", domain.TaskAnalysis)
	h.Append("s", domain.TaskPlanning)

	assert.Equal(t, []domain.TaskType{domain.TaskAnalysis, domain.TaskPlanning}, h.Recent("s"))
	assert.Empty(t, h.Recent(""))

	recent := h.Recent("s")
	recent[0] = domain.TaskSupport
	assert.Equal(t, domain.TaskAnalysis, h.Recent("s")[0])
}

func TestHistory_HandleEvent(t *testing.T) {
	t.Parallel()

	h := NewHistory(5)
	ctx := context.Background()

	completed, err := events.NewTaskEvent(events.TypeTaskCompleted, events.TaskOutcome{
		TaskType:  domain.TaskTranslation,
		SessionID: "s",
	})
	require.NoError(t, err)
	failed, err := events.NewTaskEvent(events.TypeTaskFailed, events.TaskOutcome{
		TaskType:  domain.TaskSearch,
		SessionID: "s",
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleEvent(ctx, completed))
	require.NoError(t, h.HandleEvent(ctx, failed))

	assert.Equal(t, []domain.TaskType{domain.TaskTranslation}, h.Recent("s"))

	broken := &events.TaskEvent{Type: events.TypeTaskCompleted, Payload: []byte("{")}
	assert.Error(t, h.HandleEvent(ctx, broken))
}
