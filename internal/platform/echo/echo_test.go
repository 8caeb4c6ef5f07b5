package echo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessReturnsValidResultForEveryType(t *testing.T) {
	t.Parallel()

	p := New()
	for _, typ := range domain.TaskTypes {
		t.Run(string(typ), func(t *testing.T) {
			t.Parallel()
			out, err := p.Process(context.Background(), domain.Task{Type: typ, Input: "Quarterly revenue grew in every region"})
			require.NoError(t, err)
			assert.Equal(t, typ, out.Result.Kind)
			assert.NoError(t, out.Result.Validate())
			assert.Nil(t, out.Confidence)
		})
	}
}

func TestProcessShapes(t *testing.T) {
	t.Parallel()

	p := New(WithConfidence(0.75))
	ctx := context.Background()

	out, err := p.Process(ctx, domain.Task{Type: domain.TaskClassification, Input: "Urgent billing issue"})
	require.NoError(t, err)
	assert.Equal(t, []domain.Label{{Name: "urgent", Score: 1}}, out.Result.Labels)
	require.NotNil(t, out.Confidence)
	assert.InDelta(t, 0.75, *out.Confidence, 1e-9)

	out, err = p.Process(ctx, domain.Task{Type: domain.TaskSearch, Input: "go  queue heap"})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "queue", "heap"}, out.Result.Items)

	long := strings.Repeat("word ", 40)
	out, err = p.Process(ctx, domain.Task{Type: domain.TaskSummarization, Input: long})
	require.NoError(t, err)
	assert.Len(t, strings.Fields(out.Result.Text), 12)

	out, err = p.Process(ctx, domain.Task{Type: domain.TaskAnalysis, Input: "héllo world"})
	require.NoError(t, err)
	assert.Equal(t, 11, out.Result.Structured["characters"])
	assert.Equal(t, 2, out.Result.Structured["words"])
}

func TestProcessHonoursCancellation(t *testing.T) {
	t.Parallel()

	p := New(WithDelay(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Process(ctx, domain.Task{Type: domain.TaskGeneration, Input: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
