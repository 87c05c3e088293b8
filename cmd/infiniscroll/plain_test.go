package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mmcdole/infiniscroll/internal/domain"
	"github.com/mmcdole/infiniscroll/internal/feed"
	"github.com/mmcdole/infiniscroll/internal/source/synthetic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	failures int
	inner    domain.ItemSource
}

func (f *flakySource) FetchBatch(ctx context.Context, offset, count int) ([]domain.Item, error) {
	if f.failures > 0 {
		f.failures--
		return nil, domain.ErrSourceUnavailable
	}
	return f.inner.FetchBatch(ctx, offset, count)
}

func TestRunPlain_PrintsSeedAndBatches(t *testing.T) {
	gen := synthetic.NewGenerator(0, 0)
	ctrl := feed.NewController(gen, 5, feed.WithInitialItems(gen.Seed(5)))

	var out bytes.Buffer
	require.NoError(t, runPlain(context.Background(), ctrl, 2, &out, false))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 17)
	assert.Equal(t, "1\t1", lines[0])
	assert.Equal(t, "-- batch 1: 5 new, 10 total", lines[10])
	assert.Equal(t, "15\t15", lines[15])
	assert.Equal(t, "-- batch 2: 5 new, 15 total", lines[16])
}

func TestRunPlain_StopsWhenExhausted(t *testing.T) {
	ctrl := feed.NewController(synthetic.NewGenerator(0, 7), 5)

	var out bytes.Buffer
	require.NoError(t, runPlain(context.Background(), ctrl, 10, &out, false))

	assert.Contains(t, out.String(), "-- batch 2: 2 new, 7 total")
	assert.Contains(t, out.String(), "End of list (7 items)")
	assert.NotContains(t, out.String(), "batch 3")
}

func TestRunPlain_FailureIsRetried(t *testing.T) {
	src := &flakySource{failures: 1, inner: synthetic.NewGenerator(0, 0)}
	ctrl := feed.NewController(src, 3)

	var out bytes.Buffer
	require.NoError(t, runPlain(context.Background(), ctrl, 2, &out, false))

	assert.Contains(t, out.String(), "✗ batch 1 failed")
	assert.Contains(t, out.String(), "-- batch 2: 3 new, 3 total")
	assert.Equal(t, 3, ctrl.Len())
}

func TestRunPlain_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctrl := feed.NewController(synthetic.NewGenerator(synthetic.DefaultDelay, 0), 3)
	err := runPlain(ctx, ctrl, 1, &bytes.Buffer{}, false)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadWithSpinner(t *testing.T) {
	ctrl := feed.NewController(synthetic.NewGenerator(0, 0), 4)

	var out bytes.Buffer
	require.NoError(t, loadWithSpinner(context.Background(), ctrl, &out, true))
	assert.Equal(t, 4, ctrl.Len())
	assert.True(t, strings.HasSuffix(out.String(), clearSpinnerLine))
}
