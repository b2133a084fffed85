package async_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/orderbridge/internal/async"
)

func TestRunQueue_RunsSequentially(t *testing.T) {
	var (
		mu      sync.Mutex
		order   []string
		running atomic.Int32
		overlap atomic.Bool
	)
	q := async.NewRunQueue(func(_ context.Context, job async.Job) error {
		if running.Add(1) > 1 {
			overlap.Store(true)
		}
		defer running.Add(-1)
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		order = append(order, job.Path)
		mu.Unlock()
		return nil
	}, nil)

	for _, p := range []string{"a.csv", "b.csv", "c.csv"} {
		require.NoError(t, q.Enqueue(t.Context(), async.Job{Path: p}))
	}
	q.Shutdown(t.Context())

	assert.Equal(t, []string{"a.csv", "b.csv", "c.csv"}, order)
	assert.False(t, overlap.Load())
}

func TestRunQueue_SkipsPendingDuplicates(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	q := async.NewRunQueue(func(context.Context, async.Job) error {
		calls.Add(1)
		<-release
		return nil
	}, nil)

	require.NoError(t, q.Enqueue(t.Context(), async.Job{Path: "a.csv"}))
	require.NoError(t, q.Enqueue(t.Context(), async.Job{Path: "a.csv"}))
	require.NoError(t, q.Enqueue(t.Context(), async.Job{Path: "a.csv", Force: true}))
	close(release)
	q.Shutdown(t.Context())

	assert.Equal(t, int32(2), calls.Load())
}

func TestRunQueue_ErrorsDoNotStopWorker(t *testing.T) {
	var calls atomic.Int32
	q := async.NewRunQueue(func(context.Context, async.Job) error {
		calls.Add(1)
		return errors.New("boom")
	}, nil)

	require.NoError(t, q.Enqueue(t.Context(), async.Job{Path: "a.csv"}))
	require.NoError(t, q.Enqueue(t.Context(), async.Job{Path: "b.csv"}))
	q.Shutdown(t.Context())

	assert.Equal(t, int32(2), calls.Load())
}

func TestRunQueue_ClosedRejects(t *testing.T) {
	q := async.NewRunQueue(func(context.Context, async.Job) error { return nil }, nil)
	q.Shutdown(t.Context())
	assert.ErrorIs(t, q.Enqueue(t.Context(), async.Job{Path: "a.csv"}), async.ErrQueueClosed)
}
