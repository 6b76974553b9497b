package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/core/scheduler"
)

func TestLoop_PostRunsInOrder(t *testing.T) {
	t.Parallel()

	loop := scheduler.NewLoop()
	var got []int
	for i := range 50 {
		require.NoError(t, loop.Post(func() { got = append(got, i) }))
	}
	require.NoError(t, loop.Close(context.Background()))

	want := make([]int, 50)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestLoop_PostAfterClose(t *testing.T) {
	t.Parallel()

	loop := scheduler.NewLoop()
	require.NoError(t, loop.Close(context.Background()))

	assert.ErrorIs(t, loop.Post(func() {}), scheduler.ErrLoopClosed)
	_, err := loop.Go(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, scheduler.ErrLoopClosed)
	assert.True(t, loop.Closed())
}

func TestLoop_CallbackPanicDoesNotStopLoop(t *testing.T) {
	t.Parallel()

	loop := scheduler.NewLoop()
	ran := make(chan struct{})
	require.NoError(t, loop.Post(func() { panic("boom") }))
	require.NoError(t, loop.Post(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("loop stopped after panic")
	}
	require.NoError(t, loop.Close(context.Background()))
}

func TestLoop_Go(t *testing.T) {
	t.Parallel()

	t.Run("resolves_with_task_error", func(t *testing.T) {
		t.Parallel()

		loop := scheduler.NewLoop()
		defer loop.Close(context.Background())

		sentinel := errors.New("task failed")
		f, err := loop.Go(context.Background(), func(context.Context) error { return sentinel })
		require.NoError(t, err)

		_, err = f.AwaitWithTimeout(time.Second)
		assert.ErrorIs(t, err, sentinel)
	})

	t.Run("recovers_panic", func(t *testing.T) {
		t.Parallel()

		loop := scheduler.NewLoop()
		defer loop.Close(context.Background())

		f, err := loop.Go(context.Background(), func(context.Context) error { panic("kaboom") })
		require.NoError(t, err)

		_, err = f.AwaitWithTimeout(time.Second)
		var pe *scheduler.PanicError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "kaboom", pe.Value())
		assert.NotEmpty(t, pe.Stack())
	})

	t.Run("task_context_carries_loop", func(t *testing.T) {
		t.Parallel()

		loop := scheduler.NewLoop()
		defer loop.Close(context.Background())

		f, err := loop.Go(context.Background(), func(ctx context.Context) error {
			got, ok := scheduler.FromContext(ctx)
			if !ok || got != loop {
				return errors.New("loop missing from task context")
			}
			return nil
		})
		require.NoError(t, err)
		_, err = f.AwaitWithTimeout(time.Second)
		assert.NoError(t, err)
	})
}

func TestLoop_CloseWaitsForTasks(t *testing.T) {
	t.Parallel()

	loop := scheduler.NewLoop()
	release := make(chan struct{})
	var finished atomic.Bool

	_, err := loop.Go(context.Background(), func(context.Context) error {
		<-release
		finished.Store(true)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loop.Active())

	closed := make(chan error, 1)
	go func() { closed <- loop.Close(context.Background()) }()

	select {
	case <-closed:
		t.Fatal("close returned while a task was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-closed:
		require.NoError(t, err)
		assert.True(t, finished.Load())
		assert.Equal(t, 0, loop.Active())
	case <-time.After(time.Second):
		t.Fatal("close did not return")
	}
}

func TestLoop_CloseHonorsContext(t *testing.T) {
	t.Parallel()

	loop := scheduler.NewLoop()
	block := make(chan struct{})
	defer close(block)

	_, err := loop.Go(context.Background(), func(context.Context) error {
		<-block
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, loop.Close(ctx), context.DeadlineExceeded)
}

func TestLoop_TasksCanPostWhileClosing(t *testing.T) {
	t.Parallel()

	loop := scheduler.NewLoop()
	var mu sync.Mutex
	var posted bool

	started := make(chan struct{})
	proceed := make(chan struct{})
	_, err := loop.Go(context.Background(), func(context.Context) error {
		close(started)
		<-proceed
		return loop.Post(func() {
			mu.Lock()
			posted = true
			mu.Unlock()
		})
	})
	require.NoError(t, err)
	<-started

	closed := make(chan error, 1)
	go func() { closed <- loop.Close(context.Background()) }()
	time.Sleep(10 * time.Millisecond)
	close(proceed)

	require.NoError(t, <-closed)
	mu.Lock()
	defer mu.Unlock()
	assert.True(t, posted)
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	_, ok := scheduler.FromContext(context.Background())
	assert.False(t, ok)

	loop := scheduler.NewLoop()
	ctx := scheduler.WithLoop(context.Background(), loop)
	got, ok := scheduler.FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, loop, got)

	require.NoError(t, loop.Close(context.Background()))
	_, ok = scheduler.FromContext(ctx)
	assert.False(t, ok, "closed loop must not be borrowed")
}
