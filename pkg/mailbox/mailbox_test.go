package mailbox_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/enginekit/pkg/mailbox"
)

func TestMailbox_FIFO(t *testing.T) {
	t.Parallel()

	mb := mailbox.New[int]()
	for i := range 100 {
		require.NoError(t, mb.Push(i))
	}
	assert.Equal(t, 100, mb.Len())

	ctx := context.Background()
	for i := range 100 {
		v, err := mb.Pop(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestMailbox_PopBlocksUntilPush(t *testing.T) {
	t.Parallel()

	mb := mailbox.New[string]()
	got := make(chan string, 1)
	go func() {
		v, err := mb.Pop(context.Background())
		if err == nil {
			got <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, mb.Push("hello"))

	select {
	case v := <-got:
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up")
	}
}

func TestMailbox_CloseDrainsThenErrors(t *testing.T) {
	t.Parallel()

	mb := mailbox.New[int]()
	require.NoError(t, mb.Push(1))
	require.NoError(t, mb.Push(2))
	mb.Close()
	mb.Close()

	assert.ErrorIs(t, mb.Push(3), mailbox.ErrClosed)
	assert.True(t, mb.Closed())

	ctx := context.Background()
	v, err := mb.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, err = mb.Pop(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = mb.Pop(ctx)
	assert.ErrorIs(t, err, mailbox.ErrClosed)
}

func TestMailbox_PopContextCanceled(t *testing.T) {
	t.Parallel()

	mb := mailbox.New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mb.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMailbox_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	t.Parallel()

	const producers, perProducer = 8, 200
	type item struct{ producer, seq int }

	mb := mailbox.New[item]()
	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range perProducer {
				_ = mb.Push(item{p, i})
			}
		}(p)
	}
	wg.Wait()

	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for range producers * perProducer {
		it, ok := mb.TryPop()
		require.True(t, ok)
		assert.Equal(t, last[it.producer]+1, it.seq)
		last[it.producer] = it.seq
	}
	_, ok := mb.TryPop()
	assert.False(t, ok)
}
