package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalBusDeliversInOrder(t *testing.T) {
	bus := NewLocalBus(10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Subscribe(ctx, func(ctx context.Context, event TaskEvent) error {
			mu.Lock()
			got = append(got, event.TaskID)
			mu.Unlock()
			return nil
		})
	}()

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, bus.Publish(ctx, TaskEvent{Type: TaskCreated, TaskID: id}))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"t1", "t2", "t3"}, got)

	require.NoError(t, bus.Close())
	<-done
}

func TestLocalBusDropsWhenFull(t *testing.T) {
	bus := NewLocalBus(1)
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, TaskEvent{TaskID: "a"}))
	require.NoError(t, bus.Publish(ctx, TaskEvent{TaskID: "b"}))
	assert.Len(t, bus.queue, 1)
}

func TestLocalBusPublishAfterClose(t *testing.T) {
	bus := NewLocalBus(1)
	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(context.Background(), TaskEvent{TaskID: "a"}), ErrBusClosed)
}
