package events

import (
	"context"
	"errors"
	"log"
	"sync"
)

var ErrBusClosed = errors.New("event bus closed")

// LocalBus delivers events in-process. It is used when no Pub/Sub topic is
// configured.
type LocalBus struct {
	queue  chan TaskEvent
	mu     sync.RWMutex
	closed bool
}

func NewLocalBus(size int) *LocalBus {
	if size <= 0 {
		size = 100
	}
	return &LocalBus{queue: make(chan TaskEvent, size)}
}

// Publish never blocks; events are dropped when the buffer is full
func (b *LocalBus) Publish(ctx context.Context, event TaskEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	select {
	case b.queue <- event:
		return nil
	default:
		log.Printf("[Events] Queue full, dropping %s for task %s", event.Type, event.TaskID)
		return nil
	}
}

func (b *LocalBus) Subscribe(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-b.queue:
			if !ok {
				return nil
			}
			if err := handler(ctx, event); err != nil {
				log.Printf("[Events] Handler error for %s %s: %v", event.Type, event.TaskID, err)
			}
		}
	}
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	return nil
}
