package notify

import (
	"sync"
	"time"
)

const defaultBufferSize = 64

// Bus fans notifications out to subscribers on a dedicated goroutine.
// Notify never blocks: when the buffer is full the notification is dropped
// and counted.
type Bus struct {
	ch chan Notification

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Notification)
	closed    bool
	dropped   int

	done chan struct{}
}

// NewBus starts a bus with the given buffer size (64 when <= 0).
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	b := &Bus{
		ch:        make(chan Notification, buffer),
		listeners: make(map[int]func(Notification)),
		done:      make(chan struct{}),
	}
	go b.run()
	return b
}

// Notify enqueues n for delivery.
func (b *Bus) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- n:
	default:
		b.dropped++
	}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Notification)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Dropped returns how many notifications were discarded on a full buffer.
func (b *Bus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close stops accepting notifications and waits until the queued ones have
// been delivered. It is safe to call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
	b.mu.Unlock()
	<-b.done
}

func (b *Bus) run() {
	defer close(b.done)
	for n := range b.ch {
		b.mu.Lock()
		listeners := make([]func(Notification), 0, len(b.listeners))
		for _, fn := range b.listeners {
			listeners = append(listeners, fn)
		}
		b.mu.Unlock()

		for _, fn := range listeners {
			fn(n)
		}
	}
}
