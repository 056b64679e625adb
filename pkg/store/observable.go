package store

import "sync"

// observable holds one store's state and its subscribers. Every mutation runs
// under the lock; listeners are called afterwards with the new snapshot.
type observable[S any] struct {
	mu        sync.Mutex
	state     S
	nextID    int
	listeners map[int]func(S)
}

func newObservable[S any](initial S) *observable[S] {
	return &observable[S]{state: initial, listeners: make(map[int]func(S))}
}

func (o *observable[S]) get() S {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// update applies fn to the state. fn returns false to leave the state
// untouched, in which case no listener is notified.
func (o *observable[S]) update(fn func(*S) bool) bool {
	o.mu.Lock()
	next := o.state
	if !fn(&next) {
		o.mu.Unlock()
		return false
	}
	o.state = next
	listeners := make([]func(S), 0, len(o.listeners))
	for _, l := range o.listeners {
		listeners = append(listeners, l)
	}
	o.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return true
}

// set is update for mutations that always apply.
func (o *observable[S]) set(fn func(*S)) {
	o.update(func(s *S) bool {
		fn(s)
		return true
	})
}

func (o *observable[S]) subscribe(fn func(S)) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.listeners, id)
			o.mu.Unlock()
		})
	}
}
