package model

import "sync"

// Listener 接收模型值的變更通知
type Listener[T any] interface {
	Accept(T)
}

// FuncListener adapts a plain function to Listener. It is always handed out
// as a pointer so that AddListener and RemoveListener can work on identity.
type FuncListener[T any] struct {
	fn func(T)
}

// NewListener wraps fn. Two calls with the same fn produce two distinct
// listeners.
func NewListener[T any](fn func(T)) *FuncListener[T] {
	return &FuncListener[T]{fn: fn}
}

// Accept invokes the wrapped function.
func (l *FuncListener[T]) Accept(v T) {
	if l.fn != nil {
		l.fn(v)
	}
}

// listenerSet is a copy-on-write set keyed on listener identity. Listeners
// must have a comparable dynamic type (pointers in practice).
type listenerSet[T any] struct {
	mu    sync.Mutex
	items []Listener[T]
}

func (s *listenerSet[T]) add(l Listener[T]) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing == l {
			return
		}
	}
	next := make([]Listener[T], len(s.items), len(s.items)+1)
	copy(next, s.items)
	s.items = append(next, l)
}

func (s *listenerSet[T]) remove(l Listener[T]) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.items {
		if existing != l {
			continue
		}
		next := make([]Listener[T], 0, len(s.items)-1)
		next = append(next, s.items[:i]...)
		s.items = append(next, s.items[i+1:]...)
		return
	}
}

func (s *listenerSet[T]) snapshot() []Listener[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items
}

func (s *listenerSet[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// notify fans v out to a snapshot of the set. No lock is held while
// listeners run, so a listener may mutate this set or any model.
func (s *listenerSet[T]) notify(v T) {
	for _, l := range s.snapshot() {
		l.Accept(v)
	}
}
