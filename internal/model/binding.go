package model

import "sync"

// Binding keeps one listener attached to a switchable model. The listener
// receives the current value on bind and on every switch.
type Binding[T comparable] struct {
	mu       sync.Mutex
	model    Model[T]
	listener Listener[T]
	bound    bool
}

// NewBinding delivers the current value of m to l, then subscribes l.
func NewBinding[T comparable](m Model[T], l Listener[T]) *Binding[T] {
	l.Accept(m.Data())
	m.AddListener(l)
	return &Binding[T]{model: m, listener: l, bound: true}
}

func (b *Binding[T]) Model() Model[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.model
}

// SetModel moves the listener to m. After Unbind it only swaps the model.
func (b *Binding[T]) SetModel(m Model[T]) {
	b.mu.Lock()
	old, bound := b.model, b.bound
	if old == m {
		b.mu.Unlock()
		return
	}
	b.model = m
	b.mu.Unlock()

	if !bound {
		return
	}
	old.RemoveListener(b.listener)
	m.AddListener(b.listener)
	b.listener.Accept(m.Data())
}

// Unbind detaches the listener. The model stays readable.
func (b *Binding[T]) Unbind() {
	b.mu.Lock()
	if !b.bound {
		b.mu.Unlock()
		return
	}
	b.bound = false
	m := b.model
	b.mu.Unlock()

	m.RemoveListener(b.listener)
}
