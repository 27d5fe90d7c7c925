package model

import "sync"

// ReadOnly is a model whose SetData always fails. Its value is either
// computed on every read or pushed from outside through Publish.
type ReadOnly[T comparable] struct {
	mu        sync.Mutex
	value     T
	compute   func() T
	def       T
	listeners listenerSet[T]
}

// NewReadOnly returns a read-only model holding data.
func NewReadOnly[T comparable](data T) *ReadOnly[T] {
	return &ReadOnly[T]{value: data}
}

// NewComputed returns a read-only model that evaluates fn on every read.
// Owners call NotifyListeners when the inputs of fn change.
func NewComputed[T comparable](fn func() T, def T) *ReadOnly[T] {
	return &ReadOnly[T]{compute: fn, def: def}
}

func (m *ReadOnly[T]) IsValid() bool {
	return true
}

func (m *ReadOnly[T]) Data() T {
	m.mu.Lock()
	compute, value := m.compute, m.value
	m.mu.Unlock()

	if compute != nil {
		return compute()
	}
	return value
}

func (m *ReadOnly[T]) Default() T {
	return m.def
}

func (m *ReadOnly[T]) SetData(T) bool {
	return false
}

// Publish pins the model to v and notifies listeners if the readable value
// changed. A computed model stops computing after Publish.
func (m *ReadOnly[T]) Publish(v T) bool {
	m.mu.Lock()
	current := m.value
	if m.compute != nil {
		current = m.compute()
	}
	if current == v {
		m.mu.Unlock()
		return false
	}
	m.compute = nil
	m.value = v
	m.mu.Unlock()

	m.listeners.notify(v)
	return true
}

func (m *ReadOnly[T]) AddListener(l Listener[T]) {
	m.listeners.add(l)
}

func (m *ReadOnly[T]) RemoveListener(l Listener[T]) {
	m.listeners.remove(l)
}

func (m *ReadOnly[T]) NotifyListeners() {
	m.listeners.notify(m.Data())
}
