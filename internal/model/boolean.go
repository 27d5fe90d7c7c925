package model

import "sync"

// ============================================================================
// 布林組合模型
// ============================================================================

// Conjunction is the logical AND of its children, evaluated on every read.
// Any child change is re-broadcast with the freshly evaluated value.
type Conjunction struct {
	children  []Model[bool]
	forwarder *FuncListener[bool]
	listeners listenerSet[bool]
}

// NewConjunction subscribes to every child. An empty conjunction is true.
func NewConjunction(children ...Model[bool]) *Conjunction {
	c := &Conjunction{children: append([]Model[bool](nil), children...)}
	c.forwarder = NewListener(func(bool) { c.NotifyListeners() })
	for _, child := range c.children {
		child.AddListener(c.forwarder)
	}
	return c
}

func (c *Conjunction) IsValid() bool {
	for _, child := range c.children {
		if !child.IsValid() {
			return false
		}
	}
	return true
}

func (c *Conjunction) Data() bool {
	for _, child := range c.children {
		if !child.Data() {
			return false
		}
	}
	return true
}

func (c *Conjunction) Default() bool {
	return false
}

func (c *Conjunction) SetData(bool) bool {
	return false
}

func (c *Conjunction) AddListener(l Listener[bool]) {
	c.listeners.add(l)
}

func (c *Conjunction) RemoveListener(l Listener[bool]) {
	c.listeners.remove(l)
}

func (c *Conjunction) NotifyListeners() {
	c.listeners.notify(c.Data())
}

// Invert returns a read-only NOT of this conjunction.
func (c *Conjunction) Invert() *Invert {
	return NewInvert(c)
}

// Detach unsubscribes from all children.
func (c *Conjunction) Detach() {
	for _, child := range c.children {
		child.RemoveListener(c.forwarder)
	}
}

// Invert is the read-only logical NOT of a boolean model.
type Invert struct {
	base      Model[bool]
	forwarder *FuncListener[bool]
	listeners listenerSet[bool]
}

func NewInvert(base Model[bool]) *Invert {
	m := &Invert{base: base}
	m.forwarder = NewListener(func(v bool) { m.listeners.notify(!v) })
	base.AddListener(m.forwarder)
	return m
}

func (m *Invert) IsValid() bool {
	return m.base.IsValid()
}

func (m *Invert) Data() bool {
	return !m.base.Data()
}

// Default is the negation of the base default, so an invalid base still
// reads as Default().
func (m *Invert) Default() bool {
	return !m.base.Default()
}

func (m *Invert) SetData(bool) bool {
	return false
}

func (m *Invert) AddListener(l Listener[bool]) {
	m.listeners.add(l)
}

func (m *Invert) RemoveListener(l Listener[bool]) {
	m.listeners.remove(l)
}

func (m *Invert) NotifyListeners() {
	m.listeners.notify(m.Data())
}

func (m *Invert) Detach() {
	m.base.RemoveListener(m.forwarder)
}

// ValidFlag exposes IsValid() of another model as a boolean model. The flag
// itself is always valid. Listeners hear only flips.
type ValidFlag[T comparable] struct {
	base      Model[T]
	mu        sync.Mutex
	last      bool
	forwarder *FuncListener[T]
	listeners listenerSet[bool]
}

func NewValidFlag[T comparable](base Model[T]) *ValidFlag[T] {
	f := &ValidFlag[T]{base: base, last: base.IsValid()}
	f.forwarder = NewListener(func(T) { f.onBase() })
	base.AddListener(f.forwarder)
	return f
}

func (f *ValidFlag[T]) onBase() {
	f.mu.Lock()
	valid := f.base.IsValid()
	if valid == f.last {
		f.mu.Unlock()
		return
	}
	f.last = valid
	f.mu.Unlock()

	f.listeners.notify(valid)
}

func (f *ValidFlag[T]) IsValid() bool {
	return true
}

func (f *ValidFlag[T]) Data() bool {
	return f.base.IsValid()
}

func (f *ValidFlag[T]) Default() bool {
	return false
}

func (f *ValidFlag[T]) SetData(bool) bool {
	return false
}

func (f *ValidFlag[T]) AddListener(l Listener[bool]) {
	f.listeners.add(l)
}

func (f *ValidFlag[T]) RemoveListener(l Listener[bool]) {
	f.listeners.remove(l)
}

func (f *ValidFlag[T]) NotifyListeners() {
	f.listeners.notify(f.Data())
}

func (f *ValidFlag[T]) Detach() {
	f.base.RemoveListener(f.forwarder)
}
