package model

import "sync"

// Factory creates the local model a Cascading model forks into.
type Factory[T comparable] func(data T) Model[T]

// Cascading 繼承 base 的值，直到第一次本地寫入
//
// 第一次成功的 SetData 會透過 factory 建立本地模型，從 base 取消訂閱，
// 之後所有讀寫都落在本地模型上。分岔只發生一次。
type Cascading[T comparable] struct {
	mu      sync.Mutex
	model   Model[T]
	forked  bool
	factory Factory[T]

	fromBase  *FuncListener[T]
	fromLocal *FuncListener[T]
	listeners listenerSet[T]
}

// NewCascading 建立繼承 base 的模型；factory 為 nil 時使用 Value
func NewCascading[T comparable](base Model[T], factory Factory[T]) *Cascading[T] {
	if factory == nil {
		def := base.Default()
		factory = func(data T) Model[T] { return NewValue(data, def) }
	}
	c := &Cascading[T]{model: base, factory: factory}
	c.fromBase = NewListener(func(v T) {
		// A base notification racing with the fork is stale.
		if c.Forked() {
			return
		}
		c.listeners.notify(v)
	})
	c.fromLocal = NewListener(c.listeners.notify)
	base.AddListener(c.fromBase)
	return c
}

// Forked reports whether the model has been written locally.
func (c *Cascading[T]) Forked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forked
}

func (c *Cascading[T]) current() Model[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

func (c *Cascading[T]) IsValid() bool {
	return c.current().IsValid()
}

func (c *Cascading[T]) Data() T {
	return c.current().Data()
}

func (c *Cascading[T]) Default() T {
	return c.current().Default()
}

func (c *Cascading[T]) SetData(v T) bool {
	c.mu.Lock()
	if c.forked {
		local := c.model
		c.mu.Unlock()
		return local.SetData(v)
	}
	base := c.model
	if base.Data() == v {
		c.mu.Unlock()
		return false
	}
	base.RemoveListener(c.fromBase)
	local := c.factory(v)
	local.AddListener(c.fromLocal)
	c.model = local
	c.forked = true
	c.mu.Unlock()

	c.listeners.notify(v)
	return true
}

func (c *Cascading[T]) AddListener(l Listener[T]) {
	c.listeners.add(l)
}

func (c *Cascading[T]) RemoveListener(l Listener[T]) {
	c.listeners.remove(l)
}

func (c *Cascading[T]) NotifyListeners() {
	c.listeners.notify(c.Data())
}

// Detach unsubscribes from whichever model is currently underneath.
func (c *Cascading[T]) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forked {
		c.model.RemoveListener(c.fromLocal)
	} else {
		c.model.RemoveListener(c.fromBase)
	}
}
