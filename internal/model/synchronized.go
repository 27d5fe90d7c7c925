package model

import "sync"

// Synchronized 執行緒安全的模型包裝
//
// 所有對 base 的讀寫都在同一把鎖之下。包裝器只在 base 上掛一個 forwarder，
// 並維護自己的 listener 集合。base 在持鎖期間發出的通知先排隊，釋放鎖之後
// 才分送，因此 listener 內再呼叫 SetData 不會死鎖。
//
// base 只能經由包裝器存取。
type Synchronized[T comparable] struct {
	mu   sync.Mutex // 保護 base
	base Model[T]

	pmu     sync.Mutex // 保護 busy 與 pending
	busy    bool
	pending []T

	forwarder *FuncListener[T]
	listeners listenerSet[T]
}

func NewSynchronized[T comparable](base Model[T]) *Synchronized[T] {
	s := &Synchronized[T]{base: base}
	s.forwarder = NewListener(s.forward)
	base.AddListener(s.forwarder)
	return s
}

func (s *Synchronized[T]) forward(v T) {
	s.pmu.Lock()
	if s.busy {
		s.pending = append(s.pending, v)
		s.pmu.Unlock()
		return
	}
	s.pmu.Unlock()
	s.listeners.notify(v)
}

// lock acquires the base lock and starts queueing base notifications.
func (s *Synchronized[T]) lock() {
	s.mu.Lock()
	s.pmu.Lock()
	s.busy = true
	s.pmu.Unlock()
}

// unlock releases the base lock and delivers whatever was queued.
func (s *Synchronized[T]) unlock() {
	s.pmu.Lock()
	s.busy = false
	queued := s.pending
	s.pending = nil
	s.pmu.Unlock()
	s.mu.Unlock()

	for _, v := range queued {
		s.listeners.notify(v)
	}
}

func (s *Synchronized[T]) IsValid() bool {
	s.lock()
	defer s.unlock()
	return s.base.IsValid()
}

func (s *Synchronized[T]) Data() T {
	s.lock()
	defer s.unlock()
	return s.base.Data()
}

func (s *Synchronized[T]) Default() T {
	s.lock()
	defer s.unlock()
	return s.base.Default()
}

func (s *Synchronized[T]) SetData(v T) bool {
	s.lock()
	defer s.unlock()
	return s.base.SetData(v)
}

// Update writes fn(current) as one atomic step and returns the written value.
func (s *Synchronized[T]) Update(fn func(T) T) T {
	s.lock()
	defer s.unlock()
	v := fn(s.base.Data())
	s.base.SetData(v)
	return v
}

func (s *Synchronized[T]) AddListener(l Listener[T]) {
	s.listeners.add(l)
}

func (s *Synchronized[T]) RemoveListener(l Listener[T]) {
	s.listeners.remove(l)
}

func (s *Synchronized[T]) NotifyListeners() {
	s.listeners.notify(s.Data())
}

// Base returns the wrapped model.
func (s *Synchronized[T]) Base() Model[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// SetBase swaps the wrapped model and re-broadcasts its value.
func (s *Synchronized[T]) SetBase(m Model[T]) {
	s.lock()
	if s.base == m {
		s.unlock()
		return
	}
	s.base.RemoveListener(s.forwarder)
	s.base = m
	m.AddListener(s.forwarder)
	v := m.Data()
	s.unlock()

	s.listeners.notify(v)
}
