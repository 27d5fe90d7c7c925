package model

import (
	"regexp"
	"strings"
	"sync"
)

// Criterion decides whether a value is valid.
type Criterion[T any] func(T) bool

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// 常用條件
var (
	NotNegative Criterion[int]    = func(n int) bool { return n >= 0 }
	Positive    Criterion[int]    = func(n int) bool { return n > 0 }
	NotEmpty    Criterion[string] = func(s string) bool { return strings.TrimSpace(s) != "" }
	Email       Criterion[string] = emailPattern.MatchString
)

// Validated stores every write and reports validity through a criterion.
// Validity only drives highlighting; Data always returns what was stored.
type Validated[T comparable] struct {
	mu        sync.Mutex
	data      T
	criterion Criterion[T]
	listeners listenerSet[T]
}

func NewValidated[T comparable](data T, criterion Criterion[T]) *Validated[T] {
	return &Validated[T]{data: data, criterion: criterion}
}

func NewEmail(s string) *Validated[string] {
	return NewValidated(s, Email)
}

func NewNotEmpty(s string) *Validated[string] {
	return NewValidated(s, NotEmpty)
}

func (m *Validated[T]) IsValid() bool {
	data := m.Data()
	if m.criterion == nil {
		return true
	}
	return m.criterion(data)
}

func (m *Validated[T]) Data() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

func (m *Validated[T]) Default() T {
	var zero T
	return zero
}

func (m *Validated[T]) SetData(v T) bool {
	m.mu.Lock()
	if m.data == v {
		m.mu.Unlock()
		return false
	}
	m.data = v
	m.mu.Unlock()

	m.listeners.notify(v)
	return true
}

func (m *Validated[T]) AddListener(l Listener[T]) {
	m.listeners.add(l)
}

func (m *Validated[T]) RemoveListener(l Listener[T]) {
	m.listeners.remove(l)
}

func (m *Validated[T]) NotifyListeners() {
	m.listeners.notify(m.Data())
}
