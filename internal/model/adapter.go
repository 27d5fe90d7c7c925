package model

import (
	"strconv"
	"sync"
)

// Adapter 在數值模型與其字串表示之間轉換
//
// 寫入字串時嘗試解析：成功則寫入 base 並標記有效；失敗則保留顯示的字串、
// 標記無效、不動 base，並通知觀察者有效性已改變。
type Adapter[N comparable] struct {
	mu    sync.Mutex
	base  Model[N]
	text  string
	valid bool

	parse  func(string) (N, error)
	format func(N) string

	forwarder *FuncListener[N]
	listeners listenerSet[string]
}

// IntegerString is the int <-> string adapter.
type IntegerString = Adapter[int]

// RealString is the float64 <-> string adapter.
type RealString = Adapter[float64]

func NewIntegerString(base Model[int]) *IntegerString {
	return newAdapter(base, strconv.Atoi, strconv.Itoa)
}

func NewRealString(base Model[float64]) *RealString {
	parse := func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	return newAdapter(base, parse, format)
}

func newAdapter[N comparable](base Model[N], parse func(string) (N, error), format func(N) string) *Adapter[N] {
	a := &Adapter[N]{
		base:   base,
		text:   format(base.Data()),
		valid:  true,
		parse:  parse,
		format: format,
	}
	a.forwarder = NewListener(a.onBase)
	base.AddListener(a.forwarder)
	return a
}

// onBase follows writes made to the base from elsewhere. The base is read
// again under the lock so a late delivery cannot restore an older value.
func (a *Adapter[N]) onBase(N) {
	a.mu.Lock()
	s := a.format(a.base.Data())
	if a.text == s && a.valid {
		a.mu.Unlock()
		return
	}
	a.text = s
	a.valid = true
	a.mu.Unlock()

	a.listeners.notify(s)
}

func (a *Adapter[N]) IsValid() bool {
	a.mu.Lock()
	valid := a.valid
	a.mu.Unlock()
	return valid && a.base.IsValid()
}

// Data returns the displayed string, which may be unparseable.
func (a *Adapter[N]) Data() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text
}

func (a *Adapter[N]) Default() string {
	return a.format(a.base.Default())
}

// Value returns the typed side: the base value when valid, the base
// default otherwise.
func (a *Adapter[N]) Value() N {
	if !a.IsValid() {
		return a.base.Default()
	}
	return a.base.Data()
}

func (a *Adapter[N]) SetData(s string) bool {
	a.mu.Lock()
	if a.text == s {
		a.mu.Unlock()
		return false
	}
	a.text = s
	n, err := a.parse(s)
	if err != nil {
		a.valid = false
		a.mu.Unlock()
		a.listeners.notify(s)
		return false
	}
	a.valid = true
	a.mu.Unlock()

	a.base.SetData(n)

	// The base echo may already have replaced s with its canonical form
	// and notified.
	if a.Data() == s {
		a.listeners.notify(s)
	}
	return true
}

func (a *Adapter[N]) AddListener(l Listener[string]) {
	a.listeners.add(l)
}

func (a *Adapter[N]) RemoveListener(l Listener[string]) {
	a.listeners.remove(l)
}

func (a *Adapter[N]) NotifyListeners() {
	a.listeners.notify(a.Data())
}

func (a *Adapter[N]) Detach() {
	a.base.RemoveListener(a.forwarder)
}
