// ============================================================================
// widgetsync Model - 響應式資料模型
// ============================================================================
//
// Package: internal/model
// 文件: model.go
// 功能: 可觀察的資料單元，widget 屬性與使用者程式碼之間的共享狀態
//
// 模型種類:
//   - Value:        預設的記憶體模型，有值即有效
//   - ReadOnly:     SetData 永遠失敗，值由外部推送或計算而來
//   - Cascading:    繼承 base 的值，直到第一次本地寫入後分岔
//   - Conjunction:  多個布林模型的 AND，Invert 為其 NOT
//   - ValidFlag:    把另一個模型的 IsValid() 投影成布林模型
//   - Adapter:      整數/實數 <-> 字串 的格式轉換
//   - Validated:    由使用者條件決定有效性，寫入永不被拒絕
//   - Synchronized: 執行緒安全包裝
//
// 不變量:
//   1. Data() 永遠回傳可用的值；模型無效時回傳 Default()
//   2. SetData(Data()) 不會觸發任何 listener
//   3. listener 以身分去重，重複加入無效果
//
// 並發:
//   除 Synchronized 外，模型只保護自身欄位；listener 呼叫時不持有任何鎖，
//   listener 內可以再寫入其他模型（可重入）。
//
// ============================================================================

package model

import "sync"

// Model 可觀察的型別化資料單元
type Model[T comparable] interface {
	// IsValid reports whether the current value is usable as-is.
	IsValid() bool
	// Data returns the current value, or Default() when the model is invalid.
	Data() T
	// Default is the fixed fallback value of the model.
	Default() T
	// SetData writes v. It returns false without notifying when v equals the
	// current readable value or when the write is rejected.
	SetData(v T) bool
	AddListener(l Listener[T])
	RemoveListener(l Listener[T])
	// NotifyListeners re-broadcasts the current value.
	NotifyListeners()
}

// ============================================================================
// Value - 預設模型
// ============================================================================

// Value 預設的記憶體模型，有值時有效
type Value[T comparable] struct {
	mu        sync.Mutex
	data      T
	present   bool // 是否持有值
	def       T
	listeners listenerSet[T]
}

// NewValue 建立持有 data 的模型
func NewValue[T comparable](data, def T) *Value[T] {
	return &Value[T]{data: data, present: true, def: def}
}

// NewEmpty 建立沒有值的模型，Data() 回傳 def 直到第一次寫入
func NewEmpty[T comparable](def T) *Value[T] {
	return &Value[T]{def: def}
}

func NewString(s string) *Value[string] {
	return NewValue(s, "")
}

func NewInteger(n int) *Value[int] {
	return NewValue(n, 0)
}

func NewReal(f float64) *Value[float64] {
	return NewValue(f, 0)
}

func NewBoolean(b bool) *Value[bool] {
	return NewValue(b, false)
}

func (m *Value[T]) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present
}

func (m *Value[T]) Data() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readable()
}

func (m *Value[T]) Default() T {
	return m.def
}

// SetData 寫入新值；與目前可讀值相同時不做任何事
func (m *Value[T]) SetData(v T) bool {
	m.mu.Lock()
	if m.readable() == v {
		m.mu.Unlock()
		return false
	}
	m.data = v
	m.present = true
	m.mu.Unlock()

	m.listeners.notify(v)
	return true
}

// Clear 移除目前的值，模型變為無效
func (m *Value[T]) Clear() {
	m.mu.Lock()
	if !m.present {
		m.mu.Unlock()
		return
	}
	var zero T
	m.data = zero
	m.present = false
	m.mu.Unlock()

	m.listeners.notify(m.def)
}

func (m *Value[T]) AddListener(l Listener[T]) {
	m.listeners.add(l)
}

func (m *Value[T]) RemoveListener(l Listener[T]) {
	m.listeners.remove(l)
}

func (m *Value[T]) NotifyListeners() {
	m.listeners.notify(m.Data())
}

func (m *Value[T]) readable() T {
	if !m.present {
		return m.def
	}
	return m.data
}
