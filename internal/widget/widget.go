// ============================================================================
// widgetsync Widget - 伺服器端 widget 樹
// ============================================================================
//
// Package: internal/widget
// 文件: widget.go
// 功能: 每個 client 的 UI 節點樹；節點屬性由 model 持有，變更時產生 Update
//
// 與 client 的介面:
//   - Walk / Directory:  深度優先走訪，建立本次同步的 widget 目錄
//   - HandleEvent:       派送瀏覽器事件；未知事件或壞 payload 回傳錯誤
//   - DrainUpdates:      交出自上次收集以來產生的 Update
//   - Detach:            從樹移除時解除所有 listener
//
// 並發:
//   樹的結構只在 client 鎖之下變動；但共享 Theme 的通知可能來自其他
//   goroutine，所以每個 widget 的待送 Update 以自己的鎖保護。
//
// ============================================================================

package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ChuLiYu/widgetsync/internal/protocol"
	"github.com/ChuLiYu/widgetsync/pkg/types"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrMalformedEvent = errors.New("malformed event payload")
)

// Event names sent by the browser.
const (
	EventClick        = "click"
	EventPointerEnter = "pointer enter"
	EventPointerLeave = "pointer leave"
	EventPointerDown  = "pointer down"
	EventPointerUp    = "pointer up"
	EventTextInput    = "text input"
	EventCheck        = "check"
)

// Widget is one node of a client's UI tree.
type Widget interface {
	ID() uid.ID
	Type() string
	HandleEvent(eventType string, data json.RawMessage) error
	DrainUpdates(fn func(protocol.Update))
	Children() []Widget
	Detach()
}

type eventHandler func(data json.RawMessage) error

// base carries the plumbing shared by every widget.
type base struct {
	id   uid.ID
	kind string

	mu       sync.Mutex
	updates  []protocol.Update
	children []Widget
	handlers map[string]eventHandler
	cleanup  []func()
}

func newBase(kind string) base {
	id := uid.New()
	return base{
		id:       id,
		kind:     kind,
		updates:  []protocol.Update{protocol.CreateWidget(id, kind)},
		handlers: make(map[string]eventHandler),
	}
}

func (b *base) ID() uid.ID {
	return b.id
}

func (b *base) Type() string {
	return b.kind
}

func (b *base) push(u protocol.Update) {
	b.mu.Lock()
	b.updates = append(b.updates, u)
	b.mu.Unlock()
}

// DrainUpdates hands every pending update to fn and forgets them.
func (b *base) DrainUpdates(fn func(protocol.Update)) {
	b.mu.Lock()
	pending := b.updates
	b.updates = nil
	b.mu.Unlock()

	for _, u := range pending {
		fn(u)
	}
}

func (b *base) Children() []Widget {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.children)
}

// Detach runs the registered teardown functions once.
func (b *base) Detach() {
	b.mu.Lock()
	cleanup := b.cleanup
	b.cleanup = nil
	b.mu.Unlock()

	for _, fn := range cleanup {
		fn()
	}
}

func (b *base) onDetach(fn func()) {
	b.mu.Lock()
	b.cleanup = append(b.cleanup, fn)
	b.mu.Unlock()
}

// HandleEvent dispatches a browser event to the registered handler.
func (b *base) HandleEvent(eventType string, data json.RawMessage) error {
	b.mu.Lock()
	h, ok := b.handlers[eventType]
	b.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q on %s %s", ErrUnknownEvent, eventType, b.kind, b.id)
	}
	return h(data)
}

func (b *base) handle(eventType string, h eventHandler) {
	b.mu.Lock()
	b.handlers[eventType] = h
	b.mu.Unlock()
}

// subscribe registers h and asks the browser to start reporting eventType.
func (b *base) subscribe(eventType string, h eventHandler) {
	b.handle(eventType, h)
	b.push(protocol.Subscribe(b.id, eventType))
}

func (b *base) appendChild(w Widget) {
	b.mu.Lock()
	b.children = append(b.children, w)
	b.updates = append(b.updates, protocol.AppendChild(w.ID(), b.id))
	b.mu.Unlock()
}

func (b *base) setChild(w Widget) (previous Widget) {
	b.mu.Lock()
	if len(b.children) > 0 {
		previous = b.children[0]
	}
	b.children = []Widget{w}
	b.updates = append(b.updates, protocol.SetChild(w.ID(), b.id))
	b.mu.Unlock()
	return previous
}

// removeChild drops w from the children, pushes "remove child" and
// detaches the whole subtree.
func (b *base) removeChild(w Widget) bool {
	b.mu.Lock()
	i := slices.IndexFunc(b.children, func(c Widget) bool { return c.ID() == w.ID() })
	if i < 0 {
		b.mu.Unlock()
		return false
	}
	b.children = slices.Delete(b.children, i, i+1)
	b.updates = append(b.updates, protocol.RemoveChild(w.ID(), b.id))
	b.mu.Unlock()

	Walk(w, func(x Widget) { x.Detach() })
	return true
}

// ============================================================================
// 指標事件
// ============================================================================

func (b *base) onPointer(eventType string, fn func(types.PointerEvent)) {
	b.subscribe(eventType, func(data json.RawMessage) error {
		ev, err := decodePointer(data)
		if err != nil {
			return err
		}
		fn(ev)
		return nil
	})
}

func (b *base) OnClick(fn func(types.PointerEvent))        { b.onPointer(EventClick, fn) }
func (b *base) OnPointerEnter(fn func(types.PointerEvent)) { b.onPointer(EventPointerEnter, fn) }
func (b *base) OnPointerLeave(fn func(types.PointerEvent)) { b.onPointer(EventPointerLeave, fn) }
func (b *base) OnPointerDown(fn func(types.PointerEvent))  { b.onPointer(EventPointerDown, fn) }
func (b *base) OnPointerUp(fn func(types.PointerEvent))    { b.onPointer(EventPointerUp, fn) }

func decodePointer(data json.RawMessage) (types.PointerEvent, error) {
	var ev types.PointerEvent
	if len(data) == 0 {
		return ev, nil
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return ev, nil
}

// ============================================================================
// 走訪
// ============================================================================

// Walk visits w and its descendants depth-first, parents before children.
func Walk(w Widget, fn func(Widget)) {
	fn(w)
	for _, child := range w.Children() {
		Walk(child, fn)
	}
}

// Directory maps the id of every widget reachable from root to the widget.
func Directory(root Widget) map[uid.ID]Widget {
	dir := make(map[uid.ID]Widget)
	Walk(root, func(w Widget) { dir[w.ID()] = w })
	return dir
}
