package widget

import (
	"sync"

	"github.com/ChuLiYu/widgetsync/internal/protocol"
)

// Root is the top of a client's tree. It never has a parent.
type Root struct {
	base

	closeMu sync.Mutex
	onClose []func()
	closed  bool
}

func NewRoot() *Root {
	return &Root{base: newBase("root")}
}

func (r *Root) Add(w Widget) {
	r.appendChild(w)
}

func (r *Root) Remove(w Widget) bool {
	return r.removeChild(w)
}

// OnClose registers fn to run when the client owning the tree goes away.
func (r *Root) OnClose(fn func()) {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	r.onClose = append(r.onClose, fn)
}

// Close runs the close handlers and detaches every widget of the tree.
// Later calls do nothing.
func (r *Root) Close() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	handlers := r.onClose
	r.onClose = nil
	r.closeMu.Unlock()

	for _, fn := range handlers {
		fn()
	}
	Walk(r, func(w Widget) { w.Detach() })
}

// Reset tells the browser to discard its whole tree.
func (r *Root) Reset() {
	r.push(protocol.Reset(r.id))
}

// Section is a block container of inline widgets.
type Section struct {
	base
}

func NewSection(children ...Widget) *Section {
	s := &Section{base: newBase("section")}
	for _, w := range children {
		s.Add(w)
	}
	return s
}

func (s *Section) Add(w Widget) {
	s.appendChild(w)
}

func (s *Section) Remove(w Widget) bool {
	return s.removeChild(w)
}
