// ============================================================================
// widgetsync Demo - 範例頁面
// ============================================================================
//
// Package: internal/demo
// 文件: counter.go, form.go
// 功能: run 指令與 cmd/demo 使用的兩個頁面
//
//   Counter - 每個 client 自己的點擊數 + 所有 client 共用、持久化的總數
//   Form    - 驗證中的輸入欄位（email、非空、非負整數）與同意勾選框
//
// ============================================================================

package demo

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/ChuLiYu/widgetsync/internal/application"
	"github.com/ChuLiYu/widgetsync/internal/model"
	"github.com/ChuLiYu/widgetsync/internal/store"
	"github.com/ChuLiYu/widgetsync/internal/widget"
	"github.com/ChuLiYu/widgetsync/pkg/types"
)

const totalKey = "counter.total"

// Counter counts clicks per client and across all clients. The shared total
// survives restarts through the store.
type Counter struct {
	saveMu sync.Mutex // 序列化 persist，最後一次寫入讀到最新總數
	store  *store.Store
	total *model.Synchronized[int]
	log   *slog.Logger
}

// NewCounter loads the persisted total from s. A missing record starts at 0.
func NewCounter(s *store.Store, log *slog.Logger) *Counter {
	if log == nil {
		log = slog.Default()
	}
	if s == nil {
		s = store.Memory()
	}

	var total int
	if err := s.Get(totalKey, &total); err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn("Failed to load counter total, starting at 0", "error", err)
	}

	c := &Counter{
		store: s,
		total: model.NewSynchronized[int](model.NewInteger(total)),
		log:   log,
	}
	c.total.AddListener(model.NewListener(c.persist))
	return c
}

// persist saves the current total. Deliveries may arrive out of order, so
// the notified value is ignored.
func (c *Counter) persist(int) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	total := c.total.Data()
	if err := c.store.Put(totalKey, total); err != nil {
		c.log.Error("Failed to persist counter total", "total", total, "error", err)
	}
}

// Total returns the number of clicks made by every client so far.
func (c *Counter) Total() int {
	return c.total.Data()
}

// Create builds the counter page.
func (c *Counter) Create(root *widget.Root, ctx application.PageContext) {
	clicks := model.NewInteger(0)
	mine := model.NewIntegerString(clicks)
	all := model.NewIntegerString(c.total)

	if name := ctx.Parameters["name"]; name != "" {
		root.Add(widget.NewLabel(ctx.Theme, "Hello, "+name))
	}

	button := widget.NewButton(ctx.Theme, "Click me")
	button.OnClick(func(types.PointerEvent) {
		clicks.SetData(clicks.Data() + 1)
		c.total.Update(func(n int) int { return n + 1 })
	})

	root.Add(button)
	root.Add(widget.NewSection(
		widget.NewLabel(ctx.Theme, "Your clicks:"),
		widget.NewBoundLabel(ctx.Theme, mine),
	))
	root.Add(widget.NewSection(
		widget.NewLabel(ctx.Theme, "Everybody:"),
		widget.NewBoundLabel(ctx.Theme, all),
	))

	// all listens on the shared total; it must not outlive the client
	root.OnClose(func() {
		mine.Detach()
		all.Detach()
	})
}
