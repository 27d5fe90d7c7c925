// ============================================================================
// widgetsync Client - 單一瀏覽器 session 的同步狀態機
// ============================================================================
//
// Package: internal/client
// 文件: client.go
// 功能: 持有一棵 widget 樹、事件游標、待送 Update 佇列與逾時計時器，
//       實作 synchronize 交換
//
// synchronize 流程（在 client 自己的鎖之下）:
//   1. 目錄   - 走訪整棵樹，建立本次呼叫的 widget 目錄
//   2. 事件   - 依序處理事件；id <= 游標者略過；找不到 widget 或派送失敗
//               都不算錯誤，但游標照樣前進
//   3. 確認   - 移除 id <= lastUpdate 的 Update
//   4. 收集   - 向每個 widget 收取新產生的 Update
//   5. 序列化 - 依 id 排序輸出佇列與目前的游標
//
// 保證:
//   - Update 在被確認前至少送出一次
//   - 事件至多處理一次（單調游標去重，每個 client O(1) 記憶體）
//   - Update 送出順序 = id 順序 = 產生順序
//
// 狀態:
//   Active -> Dead（被 kill 或逾時）；Dead 之後不可恢復
//
// ============================================================================

package client

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChuLiYu/widgetsync/internal/protocol"
	"github.com/ChuLiYu/widgetsync/internal/widget"
	"github.com/ChuLiYu/widgetsync/pkg/types"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

// Client 單一 session 的伺服器端狀態
type Client struct {
	id       uid.ID
	root     *widget.Root
	lifetime time.Duration
	log      *slog.Logger

	mu        sync.Mutex     // 保護以下欄位與整棵 widget 樹
	outbox    protocol.Queue // 待送 Update，依 id 排序
	lastEvent uid.ID         // 已處理的最大事件 id
	dead      bool

	timer atomic.Int64 // 剩餘奈秒；watchdog 不持鎖遞減
}

// Stats describes what one synchronize call did.
type Stats struct {
	Handled int // events dispatched without error
	Dropped int // events skipped: duplicate, malformed, orphaned or failed
	Pruned  int // updates removed by the acknowledgement
	Sent    int // updates in the response
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for swallowed errors.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a client with an empty root and a full timer.
func New(lifetime time.Duration, opts ...Option) *Client {
	c := &Client{
		id:       uid.New(),
		root:     widget.NewRoot(),
		lifetime: lifetime,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("client", c.id)
	c.ResetTimer()
	return c
}

func (c *Client) ID() uid.ID {
	return c.id
}

// Root returns the root of the widget tree. Only the page builder may touch
// it, before the client is registered; afterwards it belongs to Sync.
func (c *Client) Root() *widget.Root {
	return c.root
}

// LastHandledEvent returns the event cursor.
func (c *Client) LastHandledEvent() uid.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastEvent
}

// Pending returns the number of unacknowledged updates in the outbox.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbox.Len()
}

// ============================================================================
// 計時器
// ============================================================================

// ResetTimer restores the full lifetime.
func (c *Client) ResetTimer() {
	c.timer.Store(int64(c.lifetime))
}

// Tick subtracts d from the timer and returns what is left.
func (c *Client) Tick(d time.Duration) time.Duration {
	return time.Duration(c.timer.Add(-int64(d)))
}

// Remaining returns the time left before expiry.
func (c *Client) Remaining() time.Duration {
	return time.Duration(c.timer.Load())
}

// ============================================================================
// 生命週期
// ============================================================================

// Expire marks the client dead if its timer has run out. It returns true
// only for the call that made it dead. A synchronize that reset the timer
// after the watchdog's tick wins.
func (c *Client) Expire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead || c.timer.Load() > 0 {
		return false
	}
	c.dead = true
	return true
}

// Kill marks the client dead regardless of its timer. It returns false if
// it was already dead.
func (c *Client) Kill() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dead {
		return false
	}
	c.dead = true
	return true
}

// Dead reports whether the client was killed or expired.
func (c *Client) Dead() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead
}

// Destroy tears the tree down: close handlers run and every widget detaches
// from its models. There is no final synchronization.
func (c *Client) Destroy() {
	c.mu.Lock()
	c.dead = true
	c.outbox.Clear()
	c.mu.Unlock()

	c.root.Close()
}

// ============================================================================
// 同步
// ============================================================================

// Synchronize runs one exchange. A dead client answers Result=false.
func (c *Client) Synchronize(req types.SyncRequest) types.SyncResponse {
	resp, _ := c.Sync(req)
	return resp
}

// Sync is Synchronize plus bookkeeping about what happened.
func (c *Client) Sync(req types.SyncRequest) (types.SyncResponse, Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var st Stats
	if c.dead {
		return types.SyncResponse{Result: false}, st
	}
	c.ResetTimer()

	c.processEvents(req.Events, &st)
	st.Pruned = c.acknowledge(req.LastUpdate)
	c.collect()

	updates := c.serialize()
	st.Sent = len(updates)
	return types.SyncResponse{
		Result:    true,
		LastEvent: c.lastEvent,
		Updates:   updates,
	}, st
}

func (c *Client) processEvents(raw json.RawMessage, st *Stats) {
	if len(raw) == 0 {
		return
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		c.log.Debug("Skipping malformed event batch", "error", err)
		return
	}
	if len(records) == 0 {
		return
	}

	dir := widget.Directory(c.root)
	for _, record := range records {
		var ev types.Event
		if err := json.Unmarshal(record, &ev); err != nil || !ev.ID.IsValid() {
			c.log.Debug("Skipping malformed event", "error", err)
			st.Dropped++
			continue
		}
		if ev.ID <= c.lastEvent {
			st.Dropped++
			continue
		}
		c.lastEvent = ev.ID

		w, ok := dir[ev.Widget]
		if !ok {
			// removed since the browser generated the event
			st.Dropped++
			continue
		}
		if err := w.HandleEvent(ev.Type, ev.Data); err != nil {
			c.log.Debug("Event not handled", "event", ev.ID, "widget", ev.Widget, "type", ev.Type, "error", err)
			st.Dropped++
			continue
		}
		st.Handled++
	}
}

func (c *Client) acknowledge(lastUpdate string) int {
	if lastUpdate == "" {
		return 0
	}
	ack, err := uid.Parse(lastUpdate)
	if err != nil {
		c.log.Debug("Ignoring malformed acknowledgement", "error", err)
		return 0
	}
	return c.outbox.Prune(ack)
}

func (c *Client) collect() {
	widget.Walk(c.root, func(w widget.Widget) {
		w.DrainUpdates(func(u protocol.Update) { c.outbox.Add(u) })
	})
}

func (c *Client) serialize() []json.RawMessage {
	items := c.outbox.Items()
	out := make([]json.RawMessage, 0, len(items))
	for _, u := range items {
		data, err := u.MarshalJSON()
		if err != nil {
			c.log.Error("Failed to serialize update", "update", u.ID(), "action", u.Action(), "error", err)
			continue
		}
		out = append(out, data)
	}
	return out
}
