// ============================================================================
// widgetsync Application - 多 client 協調器
// ============================================================================
//
// Package: internal/application
// 文件: application.go
// 功能: 管理所有 client、頁面註冊表、watchdog 與 action 計數
//
// 三個 action:
//   1. CreateClient - 依頁面路徑建立 client 並建立 widget 樹
//   2. Synchronize  - 找到 client 並委派一次同步交換
//   3. KillClient   - 立即移除並拆除 client
//
// Watchdog:
//   每個 WatchdogInterval 把所有 client 的計時器減去一個間隔，
//   歸零者經 Client.Expire 確認後移除（不做最後一次同步）。
//   每累積 ReportInterval 的 watchdog 時間，記錄一次處理的 action 數並歸零。
//
// 並發安全:
//   - registry 分成 32 個 shard，各自使用 RWMutex
//   - 不同 client 的 synchronize 可以並行，同一 client 由 client 自己的鎖串行化
//   - 移除由 registry.Delete 決定唯一贏家，拆除只發生一次
//
// ============================================================================

package application

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ChuLiYu/widgetsync/internal/client"
	"github.com/ChuLiYu/widgetsync/internal/metrics"
	"github.com/ChuLiYu/widgetsync/internal/periodic"
	"github.com/ChuLiYu/widgetsync/internal/widget"
	"github.com/ChuLiYu/widgetsync/pkg/types"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

// ============================================================================
// 資料結構定義
// ============================================================================

// Config Application 配置
type Config struct {
	ClientLifetime   time.Duration      // 沒有 synchronize 多久後回收
	WatchdogInterval time.Duration      // watchdog 週期
	ReportInterval   time.Duration      // action 數報告週期
	Logger           *slog.Logger       // nil 時使用 slog.Default()
	Metrics          *metrics.Collector // 可為 nil
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		ClientLifetime:   3 * time.Minute,
		WatchdogInterval: 100 * time.Millisecond,
		ReportInterval:   time.Minute,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ClientLifetime <= 0 {
		c.ClientLifetime = def.ClientLifetime
	}
	if c.WatchdogInterval <= 0 {
		c.WatchdogInterval = def.WatchdogInterval
	}
	if c.ReportInterval <= 0 {
		c.ReportInterval = def.ReportInterval
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// PageContext is what a page sees when it builds a client's tree.
type PageContext struct {
	BrowserID  uuid.UUID
	Parameters map[string]string
	Theme      *widget.Theme
}

// Page builds the initial widget tree of a new client.
type Page interface {
	Create(root *widget.Root, ctx PageContext)
}

// PageFunc adapts a function to Page.
type PageFunc func(root *widget.Root, ctx PageContext)

func (f PageFunc) Create(root *widget.Root, ctx PageContext) { f(root, ctx) }

// Application 多 client 協調器
type Application struct {
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Collector
	theme   *widget.Theme

	pagesMu sync.RWMutex
	pages   map[string]Page

	clients *registry
	actions atomic.Int64 // 自上次報告以來的 action 數

	watchdog    *periodic.Task
	sinceReport time.Duration // 只由 watchdog goroutine 讀寫
}

// New 建立 Application
//
// 參數：
//   - index: 根頁面 "/"，未知路徑也會落到這裡；nil 表示空白頁
//   - cfg: 配置，零值欄位使用 DefaultConfig
//
// 返回值：
//   - *Application: 尚未啟動 watchdog 的實例
func New(index Page, cfg Config) *Application {
	cfg = cfg.withDefaults()
	if index == nil {
		index = PageFunc(func(*widget.Root, PageContext) {})
	}

	a := &Application{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		theme:   widget.NewTheme(),
		pages:   map[string]Page{"/": index},
		clients: newRegistry(),
	}
	a.watchdog = periodic.New(cfg.WatchdogInterval, a.watch)
	return a
}

// Config returns the effective configuration.
func (a *Application) Config() Config {
	return a.cfg
}

// Theme returns the text style shared by every client of the application.
func (a *Application) Theme() *widget.Theme {
	return a.theme
}

// ============================================================================
// 頁面
// ============================================================================

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// AddPage registers page under path. "counter" and "/counter" are the same
// path. Registering "/" replaces the index page.
func (a *Application) AddPage(path string, page Page) {
	a.pagesMu.Lock()
	defer a.pagesMu.Unlock()
	a.pages[normalizePath(path)] = page
}

func (a *Application) HasPage(path string) bool {
	a.pagesMu.RLock()
	defer a.pagesMu.RUnlock()
	_, ok := a.pages[normalizePath(path)]
	return ok
}

// Pages returns the registered paths in order.
func (a *Application) Pages() []string {
	a.pagesMu.RLock()
	defer a.pagesMu.RUnlock()
	paths := make([]string, 0, len(a.pages))
	for p := range a.pages {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func (a *Application) page(path string) Page {
	a.pagesMu.RLock()
	defer a.pagesMu.RUnlock()
	if p, ok := a.pages[normalizePath(path)]; ok {
		return p
	}
	return a.pages["/"]
}

// browserID turns the opaque browser token into a UUID. Tokens that are not
// UUIDs map to a stable name-based UUID so the page can still correlate them.
func browserID(token string) uuid.UUID {
	if token == "" {
		return uuid.Nil
	}
	if id, err := uuid.Parse(token); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(token))
}

// ============================================================================
// Actions
// ============================================================================

func (a *Application) countAction(action string) {
	a.actions.Add(1)
	a.metrics.RecordAction(action)
}

// CreateClient builds a client for the page at req.PagePath, falling back to
// the index page, and registers it. The tree is complete before the client
// becomes reachable.
func (a *Application) CreateClient(req types.CreateRequest) uid.ID {
	a.countAction(types.ActionCreate)

	c := client.New(a.cfg.ClientLifetime, client.WithLogger(a.log))
	params := req.Parameters
	if params == nil {
		params = map[string]string{}
	}
	a.page(req.PagePath).Create(c.Root(), PageContext{
		BrowserID:  browserID(req.BrowserID),
		Parameters: params,
		Theme:      a.theme,
	})

	a.clients.Store(c)
	a.metrics.RecordCreated()
	a.log.Debug("Client created", "client", c.ID(), "page", normalizePath(req.PagePath))
	return c.ID()
}

// Synchronize delegates to the client. ok is false when the client is
// unknown or dead.
func (a *Application) Synchronize(id uid.ID, req types.SyncRequest) (types.SyncResponse, bool) {
	a.countAction(types.ActionSynchronize)

	c, found := a.clients.Load(id)
	if !found {
		return types.SyncResponse{Result: false}, false
	}

	start := time.Now()
	resp, st := c.Sync(req)
	a.metrics.RecordSync(time.Since(start).Seconds(), st.Handled, st.Dropped, st.Sent)
	return resp, resp.Result
}

// KillClient removes and destroys the client. Unknown ids return false;
// killing twice is harmless.
func (a *Application) KillClient(id uid.ID) bool {
	a.countAction(types.ActionKill)

	c, ok := a.clients.Delete(id)
	if !ok {
		return false
	}
	c.Kill()
	c.Destroy()
	a.metrics.RecordKilled()
	a.log.Info("Client killed", "client", id)
	return true
}

// Client returns the registered client with the given id.
func (a *Application) Client(id uid.ID) (*client.Client, bool) {
	return a.clients.Load(id)
}

// ClientCount returns the number of registered clients.
func (a *Application) ClientCount() int {
	return a.clients.Len()
}

// Actions returns the number of actions since the last report.
func (a *Application) Actions() int64 {
	return a.actions.Load()
}

// ============================================================================
// Watchdog
// ============================================================================

// Start launches the watchdog.
func (a *Application) Start(ctx context.Context) {
	a.watchdog.Stop()
	a.sinceReport = 0
	a.watchdog.Start(ctx)
	a.log.Info("Watchdog started",
		"interval", a.cfg.WatchdogInterval,
		"lifetime", a.cfg.ClientLifetime)
}

// Stop stops the watchdog. Registered clients stay alive.
func (a *Application) Stop() {
	a.watchdog.Stop()
}

// Shutdown stops the watchdog and destroys every client.
func (a *Application) Shutdown() {
	a.Stop()
	a.clients.Range(func(c *client.Client) {
		if _, ok := a.clients.Delete(c.ID()); ok {
			c.Kill()
			c.Destroy()
			a.metrics.RecordKilled()
		}
	})
	a.log.Info("Application shut down")
}

func (a *Application) watch(time.Duration) bool {
	a.Sweep(a.cfg.WatchdogInterval)

	a.sinceReport += a.cfg.WatchdogInterval
	if a.sinceReport >= a.cfg.ReportInterval {
		a.sinceReport = 0
		a.report()
	}
	return true
}

// Sweep charges elapsed time to every client and removes the ones whose
// timer ran out. It returns the number of clients removed.
func (a *Application) Sweep(elapsed time.Duration) int {
	expired := 0
	a.clients.Range(func(c *client.Client) {
		if c.Tick(elapsed) > 0 || !c.Expire() {
			return
		}
		if _, ok := a.clients.Delete(c.ID()); !ok {
			return
		}
		c.Destroy()
		expired++
		a.metrics.RecordExpired()
		a.log.Info("Client expired by the watchdog", "client", c.ID())
	})
	return expired
}

func (a *Application) report() {
	n := a.actions.Swap(0)
	a.metrics.RecordReport(n)
	if n == 0 {
		a.log.Info("Server processed no actions", "interval", a.cfg.ReportInterval)
		return
	}
	a.log.Info("Server processed actions",
		"actions", n,
		"interval", a.cfg.ReportInterval,
		"per_second", float64(n)/a.cfg.ReportInterval.Seconds())
}

// Stats 回傳給 CLI status 指令的快照
func (a *Application) Stats() map[string]interface{} {
	return map[string]interface{}{
		"clients":          a.clients.Len(),
		"actions":          a.actions.Load(),
		"pages":            a.Pages(),
		"watchdog_running": a.watchdog.Running(),
		"watchdog_elapsed": a.watchdog.Elapsed().String(),
		"theme_version":    a.theme.Version(),
	}
}
