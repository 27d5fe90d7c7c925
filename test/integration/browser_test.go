// ============================================================================
// 端到端測試輔助：模擬瀏覽器
// ============================================================================
//
// Package: test/integration
// 文件: browser_test.go
// 功能: 透過 HTTP 驅動完整的 create → synchronize → kill 流程
//
// browser 保存一個 client 的協議狀態：
//   - id:       伺服器分配的 client ID
//   - ack:      已收到的最後一個 update ID（下一次 lastUpdate）
//   - widgets:  依建立順序記錄的 widget ID（按類型分組）
//
// ============================================================================

package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/widgetsync/internal/application"
	"github.com/ChuLiYu/widgetsync/internal/demo"
	"github.com/ChuLiYu/widgetsync/internal/server"
	"github.com/ChuLiYu/widgetsync/internal/store"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type update struct {
	ID     string `json:"id"`
	Widget string `json:"widget"`
	Action string `json:"action"`
	Type   string `json:"type"`
	Text   string `json:"text"`
}

type syncBody struct {
	Result    bool     `json:"result"`
	LastEvent string   `json:"lastEvent"`
	Updates   []update `json:"updates"`
}

// node 是一個完整的伺服器實例：store + counter + application + HTTP
type node struct {
	store   *store.Store
	counter *demo.Counter
	app     *application.Application
	srv     *httptest.Server
}

// startNode 在 dir 下開啟 store 並啟動 HTTP 伺服器
func startNode(t testing.TB, dir string) *node {
	t.Helper()
	st, err := store.Open(filepath.Join(dir, "widgets.json"))
	require.NoError(t, err)

	counter := demo.NewCounter(st, quiet)
	cfg := application.DefaultConfig()
	cfg.Logger = quiet
	app := application.New(counter, cfg)
	app.AddPage("/form", demo.Form)

	srv := httptest.NewServer(server.NewHTTPHandler(server.NewDispatcher(app), server.HTTPConfig{Logger: quiet}))
	return &node{store: st, counter: counter, app: app, srv: srv}
}

// stop 模擬伺服器關閉
func (n *node) stop(t testing.TB) {
	t.Helper()
	n.srv.Close()
	n.app.Shutdown()
	require.NoError(t, n.store.Close())
}

type browser struct {
	t      testing.TB
	base   string
	id     string
	ack     string
	widgets map[string][]string
}

// open 建立 client 並完成首次同步
func open(t testing.TB, base, address string) *browser {
	t.Helper()
	b := &browser{t: t, base: base, widgets: make(map[string][]string)}

	var created struct {
		ID string `json:"id"`
	}
	b.post(url.Values{"action": {"create"}, "address": {address}}, &created)
	require.NotEmpty(t, created.ID)
	b.id = created.ID

	body := b.sync("")
	require.True(t, body.Result)
	for _, u := range body.Updates {
		if u.Action == "create widget" {
			b.widgets[u.Type] = append(b.widgets[u.Type], u.Widget)
		}
	}
	require.NotEmpty(t, b.widgets["button"])
	return b
}

func (b *browser) post(form url.Values, v any) {
	b.t.Helper()
	resp, err := http.PostForm(b.base+"/action", form)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	require.NoError(b.t, json.NewDecoder(resp.Body).Decode(v))
}

// sync 送出事件並確認目前收到的所有 updates
func (b *browser) sync(events string) syncBody {
	b.t.Helper()
	form := url.Values{"action": {"synchronize"}, "client": {b.id}}
	if events != "" {
		form.Set("events", events)
	}
	if b.ack != "" {
		form.Set("lastUpdate", b.ack)
	}

	var body syncBody
	b.post(form, &body)
	if n := len(body.Updates); n > 0 {
		b.ack = body.Updates[n-1].ID
	}
	return body
}

// event 產生一筆事件記錄，data 為 JSON 或空字串
func event(widget, typ, data string) string {
	if data == "" {
		return fmt.Sprintf(`{"id":%q,"widget":%q,"type":%q}`, uid.New(), widget, typ)
	}
	return fmt.Sprintf(`{"id":%q,"widget":%q,"type":%q,"data":%s}`, uid.New(), widget, typ, data)
}

func (b *browser) click() syncBody {
	b.t.Helper()
	return b.sync("[" + event(b.widgets["button"][0], "click", "") + "]")
}

func (b *browser) kill() bool {
	b.t.Helper()
	var killed bool
	b.post(url.Values{"action": {"kill"}, "client": {b.id}}, &killed)
	return killed
}
