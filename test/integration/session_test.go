// ============================================================================
// 端到端會話測試
// ============================================================================
//
// Package: test/integration
// 文件: session_test.go
// 功能: 多個瀏覽器經 HTTP 併發操作同一個 application
//
// 測試目標:
//   1. 併發點擊後共享總數精確（無遺失更新）
//   2. 每個瀏覽器只看到自己的點擊數
//   3. 表單頁面在所有欄位有效前拒絕提交
//   4. kill 之後同步回傳 {"result":false}
//
// ============================================================================

package integration

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lastText 回傳 updates 中最後一個 set text
func lastText(updates []update) (string, bool) {
	for i := len(updates) - 1; i >= 0; i-- {
		if updates[i].Action == "set text" {
			return updates[i].Text, true
		}
	}
	return "", false
}

func TestConcurrentBrowsers(t *testing.T) {
	n := startNode(t, t.TempDir())
	defer n.stop(t)

	const browsers = 8
	const clicks = 5

	var wg sync.WaitGroup
	for i := 0; i < browsers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := open(t, n.srv.URL, "/")
			for c := 1; c <= clicks; c++ {
				body := b.click()
				require.True(t, body.Result)
				assert.NotEmpty(t, body.LastEvent)
			}
			assert.True(t, b.kill())
		}()
	}
	wg.Wait()

	assert.Equal(t, browsers*clicks, n.counter.Total(), "每次點擊都應計入共享總數")
	assert.Equal(t, 0, n.app.ClientCount())
}

func TestOwnClicksAreLocal(t *testing.T) {
	n := startNode(t, t.TempDir())
	defer n.stop(t)

	a := open(t, n.srv.URL, "/")
	b := open(t, n.srv.URL, "/")

	a.click()
	a.click()
	body := b.click()

	// b 的點擊數從 1 開始，總數已經是 3
	var texts []string
	for _, u := range body.Updates {
		if u.Action == "set text" {
			texts = append(texts, u.Text)
		}
	}
	assert.Contains(t, texts, "1")
	assert.Contains(t, texts, "3")
	assert.Equal(t, 3, n.counter.Total())

	// a 也收到總數變化
	body = a.sync("")
	text, ok := lastText(body.Updates)
	require.True(t, ok)
	assert.Equal(t, "3", text)
}

func TestFormSubmission(t *testing.T) {
	n := startNode(t, t.TempDir())
	defer n.stop(t)

	b := open(t, n.srv.URL, "/form")
	inputs := b.widgets["input field"]
	require.Len(t, inputs, 3)
	require.Len(t, b.widgets["checkbox"], 1)
	submit := b.widgets["button"][0]

	body := b.sync("[" + event(submit, "click", "") + "]")
	text, ok := lastText(body.Updates)
	require.True(t, ok)
	assert.Equal(t, "Some fields are not valid", text)

	fill := []string{
		event(inputs[0], "text input", `{"text":"Ann"}`),
		event(inputs[1], "text input", `{"text":"ann@example.com"}`),
		event(inputs[2], "text input", `{"text":"30"}`),
		event(b.widgets["checkbox"][0], "check", `{"state":true}`),
	}
	body = b.sync("[" + strings.Join(fill, ",") + "]")
	require.True(t, body.Result)

	body = b.sync("[" + event(submit, "click", "") + "]")
	text, ok = lastText(body.Updates)
	require.True(t, ok)
	assert.Equal(t, "Welcome, Ann <ann@example.com>", text)
}

func TestKilledBrowser(t *testing.T) {
	n := startNode(t, t.TempDir())
	defer n.stop(t)

	b := open(t, n.srv.URL, "/")
	require.True(t, b.kill())
	assert.False(t, b.kill(), "第二次 kill 應回傳 false")

	body := b.click()
	assert.False(t, body.Result)
	assert.Empty(t, body.Updates)
}
