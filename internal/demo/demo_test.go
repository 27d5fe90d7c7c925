package demo

import (
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChuLiYu/widgetsync/internal/application"
	"github.com/ChuLiYu/widgetsync/internal/store"
	"github.com/ChuLiYu/widgetsync/internal/widget"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func build(page application.Page, params map[string]string) *widget.Root {
	root := widget.NewRoot()
	page.Create(root, application.PageContext{Parameters: params, Theme: widget.NewTheme()})
	return root
}

// find returns the widgets of the given type in tree order.
func find(root *widget.Root, kind string) []widget.Widget {
	var out []widget.Widget
	widget.Walk(root, func(w widget.Widget) {
		if w.Type() == kind {
			out = append(out, w)
		}
	})
	return out
}

func texts(root *widget.Root) []string {
	var out []string
	for _, w := range find(root, "text") {
		out = append(out, w.(*widget.Label).Text())
	}
	return out
}

func TestCounter_SharedPersistentTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	s, err := store.Open(path)
	require.NoError(t, err)

	counter := NewCounter(s, quiet)
	first := build(counter, map[string]string{"name": "Ada"})
	second := build(counter, nil)
	assert.Contains(t, texts(first), "Hello, Ada")

	click := func(root *widget.Root) {
		require.NoError(t, find(root, "button")[0].HandleEvent(widget.EventClick, nil))
	}
	click(first)
	click(first)
	click(second)

	assert.Equal(t, 3, counter.Total())
	assert.Contains(t, texts(first), "2", "own clicks")
	assert.Contains(t, texts(second), "1")
	assert.Contains(t, texts(second), "3", "total is shared")

	reopened, err := store.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 3, NewCounter(reopened, quiet).Total())
}

func TestCounter_StoredTotalMatchesAfterConcurrentClicks(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	counter := NewCounter(s, quiet)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			button := find(build(counter, nil), "button")[0]
			for j := 0; j < 25; j++ {
				button.HandleEvent(widget.EventClick, nil)
			}
		}()
	}
	wg.Wait()

	var stored int
	require.NoError(t, s.Get(totalKey, &stored))
	assert.Equal(t, 200, counter.Total())
	assert.Equal(t, counter.Total(), stored)
}

func TestCounter_LateDeliverySavesCurrentTotal(t *testing.T) {
	s := store.Memory()
	counter := NewCounter(s, quiet)
	counter.total.SetData(6)

	// 舊通知晚到：仍寫入目前的總數
	counter.persist(5)

	var stored int
	require.NoError(t, s.Get(totalKey, &stored))
	assert.Equal(t, 6, stored)
}

func TestCounter_CloseDetachesFromTotal(t *testing.T) {
	counter := NewCounter(nil, quiet)
	root := build(counter, nil)
	other := build(counter, nil)

	labels := find(root, "text")
	root.Close()

	require.NoError(t, find(other, "button")[0].HandleEvent(widget.EventClick, nil))
	assert.Equal(t, 1, counter.Total())
	for _, l := range labels {
		assert.NotEqual(t, "1", l.(*widget.Label).Text(), "closed tree no longer follows the total")
	}
}

func input(t *testing.T, w widget.Widget, text string) {
	t.Helper()
	data, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)
	require.NoError(t, w.HandleEvent(widget.EventTextInput, data))
}

func TestForm_ReadyOnlyWhenAllValid(t *testing.T) {
	root := build(Form, map[string]string{"name": "Ada"})
	fields := find(root, "input field")
	require.Len(t, fields, 3)
	box := find(root, "checkbox")[0].(*widget.CheckBox)
	submit := find(root, "button")[0]

	assert.Contains(t, texts(root), StatusIncomplete)

	input(t, fields[1], "ada@example.org")
	input(t, fields[2], "36")
	assert.Contains(t, texts(root), StatusIncomplete, "terms not accepted yet")

	require.NoError(t, box.HandleEvent(widget.EventCheck, json.RawMessage(`{"state":true}`)))
	assert.Contains(t, texts(root), StatusReady)

	require.NoError(t, submit.HandleEvent(widget.EventClick, nil))
	assert.Contains(t, texts(root), "Welcome, Ada <ada@example.org>")

	input(t, fields[2], "-1")
	assert.Contains(t, texts(root), StatusIncomplete)
	input(t, fields[2], "abc")
	assert.Equal(t, "abc", fields[2].(*widget.InputField).Text(), "bad input stays displayed")
	assert.Contains(t, texts(root), StatusIncomplete)

	require.NoError(t, submit.HandleEvent(widget.EventClick, nil))
	assert.Contains(t, texts(root), "Some fields are not valid")

	root.Close()
}
