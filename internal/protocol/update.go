// ============================================================================
// widgetsync Protocol - 更新指令
// ============================================================================
//
// Package: internal/protocol
// 文件: update.go
// 功能: 描述單一 widget 狀態變更的不可變指令，依 id 排序送往瀏覽器
//
// 序列化格式:
//   {"id":"#12","widget":"#3","action":"set text","text":"..."}
//   id/widget/action 之後依宣告順序附加各指令專屬欄位
//
// ============================================================================

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ChuLiYu/widgetsync/pkg/types"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

// Action tags.
const (
	ActionCreateWidget = "create widget"
	ActionAppendChild  = "append child"
	ActionRemoveChild  = "remove child"
	ActionSetChild     = "set child"
	ActionSetText      = "set text"
	ActionSetColor     = "set color"
	ActionSetBgColor   = "set background color"
	ActionSetFontSize  = "set font size"
	ActionSubscribe    = "subscribe"
	ActionReset        = "reset"
	ActionNextChunk    = "next chunk"
)

// Field is one action-specific key of an Update.
type Field struct {
	Name  string
	Value any
}

// Update is an immutable instruction. Its ordering is defined solely by ID.
type Update struct {
	id     uid.ID
	widget uid.ID
	action string
	fields []Field
}

func newUpdate(widget uid.ID, action string, fields ...Field) Update {
	return Update{id: uid.New(), widget: widget, action: action, fields: fields}
}

func (u Update) ID() uid.ID     { return u.id }
func (u Update) Widget() uid.ID { return u.widget }
func (u Update) Action() string { return u.action }

// Fields returns a copy of the action-specific fields.
func (u Update) Fields() []Field {
	return append([]Field(nil), u.fields...)
}

// Field looks up a field by name.
func (u Update) Field(name string) (any, bool) {
	for _, f := range u.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Reissue returns the same instruction under a fresh id, for widgets that
// need to resend their full state.
func (u Update) Reissue() Update {
	return Update{id: uid.New(), widget: u.widget, action: u.action, fields: u.fields}
}

// MarshalJSON writes id, widget and action first, then the fields in
// declaration order.
func (u Update) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, "id")
	buf.WriteString(`"` + u.id.String() + `"`)
	buf.WriteByte(',')
	writeKey(&buf, "widget")
	buf.WriteString(`"` + u.widget.String() + `"`)
	buf.WriteByte(',')
	writeKey(&buf, "action")
	action, err := json.Marshal(u.action)
	if err != nil {
		return nil, err
	}
	buf.Write(action)

	for _, f := range u.fields {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("update %s field %q: %w", u.id, f.Name, err)
		}
		buf.WriteByte(',')
		writeKey(&buf, f.Name)
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (u Update) String() string {
	data, err := u.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("update %s (%s)", u.id, u.action)
	}
	return string(data)
}

func writeKey(buf *bytes.Buffer, key string) {
	k, _ := json.Marshal(key)
	buf.Write(k)
	buf.WriteByte(':')
}

// ============================================================================
// 建構函式
// ============================================================================

// CreateWidget tells the browser to instantiate a widget of the given type.
func CreateWidget(widget uid.ID, widgetType string) Update {
	return newUpdate(widget, ActionCreateWidget, Field{"type", widgetType})
}

func AppendChild(child, container uid.ID) Update {
	return newUpdate(child, ActionAppendChild, Field{"container", container})
}

func RemoveChild(child, container uid.ID) Update {
	return newUpdate(child, ActionRemoveChild, Field{"container", container})
}

// SetChild replaces the single child of a decorator-like container.
func SetChild(child, container uid.ID) Update {
	return newUpdate(child, ActionSetChild, Field{"container", container})
}

func SetText(widget uid.ID, text string) Update {
	return newUpdate(widget, ActionSetText, Field{"text", text})
}

func SetColor(widget uid.ID, c types.Color) Update {
	return newUpdate(widget, ActionSetColor, Field{"color", c})
}

func SetBgColor(widget uid.ID, c types.Color) Update {
	return newUpdate(widget, ActionSetBgColor, Field{"background color", c})
}

// SetFontSize carries a CSS size such as "12pt".
func SetFontSize(widget uid.ID, size string) Update {
	return newUpdate(widget, ActionSetFontSize, Field{"font size", size})
}

// SetProperty sets a named property, optionally for a widget state such as
// "hovered". An empty state applies to every state.
func SetProperty(widget uid.ID, state, name string, value any) Update {
	if state == "" {
		return newUpdate(widget, "set "+name, Field{name, value})
	}
	return newUpdate(widget, "set "+name, Field{"state", state}, Field{name, value})
}

// Subscribe asks the browser to start reporting an event type for widget.
func Subscribe(widget uid.ID, event string) Update {
	return newUpdate(widget, ActionSubscribe, Field{"event", event})
}

// Reset tells the browser to drop its tree and start over.
func Reset(root uid.ID) Update {
	return newUpdate(root, ActionReset)
}

// NextChunk asks the browser to request the next chunk of a long transfer.
func NextChunk(widget uid.ID) Update {
	return newUpdate(widget, ActionNextChunk)
}
