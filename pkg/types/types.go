// Package types 定義了 widgetsync 傳輸層與核心共用的資料結構
//
// These are the payload shapes of the three client actions (create,
// synchronize, kill). Transports decode into them; the core never sees raw
// HTTP or gRPC messages.
package types

import (
	"encoding/json"
	"fmt"

	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

// Action names understood by the dispatcher.
const (
	ActionCreate      = "new instance"
	ActionCreateAlias = "create"
	ActionSynchronize = "synchronize"
	ActionKill        = "kill"
)

// Request keys shared by every transport.
const (
	KeyAction     = "action"
	KeyAddress    = "address"
	KeyBrowser    = "browser"
	KeyClient     = "client"
	KeyEvents     = "events"
	KeyLastUpdate = "lastUpdate"
)

// CreateRequest asks for a new client bound to a page.
type CreateRequest struct {
	PagePath   string            `json:"address"`
	BrowserID  string            `json:"browser,omitempty"` // opaque correlation token
	Parameters map[string]string `json:"parameters,omitempty"`
}

// CreateResponse carries the identifier of the created client.
type CreateResponse struct {
	ClientID uid.ID `json:"id"`
}

// Event is one user interaction reported by the browser.
type Event struct {
	ID     uid.ID          `json:"id"`
	Widget uid.ID          `json:"widget"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// SyncRequest is the body of a synchronize action. Events is kept raw so
// that a malformed record only costs that record.
type SyncRequest struct {
	Events     json.RawMessage `json:"events,omitempty"`
	LastUpdate string          `json:"lastUpdate,omitempty"`
}

// SyncResponse is what the client receives back. Updates are already
// serialized, in ascending id order.
type SyncResponse struct {
	Result    bool              `json:"result"`
	LastEvent uid.ID            `json:"lastEvent"`
	Updates   []json.RawMessage `json:"updates"`
}

// MarshalJSON renders a failed synchronization as {"result":false}.
func (r SyncResponse) MarshalJSON() ([]byte, error) {
	if !r.Result {
		return []byte(`{"result":false}`), nil
	}
	type plain SyncResponse
	p := plain(r)
	if p.Updates == nil {
		p.Updates = []json.RawMessage{}
	}
	return json.Marshal(p)
}

// PointerEvent is the payload of click and pointer events.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Button int     `json:"button"`
	Alt    bool    `json:"alt,omitempty"`
	Ctrl   bool    `json:"ctrl,omitempty"`
	Shift  bool    `json:"shift,omitempty"`
}

// Color is an RGB color with alpha, 0-255 per channel.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Predefined colors.
var (
	Black = Color{0, 0, 0, 255}
	White = Color{255, 255, 255, 255}
	Red   = Color{255, 0, 0, 255}
	Green = Color{0, 128, 0, 255}
	Blue  = Color{0, 0, 255, 255}
	Gray  = Color{128, 128, 128, 255}
)

// RGB builds an opaque color.
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
