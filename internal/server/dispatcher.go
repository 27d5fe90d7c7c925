// ============================================================================
// widgetsync Server - 傳輸層
// ============================================================================
//
// Package: internal/server
// 文件: dispatcher.go, http.go, grpc.go
// 功能: 把 HTTP 與 gRPC 請求轉成三個 action，交給 Application
//
// 請求參數（所有傳輸共用）:
//   action      new instance | create | synchronize | kill
//   address     頁面路徑（create）
//   browser     瀏覽器識別碼（create）
//   client      client id "#n"（synchronize, kill）
//   events      事件 JSON 陣列（synchronize）
//   lastUpdate  已確認的最大 Update id（synchronize）
//   其他 key    create 時作為頁面參數
//
// 錯誤處理:
//   除了未知的 action 之外，任何結果都不以錯誤回傳：
//   找不到 client、格式錯誤的 id 一律轉成 {"result":false} 或 false。
//
// ============================================================================

package server

import (
	"errors"
	"fmt"

	"github.com/ChuLiYu/widgetsync/internal/application"
	"github.com/ChuLiYu/widgetsync/pkg/types"
	"github.com/ChuLiYu/widgetsync/pkg/uid"
)

// ErrUnknownAction is returned for an action name the dispatcher does not serve.
var ErrUnknownAction = errors.New("unknown action")

var reservedKeys = map[string]bool{
	types.KeyAction:     true,
	types.KeyAddress:    true,
	types.KeyBrowser:    true,
	types.KeyClient:     true,
	types.KeyEvents:     true,
	types.KeyLastUpdate: true,
}

// Dispatcher maps action names onto the Application.
type Dispatcher struct {
	app *application.Application
}

func NewDispatcher(app *application.Application) *Dispatcher {
	return &Dispatcher{app: app}
}

// Dispatch runs the action named by params["action"]. The result is one of
// types.CreateResponse, types.SyncResponse or bool, ready to be encoded.
func (d *Dispatcher) Dispatch(params map[string]string) (any, error) {
	switch action := params[types.KeyAction]; action {
	case types.ActionCreate, types.ActionCreateAlias:
		return d.create(params), nil
	case types.ActionSynchronize:
		return d.synchronize(params), nil
	case types.ActionKill:
		return d.kill(params), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (d *Dispatcher) create(params map[string]string) types.CreateResponse {
	pageParams := make(map[string]string)
	for k, v := range params {
		if !reservedKeys[k] {
			pageParams[k] = v
		}
	}
	id := d.app.CreateClient(types.CreateRequest{
		PagePath:   params[types.KeyAddress],
		BrowserID:  params[types.KeyBrowser],
		Parameters: pageParams,
	})
	return types.CreateResponse{ClientID: id}
}

func (d *Dispatcher) synchronize(params map[string]string) types.SyncResponse {
	id, err := uid.Parse(params[types.KeyClient])
	if err != nil {
		return types.SyncResponse{Result: false}
	}
	req := types.SyncRequest{LastUpdate: params[types.KeyLastUpdate]}
	if events := params[types.KeyEvents]; events != "" {
		req.Events = []byte(events)
	}
	resp, _ := d.app.Synchronize(id, req)
	return resp
}

func (d *Dispatcher) kill(params map[string]string) bool {
	id, err := uid.Parse(params[types.KeyClient])
	if err != nil {
		return false
	}
	return d.app.KillClient(id)
}
