package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 演示环境：允许所有来源（生产环境需严格限制）
		return true
	},
}

// HandleWS WebSocket 接入：注册观察者、下发初始快照，
// 之后持续读取观察者上报的事件（move_complete）
func (w *World) HandleWS(rw http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		Log.Errorf("upgrade error: %v", err)
		return
	}

	obs := w.RegisterObserver(ws)
	w.observerReadPump(ws, obs)
}

// observerReadPump 读取观察者消息，读泵退出时注销观察者
// 观察者可能长期安静，读截止时间依赖写泵的 ping / 对端的 pong 刷新
func (w *World) observerReadPump(ws *websocket.Conn, obs *ObserverConn) {
	defer w.hub.Unregister(obs.ID())
	ws.SetReadLimit(1 << 20) // 1MB
	_ = ws.SetReadDeadline(time.Now().Add(observerPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(observerPongWait))
	})

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(observerPongWait))
		var ev ObserverEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			Log.Warnf("observer %s sent malformed event: %v", obs.ID(), err)
			continue
		}
		if ev.Event != "move_complete" {
			continue
		}
		w.MoveComplete(ev.NPCID)
	}
}
