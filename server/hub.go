package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// observerSink 观察者连接的最小写接口，便于测试注入假连接
// *websocket.Conn 天然满足
type observerSink interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// 心跳参数（标准 gorilla 模式）：服务端周期性发 ping，
// 读端的截止时间靠 pong 刷新；观察者是被动方，没有心跳就会被误判掉线
// 测试会临时调小，故声明为变量
var (
	observerWriteWait  = 5 * time.Second
	observerPongWait   = 60 * time.Second
	observerPingPeriod = observerPongWait * 9 / 10
)

// ObserverConn 一个已接入的观察者：连接 + 发送队列 + 独立写协程
type ObserverConn struct {
	id   string
	sink observerSink
	send chan []byte
	once sync.Once
	hub  *Hub
}

// ID 返回接入时分配的 client_id
func (c *ObserverConn) ID() string { return c.id }

// enqueue 将消息压入发送队列（非阻塞）；队列满视为投递失败
func (c *ObserverConn) enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// close 关闭发送队列，写协程清空队列后关闭底层连接；幂等
func (c *ObserverConn) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// writePump 独立协程，负责从 send 队列写出到连接，
// 并周期性发送 ping 维持空闲观察者的读截止时间
func (c *ObserverConn) writePump() {
	ticker := time.NewTicker(observerPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sink.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.sink.SetWriteDeadline(time.Now().Add(observerWriteWait))
			if err := c.sink.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.Unregister(c.id)
				return
			}
		case <-ticker.C:
			_ = c.sink.SetWriteDeadline(time.Now().Add(observerWriteWait))
			if err := c.sink.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.Unregister(c.id)
				return
			}
		}
	}
}

// Hub 观察者注册表与广播扇出
// 注册与广播都在同一把锁下排队，保证单个观察者收到的事件顺序
// 与编排逻辑发出的顺序一致，且新观察者的首帧快照不会被后续事件插队
type Hub struct {
	mu        sync.Mutex
	observers map[string]*ObserverConn
	metrics   *SimMetrics
}

// NewHub 创建空的观察者注册表
func NewHub(metrics *SimMetrics) *Hub {
	return &Hub{
		observers: make(map[string]*ObserverConn),
		metrics:   metrics,
	}
}

// Register 接入一个观察者：分配 client_id，入表，并在同一临界区内
// 投递由 snapshotFor 构造的初始快照（新建队列必有空间，不会失败）
func (h *Hub) Register(sink observerSink, snapshotFor func(clientID string) []byte) *ObserverConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &ObserverConn{
		id:   uuid.NewString(),
		sink: sink,
		send: make(chan []byte, 64),
		hub:  h,
	}
	h.observers[c.id] = c
	c.enqueue(snapshotFor(c.id))
	go c.writePump()
	h.metrics.IncObserversJoined()
	Log.Infof("observer connected: %s, total=%d", c.id, len(h.observers))
	return c
}

// Unregister 移除观察者并关闭连接；未注册的 id 为 no-op
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.observers[id]
	if !ok {
		return
	}
	delete(h.observers, id)
	c.close()
	Log.Infof("observer disconnected: %s, remaining=%d", id, len(h.observers))
}

// Broadcast 向所有观察者尽力投递；对单个观察者投递失败（队列满）
// 即将其移除并关闭，不影响其余观察者，也不重试
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.observers {
		if !c.enqueue(payload) {
			delete(h.observers, id)
			c.close()
			h.metrics.IncObserversDropped()
			Log.Warnf("observer %s send queue full, dropped; remaining=%d", id, len(h.observers))
		}
	}
	h.metrics.IncBroadcasts()
}

// Count 当前接入的观察者数量
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.observers)
}
