package server

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// World 世界权威状态：NPC 注册表、通行网格、移动状态机与广播枢纽
// 全部状态变更都在 mu 临界区内完成，广播入队也在锁内执行，
// 保证广播内容永远反映转移之后的状态，且事件顺序与转移顺序一致
type World struct {
	mu        sync.Mutex
	grid      *Grid
	npcs      map[string]*NPC
	walkStart map[string]time.Time // 仅 walking 状态的 NPC 有记录
	hub       *Hub
	metrics   *SimMetrics

	moveTimeout   atomic.Int64 // 纳秒，管理接口可热更新
	sweepInterval time.Duration
}

// NewWorld 按配置构建世界：网格一次性生成，花名册全部置为 idle
func NewWorld(cfg *Config) (*World, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	w := &World{
		grid:          NewGrid(cfg.MapWidthPx, cfg.MapHeightPx, cfg.CellSize, cfg.Obstacles),
		npcs:          make(map[string]*NPC, len(cfg.Roster)),
		walkStart:     make(map[string]time.Time),
		sweepInterval: time.Duration(cfg.SweepIntervalSec) * time.Second,
	}
	w.metrics = &SimMetrics{}
	w.hub = NewHub(w.metrics)
	w.moveTimeout.Store(int64(time.Duration(cfg.MovementTimeoutSec) * time.Second))
	for _, n := range cfg.Roster {
		w.npcs[n.ID] = &NPC{
			ID:    n.ID,
			Name:  n.Name,
			Kind:  n.Kind,
			X:     n.X,
			Y:     n.Y,
			State: StateIdle,
		}
	}
	cols, rows := w.grid.Dimensions()
	Log.Infof("world ready: grid %dx%d (cell %dpx), %d npcs, %d obstacles",
		cols, rows, w.grid.CellSize(), len(w.npcs), len(cfg.Obstacles))
	return w, nil
}

// Grid 暴露只读网格（规划器调用方使用）
func (w *World) Grid() *Grid { return w.grid }

// MovementTimeout 当前移动超时阈值
func (w *World) MovementTimeout() time.Duration {
	return time.Duration(w.moveTimeout.Load())
}

// SetMovementTimeout 热更新移动超时阈值
func (w *World) SetMovementTimeout(d time.Duration) {
	w.moveTimeout.Store(int64(d))
}

// CommandMove 移动指令入口：校验 NPC 存在且 idle，裁剪目标坐标，
// A* 规划路径，转移到 walking 并广播 move_along_path
func (w *World) CommandMove(npcID string, targetX, targetY float64) (*MoveResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	npc, ok := w.npcs[npcID]
	if !ok {
		w.metrics.IncUnknownNPC()
		Log.Warnf("move command for unknown npc %q", npcID)
		return nil, fmt.Errorf("%w: %s", ErrNPCNotFound, npcID)
	}
	if npc.State != StateIdle {
		w.metrics.IncConflict()
		Log.Warnf("move command rejected: npc %s (%s) is %s", npc.Name, npcID, npc.State)
		return nil, fmt.Errorf("%w: %s", ErrNPCBusy, npcID)
	}

	// 像素 → 网格，越界目标裁剪到最近的有效单元
	start := w.grid.PixelToCell(npc.X, npc.Y)
	goal := w.grid.PixelToCell(targetX, targetY)
	Log.Infof("move command: %s (%s) px(%.0f,%.0f)->(%.0f,%.0f) grid(%d,%d)->(%d,%d)",
		npc.Name, npcID, npc.X, npc.Y, targetX, targetY, start.Col, start.Row, goal.Col, goal.Row)

	cells, found := FindPath(w.grid, start, goal)
	if !found {
		w.metrics.IncNoPath()
		Log.Warnf("no path for %s: grid(%d,%d)->(%d,%d)", npcID, start.Col, start.Row, goal.Col, goal.Row)
		return nil, fmt.Errorf("%w: (%d,%d)->(%d,%d)", ErrNoPath, start.Col, start.Row, goal.Col, goal.Row)
	}

	// 网格路径 → 单元中心点像素路径
	pixelPath := make([]PathPoint, len(cells))
	for i, c := range cells {
		x, y := w.grid.CellToPixel(c)
		pixelPath[i] = PathPoint{X: x, Y: y}
	}

	npc.State = StateWalking
	w.walkStart[npcID] = time.Now()
	w.metrics.IncAccepted()

	w.broadcastLocked(moveAlongPathMsg{
		Action: "move_along_path",
		Data:   moveAlongPathData{NPCID: npcID, Path: pixelPath},
	})
	Log.Infof("path dispatched: %s, %d nodes, broadcast to %d observers", npcID, len(cells), w.hub.Count())

	return &MoveResult{
		Message:    fmt.Sprintf("command dispatched: %s moving to (%.0f, %.0f)", npc.Name, targetX, targetY),
		PathLength: len(cells),
		Action:     "path_command_sent",
	}, nil
}

// MoveComplete 处理观察者上报的移动完成事件
// 未知 NPC 或非 walking 状态的事件记录日志后忽略（幂等 no-op）
func (w *World) MoveComplete(npcID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	npc, ok := w.npcs[npcID]
	if !ok {
		Log.Warnf("move_complete for unknown npc %q, ignored", npcID)
		return
	}
	if npc.State != StateWalking {
		Log.Warnf("move_complete for %s while %s, ignored", npcID, npc.State)
		return
	}

	npc.State = StateIdle
	delete(w.walkStart, npcID)
	w.metrics.IncCompletions()
	Log.Infof("move complete: %s (%s), back to idle", npc.Name, npcID)
	w.broadcastStateLocked()
}

// ForceIdle 管理员强制重置：任意状态 → idle，绕过校验，总是清理
// 超时跟踪并广播；返回重置前的状态
func (w *World) ForceIdle(npcID string) (NPCState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	npc, ok := w.npcs[npcID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNPCNotFound, npcID)
	}
	old := npc.State
	npc.State = StateIdle
	delete(w.walkStart, npcID)
	w.metrics.IncForcedResets()
	Log.Infof("admin reset: %s (%s) %s -> idle", npc.Name, npcID, old)
	w.broadcastStateLocked()
	return old, nil
}

// recoverIdle 内部失败兜底：若 NPC 卡在非 idle 状态则恢复并广播
// 指令处理 panic 后由 HTTP 层调用，确保状态机不会停在 walking
func (w *World) recoverIdle(npcID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	npc, ok := w.npcs[npcID]
	if !ok || npc.State == StateIdle {
		delete(w.walkStart, npcID)
		return
	}
	npc.State = StateIdle
	delete(w.walkStart, npcID)
	Log.Warnf("recovered %s to idle after internal failure", npcID)
	w.broadcastStateLocked()
}

// SweepTimeouts 看门狗单次扫描：回收超过阈值仍在 walking 的 NPC
// 与完成事件竞争时先到先得，后到方因状态已变成为 no-op
func (w *World) SweepTimeouts(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	timeout := time.Duration(w.moveTimeout.Load())
	reclaimed := 0
	for npcID, started := range w.walkStart {
		if now.Sub(started) <= timeout {
			continue
		}
		npc, ok := w.npcs[npcID]
		if !ok || npc.State != StateWalking {
			// 跟踪表与状态不一致只可能是内部缺陷，清理后继续
			delete(w.walkStart, npcID)
			continue
		}
		Log.Warnf("movement timeout (%v): forcing %s (%s) back to idle", timeout, npc.Name, npcID)
		npc.State = StateIdle
		delete(w.walkStart, npcID)
		w.metrics.IncTimeouts()
		w.broadcastStateLocked()
		reclaimed++
	}
	return reclaimed
}

// RegisterObserver 接入观察者：在世界锁内取快照并注册，
// 保证初始快照与后续事件之间不会漏掉或错序任何状态变更
func (w *World) RegisterObserver(sink observerSink) *ObserverConn {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := w.fullStateLocked()
	return w.hub.Register(sink, func(clientID string) []byte {
		b, _ := json.Marshal(connectionEstablishedMsg{
			Action:   "connection_established",
			ClientID: clientID,
			Message:  "connected to SimVerse engine",
			State:    state,
		})
		return b
	})
}

// NPCStateOf 查询单个 NPC 的当前状态
func (w *World) NPCStateOf(npcID string) (NPCState, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	npc, ok := w.npcs[npcID]
	if !ok {
		return "", false
	}
	return npc.State, true
}

// AdminNPCState 管理接口的 NPC 状态视图
type AdminNPCState struct {
	Name     string        `json:"name"`
	State    NPCState      `json:"state"`
	Position AdminPosition `json:"position"`
}

type AdminPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AdminStates 返回所有 NPC 的名称/状态/位置
func (w *World) AdminStates() map[string]AdminNPCState {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]AdminNPCState, len(w.npcs))
	for id, npc := range w.npcs {
		out[id] = AdminNPCState{
			Name:     npc.Name,
			State:    npc.State,
			Position: AdminPosition{X: npc.X, Y: npc.Y},
		}
	}
	return out
}

// fullStateLocked 当前全量状态快照；调用方必须持有 w.mu
func (w *World) fullStateLocked() map[string]NPCView {
	state := make(map[string]NPCView, len(w.npcs))
	for id, npc := range w.npcs {
		state[id] = npc.view()
	}
	return state
}

// broadcastStateLocked 广播 state_update 全量快照；调用方必须持有 w.mu
func (w *World) broadcastStateLocked() {
	w.broadcastLocked(stateUpdateMsg{
		Action: "state_update",
		Data:   w.fullStateLocked(),
	})
}

// broadcastLocked 序列化并扇出一个事件；调用方必须持有 w.mu
func (w *World) broadcastLocked(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		// 序列化失败只影响本次广播，不能中断状态机
		Log.Errorf("broadcast marshal failed: %v", err)
		return
	}
	w.hub.Broadcast(b)
}
