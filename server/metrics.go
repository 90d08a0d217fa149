package server

import (
	"sync/atomic"
)

// SimMetrics 记录运行期的关键指标（用于监控与调试）
type SimMetrics struct {
	MovesAccepted    int64 // 成功派发路径的移动指令数
	MovesConflict    int64 // 因 NPC 正在移动被拒绝的指令数
	MovesUnknownNPC  int64 // 因 NPC 不存在被拒绝的指令数
	MovesNoPath      int64 // 因无可行路径被拒绝的指令数
	Completions      int64 // 收到的移动完成事件数
	Timeouts         int64 // 看门狗强制回收的移动数
	ForcedResets     int64 // 管理接口强制重置数
	BroadcastsSent   int64 // 已发出的广播事件数
	ObserversJoined  int64 // 累计接入的观察者数
	ObserversDropped int64 // 因发送失败被移除的观察者数
}

func (m *SimMetrics) IncAccepted() { atomic.AddInt64(&m.MovesAccepted, 1) }
func (m *SimMetrics) IncConflict() { atomic.AddInt64(&m.MovesConflict, 1) }
func (m *SimMetrics) IncUnknownNPC() { atomic.AddInt64(&m.MovesUnknownNPC, 1) }
func (m *SimMetrics) IncNoPath() { atomic.AddInt64(&m.MovesNoPath, 1) }
func (m *SimMetrics) IncCompletions() { atomic.AddInt64(&m.Completions, 1) }
func (m *SimMetrics) IncTimeouts() { atomic.AddInt64(&m.Timeouts, 1) }
func (m *SimMetrics) IncForcedResets() { atomic.AddInt64(&m.ForcedResets, 1) }
func (m *SimMetrics) IncBroadcasts() { atomic.AddInt64(&m.BroadcastsSent, 1) }
func (m *SimMetrics) IncObserversJoined() { atomic.AddInt64(&m.ObserversJoined, 1) }
func (m *SimMetrics) IncObserversDropped() { atomic.AddInt64(&m.ObserversDropped, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *SimMetrics) Snapshot() map[string]any {
	return map[string]any{
		"moves_accepted":    atomic.LoadInt64(&m.MovesAccepted),
		"moves_conflict":    atomic.LoadInt64(&m.MovesConflict),
		"moves_unknown_npc": atomic.LoadInt64(&m.MovesUnknownNPC),
		"moves_no_path":     atomic.LoadInt64(&m.MovesNoPath),
		"completions":       atomic.LoadInt64(&m.Completions),
		"timeouts":          atomic.LoadInt64(&m.Timeouts),
		"forced_resets":     atomic.LoadInt64(&m.ForcedResets),
		"broadcasts_sent":   atomic.LoadInt64(&m.BroadcastsSent),
		"observers_joined":  atomic.LoadInt64(&m.ObserversJoined),
		"observers_dropped": atomic.LoadInt64(&m.ObserversDropped),
	}
}
