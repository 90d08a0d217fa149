package server

import "errors"

// 移动指令的预期错误分类，由 HTTP 层映射为状态码
var (
	// ErrNPCNotFound 未知的 NPC ID → 404
	ErrNPCNotFound = errors.New("npc not found")
	// ErrNPCBusy NPC 正在移动中，指令被拒绝 → 409
	ErrNPCBusy = errors.New("npc is busy")
	// ErrNoPath 起点与终点之间不存在可通行路径 → 400
	ErrNoPath = errors.New("no walkable path")
	// ErrInternal 编排过程中的意外失败（状态已恢复 idle）→ 500
	ErrInternal = errors.New("internal error")
)
