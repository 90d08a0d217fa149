package server

// 入站 HTTP 指令载荷
// 示例：{"target_x":640,"target_y":480}
type MoveCommand struct {
	TargetX float64 `json:"target_x"`
	TargetY float64 `json:"target_y"`
}

// InteractiveMoveCommand Web 控制器使用的完整指令（含 npc_id）
type InteractiveMoveCommand struct {
	NPCID   string  `json:"npc_id"`
	TargetX float64 `json:"target_x"`
	TargetY float64 `json:"target_y"`
}

// MoveResult 指令成功时返回给调用方的结果
type MoveResult struct {
	Message    string `json:"message"`
	PathLength int    `json:"path_length"`
	Action     string `json:"action"`
}

// ObserverEvent 观察者经 WebSocket 上报的事件
// 示例：{"event":"move_complete","npc_id":"npc_1"}
type ObserverEvent struct {
	Event string `json:"event"`
	NPCID string `json:"npc_id"`
}

// PathPoint 路径上的一个像素坐标点（网格单元中心）
type PathPoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// 出站实时事件（core → observer）

type connectionEstablishedMsg struct {
	Action   string             `json:"action"` // "connection_established"
	ClientID string             `json:"client_id"`
	Message  string             `json:"message"`
	State    map[string]NPCView `json:"game_state"`
}

type moveAlongPathMsg struct {
	Action string            `json:"action"` // "move_along_path"
	Data   moveAlongPathData `json:"data"`
}

type moveAlongPathData struct {
	NPCID string      `json:"npc_id"`
	Path  []PathPoint `json:"path"`
}

type stateUpdateMsg struct {
	Action string             `json:"action"` // "state_update"
	Data   map[string]NPCView `json:"data"`
}
