package server

// NPCState NPC 移动状态机的状态，任意时刻二者必居其一
type NPCState string

const (
	StateIdle    NPCState = "idle"
	StateWalking NPCState = "walking"
)

// NPC 世界内的角色实体（服务端权威状态），仅由 World 持锁修改
type NPC struct {
	ID    string
	Name  string
	Kind  string // player / guard / npc，开放扩展
	X     float64
	Y     float64
	State NPCState
}

// NPCView 为广播给客户端的轻量状态（字段名与前端协议对齐）
type NPCView struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Kind  string   `json:"type"`
	State NPCState `json:"state"`
}

func (n *NPC) view() NPCView {
	return NPCView{
		ID:    n.ID,
		Name:  n.Name,
		X:     n.X,
		Y:     n.Y,
		Kind:  n.Kind,
		State: n.State,
	}
}
