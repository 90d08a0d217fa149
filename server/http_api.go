package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMoveResponse 将错误分类映射为 HTTP 状态码
// NotFound→404 Busy→409 NoPath→400 其余→500
func writeMoveResponse(w http.ResponseWriter, res *MoveResult, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, ErrNPCNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"message": err.Error()})
	case errors.Is(err, ErrNPCBusy):
		writeJSON(w, http.StatusConflict, map[string]any{"message": err.Error()})
	case errors.Is(err, ErrNoPath):
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
	default:
		// 不向调用方泄露内部细节
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "internal error while handling move command"})
	}
}

// safeCommandMove 捕获指令处理中的意外 panic：
// 记录日志、把 NPC 兜底恢复为 idle，并以 ErrInternal 上报
func (w *World) safeCommandMove(npcID string, x, y float64) (res *MoveResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			Log.Errorf("move command panic for %s: %v", npcID, rec)
			w.recoverIdle(npcID)
			res, err = nil, ErrInternal
		}
	}()
	return w.CommandMove(npcID, x, y)
}

// HandleCommandMove 控制器指令入口
// POST /command/move/{npc_id}  载荷 {"target_x":int,"target_y":int}
func (w *World) HandleCommandMove(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	npcID := strings.TrimPrefix(r.URL.Path, "/command/move/")
	if npcID == "" || strings.Contains(npcID, "/") {
		writeJSON(rw, http.StatusNotFound, map[string]any{"message": "missing npc id"})
		return
	}
	var cmd MoveCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"message": "invalid json payload"})
		return
	}
	res, err := w.safeCommandMove(npcID, cmd.TargetX, cmd.TargetY)
	writeMoveResponse(rw, res, err)
}

// HandleInteractiveMove Web 控制器指令入口（npc_id 在载荷内）
// POST /command/interactive_move  载荷 {"npc_id":...,"target_x":...,"target_y":...}
func (w *World) HandleInteractiveMove(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var cmd InteractiveMoveCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]any{"message": "invalid json payload"})
		return
	}
	if cmd.NPCID == "" {
		writeJSON(rw, http.StatusNotFound, map[string]any{"message": "missing npc_id"})
		return
	}
	res, err := w.safeCommandMove(cmd.NPCID, cmd.TargetX, cmd.TargetY)
	writeMoveResponse(rw, res, err)
}

// HandleAdminResetNPC 管理员强制重置 NPC 状态，用于处理状态卡死
// POST /admin/reset_npc_state/{npc_id}
func (w *World) HandleAdminResetNPC(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	npcID := strings.TrimPrefix(r.URL.Path, "/admin/reset_npc_state/")
	if npcID == "" || strings.Contains(npcID, "/") {
		writeJSON(rw, http.StatusNotFound, map[string]any{"message": "missing npc id"})
		return
	}
	old, err := w.ForceIdle(npcID)
	if err != nil {
		writeJSON(rw, http.StatusNotFound, map[string]any{"message": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("npc %s state reset to idle (was %s)", npcID, old),
	})
}

// HandleAdminNPCStates 获取所有 NPC 的名称/状态/位置
// GET /admin/npc_states
func (w *World) HandleAdminNPCStates(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"npc_states": w.AdminStates()})
}

// HandleAdminConfig 运行参数的读取与热更新
// GET /admin/config 返回当前配置；POST 以 JSON 载荷更新部分字段
func (w *World) HandleAdminConfig(rw http.ResponseWriter, r *http.Request) {
	type cfg struct {
		MovementTimeoutSec *int `json:"movement_timeout_sec,omitempty"`
		SweepIntervalSec   *int `json:"sweep_interval_sec,omitempty"`
	}
	switch r.Method {
	case http.MethodGet:
		timeoutSec := int(w.MovementTimeout().Seconds())
		sweepSec := int(w.sweepInterval.Seconds())
		writeJSON(rw, http.StatusOK, cfg{
			MovementTimeoutSec: &timeoutSec,
			SweepIntervalSec:   &sweepSec,
		})
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(rw, "invalid json", http.StatusBadRequest)
			return
		}
		// 先整体校验，再落地变更：出错时不得留下半套更新
		// 扫描周期绑定在已启动的看门狗上，不支持热更新
		if body.SweepIntervalSec != nil {
			http.Error(rw, "sweep_interval_sec is not hot-updatable", http.StatusBadRequest)
			return
		}
		if body.MovementTimeoutSec != nil && *body.MovementTimeoutSec <= 0 {
			http.Error(rw, "movement_timeout_sec must be positive", http.StatusBadRequest)
			return
		}
		if body.MovementTimeoutSec != nil {
			w.SetMovementTimeout(time.Duration(*body.MovementTimeoutSec) * time.Second)
			Log.Infof("config updated: movement_timeout=%ds", *body.MovementTimeoutSec)
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true})
	default:
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (w *World) HandleMetrics(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"observers": w.hub.Count(),
		"metrics":   w.metrics.Snapshot(),
	})
}
