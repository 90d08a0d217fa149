package server

import (
	"context"
	"time"
)

// StartWatchdog 启动超时看门狗循环：周期性回收卡在 walking 的 NPC
// 单次扫描出错（panic）只记录日志，循环继续；ctx 取消后干净退出，
// 返回的通道在循环结束时关闭
func (w *World) StartWatchdog(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		Log.Infof("watchdog started: sweep every %v, movement timeout %v", w.sweepInterval, w.MovementTimeout())
		for {
			select {
			case <-ctx.Done():
				Log.Info("watchdog stopped")
				return
			case <-ticker.C:
				w.safeSweep()
			}
		}
	}()
	return done
}

// safeSweep 执行一次扫描并吞掉 panic，保证看门狗不会因单次失败退出
func (w *World) safeSweep() {
	defer func() {
		if rec := recover(); rec != nil {
			Log.Errorf("timeout sweep panic: %v", rec)
		}
	}()
	if n := w.SweepTimeouts(time.Now()); n > 0 {
		Log.Warnf("watchdog reclaimed %d stuck npc(s)", n)
	}
}
