package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"simverse/server"
)

// SimVerse 入口：加载配置，启动 HTTP + WebSocket 服务与超时看门狗
func main() {
	var addr string
	var cfgPath string
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8000 (overrides config)")
	flag.StringVar(&cfgPath, "config", "", "path to config.yaml (optional, defaults built in)")
	flag.Parse()

	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Listen = addr
	}

	// 使用第三方 zap 日志库写入 app.log（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	world, err := server.NewWorld(cfg)
	if err != nil {
		server.Log.Fatalf("build world: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", world.HandleWS)
	mux.HandleFunc("/", server.HandleIndex)
	// 指令接口
	mux.HandleFunc("/command/move/", world.HandleCommandMove)
	mux.HandleFunc("/command/interactive_move", world.HandleInteractiveMove)
	// 管理与监控接口
	mux.HandleFunc("/admin/reset_npc_state/", world.HandleAdminResetNPC)
	mux.HandleFunc("/admin/npc_states", world.HandleAdminNPCStates)
	mux.HandleFunc("/admin/config", world.HandleAdminConfig)
	mux.HandleFunc("/metrics", world.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	// 看门狗在后台周期性回收卡死的 NPC
	ctx, cancel := context.WithCancel(context.Background())
	watchdogDone := world.StartWatchdog(ctx)

	srv := &http.Server{Addr: cfg.Listen, Handler: mux}

	go func() {
		server.Log.Infof("SimVerse listening on %s; ws endpoint at ws://localhost%v/ws", cfg.Listen, cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
	cancel()
	<-watchdogDone
	_ = srv.Shutdown(context.Background())
}
