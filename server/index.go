package server

import "net/http"

// 根路径欢迎页：后端状态与接口速览（纯静态）
const indexHTML = `<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>SimVerse Engine</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; background: #1e3c72; color: #fff; padding: 40px; }
.box { max-width: 720px; margin: 0 auto; background: rgba(255,255,255,.08); border-radius: 12px; padding: 24px 32px; }
code { background: rgba(0,0,0,.35); padding: 2px 6px; border-radius: 4px; }
li { margin: 8px 0; }
</style>
</head>
<body>
<div class="box">
<h1>SimVerse Engine</h1>
<p>服务运行正常。</p>
<ul>
<li>WebSocket 接入：<code>ws://&lt;host&gt;/ws</code></li>
<li>移动指令：<code>POST /command/move/{npc_id}</code> 载荷 <code>{"target_x":int,"target_y":int}</code></li>
<li>交互式指令：<code>POST /command/interactive_move</code></li>
<li>NPC 状态：<code>GET /admin/npc_states</code></li>
<li>强制重置：<code>POST /admin/reset_npc_state/{npc_id}</code></li>
<li>运行指标：<code>GET /metrics</code></li>
</ul>
</div>
</body>
</html>
`

// HandleIndex 根路径欢迎页
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}
