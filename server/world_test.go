package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSink 测试用的观察者连接：记录收到的数据帧与 ping，可模拟写失败
type fakeSink struct {
	mu     sync.Mutex
	frames [][]byte
	pings  int
	broken bool
	closed bool
}

func (f *fakeSink) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errors.New("broken pipe")
	}
	if messageType == websocket.PingMessage {
		f.pings++
		return nil
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeSink) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

func (f *fakeSink) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSink) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSink) frame(i int) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var m map[string]any
	if err := json.Unmarshal(f.frames[i], &m); err != nil {
		return nil
	}
	return m
}

func (f *fakeSink) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// 10x10 空网格的最小世界，单个 NPC 站在 (150,250)
func testConfig() *Config {
	return &Config{
		Listen:             ":0",
		LogFile:            "test.log",
		LogLevel:           "info",
		MapWidthPx:         320,
		MapHeightPx:        320,
		CellSize:           32,
		MovementTimeoutSec: 30,
		SweepIntervalSec:   1,
		Obstacles:          nil,
		Roster: []NPCSpec{
			{ID: "npc_1", Name: "玩家1", Kind: "player", X: 150, Y: 250},
			{ID: "npc_2", Name: "守卫", Kind: "guard", X: 50, Y: 50},
		},
	}
}

func newTestWorld(t *testing.T, cfg *Config) *World {
	t.Helper()
	w, err := NewWorld(cfg)
	require.NoError(t, err)
	return w
}

func waitFrames(t *testing.T, s *fakeSink, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.frameCount() >= n },
		time.Second, 5*time.Millisecond, "expected %d frames, got %d", n, s.frameCount())
}

func TestObserverSnapshotOnJoin(t *testing.T) {
	w := newTestWorld(t, testConfig())
	sink := &fakeSink{}
	obs := w.RegisterObserver(sink)

	waitFrames(t, sink, 1)
	msg := sink.frame(0)
	assert.Equal(t, "connection_established", msg["action"])
	assert.Equal(t, obs.ID(), msg["client_id"])
	state := msg["game_state"].(map[string]any)
	require.Len(t, state, 2)
	npc := state["npc_1"].(map[string]any)
	assert.Equal(t, "idle", npc["state"])
	assert.Equal(t, "玩家1", npc["name"])
	assert.Equal(t, "player", npc["type"])
}

func TestMoveCommandLifecycle(t *testing.T) {
	w := newTestWorld(t, testConfig())
	sink := &fakeSink{}
	w.RegisterObserver(sink)

	res, err := w.CommandMove("npc_1", 50, 50)
	require.NoError(t, err)
	assert.Greater(t, res.PathLength, 1)
	assert.Equal(t, "path_command_sent", res.Action)

	st, ok := w.NPCStateOf("npc_1")
	require.True(t, ok)
	assert.Equal(t, StateWalking, st)
	w.mu.Lock()
	_, tracked := w.walkStart["npc_1"]
	w.mu.Unlock()
	assert.True(t, tracked)

	// 快照之后第二帧是路径指令
	waitFrames(t, sink, 2)
	msg := sink.frame(1)
	require.Equal(t, "move_along_path", msg["action"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, "npc_1", data["npc_id"])
	assert.Equal(t, float64(res.PathLength), float64(len(data["path"].([]any))))

	// 完成事件：回到 idle，清理跟踪，广播 state_update
	w.MoveComplete("npc_1")
	st, _ = w.NPCStateOf("npc_1")
	assert.Equal(t, StateIdle, st)
	w.mu.Lock()
	_, tracked = w.walkStart["npc_1"]
	w.mu.Unlock()
	assert.False(t, tracked)

	waitFrames(t, sink, 3)
	msg = sink.frame(2)
	require.Equal(t, "state_update", msg["action"])
	state := msg["data"].(map[string]any)
	assert.Equal(t, "idle", state["npc_1"].(map[string]any)["state"])

	// 重复的完成事件是幂等 no-op，不触发新广播
	w.MoveComplete("npc_1")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, sink.frameCount())
}

func TestMoveCommandUnknownNPC(t *testing.T) {
	w := newTestWorld(t, testConfig())
	_, err := w.CommandMove("ghost", 50, 50)
	assert.ErrorIs(t, err, ErrNPCNotFound)
}

func TestMoveCommandConflict(t *testing.T) {
	w := newTestWorld(t, testConfig())
	_, err := w.CommandMove("npc_1", 50, 50)
	require.NoError(t, err)

	_, err = w.CommandMove("npc_1", 100, 100)
	assert.ErrorIs(t, err, ErrNPCBusy)
	st, _ := w.NPCStateOf("npc_1")
	assert.Equal(t, StateWalking, st)

	// 另一个 NPC 的指令不受影响
	_, err = w.CommandMove("npc_2", 150, 250)
	assert.NoError(t, err)
}

func TestMoveCommandNoPath(t *testing.T) {
	cfg := testConfig()
	// 把目标单元 (9,9) 围死
	cfg.Obstacles = []RectSpec{
		{X: 8, Y: 8, W: 2, H: 1},
		{X: 8, Y: 9, W: 1, H: 1},
		{X: 9, Y: 9, W: 1, H: 1},
	}
	w := newTestWorld(t, cfg)
	_, err := w.CommandMove("npc_1", 310, 310)
	assert.ErrorIs(t, err, ErrNoPath)
	st, _ := w.NPCStateOf("npc_1")
	assert.Equal(t, StateIdle, st)
	w.mu.Lock()
	_, tracked := w.walkStart["npc_1"]
	w.mu.Unlock()
	assert.False(t, tracked)
}

func TestMoveCommandClampsTarget(t *testing.T) {
	// 规格场景：46x34 网格、单元 32px，目标 (2000,2000) 裁剪到 (45,33)
	cfg := testConfig()
	cfg.MapWidthPx = 1472
	cfg.MapHeightPx = 1104
	w := newTestWorld(t, cfg)
	sink := &fakeSink{}
	w.RegisterObserver(sink)

	res, err := w.CommandMove("npc_1", 2000, 2000)
	require.NoError(t, err)
	st, _ := w.NPCStateOf("npc_1")
	assert.Equal(t, StateWalking, st)

	waitFrames(t, sink, 2)
	msg := sink.frame(1)
	require.Equal(t, "move_along_path", msg["action"])
	path := msg["data"].(map[string]any)["path"].([]any)
	require.Equal(t, res.PathLength, len(path))
	last := path[len(path)-1].(map[string]any)
	// 终点是裁剪后单元 (45,33) 的中心像素
	assert.Equal(t, float64(45*32+16), last["x"])
	assert.Equal(t, float64(33*32+16), last["y"])
}

func TestSweepTimeouts(t *testing.T) {
	w := newTestWorld(t, testConfig())
	sink := &fakeSink{}
	w.RegisterObserver(sink)

	_, err := w.CommandMove("npc_1", 50, 50)
	require.NoError(t, err)

	// 未超时不回收
	assert.Equal(t, 0, w.SweepTimeouts(time.Now()))

	// 回拨开始时间模拟卡死 31 秒（阈值 30 秒）
	w.mu.Lock()
	w.walkStart["npc_1"] = time.Now().Add(-31 * time.Second)
	w.mu.Unlock()

	assert.Equal(t, 1, w.SweepTimeouts(time.Now()))
	st, _ := w.NPCStateOf("npc_1")
	assert.Equal(t, StateIdle, st)
	w.mu.Lock()
	_, tracked := w.walkStart["npc_1"]
	w.mu.Unlock()
	assert.False(t, tracked)

	// 广播 state_update；再次扫描与迟到的完成事件都是 no-op
	waitFrames(t, sink, 3)
	assert.Equal(t, "state_update", sink.frame(2)["action"])
	assert.Equal(t, 0, w.SweepTimeouts(time.Now()))
	w.MoveComplete("npc_1")
	st, _ = w.NPCStateOf("npc_1")
	assert.Equal(t, StateIdle, st)
}

func TestForceIdle(t *testing.T) {
	w := newTestWorld(t, testConfig())
	sink := &fakeSink{}
	w.RegisterObserver(sink)

	_, err := w.CommandMove("npc_1", 50, 50)
	require.NoError(t, err)

	old, err := w.ForceIdle("npc_1")
	require.NoError(t, err)
	assert.Equal(t, StateWalking, old)
	st, _ := w.NPCStateOf("npc_1")
	assert.Equal(t, StateIdle, st)
	w.mu.Lock()
	_, tracked := w.walkStart["npc_1"]
	w.mu.Unlock()
	assert.False(t, tracked)

	// idle 状态下依然可以强制重置（总是广播）
	before := sink.frameCount()
	old, err = w.ForceIdle("npc_1")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, old)
	waitFrames(t, sink, before+1)

	_, err = w.ForceIdle("ghost")
	assert.ErrorIs(t, err, ErrNPCNotFound)
}

func TestRecoverIdleAfterInternalFailure(t *testing.T) {
	w := newTestWorld(t, testConfig())
	w.mu.Lock()
	w.npcs["npc_1"].State = StateWalking
	w.walkStart["npc_1"] = time.Now()
	w.mu.Unlock()

	w.recoverIdle("npc_1")
	st, _ := w.NPCStateOf("npc_1")
	assert.Equal(t, StateIdle, st)
	w.mu.Lock()
	_, tracked := w.walkStart["npc_1"]
	w.mu.Unlock()
	assert.False(t, tracked)
}

func TestConcurrentMoveSingleWinner(t *testing.T) {
	// 同一 NPC 的并发指令只允许一个成功
	w := newTestWorld(t, testConfig())
	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.CommandMove("npc_1", 50, 50)
		}(i)
	}
	wg.Wait()
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNPCBusy)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestTimeoutCompletionRace(t *testing.T) {
	// 看门狗与完成事件竞争：恰好一方生效，walking 的退出只发生一次
	w := newTestWorld(t, testConfig())
	for i := 0; i < 20; i++ {
		_, err := w.CommandMove("npc_1", 50, 50)
		require.NoError(t, err)
		w.mu.Lock()
		w.walkStart["npc_1"] = time.Now().Add(-31 * time.Second)
		w.mu.Unlock()

		var wg sync.WaitGroup
		reclaimed := 0
		wg.Add(2)
		go func() {
			defer wg.Done()
			reclaimed = w.SweepTimeouts(time.Now())
		}()
		go func() {
			defer wg.Done()
			w.MoveComplete("npc_1")
		}()
		wg.Wait()

		st, _ := w.NPCStateOf("npc_1")
		require.Equal(t, StateIdle, st)
		w.mu.Lock()
		_, tracked := w.walkStart["npc_1"]
		completions := w.metrics.Snapshot()["completions"].(int64)
		timeouts := w.metrics.Snapshot()["timeouts"].(int64)
		w.mu.Unlock()
		require.False(t, tracked)
		// 每轮恰好一方计数 +1
		require.Equal(t, int64(i+1), completions+timeouts, "round %d, reclaimed=%d", i, reclaimed)

		// 复位，进入下一轮
		_, err = w.ForceIdle("npc_1")
		require.NoError(t, err)
	}
}

func TestWatchdogLifecycle(t *testing.T) {
	w := newTestWorld(t, testConfig())
	w.SetMovementTimeout(50 * time.Millisecond)
	w.sweepInterval = 20 * time.Millisecond

	_, err := w.CommandMove("npc_1", 50, 50)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := w.StartWatchdog(ctx)

	require.Eventually(t, func() bool {
		st, _ := w.NPCStateOf("npc_1")
		return st == StateIdle
	}, time.Second, 10*time.Millisecond, "watchdog should reclaim the stuck npc")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop after cancel")
	}
}

func TestMovementTimeoutHotUpdate(t *testing.T) {
	w := newTestWorld(t, testConfig())
	assert.Equal(t, 30*time.Second, w.MovementTimeout())
	w.SetMovementTimeout(5 * time.Second)
	assert.Equal(t, 5*time.Second, w.MovementTimeout())

	_, err := w.CommandMove("npc_1", 50, 50)
	require.NoError(t, err)
	w.mu.Lock()
	w.walkStart["npc_1"] = time.Now().Add(-6 * time.Second)
	w.mu.Unlock()
	assert.Equal(t, 1, w.SweepTimeouts(time.Now()))
}
