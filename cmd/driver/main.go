package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// 模拟控制器：不断随机挑选 NPC 并下发随机目标的移动指令
// 对应真实部署中的手机端/控制端

const characterSize = 50 // 角色图标尺寸，避免目标贴到地图最边缘

func main() {
	var backend string
	var mapWidth, mapHeight int
	flag.StringVar(&backend, "backend", "http://localhost:8000", "backend base URL")
	flag.IntVar(&mapWidth, "map-width", 1472, "map width in pixels")
	flag.IntVar(&mapHeight, "map-height", 1104, "map height in pixels")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Sugar()
	defer func() { _ = log.Sync() }()

	client := &http.Client{Timeout: 5 * time.Second}

	npcIDs, err := fetchNPCIDs(client, backend)
	if err != nil || len(npcIDs) == 0 {
		log.Warnf("fetch npc roster failed (%v), using default ids", err)
		npcIDs = []string{"npc_1", "npc_2", "npc_3", "npc_4", "npc_5"}
	}
	log.Infof("driver started against %s, %d npcs", backend, len(npcIDs))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			log.Info("driver stopped")
			return
		default:
		}

		npcID := npcIDs[rand.Intn(len(npcIDs))]
		targetX := rand.Intn(mapWidth - characterSize)
		targetY := rand.Intn(mapHeight - characterSize)
		sendMove(client, log, backend, npcID, targetX, targetY)

		// 模拟真实用户的操作间隔
		pause := time.Duration(1000+rand.Intn(2000)) * time.Millisecond
		select {
		case <-quit:
			log.Info("driver stopped")
			return
		case <-time.After(pause):
		}
	}
}

func sendMove(client *http.Client, log *zap.SugaredLogger, backend, npcID string, x, y int) {
	payload, _ := json.Marshal(map[string]int{"target_x": x, "target_y": y})
	url := fmt.Sprintf("%s/command/move/%s", backend, npcID)
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Errorf("cannot reach backend at %s: %v", url, err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusOK {
		log.Infof("moved %s to (%d, %d)", npcID, x, y)
	} else {
		log.Warnf("move %s rejected: %d %s", npcID, resp.StatusCode, bytes.TrimSpace(body))
	}
}

func fetchNPCIDs(client *http.Client, backend string) ([]string, error) {
	resp, err := client.Get(backend + "/admin/npc_states")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var out struct {
		NPCStates map[string]json.RawMessage `json:"npc_states"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.NPCStates))
	for id := range out.NPCStates {
		ids = append(ids, id)
	}
	return ids, nil
}
