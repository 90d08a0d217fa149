package server

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RectSpec 以网格为单位描述一个矩形障碍（左上角 + 宽高）
type RectSpec struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// NPCSpec 初始 NPC 花名册中的一项（坐标为像素）
type NPCSpec struct {
	ID   string  `yaml:"id"`
	Name string  `yaml:"name"`
	Kind string  `yaml:"kind"` // player / guard / npc，开放扩展
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// Config 服务配置；未提供配置文件时使用内置默认值（原版地图与花名册）
type Config struct {
	Listen   string `yaml:"listen"`
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`

	MapWidthPx  int `yaml:"map_width_px"`
	MapHeightPx int `yaml:"map_height_px"`
	CellSize    int `yaml:"cell_size"`

	MovementTimeoutSec int `yaml:"movement_timeout_sec"` // 超过即判定卡死
	SweepIntervalSec   int `yaml:"sweep_interval_sec"`   // 看门狗扫描周期

	Obstacles []RectSpec `yaml:"obstacles"`
	Roster    []NPCSpec  `yaml:"roster"`
}

// DefaultConfig 返回与原版地图一致的默认配置
func DefaultConfig() *Config {
	return &Config{
		Listen:             ":8000",
		LogFile:            "app.log",
		LogLevel:           "info",
		MapWidthPx:         1472,
		MapHeightPx:        1104,
		CellSize:           32,
		MovementTimeoutSec: 30,
		SweepIntervalSec:   10,
		Obstacles:          DefaultObstacles(),
		Roster:             DefaultRoster(),
	}
}

// LoadConfig 读取 YAML 配置；path 为空时直接返回默认配置
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.CellSize <= 0 {
		return fmt.Errorf("cell_size must be positive, got %d", c.CellSize)
	}
	if c.MapWidthPx < c.CellSize || c.MapHeightPx < c.CellSize {
		return fmt.Errorf("map %dx%d smaller than one cell (%d)", c.MapWidthPx, c.MapHeightPx, c.CellSize)
	}
	if c.MovementTimeoutSec <= 0 {
		return fmt.Errorf("movement_timeout_sec must be positive, got %d", c.MovementTimeoutSec)
	}
	if c.SweepIntervalSec <= 0 {
		return fmt.Errorf("sweep_interval_sec must be positive, got %d", c.SweepIntervalSec)
	}
	seen := make(map[string]struct{}, len(c.Roster))
	for _, n := range c.Roster {
		if n.ID == "" {
			return fmt.Errorf("roster entry %q missing id", n.Name)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("duplicate roster id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	return nil
}
