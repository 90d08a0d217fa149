package server

// 默认地图的障碍标定（基于 map_with_grid.png 施工图，网格单位）
// 地图 1472x1104 像素，单元 32 像素 → 46x34 网格

// DefaultObstacles 返回默认地图的全部矩形障碍
func DefaultObstacles() []RectSpec {
	return []RectSpec{
		// 建筑物
		{X: 34, Y: 11, W: 13, H: 16}, // 右侧的大房子
		{X: 3, Y: 28, W: 6, H: 4},    // 左下角的小房子

		// 树木（树干 + 树冠）
		{X: 47, Y: 14, W: 3, H: 3}, // 大树1（右侧大房子旁）
		{X: 46, Y: 11, W: 5, H: 3},
		{X: 22, Y: 5, W: 3, H: 3}, // 大树2（地图中上部）
		{X: 20, Y: 2, W: 7, H: 3},
		{X: 10, Y: 15, W: 3, H: 3}, // 大树3（地图中部）
		{X: 8, Y: 12, W: 7, H: 3},
		{X: 2, Y: 20, W: 3, H: 3}, // 大树4（地图左侧）
		{X: 1, Y: 17, W: 5, H: 3},

		// 地形障碍
		{X: 1, Y: 32, W: 46, H: 2}, // 小河，横贯东西

		// 田埂系统
		{X: 6, Y: 18, W: 32, H: 1}, // 主水平田埂
		{X: 15, Y: 8, W: 20, H: 1}, // 次水平田埂（上方）
		{X: 15, Y: 9, W: 1, H: 8},  // 垂直田埂1（左侧）
		{X: 30, Y: 12, W: 1, H: 5}, // 垂直田埂2（中部）
		{X: 42, Y: 14, W: 1, H: 3}, // 垂直田埂3（右侧）

		// 其他障碍物
		{X: 35, Y: 6, W: 2, H: 2},  // 石头群1（地图中上部）
		{X: 18, Y: 22, W: 2, H: 2}, // 石头群2（地图中部）
		{X: 8, Y: 25, W: 3, H: 2},  // 灌木丛1（地图左侧）
		{X: 38, Y: 25, W: 3, H: 2}, // 灌木丛2（地图右侧）
	}
}

// DefaultRoster 返回默认的 NPC 花名册
func DefaultRoster() []NPCSpec {
	return []NPCSpec{
		{ID: "npc_1", Name: "玩家1", Kind: "player", X: 150, Y: 250},
		{ID: "npc_2", Name: "玩家2", Kind: "player", X: 300, Y: 400},
		{ID: "npc_3", Name: "守卫", Kind: "guard", X: 200, Y: 500},
		{ID: "npc_4", Name: "商人", Kind: "npc", X: 450, Y: 350},
		{ID: "npc_5", Name: "向导", Kind: "npc", X: 400, Y: 200},
	}
}
