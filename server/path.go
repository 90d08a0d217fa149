package server

import (
	"container/heap"
	"math"
)

type pathNeighbor struct {
	dCol     int
	dRow     int
	cost     float64
	diagonal bool
}

// 固定罗盘顺序展开邻居（北、东、南、西，再对角线），保证等代价路径可复现
var pathNeighborOffsets = [...]pathNeighbor{
	{dCol: 0, dRow: -1, cost: 1, diagonal: false},
	{dCol: 1, dRow: 0, cost: 1, diagonal: false},
	{dCol: 0, dRow: 1, cost: 1, diagonal: false},
	{dCol: -1, dRow: 0, cost: 1, diagonal: false},
	{dCol: 1, dRow: -1, cost: math.Sqrt2, diagonal: true},
	{dCol: 1, dRow: 1, cost: math.Sqrt2, diagonal: true},
	{dCol: -1, dRow: 1, cost: math.Sqrt2, diagonal: true},
	{dCol: -1, dRow: -1, cost: math.Sqrt2, diagonal: true},
}

// octileDistance 八方向代价模型下的启发函数（可采纳且一致，保证最优路径）
func octileDistance(a, b GridCell) float64 {
	dx := math.Abs(float64(a.Col - b.Col))
	dy := math.Abs(float64(a.Row - b.Row))
	if dx > dy {
		return dx + (math.Sqrt2-1)*dy
	}
	return dy + (math.Sqrt2-1)*dx
}

// canTraverseDiagonal 对角线移动要求两个正交相邻单元都可通行，禁止切角穿过障碍
func canTraverseDiagonal(g *Grid, from GridCell, d pathNeighbor) bool {
	if !d.diagonal {
		return true
	}
	horiz := GridCell{Col: from.Col + d.dCol, Row: from.Row}
	vert := GridCell{Col: from.Col, Row: from.Row + d.dRow}
	return g.IsWalkable(horiz) && g.IsWalkable(vert)
}

type pathNode struct {
	cell   GridCell
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// FindPath A* 搜索：返回从 start 到 goal（含两端）的最短可通行路径
// 直行代价 1、对角线 sqrt(2)；不可达时返回 (nil, false)，不会修改网格
// 前置条件：start/goal 已裁剪到网格范围内（由请求处理层负责）
// 起点允许落在障碍单元上（角色可能站在障碍内，必须能走出来），
// 终点被阻挡则直接视为不可达
func FindPath(g *Grid, start, goal GridCell) ([]GridCell, bool) {
	if !g.inBounds(start) || !g.IsWalkable(goal) {
		return nil, false
	}

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{cell: start, g: 0, f: octileDistance(start, goal)})
	gScore := map[int]float64{g.index(start): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := g.index(current.cell)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.cell == goal {
			return reconstructPath(current), true
		}

		for _, d := range pathNeighborOffsets {
			next := GridCell{Col: current.cell.Col + d.dCol, Row: current.cell.Row + d.dRow}
			if !g.IsWalkable(next) {
				continue
			}
			if d.diagonal && !canTraverseDiagonal(g, current.cell, d) {
				continue
			}
			idx := g.index(next)
			if _, seen := closed[idx]; seen {
				continue
			}
			tentativeG := current.g + d.cost
			if prev, ok := gScore[idx]; ok && tentativeG >= prev {
				continue
			}
			gScore[idx] = tentativeG
			heap.Push(open, &pathNode{
				cell:   next,
				g:      tentativeG,
				f:      tentativeG + octileDistance(next, goal),
				parent: current,
			})
		}
	}
	return nil, false
}

// reconstructPath 沿 parent 链回溯并反转为 start→goal 顺序
func reconstructPath(end *pathNode) []GridCell {
	path := make([]GridCell, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.cell)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
