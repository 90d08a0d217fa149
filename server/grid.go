package server

// GridCell 网格坐标（列、行）
type GridCell struct {
	Col int
	Row int
}

// Grid 静态通行性网格：启动时由矩形障碍一次性构建，之后只读
type Grid struct {
	cols, rows int
	cellSize   int
	walkable   []bool // 扁平存储，row*cols+col
}

// NewGrid 根据像素尺寸与单元大小构建全通行网格，再盖上矩形障碍
// 越界的障碍坐标静默裁剪到网格范围内，构建永不失败
func NewGrid(widthPx, heightPx, cellSize int, obstacles []RectSpec) *Grid {
	cols := widthPx / cellSize
	rows := heightPx / cellSize
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	g := &Grid{
		cols:     cols,
		rows:     rows,
		cellSize: cellSize,
		walkable: make([]bool, cols*rows),
	}
	for i := range g.walkable {
		g.walkable[i] = true
	}
	for _, r := range obstacles {
		g.stampRect(r)
	}
	return g
}

// stampRect 将矩形覆盖的单元标记为障碍（越界部分裁剪）
func (g *Grid) stampRect(r RectSpec) {
	for row := max(0, r.Y); row < min(g.rows, r.Y+r.H); row++ {
		for col := max(0, r.X); col < min(g.cols, r.X+r.W); col++ {
			g.walkable[row*g.cols+col] = false
		}
	}
}

// Dimensions 返回网格宽高（列数、行数）
func (g *Grid) Dimensions() (int, int) {
	return g.cols, g.rows
}

// CellSize 返回每个单元对应的像素数
func (g *Grid) CellSize() int {
	return g.cellSize
}

func (g *Grid) inBounds(c GridCell) bool {
	return c.Col >= 0 && c.Row >= 0 && c.Col < g.cols && c.Row < g.rows
}

func (g *Grid) index(c GridCell) int {
	return c.Row*g.cols + c.Col
}

// IsWalkable 单元是否可通行；越界一律视为不可通行
func (g *Grid) IsWalkable(c GridCell) bool {
	return g.inBounds(c) && g.walkable[g.index(c)]
}

// PixelToCell 像素坐标 → 网格坐标（整除），并裁剪到最近的有效单元
func (g *Grid) PixelToCell(x, y float64) GridCell {
	c := GridCell{Col: int(x) / g.cellSize, Row: int(y) / g.cellSize}
	return g.Clamp(c)
}

// CellToPixel 网格坐标 → 像素坐标（单元中心点：origin + size/2 向下取整）
func (g *Grid) CellToPixel(c GridCell) (int, int) {
	return c.Col*g.cellSize + g.cellSize/2, c.Row*g.cellSize + g.cellSize/2
}

// Clamp 将任意网格坐标裁剪到网格范围内
func (g *Grid) Clamp(c GridCell) GridCell {
	if c.Col < 0 {
		c.Col = 0
	}
	if c.Col > g.cols-1 {
		c.Col = g.cols - 1
	}
	if c.Row < 0 {
		c.Row = 0
	}
	if c.Row > g.rows-1 {
		c.Row = g.rows - 1
	}
	return c
}
