package render

import "roomviewer/internal/grid"

// Board translates grid coordinates to screen positions for a board drawn
// with fixed-size cells and an optional one-cell gap between them.
type Board struct {
	X, Y  int // top-left screen cell of grid (0,0)
	CellW int // columns per cell, including the gap
	CellH int // rows per cell
}

// NewBoard creates a Board at (x, y). Most boards use 3x1 cells so wide
// glyphs keep a column of space around them.
func NewBoard(x, y, cellW, cellH int) Board {
	if cellW < 1 {
		cellW = 1
	}
	if cellH < 1 {
		cellH = 1
	}
	return Board{X: x, Y: y, CellW: cellW, CellH: cellH}
}

// CellToScreen returns the screen position of c's first column.
func (b Board) CellToScreen(c grid.Coord) (int, int) {
	return b.X + c.Col*b.CellW, b.Y + c.Row*b.CellH
}

// Size returns the screen extent of a rows x cols board.
func (b Board) Size(rows, cols int) (int, int) {
	return cols * b.CellW, rows * b.CellH
}
