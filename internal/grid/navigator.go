package grid

// Direction is one of the four cursor directions.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// delta returns the row and column step for d.
func (d Direction) delta() (int, int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	}
	return 0, 0
}

// Occupancy is the part of a Model the navigator needs.
type Occupancy interface {
	Has(c Coord) bool
	Bounds() (maxRow, maxCol int)
}

// Navigator moves a cursor between populated cells.
type Navigator struct {
	cells Occupancy
}

// NewNavigator creates a Navigator over cells.
func NewNavigator(cells Occupancy) *Navigator {
	return &Navigator{cells: cells}
}

// Move steps cursor one cell in d, skipping empty coordinates along the same
// axis. Up/down change the row, left/right the column; the other component
// never changes. If the axis bound is reached without finding a cell the
// original cursor is returned unchanged.
func (n *Navigator) Move(cursor Coord, d Direction) Coord {
	dr, dc := d.delta()
	if dr == 0 && dc == 0 {
		return cursor
	}
	maxRow, maxCol := n.cells.Bounds()
	next := cursor
	for {
		next.Row += dr
		next.Col += dc
		if next.Row < 0 || next.Col < 0 || next.Row > maxRow || next.Col > maxCol {
			return cursor
		}
		if n.cells.Has(next) {
			return next
		}
	}
}
