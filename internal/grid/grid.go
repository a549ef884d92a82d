// Package grid holds the sparse cell layout shared by the room viewers and
// the option editor, plus the cursor navigator that walks it.
package grid

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateCoordinate is returned when a coordinate is registered twice.
	ErrDuplicateCoordinate = errors.New("grid: duplicate coordinate")
	// ErrNegativeCoordinate is returned for coordinates below zero.
	ErrNegativeCoordinate = errors.New("grid: negative coordinate")
)

// Coord is a (row, col) pair. Rows grow downwards, columns to the right.
type Coord struct {
	Row, Col int
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Model maps coordinates to cells. Coordinates need not be contiguous.
// Cells are fixed once registered.
type Model[C any] struct {
	cells          map[Coord]C
	maxRow, maxCol int
}

// New creates an empty Model.
func New[C any]() *Model[C] {
	return &Model[C]{cells: make(map[Coord]C)}
}

// Register adds cell at c.
func (m *Model[C]) Register(c Coord, cell C) error {
	if c.Row < 0 || c.Col < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeCoordinate, c)
	}
	if _, ok := m.cells[c]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCoordinate, c)
	}
	m.cells[c] = cell
	if c.Row > m.maxRow {
		m.maxRow = c.Row
	}
	if c.Col > m.maxCol {
		m.maxCol = c.Col
	}
	return nil
}

// Lookup returns the cell at c, if any.
func (m *Model[C]) Lookup(c Coord) (C, bool) {
	cell, ok := m.cells[c]
	return cell, ok
}

// Has reports whether c holds a cell.
func (m *Model[C]) Has(c Coord) bool {
	_, ok := m.cells[c]
	return ok
}

// Bounds returns the largest row and column seen over all registered cells.
// An empty model reports (0, 0).
func (m *Model[C]) Bounds() (maxRow, maxCol int) {
	return m.maxRow, m.maxCol
}

// Len returns the number of registered cells.
func (m *Model[C]) Len() int { return len(m.cells) }

// Coords returns every registered coordinate in row-major order.
func (m *Model[C]) Coords() []Coord {
	out := make([]Coord, 0, len(m.cells))
	for c := range m.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// Dense builds a rows×cols model where every coordinate holds cell(c).
func Dense[C any](rows, cols int, cell func(Coord) C) *Model[C] {
	m := New[C]()
	for r := range rows {
		for c := range cols {
			at := Coord{Row: r, Col: c}
			m.cells[at] = cell(at)
		}
	}
	if rows > 0 {
		m.maxRow = rows - 1
	}
	if cols > 0 {
		m.maxCol = cols - 1
	}
	return m
}
