package grid

import (
	"errors"
	"math/rand"
	"testing"
)

func sparse(t *testing.T, coords ...Coord) *Model[string] {
	t.Helper()
	m := New[string]()
	for _, c := range coords {
		if err := m.Register(c, c.String()); err != nil {
			t.Fatalf("Register(%s): %v", c, err)
		}
	}
	return m
}

func TestRegisterDuplicate(t *testing.T) {
	m := sparse(t, Coord{0, 0})
	err := m.Register(Coord{0, 0}, "again")
	if !errors.Is(err, ErrDuplicateCoordinate) {
		t.Fatalf("expected ErrDuplicateCoordinate, got %v", err)
	}
	if cell, _ := m.Lookup(Coord{0, 0}); cell != "(0,0)" {
		t.Errorf("duplicate register overwrote cell: %q", cell)
	}
}

func TestRegisterNegative(t *testing.T) {
	m := New[int]()
	if err := m.Register(Coord{-1, 2}, 1); !errors.Is(err, ErrNegativeCoordinate) {
		t.Fatalf("expected ErrNegativeCoordinate, got %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty model, got %d cells", m.Len())
	}
}

func TestBoundsAndLookup(t *testing.T) {
	m := sparse(t, Coord{0, 3}, Coord{5, 1}, Coord{2, 2})
	r, c := m.Bounds()
	if r != 5 || c != 3 {
		t.Errorf("Bounds() = (%d,%d), want (5,3)", r, c)
	}
	if _, ok := m.Lookup(Coord{1, 1}); ok {
		t.Error("Lookup on empty coordinate returned a cell")
	}
	if cell, ok := m.Lookup(Coord{5, 1}); !ok || cell != "(5,1)" {
		t.Errorf("Lookup(5,1) = %q,%v", cell, ok)
	}
}

func TestCoordsRowMajor(t *testing.T) {
	m := sparse(t, Coord{1, 0}, Coord{0, 2}, Coord{0, 0}, Coord{1, 1})
	want := []Coord{{0, 0}, {0, 2}, {1, 0}, {1, 1}}
	got := m.Coords()
	if len(got) != len(want) {
		t.Fatalf("Coords() len %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Coords()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDense(t *testing.T) {
	m := Dense(8, 8, func(c Coord) int { return c.Row*8 + c.Col })
	if m.Len() != 64 {
		t.Fatalf("expected 64 cells, got %d", m.Len())
	}
	r, c := m.Bounds()
	if r != 7 || c != 7 {
		t.Errorf("Bounds() = (%d,%d), want (7,7)", r, c)
	}
	if v, _ := m.Lookup(Coord{3, 5}); v != 29 {
		t.Errorf("Lookup(3,5) = %d, want 29", v)
	}
}

func TestMoveSkipsGapAndClamps(t *testing.T) {
	m := sparse(t, Coord{0, 0}, Coord{0, 2}, Coord{1, 1})
	nav := NewNavigator(m)

	cur := nav.Move(Coord{0, 0}, Right)
	if cur != (Coord{0, 2}) {
		t.Fatalf("move right from (0,0) = %s, want (0,2)", cur)
	}
	if again := nav.Move(cur, Right); again != cur {
		t.Errorf("move right from (0,2) = %s, want no-op", again)
	}
	// (1,1) is reachable only through its own row/column.
	if down := nav.Move(Coord{0, 0}, Down); down != (Coord{0, 0}) {
		t.Errorf("move down from (0,0) = %s, want no-op (no cell in column 0)", down)
	}
	if down := nav.Move(Coord{0, 1}, Down); down != (Coord{1, 1}) {
		t.Errorf("move down from unregistered (0,1) = %s, want (1,1)", down)
	}
}

func TestMoveSingleCell(t *testing.T) {
	nav := NewNavigator(sparse(t, Coord{2, 2}))
	for _, d := range []Direction{Up, Down, Left, Right} {
		if got := nav.Move(Coord{2, 2}, d); got != (Coord{2, 2}) {
			t.Errorf("move %s on single cell = %s", d, got)
		}
	}
}

func TestMoveEmptyGrid(t *testing.T) {
	nav := NewNavigator(New[int]())
	for _, d := range []Direction{Up, Down, Left, Right} {
		if got := nav.Move(Coord{0, 0}, d); got != (Coord{0, 0}) {
			t.Errorf("move %s on empty grid = %s", d, got)
		}
	}
}

func TestMoveFromUnregisteredDefault(t *testing.T) {
	// The option editor starts at (0,0) even when nothing lives there.
	m := sparse(t, Coord{0, 3}, Coord{2, 0})
	nav := NewNavigator(m)
	cases := []struct {
		name string
		d    Direction
		want Coord
	}{
		{"right finds row cell", Right, Coord{0, 3}},
		{"down finds column cell", Down, Coord{2, 0}},
		{"up clamps at zero", Up, Coord{0, 0}},
		{"left clamps at zero", Left, Coord{0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nav.Move(Coord{0, 0}, tc.d); got != tc.want {
				t.Errorf("Move(%s) = %s, want %s", tc.d, got, tc.want)
			}
		})
	}
}

func TestMoveProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := range 200 {
		m := New[int]()
		var cells []Coord
		for range 1 + rng.Intn(12) {
			c := Coord{rng.Intn(6), rng.Intn(6)}
			if m.Register(c, trial) == nil {
				cells = append(cells, c)
			}
		}
		nav := NewNavigator(m)
		start := cells[rng.Intn(len(cells))]
		for _, d := range []Direction{Up, Down, Left, Right} {
			cur := start
			stable := false
			for range 10 {
				next := nav.Move(cur, d)
				if (d == Up || d == Down) && next.Col != cur.Col {
					t.Fatalf("trial %d: %s changed column %s -> %s", trial, d, cur, next)
				}
				if (d == Left || d == Right) && next.Row != cur.Row {
					t.Fatalf("trial %d: %s changed row %s -> %s", trial, d, cur, next)
				}
				if !m.Has(next) {
					t.Fatalf("trial %d: %s landed on empty %s", trial, d, next)
				}
				if next == cur {
					stable = true
					break
				}
				cur = next
			}
			if !stable {
				t.Errorf("trial %d: moving %s from %s never stabilised", trial, d, start)
			}
		}
	}
}
