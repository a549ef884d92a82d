package battleship

import (
	"errors"
	"fmt"

	"roomviewer/internal/grid"
	"roomviewer/internal/input"
)

// ErrBadAction is returned by Apply for an action that does not fit the
// snapshot.
var ErrBadAction = errors.New("battleship: action does not apply")

// Rules implements session.Rules for battleship. There is no two-step
// selection: space queues an attack or a placement at the cursor.
type Rules struct{}

// Cells implements session.Rules.
func (Rules) Cells(s Snapshot) grid.Occupancy {
	return grid.Dense(s.Size, s.Size, func(grid.Coord) struct{} { return struct{}{} })
}

// CanSelect implements session.Rules.
func (Rules) CanSelect(Snapshot, grid.Coord) bool { return false }

// Immediate queues a placement of the next unplaced ship during the
// placement phase, and an attack afterwards.
func (Rules) Immediate(s Snapshot, at grid.Coord) (Action, bool) {
	if s.PlaceShips {
		i, ok := s.NextUnplaced()
		if !ok {
			return Action{}, false
		}
		return Action{
			Kind:      Place,
			X:         at.Col,
			Y:         at.Row,
			Ship:      i,
			Size:      s.Own.Ships[i].Size,
			Direction: Horizontal,
		}, true
	}
	return Action{Kind: Attack, X: at.Col, Y: at.Row}, true
}

// Propose implements session.Rules.
func (Rules) Propose(Snapshot, grid.Coord, grid.Coord) (Action, bool) { return Action{}, false }

// IsLegal reports whether the server should accept a.
func (Rules) IsLegal(s Snapshot, a Action) bool {
	switch a.Kind {
	case Attack:
		return !s.PlaceShips && s.YourTurn && s.Winner() == "" &&
			inBounds(s, a.X, a.Y) && s.Enemy.Tile(a.X, a.Y) == TileEmpty
	case Place:
		return s.PlaceShips && fits(s, a)
	}
	return false
}

func inBounds(s Snapshot, x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Size && y < s.Size
}

// fits checks a placement against the board edge and the already placed
// ships.
func fits(s Snapshot, a Action) bool {
	if a.Ship < 0 || a.Ship >= len(s.Own.Ships) || s.Own.Ships[a.Ship].Placed {
		return false
	}
	for i := 0; i < a.Size; i++ {
		x, y := a.X, a.Y
		if a.Direction == Horizontal {
			x += i
		} else {
			y += i
		}
		if !inBounds(s, x, y) {
			return false
		}
		if _, taken := s.Own.ShipAt(x, y); taken {
			return false
		}
	}
	return true
}

// Adjust follows the cursor with a queued action; the rotate key turns a
// queued ship.
func (Rules) Adjust(_ Snapshot, a Action, ev input.Event, cursor grid.Coord) (Action, bool) {
	switch {
	case ev.Directional():
		a.X, a.Y = cursor.Col, cursor.Row
		return a, true
	case ev == input.EventRotate && a.Kind == Place:
		a.Direction = a.Direction.Flip()
		return a, true
	}
	return a, false
}

// IsTerminal reports a sunk fleet.
func (Rules) IsTerminal(s Snapshot) bool { return s.Winner() != "" }

// Applier implements reconcile.Applier for battleship.
type Applier struct{}

// Apply returns a copy of s with a shown: a placed ship, or a targeted
// tile on the opponent's board.
func (Applier) Apply(s Snapshot, a Action) (Snapshot, error) {
	next := s.clone()
	switch a.Kind {
	case Attack:
		if !inBounds(s, a.X, a.Y) || a.X >= len(next.Enemy.Tiles) || a.Y >= len(next.Enemy.Tiles[a.X]) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrBadAction, a)
		}
		next.Enemy.Tiles[a.X][a.Y] = TileTargeted
	case Place:
		if a.Ship < 0 || a.Ship >= len(next.Own.Ships) {
			return Snapshot{}, fmt.Errorf("%w: %s", ErrBadAction, a)
		}
		x, y := a.X, a.Y
		sh := &next.Own.Ships[a.Ship]
		sh.X, sh.Y, sh.Direction, sh.Placed = &x, &y, a.Direction, true
	default:
		return Snapshot{}, fmt.Errorf("%w: %s", ErrBadAction, a)
	}
	return next, nil
}

// Confirms reports whether the server shows a as done.
func (Applier) Confirms(s Snapshot, a Action) bool {
	switch a.Kind {
	case Attack:
		t := s.Enemy.Tile(a.X, a.Y)
		return t == TileHit || t == TileMiss
	case Place:
		return a.Ship >= 0 && a.Ship < len(s.Own.Ships) && s.Own.Ships[a.Ship].Placed
	}
	return false
}
