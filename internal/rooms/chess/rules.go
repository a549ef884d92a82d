package chess

import (
	"fmt"

	"github.com/notnil/chess"

	"roomviewer/internal/grid"
	"roomviewer/internal/input"
)

// board is the cursor grid: every square is a cell.
var board = grid.Dense(8, 8, func(c grid.Coord) struct{} { return struct{}{} })

// Rules implements session.Rules for chess.
type Rules struct{}

// Cells implements session.Rules.
func (Rules) Cells(Snapshot) grid.Occupancy { return board }

// CanSelect allows picking up one of your own pieces on your turn.
func (Rules) CanSelect(s Snapshot, at grid.Coord) bool {
	if !s.YourTurn() || s.Outcome() != "" {
		return false
	}
	p := s.PieceAt(at)
	return p != chess.NoPiece && p.Color() == s.YourColor
}

// Immediate implements session.Rules. Every chess move takes two steps.
func (Rules) Immediate(Snapshot, grid.Coord) (Move, bool) { return Move{}, false }

// Propose builds the move from origin to target. Pawns reaching the last
// rank are promoted to a queen.
func (Rules) Propose(s Snapshot, origin, target grid.Coord) (Move, bool) {
	p := s.PieceAt(origin)
	if p == chess.NoPiece {
		return Move{}, false
	}
	m := Move{From: SquareAt(origin, s.Flipped()), To: SquareAt(target, s.Flipped()), before: s.FEN}
	if p.Type() == chess.Pawn {
		if rank := int(m.To) / 8; rank == 0 || rank == 7 {
			m.Promo = chess.Queen
		}
	}
	return m, true
}

// IsLegal checks m against the position's legal moves.
func (Rules) IsLegal(s Snapshot, m Move) bool {
	if !s.YourTurn() {
		return false
	}
	_, ok := find(s.pos, m)
	return ok
}

// Adjust implements session.Rules. A queued chess move is fixed.
func (Rules) Adjust(Snapshot, Move, input.Event, grid.Coord) (Move, bool) { return Move{}, false }

// IsTerminal reports checkmate or stalemate.
func (Rules) IsTerminal(s Snapshot) bool { return s.Outcome() != "" }

func find(pos *chess.Position, m Move) (*chess.Move, bool) {
	if pos == nil {
		return nil, false
	}
	for _, v := range pos.ValidMoves() {
		if v.S1() == m.From && v.S2() == m.To && v.Promo() == m.Promo {
			return v, true
		}
	}
	return nil, false
}

// Applier implements reconcile.Applier for chess.
type Applier struct{}

// Apply plays m on a new position; s is untouched.
func (Applier) Apply(s Snapshot, m Move) (Snapshot, error) {
	v, ok := find(s.pos, m)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrIllegalMove, m)
	}
	next := s
	next.pos = s.pos.Update(v)
	next.FEN = next.pos.String()
	next.Turn = next.pos.Turn()
	next.LastMove = m.UCI()
	return next, nil
}

// Confirms reports whether the server's snapshot shows m as played. The
// server may report it as the last move. Otherwise, for a proposed move,
// any position past the one it was made on counts: only our move can
// advance the game while it is our turn, and the opponent may already have
// replied. A bare move falls back to the board: the moved piece sits on the
// target with the origin empty.
func (Applier) Confirms(s Snapshot, m Move) bool {
	if s.LastMove == m.UCI() {
		return true
	}
	if m.before != "" {
		return s.pos != nil && s.FEN != m.before
	}
	if s.LastMove != "" {
		return false
	}
	if s.pos == nil {
		return false
	}
	b := s.pos.Board()
	return b.Piece(m.From) == chess.NoPiece && b.Piece(m.To) != chess.NoPiece
}

// PieceName names a piece for the "cursor over" line.
func PieceName(p chess.Piece) string {
	if p == chess.NoPiece {
		return "Empty"
	}
	var kind string
	switch p.Type() {
	case chess.King:
		kind = "King"
	case chess.Queen:
		kind = "Queen"
	case chess.Rook:
		kind = "Rook"
	case chess.Bishop:
		kind = "Bishop"
	case chess.Knight:
		kind = "Knight"
	case chess.Pawn:
		kind = "Pawn"
	}
	return p.Color().Name() + " " + kind
}
