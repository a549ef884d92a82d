// Package chess is the chess room viewer. Rules and move legality come from
// github.com/notnil/chess; the server stays authoritative and this package
// only predicts what it will accept.
package chess

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"roomviewer/internal/grid"
)

// ErrIllegalMove is returned by Apply for a move the position does not allow.
var ErrIllegalMove = errors.New("chess: illegal move")

// wireState is the room's get_state reply. The board is an EPD string: a
// FEN without the move counters.
type wireState struct {
	Board         string `json:"board"`
	CurrentPlayer bool   `json:"current_player"` // true = white
	YourColor     *bool  `json:"your_color"`     // null for spectators
	State         string `json:"state"`
	LastMove      string `json:"last_move"`
	TimersEnabled bool   `json:"timers_enabled"`
	Version       uint64 `json:"version,omitempty"`
}

// Snapshot is one server state of a chess room. Positions are immutable
// once built, so a Snapshot can be copied freely.
type Snapshot struct {
	FEN           string
	Turn          chess.Color
	YourColor     chess.Color // chess.NoColor for spectators
	State         string
	LastMove      string
	TimersEnabled bool

	pos *chess.Position
}

// Position returns the decoded position.
func (s Snapshot) Position() *chess.Position { return s.pos }

// Spectating reports whether the user has no side.
func (s Snapshot) Spectating() bool { return s.YourColor == chess.NoColor }

// YourTurn reports whether the user is to move.
func (s Snapshot) YourTurn() bool { return !s.Spectating() && s.Turn == s.YourColor }

// Flipped reports whether the board is drawn from black's side.
func (s Snapshot) Flipped() bool { return s.YourColor == chess.Black }

// PieceAt returns the piece on the display cell c.
func (s Snapshot) PieceAt(c grid.Coord) chess.Piece {
	if s.pos == nil {
		return chess.NoPiece
	}
	return s.pos.Board().Piece(SquareAt(c, s.Flipped()))
}

// Outcome describes a finished game, or returns "" while play goes on.
func (s Snapshot) Outcome() string {
	if s.pos == nil {
		return ""
	}
	switch s.pos.Status() {
	case chess.NoMethod:
		return ""
	case chess.Checkmate:
		return fmt.Sprintf("Checkmate, %s wins", other(s.pos.Turn()).Name())
	case chess.Stalemate:
		return "Stalemate"
	}
	return "Game over"
}

func other(c chess.Color) chess.Color {
	if c == chess.White {
		return chess.Black
	}
	return chess.White
}

// SquareAt maps a display cell to a board square. Row 0 is the top of the
// screen: rank 8 for white, rank 1 when the board is flipped.
func SquareAt(c grid.Coord, flipped bool) chess.Square {
	rank, file := 7-c.Row, c.Col
	if flipped {
		rank, file = c.Row, 7-c.Col
	}
	return chess.Square(rank*8 + file)
}

// CoordOf is the inverse of SquareAt.
func CoordOf(sq chess.Square, flipped bool) grid.Coord {
	rank, file := int(sq)/8, int(sq)%8
	if flipped {
		return grid.Coord{Row: rank, Col: 7 - file}
	}
	return grid.Coord{Row: 7 - rank, Col: file}
}

// epdToFEN completes an EPD to a six-field FEN. The side to move is taken
// from the server's current_player flag, which is authoritative.
func epdToFEN(epd string, white bool) (string, error) {
	fields := strings.Fields(epd)
	if len(fields) == 0 {
		return "", errors.New("empty board")
	}
	for len(fields) < 4 {
		fields = append(fields, "-")
	}
	fields = fields[:4]
	if white {
		fields[1] = "w"
	} else {
		fields[1] = "b"
	}
	return strings.Join(fields, " ") + " 0 1", nil
}

func colorOf(white bool) chess.Color {
	if white {
		return chess.White
	}
	return chess.Black
}

// DecodeState parses a get_state reply.
func DecodeState(raw json.RawMessage) (Snapshot, uint64, error) {
	var w wireState
	if err := json.Unmarshal(raw, &w); err != nil {
		return Snapshot{}, 0, err
	}
	fen, err := epdToFEN(w.Board, w.CurrentPlayer)
	if err != nil {
		return Snapshot{}, 0, err
	}
	opt, err := chess.FEN(fen)
	if err != nil {
		return Snapshot{}, 0, fmt.Errorf("board %q: %w", w.Board, err)
	}
	pos := chess.NewGame(opt).Position()
	snap := Snapshot{
		FEN:           pos.String(),
		Turn:          pos.Turn(),
		YourColor:     chess.NoColor,
		State:         w.State,
		LastMove:      w.LastMove,
		TimersEnabled: w.TimersEnabled,
		pos:           pos,
	}
	if w.YourColor != nil {
		snap.YourColor = colorOf(*w.YourColor)
	}
	return snap, w.Version, nil
}

// Move is a from/to move with an optional promotion piece.
type Move struct {
	From, To chess.Square
	Promo    chess.PieceType

	// before is the FEN of the position the move was proposed on.
	before string
}

// UCI renders the move in UCI notation, e.g. "e7e8q".
func (m Move) UCI() string {
	s := m.From.String() + m.To.String()
	if m.Promo != chess.NoPieceType {
		s += m.Promo.String()
	}
	return s
}

func (m Move) String() string { return m.UCI() }

// ParseUCI reads a UCI move without checking it against a position.
func ParseUCI(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return Move{}, fmt.Errorf("bad uci move %q", s)
	}
	from, ok1 := parseSquare(s[0:2])
	to, ok2 := parseSquare(s[2:4])
	if !ok1 || !ok2 {
		return Move{}, fmt.Errorf("bad uci move %q", s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'q':
			m.Promo = chess.Queen
		case 'r':
			m.Promo = chess.Rook
		case 'b':
			m.Promo = chess.Bishop
		case 'n':
			m.Promo = chess.Knight
		default:
			return Move{}, fmt.Errorf("bad promotion in %q", s)
		}
	}
	return m, nil
}

func parseSquare(s string) (chess.Square, bool) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return 0, false
	}
	return chess.Square(int(s[1]-'1')*8 + int(s[0]-'a')), true
}

// codec implements rooms.Codec.
type codec struct{}

func (codec) DecodeState(raw json.RawMessage) (Snapshot, uint64, error) { return DecodeState(raw) }

func (codec) EncodeMove(m Move) any { return m.UCI() }
