package chess

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"

	"roomviewer/internal/grid"
	"roomviewer/internal/options"
	"roomviewer/internal/render"
	"roomviewer/internal/rooms"
	"roomviewer/internal/session"
	"roomviewer/internal/transport"
)

// View is the frame a chess renderer receives.
type View = session.View[Snapshot, Move, transport.FrequentUpdate]

const (
	boardX = 3
	boardY = 2
	cellW  = 3
	sideX  = boardX + 8*cellW + 4
	help   = "arrows move  space pick/drop  enter send  esc cancel  r refresh  s save  q leave"
)

var (
	whitePiece = tcell.ColorWhite
	blackPiece = tcell.ColorBlack
)

// Renderer draws a chess room on a tcell screen.
type Renderer struct {
	scr  tcell.Screen
	room string
	you  string
	pal  render.Palette
}

// NewRenderer creates a Renderer for room, marking user you in the roster.
func NewRenderer(scr tcell.Screen, room, you string) *Renderer {
	return &Renderer{scr: scr, room: room, you: you, pal: render.DefaultPalette}
}

// Render implements session.Renderer.
func (r *Renderer) Render(v View) {
	r.scr.Clear()
	render.PutText(r.scr, 1, 0, "Chess: "+r.room, r.pal.Title)
	if !v.HasSnapshot {
		render.PutText(r.scr, 1, boardY, "Waiting for server...", r.pal.Dim)
		rooms.DrawFooter(r.scr, v, r.room, help)
		r.scr.Show()
		return
	}
	s := v.Snapshot
	render.PutText(r.scr, 1, 1, turnLine(s), r.pal.Text)
	r.drawBoard(v)

	y := boardY + 9
	hover := "Cursor over: " + PieceName(s.PieceAt(v.Cursor))
	if v.HasOrigin && v.Phase == session.PhaseSelecting {
		hover = "Selected: " + PieceName(s.PieceAt(v.Origin)) + "  " + hover
	}
	render.PutText(r.scr, 1, y, hover, r.pal.Text)
	last := s.LastMove
	if last == "" {
		last = "none"
	}
	render.PutText(r.scr, 1, y+1, "Last move: "+last, r.pal.Text)
	r.drawTimers(v, y+2)
	if out := s.Outcome(); out != "" {
		render.PutText(r.scr, 1, y+3, out, r.pal.Title)
	} else if s.State != "" {
		render.PutText(r.scr, 1, y+3, "State: "+s.State, r.pal.Dim)
	}

	if v.HasSideband {
		r.drawRosters(v.Sideband)
	}
	rooms.DrawFooter(r.scr, v, r.room, help)
	r.scr.Show()
}

func turnLine(s Snapshot) string {
	line := fmt.Sprintf("It's %s's turn", s.Turn.Name())
	if s.Spectating() {
		return line + ", you are spectating"
	}
	return line + ", you are " + s.YourColor.Name()
}

func (r *Renderer) drawBoard(v View) {
	s := v.Snapshot
	flipped := s.Flipped()
	var from, to grid.Coord
	if v.HasPending {
		from = CoordOf(v.Pending.Action.From, flipped)
		to = CoordOf(v.Pending.Action.To, flipped)
	}
	b := render.NewBoard(boardX, boardY, cellW, 1)
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			c := grid.Coord{Row: row, Col: col}
			sq := SquareAt(c, flipped)
			st := r.pal.DarkSq
			if (int(sq)/8+int(sq)%8)%2 == 1 {
				st = r.pal.LightSq
			}
			switch {
			case c == v.Cursor && v.CursorValid:
				st = r.pal.Cursor
			case c == v.Cursor:
				st = r.pal.CursorBad
			case v.HasOrigin && v.Phase == session.PhaseSelecting && c == v.Origin:
				st = r.pal.Selected
			case v.HasPending && (c == from || c == to):
				st = r.pal.Pending
			}
			x, y := b.CellToScreen(c)
			for i := 0; i < cellW; i++ {
				r.scr.SetContent(x+i, y, ' ', nil, st)
			}
			if p := s.pos.Board().Piece(sq); p != chess.NoPiece {
				fg := whitePiece
				if p.Color() == chess.Black {
					fg = blackPiece
				}
				render.PutGlyph(r.scr, x+1, y, p.String(), st.Foreground(fg).Bold(true))
			}
		}
		// Rank labels on the left.
		rank := int(SquareAt(grid.Coord{Row: row}, flipped)) / 8
		r.scr.SetContent(1, boardY+row, rune('1'+rank), nil, r.pal.Dim)
	}
	for col := 0; col < 8; col++ {
		file := int(SquareAt(grid.Coord{Col: col}, flipped)) % 8
		x, _ := b.CellToScreen(grid.Coord{Col: col})
		r.scr.SetContent(x+1, boardY+8, rune('a'+file), nil, r.pal.Dim)
	}
}

func (r *Renderer) drawTimers(v View, y int) {
	if !v.Snapshot.TimersEnabled {
		render.PutText(r.scr, 1, y, "Timers (disabled)", r.pal.Dim)
		return
	}
	if !v.HasSideband || len(v.Sideband.MoveTimers) < 2 {
		render.PutText(r.scr, 1, y, "Timers: waiting", r.pal.Dim)
		return
	}
	white, black := v.Sideband.MoveTimers[0], v.Sideband.MoveTimers[1]
	x := render.PutText(r.scr, 1, y, "White ", r.pal.Text)
	x = render.PutText(r.scr, x, y, options.Clock(white), r.pal.ClockStyle(white))
	x = render.PutText(r.scr, x, y, "   Black ", r.pal.Text)
	render.PutText(r.scr, x, y, options.Clock(black), r.pal.ClockStyle(black))
}

func (r *Renderer) drawRosters(f transport.FrequentUpdate) {
	sw, _ := r.scr.Size()
	w := sw - sideX - 1
	if w < 12 {
		return
	}
	// Row 1 belongs to the turn line, which runs past sideX.
	rooms.DrawRoster(r.scr, render.Rect{X: sideX, Y: boardY, W: w, H: 5}, "Players", f.Players, r.you)
	rooms.DrawRoster(r.scr, render.Rect{X: sideX, Y: boardY + 6, W: w, H: 7}, "Spectators", f.Spectators, r.you)
}
