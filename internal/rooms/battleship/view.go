package battleship

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/grid"
	"roomviewer/internal/render"
	"roomviewer/internal/rooms"
	"roomviewer/internal/session"
	"roomviewer/internal/transport"
)

// View is the frame a battleship renderer receives.
type View = session.View[Snapshot, Action, transport.FrequentUpdate]

const (
	cellW     = 2
	centerW   = 30
	shipsW    = 28
	placeHelp = "arrows move  space queue ship  e rotate  enter send  esc cancel  r refresh  q leave"
	fireHelp  = "arrows aim  space queue attack  enter fire  esc cancel  r refresh  q leave"
)

// Renderer draws a battleship room: the opponent's board on the left, room
// info in the middle and the user's board on the right.
type Renderer struct {
	scr  tcell.Screen
	room string
	you  string
	pal  render.Palette
}

// NewRenderer creates a Renderer.
func NewRenderer(scr tcell.Screen, room, you string) *Renderer {
	return &Renderer{scr: scr, room: room, you: you, pal: render.DefaultPalette}
}

// Render implements session.Renderer.
func (r *Renderer) Render(v View) {
	r.scr.Clear()
	help := fireHelp
	if !v.HasSnapshot {
		render.PutText(r.scr, 1, 1, "Battleship: "+r.room, r.pal.Title)
		render.PutText(r.scr, 1, 3, "Awaiting boards...", r.pal.Dim)
		rooms.DrawFooter(r.scr, v, r.room, help)
		r.scr.Show()
		return
	}
	s := v.Snapshot
	if s.PlaceShips {
		help = placeHelp
	}
	boardW := s.Size*cellW + 2
	boardH := s.Size + 2

	left := render.Rect{X: 0, Y: 0, W: boardW, H: boardH}
	center := render.Rect{X: boardW + 1, Y: 0, W: centerW, H: 7}
	right := render.Rect{X: boardW + centerW + 2, Y: 0, W: boardW, H: boardH}

	render.Box(r.scr, left, "Opponent Board", r.pal.Border)
	r.drawBoard(left.Inner(), s.Enemy, v, !s.PlaceShips)
	render.Box(r.scr, right, "Your Board", r.pal.Border)
	r.drawBoard(right.Inner(), s.Own, v, s.PlaceShips)
	r.drawInfo(center, v)

	// Fleet tables under the boards, spectators between them.
	below := max(boardH, center.H+5)
	oppShips := render.Rect{X: 0, Y: below, W: shipsW, H: len(s.Enemy.Ships) + 3}
	ownShips := render.Rect{X: right.X + right.W - shipsW, Y: below, W: shipsW, H: len(s.Own.Ships) + 3}
	r.drawShips(oppShips, "Opponent Ships", s.Enemy.Ships)
	r.drawShips(ownShips, "Your Ships", s.Own.Ships)

	if v.HasSideband {
		rooms.DrawRoster(r.scr, render.Rect{X: center.X, Y: center.H, W: centerW, H: 5}, "Players", v.Sideband.Players, r.you)
		spec := render.Rect{X: shipsW + 1, Y: below, W: ownShips.X - shipsW - 2, H: 6}
		if spec.W >= 12 {
			rooms.DrawRoster(r.scr, spec, "Spectators", v.Sideband.Spectators, r.you)
		}
	}

	rooms.DrawFooter(r.scr, v, r.room, help)
	r.scr.Show()
}

func (r *Renderer) drawBoard(area render.Rect, b Board, v View, active bool) {
	grd := render.NewBoard(area.X, area.Y, cellW, 1)
	size := v.Snapshot.Size
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := Coord(x, y)
			glyph, st := r.tileGlyph(b, x, y)
			if active && c == v.Cursor {
				if v.CursorValid {
					st = r.pal.Cursor
				} else {
					st = r.pal.CursorBad
				}
				if glyph == "·" {
					glyph = "*"
				}
			} else if active && v.HasPending && pendingCovers(v.Pending.Action, c) {
				st = r.pal.Pending
			}
			sx, sy := grd.CellToScreen(c)
			render.PutGlyph(r.scr, sx, sy, glyph, st)
		}
	}
}

func pendingCovers(a Action, c grid.Coord) bool {
	if a.Kind == Attack {
		return a.At() == c
	}
	x, y := a.X, a.Y
	return Ship{Size: a.Size, X: &x, Y: &y, Direction: a.Direction}.Covers(c.Col, c.Row)
}

func (r *Renderer) tileGlyph(b Board, x, y int) (string, tcell.Style) {
	t := b.Tile(x, y)
	if _, ok := b.ShipAt(x, y); ok {
		if t == TileHit {
			return "■", r.pal.Error
		}
		return "■", r.pal.Text.Bold(true)
	}
	switch t {
	case TileHit:
		return "X", r.pal.Offline
	case TileMiss:
		return "O", r.pal.Text
	case TileTargeted:
		return "?", r.pal.Pending
	}
	return "·", r.pal.Dim
}

func (r *Renderer) drawInfo(area render.Rect, v View) {
	s := v.Snapshot
	render.Box(r.scr, area, "Info", r.pal.Border)
	in := area.Inner()
	current := s.CurrentPlayer
	if current == "" {
		current = "None"
	}
	queued := "None"
	if v.HasPending && v.Pending.Action.Kind == Attack {
		queued = fmt.Sprintf("(%d, %d)", v.Pending.Action.X, v.Pending.Action.Y)
	}
	lines := []string{
		"Room: " + r.room,
		"State: " + s.State,
		"Current Player: " + current,
		"Queued Attack: " + queued,
	}
	switch w := s.Winner(); {
	case w == "you":
		lines = append(lines, "You won!")
	case w == "opponent":
		lines = append(lines, "You lost.")
	case s.PlaceShips:
		if i, ok := s.NextUnplaced(); ok {
			lines = append(lines, "Place your "+s.Own.Ships[i].Name())
		}
	case s.YourTurn:
		lines = append(lines, "Your turn")
	}
	for i, l := range lines {
		if i >= in.H {
			break
		}
		render.PutTextMax(r.scr, in.X, in.Y+i, in.W, l, r.pal.Text)
	}
}

func (r *Renderer) drawShips(area render.Rect, title string, ships []Ship) {
	_, sh := r.scr.Size()
	if area.Y+area.H > sh-render.StatusHeight {
		area.H = sh - render.StatusHeight - area.Y
	}
	if area.H < 3 {
		return
	}
	render.Box(r.scr, area, title, r.pal.Border)
	rows := make([][]render.Cell, 0, len(ships))
	for _, s := range ships {
		state, st := "Unplaced", r.pal.Offline
		switch {
		case s.Placed && s.Sunk:
			state, st = "Sunk", r.pal.Offline
		case s.Placed:
			state, st = "Placed", r.pal.Online
		}
		rows = append(rows, []render.Cell{
			{Text: s.Name(), Style: r.pal.Text},
			{Text: fmt.Sprint(s.Size), Style: r.pal.Text},
			{Text: state, Style: st},
		})
	}
	render.Table(r.scr, area.Inner(), []string{"Ship", "Size", "State"}, rows)
}
