package options

import (
	"context"
	"errors"
	"time"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/grid"
	"roomviewer/internal/input"
	"roomviewer/internal/render"
)

// ErrAborted is returned by Run when the user backs out of the editor.
var ErrAborted = errors.New("options: aborted")

// DefaultTickRate is the editor's frame rate.
const DefaultTickRate = 10

const (
	panelW = 26
	panelH = 4
	gapX   = 2
	gapY   = 1
)

// Editor holds the option grid, the cursor and the editing state. It is
// driven one key at a time, so tests can feed it without a screen.
type Editor struct {
	model    *grid.Model[*Option]
	nav      *grid.Navigator
	specs    []Spec
	cursor   grid.Coord
	editing  bool
	finished bool
	aborted  bool
}

// NewEditor lays specs out by their cords. Two options on one cell, or an
// option of an unknown type, is an error.
func NewEditor(specs []Spec) (*Editor, error) {
	m := grid.New[*Option]()
	for _, s := range specs {
		o, err := newOption(s)
		if err != nil {
			return nil, err
		}
		at := grid.Coord{Row: s.Cords[0], Col: s.Cords[1]}
		if err := m.Register(at, o); err != nil {
			return nil, err
		}
	}
	e := &Editor{model: m, nav: grid.NewNavigator(m), specs: specs}
	if coords := m.Coords(); len(coords) > 0 {
		e.cursor = coords[0]
	}
	return e, nil
}

// Cursor returns the highlighted cell.
func (e *Editor) Cursor() grid.Coord { return e.cursor }

// Editing reports whether the highlighted option is open for editing.
func (e *Editor) Editing() bool { return e.editing }

// Finished reports whether the user accepted the settings.
func (e *Editor) Finished() bool { return e.finished }

// Aborted reports whether the user backed out.
func (e *Editor) Aborted() bool { return e.aborted }

// Done is Finished or Aborted.
func (e *Editor) Done() bool { return e.finished || e.aborted }

// Current returns the highlighted option.
func (e *Editor) Current() (*Option, bool) { return e.model.Lookup(e.cursor) }

// Values returns option id → value for every option.
func (e *Editor) Values() map[string]any {
	out := make(map[string]any, e.model.Len())
	for _, c := range e.model.Coords() {
		o, _ := e.model.Lookup(c)
		out[o.Spec.ID] = o.Value()
	}
	return out
}

// HandleKey feeds a raw key. Text options consume typed runes while open;
// everything else goes through the shared key map.
func (e *Editor) HandleKey(k *tcell.EventKey) {
	if o, ok := e.Current(); ok && e.editing && o.IsText() {
		switch k.Key() {
		case tcell.KeyRune:
			o.typeRune(k.Rune())
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			o.backspace()
		case tcell.KeyEnter, tcell.KeyEscape:
			e.editing = false
		}
		return
	}
	e.Handle(input.KeyToEvent(k))
}

// Handle applies one event.
func (e *Editor) Handle(ev input.Event) {
	if e.Done() {
		return
	}
	if e.editing {
		o, ok := e.Current()
		if !ok {
			e.editing = false
			return
		}
		switch ev {
		case input.EventUp:
			o.Step(+1)
		case input.EventDown:
			o.Step(-1)
		case input.EventSubmit, input.EventSelect, input.EventCancel:
			e.editing = false
		}
		return
	}
	switch ev {
	case input.EventUp:
		e.cursor = e.nav.Move(e.cursor, grid.Up)
	case input.EventDown:
		e.cursor = e.nav.Move(e.cursor, grid.Down)
	case input.EventLeft:
		e.cursor = e.nav.Move(e.cursor, grid.Left)
	case input.EventRight:
		e.cursor = e.nav.Move(e.cursor, grid.Right)
	case input.EventSelect:
		if e.model.Has(e.cursor) {
			e.editing = true
		}
	case input.EventSubmit:
		e.finished = true
	case input.EventCancel, input.EventQuit:
		e.aborted = true
	}
}

// Draw renders the editor full screen.
func (e *Editor) Draw(scr tcell.Screen, title string) {
	pal := render.DefaultPalette
	scr.Clear()
	sw, sh := scr.Size()
	render.Box(scr, render.Rect{X: 0, Y: 0, W: sw, H: sh - render.StatusHeight}, title, pal.Border)

	for _, c := range e.model.Coords() {
		o, _ := e.model.Lookup(c)
		r := render.Rect{
			X: 2 + c.Col*(panelW+gapX),
			Y: 2 + c.Row*(panelH+gapY),
			W: panelW,
			H: panelH,
		}
		highlighted := c == e.cursor
		st := pal.Border
		switch {
		case highlighted && e.editing:
			st = pal.Online
		case highlighted:
			st = pal.Title
		case e.editing:
			st = pal.Dim
		}
		render.Box(scr, r, o.Spec.Name, st)
		line := o.Display()
		if highlighted && e.editing && o.IsText() {
			line += "_"
		}
		render.PutTextMax(scr, r.X+2, r.Y+1, r.W-4, line, pal.Text)
	}

	status := "Room options"
	help := "arrows move  space edit  enter create  esc cancel"
	if o, ok := e.Current(); ok && e.editing {
		status = "Editing " + o.Spec.Name
		help = "up/down change  enter done"
		if o.IsText() {
			help = "type a value  enter done"
		}
	}
	render.DrawStatus(scr, status, help, "", pal.Text)
}

// Run shows the editor until the user accepts or aborts the settings.
func Run(ctx context.Context, scr tcell.Screen, keys input.KeySource, title string, specs []Spec, tickRate int) (map[string]any, error) {
	e, err := NewEditor(specs)
	if err != nil {
		return nil, err
	}
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	var closed <-chan struct{}
	if c, ok := keys.(interface{ Closed() <-chan struct{} }); ok {
		closed = c.Closed()
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	for {
		if k, ok := keys.PollKey(); ok {
			e.HandleKey(k)
		}
		if e.Finished() {
			return e.Values(), nil
		}
		if e.Aborted() {
			return nil, ErrAborted
		}
		e.Draw(scr, title)
		scr.Show()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-closed:
			return nil, ErrAborted
		case <-ticker.C:
		}
	}
}
