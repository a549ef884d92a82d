package options

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/grid"
	"roomviewer/internal/input"
)

// chessLike mirrors a chess room's creation settings: four timer panels on
// the first row and three on the second.
var chessLike = []Spec{
	{ID: "timers_enabled", Name: "Timers Enabled", Kind: KindBool, Default: true, Cords: [2]int{0, 0}},
	{ID: "time_added_per_move", Name: "Time Added Per Move", Kind: KindTime, Default: 10, Cords: [2]int{0, 1}},
	{ID: "white_time", Name: "White Time", Kind: KindTime, Default: 300, Cords: [2]int{0, 2}},
	{ID: "black_time", Name: "Black Time", Kind: KindTime, Default: float64(300), Cords: [2]int{0, 3}},
	{ID: "chess_variant", Name: "Chess Variant", Kind: KindList, Default: "Standard", Cords: [2]int{1, 0},
		Choices: []string{"Standard", "Chess960", "Crazyhouse"}},
	{ID: "starting_fen", Name: "Starting FEN", Kind: KindText, Default: "", Cords: [2]int{1, 1}},
	{ID: "allow_spectators", Name: "Allow Spectators", Kind: KindBool, Default: true, Cords: [2]int{1, 2}},
}

func mustEditor(t *testing.T, specs []Spec) *Editor {
	t.Helper()
	e, err := NewEditor(specs)
	if err != nil {
		t.Fatalf("NewEditor: %v", err)
	}
	return e
}

// ─── Option values ───

func TestOptionStep(t *testing.T) {
	cases := []struct {
		name  string
		spec  Spec
		steps []int
		want  any
	}{
		{"int up", Spec{Kind: KindInt, Default: 10}, []int{1, 1}, 12},
		{"int stops at zero", Spec{Kind: KindInt, Default: 1}, []int{-1, -1}, 0},
		{"time steps by ten", Spec{Kind: KindTime, Default: 300}, []int{1, 1, -1}, 310},
		{"bool toggles", Spec{Kind: KindBool, Default: true}, []int{1}, false},
		{"bool toggles down too", Spec{Kind: KindBool, Default: false}, []int{-1}, true},
		{"list wraps forward", Spec{Kind: KindList, Default: "c", Choices: []string{"a", "b", "c"}}, []int{1}, "a"},
		{"list wraps back", Spec{Kind: KindList, Default: "a", Choices: []string{"a", "b", "c"}}, []int{-1}, "c"},
		{"text ignores steps", Spec{Kind: KindStr, Default: "x"}, []int{1}, "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := newOption(tc.spec)
			if err != nil {
				t.Fatalf("newOption: %v", err)
			}
			for _, s := range tc.steps {
				o.Step(s)
			}
			if got := o.Value(); got != tc.want {
				t.Errorf("Value() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestOptionDisplay(t *testing.T) {
	cases := []struct {
		spec Spec
		want string
	}{
		{Spec{Kind: KindInt, Default: 5}, "Value: 5"},
		{Spec{Kind: KindBool, Default: true}, "Enabled: Yes"},
		{Spec{Kind: KindBool}, "Enabled: No"},
		{Spec{Kind: KindTime, Default: 300}, "Time: 0:05:00"},
		{Spec{Kind: KindTime, Default: 3725}, "Time: 1:02:05"},
		{Spec{Kind: KindList, Default: "b", Choices: []string{"a", "b"}}, "Value: b"},
	}
	for _, tc := range cases {
		o, err := newOption(tc.spec)
		if err != nil {
			t.Fatalf("newOption(%v): %v", tc.spec, err)
		}
		if got := o.Display(); got != tc.want {
			t.Errorf("Display() = %q, want %q", got, tc.want)
		}
	}
}

func TestNewEditorErrors(t *testing.T) {
	if _, err := NewEditor([]Spec{{ID: "x", Kind: "colour"}}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind: got %v", err)
	}
	dup := []Spec{
		{ID: "a", Kind: KindInt, Cords: [2]int{0, 0}},
		{ID: "b", Kind: KindInt, Cords: [2]int{0, 0}},
	}
	if _, err := NewEditor(dup); !errors.Is(err, grid.ErrDuplicateCoordinate) {
		t.Errorf("duplicate cords: got %v", err)
	}
	if _, err := NewEditor([]Spec{{ID: "l", Kind: KindList}}); err == nil {
		t.Error("list without choices should fail")
	}
}

// ─── Navigation and editing ───

func TestEditorNavigationFollowsCords(t *testing.T) {
	e := mustEditor(t, chessLike)
	if e.Cursor() != (grid.Coord{}) {
		t.Fatalf("start cursor = %v", e.Cursor())
	}
	steps := []struct {
		ev   input.Event
		want grid.Coord
	}{
		{input.EventRight, grid.Coord{Row: 0, Col: 1}},
		{input.EventRight, grid.Coord{Row: 0, Col: 2}},
		{input.EventRight, grid.Coord{Row: 0, Col: 3}},
		{input.EventRight, grid.Coord{Row: 0, Col: 3}}, // clamp
		{input.EventDown, grid.Coord{Row: 0, Col: 3}},  // nothing below (1,3)
		{input.EventLeft, grid.Coord{Row: 0, Col: 2}},
		{input.EventDown, grid.Coord{Row: 1, Col: 2}},
		{input.EventUp, grid.Coord{Row: 0, Col: 2}},
	}
	for i, s := range steps {
		e.Handle(s.ev)
		if e.Cursor() != s.want {
			t.Fatalf("step %d (%v): cursor %v, want %v", i, s.ev, e.Cursor(), s.want)
		}
	}
}

func TestEditorEditsValues(t *testing.T) {
	e := mustEditor(t, chessLike)
	e.Handle(input.EventRight) // time added per move
	e.Handle(input.EventSelect)
	if !e.Editing() {
		t.Fatal("space should open the option")
	}
	e.Handle(input.EventUp)
	e.Handle(input.EventUp)
	// Left is ignored while editing: the cursor stays on the open option.
	e.Handle(input.EventLeft)
	e.Handle(input.EventSubmit)
	if e.Editing() || e.Finished() {
		t.Fatal("enter should only close the option")
	}
	e.Handle(input.EventSubmit)
	if !e.Finished() {
		t.Fatal("enter outside editing should finish")
	}
	v := e.Values()
	if v["time_added_per_move"] != 30 {
		t.Errorf("time_added_per_move = %v, want 30", v["time_added_per_move"])
	}
	if v["black_time"] != 300 || v["chess_variant"] != "Standard" || v["timers_enabled"] != true {
		t.Errorf("defaults changed: %v", v)
	}
}

func TestEditorTextEntry(t *testing.T) {
	e := mustEditor(t, chessLike)
	e.Handle(input.EventDown)
	e.Handle(input.EventRight) // starting fen
	keys := input.NewKeyQueue().Runes(" ").Runes("8/8 kq").Keys(tcell.KeyBackspace2, tcell.KeyEnter)
	for {
		k, ok := keys.PollKey()
		if !ok {
			break
		}
		e.HandleKey(k)
	}
	if e.Editing() {
		t.Fatal("enter should close the text option")
	}
	// 'q' was typed, not treated as quit.
	if got := e.Values()["starting_fen"]; got != "8/8 k" {
		t.Errorf("starting_fen = %q, want %q", got, "8/8 k")
	}
	if e.Aborted() {
		t.Error("typing q aborted the editor")
	}
}

func TestEditorAbort(t *testing.T) {
	e := mustEditor(t, chessLike)
	e.Handle(input.EventCancel)
	if !e.Aborted() || !e.Done() {
		t.Error("esc outside editing should abort")
	}
}

// ─── Run ───

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("SimulationScreen.Init: %v", err)
	}
	s.SetSize(140, 30)
	t.Cleanup(s.Fini)
	return s
}

func screenText(s tcell.SimulationScreen) string {
	cells, w, h := s.GetContents()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) > 0 {
				b.WriteRune(c.Runes[0])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestRunReturnsValues(t *testing.T) {
	scr := newSimScreen(t)
	keys := input.NewKeyQueue().Runes(" k ").Keys(tcell.KeyEnter)
	keys.Keys(tcell.KeyEnter)
	specs := []Spec{
		{ID: "board_size", Name: "Board Size", Kind: KindInt, Default: 10, Cords: [2]int{0, 0}},
		{ID: "allow_spec", Name: "Allow Spectators", Kind: KindBool, Default: true, Cords: [2]int{0, 1}},
	}
	got, err := Run(context.Background(), scr, keys, "Room Options", specs, 1000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got["board_size"] != 11 || got["allow_spec"] != true {
		t.Errorf("values = %v", got)
	}
}

func TestRunAborts(t *testing.T) {
	scr := newSimScreen(t)
	keys := input.NewKeyQueue().Keys(tcell.KeyEscape)
	if _, err := Run(context.Background(), scr, keys, "Room Options", chessLike, 1000); !errors.Is(err, ErrAborted) {
		t.Errorf("Run = %v, want ErrAborted", err)
	}
}

func TestDrawShowsPanels(t *testing.T) {
	scr := newSimScreen(t)
	e := mustEditor(t, chessLike)
	e.Draw(scr, "Room Options")
	scr.Show()
	text := screenText(scr)
	for _, want := range []string{"Room Options", "White Time", "Time: 0:05:00", "Enabled: Yes", "Value: Standard"} {
		if !strings.Contains(text, want) {
			t.Errorf("screen missing %q", want)
		}
	}
}
