package chess

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/notnil/chess"

	"roomviewer/internal/grid"
	"roomviewer/internal/input"
	"roomviewer/internal/rooms"
	"roomviewer/internal/session"
	"roomviewer/internal/transport"
)

const (
	startEPD = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"
	// Fool's mate: white is checkmated.
	foolsMateEPD = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq -"
	promoteEPD   = "8/4P3/8/8/8/8/k7/4K3 w - -"
)

func stateJSON(board string, whiteToMove bool, yourColor *bool, lastMove string) json.RawMessage {
	raw, _ := json.Marshal(wireState{
		Board:         board,
		CurrentPlayer: whiteToMove,
		YourColor:     yourColor,
		State:         "playing",
		LastMove:      lastMove,
		TimersEnabled: true,
		Version:       1,
	})
	return raw
}

func boolp(b bool) *bool { return &b }

func mustSnap(t *testing.T, board string, whiteToMove bool, yourColor *bool) Snapshot {
	t.Helper()
	s, _, err := DecodeState(stateJSON(board, whiteToMove, yourColor, ""))
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	return s
}

// white-side display coordinates of a square name like "e2".
func at(t *testing.T, name string) grid.Coord {
	t.Helper()
	sq, ok := parseSquare(name)
	if !ok {
		t.Fatalf("bad square %q", name)
	}
	return CoordOf(sq, false)
}

// ─── Snapshot decoding ───

func TestDecodeState(t *testing.T) {
	s, v, err := DecodeState(stateJSON(startEPD, true, boolp(false), "e2e4"))
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if v != 1 {
		t.Errorf("version = %d", v)
	}
	if s.Turn != chess.White || s.YourColor != chess.Black || !s.Flipped() || s.YourTurn() {
		t.Errorf("colours wrong: turn=%v you=%v", s.Turn, s.YourColor)
	}
	if s.LastMove != "e2e4" || !s.TimersEnabled {
		t.Errorf("fields lost: %+v", s)
	}
	if !strings.HasPrefix(s.FEN, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq") {
		t.Errorf("FEN = %q", s.FEN)
	}
}

func TestDecodeStateTurnComesFromCurrentPlayer(t *testing.T) {
	// The EPD says white, the server says black is to move.
	s := mustSnap(t, startEPD, false, nil)
	if s.Turn != chess.Black {
		t.Errorf("turn = %v, want black", s.Turn)
	}
	if !s.Spectating() || s.Flipped() {
		t.Error("null your_color should mean spectating, white-side view")
	}
}

func TestDecodeStateErrors(t *testing.T) {
	for _, raw := range []string{`{"board": ""}`, `{"board": "not a board"}`, `[1,2]`} {
		if _, _, err := DecodeState(json.RawMessage(raw)); err == nil {
			t.Errorf("DecodeState(%s) should fail", raw)
		}
	}
}

func TestSquareOrientation(t *testing.T) {
	cases := []struct {
		c       grid.Coord
		flipped bool
		want    string
	}{
		{grid.Coord{Row: 0, Col: 0}, false, "a8"},
		{grid.Coord{Row: 7, Col: 0}, false, "a1"},
		{grid.Coord{Row: 7, Col: 7}, false, "h1"},
		{grid.Coord{Row: 0, Col: 0}, true, "h1"},
		{grid.Coord{Row: 7, Col: 7}, true, "a8"},
		{grid.Coord{Row: 6, Col: 3}, true, "e7"},
	}
	for _, tc := range cases {
		sq := SquareAt(tc.c, tc.flipped)
		if sq.String() != tc.want {
			t.Errorf("SquareAt(%v, %v) = %s, want %s", tc.c, tc.flipped, sq, tc.want)
		}
		if back := CoordOf(sq, tc.flipped); back != tc.c {
			t.Errorf("CoordOf(%s, %v) = %v, want %v", sq, tc.flipped, back, tc.c)
		}
	}
}

func TestParseUCI(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want string
	}{
		{"e2e4", true, "e2e4"},
		{"e7e8q", true, "e7e8q"},
		{"a7a8n", true, "a7a8n"},
		{"e2", false, ""},
		{"e2e9", false, ""},
		{"e7e8k", false, ""},
	}
	for _, tc := range cases {
		m, err := ParseUCI(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseUCI(%q) err = %v", tc.in, err)
			continue
		}
		if tc.ok && m.UCI() != tc.want {
			t.Errorf("ParseUCI(%q).UCI() = %q", tc.in, m.UCI())
		}
	}
}

// ─── Rules ───

func TestCanSelect(t *testing.T) {
	white := mustSnap(t, startEPD, true, boolp(true))
	black := mustSnap(t, startEPD, true, boolp(false))
	spectator := mustSnap(t, startEPD, true, nil)
	r := Rules{}
	if !r.CanSelect(white, at(t, "e2")) {
		t.Error("white should pick up its own pawn")
	}
	if r.CanSelect(white, at(t, "e7")) {
		t.Error("white picked up a black pawn")
	}
	if r.CanSelect(white, at(t, "e4")) {
		t.Error("empty square selected")
	}
	if r.CanSelect(black, CoordOf(chess.E7, true)) {
		t.Error("black moved out of turn")
	}
	if r.CanSelect(spectator, at(t, "e2")) {
		t.Error("spectator selected a piece")
	}
}

func TestProposeAndIsLegal(t *testing.T) {
	s := mustSnap(t, startEPD, true, boolp(true))
	r := Rules{}
	cases := []struct {
		from, to string
		legal    bool
	}{
		{"e2", "e4", true},
		{"g1", "f3", true},
		{"e2", "e5", false},
		{"a1", "a3", false},
	}
	for _, tc := range cases {
		m, ok := r.Propose(s, at(t, tc.from), at(t, tc.to))
		if !ok {
			t.Fatalf("Propose(%s,%s) refused", tc.from, tc.to)
		}
		if got := r.IsLegal(s, m); got != tc.legal {
			t.Errorf("IsLegal(%s) = %v, want %v", m, got, tc.legal)
		}
	}
	if _, ok := r.Propose(s, at(t, "e4"), at(t, "e5")); ok {
		t.Error("proposing from an empty square should fail")
	}
}

func TestProposeFlippedBoard(t *testing.T) {
	s := mustSnap(t, startEPD, false, boolp(false))
	// From black's side e7 is at row 6, col 3.
	m, ok := Rules{}.Propose(s, grid.Coord{Row: 6, Col: 3}, grid.Coord{Row: 4, Col: 3})
	if !ok || m.UCI() != "e7e5" {
		t.Fatalf("Propose = %v,%v want e7e5", m, ok)
	}
	if !(Rules{}).IsLegal(s, m) {
		t.Error("e7e5 should be legal for black")
	}
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	s := mustSnap(t, promoteEPD, true, boolp(true))
	m, ok := Rules{}.Propose(s, at(t, "e7"), at(t, "e8"))
	if !ok || m.UCI() != "e7e8q" {
		t.Fatalf("Propose = %v,%v want e7e8q", m, ok)
	}
	if !(Rules{}).IsLegal(s, m) {
		t.Error("promotion should be legal")
	}
}

func TestCheckmateIsTerminal(t *testing.T) {
	s := mustSnap(t, foolsMateEPD, true, boolp(true))
	if !(Rules{}).IsTerminal(s) {
		t.Fatal("fool's mate should be terminal")
	}
	if got := s.Outcome(); got != "Checkmate, Black wins" {
		t.Errorf("Outcome = %q", got)
	}
	if (Rules{}).CanSelect(s, at(t, "e2")) {
		t.Error("selection allowed after mate")
	}
}

// ─── Applier ───

func TestApplyLeavesInputUntouched(t *testing.T) {
	s := mustSnap(t, startEPD, true, boolp(true))
	before := s.FEN
	m, _ := ParseUCI("e2e4")
	next, err := Applier{}.Apply(s, m)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.FEN != before || s.PieceAt(at(t, "e2")) == chess.NoPiece {
		t.Error("Apply modified its input")
	}
	if next.PieceAt(at(t, "e4")) != chess.WhitePawn || next.Turn != chess.Black || next.LastMove != "e2e4" {
		t.Errorf("speculative position wrong: %s", next.FEN)
	}

	bad, _ := ParseUCI("e2e5")
	if _, err := (Applier{}).Apply(s, bad); err == nil {
		t.Error("illegal move applied")
	}
}

func TestConfirms(t *testing.T) {
	m, _ := ParseUCI("e2e4")
	played, _, _ := DecodeState(stateJSON("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq -", false, boolp(true), "e2e4"))
	if !(Applier{}).Confirms(played, m) {
		t.Error("server last move should confirm")
	}
	other, _, _ := DecodeState(stateJSON(startEPD, true, boolp(true), "d2d4"))
	if (Applier{}).Confirms(other, m) {
		t.Error("a different last move confirmed")
	}
	noLast := mustSnap(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq -", false, boolp(true))
	if !(Applier{}).Confirms(noLast, m) {
		t.Error("board shape should confirm when the server sends no last move")
	}
}

func TestConfirmsAfterOpponentReplied(t *testing.T) {
	start := mustSnap(t, startEPD, true, boolp(true))
	m, ok := Rules{}.Propose(start, at(t, "e2"), at(t, "e4"))
	if !ok {
		t.Fatal("Propose refused e2e4")
	}
	// Black answered e7e5 before the next poll.
	replied, _, err := DecodeState(stateJSON("rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq -", true, boolp(true), "e7e5"))
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if !(Applier{}).Confirms(replied, m) {
		t.Error("move accepted by the server and answered by the opponent was not confirmed")
	}

	// The server still shows the position the move was made on.
	unchanged, _, _ := DecodeState(stateJSON(startEPD, true, boolp(true), ""))
	if (Applier{}).Confirms(unchanged, m) {
		t.Error("move confirmed although the position did not advance")
	}
}

func TestPieceName(t *testing.T) {
	if got := PieceName(chess.BlackKnight); got != "Black Knight" {
		t.Errorf("PieceName = %q", got)
	}
	if got := PieceName(chess.NoPiece); got != "Empty" {
		t.Errorf("PieceName(NoPiece) = %q", got)
	}
}

// ─── Renderer ───

func newSimScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("SimulationScreen.Init: %v", err)
	}
	s.SetSize(100, 30)
	t.Cleanup(s.Fini)
	return s
}

func screenText(s tcell.SimulationScreen) string {
	cells, w, h := s.GetContents()
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if c := cells[y*w+x]; len(c.Runes) > 0 {
				b.WriteRune(c.Runes[0])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func TestRenderer(t *testing.T) {
	scr := newSimScreen(t)
	r := NewRenderer(scr, "friday", "alice")
	s := mustSnap(t, startEPD, true, boolp(true))
	r.Render(View{
		Phase:       session.PhaseIdle,
		Snapshot:    s,
		HasSnapshot: true,
		Cursor:      at(t, "e2"),
		CursorValid: true,
		HasSideband: true,
		Sideband: transport.FrequentUpdate{
			Players:    []transport.Member{{Username: "alice", Online: true}, {Username: "bob"}},
			MoveTimers: []int{300, 25},
		},
		Message: "move confirmed",
	})
	text := screenText(scr)
	for _, want := range []string{
		"Chess: friday",
		"It's White's turn, you are White",
		"Cursor over: White Pawn",
		"Last move: none",
		"0:05:00",
		"0:00:25",
		"alice (you)",
		"Offline",
		"move confirmed",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("screen missing %q", want)
		}
	}
	rows := strings.Split(text, "\n")
	if !strings.Contains(rows[1], "It's White's turn, you are White") || strings.Contains(rows[1], "Players") {
		t.Errorf("turn line overdrawn: %q", rows[1])
	}
	if !strings.Contains(rows[boardY], "Players") {
		t.Errorf("players roster not at the board top: %q", rows[boardY])
	}
}

func TestRendererBeforeFirstSnapshot(t *testing.T) {
	scr := newSimScreen(t)
	NewRenderer(scr, "friday", "alice").Render(View{Phase: session.PhaseAwaitingFirstSnapshot})
	if !strings.Contains(screenText(scr), "Waiting for server") {
		t.Error("placeholder not drawn")
	}
}

// ─── End to end against an in-memory room ───

type memRoom struct {
	mu      sync.Mutex
	game    *chess.Game
	version uint64
	last    string
}

func newMemRoom() *memRoom {
	return &memRoom{game: chess.NewGame(), version: 1}
}

func (m *memRoom) HasChanged(context.Context) (transport.ChangeReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return transport.ChangeReport{
		Changed:  true,
		Version:  m.version,
		Frequent: &transport.FrequentUpdate{Players: []transport.Member{{Username: "alice", Online: true}}},
	}, nil
}

func (m *memRoom) GetState(context.Context) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := m.game.Position()
	epd := strings.Join(strings.Fields(pos.String())[:4], " ")
	raw, err := json.Marshal(wireState{
		Board:         epd,
		CurrentPlayer: pos.Turn() == chess.White,
		YourColor:     boolp(true),
		LastMove:      m.last,
		Version:       m.version,
	})
	return raw, err
}

func (m *memRoom) MakeMove(_ context.Context, move any) (transport.MoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := move.(string)
	mv, err := chess.UCINotation{}.Decode(m.game.Position(), s)
	if err != nil {
		return transport.MoveResult{Success: false, Error: "illegal move"}, nil
	}
	if err := m.game.Move(mv); err != nil {
		return transport.MoveResult{Success: false, Error: err.Error()}, nil
	}
	m.last = s
	m.version++
	return transport.MoveResult{Success: true}, nil
}

func TestRunPlaysAMove(t *testing.T) {
	scr := newSimScreen(t)
	room := newMemRoom()

	var evs []input.Event
	for i := 0; i < 6; i++ {
		evs = append(evs, input.EventDown)
	}
	for i := 0; i < 4; i++ {
		evs = append(evs, input.EventRight)
	}
	evs = append(evs, input.EventSelect, input.EventUp, input.EventUp, input.EventSelect, input.EventSubmit)
	// Give the confirming poll a few ticks before leaving.
	evs = append(evs, input.EventRefresh, input.EventRefresh, input.EventQuit)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := Run(ctx, rooms.Options{
		Screen:   scr,
		Source:   input.NewQueue(evs...),
		Channel:  room,
		RoomName: "test",
		Username: "alice",
		Config:   session.Config{TickRate: 500, PollEvery: 1},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.last != "e2e4" || len(room.game.Moves()) != 1 {
		t.Errorf("server saw %q (%d moves), want e2e4", room.last, len(room.game.Moves()))
	}
}
