package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roomviewer/internal/logging"
	bsview "roomviewer/internal/rooms/battleship"
	chessview "roomviewer/internal/rooms/chess"
)

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// ─── chess ───

func newChess(t *testing.T, settings map[string]any) *chessGame {
	t.Helper()
	g, err := newChessGame(settings)
	if err != nil {
		t.Fatal(err)
	}
	return g.(*chessGame)
}

func TestChessSettings(t *testing.T) {
	cases := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{"defaults", nil, false},
		{"custom fen", map[string]any{"starting_fen": "4k3/8/8/8/8/8/8/4K2R w K - 0 1"}, false},
		{"bad fen", map[string]any{"starting_fen": "nonsense"}, true},
		{"unknown variant", map[string]any{"chess_variant": "Atomic"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newChessGame(tc.settings)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestChessSeats(t *testing.T) {
	g := newChess(t, map[string]any{"allow_spectators": false})
	for _, n := range []string{"alice", "bob", "alice"} {
		if err := g.Join(n); err != nil {
			t.Fatalf("Join(%s): %v", n, err)
		}
	}
	if got := g.Players(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("players = %v", got)
	}
	if err := g.Join("carol"); err == nil {
		t.Error("third player seated without spectators")
	}
	if g.MaxUsers() != 2 {
		t.Errorf("MaxUsers = %d", g.MaxUsers())
	}
}

func TestChessMoves(t *testing.T) {
	g := newChess(t, map[string]any{"timers_enabled": false})
	now := time.Now()
	g.Join("alice")
	if err := g.Move("alice", mustJSON(t, "e2e4"), now); !errors.Is(err, errRejected) {
		t.Errorf("move before opponent: %v", err)
	}
	g.Join("bob")
	g.Join("carol")

	cases := []struct {
		player, move string
		ok           bool
	}{
		{"bob", "e7e5", false},
		{"carol", "e2e4", false},
		{"alice", "e2e5", false},
		{"alice", "e2e4", true},
		{"bob", "e7e5", true},
	}
	for _, tc := range cases {
		err := g.Move(tc.player, mustJSON(t, tc.move), now)
		if (err == nil) != tc.ok {
			t.Errorf("%s %s: err = %v", tc.player, tc.move, err)
		}
	}
	if g.lastMove != "e7e5" {
		t.Errorf("last move = %q", g.lastMove)
	}
	if err := g.Move("alice", json.RawMessage(`{"x":1}`), now); err == nil || errors.Is(err, errRejected) {
		t.Errorf("malformed move: %v", err)
	}
}

func TestChessStateDecodes(t *testing.T) {
	g := newChess(t, nil)
	g.Join("alice")
	g.Join("bob")
	now := time.Now()
	if err := g.Move("alice", mustJSON(t, "g1f3"), now); err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		viewer string
		flip   bool
		spec   bool
	}{{"alice", false, false}, {"bob", true, false}, {"carol", false, true}} {
		raw := mustJSON(t, g.State(tc.viewer, 7, now))
		snap, version, err := chessview.DecodeState(raw)
		if err != nil {
			t.Fatalf("%s: %v", tc.viewer, err)
		}
		if version != 7 || snap.LastMove != "g1f3" || snap.State != "Playing" {
			t.Errorf("%s: snapshot = %+v v%d", tc.viewer, snap, version)
		}
		if snap.Flipped() != tc.flip || snap.Spectating() != tc.spec {
			t.Errorf("%s: flipped=%v spectating=%v", tc.viewer, snap.Flipped(), snap.Spectating())
		}
		if got := chessview.PieceName(snap.Position().Board().Piece(21)); got != "White Knight" {
			t.Errorf("%s: f3 holds %s", tc.viewer, got)
		}
	}
}

func TestChessClock(t *testing.T) {
	g := newChess(t, map[string]any{"white_time": 5, "black_time": 300, "time_added_per_move": 10})
	g.Join("alice")
	g.Join("bob")
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if err := g.Move("alice", mustJSON(t, "e2e4"), t0); err != nil {
		t.Fatal(err)
	}
	if got := g.Timers(t0.Add(30 * time.Second)); got[0] != 5 || got[1] != 270 {
		t.Errorf("timers = %v", got)
	}
	if err := g.Move("bob", mustJSON(t, "e7e5"), t0.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	if got := g.Timers(t0.Add(time.Second)); got[1] != 309 {
		t.Errorf("increment not applied: %v", got)
	}
	err := g.Move("alice", mustJSON(t, "g1f3"), t0.Add(10*time.Second))
	if !errors.Is(err, errRejected) {
		t.Fatalf("flagged move: %v", err)
	}
	if g.state() != "White ran out of time" {
		t.Errorf("state = %q", g.state())
	}
	if got := g.Timers(t0.Add(time.Minute)); got[0] != 0 {
		t.Errorf("flagged clock = %v", got)
	}
}

func TestChessCloneIndependent(t *testing.T) {
	g := newChess(t, nil)
	g.Join("alice")
	g.Join("bob")
	c, err := g.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Move("alice", mustJSON(t, "d2d4"), time.Now()); err != nil {
		t.Fatal(err)
	}
	if got := c.(*chessGame).game.Position().Turn().Name(); got != "White" {
		t.Errorf("clone turn = %s", got)
	}
}

// ─── battleship ───

func newBattleship(t *testing.T, settings map[string]any) *battleshipGame {
	t.Helper()
	g, err := newBattleshipGame(settings)
	if err != nil {
		t.Fatal(err)
	}
	b := g.(*battleshipGame)
	b.Join("alice")
	b.Join("bob")
	return b
}

type placed struct {
	PlacedShips []placement `json:"placed_ships"`
}

func place(x, y int, dir bsview.Direction, size int) placed {
	return placed{PlacedShips: []placement{{X: x, Y: y, Direction: dir, Size: size}}}
}

func TestBattleshipSettings(t *testing.T) {
	for _, s := range []map[string]any{{"board_size": 3.0}, {"ship_count": 0.0}, {"ship_count": 9.0}} {
		if _, err := newBattleshipGame(s); err == nil {
			t.Errorf("settings %v accepted", s)
		}
	}
}

func TestBattleshipPlacement(t *testing.T) {
	b := newBattleship(t, map[string]any{"board_size": 6.0, "ship_count": 2.0})
	now := time.Now()
	cases := []struct {
		name string
		move placed
		ok   bool
	}{
		{"off the board", place(3, 0, bsview.Horizontal, 5), false},
		{"bad size", place(0, 0, bsview.Horizontal, 3), false},
		{"fits", place(0, 0, bsview.Horizontal, 5), true},
		{"overlap", place(0, 0, bsview.Vertical, 4), false},
		{"second ship", place(5, 1, bsview.Vertical, 4), true},
		{"nothing left", place(0, 5, bsview.Horizontal, 4), false},
	}
	for _, tc := range cases {
		err := b.Move("alice", mustJSON(t, tc.move), now)
		if (err == nil) != tc.ok {
			t.Errorf("%s: err = %v", tc.name, err)
		}
	}
	if !b.placing() {
		t.Error("bob has not placed, still placing")
	}
	if err := b.Move("alice", mustJSON(t, map[string]int{"x": 0, "y": 0}), now); !errors.Is(err, errRejected) {
		t.Errorf("attack during placement: %v", err)
	}
}

func TestBattleshipGame(t *testing.T) {
	b := newBattleship(t, map[string]any{"board_size": 5.0, "ship_count": 1.0})
	now := time.Now()
	must := func(player string, move any) {
		t.Helper()
		if err := b.Move(player, mustJSON(t, move), now); err != nil {
			t.Fatalf("%s %v: %v", player, move, err)
		}
	}
	must("alice", place(0, 0, bsview.Horizontal, 5))
	must("bob", place(0, 0, bsview.Vertical, 5))
	if b.placing() {
		t.Fatal("both fleets placed")
	}

	raw := mustJSON(t, b.State("alice", 3, now))
	snap, _, err := bsview.DecodeState(raw, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.YourTurn || snap.PlaceShips || snap.Size != 5 {
		t.Errorf("alice view = %+v", snap)
	}
	if snap.Enemy.Ships[0].X != nil {
		t.Error("enemy ship position leaked")
	}
	if snap.Own.Ships[0].X == nil {
		t.Error("own ship position missing")
	}

	if err := b.Move("bob", mustJSON(t, map[string]int{"x": 4, "y": 4}), now); !errors.Is(err, errRejected) {
		t.Errorf("out of turn attack: %v", err)
	}
	for y := 0; y < 5; y++ {
		must("alice", map[string]int{"x": 0, "y": y})
		if y < 4 {
			must("bob", map[string]int{"x": y, "y": 4})
		}
	}
	if b.boards["bob"].Tiles[0][2] != bsview.TileHit || b.boards["alice"].Tiles[1][4] != bsview.TileMiss {
		t.Error("tiles not recorded")
	}
	if b.winner() != "alice" || b.state() != "alice wins" {
		t.Errorf("winner = %q state = %q", b.winner(), b.state())
	}
	snap, _, err = bsview.DecodeState(mustJSON(t, b.State("bob", 4, now)), "bob")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Winner() != "opponent" {
		t.Errorf("bob sees winner %q", snap.Winner())
	}
	if err := b.Move("bob", mustJSON(t, map[string]int{"x": 4, "y": 3}), now); !errors.Is(err, errRejected) {
		t.Errorf("attack after the end: %v", err)
	}
}

func TestBattleshipCloneIndependent(t *testing.T) {
	b := newBattleship(t, map[string]any{"board_size": 5.0, "ship_count": 1.0})
	c, err := b.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Move("alice", mustJSON(t, place(0, 0, bsview.Horizontal, 5)), time.Now()); err != nil {
		t.Fatal(err)
	}
	if c.(*battleshipGame).boards["alice"].Ships[0].Placed {
		t.Error("clone shares boards")
	}
}

// ─── http ───

func TestUserCookies(t *testing.T) {
	s := New("test", logging.Discard())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/create_user/alice")
	if err != nil {
		t.Fatal(err)
	}
	var created struct {
		UserID string `json:"user_id"`
	}
	json.NewDecoder(resp.Body).Decode(&created) //nolint:errcheck
	resp.Body.Close()

	for _, tc := range []struct {
		cookie string
		want   int
	}{{"", http.StatusUnauthorized}, {"user_hash", http.StatusOK}, {"hash_id", http.StatusOK}} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/get_rooms", nil)
		if tc.cookie != "" {
			req.AddCookie(&http.Cookie{Name: tc.cookie, Value: created.UserID})
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("cookie %q: status %d, want %d", tc.cookie, resp.StatusCode, tc.want)
		}
	}
}

func TestCreateUserRejectsLongNames(t *testing.T) {
	s := New("test", logging.Discard())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/create_user/" + strings.Repeat("x", maxNameLen+1))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestGameTypes(t *testing.T) {
	if got := GameTypes(); len(got) != 2 || got[0] != "Battleship" || got[1] != "Chess" {
		t.Errorf("GameTypes = %v", got)
	}
}
