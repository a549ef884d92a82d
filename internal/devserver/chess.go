package devserver

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/notnil/chess"
)

type chessGame struct {
	game         *chess.Game
	white, black string
	spectators   bool

	timers    bool
	increment time.Duration
	remaining [2]time.Duration // white, black
	turnStart time.Time
	flagged   chess.Color
	lastMove  string
}

func newChessGame(settings map[string]any) (game, error) {
	if v := settingString(settings, "chess_variant", "Standard"); v != "Standard" {
		return nil, fmt.Errorf("chess variant %q is not supported", v)
	}
	g := chess.NewGame()
	if fen := strings.TrimSpace(settingString(settings, "starting_fen", "")); fen != "" {
		opt, err := chess.FEN(fen)
		if err != nil {
			return nil, fmt.Errorf("starting fen: %w", err)
		}
		g = chess.NewGame(opt)
	}
	return &chessGame{
		game:       g,
		spectators: settingBool(settings, "allow_spectators", true),
		timers:     settingBool(settings, "timers_enabled", true),
		increment:  time.Duration(settingInt(settings, "time_added_per_move", 10)) * time.Second,
		remaining: [2]time.Duration{
			time.Duration(settingInt(settings, "white_time", 300)) * time.Second,
			time.Duration(settingInt(settings, "black_time", 300)) * time.Second,
		},
		flagged: chess.NoColor,
	}, nil
}

func (c *chessGame) Join(name string) error {
	switch {
	case c.white == "" || c.white == name:
		c.white = name
	case c.black == "" || c.black == name:
		c.black = name
	case !c.spectators:
		return fmt.Errorf("room is full")
	}
	return nil
}

func (c *chessGame) Players() []string {
	var out []string
	for _, p := range []string{c.white, c.black} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *chessGame) MaxUsers() int {
	if c.spectators {
		return 10
	}
	return 2
}

func (c *chessGame) started() bool { return c.white != "" && c.black != "" }

func (c *chessGame) over() bool {
	return c.flagged != chess.NoColor || c.game.Outcome() != chess.NoOutcome
}

func (c *chessGame) colorOf(name string) (chess.Color, bool) {
	switch name {
	case c.white:
		return chess.White, true
	case c.black:
		return chess.Black, true
	}
	return chess.NoColor, false
}

func (c *chessGame) state() string {
	switch {
	case c.flagged == chess.White:
		return "White ran out of time"
	case c.flagged == chess.Black:
		return "Black ran out of time"
	case c.game.Outcome() != chess.NoOutcome:
		return "Game over " + string(c.game.Outcome())
	case !c.started():
		return "Waiting for opponent"
	}
	return "Playing"
}

type chessState struct {
	Board         string `json:"board"`
	CurrentPlayer bool   `json:"current_player"`
	YourColor     *bool  `json:"your_color"`
	State         string `json:"state"`
	LastMove      string `json:"last_move"`
	TimersEnabled bool   `json:"timers_enabled"`
	Version       uint64 `json:"version"`
}

func (c *chessGame) State(viewer string, version uint64, _ time.Time) any {
	pos := c.game.Position()
	fields := strings.Fields(pos.String())
	st := chessState{
		Board:         strings.Join(fields[:4], " "),
		CurrentPlayer: pos.Turn() == chess.White,
		State:         c.state(),
		LastMove:      c.lastMove,
		TimersEnabled: c.timers,
		Version:       version,
	}
	if col, ok := c.colorOf(viewer); ok {
		white := col == chess.White
		st.YourColor = &white
	}
	return st
}

func (c *chessGame) Move(player string, raw json.RawMessage, now time.Time) error {
	col, ok := c.colorOf(player)
	if !ok {
		return reject("spectators cannot move")
	}
	if !c.started() {
		return reject("waiting for an opponent")
	}
	if c.over() {
		return reject("the game is over")
	}
	pos := c.game.Position()
	if pos.Turn() != col {
		return reject("not your turn")
	}
	var uci string
	if err := json.Unmarshal(raw, &uci); err != nil {
		return fmt.Errorf("move must be a UCI string: %w", err)
	}
	m, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return reject("bad move %q", uci)
	}
	idx := colorIndex(col)
	left := c.remaining[idx]
	clocked := c.timers && !c.turnStart.IsZero()
	if clocked {
		left -= now.Sub(c.turnStart)
		if left <= 0 {
			c.remaining[idx] = 0
			c.flagged = col
			return reject("out of time")
		}
	}
	if err := c.game.Move(m); err != nil {
		return reject("illegal move %q", uci)
	}
	if clocked {
		c.remaining[idx] = left + c.increment
	}
	c.turnStart = now
	c.lastMove = chess.UCINotation{}.Encode(pos, m)
	return nil
}

func colorIndex(col chess.Color) int {
	if col == chess.White {
		return 0
	}
	return 1
}

func (c *chessGame) Timers(now time.Time) []int {
	if !c.timers {
		return nil
	}
	left := c.remaining
	if c.started() && !c.over() && !c.turnStart.IsZero() {
		idx := colorIndex(c.game.Position().Turn())
		left[idx] -= now.Sub(c.turnStart)
		if left[idx] < 0 {
			left[idx] = 0
		}
	}
	return []int{int(left[0] / time.Second), int(left[1] / time.Second)}
}

func (c *chessGame) Clone() (game, error) {
	cp := *c
	opt, err := chess.FEN(c.game.Position().String())
	if err != nil {
		return nil, err
	}
	cp.game = chess.NewGame(opt)
	// A restored game's clock starts on the next move.
	cp.turnStart = time.Time{}
	return &cp, nil
}
