package devserver

import (
	"encoding/json"
	"fmt"
	"time"

	"roomviewer/internal/rooms/battleship"
)

var fleetSizes = []int{5, 4, 3, 2, 1}

type battleshipGame struct {
	size       int
	ships      int
	spectators bool
	players    []string
	boards     map[string]*battleship.Board
	current    int
}

func newBattleshipGame(settings map[string]any) (game, error) {
	size := settingInt(settings, "board_size", 10)
	ships := settingInt(settings, "ship_count", 5)
	if size < 5 || size > 26 {
		return nil, fmt.Errorf("board size %d out of range 5-26", size)
	}
	if ships < 1 || ships > len(fleetSizes) {
		return nil, fmt.Errorf("ship count %d out of range 1-%d", ships, len(fleetSizes))
	}
	return &battleshipGame{
		size:       size,
		ships:      ships,
		spectators: settingBool(settings, "allow_spec", true),
		boards:     map[string]*battleship.Board{},
	}, nil
}

func (b *battleshipGame) newBoard() *battleship.Board {
	board := &battleship.Board{Tiles: make([][]battleship.Tile, b.size)}
	for x := range board.Tiles {
		board.Tiles[x] = make([]battleship.Tile, b.size)
	}
	for _, s := range fleetSizes[:b.ships] {
		board.Ships = append(board.Ships, battleship.Ship{Size: s, Direction: battleship.Horizontal})
	}
	return board
}

func (b *battleshipGame) Join(name string) error {
	if contains(b.players, name) {
		return nil
	}
	if len(b.players) < 2 {
		b.players = append(b.players, name)
		b.boards[name] = b.newBoard()
		return nil
	}
	if !b.spectators {
		return fmt.Errorf("room is full")
	}
	return nil
}

func (b *battleshipGame) Players() []string { return append([]string(nil), b.players...) }

func (b *battleshipGame) MaxUsers() int {
	if b.spectators {
		return 10
	}
	return 2
}

func (b *battleshipGame) placing() bool {
	if len(b.players) < 2 {
		return true
	}
	for _, board := range b.boards {
		for _, s := range board.Ships {
			if !s.Placed {
				return true
			}
		}
	}
	return false
}

func sunkAll(board *battleship.Board) bool {
	for _, s := range board.Ships {
		if !s.Sunk {
			return false
		}
	}
	return len(board.Ships) > 0
}

func (b *battleshipGame) winner() string {
	if b.placing() {
		return ""
	}
	for i, p := range b.players {
		if sunkAll(b.boards[b.players[1-i]]) {
			return p
		}
	}
	return ""
}

func (b *battleshipGame) opponent(name string) string {
	for _, p := range b.players {
		if p != name {
			return p
		}
	}
	return ""
}

func (b *battleshipGame) state() string {
	switch w := b.winner(); {
	case w != "":
		return w + " wins"
	case len(b.players) < 2:
		return "Waiting for opponent"
	case b.placing():
		return "Placing ships"
	}
	return "Playing"
}

// hidden is board as the opponent sees it: shots only, ships unknown until
// they sink.
func hidden(board *battleship.Board) battleship.Board {
	out := battleship.Board{Tiles: board.Tiles, Ships: make([]battleship.Ship, len(board.Ships))}
	for i, s := range board.Ships {
		if s.Sunk {
			out.Ships[i] = s
			continue
		}
		out.Ships[i] = battleship.Ship{Size: s.Size, Placed: s.Placed, Direction: battleship.Horizontal}
	}
	return out
}

type battleshipState struct {
	Board           battleship.Board `json:"board"`
	EnemyBoard      battleship.Board `json:"enemy_board"`
	State           string           `json:"state"`
	CurrentPlayer   *member          `json:"current_player"`
	AllowPlaceShips bool             `json:"allow_place_ships"`
	BoardSize       int              `json:"board_size"`
	YourTurn        bool             `json:"your_turn"`
	Version         uint64           `json:"version"`
}

type member struct {
	Username string `json:"username"`
}

func (b *battleshipGame) State(viewer string, version uint64, _ time.Time) any {
	st := battleshipState{
		State:           b.state(),
		AllowPlaceShips: b.placing(),
		BoardSize:       b.size,
		Version:         version,
	}
	own, foe := viewer, b.opponent(viewer)
	if !contains(b.players, viewer) {
		own, foe = "", ""
		if len(b.players) > 0 {
			own = b.players[0]
		}
		if len(b.players) > 1 {
			foe = b.players[1]
		}
	}
	empty := b.newBoard()
	switch board, ok := b.boards[own]; {
	case ok && own == viewer:
		st.Board = *board
	case ok:
		st.Board = hidden(board)
	default:
		st.Board = *empty
	}
	if board, ok := b.boards[foe]; ok {
		st.EnemyBoard = hidden(board)
	} else {
		st.EnemyBoard = hidden(empty)
	}
	if !st.AllowPlaceShips && b.winner() == "" {
		cur := b.players[b.current]
		st.CurrentPlayer = &member{Username: cur}
		st.YourTurn = cur == viewer
	}
	return st
}

type placement struct {
	X         int                  `json:"x"`
	Y         int                  `json:"y"`
	Direction battleship.Direction `json:"direction"`
	Size      int                  `json:"size"`
}

type battleshipMove struct {
	X           *int        `json:"x"`
	Y           *int        `json:"y"`
	PlacedShips []placement `json:"placed_ships"`
}

func (b *battleshipGame) Move(player string, raw json.RawMessage, _ time.Time) error {
	board, ok := b.boards[player]
	if !ok {
		return reject("spectators cannot move")
	}
	var m battleshipMove
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("bad battleship move: %w", err)
	}
	if len(m.PlacedShips) > 0 {
		for _, p := range m.PlacedShips {
			if err := b.place(board, p); err != nil {
				return err
			}
		}
		return nil
	}
	if m.X == nil || m.Y == nil {
		return fmt.Errorf("attack needs x and y")
	}
	return b.attack(player, *m.X, *m.Y)
}

func (b *battleshipGame) place(board *battleship.Board, p placement) error {
	idx := -1
	for i, s := range board.Ships {
		if !s.Placed && s.Size == p.Size {
			idx = i
			break
		}
	}
	if idx < 0 {
		return reject("no unplaced ship of size %d", p.Size)
	}
	if p.Direction != battleship.Horizontal && p.Direction != battleship.Vertical {
		return reject("bad direction %q", p.Direction)
	}
	x, y := p.X, p.Y
	ship := battleship.Ship{Size: p.Size, Placed: true, X: &x, Y: &y, Direction: p.Direction}
	for i := 0; i < p.Size; i++ {
		cx, cy := x, y+i
		if p.Direction == battleship.Horizontal {
			cx, cy = x+i, y
		}
		if cx < 0 || cy < 0 || cx >= b.size || cy >= b.size {
			return reject("ship does not fit")
		}
		if _, taken := board.ShipAt(cx, cy); taken {
			return reject("ships overlap")
		}
	}
	board.Ships[idx] = ship
	return nil
}

func (b *battleshipGame) attack(player string, x, y int) error {
	switch {
	case b.placing():
		return reject("ships are still being placed")
	case b.winner() != "":
		return reject("the game is over")
	case b.players[b.current] != player:
		return reject("not your turn")
	case x < 0 || y < 0 || x >= b.size || y >= b.size:
		return reject("(%d, %d) is off the board", x, y)
	}
	target := b.boards[b.opponent(player)]
	if target.Tiles[x][y] != battleship.TileEmpty {
		return reject("(%d, %d) was already attacked", x, y)
	}
	idx, hit := target.ShipAt(x, y)
	if !hit {
		target.Tiles[x][y] = battleship.TileMiss
		b.current = 1 - b.current
		return nil
	}
	target.Tiles[x][y] = battleship.TileHit
	s := target.Ships[idx]
	sunk := true
	for i := 0; i < s.Size; i++ {
		cx, cy := *s.X, *s.Y+i
		if s.Direction == battleship.Horizontal {
			cx, cy = *s.X+i, *s.Y
		}
		if target.Tiles[cx][cy] != battleship.TileHit {
			sunk = false
		}
	}
	target.Ships[idx].Sunk = sunk
	b.current = 1 - b.current
	return nil
}

func (b *battleshipGame) Timers(time.Time) []int { return nil }

func (b *battleshipGame) Clone() (game, error) {
	data, err := json.Marshal(b.boards)
	if err != nil {
		return nil, err
	}
	cp := *b
	cp.players = b.Players()
	cp.boards = map[string]*battleship.Board{}
	if err := json.Unmarshal(data, &cp.boards); err != nil {
		return nil, err
	}
	return &cp, nil
}
