// Package battleship is the battleship room viewer: ship placement, then
// alternating attacks on the opponent's board.
package battleship

import (
	"encoding/json"
	"fmt"

	"roomviewer/internal/grid"
)

// Tile is the state of one board square.
type Tile int

const (
	TileEmpty Tile = 0
	TileHit   Tile = 1
	TileMiss  Tile = 2
	// TileTargeted marks an attack sent but not yet answered. The server
	// never sends it.
	TileTargeted Tile = 3
)

// Direction is a ship's orientation. Horizontal ships extend along x.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// Flip returns the other direction.
func (d Direction) Flip() Direction {
	if d == Horizontal {
		return Vertical
	}
	return Horizontal
}

// ShipTypes names ships by size.
var ShipTypes = map[int]string{
	5: "Carrier",
	4: "Battleship",
	3: "Cruiser",
	2: "Submarine",
	1: "Destroyer",
}

// Ship is one ship of a fleet. Position fields are nil until the ship is
// placed, and stay nil on the opponent's board until it sinks.
type Ship struct {
	Size      int       `json:"size"`
	Sunk      bool      `json:"sunk"`
	Placed    bool      `json:"placed"`
	X         *int      `json:"x"`
	Y         *int      `json:"y"`
	Direction Direction `json:"direction"`
}

// Name is the ship's type name.
func (s Ship) Name() string {
	if n, ok := ShipTypes[s.Size]; ok {
		return n
	}
	return fmt.Sprintf("Ship(%d)", s.Size)
}

// Covers reports whether the ship lies on (x, y).
func (s Ship) Covers(x, y int) bool {
	if s.X == nil || s.Y == nil {
		return false
	}
	if s.Direction == Horizontal {
		return *s.Y == y && x >= *s.X && x < *s.X+s.Size
	}
	return *s.X == x && y >= *s.Y && y < *s.Y+s.Size
}

func (s Ship) clone() Ship {
	c := s
	if s.X != nil {
		x := *s.X
		c.X = &x
	}
	if s.Y != nil {
		y := *s.Y
		c.Y = &y
	}
	return c
}

// Board is one player's grid and fleet. Tiles are indexed [x][y].
type Board struct {
	Tiles [][]Tile `json:"board"`
	Ships []Ship   `json:"ships"`
}

// Tile returns the tile at (x, y), or TileEmpty out of range.
func (b Board) Tile(x, y int) Tile {
	if x < 0 || x >= len(b.Tiles) || y < 0 || y >= len(b.Tiles[x]) {
		return TileEmpty
	}
	return b.Tiles[x][y]
}

// ShipAt returns the index of the ship covering (x, y).
func (b Board) ShipAt(x, y int) (int, bool) {
	for i, s := range b.Ships {
		if s.Covers(x, y) {
			return i, true
		}
	}
	return 0, false
}

func (b Board) clone() Board {
	c := Board{
		Tiles: make([][]Tile, len(b.Tiles)),
		Ships: make([]Ship, len(b.Ships)),
	}
	for i, col := range b.Tiles {
		c.Tiles[i] = append([]Tile(nil), col...)
	}
	for i, s := range b.Ships {
		c.Ships[i] = s.clone()
	}
	return c
}

func (b Board) allSunk() bool {
	if len(b.Ships) == 0 {
		return false
	}
	for _, s := range b.Ships {
		if !s.Sunk {
			return false
		}
	}
	return true
}

// Snapshot is one server state of a battleship room.
type Snapshot struct {
	Own, Enemy    Board
	State         string
	CurrentPlayer string
	YourTurn      bool
	PlaceShips    bool
	Size          int
}

// NextUnplaced returns the first ship of the user's fleet still to place.
func (s Snapshot) NextUnplaced() (int, bool) {
	for i, sh := range s.Own.Ships {
		if !sh.Placed {
			return i, true
		}
	}
	return 0, false
}

// Winner returns "you", "opponent" or "" while the game goes on.
func (s Snapshot) Winner() string {
	switch {
	case s.PlaceShips:
		return ""
	case s.Enemy.allSunk():
		return "you"
	case s.Own.allSunk():
		return "opponent"
	}
	return ""
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Own = s.Own.clone()
	c.Enemy = s.Enemy.clone()
	return c
}

// Coord converts board (x, y) to a display cell.
func Coord(x, y int) grid.Coord { return grid.Coord{Row: y, Col: x} }

type wireState struct {
	Board         Board  `json:"board"`
	EnemyBoard    Board  `json:"enemy_board"`
	State         string `json:"state"`
	CurrentPlayer *struct {
		Username string `json:"username"`
	} `json:"current_player"`
	AllowPlaceShips bool   `json:"allow_place_ships"`
	BoardSize       int    `json:"board_size"`
	YourTurn        *bool  `json:"your_turn,omitempty"`
	Version         uint64 `json:"version,omitempty"`
}

// DecodeState parses get_state. When the server does not say whose turn it
// is, it is the user's turn if they are the current player.
func DecodeState(raw json.RawMessage, you string) (Snapshot, uint64, error) {
	var w wireState
	if err := json.Unmarshal(raw, &w); err != nil {
		return Snapshot{}, 0, err
	}
	s := Snapshot{
		Own:        w.Board,
		Enemy:      w.EnemyBoard,
		State:      w.State,
		PlaceShips: w.AllowPlaceShips,
		Size:       w.BoardSize,
	}
	if w.CurrentPlayer != nil {
		s.CurrentPlayer = w.CurrentPlayer.Username
	}
	if s.Size <= 0 {
		s.Size = len(s.Own.Tiles)
	}
	if s.Size <= 0 {
		return Snapshot{}, 0, fmt.Errorf("board size missing")
	}
	switch {
	case w.YourTurn != nil:
		s.YourTurn = *w.YourTurn
	default:
		s.YourTurn = you != "" && s.CurrentPlayer == you
	}
	return s, w.Version, nil
}

// Kind tells attacks from placements.
type Kind uint8

const (
	Attack Kind = iota
	Place
)

// Action is an attack on the opponent's board or the placement of one of
// the user's ships.
type Action struct {
	Kind      Kind
	X, Y      int
	Ship      int // fleet index, placements only
	Size      int
	Direction Direction
}

// At is the action's display cell.
func (a Action) At() grid.Coord { return Coord(a.X, a.Y) }

func (a Action) String() string {
	if a.Kind == Attack {
		return fmt.Sprintf("attack (%d, %d)", a.X, a.Y)
	}
	return fmt.Sprintf("place ship %d at (%d, %d) %s", a.Ship, a.X, a.Y, a.Direction)
}

type placedShip struct {
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Direction Direction `json:"direction"`
	Size      int       `json:"size"`
}

type attackMove struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type placeMove struct {
	PlacedShips []placedShip `json:"placed_ships"`
}

// Encode returns the make_move payload.
func (a Action) Encode() any {
	if a.Kind == Attack {
		return attackMove{X: a.X, Y: a.Y}
	}
	return placeMove{PlacedShips: []placedShip{{X: a.X, Y: a.Y, Direction: a.Direction, Size: a.Size}}}
}

type codec struct{ you string }

func (c codec) DecodeState(raw json.RawMessage) (Snapshot, uint64, error) {
	return DecodeState(raw, c.you)
}

func (codec) EncodeMove(a Action) any { return a.Encode() }
