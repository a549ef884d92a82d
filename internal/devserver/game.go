package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// errRejected marks a move the game refuses. It is reported to the client
// as {"success": false} rather than as an HTTP error.
var errRejected = errors.New("move rejected")

func reject(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errRejected, fmt.Sprintf(format, args...))
}

// game is one room type's rules on the server side.
type game interface {
	// Join seats name as a player if a seat is free, otherwise as a
	// spectator. An error refuses the user.
	Join(name string) error
	Players() []string
	MaxUsers() int
	// State is the get_state reply for viewer.
	State(viewer string, version uint64, now time.Time) any
	Move(player string, raw json.RawMessage, now time.Time) error
	// Timers returns the seconds left per player, or nil.
	Timers(now time.Time) []int
	Clone() (game, error)
}

type gameFactory func(settings map[string]any) (game, error)

var gameTypes = map[string]gameFactory{
	"Chess":      newChessGame,
	"Battleship": newBattleshipGame,
}

// GameTypes lists the room types the server hosts.
func GameTypes() []string {
	names := make([]string, 0, len(gameTypes))
	for n := range gameTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func settingInt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func settingBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

func settingString(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return def
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
