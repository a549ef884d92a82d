package chess

import (
	"context"

	"roomviewer/internal/options"
	"roomviewer/internal/rooms"
)

// TypeName is the room type the server reports for chess rooms.
const TypeName = "Chess"

// Variants the server can start.
var Variants = []string{"Standard", "Chess960", "Crazyhouse", "King of the Hill", "Three Check"}

// CreationArgs are the settings a new chess room is created with.
var CreationArgs = []options.Spec{
	{ID: "timers_enabled", Name: "Timers Enabled", Kind: options.KindBool, Default: true, Cords: [2]int{0, 0}},
	{ID: "time_added_per_move", Name: "Time Added Per Move", Kind: options.KindTime, Default: 10, Cords: [2]int{0, 1}},
	{ID: "white_time", Name: "White Time", Kind: options.KindTime, Default: 300, Cords: [2]int{0, 2}},
	{ID: "black_time", Name: "Black Time", Kind: options.KindTime, Default: 300, Cords: [2]int{0, 3}},
	{ID: "chess_variant", Name: "Chess Variant", Kind: options.KindList, Default: "Standard", Cords: [2]int{1, 0}, Choices: Variants},
	{ID: "starting_fen", Name: "Starting FEN", Kind: options.KindText, Default: "", Cords: [2]int{1, 1}},
	{ID: "allow_spectators", Name: "Allow Spectators", Kind: options.KindBool, Default: true, Cords: [2]int{1, 2}},
}

// Run shows the chess room until the user leaves or the session dies.
func Run(ctx context.Context, o rooms.Options) error {
	return rooms.Run[Snapshot, Move](ctx, o, codec{}, Applier{}, Rules{}, NewRenderer(o.Screen, o.RoomName, o.Username))
}
