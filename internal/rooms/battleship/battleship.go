package battleship

import (
	"context"

	"roomviewer/internal/options"
	"roomviewer/internal/rooms"
)

// TypeName is the room type the server reports for battleship rooms.
const TypeName = "Battleship"

// CreationArgs are the settings a new battleship room is created with.
var CreationArgs = []options.Spec{
	{ID: "board_size", Name: "Board Size", Kind: options.KindInt, Default: 10, Cords: [2]int{0, 0}},
	{ID: "ship_count", Name: "Ship Count", Kind: options.KindInt, Default: 5, Cords: [2]int{0, 1}},
	{ID: "allow_spec", Name: "Allow Spectators", Kind: options.KindBool, Default: true, Cords: [2]int{0, 2}},
}

// Run shows the battleship room until the user leaves or the session dies.
func Run(ctx context.Context, o rooms.Options) error {
	return rooms.Run[Snapshot, Action](ctx, o, codec{you: o.Username}, Applier{}, Rules{}, NewRenderer(o.Screen, o.RoomName, o.Username))
}
