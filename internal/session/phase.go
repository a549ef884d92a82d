// Package session runs one room viewer: a fixed-rate loop that reads input,
// drives the reconcile engine, polls the server and renders a frame per tick.
package session

import (
	"context"
	"log/slog"

	"roomviewer/internal/grid"
	"roomviewer/internal/input"
	"roomviewer/internal/reconcile"
)

// Phase is where the loop is in the life of a room visit.
type Phase uint8

const (
	PhaseDisconnected Phase = iota
	PhaseAwaitingFirstSnapshot
	PhaseIdle
	PhaseSelecting
	PhasePendingConfirmation
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseAwaitingFirstSnapshot:
		return "awaiting first snapshot"
	case PhaseIdle:
		return "idle"
	case PhaseSelecting:
		return "selecting"
	case PhasePendingConfirmation:
		return "pending confirmation"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

// Rules is the game-specific knowledge the loop consults. The loop never
// decides legality itself.
type Rules[S, A any] interface {
	// Cells returns the cursor-reachable cells of snap.
	Cells(snap S) grid.Occupancy
	// CanSelect reports whether at may be the origin of a two-step action.
	CanSelect(snap S, at grid.Coord) bool
	// Immediate returns a single-step action for at (an attack, a ship
	// placement). Games without one return false.
	Immediate(snap S, at grid.Coord) (A, bool)
	// Propose builds the action for moving from origin to target.
	Propose(snap S, origin, target grid.Coord) (A, bool)
	IsLegal(snap S, action A) bool
	// Adjust reshapes a staged action after a cursor move or rotate key.
	Adjust(snap S, action A, ev input.Event, cursor grid.Coord) (A, bool)
	IsTerminal(snap S) bool
}

// View is everything a renderer needs for one frame.
type View[S, A, B any] struct {
	Phase       Phase
	Snapshot    S // speculative while Pending is set
	HasSnapshot bool
	Speculative bool
	Pending     reconcile.Pending[S, A]
	HasPending  bool
	Cursor      grid.Coord
	Origin      grid.Coord
	HasOrigin   bool
	CursorValid bool
	Sideband    B
	HasSideband bool
	Terminal    bool
	// Refreshed is set on the tick a new server snapshot arrived.
	Refreshed    bool
	Message      string
	MessageLevel slog.Level
	Tick         uint64
}

// Renderer draws a View. Render is called once per tick and must not block.
type Renderer[S, A, B any] interface {
	Render(v View[S, A, B])
}

// Saver persists the room on request.
type Saver interface {
	Save(ctx context.Context) (string, error)
}
