// Package input turns terminal key presses into the small set of events the
// viewers understand.
package input

import "github.com/gdamore/tcell/v2"

// Event represents a user-requested viewer action.
type Event uint8

const (
	EventNone Event = iota
	EventUp
	EventDown
	EventLeft
	EventRight
	EventSelect
	EventSubmit
	EventCancel
	EventRefresh
	EventRotate
	EventSave
	EventQuit
)

func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventUp:
		return "up"
	case EventDown:
		return "down"
	case EventLeft:
		return "left"
	case EventRight:
		return "right"
	case EventSelect:
		return "select"
	case EventSubmit:
		return "submit"
	case EventCancel:
		return "cancel"
	case EventRefresh:
		return "refresh"
	case EventRotate:
		return "rotate"
	case EventSave:
		return "save"
	case EventQuit:
		return "quit"
	}
	return "unknown"
}

// Directional reports whether e moves the cursor.
func (e Event) Directional() bool {
	return e >= EventUp && e <= EventRight
}

// KeyToEvent maps a tcell key event to a viewer event.
func KeyToEvent(ev *tcell.EventKey) Event {
	switch ev.Key() {
	case tcell.KeyUp:
		return EventUp
	case tcell.KeyDown:
		return EventDown
	case tcell.KeyRight:
		return EventRight
	case tcell.KeyLeft:
		return EventLeft
	case tcell.KeyEnter:
		return EventSubmit
	case tcell.KeyEscape, tcell.KeyBackspace, tcell.KeyBackspace2:
		return EventCancel
	case tcell.KeyCtrlC:
		return EventQuit
	}
	switch ev.Rune() {
	case ' ':
		return EventSelect
	case 'k', 'K':
		return EventUp
	case 'j', 'J':
		return EventDown
	case 'l', 'L':
		return EventRight
	case 'h', 'H':
		return EventLeft
	case 'r', 'R':
		return EventRefresh
	case 'e', 'E':
		return EventRotate
	case 's', 'S':
		return EventSave
	case 'q', 'Q':
		return EventQuit
	}
	return EventNone
}

// Source yields at most one event per call and never blocks.
type Source interface {
	Poll() (Event, bool)
}
