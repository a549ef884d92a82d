// Package menu holds the blocking full-screen pickers and prompts used
// between rooms: server list, room list, saved games, text entry.
package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/input"
	"roomviewer/internal/render"
)

// ErrCancelled is returned when the user backs out of a menu.
var ErrCancelled = errors.New("menu: cancelled")

var (
	titleStyle     = tcell.StyleDefault.Foreground(tcell.NewRGBColor(180, 100, 255)).Bold(true)
	normalStyle    = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	dimStyle       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	highlightStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.NewRGBColor(180, 100, 255))
)

// Pick shows items and blocks until the user chooses one, returning its
// index. Long lists scroll.
func Pick(ctx context.Context, scr tcell.Screen, keys input.KeySource, title string, items []string) (int, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("pick %q: no items", title)
	}
	selected := 0
	for {
		drawPick(scr, title, items, selected)
		ev, ok := keys.WaitKey(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			return 0, ErrCancelled
		}
		switch ev.Key() {
		case tcell.KeyUp:
			selected = (selected - 1 + len(items)) % len(items)
		case tcell.KeyDown:
			selected = (selected + 1) % len(items)
		case tcell.KeyEnter:
			return selected, nil
		case tcell.KeyEscape:
			return 0, ErrCancelled
		case tcell.KeyRune:
			switch r := ev.Rune(); {
			case r == 'k' || r == 'K':
				selected = (selected - 1 + len(items)) % len(items)
			case r == 'j' || r == 'J':
				selected = (selected + 1) % len(items)
			case r == 'q' || r == 'Q':
				return 0, ErrCancelled
			case r >= '1' && r <= '9':
				if idx := int(r - '1'); idx < len(items) {
					return idx, nil
				}
			}
		}
	}
}

func drawPick(scr tcell.Screen, title string, items []string, selected int) {
	scr.Clear()
	w, h := scr.Size()
	render.PutText(scr, render.Centered(w, title), 1, title, titleStyle)

	startY := 3
	visible := h - startY - 2
	if visible < 1 {
		visible = 1
	}
	first := 0
	if selected >= visible {
		first = selected - visible + 1
	}
	for i := first; i < len(items) && i-first < visible; i++ {
		prefix := "  "
		style := normalStyle
		if i == selected {
			prefix = "► "
			style = highlightStyle
		}
		line := prefix + items[i]
		if i < 9 {
			line = fmt.Sprintf("%s[%d] %s", prefix, i+1, items[i])
		}
		render.PutTextMax(scr, 2, startY+i-first, w-4, line, style)
	}
	hint := "[j/k or ↑/↓] Navigate   [1-9] Quick-select   [Enter] Confirm   [Esc] Back"
	render.PutText(scr, render.Centered(w, hint), h-1, hint, dimStyle)
	scr.Show()
}

// Prompt asks for a line of text. Secret input is echoed as asterisks.
// Enter accepts, Esc cancels.
func Prompt(ctx context.Context, scr tcell.Screen, keys input.KeySource, title, label string, secret bool) (string, error) {
	var value []rune
	for {
		drawPrompt(scr, title, label, value, secret)
		ev, ok := keys.WaitKey(ctx)
		if !ok {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			return "", ErrCancelled
		}
		switch ev.Key() {
		case tcell.KeyEnter:
			return string(value), nil
		case tcell.KeyEscape:
			return "", ErrCancelled
		case tcell.KeyBackspace, tcell.KeyBackspace2:
			if len(value) > 0 {
				value = value[:len(value)-1]
			}
		case tcell.KeyRune:
			value = append(value, ev.Rune())
		}
	}
}

func drawPrompt(scr tcell.Screen, title, label string, value []rune, secret bool) {
	scr.Clear()
	w, h := scr.Size()
	render.PutText(scr, render.Centered(w, title), 1, title, titleStyle)
	shown := string(value)
	if secret {
		shown = ""
		for range value {
			shown += "*"
		}
	}
	x := render.PutText(scr, 2, 3, label+": ", normalStyle)
	x = render.PutTextMax(scr, x, 3, w-x-1, shown, normalStyle.Bold(true))
	scr.SetContent(x, 3, '_', nil, dimStyle)
	hint := "[Enter] Confirm   [Esc] Back"
	render.PutText(scr, render.Centered(w, hint), h-1, hint, dimStyle)
	scr.Show()
}

// Notice shows a message until any key is pressed.
func Notice(ctx context.Context, scr tcell.Screen, keys input.KeySource, title, text string) {
	scr.Clear()
	w, h := scr.Size()
	render.PutText(scr, render.Centered(w, title), 1, title, titleStyle)
	render.PutTextMax(scr, 2, 3, w-4, text, normalStyle)
	hint := "press any key"
	render.PutText(scr, render.Centered(w, hint), h-1, hint, dimStyle)
	scr.Show()
	keys.WaitKey(ctx)
}

// Confirm asks a yes/no question; only 'y' or Enter count as yes.
func Confirm(ctx context.Context, scr tcell.Screen, keys input.KeySource, question string) bool {
	scr.Clear()
	w, h := scr.Size()
	render.PutText(scr, render.Centered(w, question), h/2, question, titleStyle)
	hint := "[y/Enter] Yes   [any other key] No"
	render.PutText(scr, render.Centered(w, hint), h/2+2, hint, dimStyle)
	scr.Show()
	ev, ok := keys.WaitKey(ctx)
	if !ok {
		return false
	}
	return ev.Key() == tcell.KeyEnter || ev.Rune() == 'y' || ev.Rune() == 'Y'
}
