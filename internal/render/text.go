// Package render holds the tcell drawing helpers shared by the room viewers,
// the menus and the option editor.
package render

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// PutText writes s starting at (x, y) and returns the column after the last
// glyph. It stops at the right edge of the screen.
func PutText(scr tcell.Screen, x, y int, s string, st tcell.Style) int {
	sw, _ := scr.Size()
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			w = 1
		}
		if x+w > sw {
			break
		}
		scr.SetContent(x, y, r, nil, st)
		x += w
	}
	return x
}

// PutTextMax is PutText limited to limit columns.
func PutTextMax(scr tcell.Screen, x, y, limit int, s string, st tcell.Style) int {
	if limit <= 0 {
		return x
	}
	return PutText(scr, x, y, runewidth.Truncate(s, limit, ""), st)
}

// PutGlyph draws a single glyph (ASCII, chess symbol or multi-rune emoji) at
// (x, y) and returns its width in columns.
func PutGlyph(scr tcell.Screen, x, y int, glyph string, style tcell.Style) int {
	runes := []rune(glyph)
	if len(runes) == 0 {
		return 0
	}
	scr.SetContent(x, y, runes[0], runes[1:], style)
	w := runewidth.StringWidth(glyph)
	if w == 2 {
		// Fill the second column to avoid rendering artifacts.
		scr.SetContent(x+1, y, ' ', nil, style)
	}
	if w == 0 {
		w = 1
	}
	return w
}

// TextWidth is the display width of s.
func TextWidth(s string) int { return runewidth.StringWidth(s) }

// PadRight pads s with spaces to width columns.
func PadRight(s string, width int) string { return runewidth.FillRight(s, width) }

// Centered returns the x that centers s on a screen of width sw.
func Centered(sw int, s string) int {
	x := (sw - TextWidth(s)) / 2
	if x < 0 {
		return 0
	}
	return x
}
