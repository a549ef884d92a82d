package render

import "github.com/gdamore/tcell/v2"

// StatusHeight is the number of rows DrawStatus reserves at the bottom.
const StatusHeight = 4

// DrawStatus renders the status bar at the bottom of the screen: a separator,
// the status line, the help line and the transient message, if any.
func DrawStatus(scr tcell.Screen, status, help, message string, messageStyle tcell.Style) {
	sw, sh := scr.Size()
	y := sh - StatusHeight
	if y < 0 {
		return
	}
	HLine(scr, y, tcell.ColorGray)
	PutTextMax(scr, 0, y+1, sw, status, DefaultPalette.Text)
	PutTextMax(scr, 0, y+2, sw, help, DefaultPalette.Dim)
	if message != "" {
		PutTextMax(scr, 0, y+3, sw, message, messageStyle)
	}
}
