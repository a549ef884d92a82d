package render

import "github.com/gdamore/tcell/v2"

// Rect is a screen rectangle.
type Rect struct {
	X, Y, W, H int
}

// Inner returns the area inside a one-cell border.
func (r Rect) Inner() Rect {
	return Rect{X: r.X + 1, Y: r.Y + 1, W: r.W - 2, H: r.H - 2}
}

// Box draws a single-line border around r with an optional title on the top
// edge and clears its interior.
func Box(scr tcell.Screen, r Rect, title string, st tcell.Style) {
	if r.W < 2 || r.H < 2 {
		return
	}
	right, bottom := r.X+r.W-1, r.Y+r.H-1
	for x := r.X + 1; x < right; x++ {
		scr.SetContent(x, r.Y, tcell.RuneHLine, nil, st)
		scr.SetContent(x, bottom, tcell.RuneHLine, nil, st)
	}
	for y := r.Y + 1; y < bottom; y++ {
		scr.SetContent(r.X, y, tcell.RuneVLine, nil, st)
		scr.SetContent(right, y, tcell.RuneVLine, nil, st)
		for x := r.X + 1; x < right; x++ {
			scr.SetContent(x, y, ' ', nil, tcell.StyleDefault)
		}
	}
	scr.SetContent(r.X, r.Y, tcell.RuneULCorner, nil, st)
	scr.SetContent(right, r.Y, tcell.RuneURCorner, nil, st)
	scr.SetContent(r.X, bottom, tcell.RuneLLCorner, nil, st)
	scr.SetContent(right, bottom, tcell.RuneLRCorner, nil, st)
	if title != "" && r.W > 4 {
		PutTextMax(scr, r.X+2, r.Y, r.W-4, " "+title+" ", st.Bold(true))
	}
}

// HLine draws a horizontal rule across the whole screen at row y.
func HLine(scr tcell.Screen, y int, color tcell.Color) {
	w, _ := scr.Size()
	style := tcell.StyleDefault.Foreground(color)
	for x := 0; x < w; x++ {
		scr.SetContent(x, y, '─', nil, style)
	}
}

// Cell is one table entry with its own style.
type Cell struct {
	Text  string
	Style tcell.Style
}

// Table draws a header row and body rows inside r, columns sized to their
// widest entry. Rows that do not fit are dropped.
func Table(scr tcell.Screen, r Rect, header []string, rows [][]Cell) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = TextWidth(h)
	}
	for _, row := range rows {
		for i, c := range row {
			if i < len(widths) && TextWidth(c.Text) > widths[i] {
				widths[i] = TextWidth(c.Text)
			}
		}
	}
	bold := tcell.StyleDefault.Bold(true)
	y := r.Y
	x := r.X
	for i, h := range header {
		PutTextMax(scr, x, y, r.X+r.W-x, h, bold)
		x += widths[i] + 2
	}
	for _, row := range rows {
		y++
		if y >= r.Y+r.H {
			return
		}
		x = r.X
		for i, c := range row {
			if i >= len(widths) {
				break
			}
			PutTextMax(scr, x, y, r.X+r.W-x, c.Text, c.Style)
			x += widths[i] + 2
		}
	}
}
