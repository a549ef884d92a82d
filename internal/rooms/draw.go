package rooms

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/render"
	"roomviewer/internal/session"
	"roomviewer/internal/transport"
)

// DrawRoster draws a boxed table of members with their online state. The
// user's own row is marked.
func DrawRoster(scr tcell.Screen, r render.Rect, title string, members []transport.Member, you string) {
	pal := render.DefaultPalette
	render.Box(scr, r, title, pal.Border)
	rows := make([][]render.Cell, 0, len(members))
	for _, m := range members {
		name := m.Username
		if m.Username == you {
			name += " (you)"
		}
		status := "Offline"
		if m.Online {
			status = "Online"
		}
		rows = append(rows, []render.Cell{
			{Text: name, Style: pal.Text},
			{Text: status, Style: pal.OnlineStyle(m.Online)},
		})
	}
	if len(rows) == 0 {
		rows = append(rows, []render.Cell{{Text: "nobody", Style: pal.Dim}})
	}
	render.Table(scr, r.Inner(), []string{"Name", "Status"}, rows)
}

// StatusLine is the first line of the status bar for any room.
func StatusLine[S, A, B any](v session.View[S, A, B], room string) string {
	line := fmt.Sprintf("%s | %s", room, v.Phase)
	if v.HasPending {
		line += fmt.Sprintf(" | move %s", v.Pending.Status)
	}
	return line
}

// DrawFooter draws the status bar and rings the bell when the server sent
// a new snapshot.
func DrawFooter[S, A, B any](scr tcell.Screen, v session.View[S, A, B], room, help string) {
	render.DrawStatus(scr, StatusLine(v, room), help, v.Message, render.DefaultPalette.LevelStyle(v.MessageLevel))
	if v.Refreshed {
		_ = scr.Beep()
	}
}
