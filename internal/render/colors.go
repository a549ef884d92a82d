package render

import (
	"log/slog"

	"github.com/gdamore/tcell/v2"
)

// Palette holds the styles shared by every viewer so rooms look alike.
type Palette struct {
	Text      tcell.Style
	Dim       tcell.Style
	Title     tcell.Style
	Border    tcell.Style
	Cursor    tcell.Style // cursor over a cell that can be acted on
	CursorBad tcell.Style // cursor over a cell that cannot
	Selected  tcell.Style // origin of a half-built action
	Pending   tcell.Style // speculative, not yet confirmed by the server
	Online    tcell.Style
	Offline   tcell.Style
	Warning   tcell.Style
	Error     tcell.Style
	LightSq   tcell.Style
	DarkSq    tcell.Style
}

// DefaultPalette is used by all viewers.
var DefaultPalette = Palette{
	Text:      tcell.StyleDefault.Foreground(tcell.ColorWhite),
	Dim:       tcell.StyleDefault.Foreground(tcell.ColorGray),
	Title:     tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true),
	Border:    tcell.StyleDefault.Foreground(tcell.ColorSteelBlue),
	Cursor:    tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGreen),
	CursorBad: tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorIndianRed),
	Selected:  tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGold),
	Pending:   tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightSkyBlue),
	Online:    tcell.StyleDefault.Foreground(tcell.ColorGreen),
	Offline:   tcell.StyleDefault.Foreground(tcell.ColorRed),
	Warning:   tcell.StyleDefault.Foreground(tcell.ColorOrange),
	Error:     tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	LightSq:   tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorBurlyWood),
	DarkSq:    tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSaddleBrown),
}

// OnlineStyle picks the roster style for a member.
func (p Palette) OnlineStyle(online bool) tcell.Style {
	if online {
		return p.Online
	}
	return p.Offline
}

// ClockStyle colours a countdown: white with time to spare, orange under
// thirty seconds, red when it ran out.
func (p Palette) ClockStyle(seconds int) tcell.Style {
	switch {
	case seconds > 30:
		return p.Text
	case seconds > 0:
		return p.Warning
	}
	return p.Error
}

// LevelStyle colours a status message by its log level.
func (p Palette) LevelStyle(level slog.Level) tcell.Style {
	switch {
	case level >= slog.LevelError:
		return p.Error
	case level >= slog.LevelWarn:
		return p.Warning
	}
	return p.Text
}
