// Package ssh lets a tcell screen run over a gliderlabs SSH session.
package ssh

import (
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
)

// ErrNoPTY is returned for sessions opened without a terminal.
var ErrNoPTY = errors.New("session has no pty")

// Tty is a tcell.Tty reading keys from and writing frames to one session.
type Tty struct {
	sess    gossh.Session
	term    string
	windows <-chan gossh.Window

	mu       sync.Mutex
	size     gossh.Window
	onResize func()
	watching bool
}

// NewTty wraps sess, which must have requested a pty.
func NewTty(sess gossh.Session) (*Tty, error) {
	pty, windows, ok := sess.Pty()
	if !ok {
		return nil, ErrNoPTY
	}
	term := pty.Term
	if term == "" {
		for _, kv := range sess.Environ() {
			if v, ok := strings.CutPrefix(kv, "TERM="); ok {
				term = v
			}
		}
	}
	return &Tty{sess: sess, term: term, windows: windows, size: pty.Window}, nil
}

// Term is the terminal type the client asked for.
func (t *Tty) Term() string { return t.term }

func (t *Tty) Read(b []byte) (int, error)  { return t.sess.Read(b) }
func (t *Tty) Write(b []byte) (int, error) { return t.sess.Write(b) }
func (t *Tty) Close() error                { return t.sess.Close() }

// Start, Stop and Drain have nothing to do: the channel is already raw and
// its lifetime belongs to the SSH handler.
func (t *Tty) Start() error { return nil }
func (t *Tty) Stop() error  { return nil }
func (t *Tty) Drain() error { return nil }

// WindowSize implements tcell.Tty.
func (t *Tty) WindowSize() (tcell.WindowSize, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tcell.WindowSize{Width: t.size.Width, Height: t.size.Height}, nil
}

// NotifyResize implements tcell.Tty. Window changes are consumed by a single
// goroutine that ends with the session.
func (t *Tty) NotifyResize(cb func()) {
	t.mu.Lock()
	t.onResize = cb
	start := !t.watching
	t.watching = true
	t.mu.Unlock()
	if start {
		go t.watch()
	}
}

func (t *Tty) watch() {
	for win := range t.windows {
		t.mu.Lock()
		t.size = win
		cb := t.onResize
		t.mu.Unlock()
		if cb != nil {
			cb()
		}
	}
}

// envMu serialises the TERM lookup tcell does while building a screen.
var envMu sync.Mutex

// NewScreen builds and initialises a screen on t for its terminal type.
func NewScreen(t *Tty) (tcell.Screen, error) {
	envMu.Lock()
	prev, had := os.LookupEnv("TERM")
	_ = os.Setenv("TERM", t.term)
	scr, err := tcell.NewTerminfoScreenFromTty(t)
	if had {
		_ = os.Setenv("TERM", prev)
	} else {
		_ = os.Unsetenv("TERM")
	}
	envMu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := scr.Init(); err != nil {
		return nil, err
	}
	return scr, nil
}
