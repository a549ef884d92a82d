// roomviewer-ssh serves the room viewer over SSH: every session gets its
// own client, its own data directory and its own screen.
//
//	go build -o roomviewer-ssh ./cmd/server
//	./roomviewer-ssh [-ssh-port 2222] [-key server_host_key] [-host gameserver]
//
// Connect with:
//
//	ssh -t -p 2222 localhost
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	"unicode"
	"unicode/utf8"

	gossh "github.com/gliderlabs/ssh"
	xssh "golang.org/x/crypto/ssh"

	"roomviewer/internal/app"
	"roomviewer/internal/config"
	"roomviewer/internal/input"
	"roomviewer/internal/logging"
	internalssh "roomviewer/internal/ssh"
	"roomviewer/internal/store"
)

const maxNameBytes = 16

// allowedTerms are the terminal types a session may ask for. Anything else
// is refused rather than handed to the terminfo lookup.
var allowedTerms = map[string]bool{
	"xterm":                 true,
	"xterm-256color":        true,
	"screen":                true,
	"screen-256color":       true,
	"tmux":                  true,
	"tmux-256color":         true,
	"linux":                 true,
	"vt100":                 true,
	"vt220":                 true,
	"rxvt-unicode-256color": true,
}

// sanitizeName drops control characters from an SSH user name and cuts it
// to maxNameBytes without splitting a rune.
func sanitizeName(s string) string {
	out := make([]byte, 0, maxNameBytes)
	for _, r := range s {
		if unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		if len(out)+utf8.RuneLen(r) > maxNameBytes {
			break
		}
		out = utf8.AppendRune(out, r)
	}
	return string(out)
}

// userDir is the per-user data directory below base.
func userDir(base, name string) string {
	if name == "" || name == "." || name == ".." {
		name = "anonymous"
	}
	return filepath.Join(base, "ssh", url.PathEscape(name))
}

type gateway struct {
	cfg     config.Config
	dataDir string
	logger  *slog.Logger
}

func (g *gateway) handle(s gossh.Session) {
	name := sanitizeName(s.User())
	logger := g.logger.With("ssh_user", name, "remote", s.RemoteAddr().String())

	tty, err := internalssh.NewTty(s)
	if err != nil {
		fmt.Fprintln(s, "This client needs a terminal. Connect with: ssh -t <host>")
		return
	}
	if !allowedTerms[tty.Term()] {
		logger.Warn("refusing terminal", "term", tty.Term())
		fmt.Fprintf(s, "Unsupported terminal %q. Try TERM=xterm-256color.\n", tty.Term())
		return
	}
	st, err := store.Open(userDir(g.dataDir, name))
	if err != nil {
		logger.Error("open user store", "error", err)
		fmt.Fprintln(s, "Internal error.")
		return
	}
	scr, err := internalssh.NewScreen(tty)
	if err != nil {
		logger.Error("screen setup", "error", err)
		fmt.Fprintf(s, "Terminal setup failed: %v\n", err)
		return
	}
	defer scr.Fini()

	logger.Info("session started", "term", tty.Term())
	start := time.Now()
	err = app.New(g.cfg, scr, input.NewScreenSource(scr), st, logger).Run(s.Context())
	logger.Info("session ended", "duration", time.Since(start).Round(time.Second), "error", err)
}

func main() {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	port := flag.Int("ssh-port", 2222, "SSH listen port")
	keyFile := flag.String("key", config.EnvOrDefault("ROOMVIEWER_SSH_KEY", "server_host_key"), "PEM host key (generated if absent)")
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	logger := logging.New(os.Stderr, cfg.LogLevel)
	dataDir := cfg.DataDir
	if dataDir == "" {
		d, err := store.DataDir()
		if err != nil {
			logger.Error("resolve data dir", "error", err)
			os.Exit(1)
		}
		dataDir = d
	}

	signer, err := loadOrCreateHostKey(*keyFile, logger)
	if err != nil {
		logger.Error("host key", "error", err)
		os.Exit(1)
	}
	g := &gateway{cfg: cfg, dataDir: dataDir, logger: logger}
	srv := &gossh.Server{
		Addr:        fmt.Sprintf(":%d", *port),
		Handler:     g.handle,
		PtyCallback: func(gossh.Context, gossh.Pty) bool { return true },
		HostSigners: []gossh.Signer{signer},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("ssh gateway listening", "port", *port, "game_server", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != gossh.ErrServerClosed {
		logger.Error("ssh server", "error", err)
		os.Exit(1)
	}
}

// loadOrCreateHostKey reads a PEM private key from path, or generates an
// ed25519 key and writes it there.
func loadOrCreateHostKey(path string, logger *slog.Logger) (gossh.Signer, error) {
	if data, err := os.ReadFile(path); err == nil {
		if signer, err := xssh.ParsePrivateKey(data); err == nil {
			logger.Info("loaded host key", "path", path)
			return signer, nil
		}
	}
	logger.Info("generating host key", "path", path)
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := xssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	block, err := xssh.MarshalPrivateKey(key, "roomviewer gateway")
	if err != nil {
		return nil, fmt.Errorf("encode host key: %w", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		logger.Warn("host key not saved", "path", path, "error", err)
	}
	return signer, nil
}
