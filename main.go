// roomviewer is a terminal client for a multiplayer board-game server:
// it finds servers on the LAN, logs in, browses rooms and plays chess or
// battleship in a full-screen view.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"roomviewer/internal/app"
	"roomviewer/internal/config"
	"roomviewer/internal/input"
	"roomviewer/internal/logging"
	"roomviewer/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Default()
	cfg.Bind(flag.CommandLine)
	flag.Parse()

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	logger, closer, err := logging.Open(st.Dir(), cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	scr, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := scr.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	defer scr.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("client started", "data_dir", st.Dir())
	err = app.New(cfg, scr, input.NewScreenSource(scr), st, logger).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		logger.Error("client stopped", "error", err)
	}
	return err
}
