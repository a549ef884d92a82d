// roomviewer-devserver is a small in-memory game server speaking the same
// REST and websocket protocol as the production one. It answers LAN
// discovery probes so clients find it without configuration.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"roomviewer/internal/config"
	"roomviewer/internal/devserver"
	"roomviewer/internal/discovery"
	"roomviewer/internal/logging"
)

func main() {
	port := flag.Int("port", config.DefaultServerPort, "HTTP listen port")
	discoveryPort := flag.Int("discovery-port", config.DefaultDiscoveryPort, "UDP discovery port (0 disables)")
	name := flag.String("name", config.EnvOrDefault("ROOMVIEWER_SERVER_NAME", "roomviewer dev server"), "name announced to clients")
	level := config.EnvOrDefault("ROOMVIEWER_LOG_LEVEL", "info")
	flag.StringVar(&level, "log-level", level, "debug, info, warn or error")
	flag.Parse()

	lvl, err := config.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(os.Stderr, lvl)
	srv := devserver.New(*name, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("game server listening", "port", *port, "server_id", srv.ID(), "name", srv.Name())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})
	if *discoveryPort > 0 {
		g.Go(func() error {
			reply := srv.DiscoveryReply(discovery.LocalIPv4s(), *port)
			logger.Info("answering discovery probes", "port", *discoveryPort, "hosts", reply.Hosts)
			return discovery.ListenAndRespond(ctx, *discoveryPort, reply, logger)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
