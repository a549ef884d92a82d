package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// Respond answers discovery probes on conn until ctx ends.
func Respond(ctx context.Context, conn net.PacketConn, reply Reply, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("encode discovery reply: %w", err)
	}
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	buf := make([]byte, 256)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("discovery responder: %w", err)
		}
		if strings.TrimSpace(string(buf[:n])) != Message {
			continue
		}
		if _, err := conn.WriteTo(data, from); err != nil {
			logger.Warn("discovery reply failed", "to", from.String(), "error", err)
			continue
		}
		logger.Debug("answered discovery probe", "from", from.String())
	}
}

// ListenAndRespond binds the discovery port on all interfaces and answers
// probes until ctx ends.
func ListenAndRespond(ctx context.Context, port int, reply Reply, logger *slog.Logger) error {
	conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("discovery listen: %w", err)
	}
	return Respond(ctx, conn, reply, logger)
}
