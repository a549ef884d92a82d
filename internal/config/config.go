// Package config collects the client's tunables. Every field has a flag and
// an environment fallback; flags win over the environment, the environment
// wins over the defaults.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"roomviewer/internal/session"
)

const (
	DefaultServerPort    = 47675
	DefaultDiscoveryPort = 5007
	DefaultEditorRate    = 10
)

// Config is the client configuration.
type Config struct {
	// Host and Port skip server selection when Host is set.
	Host string
	Port int

	DiscoveryPort    int
	DiscoveryTimeout time.Duration

	TickRate       int
	PollEvery      int
	EditorTickRate int
	CallTimeout    time.Duration
	MaxFailures    int

	// Websocket selects the websocket room channel over plain HTTP.
	Websocket bool

	DataDir  string
	LogLevel slog.Level
}

// Default returns the built-in configuration.
func Default() Config {
	s := session.DefaultConfig()
	return Config{
		Port:             DefaultServerPort,
		DiscoveryPort:    DefaultDiscoveryPort,
		DiscoveryTimeout: time.Second,
		TickRate:         s.TickRate,
		PollEvery:        s.PollEvery,
		EditorTickRate:   DefaultEditorRate,
		CallTimeout:      s.CallTimeout,
		MaxFailures:      s.MaxTransportFailures,
		LogLevel:         slog.LevelInfo,
	}
}

// EnvOrDefault returns the environment variable key, or def when unset.
func EnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}

func envBool(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

// ParseLevel accepts debug, info, warn(ing) and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

type levelFlag struct{ l *slog.Level }

func (f levelFlag) String() string {
	if f.l == nil {
		return ""
	}
	return strings.ToLower(f.l.String())
}

func (f levelFlag) Set(s string) error {
	l, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*f.l = l
	return nil
}

// Bind registers the client flags on fs. Defaults come from c overridden by
// ROOMVIEWER_* environment variables.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Host, "host", EnvOrDefault("ROOMVIEWER_HOST", c.Host), "game server host (skips server selection)")
	fs.IntVar(&c.Port, "port", envInt("ROOMVIEWER_PORT", c.Port), "game server port")
	fs.IntVar(&c.DiscoveryPort, "discovery-port", envInt("ROOMVIEWER_DISCOVERY_PORT", c.DiscoveryPort), "UDP port for LAN discovery")
	fs.DurationVar(&c.DiscoveryTimeout, "discovery-timeout", envDuration("ROOMVIEWER_DISCOVERY_TIMEOUT", c.DiscoveryTimeout), "how long to wait for discovery replies")
	fs.IntVar(&c.TickRate, "tick-rate", envInt("ROOMVIEWER_TICK_RATE", c.TickRate), "room viewer frames per second")
	fs.IntVar(&c.PollEvery, "poll-every", envInt("ROOMVIEWER_POLL_EVERY", c.PollEvery), "ticks between change checks")
	fs.DurationVar(&c.CallTimeout, "call-timeout", envDuration("ROOMVIEWER_CALL_TIMEOUT", c.CallTimeout), "timeout for one server call")
	fs.BoolVar(&c.Websocket, "ws", envBool("ROOMVIEWER_WS", c.Websocket), "use the websocket room channel")
	fs.StringVar(&c.DataDir, "data-dir", EnvOrDefault("ROOMVIEWER_DATA_DIR", c.DataDir), "data directory (default $XDG_DATA_HOME/roomviewer)")
	if l, err := ParseLevel(os.Getenv("ROOMVIEWER_LOG_LEVEL")); err == nil && os.Getenv("ROOMVIEWER_LOG_LEVEL") != "" {
		c.LogLevel = l
	}
	fs.Var(levelFlag{&c.LogLevel}, "log-level", "debug, info, warn or error")
}

// Session returns the room loop pacing.
func (c Config) Session() session.Config {
	s := session.DefaultConfig()
	if c.TickRate > 0 {
		s.TickRate = c.TickRate
		// Status messages stay up for three seconds whatever the rate.
		s.MessageTicks = 3 * c.TickRate
	}
	if c.PollEvery > 0 {
		s.PollEvery = c.PollEvery
	}
	if c.CallTimeout > 0 {
		s.CallTimeout = c.CallTimeout
	}
	s.MaxTransportFailures = c.MaxFailures
	return s
}
