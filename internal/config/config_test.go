package config

import (
	"flag"
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestBindDefaults(t *testing.T) {
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.Bind(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	if c.Port != DefaultServerPort || c.DiscoveryPort != DefaultDiscoveryPort {
		t.Errorf("ports = %d/%d", c.Port, c.DiscoveryPort)
	}
	if c.TickRate != 14 || c.PollEvery != 14 || c.EditorTickRate != 10 {
		t.Errorf("rates = %d/%d/%d", c.TickRate, c.PollEvery, c.EditorTickRate)
	}
	if c.CallTimeout != 5*time.Second {
		t.Errorf("call timeout = %v", c.CallTimeout)
	}
}

func TestBindPrecedence(t *testing.T) {
	t.Setenv("ROOMVIEWER_HOST", "10.0.0.9")
	t.Setenv("ROOMVIEWER_PORT", "9000")
	t.Setenv("ROOMVIEWER_LOG_LEVEL", "debug")
	t.Setenv("ROOMVIEWER_WS", "true")

	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.Bind(fs)
	if err := fs.Parse([]string{"-port", "9100", "-log-level", "warn"}); err != nil {
		t.Fatal(err)
	}
	if c.Host != "10.0.0.9" {
		t.Errorf("host from env = %q", c.Host)
	}
	if c.Port != 9100 {
		t.Errorf("flag should win over env, port = %d", c.Port)
	}
	if c.LogLevel != slog.LevelWarn {
		t.Errorf("level = %v", c.LogLevel)
	}
	if !c.Websocket {
		t.Error("ROOMVIEWER_WS ignored")
	}
}

func TestBindRejectsBadLevel(t *testing.T) {
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(discard{})
	c.Bind(fs)
	if err := fs.Parse([]string{"-log-level", "loud"}); err == nil {
		t.Error("bad level accepted")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestSessionConfig(t *testing.T) {
	c := Default()
	c.TickRate = 20
	c.PollEvery = 5
	s := c.Session()
	if s.TickRate != 20 || s.PollEvery != 5 || s.MessageTicks != 60 {
		t.Errorf("session config = %+v", s)
	}
	if s.CallTimeout != 5*time.Second {
		t.Errorf("call timeout = %v", s.CallTimeout)
	}
}
