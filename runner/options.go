package runner

import (
	"log/slog"
	"time"

	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Defaults for Config fields left zero.
const (
	DefaultKillGrace       = 500 * time.Millisecond
	DefaultChunkBufferSize = 64
	defaultExitWait        = 5 * time.Second
)

// Config holds settings shared by the one-shot supervisor and the
// persistent manager.
type Config struct {
	Logger *slog.Logger
	// KillGrace is how long a cancelled process gets between SIGTERM and
	// SIGKILL.
	KillGrace time.Duration
	// IdleWindow is the quiescence window used when a tool does not set one.
	IdleWindow      time.Duration
	ChunkBufferSize int
}

// Option configures a Config.
type Option func(*Config)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithKillGrace sets the SIGTERM to SIGKILL grace period.
func WithKillGrace(d time.Duration) Option {
	return func(c *Config) {
		c.KillGrace = d
	}
}

// WithIdleWindow sets the default quiescence window of persistent turns.
func WithIdleWindow(d time.Duration) Option {
	return func(c *Config) {
		c.IdleWindow = d
	}
}

// WithChunkBufferSize sets the buffer of returned chunk channels.
func WithChunkBufferSize(n int) Option {
	return func(c *Config) {
		c.ChunkBufferSize = n
	}
}

func newConfig(opts []Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.KillGrace <= 0 {
		c.KillGrace = DefaultKillGrace
	}
	if c.IdleWindow <= 0 {
		c.IdleWindow = tool.DefaultIdleWindow
	}
	if c.ChunkBufferSize <= 0 {
		c.ChunkBufferSize = DefaultChunkBufferSize
	}
	return c
}
