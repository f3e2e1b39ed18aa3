package orchestrator

import (
	"log/slog"

	"github.com/bazelment/yoloswe/agentchat/adapter"
	"github.com/bazelment/yoloswe/agentchat/runner"
	"github.com/bazelment/yoloswe/agentchat/thread"
	"github.com/bazelment/yoloswe/agentchat/tool"
)

// DefaultMaxConcurrent bounds simultaneous tool invocations.
const DefaultMaxConcurrent = tool.DefaultMaxConcurrent

// Config holds Executor settings.
type Config struct {
	Logger     *slog.Logger
	Adapters   *adapter.Registry
	Threads    *thread.Registry
	Workspaces WorkspaceProvider
	Env        EnvProvider
	// RunnerOptions configure the one-shot supervisor and persistent manager.
	RunnerOptions   []runner.Option
	MaxConcurrent   int
	ChunkBufferSize int
}

// Option configures an Executor.
type Option func(*Config)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithAdapters sets the adapter registry. The default is
// adapter.DefaultRegistry().
func WithAdapters(r *adapter.Registry) Option {
	return func(c *Config) {
		c.Adapters = r
	}
}

// WithThreads shares a thread registry, for example one restored from disk.
func WithThreads(r *thread.Registry) Option {
	return func(c *Config) {
		c.Threads = r
	}
}

// WithWorkspaces sets the workspace provider.
func WithWorkspaces(p WorkspaceProvider) Option {
	return func(c *Config) {
		c.Workspaces = p
	}
}

// WithEnv sets the environment override provider.
func WithEnv(p EnvProvider) Option {
	return func(c *Config) {
		c.Env = p
	}
}

// WithMaxConcurrent sets the capacity of the global concurrency gate.
func WithMaxConcurrent(n int) Option {
	return func(c *Config) {
		c.MaxConcurrent = n
	}
}

// WithChunkBufferSize sets the buffer of channels returned by ExecuteStream.
func WithChunkBufferSize(n int) Option {
	return func(c *Config) {
		c.ChunkBufferSize = n
	}
}

// WithRunnerOptions passes options to the process supervisors.
func WithRunnerOptions(opts ...runner.Option) Option {
	return func(c *Config) {
		c.RunnerOptions = append(c.RunnerOptions, opts...)
	}
}
