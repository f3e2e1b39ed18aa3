package tool

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

const settingsDebounce = 200 * time.Millisecond

// settingsFile is the YAML layout of the settings store.
type settingsFile struct {
	Env map[string]map[string]string `yaml:"env"`
}

// Settings is a file-backed store of per-tool environment overrides. It
// satisfies the orchestrator's environment provider and can follow edits to
// the file while running.
type Settings struct {
	env    map[string]map[string]string
	logger *slog.Logger
	path   string
	mu     sync.RWMutex
}

// OpenSettings loads the settings file at path. A missing file is an empty
// store. A nil logger uses slog.Default().
func OpenSettings(path string, logger *slog.Logger) (*Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Settings{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Env returns a copy of the overrides for toolID.
func (s *Settings) Env(toolID string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.env[toolID])
}

// Set replaces the overrides for toolID in memory and writes the file.
func (s *Settings) Set(toolID string, env map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]map[string]string, len(s.env)+1)
	for id, vars := range s.env {
		next[id] = vars
	}
	if len(env) == 0 {
		delete(next, toolID)
	} else {
		next[toolID] = maps.Clone(env)
	}

	data, err := yaml.Marshal(settingsFile{Env: next})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	s.env = next
	return nil
}

// Reload re-reads the settings file.
func (s *Settings) Reload() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.env = map[string]map[string]string{}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}

	var f settingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if f.Env == nil {
		f.Env = map[string]map[string]string{}
	}

	s.mu.Lock()
	s.env = f.Env
	s.mu.Unlock()
	return nil
}

// Watch reloads the store whenever the settings file changes, until ctx is
// done. The parent directory is watched so that editors which replace the
// file by rename are followed.
func (s *Settings) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.Close()
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go s.watchLoop(ctx, w)
	return nil
}

func (s *Settings) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	name := filepath.Clean(s.path)
	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(settingsDebounce)
			} else {
				debounce.Reset(settingsDebounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("settings reload failed", "path", s.path, "error", err)
				continue
			}
			s.logger.Debug("settings reloaded", "path", s.path)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("settings watcher error", "error", err)
		}
	}
}
