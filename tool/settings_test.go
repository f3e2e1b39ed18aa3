package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsMissingFile(t *testing.T) {
	t.Parallel()
	s, err := OpenSettings(filepath.Join(t.TempDir(), "settings.yaml"), nil)
	require.NoError(t, err)
	assert.Empty(t, s.Env("codex"))
}

func TestSettingsSetPersists(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	s, err := OpenSettings(path, nil)
	require.NoError(t, err)

	require.NoError(t, s.Set("codex", map[string]string{"OPENAI_API_KEY": "k"}))
	assert.Equal(t, "k", s.Env("codex")["OPENAI_API_KEY"])

	reopened, err := OpenSettings(path, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"OPENAI_API_KEY": "k"}, reopened.Env("codex"))

	require.NoError(t, s.Set("codex", nil))
	assert.Empty(t, s.Env("codex"))
}

func TestSettingsEnvIsCopy(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env:\n  codex:\n    A: \"1\"\n"), 0o644))
	s, err := OpenSettings(path, nil)
	require.NoError(t, err)

	env := s.Env("codex")
	env["A"] = "2"
	assert.Equal(t, "1", s.Env("codex")["A"])
}

func TestSettingsWatchReloads(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env:\n  codex:\n    A: \"1\"\n"), 0o644))

	s, err := OpenSettings(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("env:\n  codex:\n    A: \"2\"\n"), 0o644))

	assert.Eventually(t, func() bool {
		return s.Env("codex")["A"] == "2"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSettingsInvalidFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("env: [\n"), 0o644))

	_, err := OpenSettings(path, nil)
	assert.Error(t, err)
}
