package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WorkspaceProvider resolves the working directory of a chat session.
type WorkspaceProvider interface {
	Workspace(sessionID string) (string, error)
}

// EnvProvider returns environment overrides for a tool.
type EnvProvider interface {
	Env(toolID string) map[string]string
}

// DirWorkspaces keeps one directory per session under Root.
type DirWorkspaces struct {
	Root string
}

// Workspace returns Root/<session>, creating it if needed. Ids made of
// [A-Za-z0-9._-] are used as is. Other ids have the offending characters
// replaced and get a "~<hash>" suffix of the raw id, so distinct ids never
// share a directory and none can escape Root.
func (d DirWorkspaces) Workspace(sessionID string) (string, error) {
	name := workspaceName(sessionID)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	root, err := filepath.Abs(d.Root)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace: %w", err)
	}
	return dir, nil
}

func workspaceName(id string) string {
	clean := strings.Map(func(r rune) rune {
		if safeRune(r) {
			return r
		}
		return '_'
	}, id)
	if clean == id {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return clean + "~" + hex.EncodeToString(sum[:8])
}

func safeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
		r == '.', r == '_', r == '-':
		return true
	}
	return false
}

// StaticEnv is an EnvProvider backed by a fixed map.
type StaticEnv map[string]map[string]string

func (s StaticEnv) Env(toolID string) map[string]string {
	return s[toolID]
}
