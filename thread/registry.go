// Package thread remembers which conversation thread of an external tool
// belongs to each chat session.
package thread

import (
	"maps"
	"sync"
)

// Registry maps session ids to tool thread ids. It is safe for concurrent
// use.
type Registry struct {
	threads map[string]string
	mu      sync.RWMutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{threads: make(map[string]string)}
}

// Get returns the thread id recorded for sessionID.
func (r *Registry) Get(sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.threads[sessionID]
	return id, ok
}

// Set records threadID for sessionID. An empty threadID removes the entry.
func (r *Registry) Set(sessionID, threadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if threadID == "" {
		delete(r.threads, sessionID)
		return
	}
	r.threads[sessionID] = threadID
}

// SetIfAbsent records threadID unless sessionID already has one. It reports
// whether the value was stored.
func (r *Registry) SetIfAbsent(sessionID, threadID string) bool {
	if threadID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.threads[sessionID]; ok {
		return false
	}
	r.threads[sessionID] = threadID
	return true
}

// Delete forgets the thread of sessionID.
func (r *Registry) Delete(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.threads, sessionID)
}

// Len returns the number of sessions with a thread.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.threads)
}

// Snapshot returns a copy of every mapping, for persistence by the caller.
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.threads)
}

// Restore replaces the registry contents with m.
func (r *Registry) Restore(m map[string]string) {
	next := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			next[k] = v
		}
	}
	r.mu.Lock()
	r.threads = next
	r.mu.Unlock()
}
