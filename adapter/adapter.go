// Package adapter translates between the chat engine and the line protocols
// of individual coding-assistant CLIs.
//
// An Adapter knows how to build the argument vector for one tool family and
// how to turn each line the tool prints into a normalized Event. Everything
// that is common to all families (scanning output for a thread id, pulling
// out assistant text, tolerating adapter panics) lives in this package once,
// so adapters only implement the structured path.
package adapter

import (
	"sort"
	"sync"

	"github.com/bazelment/yoloswe/agentchat/tool"
)

// Adapter is the protocol knowledge for one tool family.
type Adapter interface {
	// Name is the family name tools refer to in their descriptor.
	Name() string
	// BuildArguments returns argv (without the command) for a one-shot turn.
	BuildArguments(desc tool.Descriptor, prompt string, sc SessionContext) []string
	// ParseOutputLine parses one line of output. It returns nil for lines that
	// are not part of the protocol.
	ParseOutputLine(line string) *Event
	// ExtractSessionID returns the thread id carried by ev, if any.
	ExtractSessionID(ev *Event) string
	// ExtractAssistantMessage returns assistant-authored text carried by ev.
	ExtractAssistantMessage(ev *Event) string
	// EventTitle returns a short human label for ev.
	EventTitle(ev *Event) string
}

// InputBuilder is implemented by adapters whose tools expect framed input on
// stdin in persistent mode.
type InputBuilder interface {
	BuildInput(prompt string, sc SessionContext) string
}

// Registry maps adapter family names to adapters.
type Registry struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
}

// NewRegistry returns a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in adapter.
func DefaultRegistry() *Registry {
	return NewRegistry(Codex{}, Claude{}, Cursor{})
}

// Register adds a, replacing any adapter of the same name.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Lookup returns the adapter registered under name, or nil.
func (r *Registry) Lookup(name string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[name]
}

// Get returns the adapter for desc, or nil when the tool has none.
func (r *Registry) Get(desc tool.Descriptor) Adapter {
	return r.Lookup(desc.AdapterName())
}

// SupportsStreamParsing reports whether output of desc can be parsed into
// events.
func (r *Registry) SupportsStreamParsing(desc tool.Descriptor) bool {
	return r.Get(desc) != nil
}

// Names returns the registered family names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
