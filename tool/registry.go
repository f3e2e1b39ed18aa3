package tool

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Registry.Lookup.
var (
	ErrNotFound = errors.New("not found")
	ErrDisabled = errors.New("disabled")
)

// LookupError reports why a tool id could not be used.
type LookupError struct {
	Err error
	ID  string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("tool %q %v", e.ID, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Registry is a read-only catalog of tools. It is safe for concurrent use
// because nothing mutates it after NewRegistry returns.
type Registry struct {
	tools map[string]Descriptor
	order []string
}

// NewRegistry validates and indexes the given descriptors.
func NewRegistry(tools ...Descriptor) (*Registry, error) {
	r := &Registry{tools: make(map[string]Descriptor, len(tools))}
	for _, d := range tools {
		if d.ID == "" {
			return nil, fmt.Errorf("tool with command %q has no id", d.Command)
		}
		if d.Command == "" {
			return nil, fmt.Errorf("tool %q has no command", d.ID)
		}
		if d.TimeoutSeconds < 0 {
			return nil, fmt.Errorf("tool %q has negative timeout", d.ID)
		}
		if _, dup := r.tools[d.ID]; dup {
			return nil, fmt.Errorf("duplicate tool id %q", d.ID)
		}
		r.tools[d.ID] = d.clone()
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// Lookup returns the descriptor for id if it exists and is enabled.
func (r *Registry) Lookup(id string) (Descriptor, error) {
	d, ok := r.Get(id)
	if !ok {
		return Descriptor{}, &LookupError{ID: id, Err: ErrNotFound}
	}
	if !d.Enabled {
		return Descriptor{}, &LookupError{ID: id, Err: ErrDisabled}
	}
	return d, nil
}

// Get returns the descriptor for id regardless of its enabled flag.
func (r *Registry) Get(id string) (Descriptor, bool) {
	d, ok := r.tools[id]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// List returns all descriptors in declaration order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tools[id].clone())
	}
	return out
}
