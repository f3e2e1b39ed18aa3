package group

import "sync"

// ViewState remembers which groups the user expanded or collapsed.
type ViewState struct {
	toggled map[string]bool
	mu      sync.Mutex
}

// NewViewState returns a view state with no toggles.
func NewViewState() *ViewState {
	return &ViewState{toggled: make(map[string]bool)}
}

// IsOpen reports whether g is shown expanded. An explicit toggle wins;
// otherwise a group is open until it completes. Groups that cannot collapse
// are always open.
func (v *ViewState) IsOpen(g Group) bool {
	if !g.Collapsible {
		return true
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if open, ok := v.toggled[g.ID]; ok {
		return open
	}
	return !g.Completed
}

// Toggle flips g and returns its new state.
func (v *ViewState) Toggle(g Group) bool {
	open := !v.IsOpen(g)
	v.SetOpen(g.ID, open)
	return open
}

// SetOpen records an explicit state for the group id.
func (v *ViewState) SetOpen(id string, open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.toggled[id] = open
}

// Reset forgets every toggle.
func (v *ViewState) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	clear(v.toggled)
}
