// Package group folds a parsed event sequence into display groups.
//
// Command executions and tool calls have a lifecycle: a started event opens
// a group, updated events extend it, and a completed event closes it. Events
// outside such a lifecycle become single groups, and end-of-turn events become
// completion groups that render collapsed.
package group

import (
	"fmt"

	"github.com/bazelment/yoloswe/agentchat/adapter"
)

// Kind classifies a group.
type Kind string

const (
	KindCommand    Kind = "command_execution"
	KindTool       Kind = "tool_call"
	KindCompletion Kind = "completion"
	KindSingle     Kind = "single"
)

// completionTypes are event types that mark the end of a turn or session.
var completionTypes = map[string]bool{
	"turn.completed": true,
	"turn.failed":    true,
	"result":         true,
	"session.end":    true,
	"step_finish":    true,
	"step-finish":    true,
}

// IsCompletion reports whether events of type typ form completion groups.
func IsCompletion(typ string) bool {
	return completionTypes[typ]
}

// KindOf returns the lifecycle kind of ev, or "" when ev has no lifecycle.
func KindOf(ev adapter.Event) Kind {
	switch ev.ItemType {
	case adapter.ItemCommandExecution:
		return KindCommand
	case adapter.ItemToolCall, adapter.ItemToolUse, adapter.ItemMCPToolCall,
		adapter.ItemFileChange, adapter.ItemWebSearch:
		return KindTool
	}
	return ""
}

// Group is a run of related events shown as one block.
type Group struct {
	ID    string          `json:"id"`
	Kind  Kind            `json:"kind"`
	Title string          `json:"title"`
	Items []adapter.Event `json:"items"`
	// Completed is set once the closing event arrived, or when the group was
	// force-closed.
	Completed   bool `json:"completed"`
	Collapsible bool `json:"collapsible"`
	// Interrupted marks a group closed by a newer started event of the same
	// kind rather than by its own completion.
	Interrupted bool `json:"interrupted,omitempty"`
}

func (g *Group) clone() Group {
	c := *g
	c.Items = append([]adapter.Event(nil), g.Items...)
	return c
}

// Titler labels an event. It returns "" when the event has nothing to add to
// the title.
type Titler func(ev *adapter.Event) string

// Builder folds events into groups incrementally. It is not safe for
// concurrent use.
type Builder struct {
	titler Titler
	open   map[Kind]*Group
	groups []*Group
	nextID int
}

// NewBuilder returns an empty builder. A nil titler uses adapter.DefaultTitle.
func NewBuilder(titler Titler) *Builder {
	if titler == nil {
		titler = adapter.DefaultTitle
	}
	return &Builder{
		titler: titler,
		open:   make(map[Kind]*Group),
	}
}

// Build folds events with a fresh builder. The same input always yields the
// same groups.
func Build(events []adapter.Event, titler Titler) []Group {
	b := NewBuilder(titler)
	for _, ev := range events {
		b.Add(ev)
	}
	return b.Groups()
}

// Add folds one event and returns the group it landed in.
func (b *Builder) Add(ev adapter.Event) Group {
	if IsCompletion(ev.Type) {
		g := b.newGroup(KindCompletion, ev)
		g.Completed = true
		g.Collapsible = true
		return g.clone()
	}

	kind := KindOf(ev)
	if kind == "" {
		return b.single(ev)
	}

	switch ev.Phase {
	case adapter.PhaseStarted:
		if prev := b.open[kind]; prev != nil {
			prev.Completed = true
			prev.Interrupted = true
		}
		g := b.newGroup(kind, ev)
		g.Collapsible = true
		b.open[kind] = g
		return g.clone()

	case adapter.PhaseUpdated, adapter.PhaseCompleted:
		g := b.open[kind]
		if g == nil || !sameItem(g, ev) {
			return b.single(ev)
		}
		g.Items = append(g.Items, ev)
		b.retitle(g, ev)
		if ev.Phase == adapter.PhaseCompleted {
			g.Completed = true
			delete(b.open, kind)
		}
		return g.clone()
	}
	return b.single(ev)
}

// Groups returns a copy of every group in creation order.
func (b *Builder) Groups() []Group {
	out := make([]Group, 0, len(b.groups))
	for _, g := range b.groups {
		out = append(out, g.clone())
	}
	return out
}

// Open returns the ids of groups still waiting for their completion.
func (b *Builder) Open() []string {
	var ids []string
	for _, g := range b.groups {
		if b.open[g.Kind] == g {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

func (b *Builder) single(ev adapter.Event) Group {
	g := b.newGroup(KindSingle, ev)
	g.Completed = true
	return g.clone()
}

func (b *Builder) newGroup(kind Kind, ev adapter.Event) *Group {
	b.nextID++
	g := &Group{
		ID:    fmt.Sprintf("g%d", b.nextID),
		Kind:  kind,
		Items: []adapter.Event{ev},
		Title: b.titler(&ev),
	}
	if g.Title == "" {
		g.Title = fallbackTitle(kind, ev)
	}
	b.groups = append(b.groups, g)
	return g
}

func (b *Builder) retitle(g *Group, ev adapter.Event) {
	if t := b.titler(&ev); t != "" {
		g.Title = t
	}
}

// sameItem matches an event to the open group by item id when both carry one.
func sameItem(g *Group, ev adapter.Event) bool {
	first := g.Items[0].ItemID
	return first == "" || ev.ItemID == "" || first == ev.ItemID
}

func fallbackTitle(kind Kind, ev adapter.Event) string {
	switch kind {
	case KindCommand:
		return "Command"
	case KindTool:
		return "Tool call"
	}
	return ev.Type
}
