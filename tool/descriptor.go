// Package tool holds the catalog of external coding-assistant CLIs that
// sessions can talk to.
package tool

import (
	"maps"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultIdleWindow is how long a persistent tool may stay silent before its
// turn is considered finished.
const DefaultIdleWindow = 2 * time.Second

// Descriptor describes one external tool. Descriptors are handed out by value
// and never mutated after loading.
type Descriptor struct {
	Env               map[string]string `yaml:"env,omitempty" json:"env,omitempty" jsonschema:"description=Environment variables injected into the process"`
	ID                string            `yaml:"id" json:"id" jsonschema:"required,description=Unique tool identifier"`
	DisplayName       string            `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Command           string            `yaml:"command" json:"command" jsonschema:"required,description=Executable name or path"`
	ArgumentTemplate  string            `yaml:"argument_template,omitempty" json:"argument_template,omitempty" jsonschema:"description=Arguments with {prompt} {workdir} {session} and {thread} placeholders"`
	WorkDir           string            `yaml:"work_dir,omitempty" json:"work_dir,omitempty" jsonschema:"description=Overrides the session workspace as working directory"`
	PersistentArgs    string            `yaml:"persistent_args,omitempty" json:"persistent_args,omitempty" jsonschema:"description=Arguments used to launch the long-lived process"`
	Adapter           string            `yaml:"adapter,omitempty" json:"adapter,omitempty" jsonschema:"description=Protocol adapter name; defaults to the tool id"`
	TimeoutSeconds    int               `yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty" jsonschema:"minimum=0"`
	IdleWindowSeconds float64           `yaml:"idle_window_seconds,omitempty" json:"idle_window_seconds,omitempty" jsonschema:"minimum=0,description=Silence that ends a persistent turn"`
	Persistent        bool              `yaml:"persistent,omitempty" json:"persistent,omitempty"`
	Enabled           bool              `yaml:"enabled" json:"enabled,omitempty" jsonschema:"default=true"`
}

// UnmarshalYAML decodes a descriptor, treating a missing enabled key as true.
func (d *Descriptor) UnmarshalYAML(value *yaml.Node) error {
	type raw Descriptor
	r := raw{Enabled: true}
	if err := value.Decode(&r); err != nil {
		return err
	}
	*d = Descriptor(r)
	return nil
}

// Name returns the display name, falling back to the id.
func (d Descriptor) Name() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	return d.ID
}

// AdapterName returns the protocol adapter family for the tool.
func (d Descriptor) AdapterName() string {
	if d.Adapter != "" {
		return d.Adapter
	}
	return d.ID
}

// Timeout returns the hard wall-clock limit, or zero for none.
func (d Descriptor) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// IdleWindow returns the quiescence window for persistent turns.
func (d Descriptor) IdleWindow() time.Duration {
	if d.IdleWindowSeconds <= 0 {
		return DefaultIdleWindow
	}
	return time.Duration(d.IdleWindowSeconds * float64(time.Second))
}

func (d Descriptor) clone() Descriptor {
	d.Env = maps.Clone(d.Env)
	return d
}
