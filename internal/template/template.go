// Package template defines the declarative resource model and the resolver
// that turns parameterized templates into concrete resource specifications.
//
// A Template describes a single externally-managed resource (a Helm release,
// an object-storage bucket) before parameter substitution. Templates are
// immutable once loaded; resolution is a pure function over a template, a
// ParameterSet and a set of enablement flags.
package template

import (
	"fmt"
	"sort"
)

// Resource kinds understood by the engine.
const (
	KindHelmRelease = "helm_release"
	KindBucket      = "bucket"
)

// Template is the declarative, conditional, parameterized definition of a
// resource before substitution.
type Template struct {
	// Kind classifies the resource (helm_release, bucket).
	Kind string `yaml:"kind"`

	// Name is the resource name, unique within its kind.
	Name string `yaml:"name"`

	// EnabledIf names the enablement flag gating this template. An empty
	// string means the template is always enabled.
	EnabledIf string `yaml:"enabled_if,omitempty"`

	// DependsOn lists the IDs (kind/name) of resources that must be applied
	// before this one.
	DependsOn []string `yaml:"depends_on,omitempty"`

	// Attributes holds the resource configuration. String values may contain
	// {{ name }} placeholders resolved against the ParameterSet.
	Attributes map[string]string `yaml:"attributes"`
}

// ID returns the template's resource identifier (kind/name).
func (t Template) ID() string {
	return t.Kind + "/" + t.Name
}

// Validate checks structural requirements that do not depend on parameters.
func (t Template) Validate() error {
	if t.Kind == "" {
		return fmt.Errorf("template is missing a kind")
	}
	if t.Name == "" {
		return fmt.Errorf("template %q is missing a name", t.Kind)
	}
	for _, dep := range t.DependsOn {
		if dep == t.ID() {
			return fmt.Errorf("template %s depends on itself", t.ID())
		}
	}
	return nil
}

// Resolved is a fully substituted resource specification, ready to be
// planned and applied. One template resolves to zero resources (disabled)
// or exactly one Resolved.
type Resolved struct {
	ID         string
	Kind       string
	Name       string
	Attributes map[string]string
	DependsOn  []string
	Protected  bool
}

// AttributeKeys returns the attribute names in sorted order. Used for
// deterministic hashing and diffs.
func (r *Resolved) AttributeKeys() []string {
	keys := make([]string, 0, len(r.Attributes))
	for k := range r.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParameterSet maps parameter names to opaque string values. Every
// placeholder referenced by a template must resolve to a key in the set.
type ParameterSet map[string]string

// Merge returns a new ParameterSet with entries from overlay taking
// precedence over the receiver.
func (p ParameterSet) Merge(overlay ParameterSet) ParameterSet {
	merged := make(ParameterSet, len(p)+len(overlay))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}

// Flags holds the enablement flags a template's EnabledIf predicate is
// evaluated against. A missing flag evaluates to false.
type Flags map[string]bool
