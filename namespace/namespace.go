// Package namespace declares which relations exist per namespace and how a
// relation's usersets are computed. The registry is a write-time validation
// and documentation aid: Check and Expand resolve the raw tuple graph
// correctly whether or not a schema was ever registered, so the registry is
// a plain value handed to the components that want it, never ambient state.
package namespace

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNamespace indicates a write addressed a namespace the
	// registry does not declare.
	ErrUnknownNamespace = errors.New("namespace: unknown namespace")

	// ErrUnknownRelation indicates a write used a relation the namespace
	// does not declare.
	ErrUnknownRelation = errors.New("namespace: unknown relation")
)

// Rewrite describes how a relation's usersets are computed beyond direct
// tuple assignment. Union is the only operator: a subject satisfies the
// relation if it satisfies any relation named in Union on the same object.
//
// Richer operators (intersection, exclusion) would be added as further
// fields here; the resolver is the single consumer, so extending Rewrite
// never touches the Check or Expand contracts.
type Rewrite struct {
	Union []string `yaml:"union,omitempty" json:"union,omitempty"`
}

// Relation declares a relation within a namespace. A nil Rewrite means the
// relation is satisfied by direct tuple assignment only.
type Relation struct {
	Name    string   `yaml:"name" json:"name"`
	Rewrite *Rewrite `yaml:"rewrite,omitempty" json:"rewrite,omitempty"`
}

// Namespace declares a namespace and its valid relations.
type Namespace struct {
	Name      string     `yaml:"name" json:"name"`
	Relations []Relation `yaml:"relations" json:"relations"`
}

// Registry holds the declared namespaces. An empty registry is permissive:
// it validates nothing, matching deployments that manage the tuple graph
// without a schema.
type Registry struct {
	namespaces map[string]map[string]Relation
}

// NewRegistry builds a registry from namespace declarations.
func NewRegistry(namespaces ...Namespace) *Registry {
	r := &Registry{namespaces: make(map[string]map[string]Relation)}
	for _, ns := range namespaces {
		r.Add(ns)
	}
	return r
}

// Add registers a namespace, replacing any previous declaration of the
// same name.
func (r *Registry) Add(ns Namespace) {
	relations := make(map[string]Relation, len(ns.Relations))
	for _, rel := range ns.Relations {
		relations[rel.Name] = rel
	}
	r.namespaces[ns.Name] = relations
}

// Empty reports whether no namespaces are declared.
func (r *Registry) Empty() bool {
	return len(r.namespaces) == 0
}

// Validate checks that the relation is declared for the namespace. It is a
// write-time check only; resolution never consults it. An empty registry
// accepts everything.
func (r *Registry) Validate(namespaceName, relation string) error {
	if r.Empty() {
		return nil
	}
	relations, ok := r.namespaces[namespaceName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, namespaceName)
	}
	if _, ok := relations[relation]; !ok {
		return fmt.Errorf("%w: %q has no relation %q", ErrUnknownRelation, namespaceName, relation)
	}
	return nil
}

// Rewrite returns the rewrite rule for (namespace, relation), or nil when
// none is declared. Unknown namespaces and relations yield nil: a missing
// schema never changes resolution, it only removes inherited usersets the
// schema would have added.
func (r *Registry) Rewrite(namespaceName, relation string) *Rewrite {
	relations, ok := r.namespaces[namespaceName]
	if !ok {
		return nil
	}
	rel, ok := relations[relation]
	if !ok {
		return nil
	}
	return rel.Rewrite
}

// Names returns the declared namespace names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.namespaces))
	for name := range r.namespaces {
		names = append(names, name)
	}
	return names
}
