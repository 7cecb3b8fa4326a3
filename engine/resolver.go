// Package engine implements the ReBAC resolution engine: the userset
// rewrite resolver, the breadth-first check engine and the expand engine.
//
// The engine is stateless between calls. Any number of Check and Expand
// calls may run concurrently against the same store; traversal within one
// call is synchronous. Every ambiguous condition resolves to deny or an
// explicit error, never to allow.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/relato/relato/namespace"
	"github.com/relato/relato/tuple"
)

// ErrTimeout indicates traversal was cut short by the request context.
// Callers must treat it as "unknown" and fail closed; it is distinct from a
// definitive deny, which is not an error at all.
var ErrTimeout = errors.New("engine: traversal cancelled")

// ErrInvalidQuery marks a malformed check or expand query. Like a malformed
// subject, this is caller input, not authorization data, so it is an error
// rather than a deny.
var ErrInvalidQuery = errors.New("engine: invalid query")

// DefaultMaxDepth bounds traversal when the caller does not supply a depth.
// It is a hard safety bound independent of any wall-clock deadline.
const DefaultMaxDepth = 32

// Userset is one immediate grant of (namespace, object, relation): either a
// concrete subject or a reference to another relation's subjects.
type Userset struct {
	SubjectID  string
	SubjectSet *tuple.SubjectSet
}

// Resolver computes the immediate usersets of an object#relation node. It
// unions two sources: tuples stored for the node, and subject-set
// references synthesized from the namespace registry's union rewrites.
// Union is the only rewrite algebra; richer operators would extend
// namespace.Rewrite and be interpreted here, leaving Check and Expand
// untouched.
type Resolver struct {
	store    tuple.Store
	registry *namespace.Registry
}

// NewResolver creates a resolver over the store. The registry may be nil or
// empty, in which case only stored tuples contribute usersets.
func NewResolver(store tuple.Store, registry *namespace.Registry) *Resolver {
	if registry == nil {
		registry = namespace.NewRegistry()
	}
	return &Resolver{store: store, registry: registry}
}

// Usersets returns every immediate userset granting (namespace, object,
// relation). An unknown namespace, object or relation yields an empty set,
// never an error: absence of a grant is the default-deny state.
func (r *Resolver) Usersets(ctx context.Context, namespaceName, object, relation string) ([]Userset, error) {
	tuples, err := r.store.ListByObject(ctx, namespaceName, object, relation)
	if err != nil {
		return nil, fmt.Errorf("engine: list usersets for %s:%s#%s: %w", namespaceName, object, relation, err)
	}

	usersets := make([]Userset, 0, len(tuples))
	for _, t := range tuples {
		usersets = append(usersets, Userset{
			SubjectID:  t.SubjectID,
			SubjectSet: t.SubjectSet,
		})
	}

	if rewrite := r.registry.Rewrite(namespaceName, relation); rewrite != nil {
		for _, inherited := range rewrite.Union {
			if inherited == relation {
				// Self-references contribute nothing new.
				continue
			}
			usersets = append(usersets, Userset{
				SubjectSet: &tuple.SubjectSet{
					Namespace: namespaceName,
					Object:    object,
					Relation:  inherited,
				},
			})
		}
	}

	return usersets, nil
}
