package engine

import (
	"context"
	"fmt"

	"github.com/relato/relato/tuple"
)

// CheckResult is the outcome of a membership check. DepthExhausted is set
// when the search budget ran out with unexplored usersets remaining; the
// decision is still deny, but operators can distinguish "no access" from
// "search budget too small".
type CheckResult struct {
	Allowed        bool
	DepthExhausted bool
}

// CheckEngine answers "is subject a member of namespace:object#relation".
// Decorators (caching, auditing) wrap this interface.
type CheckEngine interface {
	Check(ctx context.Context, namespaceName, object, relation, subjectID string, maxDepth int) (CheckResult, error)
}

// Checker resolves membership by breadth-first traversal of the userset
// graph. Object keys are opaque: tenant isolation conventions such as
// tenant:{id}#{type}:{id} hold because distinct composite keys share no
// tuples, not because of any engine logic.
type Checker struct {
	resolver *Resolver
	maxDepth int
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithMaxDepth sets the default traversal depth bound.
func WithMaxDepth(depth int) CheckerOption {
	return func(c *Checker) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// NewChecker creates a check engine over the resolver.
func NewChecker(resolver *Resolver, opts ...CheckerOption) *Checker {
	c := &Checker{
		resolver: resolver,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// node is one frontier entry: an object#relation pair still to resolve.
// The namespace travels with the node because subject sets may cross
// namespaces.
type node struct {
	namespace string
	object    string
	relation  string
}

func (n node) key() string {
	return n.namespace + ":" + n.object + "#" + n.relation
}

// Check reports whether subjectID is related to object via relation,
// directly or through any chain of subject sets. maxDepth <= 0 selects the
// checker's default bound.
//
// The traversal is breadth-first with an explicit visited set keyed by
// (namespace, object, relation); a graph edge leading back to a visited
// node is skipped, not an error, so adversarial or accidental cycles
// terminate. Unknown namespaces, objects and relations are a plain deny.
// A malformed subject is an error, since that is caller input rather than
// authorization data.
func (c *Checker) Check(ctx context.Context, namespaceName, object, relation, subjectID string, maxDepth int) (CheckResult, error) {
	if err := tuple.ValidateSubjectID(subjectID); err != nil {
		return CheckResult{}, err
	}
	if namespaceName == "" || object == "" || relation == "" {
		return CheckResult{}, fmt.Errorf("%w: namespace, object and relation are required", ErrInvalidQuery)
	}
	if maxDepth <= 0 {
		maxDepth = c.maxDepth
	}

	seed := node{namespace: namespaceName, object: object, relation: relation}
	frontier := []node{seed}
	visited := map[string]bool{seed.key(): true}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []node
		for _, n := range frontier {
			if err := ctx.Err(); err != nil {
				return CheckResult{}, fmt.Errorf("%w: %v", ErrTimeout, err)
			}

			usersets, err := c.resolver.Usersets(ctx, n.namespace, n.object, n.relation)
			if err != nil {
				return CheckResult{}, err
			}

			for _, u := range usersets {
				if u.SubjectID != "" {
					if u.SubjectID == subjectID {
						return CheckResult{Allowed: true}, nil
					}
					continue
				}
				if u.SubjectSet == nil {
					continue
				}
				child := node{
					namespace: u.SubjectSet.Namespace,
					object:    u.SubjectSet.Object,
					relation:  u.SubjectSet.Relation,
				}
				if key := child.key(); !visited[key] {
					visited[key] = true
					next = append(next, child)
				}
			}
		}
		frontier = next
	}

	// A non-empty frontier means the hop budget ran out before the graph
	// was exhausted: deny, but flag it for diagnostics.
	return CheckResult{DepthExhausted: len(frontier) > 0}, nil
}

// Compile-time interface check
var _ CheckEngine = (*Checker)(nil)
