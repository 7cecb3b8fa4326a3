package engine

import (
	"context"
	"fmt"
	"sort"
)

// NodeType classifies expand tree nodes.
type NodeType string

const (
	// NodeUnion is an internal (object, relation) node whose children
	// jointly grant it.
	NodeUnion NodeType = "union"

	// NodeLeaf is a concrete subject.
	NodeLeaf NodeType = "leaf"
)

// Tree is the derivation tree for an object#relation: every path from the
// root to a leaf is one way the relation can be granted. Used for auditing
// ("who can delete this product") and for debugging role hierarchies.
type Tree struct {
	Type NodeType `json:"type"`

	// Subject is the canonical form of this node: a subject ID for
	// leaves, "namespace:object#relation" for union nodes and
	// back-references.
	Subject string `json:"subject"`

	// Cycle marks a leaf that refers back to a node already on the path
	// from the root; it is not re-expanded.
	Cycle bool `json:"cycle,omitempty"`

	// Truncated marks a subject set left unexpanded because the depth
	// budget ran out.
	Truncated bool `json:"truncated,omitempty"`

	Children []*Tree `json:"children,omitempty"`
}

// Leaves returns every concrete subject reachable in the tree.
func (t *Tree) Leaves() []string {
	var leaves []string
	var walk func(n *Tree)
	walk = func(n *Tree) {
		if n.Type == NodeLeaf && !n.Cycle && !n.Truncated {
			leaves = append(leaves, n.Subject)
			return
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(t)
	return leaves
}

// Expander materializes the full access tree for an object#relation. It
// shares the Checker's resolver and cycle policy but never short-circuits
// and takes no subject.
type Expander struct {
	resolver *Resolver
	maxDepth int
}

// NewExpander creates an expand engine over the resolver.
func NewExpander(resolver *Resolver, opts ...ExpanderOption) *Expander {
	e := &Expander{
		resolver: resolver,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithExpandMaxDepth sets the default expansion depth bound.
func WithExpandMaxDepth(depth int) ExpanderOption {
	return func(e *Expander) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// Expand builds the depth-bounded derivation tree for (namespace, object,
// relation). A node already present on the current root-to-node path is
// rendered as a back-reference leaf rather than re-expanded, so expansion
// terminates on any tuple graph. maxDepth <= 0 selects the default bound.
func (e *Expander) Expand(ctx context.Context, namespaceName, object, relation string, maxDepth int) (*Tree, error) {
	if namespaceName == "" || object == "" || relation == "" {
		return nil, fmt.Errorf("%w: namespace, object and relation are required", ErrInvalidQuery)
	}
	if maxDepth <= 0 {
		maxDepth = e.maxDepth
	}
	root := node{namespace: namespaceName, object: object, relation: relation}
	return e.expand(ctx, root, maxDepth, map[string]bool{})
}

// expand builds the subtree for one node. path holds the keys of every
// ancestor on the current root-to-node path; recursion depth is bounded by
// the remaining hop budget.
func (e *Expander) expand(ctx context.Context, n node, remaining int, path map[string]bool) (*Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	key := n.key()
	if remaining <= 0 {
		return &Tree{Type: NodeLeaf, Subject: key, Truncated: true}, nil
	}

	usersets, err := e.resolver.Usersets(ctx, n.namespace, n.object, n.relation)
	if err != nil {
		return nil, err
	}

	root := &Tree{Type: NodeUnion, Subject: key}
	path[key] = true
	defer delete(path, key)

	for _, u := range usersets {
		if u.SubjectID != "" {
			root.Children = append(root.Children, &Tree{Type: NodeLeaf, Subject: u.SubjectID})
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
		if path[child.key()] {
			root.Children = append(root.Children, &Tree{Type: NodeLeaf, Subject: child.key(), Cycle: true})
			continue
		}
		subtree, err := e.expand(ctx, child, remaining-1, path)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, subtree)
	}

	// Stable child order keeps trees comparable across calls; store
	// iteration order is not deterministic.
	sort.Slice(root.Children, func(i, j int) bool {
		return root.Children[i].Subject < root.Children[j].Subject
	})

	return root, nil
}
