package tuple

import (
	"context"
)

// Store is the persistence contract for relation tuples. Implementations
// can be in-memory or SQL-backed; the resolver only ever uses the two
// indexed access patterns (by object triple and by subject), issuing one
// lookup per graph edge traversed.
//
// Writes are idempotent on the natural key and atomically visible: a reader
// observes a tuple entirely or not at all, never a partial write. Reads
// racing a write may observe either the pre- or post-write graph.
type Store interface {
	// Write persists a tuple. Writing an existing tuple is a no-op.
	// Invalid tuples are rejected with an ErrInvalidTuple-wrapped error
	// and never partially applied.
	Write(ctx context.Context, t Tuple) error

	// WriteBatch persists multiple tuples atomically.
	WriteBatch(ctx context.Context, tuples []Tuple) error

	// Delete removes every tuple matching the filter and returns how
	// many were removed. Deleting nothing is not an error.
	Delete(ctx context.Context, f Filter) (int64, error)

	// ListByObject returns all tuples for (namespace, object, relation).
	// This is the resolver's forward access pattern and must be indexed.
	ListByObject(ctx context.Context, namespace, object, relation string) ([]Tuple, error)

	// ListBySubject returns all tuples within a namespace whose subject
	// has the given canonical string form (a subject ID, or
	// "namespace:object#relation" for a subject set). This is the
	// reverse access pattern and must be indexed.
	ListBySubject(ctx context.Context, namespace, subject string) ([]Tuple, error)

	// List returns all tuples matching the filter, for administrative
	// inspection.
	List(ctx context.Context, f Filter) ([]Tuple, error)

	// Exists reports whether the exact tuple is present.
	Exists(ctx context.Context, t Tuple) (bool, error)
}
