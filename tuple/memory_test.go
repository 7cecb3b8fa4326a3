package tuple

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreIdempotentWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tup := Tuple{Namespace: "reports", Object: "role:admin", Relation: "member", SubjectID: "user:alice"}
	if err := store.Write(ctx, tup); err != nil {
		t.Fatal(err)
	}
	if err := store.Write(ctx, tup); err != nil {
		t.Fatal(err)
	}

	if store.Len() != 1 {
		t.Fatalf("double write left %d tuples, want 1", store.Len())
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	store := NewMemoryStore()
	err := store.Write(context.Background(), Tuple{Namespace: "reports"})
	if !errors.Is(err, ErrInvalidTuple) {
		t.Fatalf("expected ErrInvalidTuple, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("invalid write must not be partially applied")
	}
}

func TestMemoryStoreListByObject(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seed := []Tuple{
		{Namespace: "reports", Object: "role:admin", Relation: "member", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "role:admin", Relation: "member", SubjectID: "user:bob"},
		{Namespace: "reports", Object: "role:admin", Relation: "owner", SubjectID: "user:carol"},
		{Namespace: "other", Object: "role:admin", Relation: "member", SubjectID: "user:dave"},
	}
	if err := store.WriteBatch(ctx, seed); err != nil {
		t.Fatal(err)
	}

	got, err := store.ListByObject(ctx, "reports", "role:admin", "member")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d tuples, want 2", len(got))
	}
	for _, tup := range got {
		if tup.Relation != "member" || tup.Namespace != "reports" {
			t.Fatalf("wrong tuple returned: %s", tup.String())
		}
	}
}

func TestMemoryStoreListBySubject(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	set := &SubjectSet{Namespace: "reports", Object: "role:admin", Relation: "member"}
	seed := []Tuple{
		{Namespace: "reports", Object: "doc:1", Relation: "view", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "doc:2", Relation: "view", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "doc:3", Relation: "view", SubjectSet: set},
	}
	if err := store.WriteBatch(ctx, seed); err != nil {
		t.Fatal(err)
	}

	direct, err := store.ListBySubject(ctx, "reports", "user:alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(direct) != 2 {
		t.Fatalf("got %d tuples for user:alice, want 2", len(direct))
	}

	viaSet, err := store.ListBySubject(ctx, "reports", set.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(viaSet) != 1 || viaSet[0].Object != "doc:3" {
		t.Fatalf("unexpected subject-set lookup result: %v", viaSet)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	seed := []Tuple{
		{Namespace: "reports", Object: "doc:1", Relation: "view", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "doc:1", Relation: "edit", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "doc:2", Relation: "view", SubjectID: "user:bob"},
	}
	if err := store.WriteBatch(ctx, seed); err != nil {
		t.Fatal(err)
	}

	// Exact delete.
	n, err := store.Delete(ctx, Filter{Namespace: "reports", Object: "doc:1", Relation: "view", SubjectID: "user:alice"})
	if err != nil || n != 1 {
		t.Fatalf("exact delete: n=%d err=%v", n, err)
	}

	// Partial delete removes everything left on the object.
	n, err = store.Delete(ctx, Filter{Namespace: "reports", Object: "doc:1"})
	if err != nil || n != 1 {
		t.Fatalf("partial delete: n=%d err=%v", n, err)
	}

	// Deleting nothing is not an error.
	n, err = store.Delete(ctx, Filter{Namespace: "reports", Object: "doc:1"})
	if err != nil || n != 0 {
		t.Fatalf("empty delete: n=%d err=%v", n, err)
	}

	if store.Len() != 1 {
		t.Fatalf("store has %d tuples, want 1", store.Len())
	}

	// Indexes must be pruned along with the tuples.
	got, err := store.ListByObject(ctx, "reports", "doc:1", "view")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("deleted tuples still indexed: %v", got)
	}
}
