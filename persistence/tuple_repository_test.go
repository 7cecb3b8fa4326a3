package persistence

import (
	"context"
	"testing"

	"github.com/relato/relato/audit"
	"github.com/relato/relato/tuple"
)

func newTestRepository(t *testing.T) *TupleRepository {
	t.Helper()
	repo, err := NewTupleStore("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func TestTupleRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	set := &tuple.SubjectSet{Namespace: "reports", Object: "role:admin", Relation: "member"}
	seed := []tuple.Tuple{
		{Namespace: "reports", Object: "role:admin", Relation: "member", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "role:customer", Relation: "member", SubjectSet: set},
	}
	if err := repo.WriteBatch(ctx, seed); err != nil {
		t.Fatal(err)
	}

	direct, err := repo.ListByObject(ctx, "reports", "role:admin", "member")
	if err != nil {
		t.Fatal(err)
	}
	if len(direct) != 1 || direct[0].SubjectID != "user:alice" {
		t.Fatalf("unexpected object lookup: %v", direct)
	}

	// The subject-set tuple must come back with its set intact.
	nested, err := repo.ListByObject(ctx, "reports", "role:customer", "member")
	if err != nil {
		t.Fatal(err)
	}
	if len(nested) != 1 || nested[0].SubjectSet == nil || *nested[0].SubjectSet != *set {
		t.Fatalf("subject set lost in round trip: %v", nested)
	}

	bySubject, err := repo.ListBySubject(ctx, "reports", set.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(bySubject) != 1 || bySubject[0].Object != "role:customer" {
		t.Fatalf("unexpected subject lookup: %v", bySubject)
	}
}

func TestTupleRepositoryIdempotentWrite(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tup := tuple.Tuple{Namespace: "reports", Object: "role:admin", Relation: "member", SubjectID: "user:alice"}
	if err := repo.Write(ctx, tup); err != nil {
		t.Fatal(err)
	}
	if err := repo.Write(ctx, tup); err != nil {
		t.Fatal(err)
	}

	all, err := repo.List(ctx, tuple.Filter{Namespace: "reports"})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("double write left %d rows, want 1", len(all))
	}
}

func TestTupleRepositoryDeleteCount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed := []tuple.Tuple{
		{Namespace: "reports", Object: "doc:1", Relation: "view", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "doc:1", Relation: "edit", SubjectID: "user:alice"},
		{Namespace: "reports", Object: "doc:2", Relation: "view", SubjectID: "user:bob"},
	}
	if err := repo.WriteBatch(ctx, seed); err != nil {
		t.Fatal(err)
	}

	n, err := repo.Delete(ctx, tuple.Filter{Namespace: "reports", Object: "doc:1"})
	if err != nil || n != 2 {
		t.Fatalf("bulk delete: n=%d err=%v", n, err)
	}

	n, err = repo.Delete(ctx, tuple.Filter{Namespace: "reports", Object: "doc:1"})
	if err != nil || n != 0 {
		t.Fatalf("repeat delete: n=%d err=%v", n, err)
	}

	exists, err := repo.Exists(ctx, seed[2])
	if err != nil || !exists {
		t.Fatalf("unrelated tuple lost: exists=%v err=%v", exists, err)
	}
}

func TestTupleRepositoryRejectsInvalid(t *testing.T) {
	repo := newTestRepository(t)

	err := repo.Write(context.Background(), tuple.Tuple{Namespace: "reports"})
	if err == nil {
		t.Fatal("invalid tuple accepted")
	}
}

func TestAuditRepository(t *testing.T) {
	db, err := Open("sqlite", ":memory:", nil)
	if err != nil {
		t.Fatal(err)
	}
	repo := NewAuditRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, status := range []string{audit.StatusAllowed, audit.StatusDenied} {
		event := audit.NewEvent(audit.TypeDecision, status, "check")
		event.Namespace = "reports"
		if err := repo.SaveEvent(ctx, event); err != nil {
			t.Fatal(err)
		}
	}

	events, err := repo.ListEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("listed %d events, want 2", len(events))
	}
	for _, event := range events {
		if event.Namespace != "reports" || event.Type != audit.TypeDecision {
			t.Fatalf("event fields lost: %+v", event)
		}
	}
}
