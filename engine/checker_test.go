package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/relato/relato/namespace"
	"github.com/relato/relato/tuple"
)

const ns = "reports"

func newTestChecker(t *testing.T, registry *namespace.Registry, tuples ...tuple.Tuple) (*Checker, *tuple.MemoryStore) {
	t.Helper()
	store := tuple.NewMemoryStore()
	if err := store.WriteBatch(context.Background(), tuples); err != nil {
		t.Fatal(err)
	}
	return NewChecker(NewResolver(store, registry)), store
}

func direct(object, relation, subjectID string) tuple.Tuple {
	return tuple.Tuple{Namespace: ns, Object: object, Relation: relation, SubjectID: subjectID}
}

func viaSet(object, relation, setObject, setRelation string) tuple.Tuple {
	return tuple.Tuple{
		Namespace: ns, Object: object, Relation: relation,
		SubjectSet: &tuple.SubjectSet{Namespace: ns, Object: setObject, Relation: setRelation},
	}
}

func mustCheck(t *testing.T, c *Checker, object, relation, subjectID string) CheckResult {
	t.Helper()
	result, err := c.Check(context.Background(), ns, object, relation, subjectID, 0)
	if err != nil {
		t.Fatalf("check %s#%s@%s: %v", object, relation, subjectID, err)
	}
	return result
}

func TestDirectGrant(t *testing.T) {
	c, _ := newTestChecker(t, nil, direct("role:admin", "member", "user:alice"))

	if !mustCheck(t, c, "role:admin", "member", "user:alice").Allowed {
		t.Fatal("direct grant denied")
	}
	if mustCheck(t, c, "role:admin", "member", "user:mallory").Allowed {
		t.Fatal("unrelated subject allowed")
	}
}

func TestTransitiveInheritance(t *testing.T) {
	// customer ⊆ moderator ⊆ admin: membership in admin grants the rest.
	c, _ := newTestChecker(t, nil,
		viaSet("role:customer", "member", "role:moderator", "member"),
		viaSet("role:moderator", "member", "role:admin", "member"),
		direct("role:admin", "member", "user:alice"),
	)

	if !mustCheck(t, c, "role:customer", "member", "user:alice").Allowed {
		t.Fatal("two-hop inheritance denied")
	}
	if !mustCheck(t, c, "role:moderator", "member", "user:alice").Allowed {
		t.Fatal("one-hop inheritance denied")
	}
	// Inheritance points upward only.
	c2, _ := newTestChecker(t, nil,
		viaSet("role:customer", "member", "role:admin", "member"),
		direct("role:customer", "member", "user:bob"),
	)
	if mustCheck(t, c2, "role:admin", "member", "user:bob").Allowed {
		t.Fatal("customer grant leaked into admin")
	}
}

func TestTenantIsolation(t *testing.T) {
	tenantA := tuple.CompositeObject("tenant:a", "product:items")
	tenantB := tuple.CompositeObject("tenant:b", "product:items")
	c, _ := newTestChecker(t, nil, direct(tenantA, "admin", "user:alice"))

	if !mustCheck(t, c, tenantA, "admin", "user:alice").Allowed {
		t.Fatal("grant in tenant a denied")
	}
	if mustCheck(t, c, tenantB, "admin", "user:alice").Allowed {
		t.Fatal("grant leaked across tenants")
	}
}

func TestResourceIsolation(t *testing.T) {
	c, _ := newTestChecker(t, nil, direct("tenant:a#product:items", "admin", "user:alice"))

	if mustCheck(t, c, "tenant:a#category:items", "admin", "user:alice").Allowed {
		t.Fatal("grant leaked across resources within a tenant")
	}
}

func TestCycleTermination(t *testing.T) {
	// A#r and B#r refer to each other; neither grants anything concrete.
	c, _ := newTestChecker(t, nil,
		viaSet("group:a", "r", "group:b", "r"),
		viaSet("group:b", "r", "group:a", "r"),
	)

	result := mustCheck(t, c, "group:a", "r", "user:alice")
	if result.Allowed {
		t.Fatal("cyclic graph granted access")
	}
	if result.DepthExhausted {
		t.Fatal("cycle guard should exhaust the graph, not the depth budget")
	}
}

func TestCycleStillFindsGrant(t *testing.T) {
	// The cycle must be skipped, not abort the rest of the search.
	c, _ := newTestChecker(t, nil,
		viaSet("group:a", "r", "group:b", "r"),
		viaSet("group:b", "r", "group:a", "r"),
		viaSet("group:b", "r", "group:c", "r"),
		direct("group:c", "r", "user:alice"),
	)

	if !mustCheck(t, c, "group:a", "r", "user:alice").Allowed {
		t.Fatal("grant behind a cycle not found")
	}
}

func TestRevocation(t *testing.T) {
	c, store := newTestChecker(t, nil, direct("role:admin", "member", "user:alice"))

	if !mustCheck(t, c, "role:admin", "member", "user:alice").Allowed {
		t.Fatal("grant denied before revocation")
	}

	n, err := store.Delete(context.Background(), tuple.Filter{
		Namespace: ns, Object: "role:admin", Relation: "member", SubjectID: "user:alice",
	})
	if err != nil || n != 1 {
		t.Fatalf("revoke: n=%d err=%v", n, err)
	}

	if mustCheck(t, c, "role:admin", "member", "user:alice").Allowed {
		t.Fatal("revoked grant still allowed")
	}
}

func TestIdempotentWriteDoesNotAffectCheck(t *testing.T) {
	c, store := newTestChecker(t, nil, direct("role:admin", "member", "user:alice"))
	if err := store.Write(context.Background(), direct("role:admin", "member", "user:alice")); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Fatalf("store has %d tuples, want 1", store.Len())
	}
	if !mustCheck(t, c, "role:admin", "member", "user:alice").Allowed {
		t.Fatal("grant denied after duplicate write")
	}
}

func TestTwoHopPermissionChain(t *testing.T) {
	// admin → moderator → create, expressed purely as tuples.
	object := "tenant:a#product:items"
	c, _ := newTestChecker(t, nil,
		viaSet(object, "moderator", object, "admin"),
		viaSet(object, "create", object, "moderator"),
		direct(object, "admin", "user:alice"),
	)

	if !mustCheck(t, c, object, "create", "user:alice").Allowed {
		t.Fatal("two-hop permission chain denied")
	}
	if mustCheck(t, c, object, "create", "user:bob").Allowed {
		t.Fatal("subject without the chain allowed")
	}
}

func TestUnionRewrite(t *testing.T) {
	// The same chain as TestTwoHopPermissionChain, but declared as
	// namespace rewrites instead of subject-set tuples.
	registry := namespace.NewRegistry(namespace.Namespace{
		Name: ns,
		Relations: []namespace.Relation{
			{Name: "admin"},
			{Name: "moderator", Rewrite: &namespace.Rewrite{Union: []string{"admin"}}},
			{Name: "create", Rewrite: &namespace.Rewrite{Union: []string{"moderator"}}},
		},
	})
	object := "tenant:a#product:items"
	c, _ := newTestChecker(t, registry, direct(object, "admin", "user:alice"))

	if !mustCheck(t, c, object, "create", "user:alice").Allowed {
		t.Fatal("union rewrite chain denied")
	}
	if mustCheck(t, c, object, "create", "user:bob").Allowed {
		t.Fatal("rewrite granted an unrelated subject")
	}
}

func TestUnknownEverythingIsDeny(t *testing.T) {
	c, _ := newTestChecker(t, nil)

	result := mustCheck(t, c, "ghost:object", "ghost", "user:alice")
	if result.Allowed || result.DepthExhausted {
		t.Fatalf("empty graph should be a clean deny, got %+v", result)
	}
}

func TestMalformedSubjectIsError(t *testing.T) {
	c, _ := newTestChecker(t, nil)

	_, err := c.Check(context.Background(), ns, "role:admin", "member", "", 0)
	if !errors.Is(err, tuple.ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject for empty subject, got %v", err)
	}

	_, err = c.Check(context.Background(), ns, "role:admin", "member", "group:eng#member", 0)
	if !errors.Is(err, tuple.ErrInvalidSubject) {
		t.Fatalf("expected ErrInvalidSubject for a userset passed as subject_id, got %v", err)
	}
}

func TestDepthExhaustion(t *testing.T) {
	// A chain longer than the budget: deny, but flagged.
	c, _ := newTestChecker(t, nil,
		viaSet("g:1", "r", "g:2", "r"),
		viaSet("g:2", "r", "g:3", "r"),
		viaSet("g:3", "r", "g:4", "r"),
		direct("g:4", "r", "user:alice"),
	)

	result, err := c.Check(context.Background(), ns, "g:1", "r", "user:alice", 2)
	if err != nil {
		t.Fatal(err)
	}
	if result.Allowed {
		t.Fatal("depth-bounded check must deny")
	}
	if !result.DepthExhausted {
		t.Fatal("expected the depth-exhausted flag")
	}

	// A budget that covers the chain finds the grant.
	result, err = c.Check(context.Background(), ns, "g:1", "r", "user:alice", 10)
	if err != nil || !result.Allowed {
		t.Fatalf("full-depth check: %+v err=%v", result, err)
	}
}

func TestCancelledContext(t *testing.T) {
	c, _ := newTestChecker(t, nil, direct("role:admin", "member", "user:alice"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Check(ctx, ns, "role:admin", "member", "user:alice", 0)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
