// Package tuple defines relation tuples, the atomic authorization facts of
// Relato, together with the storage contract for persisting them.
//
// A tuple states that a subject is related to an object within a namespace:
//
//	reports:tenant:a#product:items#admin@user:alice
//
// The subject is either a direct principal (user:alice) or a subject set,
// a reference to every subject that satisfies some relation on another
// object (reports:role:admin#member). Subject sets are what make role
// hierarchies and permission inheritance expressible as plain data.
//
// Object keys are opaque to the engine. Isolation conventions such as
// tenant:{id}#{type}:{id} live entirely in how callers construct keys;
// nothing in this package or the resolver performs prefix matching.
package tuple

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for caller input. Absence of data is never an error in
// Relato; these cover malformed data only.
var (
	// ErrInvalidTuple marks a tuple that violates the structural
	// invariants: empty namespace/object/relation, or a subject that is
	// not exactly one of subject_id and subject_set.
	ErrInvalidTuple = errors.New("tuple: invalid relation tuple")

	// ErrInvalidSubject marks a malformed caller-supplied subject string.
	ErrInvalidSubject = errors.New("tuple: invalid subject")
)

// SubjectSet references every subject that satisfies Relation on Object
// within Namespace. Canonical form: "namespace:object#relation".
type SubjectSet struct {
	Namespace string `json:"namespace"`
	Object    string `json:"object"`
	Relation  string `json:"relation"`
}

// String returns the canonical subject-set form "namespace:object#relation".
func (s SubjectSet) String() string {
	return s.Namespace + ":" + s.Object + "#" + s.Relation
}

// Valid reports whether all three fields are set.
func (s SubjectSet) Valid() bool {
	return s.Namespace != "" && s.Object != "" && s.Relation != ""
}

// Tuple is a single relationship fact. Exactly one of SubjectID and
// SubjectSet must be set. Tuples are immutable facts: an update is a delete
// followed by an insert, and the 4-tuple (namespace, object, relation,
// subject) is the natural key.
type Tuple struct {
	Namespace  string      `json:"namespace"`
	Object     string      `json:"object"`
	Relation   string      `json:"relation"`
	SubjectID  string      `json:"subject_id,omitempty"`
	SubjectSet *SubjectSet `json:"subject_set,omitempty"`
}

// Validate checks the structural invariants and returns an error wrapping
// ErrInvalidTuple when they do not hold.
func (t Tuple) Validate() error {
	if t.Namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidTuple)
	}
	if t.Object == "" {
		return fmt.Errorf("%w: object is required", ErrInvalidTuple)
	}
	if t.Relation == "" {
		return fmt.Errorf("%w: relation is required", ErrInvalidTuple)
	}
	hasID := t.SubjectID != ""
	hasSet := t.SubjectSet != nil
	if hasID && hasSet {
		return fmt.Errorf("%w: subject_id and subject_set are mutually exclusive", ErrInvalidTuple)
	}
	if !hasID && !hasSet {
		return fmt.Errorf("%w: one of subject_id or subject_set is required", ErrInvalidTuple)
	}
	if hasSet && !t.SubjectSet.Valid() {
		return fmt.Errorf("%w: subject_set requires namespace, object and relation", ErrInvalidTuple)
	}
	return nil
}

// Subject returns the canonical string form of the tuple's subject:
// the subject ID verbatim, or "namespace:object#relation" for a subject set.
func (t Tuple) Subject() string {
	if t.SubjectSet != nil {
		return t.SubjectSet.String()
	}
	return t.SubjectID
}

// String returns the canonical tuple form
// "namespace:object#relation@subject". The form is unique per natural key
// and doubles as the content-derived storage key.
func (t Tuple) String() string {
	return t.Namespace + ":" + t.Object + "#" + t.Relation + "@" + t.Subject()
}

// Equal reports whether two tuples share the same natural key.
func (t Tuple) Equal(other Tuple) bool {
	if t.Namespace != other.Namespace || t.Object != other.Object || t.Relation != other.Relation {
		return false
	}
	return t.Subject() == other.Subject()
}

// CompositeObject joins key segments into a composite object key such as
// "tenant:a#product:items". The engine never splits the result back apart;
// the convention only guarantees that distinct segment lists yield distinct
// keys.
func CompositeObject(segments ...string) string {
	return strings.Join(segments, "#")
}

// ValidateSubjectID checks a caller-supplied direct subject identifier.
// The identifier is otherwise treated verbatim; the engine never
// authenticates it (that is the Identity Provider's job).
func ValidateSubjectID(subjectID string) error {
	if strings.TrimSpace(subjectID) == "" {
		return fmt.Errorf("%w: subject_id is empty", ErrInvalidSubject)
	}
	if strings.Contains(subjectID, "#") {
		return fmt.Errorf("%w: subject_id %q must not contain '#', use a subject_set for userset references", ErrInvalidSubject, subjectID)
	}
	return nil
}

// ParseSubject parses a caller-supplied subject string into either a direct
// subject ID or a subject set.
//
// A subject containing '#' is a subject set "namespace:object#relation".
// Because object keys may themselves contain '#' (composite tenant keys),
// the relation is everything after the last '#', and the namespace is
// everything before the first ':'.
func ParseSubject(subject string) (string, *SubjectSet, error) {
	if strings.TrimSpace(subject) == "" {
		return "", nil, fmt.Errorf("%w: subject is empty", ErrInvalidSubject)
	}
	if !strings.Contains(subject, "#") {
		if err := ValidateSubjectID(subject); err != nil {
			return "", nil, err
		}
		return subject, nil, nil
	}

	hash := strings.LastIndex(subject, "#")
	relation := subject[hash+1:]
	rest := subject[:hash]
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return "", nil, fmt.Errorf("%w: subject set %q is missing a namespace", ErrInvalidSubject, subject)
	}
	set := &SubjectSet{
		Namespace: rest[:colon],
		Object:    rest[colon+1:],
		Relation:  relation,
	}
	if !set.Valid() {
		return "", nil, fmt.Errorf("%w: subject set %q has empty components", ErrInvalidSubject, subject)
	}
	return "", set, nil
}

// Filter selects tuples by exact match on its non-empty fields. A zero
// Filter matches everything in the store; partial filters enable bulk
// operations such as revoking every grant on an object.
type Filter struct {
	Namespace  string      `json:"namespace,omitempty"`
	Object     string      `json:"object,omitempty"`
	Relation   string      `json:"relation,omitempty"`
	SubjectID  string      `json:"subject_id,omitempty"`
	SubjectSet *SubjectSet `json:"subject_set,omitempty"`
}

// Matches reports whether the tuple satisfies every set field.
func (f Filter) Matches(t Tuple) bool {
	if f.Namespace != "" && t.Namespace != f.Namespace {
		return false
	}
	if f.Object != "" && t.Object != f.Object {
		return false
	}
	if f.Relation != "" && t.Relation != f.Relation {
		return false
	}
	if f.SubjectID != "" && t.SubjectID != f.SubjectID {
		return false
	}
	if f.SubjectSet != nil {
		if t.SubjectSet == nil || *t.SubjectSet != *f.SubjectSet {
			return false
		}
	}
	return true
}

// Exact reports whether the filter pins down a single natural key.
func (f Filter) Exact() bool {
	if f.Namespace == "" || f.Object == "" || f.Relation == "" {
		return false
	}
	return (f.SubjectID != "") != (f.SubjectSet != nil)
}
