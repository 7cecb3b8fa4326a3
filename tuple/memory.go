package tuple

import (
	"context"
	"sync"
)

// MemoryStore is an indexed in-memory Store. It serves tests, development
// and single-instance deployments; production setups with durability
// requirements should use the gorm-backed store in the persistence package.
//
// Both resolver access patterns are O(1) index lookups. All mutations are
// O(1) map operations under the write lock, so concurrent writers contend
// only for the duration of the index update itself; readers proceed in
// parallel under the read lock.
type MemoryStore struct {
	mu sync.RWMutex

	// tuples holds every tuple keyed by its canonical string, making
	// duplicate writes idempotent no-ops.
	tuples map[string]Tuple

	// byObject indexes natural keys per (namespace, object, relation).
	byObject map[string]map[string]struct{}

	// bySubject indexes natural keys per (namespace, subject string).
	bySubject map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory tuple store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tuples:    make(map[string]Tuple),
		byObject:  make(map[string]map[string]struct{}),
		bySubject: make(map[string]map[string]struct{}),
	}
}

func objectKey(namespace, object, relation string) string {
	return namespace + ":" + object + "#" + relation
}

func subjectKey(namespace, subject string) string {
	return namespace + "@" + subject
}

// Write adds a tuple to the store. Writing an existing tuple is a no-op.
func (s *MemoryStore) Write(ctx context.Context, t Tuple) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(t)
	return nil
}

// WriteBatch adds multiple tuples atomically: either every tuple is
// validated and applied, or none is.
func (s *MemoryStore) WriteBatch(ctx context.Context, tuples []Tuple) error {
	for _, t := range tuples {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tuples {
		s.insert(t)
	}
	return nil
}

// insert requires the write lock.
func (s *MemoryStore) insert(t Tuple) {
	key := t.String()
	if _, ok := s.tuples[key]; ok {
		return
	}
	s.tuples[key] = t

	objKey := objectKey(t.Namespace, t.Object, t.Relation)
	if s.byObject[objKey] == nil {
		s.byObject[objKey] = make(map[string]struct{})
	}
	s.byObject[objKey][key] = struct{}{}

	subKey := subjectKey(t.Namespace, t.Subject())
	if s.bySubject[subKey] == nil {
		s.bySubject[subKey] = make(map[string]struct{})
	}
	s.bySubject[subKey][key] = struct{}{}
}

// remove requires the write lock.
func (s *MemoryStore) remove(key string, t Tuple) {
	delete(s.tuples, key)

	objKey := objectKey(t.Namespace, t.Object, t.Relation)
	if idx := s.byObject[objKey]; idx != nil {
		delete(idx, key)
		if len(idx) == 0 {
			delete(s.byObject, objKey)
		}
	}

	subKey := subjectKey(t.Namespace, t.Subject())
	if idx := s.bySubject[subKey]; idx != nil {
		delete(idx, key)
		if len(idx) == 0 {
			delete(s.bySubject, subKey)
		}
	}
}

// Delete removes every tuple matching the filter and returns the count.
func (s *MemoryStore) Delete(ctx context.Context, f Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Exact filters resolve to a single natural key without a scan.
	if f.Exact() {
		t := Tuple{
			Namespace:  f.Namespace,
			Object:     f.Object,
			Relation:   f.Relation,
			SubjectID:  f.SubjectID,
			SubjectSet: f.SubjectSet,
		}
		key := t.String()
		if existing, ok := s.tuples[key]; ok {
			s.remove(key, existing)
			return 1, nil
		}
		return 0, nil
	}

	var removed int64
	for key, t := range s.tuples {
		if f.Matches(t) {
			s.remove(key, t)
			removed++
		}
	}
	return removed, nil
}

// ListByObject returns all tuples for (namespace, object, relation).
func (s *MemoryStore) ListByObject(ctx context.Context, namespace, object, relation string) ([]Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byObject[objectKey(namespace, object, relation)]
	result := make([]Tuple, 0, len(idx))
	for key := range idx {
		result = append(result, s.tuples[key])
	}
	return result, nil
}

// ListBySubject returns all tuples in the namespace with the given subject.
func (s *MemoryStore) ListBySubject(ctx context.Context, namespace, subject string) ([]Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.bySubject[subjectKey(namespace, subject)]
	result := make([]Tuple, 0, len(idx))
	for key := range idx {
		result = append(result, s.tuples[key])
	}
	return result, nil
}

// List returns all tuples matching the filter.
func (s *MemoryStore) List(ctx context.Context, f Filter) ([]Tuple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Tuple
	for _, t := range s.tuples {
		if f.Matches(t) {
			result = append(result, t)
		}
	}
	return result, nil
}

// Exists reports whether the exact tuple is present.
func (s *MemoryStore) Exists(ctx context.Context, t Tuple) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tuples[t.String()]
	return ok, nil
}

// Len returns the number of stored tuples.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tuples)
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)
