// Package audit records security-relevant events: authorization decisions
// and tuple grant/revoke operations. Events are structured for compliance
// review and written asynchronously so they never block the decision path.
package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by Relato.
const (
	TypeDecision    = "authz.decision"
	TypeTupleWrite  = "tuple.write"
	TypeTupleDelete = "tuple.delete"
)

// Decision statuses.
const (
	StatusAllowed = "allowed"
	StatusDenied  = "denied"
	StatusError   = "error"
)

// Event is a structured security event record.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Namespace string          `json:"namespace,omitempty"`
	Object    string          `json:"object,omitempty"`
	Relation  string          `json:"relation,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent creates an event with a fresh ID and timestamp.
func NewEvent(eventType, status, message string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Status:    status,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Store persists and queries audit events.
type Store interface {
	// SaveEvent persists an audit event.
	SaveEvent(ctx context.Context, event *Event) error

	// ListEvents returns the most recent events, newest first.
	ListEvents(ctx context.Context, limit int) ([]*Event, error)
}

// MemoryStore is a bounded in-memory Store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
	max    int
}

// NewMemoryStore creates an in-memory audit store retaining at most max
// events (oldest evicted first). max <= 0 means unbounded.
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{max: max}
}

// SaveEvent appends the event, evicting the oldest when over capacity.
func (s *MemoryStore) SaveEvent(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	if s.max > 0 && len(s.events) > s.max {
		s.events = s.events[len(s.events)-s.max:]
	}
	return nil
}

// ListEvents returns up to limit events, newest first.
func (s *MemoryStore) ListEvents(ctx context.Context, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	result := make([]*Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, s.events[i])
	}
	return result, nil
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)
