package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/relato/relato/audit"
)

// -- Audit Decorator --

// AuditedChecker records an audit event for every decision. Events are
// written asynchronously on a detached context so auditing never blocks or
// fails the decision path.
type AuditedChecker struct {
	next  CheckEngine
	store audit.Store
}

// NewAuditedChecker wraps a check engine with audit logging.
func NewAuditedChecker(next CheckEngine, store audit.Store) *AuditedChecker {
	return &AuditedChecker{next: next, store: store}
}

func (a *AuditedChecker) Check(ctx context.Context, namespaceName, object, relation, subjectID string, maxDepth int) (CheckResult, error) {
	result, err := a.next.Check(ctx, namespaceName, object, relation, subjectID, maxDepth)

	status := audit.StatusDenied
	switch {
	case err != nil:
		status = audit.StatusError
	case result.Allowed:
		status = audit.StatusAllowed
	}

	event := audit.NewEvent(audit.TypeDecision, status, fmt.Sprintf("check %s:%s#%s", namespaceName, object, relation))
	event.Namespace = namespaceName
	event.Object = object
	event.Relation = relation
	event.Subject = subjectID
	meta := map[string]any{
		"allowed":         result.Allowed,
		"depth_exhausted": result.DepthExhausted,
	}
	if err != nil {
		meta["error"] = err.Error()
	}
	event.Metadata, _ = json.Marshal(meta)

	go a.store.SaveEvent(context.Background(), event)

	return result, err
}

// -- Caching Decorator --

// DecisionCache stores check decisions under opaque keys. Implementations
// include the in-memory cache below and the redis-backed cache in the
// persistence package.
type DecisionCache interface {
	// Get returns the cached decision and whether one was found.
	Get(ctx context.Context, key string) (allowed bool, found bool, err error)

	// Set caches a decision for ttl.
	Set(ctx context.Context, key string, allowed bool, ttl time.Duration) error

	// Purge drops every cached decision.
	Purge(ctx context.Context) error
}

// CachedChecker caches definitive decisions for a TTL. Depth-exhausted
// results and errors are never cached: both may resolve differently on the
// next call. Writers in the same process should call Invalidate after
// mutating the tuple graph; the TTL bounds staleness for everyone else
// (the engine is eventually consistent by contract).
type CachedChecker struct {
	next  CheckEngine
	cache DecisionCache
	ttl   time.Duration
}

// NewCachedChecker wraps a check engine with a decision cache.
func NewCachedChecker(next CheckEngine, cache DecisionCache, ttl time.Duration) *CachedChecker {
	return &CachedChecker{next: next, cache: cache, ttl: ttl}
}

func (m *CachedChecker) Check(ctx context.Context, namespaceName, object, relation, subjectID string, maxDepth int) (CheckResult, error) {
	key := decisionKey(namespaceName, object, relation, subjectID, maxDepth)

	allowed, found, err := m.cache.Get(ctx, key)
	if err == nil && found {
		return CheckResult{Allowed: allowed}, nil
	}
	// A cache failure degrades to a direct check.

	result, err := m.next.Check(ctx, namespaceName, object, relation, subjectID, maxDepth)
	if err != nil {
		return result, err
	}

	if !result.DepthExhausted {
		_ = m.cache.Set(ctx, key, result.Allowed, m.ttl)
	}
	return result, nil
}

// Invalidate drops all cached decisions. Call after tuple writes.
func (m *CachedChecker) Invalidate(ctx context.Context) error {
	return m.cache.Purge(ctx)
}

func decisionKey(namespaceName, object, relation, subjectID string, maxDepth int) string {
	raw := namespaceName + "\x00" + object + "\x00" + relation + "\x00" + subjectID + "\x00" + strconv.Itoa(maxDepth)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// MemoryDecisionCache is a process-local DecisionCache.
type MemoryDecisionCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	allowed   bool
	expiresAt time.Time
}

// NewMemoryDecisionCache creates an empty in-memory decision cache.
func NewMemoryDecisionCache() *MemoryDecisionCache {
	return &MemoryDecisionCache{entries: make(map[string]cacheEntry)}
}

func (c *MemoryDecisionCache) Get(ctx context.Context, key string) (bool, bool, error) {
	c.mu.RLock()
	entry, found := c.entries[key]
	c.mu.RUnlock()

	if !found {
		return false, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		// Evict lazily so a varied key stream cannot grow the map
		// without bound between purges.
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && time.Now().After(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return false, false, nil
	}
	return entry.allowed, true, nil
}

func (c *MemoryDecisionCache) Set(ctx context.Context, key string, allowed bool, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = cacheEntry{allowed: allowed, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryDecisionCache) Purge(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
	return nil
}

// Compile-time interface checks
var (
	_ CheckEngine   = (*AuditedChecker)(nil)
	_ CheckEngine   = (*CachedChecker)(nil)
	_ DecisionCache = (*MemoryDecisionCache)(nil)
)
