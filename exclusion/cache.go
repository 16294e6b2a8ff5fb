package exclusion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// DECISION CACHE - Skip the classifier when the inputs did not change
// =============================================================================

// RulesetVersion is folded into the cache fingerprint; bumping it
// invalidates every cached decision set after a rule change.
const RulesetVersion = "v1"

// CacheStore persists classifier decision sets keyed by input fingerprint.
// store/sqlite provides the durable implementation.
type CacheStore interface {
	Get(ctx context.Context, key string) (*DecisionSet, bool, error)
	Put(ctx context.Context, key string, decisions *DecisionSet) error
}

// Fingerprint hashes the distinct-value set together with the ruleset
// version. Values arrive sorted from ExtractDistinct, so identical worker
// populations always produce the same key.
func Fingerprint(values DistinctValues) string {
	payload, _ := json.Marshal(struct {
		Version string `json:"version"`
		Values  DistinctValues
	}{RulesetVersion, values})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// MemoryCache is the in-process CacheStore, used in tests and when no
// cache path is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*DecisionSet
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]*DecisionSet)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (*DecisionSet, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.entries[key]
	return ds, ok, nil
}

func (m *MemoryCache) Put(_ context.Context, key string, decisions *DecisionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = decisions
	return nil
}

// CachingClassifier consults the store before delegating. Cache failures
// degrade to a direct classification; a classification failure is never
// masked by the cache.
type CachingClassifier struct {
	inner Classifier
	store CacheStore
	log   *zap.Logger
}

func WithCache(inner Classifier, store CacheStore, log *zap.Logger) *CachingClassifier {
	return &CachingClassifier{inner: inner, store: store, log: log}
}

func (c *CachingClassifier) Name() string { return c.inner.Name() + "+cache" }

func (c *CachingClassifier) Classify(ctx context.Context, values DistinctValues) (*DecisionSet, error) {
	key := Fingerprint(values)

	cached, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("decision cache read failed, classifying directly", zap.Error(err))
	} else if ok {
		if err := cached.Validate(); err == nil {
			c.log.Info("decision cache hit", zap.String("fingerprint", key[:12]))
			return cached, nil
		}
		c.log.Warn("cached decision set malformed, reclassifying",
			zap.String("fingerprint", key[:12]))
	}

	decisions, err := c.inner.Classify(ctx, values)
	if err != nil {
		return nil, err
	}
	if err := c.store.Put(ctx, key, decisions); err != nil {
		c.log.Warn("decision cache write failed", zap.Error(err))
	}
	return decisions, nil
}
