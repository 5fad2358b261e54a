package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/pj/core/measure"
	"github.com/huangsam/pj/internal/contract"
	"github.com/huangsam/pj/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cacheTTL is how long a cached annotation stays valid.
const cacheTTL = 30 * 24 * time.Hour

// CachingAnnotator serves annotations for previously seen content from the cache
// store and records fresh ones. Failures are never cached.
type CachingAnnotator struct {
	Inner contract.Annotator
	Store contract.CacheStore
	Now   func() time.Time
}

var _ contract.Annotator = &CachingAnnotator{} // Compile-time check

// NewCachingAnnotator wraps inner when a cache store is configured, otherwise returns inner.
func NewCachingAnnotator(inner contract.Annotator, mgr contract.StoreManager) contract.Annotator {
	if inner == nil || mgr == nil {
		return inner
	}
	store := mgr.GetCacheStore()
	if store == nil {
		return inner
	}
	return &CachingAnnotator{Inner: inner, Store: store, Now: time.Now}
}

// Annotate implements contract.Annotator.
func (c *CachingAnnotator) Annotate(ctx context.Context, path string, content []byte) (*schema.AIAnalysis, error) {
	key := generateCacheKey(c.Inner.Model(), content)

	// Check for cache hit
	if result := c.checkCacheHit(key); result != nil {
		return result, nil
	}

	// Cache miss: compute and store
	result, err := c.Inner.Annotate(ctx, path, content)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(result); err == nil {
		if err := c.Store.Set(key, data, currentCacheVersion, c.now().Unix()); err != nil {
			contract.LogWarn(fmt.Sprintf("Failed to cache annotation for %s", path), err)
		}
	}
	return result, nil
}

// Summarize implements contract.Annotator. Project insights are not cached.
func (c *CachingAnnotator) Summarize(ctx context.Context, files []schema.FileRecord) (*schema.ProjectInsights, error) {
	return c.Inner.Summarize(ctx, files)
}

// Model implements contract.Annotator.
func (c *CachingAnnotator) Model() string {
	return c.Inner.Model()
}

// checkCacheHit attempts to retrieve and validate a cached result
func (c *CachingAnnotator) checkCacheHit(key string) *schema.AIAnalysis {
	data, version, ts, err := c.Store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || c.now().Sub(time.Unix(ts, 0)) > cacheTTL {
		return nil
	}
	var result schema.AIAnalysis
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return &result
}

func (c *CachingAnnotator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// generateCacheKey creates a unique key from the model and the content digest
func generateCacheKey(model string, content []byte) string {
	key := fmt.Sprintf("%s:%s", model, measure.Hash(content))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
