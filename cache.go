package indiaquant

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

// CacheKey derives a content hash from the inputs of a computation.
// Identical inputs always hash to the same key, so a cached value can be
// reused across runs without staleness checks.
func CacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%d:%s|", len(p), p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// cacheKey identifies one estimation or frontier computation: the
// estimator settings, the asset set, and the estimation window.
func (e Estimator) cacheKey(tickers []string, rng Range) string {
	return CacheKey(
		fmt.Sprintf("%s/%d/%g/%g/%d/%d", e.Period, e.Compounding, e.Annualization, e.Decay, e.Fill, e.FillLimit),
		strings.Join(tickers, ","),
		rng.String(),
	)
}

// Cache memoizes return matrices and frontiers by content key. Safe for
// concurrent use. Values are stored as-is; both types are immutable once
// built, so sharing them is fine.
type Cache struct {
	mu        sync.RWMutex
	returns   map[string]*ReturnMatrix
	frontiers map[string]*Frontier
}

func NewCache() *Cache {
	return &Cache{
		returns:   make(map[string]*ReturnMatrix),
		frontiers: make(map[string]*Frontier),
	}
}

func (c *Cache) Returns(key string) (*ReturnMatrix, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rm, ok := c.returns[key]
	return rm, ok
}

func (c *Cache) PutReturns(key string, rm *ReturnMatrix) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.returns[key] = rm
}

// Frontier returns a cached frontier. Cancelled partial frontiers are
// never stored, so a hit is always a complete sweep.
func (c *Cache) Frontier(key string) (*Frontier, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.frontiers[key]
	return f, ok
}

func (c *Cache) PutFrontier(key string, f *Frontier) {
	if f.Cancelled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frontiers[key] = f
}

// Len reports the number of cached entries, return matrices plus frontiers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.returns) + len(c.frontiers)
}
