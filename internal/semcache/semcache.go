// Package semcache implements the SemanticCache component: a TTL/LRU
// cache of trace payloads keyed by manual fingerprint + normalized query +
// required terms + budget + scope, with guard-revalidation on stored
// summary quality. Grounded on original_source/semantic_cache.py's
// SemanticCacheStore (same key-join-then-hash technique, same TTL/LRU
// cleanup order) and on the teacher's internal/searcher/searcher.go cache
// (LRU via hashicorp/golang-lru/v2, sha256-keyed), generalized from a
// single global cache to the manual-fingerprint-aware key spec.md §4.9
// requires.
package semcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/manualcore/internal/coreports"
	"github.com/dshills/manualcore/internal/tracestore"
)

// Mode is the closed set of outcomes a lookup can report.
type Mode string

const (
	ModeBypass          Mode = "bypass"
	ModeExact           Mode = "exact"
	ModeSemantic        Mode = "semantic"
	ModeMiss            Mode = "miss"
	ModeGuardRevalidate Mode = "guard_revalidate"
)

// Key bundles the fields spec.md §4.9 folds into the cache key.
type Key struct {
	ManualsFingerprint string
	NormalizedQuery    string
	RequiredTerms      []string
	MaxCandidates      int
	TimeMs             int
	ScopeBits          string
}

// Hash renders the key the way original_source joins fields with \x1f
// before hashing, extended with the extra fields (required_terms, budget)
// spec.md's richer key formula adds.
func (k Key) Hash() string {
	terms := append([]string(nil), k.RequiredTerms...)
	sort.Strings(terms)
	h := sha256.New()
	fmt.Fprintf(h, "%s\x1f%s\x1f%v\x1f%d\x1f%d\x1f%s",
		k.ManualsFingerprint, k.NormalizedQuery, terms, k.MaxCandidates, k.TimeMs, k.ScopeBits)
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	payload   tracestore.Payload
	createdAt time.Time
	gapCount      int
	conflictCount int
}

// Cache is the SemanticCache: process-memory only, never persisted.
type Cache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *entry]
	ttl   time.Duration
	clock coreports.Clock

	maxSummaryGap      int
	maxSummaryConflict int
}

// New builds a Cache with the given LRU cap and TTL. maxSummaryGap/
// maxSummaryConflict of -1 disables the corresponding guard, per spec.md
// §6's documented defaults.
func New(maxKeep int, ttl time.Duration, maxSummaryGap, maxSummaryConflict int, clock coreports.Clock) *Cache {
	if maxKeep < 1 {
		maxKeep = 1
	}
	c, _ := lru.New[string, *entry](maxKeep)
	if clock == nil {
		clock = coreports.SystemClock{}
	}
	return &Cache{cache: c, ttl: ttl, clock: clock, maxSummaryGap: maxSummaryGap, maxSummaryConflict: maxSummaryConflict}
}

func (c *Cache) expired(e *entry) bool {
	return c.ttl > 0 && c.clock.Now().Sub(e.createdAt) > c.ttl
}

// Lookup returns the cached payload and the mode that produced it. A hit
// whose stored summary's gap or conflict count exceeds its configured
// ceiling is treated as a miss (ModeGuardRevalidate) and the entry is
// evicted so the caller's fresh result replaces it.
func (c *Cache) Lookup(key Key) (tracestore.Payload, Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := key.Hash()
	e, ok := c.cache.Get(hash)
	if !ok {
		return nil, ModeMiss
	}
	if c.expired(e) {
		c.cache.Remove(hash)
		return nil, ModeMiss
	}
	if c.maxSummaryGap >= 0 && e.gapCount > c.maxSummaryGap {
		c.cache.Remove(hash)
		return nil, ModeGuardRevalidate
	}
	if c.maxSummaryConflict >= 0 && e.conflictCount > c.maxSummaryConflict {
		c.cache.Remove(hash)
		return nil, ModeGuardRevalidate
	}
	return e.payload, ModeExact
}

// Put inserts payload under key, recording the gap/conflict counts the
// guard-revalidation check above reads back.
func (c *Cache) Put(key Key, payload tracestore.Payload, gapCount, conflictCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key.Hash(), &entry{
		payload:       payload,
		createdAt:     c.clock.Now(),
		gapCount:      gapCount,
		conflictCount: conflictCount,
	})
}

// DropFingerprint evicts every entry whose key was derived from
// fingerprint — used by invalidate(manual_id) once the manual's current
// fingerprint is known. Because the key is a one-way hash, the entry's
// fingerprint is read from the "manuals_fingerprint" field of its stored
// payload.
func (c *Cache) DropFingerprint(fingerprint string) int {
	// Keys are opaque hashes, so this is an O(n) full-cache sweep over the
	// stored payloads rather than a lookup in a second index.
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.cache.Keys() {
		e, ok := c.cache.Peek(k)
		if !ok {
			continue
		}
		if fp, _ := e.payload["manuals_fingerprint"].(string); fp == fingerprint {
			c.cache.Remove(k)
			n++
		}
	}
	return n
}
