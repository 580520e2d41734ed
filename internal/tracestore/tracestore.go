// Package tracestore implements the TraceStore component: a bounded,
// TTL-and-LRU-evicted map of trace payloads for later paging by `hits`.
// Grounded on original_source/trace_store.py's OrderedDict-based
// TraceStore (move-to-end on access, popitem(last=False) eviction), ported
// onto github.com/hashicorp/golang-lru/v2 the way the teacher's
// internal/searcher/searcher.go uses the same library for its result
// cache, plus github.com/google/uuid for trace-id generation (mirroring
// uuid.uuid4().hex).
package tracestore

import (
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/dshills/manualcore/internal/coreports"
)

// Payload is the TracePayload spec.md §3 defines: trace_id, manual_id,
// applied diagnostics, candidates, and the paged sub-lists hits() serves.
type Payload map[string]any

type entry struct {
	payload   Payload
	manualID  string
	createdAt time.Time
}

// Store is the TraceStore: single mutex, O(1) amortized critical sections,
// no I/O inside them, per spec.md §5.
type Store struct {
	mu      sync.Mutex
	cache   *lru.Cache[string, *entry]
	ttl     time.Duration
	clock   coreports.Clock
	idGen   coreports.IDGenerator
}

// DefaultIDGenerator generates trace ids with google/uuid, matching
// uuid.uuid4().hex in the Python predecessor.
type DefaultIDGenerator struct{}

func (DefaultIDGenerator) NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// New builds a Store with the given LRU cap and TTL.
func New(maxKeep int, ttl time.Duration, clock coreports.Clock, idGen coreports.IDGenerator) *Store {
	if maxKeep < 1 {
		maxKeep = 1
	}
	c, _ := lru.New[string, *entry](maxKeep)
	if clock == nil {
		clock = coreports.SystemClock{}
	}
	if idGen == nil {
		idGen = DefaultIDGenerator{}
	}
	return &Store{cache: c, ttl: ttl, clock: clock, idGen: idGen}
}

func (s *Store) expired(e *entry) bool {
	return s.ttl > 0 && s.clock.Now().Sub(e.createdAt) > s.ttl
}

// Create inserts payload under manualID and returns a fresh trace id.
func (s *Store) Create(manualID string, payload Payload) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.idGen.NewID()
	s.cache.Add(id, &entry{payload: payload, manualID: manualID, createdAt: s.clock.Now()})
	return id
}

// Get returns the trace's payload, or nil if it never existed or has
// expired. Lookup by an expired or unknown id must never fall back to a
// fresh scan (spec.md §4.10).
func (s *Store) Get(traceID string) Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cache.Get(traceID)
	if !ok {
		return nil
	}
	if s.expired(e) {
		s.cache.Remove(traceID)
		return nil
	}
	return e.payload
}

// DropManual evicts every trace tagged with manualID, returning the count
// dropped — used by invalidate(manual_id).
func (s *Store) DropManual(manualID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range s.cache.Keys() {
		e, ok := s.cache.Peek(id)
		if ok && e.manualID == manualID {
			s.cache.Remove(id)
			n++
		}
	}
	return n
}
