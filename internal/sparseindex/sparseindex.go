// Package sparseindex implements the per-manual inverted index and BM25
// scorer. Posting shape is grounded on the reference corpus's search
// engines (other_examples' gcbaptista PostingEntry and the
// Distributed-Search-Analytics-Platform Posting: doc id, frequency,
// positions); the BM25 formula is ported verbatim from
// original_source/sparse_index.py's bm25_scores() (the query-coverage
// correction is applied in internal/gates), since
// neither example repo's search engine (Bleve, SQLite FTS5) exposes the
// raw positions this index's LexicalSignals stage needs — see DESIGN.md.
package sparseindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/manualcore/internal/docstore"
	"github.com/dshills/manualcore/internal/normalize"
	"github.com/dshills/manualcore/internal/tokenize"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Posting is one term's occurrence within one node.
type Posting struct {
	NodeID    string
	TF        int
	Positions []int // token index within the node's tokenized text
}

// Doc holds the per-node statistics the BM25 scorer needs.
type Doc struct {
	Node     docstore.ManualNode
	Tokens   []tokenize.Token
	DocLen   int
	TermFreq map[string]int
}

// Index is the built inverted index for a single (manual, fingerprint).
type Index struct {
	Fingerprint string
	Docs        map[string]*Doc // node_id -> doc
	Postings    map[string][]Posting
	DF          map[string]int // document frequency per term
	AvgDocLen   float64
	N           int // number of docs
}

// PostingsOf returns the postings for a normalized term, or nil.
func (idx *Index) PostingsOf(term string) []Posting {
	return idx.Postings[term]
}

// IDF computes the BM25 inverse document frequency for a term.
func (idx *Index) IDF(term string) float64 {
	df := idx.DF[term]
	if idx.N == 0 {
		return 0
	}
	return math.Log(1 + (float64(idx.N)-float64(df)+0.5)/(float64(df)+0.5))
}

// DFRatio returns the fraction of documents containing term.
func (idx *Index) DFRatio(term string) float64 {
	if idx.N == 0 {
		return 0
	}
	return float64(idx.DF[term]) / float64(idx.N)
}

// ScoreBM25 scores nodeID against queryTerms using the standard BM25
// formula (k1=1.2, b=0.75).
func (idx *Index) ScoreBM25(queryTerms []string, nodeID string) float64 {
	doc, ok := idx.Docs[nodeID]
	if !ok {
		return 0
	}
	var score float64
	for _, term := range queryTerms {
		tf := doc.TermFreq[term]
		if tf == 0 {
			continue
		}
		idf := idx.IDF(term)
		denom := float64(tf) + bm25K1*(1-bm25B+bm25B*(float64(doc.DocLen)/idx.AvgDocLen))
		score += idf * (float64(tf) * (bm25K1 + 1)) / denom
	}
	return score
}

// Build constructs an Index from a manual's nodes. Term frequency excludes
// the heading line itself for markdown nodes, matching
// original_source/sparse_index.py's node_lines[1:] slice.
func Build(nodes []docstore.ManualNode, fingerprint string) *Index {
	idx := &Index{
		Fingerprint: fingerprint,
		Docs:        make(map[string]*Doc, len(nodes)),
		Postings:    make(map[string][]Posting),
		DF:          make(map[string]int),
	}
	var totalLen int
	for _, n := range nodes {
		bodyText := n.Text
		if n.FileType == "md" {
			bodyText = stripHeadingLine(bodyText)
		}
		normalized := normalize.Text(bodyText)
		tokens := tokenize.Tokenize(normalized)
		termFreq := make(map[string]int)
		positions := make(map[string][]int)
		for _, tok := range tokens {
			termFreq[tok.Text]++
			positions[tok.Text] = append(positions[tok.Text], tok.Index)
		}
		docLen := len(tokens)
		if docLen == 0 {
			docLen = 1
		}
		doc := &Doc{Node: n, Tokens: tokens, DocLen: docLen, TermFreq: termFreq}
		idx.Docs[n.NodeID] = doc
		totalLen += docLen
		for term, tf := range termFreq {
			idx.DF[term]++
			idx.Postings[term] = append(idx.Postings[term], Posting{NodeID: n.NodeID, TF: tf, Positions: positions[term]})
		}
	}
	idx.N = len(nodes)
	if idx.N > 0 {
		idx.AvgDocLen = float64(totalLen) / float64(idx.N)
	} else {
		idx.AvgDocLen = 1
	}
	for term := range idx.Postings {
		sort.Slice(idx.Postings[term], func(i, j int) bool {
			return idx.Postings[term][i].NodeID < idx.Postings[term][j].NodeID
		})
	}
	return idx
}

func stripHeadingLine(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			return text[i+1:]
		}
	}
	return ""
}

// Manager owns one Index per manual, rebuilding on fingerprint change.
// Builders are serialized per manual by a per-manual read-write lock
// (readers shared, one writer at a time, per spec.md §5 and §9); concurrent
// first-build requests for the same manual collapse via singleflight,
// grounded on the teacher's build-once lock in internal/indexer/lock.go,
// generalized from a single global build lock to one group keyed by
// manual id.
type Manager struct {
	store *docstore.Store

	mu      sync.RWMutex
	indexes map[string]*Index
	locks   map[string]*sync.RWMutex
	group   singleflight.Group
}

// NewManager builds a Manager over store.
func NewManager(store *docstore.Store) *Manager {
	return &Manager{
		store:   store,
		indexes: make(map[string]*Index),
		locks:   make(map[string]*sync.RWMutex),
	}
}

func (m *Manager) lockFor(manualID string) *sync.RWMutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[manualID]
	if !ok {
		l = &sync.RWMutex{}
		m.locks[manualID] = l
	}
	return l
}

// Get returns the current Index for manualID, (re)building it if the
// fingerprint has changed since the last build.
func (m *Manager) Get(ctx context.Context, manualID, fingerprint string) (*Index, error) {
	lock := m.lockFor(manualID)

	lock.RLock()
	m.mu.RLock()
	cur := m.indexes[manualID]
	m.mu.RUnlock()
	if cur != nil && cur.Fingerprint == fingerprint {
		lock.RUnlock()
		return cur, nil
	}
	lock.RUnlock()

	result, err, _ := m.group.Do(manualID+"\x1f"+fingerprint, func() (any, error) {
		lock.Lock()
		defer lock.Unlock()

		m.mu.RLock()
		cur := m.indexes[manualID]
		m.mu.RUnlock()
		if cur != nil && cur.Fingerprint == fingerprint {
			return cur, nil
		}

		nodes, err := m.store.Nodes(ctx, manualID)
		if err != nil {
			return nil, err
		}
		built := Build(nodes, fingerprint)

		m.mu.Lock()
		m.indexes[manualID] = built
		m.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Index), nil
}

// Invalidate drops manualID's built index, forcing a rebuild on next Get.
func (m *Manager) Invalidate(manualID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.indexes[manualID]
	delete(m.indexes, manualID)
	return existed
}
