package docstore

import (
	"context"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/manualcore/internal/coreports"
)

// ManualNode pairs an extracted Node with its rendered body text, the way
// SparseIndex and LexicalSignals consume it.
type ManualNode struct {
	Node
	FileType string // "md" or "json"
	Text     string // body text (node slice for md, whole file for json)
}

// Store is the DocumentStore component: it turns a coreports.ContentProvider
// into per-manual node lists, and maintains a best-effort dirty-set fed by
// an fsnotify watcher ahead of the authoritative fingerprint recompute
// (spec.md §5: the fingerprint check at request entry remains the source of
// truth; fsnotify only shortens staleness).
type Store struct {
	provider coreports.ContentProvider

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	dirty   map[string]bool
	watched map[string]bool
}

// New builds a Store over provider. The fsnotify watcher is best-effort:
// if it fails to start, the store still works via fingerprint revalidation
// alone.
func New(provider coreports.ContentProvider) *Store {
	s := &Store{
		provider: provider,
		dirty:    make(map[string]bool),
		watched:  make(map[string]bool),
	}
	if w, err := fsnotify.NewWatcher(); err == nil {
		s.watcher = w
		go s.drainEvents()
	}
	return s
}

func (s *Store) drainEvents() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.markDirtyFromPath(ev.Name)
		case _, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (s *Store) markDirtyFromPath(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for manualID := range s.watched {
		if strings.Contains(p, manualID) {
			s.dirty[manualID] = true
		}
	}
}

// WatchManual begins (or no-ops if already watching) a best-effort watch on
// manualID's root, if a watcher is available.
func (s *Store) WatchManual(manualID, rootDir string) {
	if s.watcher == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watched[manualID] {
		return
	}
	s.watched[manualID] = true
	_ = s.watcher.Add(rootDir)
}

// ConsumeDirtyHint reports and clears whether manualID has a pending
// filesystem-event hint. Callers should still trust the authoritative
// fingerprint, not this flag, as the sole invalidation signal.
func (s *Store) ConsumeDirtyHint(manualID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dirty := s.dirty[manualID]
	delete(s.dirty, manualID)
	return dirty
}

// Close stops the watcher.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}

// Nodes returns every ManualNode under manualID, in file-then-line order.
func (s *Store) Nodes(ctx context.Context, manualID string) ([]ManualNode, error) {
	files, err := s.provider.Files(ctx, manualID)
	if err != nil {
		return nil, err
	}
	var out []ManualNode
	for _, mf := range files {
		data, _, err := s.provider.ReadFile(ctx, manualID, mf.Path)
		if err != nil {
			continue
		}
		text := string(data)
		if mf.FileType == "md" {
			lines := strings.Split(text, "\n")
			for _, n := range ParseMarkdownTOC(mf.Path, text) {
				out = append(out, ManualNode{Node: n, FileType: "md", Text: NodeBody(lines, n)})
			}
		} else {
			out = append(out, ManualNode{
				Node: Node{
					Kind:      "json_file",
					NodeID:    mf.Path + "#file",
					Path:      mf.Path,
					Title:     baseName(mf.Path),
					Level:     1,
					LineStart: 1,
					LineEnd:   JSONLineCount(text),
				},
				FileType: "json",
				Text:     text,
			})
		}
	}
	return out, nil
}

func baseName(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
