// Package docstore implements the DocumentStore component: discovery of
// manual directories, enumeration of indexable files, markdown heading-node
// extraction, and content fingerprinting. Grounded on
// original_source/manual_index.py (discover_manual_ids, list_manual_files,
// parse_markdown_toc, json_line_count) and on the path-safety checks in
// original_source/path_guard.py.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/manualcore/internal/coreerrors"
	"github.com/dshills/manualcore/internal/coreports"
)

// Filesystem is the production coreports.ContentProvider: a plain directory
// tree under Root, one subdirectory per manual.
type Filesystem struct {
	Root string
}

// NewFilesystem builds a Filesystem provider rooted at root.
func NewFilesystem(root string) *Filesystem {
	return &Filesystem{Root: root}
}

func (f *Filesystem) manualDir(manualID string) string {
	return filepath.Join(f.Root, manualID)
}

func (f *Filesystem) ManualExists(ctx context.Context, manualID string) bool {
	info, err := os.Stat(f.manualDir(manualID))
	return err == nil && info.IsDir()
}

func (f *Filesystem) Manuals(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Files walks manualID's directory, following original_source's symlink
// rejection for both directories and leaf files, and keeps only .md/.json
// suffixes.
func (f *Filesystem) Files(ctx context.Context, manualID string) ([]coreports.ManualFile, error) {
	root := f.manualDir(manualID)
	info, err := os.Lstat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var rows []coreports.ManualFile
	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, e := range entries {
			full := filepath.Join(dir, e.Name())
			lst, err := os.Lstat(full)
			if err != nil {
				continue
			}
			if lst.Mode()&os.ModeSymlink != 0 {
				continue
			}
			if e.IsDir() {
				if err := walk(full); err != nil {
					return err
				}
				continue
			}
			suffix := strings.ToLower(filepath.Ext(e.Name()))
			if suffix != ".md" && suffix != ".json" {
				continue
			}
			rel, err := filepath.Rel(root, full)
			if err != nil {
				continue
			}
			rows = append(rows, coreports.ManualFile{
				ManualID: manualID,
				Path:     filepath.ToSlash(rel),
				FileType: strings.TrimPrefix(suffix, "."),
			})
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Path < rows[j].Path })
	return rows, nil
}

func (f *Filesystem) ReadFile(ctx context.Context, manualID, relPath string) ([]byte, coreports.FileStat, error) {
	full := filepath.Join(f.manualDir(manualID), relPath)
	info, err := os.Lstat(full)
	if err != nil {
		return nil, coreports.FileStat{}, coreerrors.New(coreerrors.CodeNotFound, "target not found", map[string]any{"path": relPath})
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, coreports.FileStat{}, coreerrors.New(coreerrors.CodeForbidden, "symlink access is not allowed", map[string]any{"path": relPath})
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, coreports.FileStat{}, err
	}
	return data, coreports.FileStat{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Fingerprint computes a stable hash over (path, size, mtime) of every
// indexable file under manualID — the content fingerprint spec.md §3
// requires: it changes iff an indexable file changes.
func Fingerprint(ctx context.Context, provider coreports.ContentProvider, manualID string) (string, error) {
	files, err := provider.Files(ctx, manualID)
	if err != nil {
		return "", err
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	h := sha256.New()
	for _, mf := range files {
		_, stat, err := provider.ReadFile(ctx, manualID, mf.Path)
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "%s\x1f%d\x1f%d\x1e", mf.Path, stat.Size, stat.ModTime.UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// JSONLineCount re-serializes JSON pretty-printed to count lines the way a
// reader would see them rendered, falling back to the raw line count when
// the file does not parse.
func JSONLineCount(text string) int {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return max(1, strings.Count(text, "\n")+1)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return max(1, strings.Count(text, "\n")+1)
	}
	return max(1, strings.Count(string(pretty), "\n")+1)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
