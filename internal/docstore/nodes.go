package docstore

import (
	"path"
	"regexp"
	"strconv"
	"strings"
)

var headingRE = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// Node is a searchable unit: a markdown heading section (including all
// descendant headings) or an entire JSON file, matching spec.md §3.
type Node struct {
	Kind      string // "heading" or "json_file"
	NodeID    string
	Path      string
	Title     string
	Level     int
	ParentID  string // "" means no parent
	LineStart int
	LineEnd   int
}

type heading struct {
	line  int
	level int
	title string
}

func computeLineEnds(lineCount int, headings []heading) []int {
	if len(headings) == 0 {
		return []int{lineCount}
	}
	ends := make([]int, len(headings))
	for i, h := range headings {
		end := lineCount
		for j := i + 1; j < len(headings); j++ {
			if headings[j].level <= h.level {
				end = headings[j].line - 1
				break
			}
		}
		if end < h.line {
			end = h.line
		}
		ends[i] = end
	}
	return ends
}

// ParseMarkdownTOC extracts heading nodes from a markdown file's text.
// Headingless files produce a single synthetic root node spanning the
// whole file, exactly as original_source/manual_index.py does.
func ParseMarkdownTOC(relativePath, text string) []Node {
	lines := strings.Split(text, "\n")
	var headings []heading
	for i, line := range lines {
		m := headingRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		headings = append(headings, heading{line: i + 1, level: len(m[1]), title: strings.TrimSpace(m[2])})
	}

	if len(headings) == 0 {
		stem := strings.TrimSuffix(path.Base(relativePath), path.Ext(relativePath))
		title := stem
		if title == "" {
			title = relativePath
		}
		lineEnd := len(lines)
		if lineEnd < 1 {
			lineEnd = 1
		}
		return []Node{{
			Kind:      "heading",
			NodeID:    relativePath + "#L1",
			Path:      relativePath,
			Title:     title,
			Level:     1,
			LineStart: 1,
			LineEnd:   lineEnd,
		}}
	}

	ends := computeLineEnds(len(lines), headings)
	var nodes []Node
	var stack []Node
	for i, h := range headings {
		for len(stack) > 0 && stack[len(stack)-1].Level >= h.level {
			stack = stack[:len(stack)-1]
		}
		parentID := ""
		if len(stack) > 0 {
			parentID = stack[len(stack)-1].NodeID
		}
		node := Node{
			Kind:      "heading",
			NodeID:    relativePath + "#L" + strconv.Itoa(h.line),
			Path:      relativePath,
			Title:     h.title,
			Level:     h.level,
			ParentID:  parentID,
			LineStart: h.line,
			LineEnd:   ends[i],
		}
		nodes = append(nodes, node)
		stack = append(stack, node)
	}
	return nodes
}

// NodeBody slices the body text for a node out of the file's lines,
// 1-indexed and inclusive, matching lines[line_start-1:line_end] in Python.
func NodeBody(lines []string, n Node) string {
	start := n.LineStart - 1
	if start < 0 {
		start = 0
	}
	end := n.LineEnd
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}
