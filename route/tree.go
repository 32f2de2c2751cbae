package route

import (
	"fmt"
	"strings"
)

// wildcardKey is the sentinel child key for parameterized segments.
const wildcardKey = "*"

// Tree is a segment-keyed trie over registered paths. Nodes live in an
// arena slice and reference children by index, so the structure stays
// read-only shareable once built.
type Tree struct {
	nodes []node
}

type node struct {
	// paramName is the segment as registered: the literal itself,
	// or the ":name" token for a wildcard.
	paramName string
	children  map[string]int
}

func NewTree() *Tree {
	return &Tree{
		nodes: []node{{children: make(map[string]int)}},
	}
}

// Insert adds a registered path. Parameterized segments (":name")
// insert under the wildcard key; registering two different parameter
// names at the same position is a configuration error.
func (t *Tree) Insert(path string) error {
	cur := 0
	for _, seg := range splitSegments(path) {
		key := seg
		if strings.HasPrefix(seg, ":") {
			key = wildcardKey
		}

		idx, ok := t.nodes[cur].children[key]
		if !ok {
			t.nodes = append(t.nodes, node{
				paramName: seg,
				children:  make(map[string]int),
			})
			idx = len(t.nodes) - 1
			t.nodes[cur].children[key] = idx
		} else if key == wildcardKey && t.nodes[idx].paramName != seg {
			return fmt.Errorf("conflicting route parameters %s and %s at the same position in %s",
				t.nodes[idx].paramName, seg, path)
		}
		cur = idx
	}
	return nil
}

// Resolve walks the tree one segment at a time: exact-literal children
// first, the wildcard child only when no literal matches. It returns
// the canonical route key plus the wildcard bindings, or ok=false when
// a segment has no continuation. Leading, trailing, and duplicate
// slashes are insignificant.
func (t *Tree) Resolve(path string) (string, map[string]string, bool) {
	cur := 0
	var key strings.Builder
	params := make(map[string]string)

	for _, seg := range splitSegments(path) {
		if idx, ok := t.nodes[cur].children[seg]; ok {
			key.WriteString(t.nodes[idx].paramName)
			cur = idx
			continue
		}
		if idx, ok := t.nodes[cur].children[wildcardKey]; ok {
			name := t.nodes[idx].paramName
			params[strings.TrimPrefix(name, ":")] = seg
			key.WriteString(name)
			cur = idx
			continue
		}
		return "", nil, false
	}

	return key.String(), params, true
}

// Size reports the number of nodes, the root included.
func (t *Tree) Size() int {
	return len(t.nodes)
}
