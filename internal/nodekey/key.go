// Package nodekey provides the structured occurrence keys used by the tree
// view. A task id may appear several times once sub-workflows are expanded,
// so tree elements cannot be keyed by task id alone; a Key is the path of
// task ids from the root to one occurrence, which is stable across re-renders
// as long as the occurrence's tree path persists.
package nodekey

import (
	"fmt"
	"strings"
)

// separator joins path segments in the canonical string form. Task ids must
// not contain it.
const separator = "/"

// Key is the structured identifier of one tree-node occurrence.
type Key struct {
	path []string
}

// New returns a single-segment key.
func New(name string) Key {
	return Key{path: []string{name}}
}

// Child returns the key of a child occurrence under k.
func (k Key) Child(name string) Key {
	path := make([]string, 0, len(k.path)+1)
	path = append(path, k.path...)
	path = append(path, name)
	return Key{path: path}
}

// Leaf returns the final segment: the occurrence's task id. Empty for the
// zero key.
func (k Key) Leaf() string {
	if len(k.path) == 0 {
		return ""
	}
	return k.path[len(k.path)-1]
}

// Depth returns the number of segments in the path.
func (k Key) Depth() int {
	return len(k.path)
}

// String serializes the key into its canonical path representation.
func (k Key) String() string {
	return strings.Join(k.path, separator)
}

// Parse rebuilds a key from its canonical string representation.
func Parse(raw string) (Key, error) {
	if raw == "" {
		return Key{}, fmt.Errorf("occurrence key cannot be empty")
	}
	parts := strings.Split(raw, separator)
	for _, p := range parts {
		if p == "" {
			return Key{}, fmt.Errorf("occurrence key %q contains empty segment", raw)
		}
	}
	return Key{path: parts}, nil
}

// Valid reports whether a task id can be used as a key segment.
func Valid(name string) bool {
	return name != "" && !strings.Contains(name, separator)
}
