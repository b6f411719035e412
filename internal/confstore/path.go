package confstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors.
var (
	ErrMalformedPath  = errors.New("malformed path")
	ErrShapeMismatch  = errors.New("path conflicts with existing value")
	ErrNotArray       = errors.New("not an array")
	ErrIndexRange     = errors.New("index out of range")
	ErrMalformedPatch = errors.New("patch must be an object")
)

// PatchError reports an entry of a bulk merge that could not be applied.
type PatchError struct {
	Path string
	Err  error
}

func (e *PatchError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *PatchError) Unwrap() error { return e.Err }

// PatchErrors returns the entries a bulk merge skipped, in the order they
// were reported.
func PatchErrors(err error) []*PatchError {
	var out []*PatchError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case *PatchError:
			out = append(out, x)
		case interface{ Unwrap() []error }:
			for _, inner := range x.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// Separator joins path segments.
const Separator = "."

// JoinPath builds a dot-path from segments.
func JoinPath(segs ...string) string {
	return strings.Join(segs, Separator)
}

// SplitPath splits a dot-path and rejects empty segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrMalformedPath)
	}
	segs := strings.Split(path, Separator)
	for i, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: empty segment %d in %q", ErrMalformedPath, i, path)
		}
	}
	return segs, nil
}

// asIndex reports whether seg is a non-negative decimal integer.
func asIndex(seg string) (int, bool) {
	if seg == "" {
		return 0, false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(seg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Flatten projects every leaf of n onto its dot-joined path.
func Flatten(n *Node) map[string]Leaf {
	out := make(map[string]Leaf)
	flattenInto(out, "", n)
	return out
}

func flattenInto(out map[string]Leaf, prefix string, n *Node) {
	if n == nil {
		return
	}
	switch n.kind {
	case KindObject:
		for _, k := range n.keys {
			flattenInto(out, join(prefix, k), n.fields[k])
		}
	case KindArray:
		for i, item := range n.items {
			flattenInto(out, join(prefix, strconv.Itoa(i)), item)
		}
	case KindLeaf:
		out[prefix] = n.leaf
	}
}

func join(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + Separator + seg
}

// SetPath writes leaf at path under root, creating or replacing the
// intermediate containers the path requires.
func SetPath(root *Node, path string, leaf Leaf) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	return setNode(root, segs, LeafNode(leaf), false)
}

// Unflatten rebuilds a tree from a flat projection.
func Unflatten(flat map[string]Leaf) (*Node, error) {
	root := NewObject()
	for _, p := range sortedPaths(flat) {
		if err := SetPath(root, p, flat[p]); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// MaxIndexGap is how far past the end of an array a direct write may land.
// The skipped slots are filled with nulls. Merges never leave gaps.
const MaxIndexGap = 64

// setNode walks segs from root. For each segment but the last the kind of
// container is decided by the next segment: numeric means array. In strict
// mode an existing non-null value of the wrong kind is an error instead of
// being replaced, and array indices may only address an existing item or
// the next free slot.
func setNode(root *Node, segs []string, val *Node, strict bool) error {
	if root == nil || root.kind != KindObject {
		return fmt.Errorf("%w: root is not an object", ErrShapeMismatch)
	}
	gap := MaxIndexGap
	if strict {
		gap = 0
	}
	if err := checkIndices(root, segs, gap); err != nil {
		return err
	}
	cur := root
	for i := 0; i < len(segs)-1; i++ {
		want := KindObject
		if _, ok := asIndex(segs[i+1]); ok {
			want = KindArray
		}
		child := childOf(cur, segs[i])
		if child == nil || child.kind != want {
			if strict && !child.isNull() {
				return fmt.Errorf("%w: %s is %s, need %s",
					ErrShapeMismatch, JoinPath(segs[:i+1]...), child.kind, want)
			}
			if want == KindArray {
				child = NewArray()
			} else {
				child = NewObject()
			}
			if err := putChild(cur, segs[i], child); err != nil {
				return err
			}
		}
		cur = child
	}
	last := segs[len(segs)-1]
	if strict && val.kind == KindLeaf {
		if existing := childOf(cur, last); existing != nil && existing.kind != KindLeaf {
			return fmt.Errorf("%w: %s is %s, need leaf", ErrShapeMismatch, JoinPath(segs...), existing.kind)
		}
	}
	return putChild(cur, last, val)
}

// checkIndices rejects array indices more than gap slots past the end of
// the array they would land in, before anything is written. Containers the
// walk would create count as empty.
func checkIndices(root *Node, segs []string, gap int) error {
	cur := root
	for i, seg := range segs {
		size := 0
		if cur != nil {
			if cur.kind != KindArray {
				size = -1
			} else {
				size = len(cur.items)
			}
		}
		if idx, ok := asIndex(seg); ok && size >= 0 && idx > size+gap {
			return fmt.Errorf("%w: %s (length %d)", ErrIndexRange, JoinPath(segs[:i+1]...), size)
		}
		if i == len(segs)-1 {
			break
		}
		want := KindObject
		if _, ok := asIndex(segs[i+1]); ok {
			want = KindArray
		}
		var child *Node
		if cur != nil {
			child = childOf(cur, seg)
		}
		if child == nil || child.kind != want {
			child = nil
		}
		cur = child
	}
	return nil
}

func childOf(n *Node, seg string) *Node {
	switch n.kind {
	case KindObject:
		return n.fields[seg]
	case KindArray:
		if i, ok := asIndex(seg); ok && i < len(n.items) {
			return n.items[i]
		}
	}
	return nil
}

func putChild(n *Node, seg string, child *Node) error {
	switch n.kind {
	case KindObject:
		n.Set(seg, child)
		return nil
	case KindArray:
		i, ok := asIndex(seg)
		if !ok {
			return fmt.Errorf("%w: %q is not an index", ErrShapeMismatch, seg)
		}
		n.put(i, child)
		return nil
	}
	return fmt.Errorf("%w: cannot descend into leaf", ErrShapeMismatch)
}

// Lookup returns the node at path, or nil.
func Lookup(root *Node, path string) *Node {
	segs, err := SplitPath(path)
	if err != nil {
		return nil
	}
	cur := root
	for _, s := range segs {
		if cur == nil {
			return nil
		}
		cur = childOf(cur, s)
	}
	return cur
}
