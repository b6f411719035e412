// Package confstore holds the in-progress configuration as a nested tree
// together with a flattened dot-path projection of its leaves.
package confstore

import (
	"slices"
)

// Kind is the variant tag of a Node.
type Kind uint8

const (
	KindObject Kind = iota
	KindArray
	KindLeaf
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "leaf"
	}
}

// Node is one element of a configuration tree: an object, an array or a
// scalar leaf. Object fields keep insertion order.
type Node struct {
	kind   Kind
	keys   []string
	fields map[string]*Node
	items  []*Node
	leaf   Leaf
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{kind: KindObject, fields: make(map[string]*Node)}
}

// NewArray returns an array node holding items.
func NewArray(items ...*Node) *Node {
	return &Node{kind: KindArray, items: items}
}

// LeafNode wraps a scalar.
func LeafNode(l Leaf) *Node {
	return &Node{kind: KindLeaf, leaf: l}
}

// Kind reports the variant.
func (n *Node) Kind() Kind { return n.kind }

// Leaf returns the scalar held by a leaf node.
func (n *Node) Leaf() (Leaf, bool) {
	if n == nil || n.kind != KindLeaf {
		return Leaf{}, false
	}
	return n.leaf, true
}

// Keys returns the object's field names in insertion order.
func (n *Node) Keys() []string {
	if n.kind != KindObject {
		return nil
	}
	return slices.Clone(n.keys)
}

// Get returns the named field of an object node.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.kind != KindObject {
		return nil, false
	}
	c, ok := n.fields[key]
	return c, ok
}

// Set assigns a field on an object node, keeping the original position of
// existing keys. It is a no-op on other kinds.
func (n *Node) Set(key string, child *Node) *Node {
	if n.kind != KindObject {
		return n
	}
	if _, ok := n.fields[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = child
	return n
}

// Delete removes a field from an object node.
func (n *Node) Delete(key string) {
	if n.kind != KindObject {
		return
	}
	if _, ok := n.fields[key]; !ok {
		return
	}
	delete(n.fields, key)
	n.keys = slices.DeleteFunc(n.keys, func(k string) bool { return k == key })
}

// Len returns the number of items of an array or fields of an object.
func (n *Node) Len() int {
	switch n.kind {
	case KindArray:
		return len(n.items)
	case KindObject:
		return len(n.keys)
	}
	return 0
}

// Index returns the i-th item of an array node.
func (n *Node) Index(i int) (*Node, bool) {
	if n == nil || n.kind != KindArray || i < 0 || i >= len(n.items) {
		return nil, false
	}
	return n.items[i], true
}

// Append adds items to an array node.
func (n *Node) Append(items ...*Node) *Node {
	if n.kind == KindArray {
		n.items = append(n.items, items...)
	}
	return n
}

// put stores child at index i, padding the array with nulls as needed.
func (n *Node) put(i int, child *Node) {
	for len(n.items) <= i {
		n.items = append(n.items, LeafNode(Null()))
	}
	n.items[i] = child
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindObject:
		c := &Node{kind: KindObject, keys: slices.Clone(n.keys), fields: make(map[string]*Node, len(n.fields))}
		for k, v := range n.fields {
			c.fields[k] = v.Clone()
		}
		return c
	case KindArray:
		c := &Node{kind: KindArray, items: make([]*Node, len(n.items))}
		for i, v := range n.items {
			c.items[i] = v.Clone()
		}
		return c
	default:
		return &Node{kind: KindLeaf, leaf: n.leaf}
	}
}

// Equal reports deep equality. Object key order is not significant.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.kind != o.kind {
		return false
	}
	switch n.kind {
	case KindObject:
		if len(n.fields) != len(o.fields) {
			return false
		}
		for k, v := range n.fields {
			ov, ok := o.fields[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	case KindArray:
		if len(n.items) != len(o.items) {
			return false
		}
		for i := range n.items {
			if !n.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		return n.leaf == o.leaf
	}
}

// isNull reports whether n is absent or a null leaf.
func (n *Node) isNull() bool {
	return n == nil || (n.kind == KindLeaf && n.leaf.kind == LeafNull)
}
