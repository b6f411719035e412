package confstore

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ohler55/ojg/jp"
)

// Observer receives a read-only snapshot after every change.
type Observer func(snapshot *Node)

// Store holds one authoritative configuration tree and its flattened view.
// All mutations go through the tree; the flat view is rebuilt from it so
// the two can never drift apart.
type Store struct {
	mu        sync.RWMutex
	defaults  func() *Node
	root      *Node
	flat      map[string]Leaf
	observers map[int]Observer
	nextObs   int
}

// New creates a store initialised from defaults. defaults is called again
// on every Reset, so it must return a fresh tree each time.
func New(defaults func() *Node) *Store {
	if defaults == nil {
		defaults = NewObject
	}
	s := &Store{
		defaults:  defaults,
		observers: make(map[int]Observer),
	}
	s.root = s.freshDefaults()
	s.flat = Flatten(s.root)
	return s
}

// Restore creates a store whose current tree is root, with defaults kept
// for Reset.
func Restore(defaults func() *Node, root *Node) (*Store, error) {
	if root == nil || root.Kind() != KindObject {
		return nil, ErrMalformedPatch
	}
	s := New(defaults)
	s.root = root.Clone()
	s.flat = Flatten(s.root)
	return s, nil
}

func (s *Store) freshDefaults() *Node {
	d := s.defaults()
	if d == nil || d.Kind() != KindObject {
		return NewObject()
	}
	return d.Clone()
}

// Subscribe registers an observer and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (cancel func()) {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// SetValue writes value at path. Missing or wrong-typed containers along
// the path are created; unknown paths grow the tree.
func (s *Store) SetValue(path string, value Leaf) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	err = setNode(s.root, segs, LeafNode(value), false)
	if err == nil {
		s.flat = Flatten(s.root)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// GetValue reads the display string stored at path in the flat view.
func (s *Store) GetValue(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.flat[path]
	if !ok {
		return "", false
	}
	return l.String(), true
}

// GetLeaf reads the typed leaf stored at path.
func (s *Store) GetLeaf(path string) (Leaf, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.flat[path]
	return l, ok
}

// MergeFlat applies each entry as an independent update. Entries whose
// path conflicts with the shape of the current tree are skipped and
// reported as *PatchError values joined into the returned error; the rest
// are applied.
func (s *Store) MergeFlat(values map[string]Leaf) error {
	if len(values) == 0 {
		return nil
	}
	var errs []error
	applied := 0

	s.mu.Lock()
	for _, p := range sortedPaths(values) {
		segs, err := SplitPath(p)
		if err == nil {
			err = setNode(s.root, segs, LeafNode(values[p]), true)
		}
		if err != nil {
			errs = append(errs, &PatchError{Path: p, Err: err})
			continue
		}
		applied++
	}
	if applied > 0 {
		s.flat = Flatten(s.root)
	}
	s.mu.Unlock()

	if applied > 0 {
		s.notify()
	}
	return errors.Join(errs...)
}

// MergePatch flattens a partial tree into full dot-paths and merges it.
func (s *Store) MergePatch(patch *Node) error {
	if patch == nil {
		return nil
	}
	if patch.Kind() != KindObject {
		return ErrMalformedPatch
	}
	return s.MergeFlat(Flatten(patch))
}

// RemoveIndex deletes item i of the array at path; later items shift down.
func (s *Store) RemoveIndex(path string, i int) error {
	s.mu.Lock()
	arr := Lookup(s.root, path)
	switch {
	case arr == nil || arr.Kind() != KindArray:
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", path, ErrNotArray)
	case i < 0 || i >= len(arr.items):
		s.mu.Unlock()
		return fmt.Errorf("%s.%d: %w", path, i, ErrIndexRange)
	}
	arr.items = slices.Delete(arr.items, i, i+1)
	s.flat = Flatten(s.root)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Append adds item to the end of the array at path, creating the array if
// the path is absent.
func (s *Store) Append(path string, item *Node) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	arr := Lookup(s.root, path)
	switch {
	case arr.isNull():
		err = setNode(s.root, segs, NewArray(item.Clone()), false)
	case arr.Kind() == KindArray:
		arr.Append(item.Clone())
	default:
		err = fmt.Errorf("%s: %w", path, ErrNotArray)
	}
	if err == nil {
		s.flat = Flatten(s.root)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Reset restores the default configuration.
func (s *Store) Reset() {
	s.mu.Lock()
	s.root = s.freshDefaults()
	s.flat = Flatten(s.root)
	s.mu.Unlock()
	s.notify()
}

// SnapshotNested returns a deep copy of the current tree.
func (s *Store) SnapshotNested() *Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.Clone()
}

// Flat returns the display view: path → string.
func (s *Store) Flat() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.flat))
	for k, v := range s.flat {
		out[k] = v.String()
	}
	return out
}

// Query evaluates a JSONPath expression against the current tree.
func (s *Store) Query(expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath %q: %w", expr, err)
	}
	s.mu.RLock()
	data := s.root.ToAny()
	s.mu.RUnlock()
	return x.Get(data), nil
}

func (s *Store) notify() {
	s.mu.RLock()
	if len(s.observers) == 0 {
		s.mu.RUnlock()
		return
	}
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Observer, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	snap := s.root.Clone()
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}
