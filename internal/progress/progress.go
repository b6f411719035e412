// Package progress tracks the furthest wizard step a user has reached.
package progress

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Key is the storage key the step counter is kept under.
const Key = "avagen.progress"

// KV is the persistence adapter the tracker reads and writes through.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Tracker is the furthest step reached, starting at 1.
type Tracker struct {
	mu   sync.Mutex
	kv   KV
	step int
}

// Load reads the saved step from kv. Missing, unparseable and non-positive
// values load as 1.
func Load(kv KV) (*Tracker, error) {
	t := &Tracker{kv: kv, step: 1}
	raw, ok, err := kv.Get(Key)
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	if ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			t.step = n
		}
	}
	return t, nil
}

// Step returns the furthest step reached.
func (t *Tracker) Step() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.step
}

// Update records step if it is beyond the current one. It reports whether
// the counter moved.
func (t *Tracker) Update(step int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if step <= t.step {
		return false, nil
	}
	if err := t.kv.Set(Key, strconv.Itoa(step)); err != nil {
		return false, fmt.Errorf("saving progress: %w", err)
	}
	t.step = step
	return true, nil
}

// Reset returns the counter to 1 and removes the stored value.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.step = 1
	if err := t.kv.Delete(Key); err != nil {
		return fmt.Errorf("clearing progress: %w", err)
	}
	return nil
}

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string]string
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string]string)}
}

func (kv *MemoryKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *MemoryKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

func (kv *MemoryKV) Delete(key string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.m, key)
	return nil
}
