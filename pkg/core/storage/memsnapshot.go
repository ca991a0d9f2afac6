package storage

import (
	"bytes"
	"sort"
	"sync"
)

// MemSnapshot is a copy-on-write overlay over a base Store: it buffers
// writes (including tombstones for deletions) and only touches the base
// store on Commit (spec §4.4 "Snapshot semantics").
type MemSnapshot struct {
	mu      sync.RWMutex
	base    Store
	written map[string][]byte
	deleted map[string]bool
}

// NewSnapshot wraps base in a fresh overlay.
func NewSnapshot(base Store) *MemSnapshot {
	return &MemSnapshot{
		base:    base,
		written: make(map[string][]byte),
		deleted: make(map[string]bool),
	}
}

// Get implements Store, consulting the overlay before the base.
func (s *MemSnapshot) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deleted[string(key)] {
		return nil, ErrKeyNotFound
	}
	if v, ok := s.written[string(key)]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, nil
	}
	return s.base.Get(key)
}

// Put implements Store, buffering the write in the overlay only.
func (s *MemSnapshot) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.written[string(key)] = v
	delete(s.deleted, string(key))
	return nil
}

// Delete implements Store, recording a tombstone.
func (s *MemSnapshot) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.written, string(key))
	s.deleted[string(key)] = true
	return nil
}

// Seek implements Store, merging overlay and base entries under prefix,
// with overlay entries taking precedence.
func (s *MemSnapshot) Seek(prefix []byte, f func(k, v []byte) bool) error {
	s.mu.RLock()
	merged := make(map[string][]byte)
	_ = s.base.Seek(prefix, func(k, v []byte) bool {
		merged[string(k)] = v
		return true
	})
	for k, v := range s.written {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}
	for k := range s.deleted {
		if bytes.HasPrefix([]byte(k), prefix) {
			delete(merged, k)
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	for _, k := range keys {
		if !f([]byte(k), merged[k]) {
			break
		}
	}
	return nil
}

// Close implements Store; a snapshot never owns the base store's
// lifecycle, so this is a no-op.
func (s *MemSnapshot) Close() error { return nil }

// Commit flushes every buffered write and tombstone to the base store,
// deletions first and then writes, one key at a time; it stops at the
// first failing base call, leaving the earlier ones applied.
func (s *MemSnapshot) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.deleted {
		if err := s.base.Delete([]byte(k)); err != nil {
			return err
		}
	}
	for k, v := range s.written {
		if err := s.base.Put([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Clone forks a fresh overlay sharing this snapshot's committed base plus
// its currently buffered writes, for speculative re-validation.
func (s *MemSnapshot) Clone() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := NewSnapshot(s.base)
	for k, v := range s.written {
		c.written[k] = v
	}
	for k := range s.deleted {
		c.deleted[k] = true
	}
	return c
}
