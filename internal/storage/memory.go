package storage

import (
	"sort"
	"strings"
	"sync"
)

// MemoryDB implements DB using an in-memory map. Update transactions are
// serialized, which makes every transaction trivially conflict-free.
type MemoryDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates a new in-memory database.
func NewMemory() *MemoryDB {
	return &MemoryDB{
		data: make(map[string][]byte),
	}
}

// Get retrieves a value by key.
func (m *MemoryDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

// Put stores a key-value pair.
func (m *MemoryDB) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = cloneBytes(value)
	return nil
}

// Delete removes a key.
func (m *MemoryDB) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

// Has checks if a key exists.
func (m *MemoryDB) Has(key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

// ForEach iterates over all keys with the given prefix in key order.
func (m *MemoryDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	p := string(prefix)
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = cloneBytes(m.data[k])
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if err := fn([]byte(k), values[i]); err != nil {
			return err
		}
	}
	return nil
}

// Update runs fn against a write overlay and applies the overlay on success.
func (m *MemoryDB) Update(fn func(KV) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := &memTxn{
		base:    m.data,
		writes:  make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
	if err := fn(txn); err != nil {
		return err
	}
	for k := range txn.deleted {
		delete(m.data, k)
	}
	for k, v := range txn.writes {
		m.data[k] = v
	}
	return nil
}

// Close closes the database.
func (m *MemoryDB) Close() error {
	return nil
}

// memTxn is the uncommitted view handed to MemoryDB.Update callbacks.
type memTxn struct {
	base    map[string][]byte
	writes  map[string][]byte
	deleted map[string]struct{}
}

func (t *memTxn) Get(key []byte) ([]byte, error) {
	k := string(key)
	if _, gone := t.deleted[k]; gone {
		return nil, ErrNotFound
	}
	if v, ok := t.writes[k]; ok {
		return cloneBytes(v), nil
	}
	if v, ok := t.base[k]; ok {
		return cloneBytes(v), nil
	}
	return nil, ErrNotFound
}

func (t *memTxn) Put(key, value []byte) error {
	k := string(key)
	delete(t.deleted, k)
	t.writes[k] = cloneBytes(value)
	return nil
}

func (t *memTxn) Delete(key []byte) error {
	k := string(key)
	delete(t.writes, k)
	t.deleted[k] = struct{}{}
	return nil
}

func (t *memTxn) Has(key []byte) (bool, error) {
	_, err := t.Get(key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (t *memTxn) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)
	seen := make(map[string]struct{})
	var keys []string
	for _, src := range []map[string][]byte{t.writes, t.base} {
		for k := range src {
			if !strings.HasPrefix(k, p) {
				continue
			}
			if _, gone := t.deleted[k]; gone {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := t.Get([]byte(k))
		if err != nil {
			return err
		}
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
