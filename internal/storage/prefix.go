package storage

// PrefixDB wraps a DB and prepends a fixed prefix to all keys.
// This isolates each network's wallet data within a single underlying
// database.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB creates a new PrefixDB wrapping inner with the given prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	p := make([]byte, len(prefix))
	copy(p, prefix)
	return &PrefixDB{inner: inner, prefix: p}
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.kv(p.inner).Get(key)
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.kv(p.inner).Put(key, value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.kv(p.inner).Delete(key)
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.kv(p.inner).Has(key)
}

// ForEach iterates over all keys with the given prefix (within the PrefixDB namespace).
// The callback receives keys with the PrefixDB prefix stripped, so callers see only
// their logical keyspace.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.kv(p.inner).ForEach(prefix, fn)
}

// Update runs fn in a transaction of the inner DB, scoped to this namespace.
func (p *PrefixDB) Update(fn func(KV) error) error {
	return p.inner.Update(func(txn KV) error {
		return fn(p.kv(txn))
	})
}

// DeleteAll removes all keys under this PrefixDB's namespace in one
// transaction of the inner DB.
func (p *PrefixDB) DeleteAll() error {
	return p.inner.Update(func(txn KV) error {
		// Collect all keys first to avoid modifying during iteration.
		var keys [][]byte
		err := txn.ForEach(p.prefix, func(key, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close is a no-op; the outer DB manages its own lifecycle.
func (p *PrefixDB) Close() error {
	return nil
}

func (p *PrefixDB) kv(inner KV) *prefixKV {
	return &prefixKV{inner: inner, prefix: p.prefix}
}

// prefixKV namespaces any KV, including a transaction handed out by Update.
type prefixKV struct {
	inner  KV
	prefix []byte
}

// prefixed returns key with the prefix prepended.
func (p *prefixKV) prefixed(key []byte) []byte {
	out := make([]byte, len(p.prefix)+len(key))
	copy(out, p.prefix)
	copy(out[len(p.prefix):], key)
	return out
}

func (p *prefixKV) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.prefixed(key))
}

func (p *prefixKV) Put(key, value []byte) error {
	return p.inner.Put(p.prefixed(key), value)
}

func (p *prefixKV) Delete(key []byte) error {
	return p.inner.Delete(p.prefixed(key))
}

func (p *prefixKV) Has(key []byte) (bool, error) {
	return p.inner.Has(p.prefixed(key))
}

func (p *prefixKV) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.prefixed(prefix), func(key, value []byte) error {
		// Strip the PrefixDB prefix so the caller sees only its logical key.
		return fn(key[len(p.prefix):], value)
	})
}
