package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	klog "github.com/omahs/minotaur-wallet/internal/log"
)

// maxConflictRetries bounds how many times Update re-runs a transaction
// that lost an optimistic conflict.
const maxConflictRetries = 16

// BadgerDB implements DB using Badger.
type BadgerDB struct {
	db *badger.DB
}

// NewBadger creates a new Badger database at the given path.
func NewBadger(path string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's built-in logging.

	db, err := badger.Open(opts)
	if err != nil {
		errMsg := err.Error()
		if strings.Contains(errMsg, "Cannot acquire directory lock") ||
			strings.Contains(errMsg, "resource temporarily unavailable") {
			return nil, fmt.Errorf("database at %s is locked by another process (is another minotaurd instance running?): %w", path, err)
		}
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}
	return &BadgerDB{db: db}, nil
}

// Get retrieves a value by key. Returns ErrNotFound if the key does not exist.
func (b *BadgerDB) Get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		val, err = txnGet(txn, key)
		return err
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Put stores a key-value pair.
func (b *BadgerDB) Put(key, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

// Delete removes a key.
func (b *BadgerDB) Delete(key []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("badger delete: %w", err)
	}
	return nil
}

// Has checks if a key exists.
func (b *BadgerDB) Has(key []byte) (bool, error) {
	var exists bool
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		exists, err = txnHas(txn, key)
		return err
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ForEach iterates over all keys with the given prefix.
func (b *BadgerDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		return txnForEach(txn, prefix, fn)
	})
}

// Update runs fn in a Badger read-write transaction. Badger's optimistic
// concurrency control rejects the commit with ErrConflict when another
// transaction wrote a key this one read; the transaction is then re-run
// against fresh state.
func (b *BadgerDB) Update(fn func(KV) error) error {
	for attempt := 0; ; attempt++ {
		err := b.db.Update(func(txn *badger.Txn) error {
			return fn(&badgerTxn{txn: txn})
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			klog.Storage.Debug().Int("attempt", attempt+1).Msg("Transaction conflict, retrying")
			continue
		}
		if errors.Is(err, badger.ErrConflict) {
			klog.Storage.Warn().Int("attempts", attempt+1).Msg("Transaction conflict, giving up")
		}
		return err
	}
}

// Close closes the database.
func (b *BadgerDB) Close() error {
	return b.db.Close()
}

// badgerTxn adapts a Badger transaction to KV.
type badgerTxn struct {
	txn *badger.Txn
}

func (t *badgerTxn) Get(key []byte) ([]byte, error) {
	return txnGet(t.txn, key)
}

func (t *badgerTxn) Put(key, value []byte) error {
	// Badger holds on to both slices until commit.
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	if err := t.txn.Set(k, v); err != nil {
		return fmt.Errorf("badger txn put: %w", err)
	}
	return nil
}

func (t *badgerTxn) Delete(key []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	if err := t.txn.Delete(k); err != nil {
		return fmt.Errorf("badger txn delete: %w", err)
	}
	return nil
}

func (t *badgerTxn) Has(key []byte) (bool, error) {
	return txnHas(t.txn, key)
}

func (t *badgerTxn) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return txnForEach(t.txn, prefix, fn)
}

func txnGet(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("badger get: %w", err)
	}
	return val, nil
}

func txnHas(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger has: %w", err)
	}
	return true, nil
}

func txnForEach(txn *badger.Txn, prefix []byte, fn func(key, value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		key := item.KeyCopy(nil)
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(key, val); err != nil {
			return err
		}
	}
	return nil
}
