// Package chain persists the chain data the synchronizer relies on: the
// transactions that touched tracked addresses and the node's block headers.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// ErrTxNotFound is returned when a transaction is not persisted.
var ErrTxNotFound = errors.New("transaction not found")

// Key prefixes for the transaction store.
var prefixTx = []byte("x/") // x/<txid(32)> -> Tx JSON

// Tx is a transaction that created or spent a box of a tracked address.
// Records are insert-once.
type Tx struct {
	ID        types.TxID    `json:"id"`
	Network   types.Network `json:"network"`
	BlockID   types.BlockID `json:"blockId"`
	Height    uint64        `json:"height"`
	Timestamp int64         `json:"timestamp"`
}

// TxStore persists Tx records to a storage.KV. The store holds one network;
// callers scope it with a storage.PrefixDB.
type TxStore struct {
	kv storage.KV
}

// NewTxStore creates a transaction store over kv.
func NewTxStore(kv storage.KV) *TxStore {
	return &TxStore{kv: kv}
}

func txKey(id types.TxID) []byte {
	key := make([]byte, 0, len(prefixTx)+types.HashSize)
	key = append(key, prefixTx...)
	return append(key, id[:]...)
}

// Get retrieves a transaction by id.
func (s *TxStore) Get(id types.TxID) (*Tx, error) {
	data, err := s.kv.Get(txKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTxNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("tx get: %w", err)
	}
	var t Tx
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("tx unmarshal: %w", err)
	}
	return &t, nil
}

// Has checks whether a transaction is persisted.
func (s *TxStore) Has(id types.TxID) (bool, error) {
	return s.kv.Has(txKey(id))
}

// Insert stores t unless a record with the same id already exists.
// Reports whether a new record was written.
func (s *TxStore) Insert(t *Tx) (bool, error) {
	ok, err := s.Has(t.ID)
	if err != nil {
		return false, fmt.Errorf("tx has: %w", err)
	}
	if ok {
		return false, nil
	}
	data, err := json.Marshal(t)
	if err != nil {
		return false, fmt.Errorf("tx marshal: %w", err)
	}
	if err := s.kv.Put(txKey(t.ID), data); err != nil {
		return false, fmt.Errorf("tx put: %w", err)
	}
	return true, nil
}

// InsertAll inserts every transaction not yet stored and returns how many
// were new.
func (s *TxStore) InsertAll(txs []*Tx) (int, error) {
	var n int
	for _, t := range txs {
		inserted, err := s.Insert(t)
		if err != nil {
			return n, fmt.Errorf("insert %s: %w", t.ID, err)
		}
		if inserted {
			n++
		}
	}
	return n, nil
}

// DeleteAbove removes every transaction included above height and returns
// how many were removed.
func (s *TxStore) DeleteAbove(height uint64) (int, error) {
	var keys [][]byte
	err := s.kv.ForEach(prefixTx, func(key, value []byte) error {
		var t Tx
		if err := json.Unmarshal(value, &t); err != nil {
			return fmt.Errorf("tx unmarshal: %w", err)
		}
		if t.Height > height {
			keys = append(keys, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan txs: %w", err)
	}
	for _, k := range keys {
		if err := s.kv.Delete(k); err != nil {
			return 0, fmt.Errorf("tx delete: %w", err)
		}
	}
	return len(keys), nil
}
