package utxo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Box store errors.
var (
	ErrBoxNotFound = errors.New("box not found")
	// ErrSpentElsewhere means a box is already spent by a different
	// transaction than the one trying to spend it.
	ErrSpentElsewhere = errors.New("box already spent by another transaction")
)

// Key prefixes for the box store.
var (
	prefixBox  = []byte("b/") // b/<boxid> -> Box JSON
	prefixAddr = []byte("o/") // o/<addressID>/<boxid> -> empty (owner index)
)

// Store implements Set on top of a storage.KV. Pass a storage.DB for direct
// access, or the KV handed to storage.DB.Update to take part in a
// transaction.
type Store struct {
	kv storage.KV
}

// NewStore creates a box store over kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

func boxKey(id types.BoxID) []byte {
	key := make([]byte, 0, len(prefixBox)+types.HashSize)
	key = append(key, prefixBox...)
	return append(key, id[:]...)
}

func ownerPrefix(addressID string) []byte {
	key := make([]byte, 0, len(prefixAddr)+len(addressID)+1)
	key = append(key, prefixAddr...)
	key = append(key, addressID...)
	return append(key, '/')
}

func ownerKey(addressID string, id types.BoxID) []byte {
	return append(ownerPrefix(addressID), id[:]...)
}

// Get retrieves a box by id.
func (s *Store) Get(id types.BoxID) (*Box, error) {
	data, err := s.kv.Get(boxKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrBoxNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("box get: %w", err)
	}
	var b Box
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("box unmarshal: %w", err)
	}
	return &b, nil
}

// Has checks whether a box is persisted.
func (s *Store) Has(id types.BoxID) (bool, error) {
	return s.kv.Has(boxKey(id))
}

func (s *Store) put(b *Box) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("box marshal: %w", err)
	}
	if err := s.kv.Put(boxKey(b.ID), data); err != nil {
		return fmt.Errorf("box put: %w", err)
	}
	return nil
}

// UpsertOutput stores an output box. When the box already exists its output
// fields are refreshed but the spent state is kept as is.
func (s *Store) UpsertOutput(b *Box) error {
	if b.AddressID == "" {
		return fmt.Errorf("box %s: missing owner", b.ID)
	}
	rec := *b
	rec.Spent, rec.SpendTxID, rec.SpendIndex, rec.SpendHeight = false, nil, 0, 0

	existing, err := s.Get(b.ID)
	switch {
	case err == nil:
		rec.Spent = existing.Spent
		rec.SpendTxID = existing.SpendTxID
		rec.SpendIndex = existing.SpendIndex
		rec.SpendHeight = existing.SpendHeight
		if existing.AddressID != rec.AddressID {
			// Ownership never changes for a box id; keep the index consistent.
			if err := s.kv.Delete(ownerKey(existing.AddressID, b.ID)); err != nil {
				return fmt.Errorf("box index delete: %w", err)
			}
		}
	case !errors.Is(err, ErrBoxNotFound):
		return err
	}

	if err := s.put(&rec); err != nil {
		return err
	}
	if err := s.kv.Put(ownerKey(rec.AddressID, rec.ID), []byte{}); err != nil {
		return fmt.Errorf("box index put: %w", err)
	}
	return nil
}

// MarkSpent records that ref consumes box id. It is a compare-and-set:
// an unspent box becomes spent and true is returned; a box already spent by
// ref.TxID is left untouched and false is returned; a box spent by any other
// transaction yields ErrSpentElsewhere. A missing box yields ErrBoxNotFound.
func (s *Store) MarkSpent(id types.BoxID, ref SpendRef) (bool, error) {
	b, err := s.Get(id)
	if err != nil {
		return false, err
	}
	if b.Spent {
		if b.SpendTxID != nil && *b.SpendTxID == ref.TxID {
			return false, nil
		}
		var by string
		if b.SpendTxID != nil {
			by = b.SpendTxID.String()
		}
		return false, fmt.Errorf("%w: box %s spent by %s, not %s", ErrSpentElsewhere, id, by, ref.TxID)
	}

	txID := ref.TxID
	b.Spent = true
	b.SpendTxID = &txID
	b.SpendIndex = ref.Index
	b.SpendHeight = ref.Height
	if err := s.put(b); err != nil {
		return false, err
	}
	return true, nil
}

// ForEach iterates over all boxes in the store.
func (s *Store) ForEach(fn func(*Box) error) error {
	return s.kv.ForEach(prefixBox, func(_, value []byte) error {
		var b Box
		if err := json.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("box unmarshal: %w", err)
		}
		return fn(&b)
	})
}

// GetByAddress returns all boxes owned by the address record addressID,
// spent or not, ordered by box id.
func (s *Store) GetByAddress(addressID string) ([]*Box, error) {
	prefix := ownerPrefix(addressID)

	var ids []types.BoxID
	err := s.kv.ForEach(prefix, func(key, _ []byte) error {
		if len(key) != len(prefix)+types.HashSize {
			return nil // Malformed key, skip.
		}
		var id types.BoxID
		copy(id[:], key[len(prefix):])
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan owner index: %w", err)
	}

	boxes := make([]*Box, 0, len(ids))
	for _, id := range ids {
		b, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, b)
	}
	return boxes, nil
}

// Unspent returns the unspent boxes owned by addressID.
func (s *Store) Unspent(addressID string) ([]*Box, error) {
	all, err := s.GetByAddress(addressID)
	if err != nil {
		return nil, err
	}
	unspent := all[:0]
	for _, b := range all {
		if !b.Spent {
			unspent = append(unspent, b)
		}
	}
	return unspent, nil
}

// RollbackAbove undoes everything recorded above height: boxes created above
// it are removed and spends above it are cleared. It returns the number of
// boxes removed and unspent. Run it inside storage.DB.Update together with
// the cursor rewind.
func (s *Store) RollbackAbove(height uint64) (removed, unspent int, err error) {
	var boxes []*Box
	err = s.ForEach(func(b *Box) error {
		if b.Height > height || (b.Spent && b.SpendHeight > height) {
			boxes = append(boxes, b)
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	for _, b := range boxes {
		if b.Height > height {
			if err := s.kv.Delete(boxKey(b.ID)); err != nil {
				return removed, unspent, fmt.Errorf("box delete: %w", err)
			}
			if err := s.kv.Delete(ownerKey(b.AddressID, b.ID)); err != nil {
				return removed, unspent, fmt.Errorf("box index delete: %w", err)
			}
			removed++
			continue
		}
		b.Spent, b.SpendTxID, b.SpendIndex, b.SpendHeight = false, nil, 0, 0
		if err := s.put(b); err != nil {
			return removed, unspent, err
		}
		unspent++
	}
	return removed, unspent, nil
}
