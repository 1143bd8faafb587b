package chain

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Key prefixes for the header store.
var prefixHeader = []byte("h/") // h/<height(8)> -> Header JSON

// Header is a block header as reported by the node. At most one header is
// stored per height.
type Header struct {
	Height    uint64        `json:"height"`
	ID        types.BlockID `json:"id"`
	ParentID  types.BlockID `json:"parentId"`
	Timestamp int64         `json:"timestamp"`
}

// HeaderStore persists node headers keyed by height.
type HeaderStore struct {
	kv storage.KV
}

// NewHeaderStore creates a header store over kv.
func NewHeaderStore(kv storage.KV) *HeaderStore {
	return &HeaderStore{kv: kv}
}

// heightKey uses big-endian heights so ForEach visits headers in height order.
func heightKey(height uint64) []byte {
	key := make([]byte, len(prefixHeader)+8)
	copy(key, prefixHeader)
	binary.BigEndian.PutUint64(key[len(prefixHeader):], height)
	return key
}

// Put stores h, replacing any header at the same height.
func (s *HeaderStore) Put(h *Header) error {
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("header marshal: %w", err)
	}
	if err := s.kv.Put(heightKey(h.Height), data); err != nil {
		return fmt.Errorf("header put: %w", err)
	}
	return nil
}

// Get returns the header at height, or nil if none is stored.
func (s *HeaderStore) Get(height uint64) (*Header, error) {
	data, err := s.kv.Get(heightKey(height))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("header get: %w", err)
	}
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("header unmarshal: %w", err)
	}
	return &h, nil
}

// All returns every stored header in ascending height order.
func (s *HeaderStore) All() ([]*Header, error) {
	var out []*Header
	err := s.kv.ForEach(prefixHeader, func(_, value []byte) error {
		var h Header
		if err := json.Unmarshal(value, &h); err != nil {
			return fmt.Errorf("header unmarshal: %w", err)
		}
		out = append(out, &h)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// IDsByHeight returns the stored block id for every known height.
func (s *HeaderStore) IDsByHeight() (map[uint64]types.BlockID, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	ids := make(map[uint64]types.BlockID, len(all))
	for _, h := range all {
		ids[h.Height] = h.ID
	}
	return ids, nil
}

// Tip returns the highest stored header, or nil when the store is empty.
func (s *HeaderStore) Tip() (*Header, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all[len(all)-1], nil
}

// DeleteFrom removes every header at or above height.
func (s *HeaderStore) DeleteFrom(height uint64) (int, error) {
	var keys [][]byte
	err := s.kv.ForEach(prefixHeader, func(key, _ []byte) error {
		if len(key) != len(prefixHeader)+8 {
			return nil
		}
		if binary.BigEndian.Uint64(key[len(prefixHeader):]) >= height {
			keys = append(keys, append([]byte(nil), key...))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan headers: %w", err)
	}
	for _, k := range keys {
		if err := s.kv.Delete(k); err != nil {
			return 0, fmt.Errorf("header delete: %w", err)
		}
	}
	return len(keys), nil
}

// ReplaceFrom drops every header at or above height and stores the headers
// of hs at or above height in their place. It returns the number of headers
// dropped. Callers run it inside a storage transaction so readers never see
// a partially replaced chain.
func (s *HeaderStore) ReplaceFrom(height uint64, hs []*Header) (int, error) {
	n, err := s.DeleteFrom(height)
	if err != nil {
		return 0, err
	}
	for _, h := range hs {
		if h.Height < height {
			continue
		}
		if err := s.Put(h); err != nil {
			return 0, err
		}
	}
	return n, nil
}
