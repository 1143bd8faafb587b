// Package wallet keeps the set of tracked addresses, their sync cursors and
// the balances derived from their boxes.
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// ErrAddressNotFound is returned when no tracked address matches.
var ErrAddressNotFound = errors.New("address not tracked")

// Key prefixes for the registry.
var (
	prefixAddrID   = []byte("w/i/") // w/i/<uuid> -> Address JSON
	prefixAddrName = []byte("w/a/") // w/a/<address> -> uuid
)

// Address is a tracked wallet address. Height is the sync cursor: the
// highest height below which every transaction of the address has been
// applied.
type Address struct {
	ID        string        `json:"id"`
	Address   types.Address `json:"address"`
	Network   types.Network `json:"network"`
	Height    uint64        `json:"height"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Registry persists Address records for one network.
type Registry struct {
	kv      storage.KV
	network types.Network
}

// NewRegistry creates a registry for network over kv. Pass the KV handed to
// storage.DB.Update to make registry writes part of a transaction.
func NewRegistry(kv storage.KV, network types.Network) *Registry {
	return &Registry{kv: kv, network: network}
}

// Network returns the network the registry tracks addresses for.
func (r *Registry) Network() types.Network { return r.network }

func idKey(id string) []byte {
	return append(append([]byte(nil), prefixAddrID...), id...)
}

func nameKey(addr types.Address) []byte {
	return append(append([]byte(nil), prefixAddrName...), addr...)
}

func (r *Registry) put(a *Address) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("address marshal: %w", err)
	}
	if err := r.kv.Put(idKey(a.ID), data); err != nil {
		return fmt.Errorf("address put: %w", err)
	}
	return nil
}

// Add starts tracking address. The address must be valid for the registry's
// network. Adding an address that is already tracked returns the existing
// record unchanged.
func (r *Registry) Add(address string) (*Address, error) {
	a, _, err := r.AddAt(address, 0)
	return a, err
}

// AddAt is Add with the cursor of a newly tracked address set to height,
// usually the height of its first transaction. It reports whether a new
// record was created.
func (r *Registry) AddAt(address string, height uint64) (*Address, bool, error) {
	addr, err := types.ParseAddress(address, r.network)
	if err != nil {
		return nil, false, fmt.Errorf("invalid address: %w", err)
	}
	if existing, err := r.GetByAddress(addr); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrAddressNotFound) {
		return nil, false, err
	}

	a := &Address{
		ID:        uuid.NewString(),
		Address:   addr,
		Network:   r.network,
		Height:    height,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.put(a); err != nil {
		return nil, false, err
	}
	if err := r.kv.Put(nameKey(addr), []byte(a.ID)); err != nil {
		return nil, false, fmt.Errorf("address index put: %w", err)
	}
	return a, true, nil
}

// Get returns the address with the given id.
func (r *Registry) Get(id string) (*Address, error) {
	data, err := r.kv.Get(idKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %s", ErrAddressNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("address get: %w", err)
	}
	var a Address
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("address unmarshal: %w", err)
	}
	return &a, nil
}

// GetByAddress returns the record tracking addr.
func (r *Registry) GetByAddress(addr types.Address) (*Address, error) {
	id, err := r.kv.Get(nameKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAddressNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("address index get: %w", err)
	}
	return r.Get(string(id))
}

// List returns every tracked address ordered by address string.
func (r *Registry) List() ([]*Address, error) {
	var ids []string
	err := r.kv.ForEach(prefixAddrName, func(_, value []byte) error {
		ids = append(ids, string(value))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan addresses: %w", err)
	}
	out := make([]*Address, 0, len(ids))
	for _, id := range ids {
		a, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// SetHeight moves the sync cursor of address id.
func (r *Registry) SetHeight(id string, height uint64) error {
	a, err := r.Get(id)
	if err != nil {
		return err
	}
	a.Height = height
	return r.put(a)
}

// Rewind lowers every cursor above height to height and returns the
// rewound records.
func (r *Registry) Rewind(height uint64) ([]*Address, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var rewound []*Address
	for _, a := range all {
		if a.Height <= height {
			continue
		}
		a.Height = height
		if err := r.put(a); err != nil {
			return nil, err
		}
		rewound = append(rewound, a)
	}
	return rewound, nil
}
