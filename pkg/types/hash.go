// Package types defines the primitive types shared by the wallet synchronizer:
// 32-byte identifiers, Ergo addresses, networks and arbitrary-precision amounts.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashSize is the length of a hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value.
type Hash [HashSize]byte

// TxID identifies a transaction.
type TxID Hash

// BoxID identifies a box (transaction output).
type BoxID Hash

// BlockID identifies a block by its header id.
type BlockID Hash

// TokenID identifies a token type. On Ergo it equals the id of the first
// input box of the minting transaction.
type TokenID Hash

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// MarshalJSON encodes the hash as a hex string.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON decodes a hex string into a hash. The empty string decodes
// to the zero hash.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// ParseTxID parses a hex transaction id.
func ParseTxID(s string) (TxID, error) {
	h, err := HexToHash(s)
	return TxID(h), err
}

// ParseBoxID parses a hex box id.
func ParseBoxID(s string) (BoxID, error) {
	h, err := HexToHash(s)
	return BoxID(h), err
}

// ParseBlockID parses a hex block id.
func ParseBlockID(s string) (BlockID, error) {
	h, err := HexToHash(s)
	return BlockID(h), err
}

// ParseTokenID parses a hex token id.
func ParseTokenID(s string) (TokenID, error) {
	h, err := HexToHash(s)
	return TokenID(h), err
}

func (id TxID) IsZero() bool                 { return Hash(id).IsZero() }
func (id TxID) String() string               { return Hash(id).String() }
func (id TxID) MarshalJSON() ([]byte, error) { return Hash(id).MarshalJSON() }
func (id *TxID) UnmarshalJSON(data []byte) error {
	return (*Hash)(id).UnmarshalJSON(data)
}

func (id BoxID) IsZero() bool                 { return Hash(id).IsZero() }
func (id BoxID) String() string               { return Hash(id).String() }
func (id BoxID) MarshalJSON() ([]byte, error) { return Hash(id).MarshalJSON() }
func (id *BoxID) UnmarshalJSON(data []byte) error {
	return (*Hash)(id).UnmarshalJSON(data)
}

func (id BlockID) IsZero() bool                 { return Hash(id).IsZero() }
func (id BlockID) String() string               { return Hash(id).String() }
func (id BlockID) MarshalJSON() ([]byte, error) { return Hash(id).MarshalJSON() }
func (id *BlockID) UnmarshalJSON(data []byte) error {
	return (*Hash)(id).UnmarshalJSON(data)
}

func (id TokenID) IsZero() bool                 { return Hash(id).IsZero() }
func (id TokenID) String() string               { return Hash(id).String() }
func (id TokenID) MarshalJSON() ([]byte, error) { return Hash(id).MarshalJSON() }
func (id *TokenID) UnmarshalJSON(data []byte) error {
	return (*Hash)(id).UnmarshalJSON(data)
}
