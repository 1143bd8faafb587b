package utxo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Commitment computes a digest over the unspent boxes of one address.
// Each box is hashed deterministically, the hashes are sorted and hashed
// together. Returns a zero hash for an empty set.
//
// Two syncs of the same address against the same chain produce the same
// commitment regardless of the order in which boxes were applied.
func Commitment(store *Store, addressID string) (types.Hash, error) {
	boxes, err := store.Unspent(addressID)
	if err != nil {
		return types.Hash{}, fmt.Errorf("box commitment: %w", err)
	}
	if len(boxes) == 0 {
		return types.Hash{}, nil
	}

	hashes := make([]types.Hash, 0, len(boxes))
	for _, b := range boxes {
		hashes = append(hashes, hashBox(b))
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})

	h, _ := blake2b.New256(nil)
	for _, bh := range hashes {
		h.Write(bh[:])
	}
	var out types.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}

// hashBox produces a blake2b-256 digest of a box.
// Format: boxid(32) | txid(32) | index(4) | value | per token: id(32) | amount
// Amounts are written as their decimal string, length-prefixed.
func hashBox(b *Box) types.Hash {
	var buf []byte
	buf = append(buf, b.ID[:]...)
	buf = append(buf, b.TxID[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, b.Index)
	buf = appendAmount(buf, b.Value)

	assets := append([]types.TokenAmount(nil), b.Assets...)
	types.SortTokens(assets)
	for _, a := range assets {
		buf = append(buf, a.TokenID[:]...)
		buf = appendAmount(buf, a.Amount)
	}
	return blake2b.Sum256(buf)
}

func appendAmount(buf []byte, a types.Amount) []byte {
	s := a.String()
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}
