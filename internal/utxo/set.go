// Package utxo persists the boxes owned by tracked addresses and their spent
// state.
package utxo

import "github.com/omahs/minotaur-wallet/pkg/types"

// Box is a transaction output owned by a tracked address.
//
// Spent transitions from false to true exactly once and is never cleared by
// an output upsert.
type Box struct {
	ID        types.BoxID         `json:"id"`
	TxID      types.TxID          `json:"txId"`
	Index     uint32              `json:"index"`
	Height    uint64              `json:"height"`
	Address   types.Address       `json:"address"`
	AddressID string              `json:"addressId"`
	Value     types.Amount        `json:"value"`
	Assets    []types.TokenAmount `json:"assets,omitempty"`

	Spent       bool        `json:"spent"`
	SpendTxID   *types.TxID `json:"spendTxId,omitempty"`
	SpendIndex  uint32      `json:"spendIndex,omitempty"`
	SpendHeight uint64      `json:"spendHeight,omitempty"`
}

// SpendRef identifies the transaction input that consumes a box.
type SpendRef struct {
	TxID   types.TxID
	Index  uint32
	Height uint64
}

// Set is the interface for box storage.
type Set interface {
	Get(id types.BoxID) (*Box, error)
	Has(id types.BoxID) (bool, error)
	UpsertOutput(box *Box) error
	MarkSpent(id types.BoxID, ref SpendRef) (bool, error)
}
