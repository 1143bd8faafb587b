// Package chainclient talks to an Ergo node and an Ergo explorer over HTTP.
package chainclient

import (
	"context"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// HeightRange is an inclusive range of block heights.
type HeightRange struct {
	From uint64
	To   uint64
}

// Paging selects one page of a result set.
type Paging struct {
	Offset int
	Limit  int
}

// Input is a transaction input as reported by the explorer. Address and
// OutputTransactionID describe the box being spent.
type Input struct {
	BoxID               types.BoxID         `json:"boxId"`
	Value               types.Amount        `json:"value"`
	Index               uint32              `json:"index"`
	OutputTransactionID types.TxID          `json:"outputTransactionId"`
	OutputIndex         uint32              `json:"outputIndex"`
	Address             types.Address       `json:"address"`
	Assets              []types.TokenAmount `json:"assets"`
}

// Output is a transaction output as reported by the explorer.
type Output struct {
	BoxID              types.BoxID         `json:"boxId"`
	TransactionID      types.TxID          `json:"transactionId"`
	Value              types.Amount        `json:"value"`
	Index              uint32              `json:"index"`
	CreationHeight     uint64              `json:"creationHeight"`
	Address            types.Address       `json:"address"`
	Assets             []types.TokenAmount `json:"assets"`
	SpentTransactionID *types.TxID         `json:"spentTransactionId"`
}

// Transaction is a confirmed transaction referencing a queried address.
// InclusionHeight is signed on the wire; negative values are rejected by
// consumers.
type Transaction struct {
	ID              types.TxID    `json:"id"`
	BlockID         types.BlockID `json:"blockId"`
	InclusionHeight int64         `json:"inclusionHeight"`
	Timestamp       int64         `json:"timestamp"`
	Inputs          []Input       `json:"inputs"`
	Outputs         []Output      `json:"outputs"`
}

// Page is one page of address history. An empty Items slice means the
// range is exhausted.
type Page struct {
	Items []Transaction `json:"items"`
	Total int           `json:"total"`
}

// Balance is the explorer's confirmed balance of an address.
type Balance struct {
	NanoErgs types.Amount        `json:"nanoErgs"`
	Tokens   []types.TokenAmount `json:"tokens"`
}

// Header is a block header reported by the node.
type Header struct {
	ID        types.BlockID `json:"id"`
	ParentID  types.BlockID `json:"parentId"`
	Height    uint64        `json:"height"`
	Timestamp int64         `json:"timestamp"`
}

// Client is the remote chain surface used by the synchronizer.
type Client interface {
	// CurrentHeight returns the node's full-block height.
	CurrentHeight(ctx context.Context) (uint64, error)
	// TransactionsForAddress returns one page of transactions touching addr
	// whose inclusion height lies in r, ordered by inclusion height.
	TransactionsForAddress(ctx context.Context, addr types.Address, r HeightRange, p Paging) (*Page, error)
	// ConfirmedBalance returns the explorer's confirmed balance of addr.
	ConfirmedBalance(ctx context.Context, addr types.Address) (*Balance, error)
	// LastHeaders returns up to count of the node's most recent headers.
	LastHeaders(ctx context.Context, count int) ([]Header, error)
}
