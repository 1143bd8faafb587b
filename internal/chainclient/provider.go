package chainclient

import (
	"context"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// HeightSource provides the chain tip and recent headers.
type HeightSource interface {
	CurrentHeight(ctx context.Context) (uint64, error)
	LastHeaders(ctx context.Context, count int) ([]Header, error)
}

// HistorySource provides address history and balances.
type HistorySource interface {
	TransactionsForAddress(ctx context.Context, addr types.Address, r HeightRange, p Paging) (*Page, error)
	ConfirmedBalance(ctx context.Context, addr types.Address) (*Balance, error)
}

// Provider joins one node and one explorer into a Client.
type Provider struct {
	node     HeightSource
	explorer HistorySource
}

// NewProvider creates a Client backed by node for heights and headers and
// explorer for history and balances.
func NewProvider(node HeightSource, explorer HistorySource) *Provider {
	return &Provider{node: node, explorer: explorer}
}

func (p *Provider) CurrentHeight(ctx context.Context) (uint64, error) {
	return p.node.CurrentHeight(ctx)
}

func (p *Provider) LastHeaders(ctx context.Context, count int) ([]Header, error) {
	return p.node.LastHeaders(ctx, count)
}

func (p *Provider) TransactionsForAddress(ctx context.Context, addr types.Address, r HeightRange, pg Paging) (*Page, error) {
	return p.explorer.TransactionsForAddress(ctx, addr, r, pg)
}

func (p *Provider) ConfirmedBalance(ctx context.Context, addr types.Address) (*Balance, error) {
	return p.explorer.ConfirmedBalance(ctx, addr)
}
