package syncer

import (
	"fmt"

	"github.com/omahs/minotaur-wallet/internal/chain"
	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/metrics"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/utxo"
	"github.com/omahs/minotaur-wallet/internal/wallet"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Rollback describes the state discarded when a network is rewound to
// Height. Everything recorded above Height is gone and no cursor is above
// it.
type Rollback struct {
	Height    uint64
	Addresses int // cursors lowered
	Txs       int // transactions removed
	Boxes     int // boxes removed
	Unspent   int // spends cleared
}

// Empty reports whether the rollback discarded nothing.
func (r *Rollback) Empty() bool {
	return r.Addresses == 0 && r.Txs == 0 && r.Boxes == 0 && r.Unspent == 0
}

// rollbackAbove rewinds every tracked address of network to height. A
// reorg invalidates blocks for all addresses alike, so the whole network is
// rewound and not only the address that noticed it. It runs inside the
// caller's storage transaction.
func rollbackAbove(kv storage.KV, network types.Network, height uint64) (*Rollback, error) {
	rb := &Rollback{Height: height}

	boxes, unspent, err := utxo.NewStore(kv).RollbackAbove(height)
	if err != nil {
		return nil, fmt.Errorf("rollback boxes: %w", err)
	}
	rb.Boxes, rb.Unspent = boxes, unspent

	if rb.Txs, err = chain.NewTxStore(kv).DeleteAbove(height); err != nil {
		return nil, fmt.Errorf("rollback txs: %w", err)
	}

	rewound, err := wallet.NewRegistry(kv, network).Rewind(height)
	if err != nil {
		return nil, fmt.Errorf("rewind cursors: %w", err)
	}
	rb.Addresses = len(rewound)
	return rb, nil
}

// reportRollback logs and counts a committed rollback.
func reportRollback(network types.Network, reason string, rb *Rollback) {
	if rb == nil || rb.Empty() {
		return
	}
	metrics.Rollbacks.WithLabelValues(string(network), reason).Inc()
	klog.Wallet.Warn().
		Str("network", string(network)).
		Str("reason", reason).
		Uint64("height", rb.Height).
		Int("addresses", rb.Addresses).
		Int("txs", rb.Txs).
		Int("boxes", rb.Boxes).
		Int("unspent", rb.Unspent).
		Msg("State rolled back")
}
