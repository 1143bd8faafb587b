package syncer

import (
	"github.com/omahs/minotaur-wallet/internal/chainclient"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Fork describes a disagreement between a transaction's claimed block and the
// locally stored header at the same height.
type Fork struct {
	Height   uint64        `json:"height"`
	Rollback uint64        `json:"rollback"`
	LocalID  types.BlockID `json:"localId"`
	RemoteID types.BlockID `json:"remoteId"`
	TxID     types.TxID    `json:"txId"`
}

// DetectFork checks every grouped transaction against the local header at its
// height. Heights without a local header are skipped. The lowest mismatched
// height wins; its rollback target is one below it, saturating at zero.
// Returns nil when every verifiable height agrees.
func DetectFork(groups *HeightGroups, local map[uint64]types.BlockID) *Fork {
	var fork *Fork
	groups.Range(func(h uint64, txs []chainclient.Transaction) bool {
		id, ok := local[h]
		if !ok {
			return true
		}
		for _, tx := range txs {
			if tx.BlockID != id {
				fork = &Fork{
					Height:   h,
					Rollback: rollbackHeight(h),
					LocalID:  id,
					RemoteID: tx.BlockID,
					TxID:     tx.ID,
				}
				return false
			}
		}
		return true
	})
	return fork
}

func rollbackHeight(h uint64) uint64 {
	if h == 0 {
		return 0
	}
	return h - 1
}
