package syncer

import (
	"errors"
	"fmt"

	"github.com/omahs/minotaur-wallet/internal/chain"
	"github.com/omahs/minotaur-wallet/internal/chainclient"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/utxo"
	"github.com/omahs/minotaur-wallet/internal/wallet"
)

// windowResult is what applyWindow committed.
type windowResult struct {
	applied  int
	cursor   uint64
	fork     *Fork
	rollback *Rollback
}

// applyWindow checks the fetched window against the stored headers and
// persists it together with the cursor of addr, all in one storage
// transaction. Headers are read inside that transaction so a concurrent
// header refresh cannot slip between fork detection and the write.
//
// Without a fork, heights below r.To are applied and the cursor moves to
// r.To; a rescan below the stored cursor never lowers it. On a fork the
// network is rolled back to the fork's rollback height, heights up to it
// are applied and the cursor lands on it.
//
// The stored cursor must still equal addr.Height; otherwise another writer
// rewound the address and ErrCursorMoved is returned.
//
// Outputs of the whole batch are written before any input is spent, so a
// box created and spent inside the same window is never seen spent before
// it exists.
func (e *Engine) applyWindow(addr *wallet.Address, groups *HeightGroups, r chainclient.HeightRange) (*windowResult, error) {
	var res windowResult
	err := e.db.Update(func(kv storage.KV) error {
		res = windowResult{}
		reg := wallet.NewRegistry(kv, e.cfg.Network)
		stored, err := reg.Get(addr.ID)
		if err != nil {
			return err
		}
		if stored.Height != addr.Height {
			return fmt.Errorf("%w: stored %d, expected %d", ErrCursorMoved, stored.Height, addr.Height)
		}

		headers, err := chain.NewHeaderStore(kv).IDsByHeight()
		if err != nil {
			return fmt.Errorf("load headers: %w", err)
		}
		res.fork = DetectFork(groups, headers)

		include := func(h uint64) bool { return h < r.To }
		res.cursor = max(r.To, addr.Height)
		if res.fork != nil {
			limit := res.fork.Rollback
			include = func(h uint64) bool { return h <= limit }
			res.cursor = limit
			if res.rollback, err = rollbackAbove(kv, e.cfg.Network, limit); err != nil {
				return err
			}
		}

		var batch []chainclient.Transaction
		groups.Range(func(h uint64, at []chainclient.Transaction) bool {
			if include(h) {
				batch = append(batch, at...)
			}
			return true
		})

		txs := chain.NewTxStore(kv)
		boxes := utxo.NewStore(kv)
		records := make([]*chain.Tx, 0, len(batch))
		for i := range batch {
			records = append(records, &chain.Tx{
				ID:        batch[i].ID,
				Network:   e.cfg.Network,
				BlockID:   batch[i].BlockID,
				Height:    uint64(batch[i].InclusionHeight),
				Timestamp: batch[i].Timestamp,
			})
		}
		if _, err := txs.InsertAll(records); err != nil {
			return err
		}
		for i := range batch {
			if err := e.applyOutputs(txs, boxes, addr, &batch[i]); err != nil {
				return err
			}
		}
		for i := range batch {
			if err := e.applyInputs(txs, boxes, addr, &batch[i]); err != nil {
				return err
			}
		}

		if err := reg.SetHeight(addr.ID, res.cursor); err != nil {
			return fmt.Errorf("set address height: %w", err)
		}
		res.applied = len(batch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	addr.Height = res.cursor
	return &res, nil
}

// applyOutputs upserts the outputs of tx owned by addr. The creating
// transaction must already be stored.
func (e *Engine) applyOutputs(txs *chain.TxStore, boxes utxo.Set, addr *wallet.Address, tx *chainclient.Transaction) error {
	height := uint64(tx.InclusionHeight)
	for _, out := range tx.Outputs {
		if out.Address != addr.Address {
			continue
		}
		creator := out.TransactionID
		if creator.IsZero() {
			creator = tx.ID
		}
		ok, err := txs.Has(creator)
		if err != nil {
			return err
		}
		if !ok {
			return &IntegrityError{Kind: ErrMissingTx, BoxID: out.BoxID, TxID: creator, Height: height}
		}
		if err := boxes.UpsertOutput(&utxo.Box{
			ID:        out.BoxID,
			TxID:      creator,
			Index:     out.Index,
			Height:    height,
			Address:   out.Address,
			AddressID: addr.ID,
			Value:     out.Value,
			Assets:    out.Assets,
		}); err != nil {
			return fmt.Errorf("upsert box %s: %w", out.BoxID, err)
		}
	}
	return nil
}

// applyInputs marks every persisted input box of tx as spent. Inputs of addr
// must resolve to a persisted box; inputs of other addresses are only
// spent when their box is already stored.
func (e *Engine) applyInputs(txs *chain.TxStore, boxes utxo.Set, addr *wallet.Address, tx *chainclient.Transaction) error {
	height := uint64(tx.InclusionHeight)
	if len(tx.Inputs) == 0 {
		return nil
	}
	ok, err := txs.Has(tx.ID)
	if err != nil {
		return err
	}
	if !ok {
		return &IntegrityError{Kind: ErrMissingTx, TxID: tx.ID, Height: height}
	}

	for _, in := range tx.Inputs {
		_, err := boxes.MarkSpent(in.BoxID, utxo.SpendRef{TxID: tx.ID, Index: in.Index, Height: height})
		switch {
		case err == nil:
		case errors.Is(err, utxo.ErrBoxNotFound):
			if in.Address == addr.Address {
				return &IntegrityError{Kind: ErrDanglingSpend, BoxID: in.BoxID, TxID: tx.ID, Height: height}
			}
		case errors.Is(err, utxo.ErrSpentElsewhere):
			return &IntegrityError{Kind: ErrDoubleSpend, BoxID: in.BoxID, TxID: tx.ID, Height: height, Err: err}
		default:
			return fmt.Errorf("spend box %s: %w", in.BoxID, err)
		}
	}
	return nil
}
