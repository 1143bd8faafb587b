package syncer

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/omahs/minotaur-wallet/internal/chain"
	"github.com/omahs/minotaur-wallet/internal/chainclient"
	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/metrics"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// DefaultHeaderDepth is how many recent node headers are kept in sync.
const DefaultHeaderDepth = 50

// RefreshResult summarizes one HeaderTracker.Refresh.
type RefreshResult struct {
	Tip      uint64
	Added    int
	Replaced int
	// ReorgHeight is the lowest height whose stored header changed, when
	// Replaced > 0.
	ReorgHeight uint64
	// Rollback is what was undone below ReorgHeight, nil without a reorg.
	Rollback *Rollback
}

// HeaderTracker mirrors the node's most recent headers into the header
// store used for fork detection.
type HeaderTracker struct {
	client  chainclient.Client
	db      storage.DB
	depth   int
	network types.Network
	logger  zerolog.Logger
}

// NewHeaderTracker creates a tracker that keeps depth headers. db must be
// scoped to network.
func NewHeaderTracker(client chainclient.Client, db storage.DB, network types.Network, depth int) *HeaderTracker {
	if depth <= 0 {
		depth = DefaultHeaderDepth
	}
	return &HeaderTracker{
		client:  client,
		db:      db,
		depth:   depth,
		network: network,
		logger:  klog.Chain,
	}
}

// Refresh fetches the latest headers and stores them. When the node reports a
// different block at an already stored height, that header and every stored
// header above it are replaced, and the network's synchronized state above
// the last unchanged height is rolled back in the same transaction.
func (t *HeaderTracker) Refresh(ctx context.Context) (*RefreshResult, error) {
	remote, err := t.client.LastHeaders(ctx, t.depth)
	if err != nil {
		return nil, fmt.Errorf("last headers: %w", err)
	}
	if len(remote) == 0 {
		return &RefreshResult{}, nil
	}

	fresh := make([]*chain.Header, 0, len(remote))
	for _, h := range remote {
		fresh = append(fresh, &chain.Header{
			Height:    h.Height,
			ID:        h.ID,
			ParentID:  h.ParentID,
			Timestamp: h.Timestamp,
		})
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].Height < fresh[j].Height })
	tip := fresh[len(fresh)-1].Height

	var res RefreshResult
	err = t.db.Update(func(kv storage.KV) error {
		res = RefreshResult{Tip: tip}
		store := chain.NewHeaderStore(kv)
		local, err := store.IDsByHeight()
		if err != nil {
			return err
		}

		divergence, diverged := uint64(0), false
		for _, h := range fresh {
			id, ok := local[h.Height]
			if !ok {
				res.Added++
				continue
			}
			if id != h.ID && !diverged {
				divergence, diverged = h.Height, true
			}
		}
		// Stored headers above the node's tip belong to a branch the node
		// no longer follows.
		for h := range local {
			if h > tip && (!diverged || h < divergence) {
				divergence, diverged = h, true
			}
		}

		below := fresh
		if diverged {
			n, err := store.ReplaceFrom(divergence, fresh)
			if err != nil {
				return err
			}
			res.Replaced = n
			res.ReorgHeight = divergence

			keep := uint64(0)
			if divergence > 0 {
				keep = divergence - 1
			}
			if res.Rollback, err = rollbackAbove(kv, t.network, keep); err != nil {
				return err
			}
			below = below[:sort.Search(len(below), func(i int) bool { return below[i].Height >= divergence })]
		}
		for _, h := range below {
			if err := store.Put(h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store headers: %w", err)
	}

	if res.Replaced > 0 {
		metrics.HeaderReorgs.WithLabelValues(string(t.network)).Inc()
		t.logger.Warn().
			Uint64("height", res.ReorgHeight).
			Int("replaced", res.Replaced).
			Uint64("tip", res.Tip).
			Msg("Node headers diverged from stored headers")
		reportRollback(t.network, "headers", res.Rollback)
	}
	metrics.ChainHead.WithLabelValues(string(t.network)).Set(float64(tip))
	return &res, nil
}
