// Package syncer brings the boxes of tracked addresses up to date with the
// chain: it scans address history in height windows, detects forks against
// locally stored node headers, applies box state transitions and reconciles
// balances with the explorer.
package syncer

import (
	"fmt"
	"sort"

	"github.com/omahs/minotaur-wallet/internal/chainclient"
)

// HeightGroups maps inclusion heights to the transactions confirmed at that
// height. Heights iterate in ascending order; transactions within a height
// keep their arrival order.
type HeightGroups struct {
	heights  []uint64
	byHeight map[uint64][]chainclient.Transaction
	count    int
}

// GroupByHeight buckets txs by inclusion height.
func GroupByHeight(txs []chainclient.Transaction) (*HeightGroups, error) {
	g := &HeightGroups{byHeight: make(map[uint64][]chainclient.Transaction)}
	for i := range txs {
		tx := txs[i]
		if tx.InclusionHeight < 0 {
			return nil, fmt.Errorf("%w: tx %s at %d", ErrNegativeHeight, tx.ID, tx.InclusionHeight)
		}
		h := uint64(tx.InclusionHeight)
		if _, ok := g.byHeight[h]; !ok {
			g.heights = append(g.heights, h)
		}
		g.byHeight[h] = append(g.byHeight[h], tx)
		g.count++
	}
	sort.Slice(g.heights, func(i, j int) bool { return g.heights[i] < g.heights[j] })
	return g, nil
}

// Heights returns the heights present, ascending.
func (g *HeightGroups) Heights() []uint64 {
	return append([]uint64(nil), g.heights...)
}

// At returns the transactions at height h in arrival order.
func (g *HeightGroups) At(h uint64) []chainclient.Transaction {
	return g.byHeight[h]
}

// Len returns the number of distinct heights.
func (g *HeightGroups) Len() int { return len(g.heights) }

// Count returns the total number of transactions.
func (g *HeightGroups) Count() int { return g.count }

// Range calls fn for each height in ascending order until fn returns false.
func (g *HeightGroups) Range(fn func(height uint64, txs []chainclient.Transaction) bool) {
	for _, h := range g.heights {
		if !fn(h, g.byHeight[h]) {
			return
		}
	}
}
