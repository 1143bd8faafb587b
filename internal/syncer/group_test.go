package syncer

import (
	"errors"
	"testing"

	"github.com/omahs/minotaur-wallet/internal/chainclient"
)

func TestGroupByHeight_Ordering(t *testing.T) {
	a := testAddr(1)
	txs := []chainclient.Transaction{
		mkTx(1, 105, nil, output(1, a, 1)),
		mkTx(2, 103, nil, output(2, a, 1)),
		mkTx(3, 105, nil, output(3, a, 1)),
		mkTx(4, 101, nil, output(4, a, 1)),
		mkTx(5, 105, nil, output(5, a, 1)),
	}

	g, err := GroupByHeight(txs)
	if err != nil {
		t.Fatalf("GroupByHeight() error: %v", err)
	}
	if g.Len() != 3 || g.Count() != 5 {
		t.Fatalf("Len() = %d, Count() = %d; want 3, 5", g.Len(), g.Count())
	}

	heights := g.Heights()
	want := []uint64{101, 103, 105}
	for i := range want {
		if heights[i] != want[i] {
			t.Errorf("Heights()[%d] = %d, want %d", i, heights[i], want[i])
		}
	}

	at := g.At(105)
	if len(at) != 3 || at[0].ID != txID(1) || at[1].ID != txID(3) || at[2].ID != txID(5) {
		t.Error("arrival order within a height not preserved")
	}

	var visited []uint64
	g.Range(func(h uint64, _ []chainclient.Transaction) bool {
		visited = append(visited, h)
		return h < 103
	})
	if len(visited) != 2 {
		t.Errorf("Range() did not stop early: visited %v", visited)
	}
}

func TestGroupByHeight_Empty(t *testing.T) {
	g, err := GroupByHeight(nil)
	if err != nil {
		t.Fatalf("GroupByHeight(nil) error: %v", err)
	}
	if g.Len() != 0 || g.Count() != 0 || len(g.At(5)) != 0 {
		t.Error("empty grouping should be empty")
	}
}

func TestGroupByHeight_RejectsNegative(t *testing.T) {
	txs := []chainclient.Transaction{mkTx(1, 10, nil), mkTx(2, -1, nil)}
	if _, err := GroupByHeight(txs); !errors.Is(err, ErrNegativeHeight) {
		t.Errorf("GroupByHeight() error = %v, want ErrNegativeHeight", err)
	}
}
