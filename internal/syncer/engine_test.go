package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/omahs/minotaur-wallet/internal/chain"
	"github.com/omahs/minotaur-wallet/internal/chainclient"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/utxo"
	"github.com/omahs/minotaur-wallet/internal/wallet"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

func hasTx(t *testing.T, db storage.DB, n int) bool {
	t.Helper()
	ok, err := chain.NewTxStore(db).Has(txID(n))
	if err != nil {
		t.Fatalf("Has() error: %v", err)
	}
	return ok
}

func getBox(t *testing.T, db storage.DB, n int) *utxo.Box {
	t.Helper()
	b, err := utxo.NewStore(db).Get(boxID(n))
	if err != nil {
		t.Fatalf("Get(box %d) error: %v", n, err)
	}
	return b
}

// Scenario A: cursor 100, tip 120, window 50 gives one window [100, 120]
// paged in steps of 10 until an empty page.
func TestSyncAddress_SingleWindowPaging(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)

	for i := 0; i < 25; i++ {
		env.chain.add(mkTx(i, int64(100+i%20), nil, output(i, a.Address, 1000)))
	}
	// At the window's upper bound: fetched but left for the next window.
	env.chain.add(mkTx(99, 120, nil, output(99, a.Address, 5)))

	res, err := env.engine.SyncAddress(context.Background(), a, a.Height)
	if err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if res.Status != StatusAdvanced || res.Height != 120 || res.Windows != 1 {
		t.Errorf("outcome = %+v, want advanced to 120 in 1 window", res)
	}
	if res.Txs != 25 {
		t.Errorf("applied %d txs, want 25", res.Txs)
	}

	calls := env.chain.txCalls()
	if len(calls) != 4 {
		t.Fatalf("made %d page requests, want 4", len(calls))
	}
	for i, c := range calls {
		if c.r.From != 100 || c.r.To != 120 {
			t.Errorf("call %d range = %+v, want [100, 120]", i, c.r)
		}
		if c.p.Limit != 10 || c.p.Offset != i*10 {
			t.Errorf("call %d paging = %+v, want offset %d limit 10", i, c.p, i*10)
		}
	}

	if got := env.cursor(t, a); got != 120 {
		t.Errorf("cursor = %d, want 120", got)
	}
	if !hasTx(t, env.db, 24) {
		t.Error("tx from the last page was not applied")
	}
	if hasTx(t, env.db, 99) {
		t.Error("tx at the window bound should not be applied yet")
	}

	bal, _ := wallet.AddressBalance(utxo.NewStore(env.db), a.ID)
	if !bal.Erg.Equal(types.NewAmount(25000)) {
		t.Errorf("balance = %s, want 25000", bal.Erg)
	}
}

func TestSyncAddress_MultipleWindowsMonotonic(t *testing.T) {
	env := newTestEnv(t, 260)
	a := env.track(t, 1, 100)
	env.chain.add(
		mkTx(1, 120, nil, output(1, a.Address, 10)),
		mkTx(2, 150, nil, output(2, a.Address, 20)),
		mkTx(3, 255, nil, output(3, a.Address, 30)),
	)

	var heights []uint64
	env.chain.onFetch = func(int) {
		got, _ := env.reg.Get(a.ID)
		heights = append(heights, got.Height)
	}

	res, err := env.engine.SyncAddress(context.Background(), a, 100)
	if err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if res.Height != 260 || res.Windows != 4 {
		t.Errorf("outcome = %+v, want height 260 after 4 windows", res)
	}
	for i := 1; i < len(heights); i++ {
		if heights[i] < heights[i-1] {
			t.Fatalf("cursor moved backwards: %v", heights)
		}
	}

	// Window bounds chain: [100,150] [150,200] [200,250] [250,260].
	var bounds []chainclient.HeightRange
	for _, c := range env.chain.txCalls() {
		if c.p.Offset == 0 {
			bounds = append(bounds, c.r)
		}
	}
	want := []chainclient.HeightRange{
		{From: 100, To: 150},
		{From: 150, To: 200},
		{From: 200, To: 250},
		{From: 250, To: 260},
	}
	if len(bounds) != len(want) {
		t.Fatalf("windows = %v, want %v", bounds, want)
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("window %d = %+v, want %+v", i, bounds[i], want[i])
		}
	}
	for _, n := range []int{1, 2, 3} {
		if !hasTx(t, env.db, n) {
			t.Errorf("tx %d not applied", n)
		}
	}
}

func TestSyncAddress_AtTip(t *testing.T) {
	env := newTestEnv(t, 100)
	a := env.track(t, 1, 100)

	res, err := env.engine.SyncAddress(context.Background(), a, 100)
	if err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if res.Status != StatusAdvanced || res.Height != 100 || res.Windows != 0 {
		t.Errorf("outcome = %+v, want no-op at 100", res)
	}
	if n := len(env.chain.txCalls()); n != 0 {
		t.Errorf("made %d history requests at tip, want 0", n)
	}
}

// Scenario B: a box created at 103 and spent at 105 within one window.
func TestSyncAddress_CreateThenSpendInWindow(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	other := testAddr(9)

	env.chain.add(
		mkTx(1, 103, nil, output(1, a.Address, 5000)),
		mkTx(2, 105, []chainclient.Input{spend(1, a.Address)}, output(2, other, 4000), output(3, a.Address, 900)),
	)

	if _, err := env.engine.SyncAddress(context.Background(), a, 100); err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}

	b := getBox(t, env.db, 1)
	if !b.Spent || b.SpendTxID == nil || *b.SpendTxID != txID(2) || b.SpendHeight != 105 {
		t.Errorf("box 1 = %+v, want spent by tx 2 at 105", b)
	}
	if !hasTx(t, env.db, 1) {
		t.Error("creating tx missing")
	}
	if ok, _ := utxo.NewStore(env.db).Has(boxID(2)); ok {
		t.Error("output to a foreign address should not be stored")
	}

	bal, _ := wallet.AddressBalance(utxo.NewStore(env.db), a.ID)
	if !bal.Erg.Equal(types.NewAmount(900)) {
		t.Errorf("balance = %s, want 900", bal.Erg)
	}
}

func TestSyncAddress_SpendBeforeCreateInSameHeight(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)

	// Spender arrives before the creator at the same height.
	env.chain.add(
		mkTx(2, 104, []chainclient.Input{spend(1, a.Address)}),
		mkTx(1, 104, nil, output(1, a.Address, 5000)),
	)

	if _, err := env.engine.SyncAddress(context.Background(), a, 100); err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if b := getBox(t, env.db, 1); !b.Spent {
		t.Error("box should be spent after the batch")
	}
}

// Scenario C: local header at 110 disagrees with the block claimed by an
// incoming transaction at 110.
func TestSyncAddress_ForkRollsBack(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)

	chain.NewHeaderStore(env.db).Put(&chain.Header{Height: 110, ID: types.BlockID{0xab, 0xc}})

	forked := mkTx(2, 110, nil, output(2, a.Address, 20))
	forked.BlockID = types.BlockID{0x99}
	env.chain.add(
		mkTx(1, 105, nil, output(1, a.Address, 10)),
		forked,
		mkTx(3, 112, nil, output(3, a.Address, 30)),
	)

	res, err := env.engine.SyncAddress(context.Background(), a, 100)
	if err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if res.Status != StatusForked || res.Height != 109 {
		t.Fatalf("outcome = %+v, want forked at 109", res)
	}
	if res.Fork == nil || res.Fork.Height != 110 || res.Fork.Rollback != 109 {
		t.Errorf("fork = %+v", res.Fork)
	}
	if got := env.cursor(t, a); got != 109 {
		t.Errorf("cursor = %d, want 109", got)
	}
	if !hasTx(t, env.db, 1) {
		t.Error("tx below the fork should be persisted")
	}
	for _, n := range []int{2, 3} {
		if hasTx(t, env.db, n) {
			t.Errorf("tx %d at or above the fork height was persisted", n)
		}
	}
	if ok, _ := utxo.NewStore(env.db).Has(boxID(3)); ok {
		t.Error("box above the fork height was persisted")
	}
}

func TestSyncAddress_ForkAtWindowStart(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	chain.NewHeaderStore(env.db).Put(&chain.Header{Height: 100, ID: types.BlockID{0x01}})
	env.chain.add(mkTx(1, 100, nil, output(1, a.Address, 10)))

	res, err := env.engine.SyncAddress(context.Background(), a, 100)
	if err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if res.Status != StatusForked || res.Height != 99 {
		t.Errorf("outcome = %+v, want forked at 99", res)
	}
	if hasTx(t, env.db, 1) {
		t.Error("nothing should be persisted")
	}
}

func TestSyncAddress_IdempotentResync(t *testing.T) {
	env := newTestEnv(t, 200)
	a := env.track(t, 1, 100)
	env.chain.add(
		mkTx(1, 103, nil, output(1, a.Address, 5000, token(1, 50))),
		mkTx(2, 140, []chainclient.Input{spend(1, a.Address)}, output(2, a.Address, 4000, token(1, 50))),
		mkTx(3, 170, nil, output(3, a.Address, 700, token(2, 3))),
	)

	if _, err := env.engine.SyncAddress(context.Background(), a, 100); err != nil {
		t.Fatalf("first SyncAddress() error: %v", err)
	}
	first, _ := wallet.AddressBalance(utxo.NewStore(env.db), a.ID)
	firstBoxes, _ := utxo.NewStore(env.db).GetByAddress(a.ID)
	firstCommit, _ := utxo.Commitment(utxo.NewStore(env.db), a.ID)

	if _, err := env.engine.SyncAddress(context.Background(), a, 100); err != nil {
		t.Fatalf("second SyncAddress() error: %v", err)
	}
	second, _ := wallet.AddressBalance(utxo.NewStore(env.db), a.ID)
	secondBoxes, _ := utxo.NewStore(env.db).GetByAddress(a.ID)
	secondCommit, _ := utxo.Commitment(utxo.NewStore(env.db), a.ID)

	if len(firstBoxes) != 3 || len(secondBoxes) != 3 {
		t.Errorf("box rows = %d then %d, want 3", len(firstBoxes), len(secondBoxes))
	}
	if !first.Erg.Equal(second.Erg) || len(first.Tokens) != len(second.Tokens) {
		t.Errorf("balance changed on re-sync: %+v vs %+v", first, second)
	}
	if firstCommit != secondCommit {
		t.Error("box commitment changed on re-sync")
	}
	if b := getBox(t, env.db, 1); !b.Spent {
		t.Error("re-sync resurrected a spent box")
	}
}

func TestSyncAddress_DanglingSpendAbortsWindow(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	env.chain.add(
		mkTx(1, 103, nil, output(1, a.Address, 10)),
		mkTx(2, 105, []chainclient.Input{spend(77, a.Address)}),
	)

	_, err := env.engine.SyncAddress(context.Background(), a, 100)
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("error = %v, want *IntegrityError", err)
	}
	if !errors.Is(err, ErrDanglingSpend) || ie.BoxID != boxID(77) || ie.TxID != txID(2) || ie.Height != 105 {
		t.Errorf("integrity error = %+v", ie)
	}

	if got := env.cursor(t, a); got != 100 {
		t.Errorf("cursor = %d after failed window, want 100", got)
	}
	if hasTx(t, env.db, 1) {
		t.Error("failed window left a partial write")
	}
}

func TestSyncAddress_ForeignInputIgnored(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	stranger := testAddr(50)

	env.chain.add(mkTx(1, 104, []chainclient.Input{spend(60, stranger)}, output(1, a.Address, 10)))

	if _, err := env.engine.SyncAddress(context.Background(), a, 100); err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if got := env.cursor(t, a); got != 120 {
		t.Errorf("cursor = %d, want 120", got)
	}
}

func TestSyncAddress_DoubleSpend(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	env.chain.add(
		mkTx(1, 103, nil, output(1, a.Address, 10)),
		mkTx(2, 105, []chainclient.Input{spend(1, a.Address)}),
		mkTx(3, 107, []chainclient.Input{spend(1, a.Address)}),
	)

	_, err := env.engine.SyncAddress(context.Background(), a, 100)
	if !errors.Is(err, ErrDoubleSpend) {
		t.Fatalf("error = %v, want ErrDoubleSpend", err)
	}
	if !errors.Is(err, utxo.ErrSpentElsewhere) {
		t.Error("double spend should wrap the store error")
	}
}

func TestSyncAddress_CrossAddressSpend(t *testing.T) {
	for _, order := range []string{"owner first", "spender first"} {
		t.Run(order, func(t *testing.T) {
			env := newTestEnv(t, 120)
			a := env.track(t, 1, 100)
			b := env.track(t, 2, 100)

			env.chain.add(
				mkTx(1, 102, nil, output(5, b.Address, 1000)),
				mkTx(2, 106, []chainclient.Input{spend(5, b.Address)}, output(6, a.Address, 990)),
			)

			first, second := b, a
			if order == "spender first" {
				first, second = a, b
			}
			for _, addr := range []*wallet.Address{first, second} {
				if _, err := env.engine.SyncAddress(context.Background(), addr, 100); err != nil {
					t.Fatalf("SyncAddress(%s) error: %v", addr.Address, err)
				}
			}

			box := getBox(t, env.db, 5)
			if !box.Spent || *box.SpendTxID != txID(2) {
				t.Errorf("box 5 = %+v, want spent by tx 2", box)
			}
			if box.AddressID != b.ID {
				t.Errorf("box 5 owner = %s, want %s", box.AddressID, b.ID)
			}
			if got := getBox(t, env.db, 6); got.AddressID != a.ID || got.Spent {
				t.Errorf("box 6 = %+v", got)
			}
		})
	}
}

func TestSyncAddress_ConcurrentAddresses(t *testing.T) {
	env := newTestEnv(t, 300)
	a := env.track(t, 1, 0)
	b := env.track(t, 2, 0)

	env.chain.add(
		mkTx(1, 10, nil, output(1, b.Address, 1000)),
		mkTx(2, 60, []chainclient.Input{spend(1, b.Address)}, output(2, a.Address, 500), output(3, b.Address, 499)),
		mkTx(3, 200, []chainclient.Input{spend(2, a.Address)}, output(4, b.Address, 499)),
	)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, addr := range []*wallet.Address{a, b} {
		wg.Add(1)
		go func(addr *wallet.Address) {
			defer wg.Done()
			_, err := env.engine.SyncAddress(context.Background(), addr, 0)
			errs <- err
		}(addr)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SyncAddress() error: %v", err)
		}
	}

	// Re-syncing either side must not disturb what the race produced.
	if _, err := env.engine.SyncAddress(context.Background(), a, 0); err != nil {
		t.Fatalf("re-sync error: %v", err)
	}
	for _, n := range []int{1, 2} {
		if box := getBox(t, env.db, n); !box.Spent {
			t.Errorf("box %d should be spent", n)
		}
	}
	balB, _ := wallet.AddressBalance(utxo.NewStore(env.db), b.ID)
	if !balB.Erg.Equal(types.NewAmount(998)) {
		t.Errorf("balance of b = %s, want 998", balB.Erg)
	}
}

func TestSyncAddress_CancelledBetweenWindows(t *testing.T) {
	env := newTestEnv(t, 200)
	a := env.track(t, 1, 100)
	env.chain.add(mkTx(1, 110, nil, output(1, a.Address, 10)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.chain.onFetch = func(n int) {
		if n == 1 {
			cancel()
		}
	}

	res, err := env.engine.SyncAddress(ctx, a, 100)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	// The window in flight completes; the next one never starts.
	if res.Height != 150 || res.Windows != 1 {
		t.Errorf("outcome = %+v, want one window to 150", res)
	}
	if got := env.cursor(t, a); got != 150 {
		t.Errorf("cursor = %d, want 150", got)
	}
}

func TestSyncAddress_CancelledBeforeStart(t *testing.T) {
	env := newTestEnv(t, 200)
	a := env.track(t, 1, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.engine.SyncAddress(ctx, a, 100); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if got := env.cursor(t, a); got != 100 {
		t.Errorf("cursor = %d, want 100", got)
	}
}

func TestSyncAddress_ProviderFailureKeepsCursor(t *testing.T) {
	env := newTestEnv(t, 200)
	a := env.track(t, 1, 100)
	env.chain.failFor[a.Address] = chainclient.ErrChainUnavailable

	_, err := env.engine.SyncAddress(context.Background(), a, 100)
	if !errors.Is(err, chainclient.ErrChainUnavailable) {
		t.Fatalf("error = %v, want ErrChainUnavailable", err)
	}
	if got := env.cursor(t, a); got != 100 {
		t.Errorf("cursor = %d, want 100", got)
	}
}

func TestSyncAddress_WrongNetwork(t *testing.T) {
	env := newTestEnv(t, 200)
	a := &wallet.Address{ID: "x", Address: testAddr(1), Network: types.Mainnet}
	if _, err := env.engine.SyncAddress(context.Background(), a, 0); err == nil {
		t.Error("SyncAddress() accepted an address from another network")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig(types.Mainnet).Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	bad := DefaultConfig(types.Mainnet)
	bad.WindowSize = 0
	if bad.Validate() == nil {
		t.Error("zero window accepted")
	}
	bad = DefaultConfig(types.Mainnet)
	bad.InitialPageSize = 0
	if bad.Validate() == nil {
		t.Error("zero page size accepted")
	}
	bad = DefaultConfig("regtest")
	if bad.Validate() == nil {
		t.Error("unknown network accepted")
	}
}

func TestSyncAddress_ForkRollsBackNetwork(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	b := env.track(t, 2, 100)
	env.chain.add(
		mkTx(1, 110, nil, output(1, a.Address, 10)),
		mkTx(2, 103, nil, output(2, b.Address, 20)),
		mkTx(3, 115, []chainclient.Input{spend(2, b.Address)}, output(3, b.Address, 19)),
	)
	if _, err := env.engine.SyncAddress(context.Background(), b, 100); err != nil {
		t.Fatalf("SyncAddress(b) error: %v", err)
	}

	// The block at 110 is replaced after b was synced past it.
	chain.NewHeaderStore(env.db).Put(&chain.Header{Height: 110, ID: types.BlockID{0xab}})

	res, err := env.engine.SyncAddress(context.Background(), a, 100)
	if err != nil {
		t.Fatalf("SyncAddress(a) error: %v", err)
	}
	if res.Status != StatusForked || res.Height != 109 {
		t.Fatalf("outcome = %+v, want forked at 109", res)
	}

	if got := env.cursor(t, b); got != 109 {
		t.Errorf("cursor of b = %d, want 109", got)
	}
	if hasTx(t, env.db, 3) {
		t.Error("tx above the fork survived the rollback")
	}
	if ok, _ := utxo.NewStore(env.db).Has(boxID(3)); ok {
		t.Error("box above the fork survived the rollback")
	}
	if box := getBox(t, env.db, 2); box.Spent {
		t.Errorf("spend above the fork not cleared: %+v", box)
	}

	// b still carries the cursor it synced to.
	if _, err := env.engine.SyncAddress(context.Background(), b, 100); !errors.Is(err, ErrCursorMoved) {
		t.Errorf("stale sync of b error = %v, want ErrCursorMoved", err)
	}
}

func TestSyncAddress_CursorMovedDuringFetch(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	env.chain.add(mkTx(1, 105, nil, output(1, a.Address, 10)))
	env.chain.onFetch = func(n int) {
		if n == 1 {
			env.reg.SetHeight(a.ID, 90)
		}
	}

	_, err := env.engine.SyncAddress(context.Background(), a, 100)
	if !errors.Is(err, ErrCursorMoved) {
		t.Fatalf("error = %v, want ErrCursorMoved", err)
	}
	if got := env.cursor(t, a); got != 90 {
		t.Errorf("cursor = %d, want the rewound 90", got)
	}
	if hasTx(t, env.db, 1) {
		t.Error("window applied over a moved cursor")
	}
}

func TestSyncAddress_HeaderStoredDuringFetch(t *testing.T) {
	env := newTestEnv(t, 120)
	a := env.track(t, 1, 100)
	env.chain.add(mkTx(1, 104, nil, output(1, a.Address, 10)))
	env.chain.onFetch = func(n int) {
		if n == 1 {
			chain.NewHeaderStore(env.db).Put(&chain.Header{Height: 104, ID: types.BlockID{0x42}})
		}
	}

	res, err := env.engine.SyncAddress(context.Background(), a, 100)
	if err != nil {
		t.Fatalf("SyncAddress() error: %v", err)
	}
	if res.Status != StatusForked || res.Height != 103 {
		t.Errorf("outcome = %+v, want forked at 103", res)
	}
	if hasTx(t, env.db, 1) {
		t.Error("tx on the replaced block was persisted")
	}
}

func TestSyncAddress_RescanKeepsCursor(t *testing.T) {
	t.Run("cancelled", func(t *testing.T) {
		env := newTestEnv(t, 260)
		a := env.track(t, 1, 200)
		env.chain.add(mkTx(1, 120, nil, output(1, a.Address, 10)))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		env.chain.onFetch = func(n int) {
			if n == 1 {
				cancel()
			}
		}

		res, err := env.engine.SyncAddress(ctx, a, 100)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		if res.Windows != 1 || res.Height != 200 {
			t.Errorf("outcome = %+v, want one window keeping 200", res)
		}
		if got := env.cursor(t, a); got != 200 {
			t.Errorf("cursor = %d, want 200", got)
		}
		if !hasTx(t, env.db, 1) {
			t.Error("rescanned window was not applied")
		}
	})

	t.Run("failed", func(t *testing.T) {
		env := newTestEnv(t, 260)
		a := env.track(t, 1, 200)
		env.chain.add(
			mkTx(1, 120, nil, output(1, a.Address, 10)),
			mkTx(2, 160, []chainclient.Input{spend(77, a.Address)}),
		)

		if _, err := env.engine.SyncAddress(context.Background(), a, 100); !errors.Is(err, ErrDanglingSpend) {
			t.Fatalf("error = %v, want ErrDanglingSpend", err)
		}
		if got := env.cursor(t, a); got != 200 {
			t.Errorf("cursor = %d, want 200", got)
		}
	})

	t.Run("completed", func(t *testing.T) {
		env := newTestEnv(t, 260)
		a := env.track(t, 1, 200)
		env.chain.add(mkTx(1, 120, nil, output(1, a.Address, 10)))

		var cursors []uint64
		env.chain.onFetch = func(int) {
			got, _ := env.reg.Get(a.ID)
			cursors = append(cursors, got.Height)
		}
		res, err := env.engine.SyncAddress(context.Background(), a, 100)
		if err != nil {
			t.Fatalf("SyncAddress() error: %v", err)
		}
		if res.Height != 260 || res.Windows != 4 {
			t.Errorf("outcome = %+v, want 260 after 4 windows", res)
		}
		for _, c := range cursors {
			if c < 200 {
				t.Fatalf("cursor dropped below 200 during rescan: %v", cursors)
			}
		}
	})
}
