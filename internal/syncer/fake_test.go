package syncer

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/omahs/minotaur-wallet/internal/chainclient"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/wallet"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// txCall records one TransactionsForAddress request.
type txCall struct {
	addr types.Address
	r    chainclient.HeightRange
	p    chainclient.Paging
}

// fakeChain is a scripted in-memory chainclient.Client.
type fakeChain struct {
	mu       sync.Mutex
	tip      uint64
	txs      []chainclient.Transaction
	headers  []chainclient.Header
	balances map[types.Address]*chainclient.Balance
	failFor  map[types.Address]error
	calls    []txCall
	// onFetch runs after every TransactionsForAddress call, outside the lock.
	onFetch func(n int)
}

func newFakeChain(tip uint64) *fakeChain {
	return &fakeChain{
		tip:      tip,
		balances: make(map[types.Address]*chainclient.Balance),
		failFor:  make(map[types.Address]error),
	}
}

func (f *fakeChain) add(txs ...chainclient.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, txs...)
}

// switchBranch replaces the chain the fake serves.
func (f *fakeChain) switchBranch(tip uint64, headers []chainclient.Header, txs ...chainclient.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tip = tip
	f.headers = headers
	f.txs = txs
}

func (f *fakeChain) CurrentHeight(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tip, nil
}

func involves(tx chainclient.Transaction, addr types.Address) bool {
	for _, in := range tx.Inputs {
		if in.Address == addr {
			return true
		}
	}
	for _, out := range tx.Outputs {
		if out.Address == addr {
			return true
		}
	}
	return false
}

func (f *fakeChain) TransactionsForAddress(_ context.Context, addr types.Address, r chainclient.HeightRange, p chainclient.Paging) (*chainclient.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, txCall{addr: addr, r: r, p: p})
	n := len(f.calls)
	if err := f.failFor[addr]; err != nil {
		f.mu.Unlock()
		return nil, err
	}
	var match []chainclient.Transaction
	for _, tx := range f.txs {
		if tx.InclusionHeight < int64(r.From) || tx.InclusionHeight > int64(r.To) {
			continue
		}
		if involves(tx, addr) {
			match = append(match, tx)
		}
	}
	sort.SliceStable(match, func(i, j int) bool { return match[i].InclusionHeight < match[j].InclusionHeight })
	page := &chainclient.Page{Total: len(match)}
	if p.Offset < len(match) {
		end := p.Offset + p.Limit
		if end > len(match) {
			end = len(match)
		}
		page.Items = append(page.Items, match[p.Offset:end]...)
	}
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return page, nil
}

func (f *fakeChain) ConfirmedBalance(_ context.Context, addr types.Address) (*chainclient.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[addr]; err != nil {
		return nil, err
	}
	if b, ok := f.balances[addr]; ok {
		return b, nil
	}
	return &chainclient.Balance{}, nil
}

func (f *fakeChain) LastHeaders(_ context.Context, count int) ([]chainclient.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hs := f.headers
	if len(hs) > count {
		hs = hs[len(hs)-count:]
	}
	return append([]chainclient.Header(nil), hs...), nil
}

func (f *fakeChain) txCalls() []txCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]txCall(nil), f.calls...)
}

// ── Fixtures ────────────────────────────────────────────────────────

func testAddr(seed byte) types.Address {
	return types.EncodeAddress(types.Testnet, types.P2PK, bytes.Repeat([]byte{seed}, 33))
}

func boxID(n int) types.BoxID { return types.BoxID{0xb0, byte(n >> 8), byte(n)} }
func txID(n int) types.TxID   { return types.TxID{0x70, byte(n >> 8), byte(n)} }

// blockAt is the canonical block id at height h.
func blockAt(h uint64) types.BlockID { return types.BlockID{0xcc, byte(h >> 8), byte(h)} }

func output(box int, addr types.Address, value uint64, assets ...types.TokenAmount) chainclient.Output {
	return chainclient.Output{BoxID: boxID(box), Address: addr, Value: types.NewAmount(value), Assets: assets}
}

func spend(box int, addr types.Address) chainclient.Input {
	return chainclient.Input{BoxID: boxID(box), Address: addr}
}

func token(id byte, amount uint64) types.TokenAmount {
	return types.TokenAmount{TokenID: types.TokenID{0x7e, id}, Amount: types.NewAmount(amount)}
}

// mkTx builds transaction n at height on the canonical chain.
func mkTx(n int, height int64, ins []chainclient.Input, outs ...chainclient.Output) chainclient.Transaction {
	tx := chainclient.Transaction{
		ID:              txID(n),
		BlockID:         blockAt(uint64(height)),
		InclusionHeight: height,
		Timestamp:       1700000000000 + height,
		Inputs:          ins,
	}
	for i, o := range outs {
		o.TransactionID = tx.ID
		o.Index = uint32(i)
		tx.Outputs = append(tx.Outputs, o)
	}
	for i := range tx.Inputs {
		tx.Inputs[i].Index = uint32(i)
	}
	return tx
}

type testEnv struct {
	db     storage.DB
	reg    *wallet.Registry
	chain  *fakeChain
	engine *Engine
}

func newTestEnv(t *testing.T, tip uint64) *testEnv {
	t.Helper()
	db := storage.NewMemory()
	fc := newFakeChain(tip)
	eng, err := NewEngine(DefaultConfig(types.Testnet), fc, db)
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return &testEnv{
		db:     db,
		reg:    wallet.NewRegistry(db, types.Testnet),
		chain:  fc,
		engine: eng,
	}
}

// track registers the address for seed with its cursor at height.
func (e *testEnv) track(t *testing.T, seed byte, height uint64) *wallet.Address {
	t.Helper()
	a, err := e.reg.Add(testAddr(seed).String())
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if err := e.reg.SetHeight(a.ID, height); err != nil {
		t.Fatalf("SetHeight() error: %v", err)
	}
	a.Height = height
	return a
}

func (e *testEnv) cursor(t *testing.T, a *wallet.Address) uint64 {
	t.Helper()
	got, err := e.reg.Get(a.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	return got.Height
}
