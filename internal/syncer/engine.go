package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/omahs/minotaur-wallet/internal/chainclient"
	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/metrics"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/wallet"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Default scan parameters.
const (
	DefaultWindowSize      = 50
	DefaultInitialPageSize = 10
)

// Config holds the scan parameters of an Engine.
type Config struct {
	// WindowSize is the height span fetched and applied as one unit.
	WindowSize uint64
	// InitialPageSize is the page limit used when paging through a window.
	// Every page of a window uses the same limit.
	InitialPageSize int
	Network         types.Network
}

// DefaultConfig returns the default scan parameters for network.
func DefaultConfig(network types.Network) Config {
	return Config{
		WindowSize:      DefaultWindowSize,
		InitialPageSize: DefaultInitialPageSize,
		Network:         network,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.WindowSize == 0 {
		return errors.New("window size must be positive")
	}
	if c.InitialPageSize <= 0 {
		return errors.New("page size must be positive")
	}
	if _, err := types.ParseNetwork(string(c.Network)); err != nil {
		return err
	}
	return nil
}

// Status is the way a sync call ended.
type Status string

const (
	// StatusAdvanced means the cursor reached the chain tip seen at the
	// start of the call.
	StatusAdvanced Status = "advanced"
	// StatusForked means a fork was detected and the cursor was rolled
	// back to Height.
	StatusForked Status = "forked"
)

// Outcome is the result of a successful SyncAddress call.
type Outcome struct {
	Status  Status `json:"status"`
	Height  uint64 `json:"height"`
	Fork    *Fork  `json:"fork,omitempty"`
	Windows int    `json:"windows"`
	Txs     int    `json:"txs"`
}

// Engine scans the history of one address at a time. It is safe for
// concurrent use on different addresses; callers serialize calls for the
// same address.
type Engine struct {
	cfg    Config
	client chainclient.Client
	db     storage.DB
}

// NewEngine creates an engine. db must be scoped to cfg.Network.
func NewEngine(cfg Config, client chainclient.Client, db storage.DB) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sync config: %w", err)
	}
	if client == nil {
		return nil, errors.New("chain client is nil")
	}
	if db == nil {
		return nil, errors.New("storage db is nil")
	}
	return &Engine{
		cfg:    cfg,
		client: client,
		db:     db,
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// SyncAddress scans addr from fromHeight up to the chain tip observed at the
// start of the call, one window at a time. Each window is applied
// atomically together with the cursor update.
//
// A fork ends the call early with StatusForked; the network is rolled back
// and the cursor then sits at the rollback height. Rescanning from below
// the stored cursor never lowers it outside a fork. Cancellation is
// honoured between windows only; a window whose fetch is interrupted
// persists nothing.
func (e *Engine) SyncAddress(ctx context.Context, addr *wallet.Address, fromHeight uint64) (Outcome, error) {
	if addr.Network != e.cfg.Network {
		return Outcome{}, fmt.Errorf("address %s is on %s, engine on %s", addr.Address, addr.Network, e.cfg.Network)
	}
	logger := klog.WithAddress("sync", addr.Address.String())

	tip, err := e.client.CurrentHeight(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("chain tip: %w", err)
	}
	metrics.ChainHead.WithLabelValues(string(e.cfg.Network)).Set(float64(tip))

	// pos is the next height to scan. It only differs from the stored
	// cursor while rescanning below it.
	out := Outcome{Status: StatusAdvanced, Height: max(fromHeight, addr.Height)}
	pos := fromHeight
	for pos < tip {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		r := chainclient.HeightRange{From: pos, To: pos + e.cfg.WindowSize}
		if r.To > tip || r.To < pos {
			r.To = tip
		}

		txs, err := e.fetchWindow(ctx, addr.Address, r)
		if err != nil {
			return out, fmt.Errorf("fetch window [%d, %d]: %w", r.From, r.To, err)
		}
		groups, err := GroupByHeight(txs)
		if err != nil {
			return out, err
		}
		res, err := e.applyWindow(addr, groups, r)
		if err != nil {
			return out, err
		}
		pos = r.To
		out.Height = res.cursor
		out.Windows++
		out.Txs += res.applied

		metrics.WindowsApplied.WithLabelValues(string(e.cfg.Network)).Inc()
		metrics.TxsApplied.WithLabelValues(string(e.cfg.Network)).Add(float64(res.applied))
		metrics.AddressHeight.WithLabelValues(string(e.cfg.Network), addr.Address.String()).Set(float64(res.cursor))

		if fork := res.fork; fork != nil {
			metrics.ForkCount.WithLabelValues(string(e.cfg.Network)).Inc()
			reportRollback(e.cfg.Network, "fork", res.rollback)
			logger.Warn().
				Uint64("fork_height", fork.Height).
				Uint64("rollback", fork.Rollback).
				Str("local_block", fork.LocalID.String()).
				Str("remote_block", fork.RemoteID.String()).
				Msg("Fork detected, cursor rolled back")
			out.Status = StatusForked
			out.Fork = fork
			return out, nil
		}

		logger.Debug().
			Uint64("from", r.From).
			Uint64("to", r.To).
			Int("txs", groups.Count()).
			Int("applied", res.applied).
			Msg("Window applied")
	}
	return out, nil
}

// fetchWindow accumulates every page of r. Paging stops at the first empty
// page.
func (e *Engine) fetchWindow(ctx context.Context, addr types.Address, r chainclient.HeightRange) ([]chainclient.Transaction, error) {
	var all []chainclient.Transaction
	p := chainclient.Paging{Offset: 0, Limit: e.cfg.InitialPageSize}
	for {
		page, err := e.client.TransactionsForAddress(ctx, addr, r, p)
		if err != nil {
			return nil, err
		}
		if page == nil || len(page.Items) == 0 {
			return all, nil
		}
		all = append(all, page.Items...)
		p.Offset += p.Limit
	}
}
