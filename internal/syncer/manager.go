package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/metrics"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/wallet"
)

// ManagerConfig controls background scheduling.
type ManagerConfig struct {
	// Interval between sync rounds over all tracked addresses.
	Interval time.Duration
	// VerifyInterval between balance verification rounds; zero disables
	// periodic verification.
	VerifyInterval time.Duration
	// Workers bounds how many addresses sync at the same time.
	Workers int
}

// Manager runs sync cycles for every tracked address of one network and
// guarantees that a single address never has two cycles in flight.
type Manager struct {
	cfg      ManagerConfig
	engine   *Engine
	headers  *HeaderTracker
	verifier *Verifier
	db       storage.DB
	logger   zerolog.Logger

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewManager wires a manager. db must be the same network-scoped database
// the engine, tracker and verifier use.
func NewManager(cfg ManagerConfig, engine *Engine, headers *HeaderTracker, verifier *Verifier, db storage.DB) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	return &Manager{
		cfg:      cfg,
		engine:   engine,
		headers:  headers,
		verifier: verifier,
		db:       db,
		logger:   klog.Sync,
		locks:    make(map[string]chan struct{}),
	}
}

func (m *Manager) registry() *wallet.Registry {
	return wallet.NewRegistry(m.db, m.engine.cfg.Network)
}

// lock acquires the per-address slot, waiting until it is free or ctx ends.
func (m *Manager) lock(ctx context.Context, id string) (func(), error) {
	m.mu.Lock()
	ch, ok := m.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		m.locks[id] = ch
	}
	m.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SyncAddress runs one cycle for the address with the given id, starting at
// its stored cursor.
func (m *Manager) SyncAddress(ctx context.Context, id string) (Outcome, error) {
	return m.sync(ctx, id, nil)
}

// SyncAddressFrom runs one cycle starting at fromHeight instead of the stored
// cursor. Re-scanning already applied heights is harmless and never lowers
// the stored cursor, even when the cycle is cancelled or fails.
func (m *Manager) SyncAddressFrom(ctx context.Context, id string, fromHeight uint64) (Outcome, error) {
	return m.sync(ctx, id, &fromHeight)
}

func (m *Manager) sync(ctx context.Context, id string, from *uint64) (Outcome, error) {
	unlock, err := m.lock(ctx, id)
	if err != nil {
		return Outcome{}, err
	}
	defer unlock()

	// Read after locking so the cursor reflects the previous cycle.
	addr, err := m.registry().Get(id)
	if err != nil {
		return Outcome{}, err
	}
	start := addr.Height
	if from != nil {
		start = *from
	}

	began := time.Now()
	out, err := m.engine.SyncAddress(ctx, addr, start)
	metrics.SyncDuration.WithLabelValues(string(addr.Network)).Observe(time.Since(began).Seconds())
	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.SyncErrors.WithLabelValues(string(addr.Network), ErrorKind(err)).Inc()
	}
	return out, err
}

// VerifyAddress reconciles the balance of the address with the given id.
func (m *Manager) VerifyAddress(ctx context.Context, id string) (*Report, error) {
	addr, err := m.registry().Get(id)
	if err != nil {
		return nil, err
	}
	return m.verifier.Reconcile(ctx, addr)
}

// Cycle refreshes node headers and then syncs every tracked address, at most
// Workers at a time. A failing address is logged and does not affect the
// others. Returns an error only when the address list cannot be loaded.
func (m *Manager) Cycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	logger := m.logger.With().Str("cycle", cycleID).Logger()

	if m.headers != nil {
		if res, err := m.headers.Refresh(ctx); err != nil {
			logger.Warn().Err(err).Msg("Header refresh failed, syncing with stored headers")
		} else {
			logger.Debug().Uint64("tip", res.Tip).Int("added", res.Added).Msg("Headers refreshed")
		}
	}

	addrs, err := m.registry().List()
	if err != nil {
		return fmt.Errorf("list addresses: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for _, a := range addrs {
		a := a
		g.Go(func() error {
			out, err := m.SyncAddress(gctx, a.ID)
			l := logger.With().Str("address", a.Address.String()).Logger()
			switch {
			case err != nil:
				l.Error().Err(err).Str("kind", ErrorKind(err)).Msg("Address sync failed")
			case out.Status == StatusForked:
				l.Warn().Uint64("height", out.Height).Msg("Address sync stopped at fork")
			default:
				l.Debug().Uint64("height", out.Height).Int("txs", out.Txs).Msg("Address synced")
			}
			// Never cancel sibling addresses.
			return nil
		})
	}
	return g.Wait()
}

// VerifyAll reconciles every tracked address and logs the result.
func (m *Manager) VerifyAll(ctx context.Context) error {
	addrs, err := m.registry().List()
	if err != nil {
		return fmt.Errorf("list addresses: %w", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Workers)
	for _, a := range addrs {
		a := a
		g.Go(func() error {
			r, err := m.verifier.Reconcile(gctx, a)
			if err != nil {
				m.logger.Warn().Err(err).Str("address", a.Address.String()).Msg("Balance verification failed")
				return nil
			}
			if r.Match {
				klog.Verify.Debug().Str("address", a.Address.String()).Msg("Balance verified")
			}
			return nil
		})
	}
	return g.Wait()
}

// Run syncs all addresses immediately and then on every Interval tick until
// ctx is done. Balance verification runs on its own ticker.
func (m *Manager) Run(ctx context.Context) {
	m.logger.Info().
		Str("network", string(m.engine.cfg.Network)).
		Dur("interval", m.cfg.Interval).
		Int("workers", m.cfg.Workers).
		Msg("Sync manager started")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	var verifyC <-chan time.Time
	if m.cfg.VerifyInterval > 0 && m.verifier != nil {
		vt := time.NewTicker(m.cfg.VerifyInterval)
		defer vt.Stop()
		verifyC = vt.C
	}

	m.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Sync manager stopped")
			return
		case <-ticker.C:
			m.runCycle(ctx)
		case <-verifyC:
			if err := m.VerifyAll(ctx); err != nil {
				m.logger.Error().Err(err).Msg("Verification round failed")
			}
		}
	}
}

func (m *Manager) runCycle(ctx context.Context) {
	if err := m.Cycle(ctx); err != nil && ctx.Err() == nil {
		m.logger.Error().Err(err).Msg("Sync cycle failed")
	}
}
