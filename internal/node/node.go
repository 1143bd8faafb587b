// Package node wires the sync daemon: storage, chain clients, the sync
// manager and the RPC and metrics listeners.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/omahs/minotaur-wallet/config"
	"github.com/omahs/minotaur-wallet/internal/chainclient"
	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/metrics"
	"github.com/omahs/minotaur-wallet/internal/rpc"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/syncer"
	"github.com/rs/zerolog"
)

// startupCheckTimeout bounds the node reachability check done in New.
const startupCheckTimeout = 5 * time.Second

// Node is a fully-initialized sync daemon.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	// Storage
	rootDB storage.DB
	db     *storage.PrefixDB

	// Sync
	client  *chainclient.Retrying
	engine  *syncer.Engine
	headers *syncer.HeaderTracker
	manager *syncer.Manager

	// Listeners
	rpcServer     *rpc.Server
	metricsServer *http.Server
	metricsLn     net.Listener

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and initializes a new Node. It performs all setup steps
// (logger, storage, chain clients, sync components, RPC, metrics) but does
// NOT start the sync loop. Call Start() for that.
func New(cfg *config.Config) (*Node, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := expandHome(cfg.Log.File)
	if logFile == "" && !cfg.InMemory {
		logsDir := expandHome(cfg.LogsDir())
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "minotaur.log")
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := klog.WithComponent("node")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("version", config.Version).
		Str("node", cfg.Node.URL).
		Str("explorer", cfg.Explorer.URL).
		Msg("Starting Minotaur sync daemon")

	// ── 2. Open storage ─────────────────────────────────────────────
	rootDB, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}
	db := storage.NewPrefixDB(rootDB, networkPrefix(cfg))
	if cfg.InMemory {
		logger.Warn().Msg("Using in-memory storage; state is lost on exit")
	} else {
		logger.Info().Str("path", cfg.DBDir()).Msg("Database opened")
	}
	if cfg.Reset {
		if err := db.DeleteAll(); err != nil {
			rootDB.Close()
			return nil, fmt.Errorf("reset %s state: %w", cfg.Network, err)
		}
		logger.Warn().Str("network", string(cfg.Network)).Msg("Synchronized state dropped")
	}

	// ── 3. Chain clients ────────────────────────────────────────────
	client, nodeClient := newChainClient(cfg)

	checkCtx, checkCancel := context.WithTimeout(context.Background(), startupCheckTimeout)
	info, err := nodeClient.Info(checkCtx)
	checkCancel()
	if err != nil {
		logger.Warn().Err(err).Msg("Node unreachable at startup; sync will retry")
	} else if info.Network != "" && info.Network != string(cfg.Network) {
		rootDB.Close()
		return nil, fmt.Errorf("node at %s serves %s, configured for %s", cfg.Node.URL, info.Network, cfg.Network)
	} else {
		ev := logger.Info().Str("name", info.Name).Str("version", info.AppVersion)
		if info.FullHeight != nil {
			ev = ev.Uint64("height", *info.FullHeight)
		}
		ev.Msg("Node reachable")
	}

	// ── 4. Sync components ──────────────────────────────────────────
	engine, err := syncer.NewEngine(syncer.Config{
		WindowSize:      cfg.Sync.WindowSize,
		InitialPageSize: cfg.Sync.PageSize,
		Network:         cfg.Network,
	}, client, db)
	if err != nil {
		rootDB.Close()
		return nil, fmt.Errorf("create sync engine: %w", err)
	}
	headers := syncer.NewHeaderTracker(client, db, cfg.Network, cfg.Sync.HeaderDepth)
	verifier := syncer.NewVerifier(client, db, cfg.Network)
	manager := syncer.NewManager(syncer.ManagerConfig{
		Interval:       cfg.Sync.Interval,
		VerifyInterval: cfg.Verify.Interval,
		Workers:        cfg.Sync.Workers,
	}, engine, headers, verifier, db)

	created, err := registerAddresses(db, cfg)
	if err != nil {
		rootDB.Close()
		return nil, fmt.Errorf("register configured addresses: %w", err)
	}
	logger.Info().
		Int("configured", len(cfg.Sync.Addresses)).
		Int("new", created).
		Uint64("window", cfg.Sync.WindowSize).
		Int("workers", cfg.Sync.Workers).
		Msg("Sync manager ready")

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:     cfg,
		logger:  logger,
		rootDB:  rootDB,
		db:      db,
		client:  client,
		engine:  engine,
		headers: headers,
		manager: manager,
		ctx:     ctx,
		cancel:  cancel,
	}

	// ── 5. RPC server ───────────────────────────────────────────────
	if cfg.RPC.Enabled {
		rpcAddr := listenAddr(cfg.RPC.Addr, cfg.RPC.Port)
		n.rpcServer = rpc.New(rpcAddr, cfg.Network, db, manager, cfg.RPC)
		n.rpcServer.SetNodeInfo(nodeClient)
		if err := n.rpcServer.Start(); err != nil {
			n.Stop()
			return nil, fmt.Errorf("start RPC at %s: %w", rpcAddr, err)
		}
		logger.Info().Str("addr", n.rpcServer.Addr()).Msg("RPC server started")
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	// ── 6. Metrics ──────────────────────────────────────────────────
	if cfg.Metrics.Enabled {
		if err := n.startMetrics(); err != nil {
			n.Stop()
			return nil, err
		}
		logger.Info().Str("addr", n.MetricsAddr()).Msg("Metrics server started")
	}

	return n, nil
}

func (n *Node) startMetrics() error {
	addr := listenAddr(n.cfg.Metrics.Addr, n.cfg.Metrics.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen at %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	n.metricsLn = ln
	n.metricsServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := n.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			n.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Start launches the background sync loop.
func (n *Node) Start() error {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.manager.Run(n.ctx)
	}()

	n.logger.Info().
		Dur("interval", n.cfg.Sync.Interval).
		Dur("verify_interval", n.cfg.Verify.Interval).
		Msg("Node started successfully")
	return nil
}

// Stop performs graceful shutdown in reverse order.
func (n *Node) Stop() {
	n.cancel()
	n.wg.Wait()

	if n.rpcServer != nil {
		if err := n.rpcServer.Stop(); err != nil {
			n.logger.Warn().Err(err).Msg("RPC shutdown")
		}
	}
	if n.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.metricsServer.Shutdown(ctx); err != nil {
			n.logger.Warn().Err(err).Msg("Metrics shutdown")
		}
		cancel()
	}
	if n.rootDB != nil {
		if err := n.rootDB.Close(); err != nil {
			n.logger.Warn().Err(err).Msg("Database close")
		}
	}

	n.logger.Info().Msg("Goodbye!")
}

// RPCAddr returns the address the RPC server is listening on.
func (n *Node) RPCAddr() string {
	if n.rpcServer == nil {
		return ""
	}
	return n.rpcServer.Addr()
}

// MetricsAddr returns the address the metrics server is listening on.
func (n *Node) MetricsAddr() string {
	if n.metricsLn == nil {
		return ""
	}
	return n.metricsLn.Addr().String()
}

// Manager returns the sync manager.
func (n *Node) Manager() *syncer.Manager {
	return n.manager
}

// DB returns the network-scoped database.
func (n *Node) DB() storage.DB {
	return n.db
}
