package node

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/omahs/minotaur-wallet/config"
	"github.com/omahs/minotaur-wallet/internal/chainclient"
	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/internal/wallet"
)

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// networkPrefix scopes every key of one network inside the shared database.
func networkPrefix(cfg *config.Config) []byte {
	return []byte("n/" + string(cfg.Network) + "/")
}

// openStorage opens the backing database: badger under the data directory,
// or an in-memory store when configured.
func openStorage(cfg *config.Config) (storage.DB, error) {
	if cfg.InMemory {
		return storage.NewMemory(), nil
	}
	path := expandHome(cfg.DBDir())
	db, err := storage.NewBadger(path)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}
	return db, nil
}

// newChainClient composes the node and explorer clients behind the retry
// policy. The raw node client is returned as well for node_getInfo.
func newChainClient(cfg *config.Config) (*chainclient.Retrying, *chainclient.NodeClient) {
	hc := &http.Client{}
	node := chainclient.NewNodeClient(cfg.Node.URL, hc)
	explorer := chainclient.NewExplorerClient(cfg.Explorer.URL, hc)

	backoff := chainclient.NewBackoff(cfg.Retry.Attempts, cfg.Retry.BaseDelay)
	if cfg.Retry.MaxDelay > 0 {
		backoff.MaxDelay = cfg.Retry.MaxDelay
	}
	backoff.Logger = klog.Chain

	return chainclient.NewRetrying(chainclient.NewProvider(node, explorer), backoff, cfg.Retry.Timeout), node
}

// registerAddresses tracks every configured address that is not tracked yet.
// It returns the number of newly created records.
func registerAddresses(db storage.DB, cfg *config.Config) (int, error) {
	created := 0
	err := db.Update(func(kv storage.KV) error {
		reg := wallet.NewRegistry(kv, cfg.Network)
		for _, addr := range cfg.Sync.Addresses {
			_, isNew, err := reg.AddAt(addr, 0)
			if err != nil {
				return fmt.Errorf("register %s: %w", addr, err)
			}
			if isNew {
				created++
			}
		}
		return nil
	})
	return created, err
}

func listenAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
