package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	klog "github.com/omahs/minotaur-wallet/internal/log"
	"github.com/omahs/minotaur-wallet/internal/rpc"
	"github.com/omahs/minotaur-wallet/internal/storage"
	"github.com/omahs/minotaur-wallet/pkg/types"
)

func testAddr(seed byte) string {
	return types.EncodeAddress(types.Testnet, types.P2PK, bytes.Repeat([]byte{seed}, 33)).String()
}

// setupServer starts a real RPC server without a sync manager.
func setupServer(t *testing.T) *Client {
	t.Helper()
	klog.Init("error", false, "")

	srv := rpc.New("127.0.0.1:0", types.Testnet, storage.NewMemory(), nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start rpc: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return New(fmt.Sprintf("http://%s/", srv.Addr()))
}

func TestClient_AddAndList(t *testing.T) {
	c := setupServer(t)
	ctx := context.Background()

	added, err := c.AddAddress(ctx, testAddr(1), 500)
	if err != nil {
		t.Fatalf("AddAddress() error: %v", err)
	}
	if added.Height != 500 || added.ID == "" {
		t.Errorf("AddAddress() = %+v", added)
	}

	list, err := c.ListAddresses(ctx)
	if err != nil {
		t.Fatalf("ListAddresses() error: %v", err)
	}
	if len(list) != 1 || list[0].Address != testAddr(1) {
		t.Errorf("ListAddresses() = %+v", list)
	}

	bal, err := c.Balance(ctx, testAddr(1))
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if bal.NanoErgs != "0" || bal.Boxes != 0 {
		t.Errorf("Balance() = %+v", bal)
	}

	info, err := c.NodeInfo(ctx)
	if err != nil {
		t.Fatalf("NodeInfo() error: %v", err)
	}
	if info.Addresses != 1 || info.Network != "testnet" {
		t.Errorf("NodeInfo() = %+v", info)
	}
}

func TestClient_RPCError(t *testing.T) {
	c := setupServer(t)

	_, err := c.Boxes(context.Background(), testAddr(9), false)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	if rpcErr.Code != rpc.CodeNotFound {
		t.Errorf("code = %d, want %d", rpcErr.Code, rpc.CodeNotFound)
	}

	err = c.Call("does_not_exist", nil, nil)
	if !errors.As(err, &rpcErr) || rpcErr.Code != rpc.CodeMethodNotFound {
		t.Errorf("unknown method error = %v", err)
	}
}

func TestClient_ErrorData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      1,
			"error": map[string]interface{}{
				"code":    rpc.CodeIntegrity,
				"message": "dangling spend",
				"data":    rpc.IntegrityData{Kind: "dangling_spend", Height: 7},
			},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL).SyncAddress(context.Background(), testAddr(1), nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("error = %v, want *RPCError", err)
	}
	var data rpc.IntegrityData
	if err := json.Unmarshal(rpcErr.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Kind != "dangling_spend" || data.Height != 7 {
		t.Errorf("data = %+v", data)
	}
}

func TestClient_ContextCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := New(srv.URL).CallContext(ctx, "address_list", nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewWithTimeout(srv.URL, 50*time.Millisecond)
	if err := c.Call("address_list", nil, nil); err == nil {
		t.Error("Call() succeeded past the client timeout")
	}
}
