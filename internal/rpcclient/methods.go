package rpcclient

import (
	"context"

	"github.com/omahs/minotaur-wallet/internal/rpc"
)

// AddAddress starts tracking address with its cursor at height.
func (c *Client) AddAddress(ctx context.Context, address string, height uint64) (*rpc.AddressResult, error) {
	var res rpc.AddressResult
	if err := c.CallContext(ctx, "address_add", rpc.AddAddressParam{Address: address, Height: height}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListAddresses returns every tracked address.
func (c *Client) ListAddresses(ctx context.Context) ([]rpc.AddressResult, error) {
	var res []rpc.AddressResult
	if err := c.CallContext(ctx, "address_list", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// SyncAddress runs one sync cycle. A nil from uses the stored cursor.
func (c *Client) SyncAddress(ctx context.Context, address string, from *uint64) (*rpc.SyncResult, error) {
	var res rpc.SyncResult
	if err := c.CallContext(ctx, "sync_address", rpc.SyncParam{Address: address, FromHeight: from}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// VerifyBalance compares the local balance with the explorer.
func (c *Client) VerifyBalance(ctx context.Context, address string) (*rpc.VerifyResult, error) {
	var res rpc.VerifyResult
	if err := c.CallContext(ctx, "sync_verifyBalance", rpc.AddressParam{Address: address}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Balance returns the locally derived balance of address.
func (c *Client) Balance(ctx context.Context, address string) (*rpc.BalanceResult, error) {
	var res rpc.BalanceResult
	if err := c.CallContext(ctx, "address_getBalance", rpc.AddressParam{Address: address}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Boxes returns the stored boxes of address.
func (c *Client) Boxes(ctx context.Context, address string, unspentOnly bool) ([]rpc.BoxResult, error) {
	var res []rpc.BoxResult
	if err := c.CallContext(ctx, "box_list", rpc.BoxListParam{Address: address, UnspentOnly: unspentOnly}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// NodeInfo returns daemon and upstream node status.
func (c *Client) NodeInfo(ctx context.Context) (*rpc.NodeInfoResult, error) {
	var res rpc.NodeInfoResult
	if err := c.CallContext(ctx, "node_getInfo", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
