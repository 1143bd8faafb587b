package chainclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// NodeInfo is the subset of the node's /info response the daemon uses.
type NodeInfo struct {
	Name          string  `json:"name"`
	AppVersion    string  `json:"appVersion"`
	Network       string  `json:"network"`
	FullHeight    *uint64 `json:"fullHeight"`
	HeadersHeight *uint64 `json:"headersHeight"`
	PeersCount    int     `json:"peersCount"`
}

// NodeClient queries an Ergo node's REST API.
type NodeClient struct {
	c httpClient
}

// NewNodeClient creates a client for the node at baseURL. A nil hc uses a
// default http.Client; per-call deadlines come from the context.
func NewNodeClient(baseURL string, hc *http.Client) *NodeClient {
	return &NodeClient{c: newHTTPClient(baseURL, hc)}
}

// Info returns the node's /info document.
func (n *NodeClient) Info(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	if err := n.c.getJSON(ctx, "node_info", "/info", nil, &info); err != nil {
		return nil, fmt.Errorf("node info: %w", err)
	}
	return &info, nil
}

// CurrentHeight returns the node's full-block height. A node that has not
// validated any full block yet reports 0.
func (n *NodeClient) CurrentHeight(ctx context.Context) (uint64, error) {
	info, err := n.Info(ctx)
	if err != nil {
		return 0, err
	}
	if info.FullHeight == nil {
		return 0, nil
	}
	return *info.FullHeight, nil
}

// LastHeaders returns up to count of the most recent headers, lowest height
// first.
func (n *NodeClient) LastHeaders(ctx context.Context, count int) ([]Header, error) {
	if count <= 0 {
		return nil, nil
	}
	var headers []Header
	path := "/blocks/lastHeaders/" + strconv.Itoa(count)
	if err := n.c.getJSON(ctx, "node_last_headers", path, nil, &headers); err != nil {
		return nil, fmt.Errorf("node last headers: %w", err)
	}
	return headers, nil
}
