package chainclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// ExplorerClient queries the Ergo explorer v1 API.
type ExplorerClient struct {
	c httpClient
}

// NewExplorerClient creates a client for the explorer at baseURL.
func NewExplorerClient(baseURL string, hc *http.Client) *ExplorerClient {
	return &ExplorerClient{c: newHTTPClient(baseURL, hc)}
}

// TransactionsForAddress returns one page of the address history in r.
// Items are stably sorted by inclusion height.
func (e *ExplorerClient) TransactionsForAddress(ctx context.Context, addr types.Address, r HeightRange, p Paging) (*Page, error) {
	q := url.Values{}
	q.Set("fromHeight", strconv.FormatUint(r.From, 10))
	q.Set("toHeight", strconv.FormatUint(r.To, 10))
	q.Set("offset", strconv.Itoa(p.Offset))
	q.Set("limit", strconv.Itoa(p.Limit))

	var page Page
	path := "/api/v1/addresses/" + url.PathEscape(addr.String()) + "/transactions"
	if err := e.c.getJSON(ctx, "explorer_address_txs", path, q, &page); err != nil {
		return nil, fmt.Errorf("explorer address transactions: %w", err)
	}
	sort.SliceStable(page.Items, func(i, j int) bool {
		return page.Items[i].InclusionHeight < page.Items[j].InclusionHeight
	})
	return &page, nil
}

// ConfirmedBalance returns the confirmed balance of addr.
func (e *ExplorerClient) ConfirmedBalance(ctx context.Context, addr types.Address) (*Balance, error) {
	var bal Balance
	path := "/api/v1/addresses/" + url.PathEscape(addr.String()) + "/balance/confirmed"
	if err := e.c.getJSON(ctx, "explorer_balance", path, nil, &bal); err != nil {
		return nil, fmt.Errorf("explorer confirmed balance: %w", err)
	}
	return &bal, nil
}
