package chainclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omahs/minotaur-wallet/internal/metrics"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// httpClient is the JSON-over-HTTP plumbing shared by the node and explorer
// clients.
type httpClient struct {
	base string
	http *http.Client
}

func newHTTPClient(baseURL string, hc *http.Client) httpClient {
	if hc == nil {
		hc = &http.Client{}
	}
	return httpClient{
		base: strings.TrimRight(baseURL, "/"),
		http: hc,
	}
}

// getJSON issues GET base+path?query and decodes the JSON body into out.
func (c httpClient) getJSON(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	start := time.Now()
	err := c.do(ctx, u, out)
	metrics.ChainRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.ChainRequests.WithLabelValues(op, outcome).Inc()
	return err
}

func (c httpClient) do(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{StatusCode: resp.StatusCode, URL: u, Body: strings.TrimSpace(string(body))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
