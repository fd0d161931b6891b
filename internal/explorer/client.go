// Package explorer implements the thin HTTP client for the "new pools"
// and "recently updated tokens" discovery feed (A5), mirroring
// internal/aggregator's ClientOption idiom and rate limiting.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"solana-memecoin-agent/internal/domain"
)

// Client is a rate-limited HTTP client over a pool-explorer's REST feed.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets the underlying HTTP client's timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithRatePerMinute sets the per-endpoint token-bucket budget.
func WithRatePerMinute(n int) ClientOption {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(float64(n)/60.0), n) }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.http = client }
}

// NewClient builds an explorer client against baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(30.0/60.0), 30),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("explorer: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("explorer: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("explorer: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("explorer: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("explorer: %s returned status %d: %s", path, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("explorer: unmarshal %s: %w", path, err)
	}
	return nil
}

// newPoolEntry is the subset of a "new pools" listing entry this client
// uses; extra upstream fields are ignored.
type newPoolEntry struct {
	Address        string  `json:"address"`
	BaseTokenAddr  string  `json:"base_token_address"`
	QuoteTokenAddr string  `json:"quote_token_address"`
	ReserveUSD     float64 `json:"reserve_in_usd"`
}

type newPoolsResponse struct {
	Data []newPoolEntry `json:"data"`
}

// NewPools returns recently created pools as PoolDescriptors.
func (c *Client) NewPools(ctx context.Context) ([]domain.PoolDescriptor, error) {
	var resp newPoolsResponse
	if err := c.get(ctx, "/networks/solana/new_pools", &resp); err != nil {
		return nil, err
	}
	out := make([]domain.PoolDescriptor, 0, len(resp.Data))
	for _, p := range resp.Data {
		out = append(out, domain.PoolDescriptor{
			PoolID:               p.Address,
			BaseMint:             p.BaseTokenAddr,
			QuoteMint:            p.QuoteTokenAddr,
			DiscoverySource:      "explorer",
			LiquidityEstimateUSD: p.ReserveUSD,
		})
	}
	return out, nil
}

// recentlyUpdatedEntry is the subset of a "recently updated tokens"
// listing entry this client uses.
type recentlyUpdatedEntry struct {
	Address string `json:"address"`
}

type recentlyUpdatedResponse struct {
	Data []recentlyUpdatedEntry `json:"data"`
}

// RecentlyUpdatedTokens returns mints whose metadata or pools changed
// recently, a secondary discovery signal alongside NewPools.
func (c *Client) RecentlyUpdatedTokens(ctx context.Context) ([]string, error) {
	var resp recentlyUpdatedResponse
	if err := c.get(ctx, "/tokens/solana/recently_updated", &resp); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.Data))
	for _, t := range resp.Data {
		out = append(out, t.Address)
	}
	return out, nil
}
