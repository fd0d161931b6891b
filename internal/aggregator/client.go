// Package aggregator implements the thin HTTP client for the
// "latest boosted tokens" / token-batch / token-pool-list discovery feed
// (A5), following solana.HTTPClient's ClientOption functional-options
// idiom and per-endpoint rate limiting via golang.org/x/time/rate.
package aggregator

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

// maxTokensPerBatch bounds a single token-batch call, per the upstream
// aggregator's documented limit.
const maxTokensPerBatch = 30

// Client is a rate-limited HTTP client over an aggregator's REST feed.
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

// NewClient builds an aggregator client against baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(300.0/60.0), 300),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("aggregator: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("aggregator: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("aggregator: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("aggregator: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("aggregator: %s returned status %d: %s", path, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("aggregator: unmarshal %s: %w", path, err)
	}
	return nil
}

// boostedTokenResponse is the subset of the latest-boosted-tokens payload
// this client cares about; extra upstream fields are ignored.
type boostedTokenResponse struct {
	TokenAddress string `json:"tokenAddress"`
	ChainID      string `json:"chainId"`
}

// LatestBoosted returns mints currently appearing in the aggregator's
// "latest boosted" feed, filtered to the Solana chain.
func (c *Client) LatestBoosted(ctx context.Context) ([]string, error) {
	var raw []boostedTokenResponse
	if err := c.get(ctx, "/token-boosts/latest/v1", &raw); err != nil {
		return nil, err
	}
	var mints []string
	for _, t := range raw {
		if t.ChainID == "solana" && t.TokenAddress != "" {
			mints = append(mints, t.TokenAddress)
		}
	}
	return mints, nil
}

// pairResponse is the subset of the token-pools payload used to build a
// MarketSnapshot; extra upstream fields are ignored.
type pairResponse struct {
	PairAddress string `json:"pairAddress"`
	BaseToken   struct {
		Address string `json:"address"`
	} `json:"baseToken"`
	PriceUsd  string `json:"priceUsd"`
	Liquidity struct {
		Usd float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
	} `json:"priceChange"`
}

type tokenBatchResponse struct {
	Pairs []pairResponse `json:"pairs"`
}

// TokenBatch fetches market snapshots for up to maxTokensPerBatch mints in
// a single call, splitting larger inputs across sequential requests.
func (c *Client) TokenBatch(ctx context.Context, mints []string) ([]domain.MarketSnapshot, error) {
	var out []domain.MarketSnapshot
	for start := 0; start < len(mints); start += maxTokensPerBatch {
		end := start + maxTokensPerBatch
		if end > len(mints) {
			end = len(mints)
		}
		batch := mints[start:end]

		path := "/tokens/v1/solana/" + joinComma(batch)
		var resp tokenBatchResponse
		if err := c.get(ctx, path, &resp); err != nil {
			return nil, err
		}

		now := nowMs(ctx)
		for _, p := range resp.Pairs {
			price := parseFloat(p.PriceUsd)
			out = append(out, domain.MarketSnapshot{
				Mint:           p.BaseToken.Address,
				PoolAddress:    p.PairAddress,
				PriceUSD:       price,
				LiquidityUSD:   p.Liquidity.Usd,
				Volume24hUSD:   p.Volume.H24,
				PriceChange24h: p.PriceChange.H24,
				FetchedAtMs:    now,
			})
		}
	}
	return out, nil
}

// TokenPools returns the raw pool descriptors for mint, as reported by the
// aggregator, for canonical-pool selection upstream in the discovery funnel.
func (c *Client) TokenPools(ctx context.Context, mint string) ([]domain.PoolDescriptor, error) {
	var resp tokenBatchResponse
	if err := c.get(ctx, "/token-pairs/v1/solana/"+mint, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.PoolDescriptor, 0, len(resp.Pairs))
	for _, p := range resp.Pairs {
		out = append(out, domain.PoolDescriptor{
			PoolID:               p.PairAddress,
			BaseMint:             p.BaseToken.Address,
			DiscoverySource:      "aggregator",
			LiquidityEstimateUSD: p.Liquidity.Usd,
		})
	}
	return out, nil
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}

func parseFloat(s string) float64 {
	var v float64
	_, err := fmt.Sscanf(s, "%g", &v)
	if err != nil {
		return 0
	}
	return v
}

// nowMs stamps a snapshot's fetch time; ctx is accepted for symmetry with
// other timestamp sites that may derive it from a request deadline, but is
// otherwise unused.
func nowMs(_ context.Context) int64 {
	return time.Now().UnixMilli()
}
