package domain

// MarketSnapshot is a point-in-time market summary for a mint as reported
// by an aggregator or explorer feed, ahead of (or independent from) the
// pool service's own on-chain-derived PriceResult.
type MarketSnapshot struct {
	Mint           string
	PoolAddress    string
	PriceUSD       float64
	LiquidityUSD   float64
	Volume24hUSD   float64
	PriceChange24h float64
	FetchedAtMs    int64
}
