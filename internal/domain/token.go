package domain

// Token is a discovered fungible mint tracked for trading purposes.
// Corresponds to the tokens table.
type Token struct {
	Mint             string  // base58 mint address, primary key
	Symbol           string  // ticker symbol
	Name             string  // display name
	Decimals         int     // immutable once observed on-chain
	MintAuthority    *string // non-nil if the mint authority has not been revoked
	FreezeAuthority  *string // non-nil if the freeze authority has not been revoked
	DiscoveredAt     int64   // unix ms, first time any feed reported this mint
	LastEnrichedAt   int64   // unix ms, last successful enrichment write
	PriceQuote       float64 // last known price in the quote asset from enrichment
	PriceNative      float64 // last known price in the chain's native asset
	Volume24hQuote   float64 // 24h volume in quote asset units
	LiquidityUSD     float64 // last known USD liquidity depth
	HolderCount      int     // last known holder count, 0 if unknown
	RouteFailures    int     // consecutive "no route" failures observed by the funnel
	WatchlistAddedAt *int64  // unix ms, nil if not currently on the watchlist
}

// HasMintOrFreezeAuthority reports whether either authority is still present,
// the trigger for the discovery funnel's authority filter.
func (t *Token) HasMintOrFreezeAuthority() bool {
	return t.MintAuthority != nil || t.FreezeAuthority != nil
}
