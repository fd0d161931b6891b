package domain

// Blacklist reason codes.
const (
	BlacklistReasonMintAuthority  = "mint_authority_present"
	BlacklistReasonLowLiquidity   = "repeated_low_liquidity"
	BlacklistReasonNoRoute        = "no_route"
	BlacklistReasonManual         = "manual"
)

// BlacklistEntry excludes a mint from discovery and entry.
type BlacklistEntry struct {
	Mint      string
	Reason    string
	CreatedAt int64 // unix ms
	Note      string
}
