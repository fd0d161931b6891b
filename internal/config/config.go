// Package config implements the strongly-typed, section-based
// configuration tree (A1): compiled-in defaults, YAML override via
// go.yaml.in/yaml/v3 merged with dario.cat/mergo, and an atomically
// reloadable *Store for services that re-read configuration per tick.
package config

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	yaml "go.yaml.in/yaml/v3"
)

// RPCConfig controls the Solana RPC/WebSocket transport.
type RPCConfig struct {
	HTTPEndpoint          string        `yaml:"http_endpoint"`
	WSEndpoint            string        `yaml:"ws_endpoint"`
	ReadTimeout           time.Duration `yaml:"read_timeout"`
	ConfirmTimeout        time.Duration `yaml:"confirm_timeout"`
	MaxRetries            int           `yaml:"max_retries"`
	RetryBaseDelay        time.Duration `yaml:"retry_base_delay"`
	RetryBackoffMult      float64       `yaml:"retry_backoff_mult"`
	RetryMaxDelay         time.Duration `yaml:"retry_max_delay"`
	MultipleAccountsBatch int           `yaml:"multiple_accounts_batch"`
}

// TraderConfig controls entry/DCA sizing and default slippage.
type TraderConfig struct {
	DefaultEntryAmountSOL float64 `yaml:"default_entry_amount_sol"`
	DefaultSlippageBps    uint16  `yaml:"default_slippage_bps"`
	DefaultPriorityFee    uint64  `yaml:"default_priority_fee"`
	MaxOpenPositions      int     `yaml:"max_open_positions"`
	EntryCheckConcurrency int     `yaml:"entry_check_concurrency"`
}

// PositionsConfig controls the position lifecycle state machine and the
// entry/exit monitor loops.
type PositionsConfig struct {
	MonitorIntervalSecs          int     `yaml:"monitor_interval_secs"`
	PhantomConfirmThreshold      int     `yaml:"phantom_confirm_threshold"`
	ExitRetryAttempts            int     `yaml:"exit_retry_attempts"`
	ExitRetryCooldownSecs        int     `yaml:"exit_retry_cooldown_secs"`
	TrailingArmBasis             string  `yaml:"trailing_arm_basis"` // "weighted" | "original"
	StopLossPercent              float64 `yaml:"stop_loss_percent"`
	MinProfitThresholdPct        float64 `yaml:"min_profit_threshold_percent"`
	TrailingActivationPct        float64 `yaml:"trailing_activation_percent"`
	TrailingDistancePct          float64 `yaml:"trailing_distance_percent"`
	TimeOverrideDurationHours    float64 `yaml:"time_override_duration_hours"`
	TimeOverrideLossThresholdPct float64 `yaml:"time_override_loss_threshold_percent"`
	SinglePoolMode               bool    `yaml:"single_pool_mode"`

	// DcaThresholdPct arms a DCA add once price has dropped this many percent
	// below the position's first effective entry price (FirstEffectiveEntryPrice,
	// which DCA adds do not change).
	DcaThresholdPct float64 `yaml:"dca_threshold_percent"`
	// DcaMaxCount caps the number of DCA adds a single position may receive.
	DcaMaxCount int `yaml:"dca_max_count"`
	// DcaSizePercentage sizes each DCA add as this percent of the position's
	// initial native size.
	DcaSizePercentage float64 `yaml:"dca_size_percentage"`
	// DcaCooldownSecs is the minimum time between consecutive DCA adds on
	// the same position.
	DcaCooldownSecs int `yaml:"dca_cooldown_secs"`
}

// FilteringConfig controls the discovery funnel's acceptance thresholds.
type FilteringConfig struct {
	MinPoolLiquidityUSD     float64 `yaml:"min_pool_liquidity_usd"`
	MinPositionLiquidityUSD float64 `yaml:"min_position_liquidity_usd"`
	MinVolume24hUSD         float64 `yaml:"min_volume_24h_usd"`
	MaxTokenAgeHours        int     `yaml:"max_token_age_hours"`
	AIFilterEnabled         bool    `yaml:"ai_filter_enabled"`
	AIMinConfidence         float64 `yaml:"ai_min_confidence"`
	AIPassOnLowConfidence   bool    `yaml:"ai_pass_on_low_confidence"`
}

// TokensConfig controls watchlist/cache sizing for discovered mints.
type TokensConfig struct {
	MaxWatchlistSize       int `yaml:"max_watchlist_size"`
	WatchlistExpiryHours   int `yaml:"watchlist_expiry_hours"`
	MaxConsecutiveErrors   int `yaml:"max_consecutive_errors"`
	DiscoveryBatchSize     int `yaml:"discovery_batch_size"`
	DiscoveryTickIntervalSecs int `yaml:"discovery_tick_interval_secs"`
	PoolRefreshIntervalSecs   int `yaml:"pool_refresh_interval_secs"`
}

// SwapsConfig controls swap execution.
type SwapsConfig struct {
	MaxSlippageBps        uint16  `yaml:"max_slippage_bps"`
	MaxTokensPerBatch     int     `yaml:"max_tokens_per_batch"`
	SmartConfirmStdAttempts int   `yaml:"smart_confirm_std_attempts"`
	RentExemptMinLamports uint64  `yaml:"rent_exempt_min_lamports"`
}

// ConnectivityConfig controls outbound HTTP clients to external feeds.
type ConnectivityConfig struct {
	AggregatorBaseURL     string        `yaml:"aggregator_base_url"`
	ExplorerBaseURL       string        `yaml:"explorer_base_url"`
	AggregatorHTTPTimeout time.Duration `yaml:"aggregator_http_timeout"`
	ExplorerHTTPTimeout   time.Duration `yaml:"explorer_http_timeout"`
	AggregatorRatePerMin  int           `yaml:"aggregator_rate_per_min"`
	ExplorerRatePerMin    int           `yaml:"explorer_rate_per_min"`
}

// AIConfig controls the optional AI advisory filter.
type AIConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Endpoint   string        `yaml:"endpoint"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// Config is the complete, strongly-typed configuration tree. Every field
// has a compiled-in default in Default(); a YAML file overrides only the
// fields it sets.
type Config struct {
	RPC          RPCConfig          `yaml:"rpc"`
	Trader       TraderConfig       `yaml:"trader"`
	Positions    PositionsConfig    `yaml:"positions"`
	Filtering    FilteringConfig    `yaml:"filtering"`
	Tokens       TokensConfig       `yaml:"tokens"`
	Swaps        SwapsConfig        `yaml:"swaps"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	AI           AIConfig           `yaml:"ai"`
}

// Default returns the compiled-in configuration. Numeric defaults are
// sourced from the reference implementation's constants tables.
func Default() *Config {
	return &Config{
		RPC: RPCConfig{
			HTTPEndpoint:          "https://api.mainnet-beta.solana.com",
			WSEndpoint:            "wss://api.mainnet-beta.solana.com",
			ReadTimeout:           8 * time.Second,
			ConfirmTimeout:        30 * time.Second,
			MaxRetries:            3,
			RetryBaseDelay:        5 * time.Second,
			RetryBackoffMult:      2.0,
			RetryMaxDelay:         30 * time.Second,
			MultipleAccountsBatch: 20,
		},
		Trader: TraderConfig{
			DefaultEntryAmountSOL: 0.001,
			DefaultSlippageBps:    50,
			DefaultPriorityFee:    1000,
			MaxOpenPositions:      50,
			EntryCheckConcurrency: 5,
		},
		Positions: PositionsConfig{
			MonitorIntervalSecs:          3,
			PhantomConfirmThreshold:      3,
			ExitRetryAttempts:            3,
			ExitRetryCooldownSecs:        60,
			TrailingArmBasis:             "weighted",
			StopLossPercent:              -20,
			MinProfitThresholdPct:        30,
			TrailingActivationPct:        15,
			TrailingDistancePct:          10,
			TimeOverrideDurationHours:    12,
			TimeOverrideLossThresholdPct: -10,
			SinglePoolMode:               false,
			DcaThresholdPct:              15,
			DcaMaxCount:                  2,
			DcaSizePercentage:            50,
			DcaCooldownSecs:              300,
		},
		Filtering: FilteringConfig{
			MinPoolLiquidityUSD:     10.0,
			MinPositionLiquidityUSD: 1000.0,
			MinVolume24hUSD:         1000.0,
			MaxTokenAgeHours:        24,
			AIFilterEnabled:         false,
			AIMinConfidence:         0.5,
			AIPassOnLowConfidence:   true,
		},
		Tokens: TokensConfig{
			MaxWatchlistSize:          100,
			WatchlistExpiryHours:      24,
			MaxConsecutiveErrors:      5,
			DiscoveryBatchSize:        10,
			DiscoveryTickIntervalSecs: 30,
			PoolRefreshIntervalSecs:   5,
		},
		Swaps: SwapsConfig{
			MaxSlippageBps:          1000,
			MaxTokensPerBatch:       30,
			SmartConfirmStdAttempts: 5,
			RentExemptMinLamports:   2039280,
		},
		Connectivity: ConnectivityConfig{
			AggregatorBaseURL:     "https://api.dexscreener.com",
			ExplorerBaseURL:       "https://api.dexscreener.com",
			AggregatorHTTPTimeout: 15 * time.Second,
			ExplorerHTTPTimeout:   15 * time.Second,
			AggregatorRatePerMin:  300,
			ExplorerRatePerMin:    30,
		},
		AI: AIConfig{
			Enabled:  false,
			Timeout:  5 * time.Second,
			CacheTTL: 1 * time.Hour,
		},
	}
}

// Load reads path as YAML and merges it over Default(), so unset fields
// keep their compiled-in default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	merged := Default()
	if err := mergo.Merge(merged, loaded, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("config: merge %s: %w", path, err)
	}
	return merged, nil
}
