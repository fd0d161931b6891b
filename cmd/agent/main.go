// Package main runs the live trading agent: discovery funnel, pool price
// cache, entry/exit monitors, and swap submission wired together under the
// C7 supervisor, exposing /health, /metrics, and /status over HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/aggregator"
	"solana-memecoin-agent/internal/config"
	"solana-memecoin-agent/internal/explorer"
	"solana-memecoin-agent/internal/funnel"
	"solana-memecoin-agent/internal/observability"
	"solana-memecoin-agent/internal/pool"
	"solana-memecoin-agent/internal/positions"
	"solana-memecoin-agent/internal/runtime"
	"solana-memecoin-agent/internal/solana"
	"solana-memecoin-agent/internal/storage"
	"solana-memecoin-agent/internal/storage/memory"
	"solana-memecoin-agent/internal/storage/migrations"
	pgstore "solana-memecoin-agent/internal/storage/postgres"
	"solana-memecoin-agent/internal/strategy"
	"solana-memecoin-agent/internal/strategy/conditions"
	"solana-memecoin-agent/internal/swap"
	"solana-memecoin-agent/internal/verification"
	"solana-memecoin-agent/internal/wallet"
)

// agentStores collects the storage interfaces the agent's pipeline touches;
// the memory/postgres branch in createStores fills exactly these.
type agentStores struct {
	tokens       storage.TokenStore
	pools        storage.PoolStore
	positions    storage.PositionStore
	transitions  storage.TransitionStore
	blacklist    storage.BlacklistStore
	transactions storage.TransactionStore
}

func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func createStores(ctx context.Context, dsn string, useMemory bool) (*agentStores, func(), error) {
	if useMemory {
		return &agentStores{
			tokens:       memory.NewTokenStore(),
			pools:        memory.NewPoolStore(),
			positions:    memory.NewPositionStore(),
			transitions:  memory.NewTransitionStore(),
			blacklist:    memory.NewBlacklistStore(),
			transactions: memory.NewTransactionStore(),
		}, func() {}, nil
	}

	pgPool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	stores := &agentStores{
		tokens:       pgstore.NewTokenStore(pgPool),
		pools:        pgstore.NewPoolStore(pgPool),
		positions:    pgstore.NewPositionStore(pgPool),
		transitions:  pgstore.NewTransitionStore(pgPool),
		blacklist:    pgstore.NewBlacklistStore(pgPool),
		transactions: pgstore.NewTransactionStore(pgPool),
	}
	return stores, func() { pgPool.Close() }, nil
}

// statusResponse is the JSON body for /status.
type statusResponse struct {
	Status   string                 `json:"status"`
	Services []runtime.HealthReport `json:"services"`
}

func startHTTPServer(addr string, sup *runtime.Supervisor, log *logrus.Entry) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		resp := statusResponse{Status: "running", Services: sup.HealthCheck()}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	log.WithField("addr", addr).Info("starting HTTP server")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("HTTP server error")
	}
}

func main() {
	loadEnvFile()

	configPath := flag.String("config", os.Getenv("AGENT_CONFIG"), "YAML config file (optional, overrides compiled-in defaults)")
	walletFile := flag.String("wallet-file", os.Getenv("WALLET_FILE"), "path to a JSON keypair file")
	walletBase58 := flag.String("wallet-base58", os.Getenv("WALLET_BASE58"), "base58-encoded keypair")
	dryRun := flag.Bool("dry-run", os.Getenv("DRY_RUN") == "true", "size and log trades without submitting transactions")
	useMemory := flag.Bool("use-memory", false, "use in-memory storage instead of PostgreSQL")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	metricsAddr := flag.String("metrics-addr", ":9091", "HTTP address for /health, /metrics, /status")
	nativeDecimals := flag.Int("native-decimals", 9, "decimals of the native quote asset (SOL)")
	flag.Parse()

	log := logrus.New()
	logger := log.WithField("component", "agent")

	if *walletFile == "" && *walletBase58 == "" {
		logger.Fatal("one of --wallet-file or --wallet-base58 is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (or pass --use-memory)")
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg = config.Default()
	}
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	var w *wallet.Wallet
	if *walletFile != "" {
		w, err = wallet.LoadFromFile(*walletFile)
	} else {
		w, err = wallet.LoadFromBase58(*walletBase58)
	}
	if err != nil {
		logger.WithError(err).Fatal("load wallet")
	}
	logger.WithField("pubkey", w.PublicKey()).Info("wallet loaded")

	ctx, cancel := context.WithCancel(context.Background())

	stores, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		cancel()
		logger.WithError(err).Fatal("create stores")
	}
	defer cleanup()

	rpcClient := solana.NewHTTPClient(cfg.RPC.HTTPEndpoint,
		solana.WithTimeout(cfg.RPC.ReadTimeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
		solana.WithRetryDelay(cfg.RPC.RetryBaseDelay),
		solana.WithMaxDelay(cfg.RPC.RetryMaxDelay),
		solana.WithBackoffMultiplier(cfg.RPC.RetryBackoffMult),
	)

	fetcher := solana.NewDecodedAccountFetcher(rpcClient)
	registry := pool.NewDefaultRegistry()
	poolSvc := pool.NewService(registry, fetcher, stores.pools, stores.tokens, logger)

	aggClient := aggregator.NewClient(cfg.Connectivity.AggregatorBaseURL,
		aggregator.WithTimeout(cfg.Connectivity.AggregatorHTTPTimeout),
		aggregator.WithRatePerMinute(cfg.Connectivity.AggregatorRatePerMin),
	)
	expClient := explorer.NewClient(cfg.Connectivity.ExplorerBaseURL,
		explorer.WithTimeout(cfg.Connectivity.ExplorerHTTPTimeout),
		explorer.WithRatePerMinute(cfg.Connectivity.ExplorerRatePerMin),
	)

	funnelInstance := funnel.New(
		funnel.Config{TickInterval: time.Duration(cfg.Tokens.DiscoveryTickIntervalSecs) * time.Second},
		cfg.Filtering, cfg.Tokens,
		aggClient, expClient, poolSvc,
		stores.tokens, stores.blacklist, logger,
	)

	signer := wallet.NewSigner(w, rpcClient)
	balanceChecker := wallet.NewBalanceChecker(w, rpcClient)

	executor := swap.NewExecutor(poolSvc, signer, logger)

	decimalsFn := func(mint string) int {
		tok, err := stores.tokens.GetByMint(ctx, mint)
		if err != nil || tok == nil {
			return *nativeDecimals
		}
		return tok.Decimals
	}
	statusChecker := verification.NewRPCStatusChecker(rpcClient)
	confirmer := verification.NewSmartConfirmer(statusChecker, cfg.Swaps.SmartConfirmStdAttempts, decimalsFn, cfg.Swaps.RentExemptMinLamports)

	machine := positions.NewMachine(stores.positions, stores.transitions)
	locks := positions.NewMintLocks()
	broadcast := positions.NewBroadcaster()

	submitter := swap.NewTradeSubmitter(
		executor, stores.pools, stores.tokens, stores.positions, stores.transactions,
		machine, confirmer, broadcast,
		cfg.Trader.DefaultSlippageBps, *nativeDecimals, *dryRun, logger,
	)

	entryTree := strategy.BuildEntrySpec(cfg.Filtering)
	exitTrees := strategy.BuildExitSpecs(cfg.Positions)
	conditionRegistry := conditions.NewDefaultRegistry()

	entryMonitor := positions.NewEntryMonitor(
		positions.EntryMonitorConfig{
			TickInterval:          time.Duration(cfg.Positions.MonitorIntervalSecs) * time.Second,
			EntryCheckConcurrency: cfg.Trader.EntryCheckConcurrency,
			MaxOpenPositions:      cfg.Trader.MaxOpenPositions,
			DefaultSizeNative:     cfg.Trader.DefaultEntryAmountSOL,
		},
		stores.positions, poolSvc, submitter, machine, locks, broadcast,
		entryTree, conditionRegistry, funnelInstance.Candidates, logger,
	)
	exitMonitor := positions.NewExitMonitor(
		positions.ExitMonitorConfig{
			TickInterval:            time.Duration(cfg.Positions.MonitorIntervalSecs) * time.Second,
			PhantomConfirmThreshold: cfg.Positions.PhantomConfirmThreshold,
			TrailingArmBasis:        cfg.Positions.TrailingArmBasis,
			DcaThresholdPct:         cfg.Positions.DcaThresholdPct,
			DcaMaxCount:             cfg.Positions.DcaMaxCount,
			DcaSizePercentage:       cfg.Positions.DcaSizePercentage,
			DcaCooldown:             time.Duration(cfg.Positions.DcaCooldownSecs) * time.Second,
		},
		stores.positions, poolSvc, balanceChecker, submitter, submitter, machine, locks, broadcast,
		exitTrees, conditionRegistry, logger,
	)

	sup := runtime.NewSupervisor(logger, 30*time.Second)
	sup.Register(runtime.NewFunnelService(funnelInstance, logger))
	sup.Register(runtime.NewPoolRefreshService(
		runtime.PoolServiceConfig{
			TickInterval:   time.Duration(cfg.Tokens.PoolRefreshIntervalSecs) * time.Second,
			NativeDecimals: *nativeDecimals,
		},
		poolSvc, stores.pools, stores.tokens, logger,
	))
	sup.Register(runtime.NewPositionsService(entryMonitor, exitMonitor))
	sup.Register(runtime.NewSwapService())
	sup.Register(runtime.NewVerificationService())

	done := make(chan error, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("received signal, initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig).Warn("received second signal, forcing immediate shutdown")
			os.Exit(3)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(3)
		case <-done:
		}
	}()

	go startHTTPServer(*metricsAddr, sup, logger)

	runErr := sup.Run(ctx)
	done <- runErr
	cancel()

	if runErr != nil && runErr != context.Canceled {
		logger.WithError(runErr).Error("supervisor run error")
		os.Exit(2)
	}

	logger.Info("shutdown complete")
}
