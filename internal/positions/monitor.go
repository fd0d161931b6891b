package positions

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"solana-memecoin-agent/internal/domain"
	"solana-memecoin-agent/internal/storage"
	"solana-memecoin-agent/internal/strategy/conditions"
)

// PriceSource is the subset of the pool service the monitors need: the
// latest cached price for a mint.
type PriceSource interface {
	GetPoolPrice(mint string) (domain.PriceResult, bool)
}

// BalanceChecker reports a mint's on-chain token account balance for a
// wallet, used by the exit monitor's phantom detection.
type BalanceChecker interface {
	GetTokenBalance(ctx context.Context, mint string) (uint64, error)
}

// EntrySubmitter submits a buy for a candidate mint; C5's entry-side surface.
type EntrySubmitter interface {
	SubmitEntry(ctx context.Context, mint string, sizeNative float64) (txSignature string, err error)
}

// ExitSubmitter submits a sell for an open position; C5's exit-side surface.
type ExitSubmitter interface {
	SubmitExit(ctx context.Context, pos *domain.Position, fraction float64) (txSignature string, err error)
}

// DcaSubmitter submits a dollar-cost-average add to an open position; C5's
// DCA-side surface.
type DcaSubmitter interface {
	SubmitDca(ctx context.Context, pos *domain.Position, sizeNative float64) (txSignature string, err error)
}

// Candidate is the subset of a discovered token the entry monitor needs to
// rank and evaluate.
type Candidate struct {
	Mint         string
	LiquidityUSD float64
}

// EntryMonitorConfig controls the entry monitor's cadence and bounds.
type EntryMonitorConfig struct {
	TickInterval          time.Duration
	EntryCheckConcurrency int
	MaxOpenPositions       int
	DefaultSizeNative      float64
}

// EntryMonitor periodically evaluates the entry strategy over candidates
// sorted by liquidity descending, bounded by a concurrency semaphore and a
// max-open-positions cap.
type EntryMonitor struct {
	cfg        EntryMonitorConfig
	positions  storage.PositionStore
	prices     PriceSource
	submitter  EntrySubmitter
	machine    *Machine
	locks      *MintLocks
	broadcast  *Broadcaster
	entryTree  conditions.StrategySpec
	registry   *conditions.Registry
	candidates func(ctx context.Context) ([]Candidate, error)
	log        *logrus.Entry
}

// NewEntryMonitor builds an entry monitor. candidates supplies the current
// discovery/watchlist candidate set each tick.
func NewEntryMonitor(
	cfg EntryMonitorConfig,
	positions storage.PositionStore,
	prices PriceSource,
	submitter EntrySubmitter,
	machine *Machine,
	locks *MintLocks,
	broadcast *Broadcaster,
	entryTree conditions.StrategySpec,
	registry *conditions.Registry,
	candidates func(ctx context.Context) ([]Candidate, error),
	log *logrus.Entry,
) *EntryMonitor {
	return &EntryMonitor{
		cfg: cfg, positions: positions, prices: prices, submitter: submitter,
		machine: machine, locks: locks, broadcast: broadcast,
		entryTree: entryTree, registry: registry, candidates: candidates, log: log,
	}
}

// Run loops until ctx is cancelled, evaluating candidates on cfg.TickInterval.
func (m *EntryMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *EntryMonitor) tick(ctx context.Context) {
	cands, err := m.candidates(ctx)
	if err != nil {
		m.log.WithError(err).Warn("entry monitor: failed to list candidates")
		return
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].LiquidityUSD > cands[j].LiquidityUSD })

	open, err := m.positions.GetOpen(ctx)
	if err != nil {
		m.log.WithError(err).Warn("entry monitor: failed to list open positions")
		return
	}
	if len(open) >= m.cfg.MaxOpenPositions {
		return
	}

	sem := make(chan struct{}, maxInt(1, m.cfg.EntryCheckConcurrency))
	for _, c := range cands {
		if len(open) >= m.cfg.MaxOpenPositions {
			break
		}
		sem <- struct{}{}
		m.evaluateCandidate(ctx, c)
		<-sem
		open, _ = m.positions.GetOpen(ctx)
	}
}

func (m *EntryMonitor) evaluateCandidate(ctx context.Context, c Candidate) {
	m.locks.WithLock(c.Mint, func() {
		price, ok := m.prices.GetPoolPrice(c.Mint)
		if !ok || !price.Available {
			return
		}
		ec := conditions.EvaluationContext{
			Mint:         c.Mint,
			CurrentPrice: price.PriceInNative,
			LiquidityUSD: c.LiquidityUSD,
			NowMs:        time.Now().UnixMilli(),
		}
		passed, err := m.entryTree.Evaluate(ctx, m.registry, ec)
		if err != nil {
			m.log.WithError(err).WithField("mint", c.Mint).Warn("entry strategy evaluation failed")
			return
		}
		if !passed {
			return
		}
		sig, err := m.submitter.SubmitEntry(ctx, c.Mint, m.cfg.DefaultSizeNative)
		if err != nil {
			m.log.WithError(err).WithField("mint", c.Mint).Warn("entry submission failed")
			return
		}
		m.log.WithFields(logrus.Fields{"mint": c.Mint, "tx": sig}).Info("entry submitted")
	})
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ExitMonitorConfig controls the exit monitor's cadence and phantom
// detection threshold.
type ExitMonitorConfig struct {
	TickInterval            time.Duration
	PhantomConfirmThreshold int
	// TrailingArmBasis selects which entry price the TrailingStop condition
	// measures arm-profit from: "original" uses the position's first fill,
	// anything else (including "weighted", the default) uses the current
	// post-DCA weighted effective entry price.
	TrailingArmBasis string

	// DCA add-on parameters (spec 4.4.5): a DCA fires when price has dropped
	// DcaThresholdPct below FirstEffectiveEntryPrice, DcaCount is below
	// DcaMaxCount, and DcaCooldown has elapsed since LastDcaAt.
	DcaThresholdPct   float64
	DcaMaxCount       int
	DcaSizePercentage float64
	DcaCooldown       time.Duration
}

// ExitMonitor periodically refreshes open positions' prices, evaluates
// exit strategies, and detects phantom positions (on-chain balance zero
// while the store still says open).
type ExitMonitor struct {
	cfg          ExitMonitorConfig
	positions    storage.PositionStore
	prices       PriceSource
	balances     BalanceChecker
	submitter    ExitSubmitter
	dcaSubmitter DcaSubmitter
	machine      *Machine
	locks        *MintLocks
	broadcast    *Broadcaster
	exitTrees    []conditions.StrategySpec
	registry     *conditions.Registry
	log          *logrus.Entry
}

// NewExitMonitor builds an exit monitor over the given exit strategy specs.
// dcaSubmitter may be nil, in which case the DCA trigger is never evaluated.
func NewExitMonitor(
	cfg ExitMonitorConfig,
	positions storage.PositionStore,
	prices PriceSource,
	balances BalanceChecker,
	submitter ExitSubmitter,
	dcaSubmitter DcaSubmitter,
	machine *Machine,
	locks *MintLocks,
	broadcast *Broadcaster,
	exitTrees []conditions.StrategySpec,
	registry *conditions.Registry,
	log *logrus.Entry,
) *ExitMonitor {
	return &ExitMonitor{
		cfg: cfg, positions: positions, prices: prices, balances: balances,
		submitter: submitter, dcaSubmitter: dcaSubmitter, machine: machine, locks: locks, broadcast: broadcast,
		exitTrees: exitTrees, registry: registry, log: log,
	}
}

// Run loops until ctx is cancelled, evaluating open positions on
// cfg.TickInterval. Deliberately a separate ticker loop from EntryMonitor.
func (m *ExitMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *ExitMonitor) tick(ctx context.Context) {
	open, err := m.positions.GetOpen(ctx)
	if err != nil {
		m.log.WithError(err).Warn("exit monitor: failed to list open positions")
		return
	}
	for _, pos := range open {
		m.evaluatePosition(ctx, pos)
	}
}

func (m *ExitMonitor) evaluatePosition(ctx context.Context, pos *domain.Position) {
	m.locks.WithLock(pos.Mint, func() {
		if m.checkPhantom(ctx, pos) {
			return
		}
		if pos.PendingExitSignature != nil {
			return // an exit/partial/dca submission is already in flight
		}

		price, ok := m.prices.GetPoolPrice(pos.Mint)
		if !ok || !price.Available {
			return
		}

		highest := pos.PriceHighest
		lowest := pos.PriceLowest
		var highestP, lowestP *float64
		if price.PriceInNative > highest {
			highest = price.PriceInNative
			highestP = &highest
		}
		if lowest == 0 || price.PriceInNative < lowest {
			lowest = price.PriceInNative
			lowestP = &lowest
		}
		_ = m.machine.Apply(ctx, NewUpdatePriceTracking(UpdatePriceTrackingPayload{
			Mint: pos.Mint, CurrentPrice: price.PriceInNative, Highest: highestP, Lowest: lowestP,
		}))

		if m.evaluateDca(ctx, pos, price.PriceInNative) {
			return
		}

		armEntryPrice := pos.EffectiveEntryPrice
		if m.cfg.TrailingArmBasis == "original" && pos.FirstEffectiveEntryPrice > 0 {
			armEntryPrice = pos.FirstEffectiveEntryPrice
		}
		ec := conditions.EvaluationContext{
			Mint:                  pos.Mint,
			CurrentPrice:          price.PriceInNative,
			EntryPrice:            pos.EffectiveEntryPrice,
			PriceHighest:          highest,
			PriceLowest:           lowest,
			PositionAgeHours:      pos.AgeHours(time.Now().UnixMilli()),
			NowMs:                 time.Now().UnixMilli(),
			TrailingArmEntryPrice: armEntryPrice,
		}

		var passing []conditions.ExitCandidate
		specByKind := make(map[conditions.ExitKind]conditions.StrategySpec)
		for _, spec := range m.exitTrees {
			ok, err := spec.Evaluate(ctx, m.registry, ec)
			if err != nil {
				m.log.WithError(err).WithField("mint", pos.Mint).Warn("exit strategy evaluation failed")
				continue
			}
			if !ok {
				continue
			}
			fraction := 1.0
			if spec.Action == conditions.ActionSellPartial {
				fraction = spec.SellFraction
			}
			passing = append(passing, conditions.ExitCandidate{Kind: spec.ExitKind, Fraction: fraction})
			specByKind[spec.ExitKind] = spec
		}
		winner, ok := conditions.MostUrgent(passing)
		if !ok {
			return
		}

		sig, err := m.submitter.SubmitExit(ctx, pos, winner.Fraction)
		if err != nil {
			m.log.WithError(err).WithField("mint", pos.Mint).Warn("exit submission failed")
			return
		}
		m.log.WithFields(logrus.Fields{"mint": pos.Mint, "tx": sig, "fraction": winner.Fraction}).Info("exit submitted")
	})
}

// evaluateDca checks the DCA trigger (spec 4.4.5): price has dropped at
// least DcaThresholdPct below the position's original entry price,
// DcaCount is still under DcaMaxCount, and DcaCooldown has elapsed since
// the last add. Returns true if a DCA was submitted (caller should skip
// exit evaluation this tick, since PendingExitSignature is now set).
func (m *ExitMonitor) evaluateDca(ctx context.Context, pos *domain.Position, currentPrice float64) bool {
	if m.dcaSubmitter == nil || m.cfg.DcaMaxCount <= 0 {
		return false
	}
	if pos.DcaCount >= m.cfg.DcaMaxCount {
		return false
	}
	entryPrice := pos.FirstEffectiveEntryPrice
	if entryPrice <= 0 {
		return false
	}
	drop := (entryPrice - currentPrice) / entryPrice * 100
	if drop < m.cfg.DcaThresholdPct {
		return false
	}
	if pos.LastDcaAt != nil {
		elapsed := time.Since(time.UnixMilli(*pos.LastDcaAt))
		if elapsed < m.cfg.DcaCooldown {
			return false
		}
	}

	sizeNative := m.cfg.DcaSizePercentage / 100 * pos.InitialSizeNative
	if sizeNative <= 0 {
		return false
	}

	sig, err := m.dcaSubmitter.SubmitDca(ctx, pos, sizeNative)
	if err != nil {
		m.log.WithError(err).WithField("mint", pos.Mint).Warn("dca submission failed")
		return true
	}
	m.log.WithFields(logrus.Fields{"mint": pos.Mint, "tx": sig, "size": sizeNative}).Info("dca submitted")
	return true
}

// checkPhantom implements phantom detection: if the wallet's on-chain
// balance for pos.Mint is zero, phantom_confirmations increments; any
// non-zero observation resets it. At the configured threshold the position
// is closed synthetically. Returns true if the position was phantom-closed
// or is awaiting further confirmation (caller should skip further work).
func (m *ExitMonitor) checkPhantom(ctx context.Context, pos *domain.Position) bool {
	balance, err := m.balances.GetTokenBalance(ctx, pos.Mint)
	if err != nil {
		return false
	}
	if balance > 0 {
		if pos.PhantomFirstSeen != nil {
			pos.PhantomFirstSeen = nil
			pos.PhantomConfirmations = 0
			_ = m.machine.positions.Update(ctx, pos)
		}
		return false
	}

	now := time.Now().UnixMilli()
	if pos.PhantomFirstSeen == nil {
		pos.PhantomFirstSeen = &now
	}
	pos.PhantomConfirmations++
	if pos.PhantomConfirmations < m.cfg.PhantomConfirmThreshold {
		_ = m.machine.positions.Update(ctx, pos)
		return true
	}

	_ = m.machine.Apply(ctx, NewExitPermanentFailureSynthetic(pos.ID, ExitPermanentFailureSyntheticPayload{
		ExitTime: now, Reason: "phantom",
	}))
	m.broadcast.Publish(Update{Kind: UpdateClosed, PositionID: pos.ID, Mint: pos.Mint})
	return true
}
