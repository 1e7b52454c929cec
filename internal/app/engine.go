package app

import (
	"context"
	"math"
	"sync"
	"time"

	"hlradar/clients/hyperliquid"
	"hlradar/clients/notifier"
	"hlradar/config"

	"go.uber.org/zap"
)

// ensure Engine implements ConfigObserver
var _ config.ConfigObserver = (*Engine)(nil)

// Gateway is the position data source for the engine. Satisfied by
// *hyperliquid.Client; tests substitute a fake.
type Gateway interface {
	Positions(ctx context.Context, wallet string) ([]hyperliquid.Position, error)
	AllMids(ctx context.Context) (map[string]float64, error)
}

// EngineState is the full observable state, served by the web API and the
// bot status commands.
type EngineState struct {
	UpdatedAt   time.Time `json:"updated_at"`
	CycleCount  int64     `json:"cycle_count"`
	LastCycleAt time.Time `json:"last_cycle_at,omitempty"`
	AlertsSent  int64     `json:"alerts_sent"`

	Radar         config.RadarConfig          `json:"radar"`
	Wallets       map[string]*WalletRecord    `json:"wallets"`
	Signals       []ConsensusSignal           `json:"signals"`
	RecentSignals []ConsensusSignal           `json:"recent_signals"`
	Suppressions  map[string]SuppressionState `json:"suppressions"`
}

// Engine runs the poll / detect / suppress / alert cycle.
type Engine struct {
	logger     *zap.Logger
	liveConfig *config.LiveConfig
	gateway    Gateway
	notifier   notifier.Notifier

	store      *PositionStore
	suppressor *Suppressor
	snapshots  *SnapshotStore
	publisher  *Publisher

	// Buffered depth 1: concurrent refresh requests collapse into one
	forceCh chan struct{}

	mu             sync.RWMutex
	currentSignals []ConsensusSignal
	recentSignals  []ConsensusSignal
	cycleCount     int64
	lastCycleAt    time.Time
	alertsSent     int64
}

func NewEngine(
	logger *zap.Logger,
	liveConfig *config.LiveConfig,
	gateway Gateway,
	notif notifier.Notifier,
	snapshots *SnapshotStore,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		logger:     logger,
		liveConfig: liveConfig,
		gateway:    gateway,
		notifier:   notif,
		store:      NewPositionStore(logger),
		suppressor: NewSuppressor(),
		snapshots:  snapshots,
		publisher:  NewPublisher(),
		forceCh:    make(chan struct{}, 1),
	}
}

// Publisher exposes the state fan-out for subscribers.
func (e *Engine) Publisher() *Publisher {
	return e.publisher
}

// Restore seeds the engine from the last snapshot, if one exists. The
// persisted radar parameters win over env defaults so bot-made changes
// survive restarts.
func (e *Engine) Restore() error {
	if e.snapshots == nil {
		return nil
	}

	snap, err := e.snapshots.Load()
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}

	if snap.Radar != nil {
		err := e.liveConfig.UpdatePartial(func(cfg *config.Config) error {
			cfg.Radar = *snap.Radar
			return nil
		})
		if err != nil {
			e.logger.Warn("snapshot radar config failed validation, keeping env config", zap.Error(err))
		}
	}

	if snap.Wallets != nil {
		e.store.Restore(snap.Wallets)
	}
	if snap.Suppressions != nil {
		e.suppressor.Restore(snap.Suppressions)
	}

	e.mu.Lock()
	e.recentSignals = append([]ConsensusSignal(nil), snap.RecentSignals...)
	e.mu.Unlock()

	return nil
}

// Run executes poll cycles until the context is cancelled. The interval is
// re-read every iteration so /interval changes apply without restart.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("consensus engine starting",
		zap.Duration("pollInterval", e.liveConfig.GetDirect().Radar.PollInterval),
		zap.Int("wallets", len(e.liveConfig.GetDirect().Radar.Wallets)),
	)

	// Initial cycle
	e.runCycle(ctx)

	for {
		timer := time.NewTimer(e.liveConfig.GetDirect().Radar.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("consensus engine shutting down")
			return
		case <-timer.C:
			e.runCycle(ctx)
		case <-e.forceCh:
			timer.Stop()
			e.logger.Info("forced refresh")
			e.runCycle(ctx)
		}
	}
}

// ForceRefresh requests an immediate cycle. Safe from any goroutine;
// requests arriving while one is already pending coalesce.
func (e *Engine) ForceRefresh() {
	select {
	case e.forceCh <- struct{}{}:
	default:
	}
}

// OnConfigUpdate implements config.ConfigObserver. Mutations take effect on
// the next cycle; the snapshot is rewritten immediately so they survive a
// crash before then, and subscribers see the new parameters right away.
func (e *Engine) OnConfigUpdate(cfg *config.Config) {
	e.saveSnapshot(&cfg.Radar)
	e.publisher.Publish(e.State())
}

// runCycle performs one poll / detect / suppress / alert pass. Exactly one
// cycle runs at a time; Run serializes timer ticks and forced refreshes.
func (e *Engine) runCycle(ctx context.Context) {
	cfg := e.liveConfig.Get()
	now := time.Now()

	mids, err := e.gateway.AllMids(ctx)
	if err != nil {
		// Fall back to exchange-reported position values for notional
		e.logger.Warn("failed to fetch mids", zap.Error(err))
		mids = nil
	}

	prior := e.store.Snapshot()

	var wg sync.WaitGroup
	for _, wallet := range cfg.Radar.Wallets {
		wg.Add(1)
		go func(wallet string) {
			defer wg.Done()
			raw, err := e.gateway.Positions(ctx, wallet)
			if err != nil {
				e.store.MarkFailed(wallet, now, err)
				return
			}
			e.store.Update(wallet, buildPositions(wallet, raw, mids, prior[wallet], now), now)
		}(wallet)
	}
	wg.Wait()

	// Drop wallets no longer monitored
	for _, w := range difference(e.store.Wallets(), cfg.Radar.Wallets) {
		e.store.Remove(w)
	}

	signals := Detect(e.store.Snapshot(), DetectParams{
		Assets:      cfg.Radar.Assets,
		Threshold:   cfg.Radar.Threshold,
		MinNotional: cfg.Radar.MinNotional,
	}, now)

	alerts := e.suppressor.Evaluate(signals, now, cfg.Radar.Cooldown)

	e.mu.Lock()
	e.currentSignals = signals
	e.cycleCount++
	e.lastCycleAt = now
	for _, a := range alerts {
		e.recentSignals = append(e.recentSignals, a.Signal)
		e.alertsSent++
	}
	if max := cfg.Radar.RecentSignals; max > 0 && len(e.recentSignals) > max {
		e.recentSignals = e.recentSignals[len(e.recentSignals)-max:]
	}
	e.mu.Unlock()

	if len(alerts) > 0 {
		// Never let a slow notifier hold up the next cycle
		go e.dispatch(alerts)
	}

	e.publisher.Publish(e.State())
	e.saveSnapshot(&cfg.Radar)

	e.logger.Debug("cycle complete",
		zap.Int("wallets", len(cfg.Radar.Wallets)),
		zap.Int("signals", len(signals)),
		zap.Int("alerts", len(alerts)),
	)
}

// buildPositions converts raw exchange positions into wallet positions,
// pricing notional off the cycle's mids and carrying open timestamps over
// from the previous record for unchanged (asset, side) pairs.
func buildPositions(
	wallet string,
	raw []hyperliquid.Position,
	mids map[string]float64,
	prior *WalletRecord,
	now time.Time,
) []WalletPosition {
	opened := make(map[SignalKey]time.Time)
	if prior != nil {
		for _, p := range prior.Positions {
			if !p.OpenedAt.IsZero() {
				opened[SignalKey{Asset: p.Asset, Side: p.Side}] = p.OpenedAt
			}
		}
	}

	out := make([]WalletPosition, 0, len(raw))
	for _, r := range raw {
		side := SideFromSize(r.Size)
		size := math.Abs(r.Size)

		mark := mids[r.Coin]
		notional := size * mark
		if mark == 0 {
			notional = math.Abs(r.PositionValue)
			if size > 0 {
				mark = notional / size
			}
		}

		openedAt := now
		if prev, ok := opened[SignalKey{Asset: r.Coin, Side: side}]; ok {
			openedAt = prev
		}

		out = append(out, WalletPosition{
			Wallet:           wallet,
			Asset:            r.Coin,
			Side:             side,
			Size:             size,
			EntryPrice:       r.EntryPrice,
			MarkPrice:        mark,
			Notional:         notional,
			UnrealizedPnl:    r.UnrealizedPnl,
			LiquidationPrice: r.LiquidationPrice,
			Leverage:         r.Leverage,
			OpenedAt:         openedAt,
		})
	}
	return out
}

func (e *Engine) dispatch(alerts []Alert) {
	if e.notifier == nil {
		return
	}

	for _, a := range alerts {
		stakes := make([]notifier.WalletStake, 0, len(a.Signal.Wallets))
		for _, w := range a.Signal.Wallets {
			stakes = append(stakes, notifier.WalletStake{
				Address:       w.Wallet,
				WalletURL:     walletURL(w.Wallet),
				Size:          w.Size,
				EntryPrice:    w.EntryPrice,
				MarkPrice:     w.MarkPrice,
				Notional:      w.Notional,
				UnrealizedPnl: w.UnrealizedPnl,
				Leverage:      w.Leverage,
				OpenedAt:      w.OpenedAt,
			})
		}

		kind := notifier.SignalKindNew
		if a.Kind == SignalKindChanged {
			kind = notifier.SignalKindChanged
		}

		e.notifier.SendConsensusAlert(notifier.ConsensusAlert{
			Asset:         a.Signal.Asset,
			Side:          string(a.Signal.Side),
			Count:         a.Signal.Count,
			Threshold:     a.Signal.Threshold,
			Wallets:       stakes,
			TotalNotional: a.Signal.TotalNotional,
			TotalPnl:      a.Signal.TotalPnl,
			Kind:          kind,
			DetectedAt:    a.Signal.DetectedAt,
		})

		e.logger.Info("consensus alert",
			zap.String("asset", a.Signal.Asset),
			zap.String("side", string(a.Signal.Side)),
			zap.Int("count", a.Signal.Count),
			zap.String("kind", string(a.Kind)),
		)
	}
}

func (e *Engine) saveSnapshot(radar *config.RadarConfig) {
	if e.snapshots == nil {
		return
	}

	e.mu.RLock()
	recent := append([]ConsensusSignal(nil), e.recentSignals...)
	e.mu.RUnlock()

	snap := &EngineSnapshot{
		Radar:         radar,
		Wallets:       e.store.Snapshot(),
		Suppressions:  e.suppressor.Export(),
		RecentSignals: recent,
	}

	if err := e.snapshots.Save(snap); err != nil {
		// Non-fatal: the engine keeps running on in-memory state
		e.logger.Error("failed to save snapshot", zap.Error(err))
	}
}

// State returns the full observable engine state.
func (e *Engine) State() EngineState {
	cfg := e.liveConfig.Get()

	e.mu.RLock()
	defer e.mu.RUnlock()

	return EngineState{
		UpdatedAt:     time.Now(),
		CycleCount:    e.cycleCount,
		LastCycleAt:   e.lastCycleAt,
		AlertsSent:    e.alertsSent,
		Radar:         cfg.Radar,
		Wallets:       e.store.Snapshot(),
		Signals:       append([]ConsensusSignal(nil), e.currentSignals...),
		RecentSignals: append([]ConsensusSignal(nil), e.recentSignals...),
		Suppressions:  e.suppressor.Export(),
	}
}

// CurrentSignals returns the signals from the latest cycle.
func (e *Engine) CurrentSignals() []ConsensusSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ConsensusSignal(nil), e.currentSignals...)
}

// RecentSignals returns up to n of the most recently alerted signals,
// newest first.
func (e *Engine) RecentSignals(n int) []ConsensusSignal {
	e.mu.RLock()
	defer e.mu.RUnlock()

	total := len(e.recentSignals)
	if n <= 0 || n > total {
		n = total
	}

	out := make([]ConsensusSignal, 0, n)
	for i := total - 1; i >= total-n; i-- {
		out = append(out, e.recentSignals[i])
	}
	return out
}
