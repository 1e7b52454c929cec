package app

import (
	"time"

	"hlradar/config"

	"go.uber.org/zap"
)

// StatusReport is a condensed engine status for the bot and the API.
type StatusReport struct {
	Wallets       []string      `json:"wallets"`
	Assets        []string      `json:"assets"`
	Threshold     int           `json:"threshold"`
	MinNotional   float64       `json:"min_notional"`
	PollInterval  time.Duration `json:"poll_interval"`
	Cooldown      time.Duration `json:"cooldown"`
	CycleCount    int64         `json:"cycle_count"`
	LastCycleAt   time.Time     `json:"last_cycle_at,omitempty"`
	AlertsSent    int64         `json:"alerts_sent"`
	ActiveSignals int           `json:"active_signals"`
	FailedWallets []string      `json:"failed_wallets,omitempty"`
}

// Commander is the single command surface over the engine and the live
// config. The Telegram bot and the web API are thin adapters over it, so
// both fronts get identical semantics.
type Commander struct {
	logger     *zap.Logger
	liveConfig *config.LiveConfig
	engine     *Engine
}

func NewCommander(logger *zap.Logger, liveConfig *config.LiveConfig, engine *Engine) *Commander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Commander{
		logger:     logger,
		liveConfig: liveConfig,
		engine:     engine,
	}
}

// AddWallet starts monitoring an address and kicks off a refresh so its
// positions show up without waiting out the interval.
func (c *Commander) AddWallet(addr string) (string, error) {
	added, err := c.liveConfig.AddWallet(addr)
	if err != nil {
		return "", err
	}
	c.logger.Info("wallet added", zap.String("wallet", added))
	c.engine.ForceRefresh()
	return added, nil
}

// RemoveWallet stops monitoring an address; partial queries match.
func (c *Commander) RemoveWallet(query string) (string, error) {
	removed, err := c.liveConfig.RemoveWallet(query)
	if err != nil {
		return "", err
	}
	c.logger.Info("wallet removed", zap.String("wallet", removed))
	c.engine.ForceRefresh()
	return removed, nil
}

// AddAsset starts monitoring a symbol.
func (c *Commander) AddAsset(symbol string) (string, error) {
	added, err := c.liveConfig.AddAsset(symbol)
	if err != nil {
		return "", err
	}
	c.logger.Info("asset added", zap.String("asset", added))
	c.engine.ForceRefresh()
	return added, nil
}

// RemoveAsset stops monitoring a symbol.
func (c *Commander) RemoveAsset(symbol string) (string, error) {
	removed, err := c.liveConfig.RemoveAsset(symbol)
	if err != nil {
		return "", err
	}
	c.logger.Info("asset removed", zap.String("asset", removed))
	return removed, nil
}

// SetThreshold updates the consensus threshold.
func (c *Commander) SetThreshold(n int) error {
	return c.liveConfig.SetThreshold(n)
}

// SetMinNotional updates the position size filter.
func (c *Commander) SetMinNotional(v float64) error {
	return c.liveConfig.SetMinNotional(v)
}

// SetInterval updates the poll interval.
func (c *Commander) SetInterval(d time.Duration) error {
	return c.liveConfig.SetPollInterval(d)
}

// SetCooldown updates the re-alert cooldown.
func (c *Commander) SetCooldown(d time.Duration) error {
	return c.liveConfig.SetCooldown(d)
}

// Refresh requests an immediate poll cycle.
func (c *Commander) Refresh() {
	c.engine.ForceRefresh()
}

// Config returns the current radar parameters.
func (c *Commander) Config() config.RadarConfig {
	return c.liveConfig.Get().Radar
}

// State returns the full engine state.
func (c *Commander) State() EngineState {
	return c.engine.State()
}

// Signals returns up to n recently alerted signals, newest first.
func (c *Commander) Signals(n int) []ConsensusSignal {
	return c.engine.RecentSignals(n)
}

// ActiveSignals returns the signals from the latest cycle.
func (c *Commander) ActiveSignals() []ConsensusSignal {
	return c.engine.CurrentSignals()
}

// Status builds a condensed status report.
func (c *Commander) Status() StatusReport {
	cfg := c.liveConfig.Get()
	state := c.engine.State()

	var failed []string
	for wallet, rec := range state.Wallets {
		if rec.Failed {
			failed = append(failed, wallet)
		}
	}

	return StatusReport{
		Wallets:       cfg.Radar.Wallets,
		Assets:        cfg.Radar.Assets,
		Threshold:     cfg.Radar.Threshold,
		MinNotional:   cfg.Radar.MinNotional,
		PollInterval:  cfg.Radar.PollInterval,
		Cooldown:      cfg.Radar.Cooldown,
		CycleCount:    state.CycleCount,
		LastCycleAt:   state.LastCycleAt,
		AlertsSent:    state.AlertsSent,
		ActiveSignals: len(state.Signals),
		FailedWallets: failed,
	}
}
