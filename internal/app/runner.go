package app

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"time"

	"hlradar/clients"
	"hlradar/config"

	"go.uber.org/zap"
)

// Build info, resolved from the embedded VCS metadata
var (
	BuildCommit = "unknown"
	BuildTime   = "unknown"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				BuildCommit = setting.Value
			case "vcs.time":
				BuildTime = setting.Value
			}
		}
	}
}

// ensure Runner implements ConfigObserver
var _ config.ConfigObserver = (*Runner)(nil)

// Runner wires the engine, the Telegram command loop and the web server
// together and supervises their lifecycle.
type Runner struct {
	clients    *clients.Clients
	liveConfig *config.LiveConfig
	engine     *Engine
	commander  *Commander
	botHandler *BotHandler
	webServer  *http.Server
	startTime  time.Time
}

func NewRunner(c *clients.Clients, liveConfig *config.LiveConfig) *Runner {
	cfg := liveConfig.GetDirect()

	snapshots := NewSnapshotStore(c.Logger, cfg.Snapshot.Path)
	engine := NewEngine(c.Logger, liveConfig, c.Hyperliquid, c.Notifier, snapshots)
	commander := NewCommander(c.Logger, liveConfig, engine)

	return &Runner{
		clients:    c,
		liveConfig: liveConfig,
		engine:     engine,
		commander:  commander,
		botHandler: NewBotHandler(c.Logger, c.Telegram, commander, cfg.Telegram.ChatID),
		startTime:  time.Now(),
	}
}

// OnConfigUpdate logs live parameter changes as they land.
func (r *Runner) OnConfigUpdate(cfg *config.Config) {
	r.clients.Logger.Info("configuration updated",
		zap.Int("wallets", len(cfg.Radar.Wallets)),
		zap.Strings("assets", cfg.Radar.Assets),
		zap.Int("threshold", cfg.Radar.Threshold),
		zap.Float64("minNotional", cfg.Radar.MinNotional),
		zap.Duration("pollInterval", cfg.Radar.PollInterval),
		zap.Duration("cooldown", cfg.Radar.Cooldown),
	)
}

// Run starts the service and blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.clients.Logger
	cfg := r.liveConfig.GetDirect()

	logger.Info("hlradar starting",
		zap.String("commit", BuildCommit),
		zap.String("buildTime", BuildTime),
		zap.Int("wallets", len(cfg.Radar.Wallets)),
		zap.Strings("assets", cfg.Radar.Assets),
		zap.Int("threshold", cfg.Radar.Threshold),
		zap.Duration("pollInterval", cfg.Radar.PollInterval),
	)

	if err := r.engine.Restore(); err != nil {
		logger.Warn("failed to restore snapshot, starting fresh", zap.Error(err))
	}

	r.liveConfig.AddObserver(r.engine)
	r.liveConfig.AddObserver(r)

	if cfg.WebServer.Enabled {
		r.startWebServer(cfg.WebServer.Port)
		logger.Info("web server started", zap.Int("port", cfg.WebServer.Port))
	}

	if r.clients.Telegram != nil && r.clients.Telegram.Enabled() {
		go r.botHandler.Run(ctx)
	}

	r.engine.Run(ctx)

	// Engine returned: context is done, shut everything down.
	logger.Info("shutting down")

	if r.webServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.webServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("web server shutdown error", zap.Error(err))
		}
	}

	if err := r.clients.Notifier.Close(); err != nil {
		logger.Error("notifier close error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return nil
}

// ServiceStats is the payload served by /stats and pushed over /ws.
type ServiceStats struct {
	Build struct {
		Commit    string `json:"commit"`
		BuildTime string `json:"build_time"`
		GoVersion string `json:"go_version"`
	} `json:"build"`

	StartTime time.Time `json:"start_time"`
	Uptime    string    `json:"uptime"`

	Status StatusReport `json:"status"`

	Signals       []ConsensusSignal `json:"signals"`
	RecentSignals []ConsensusSignal `json:"recent_signals"`

	Notifications struct {
		DiscordEnabled  bool `json:"discord_enabled"`
		TelegramEnabled bool `json:"telegram_enabled"`
	} `json:"notifications"`

	Runtime struct {
		HeapAlloc  uint64 `json:"heap_alloc"`
		HeapInuse  uint64 `json:"heap_inuse"`
		Goroutines int    `json:"goroutines"`
		NumGC      uint32 `json:"num_gc"`
		GoVersion  string `json:"go_version"`
		NumCPU     int    `json:"num_cpu"`
	} `json:"runtime"`
}

func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats

	stats.Build.Commit = BuildCommit
	stats.Build.BuildTime = BuildTime
	stats.Build.GoVersion = runtime.Version()

	stats.StartTime = r.startTime
	stats.Uptime = formatUptime(time.Since(r.startTime))

	stats.Status = r.commander.Status()
	stats.Signals = r.commander.ActiveSignals()
	stats.RecentSignals = r.commander.Signals(20)

	stats.Notifications.DiscordEnabled = r.clients.Discord != nil && r.clients.Discord.Enabled()
	stats.Notifications.TelegramEnabled = r.clients.Telegram != nil && r.clients.Telegram.Enabled()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.Runtime.HeapAlloc = mem.HeapAlloc
	stats.Runtime.HeapInuse = mem.HeapInuse
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.NumGC = mem.NumGC
	stats.Runtime.GoVersion = runtime.Version()
	stats.Runtime.NumCPU = runtime.NumCPU()

	return stats
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
