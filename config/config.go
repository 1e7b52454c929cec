package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Environment
	IsProd bool `json:"is_prod"`

	// Telegram (alerts + inbound commands)
	Telegram TelegramConfig `json:"telegram"`

	// Discord (alerts only)
	Discord DiscordConfig `json:"discord"`

	// Hyperliquid info API
	Hyperliquid HyperliquidConfig `json:"hyperliquid"`

	// Consensus radar
	Radar RadarConfig `json:"radar"`

	// State snapshot persistence
	Snapshot SnapshotConfig `json:"snapshot"`

	// Web server (dashboard + API + websocket)
	WebServer WebServerConfig `json:"web_server"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken string `json:"-"` // Excluded - env var only
	ChatID   string `json:"chat_id"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken  string `json:"-"` // Excluded - env var only
	ChannelID string `json:"channel_id"`
}

// HyperliquidConfig holds Hyperliquid info API configuration.
type HyperliquidConfig struct {
	InfoURL        string        `json:"info_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
	RequestsPerSec float64       `json:"requests_per_sec"` // info API rate limit budget
	RequestBurst   int           `json:"request_burst"`
}

// RadarConfig holds the runtime-mutable consensus parameters.
type RadarConfig struct {
	Wallets       []string      `json:"wallets"`        // monitored addresses, normalized lowercase 0x...
	Assets        []string      `json:"assets"`         // monitored symbols, uppercase
	Threshold     int           `json:"threshold"`      // distinct wallets needed on one side
	MinNotional   float64       `json:"min_notional"`   // USD filter applied before counting
	PollInterval  time.Duration `json:"poll_interval"`  // time between cycles
	Cooldown      time.Duration `json:"cooldown"`       // per (asset, side) re-alert window
	RecentSignals int           `json:"recent_signals"` // how many detected signals to retain
}

// SnapshotConfig holds state snapshot persistence configuration.
type SnapshotConfig struct {
	Path string `json:"path"`
}

// WebServerConfig holds web server configuration.
type WebServerConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Clone creates a deep copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Radar.Wallets != nil {
		clone.Radar.Wallets = make([]string, len(c.Radar.Wallets))
		copy(clone.Radar.Wallets, c.Radar.Wallets)
	}
	if c.Radar.Assets != nil {
		clone.Radar.Assets = make([]string, len(c.Radar.Assets))
		copy(clone.Radar.Assets, c.Radar.Assets)
	}
	return &clone
}

// ToJSON serializes the config to JSON.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ConfigFromJSON deserializes JSON into a config, merging with base.
func ConfigFromJSON(data []byte, base *Config) (*Config, error) {
	if base == nil {
		base = Defaults()
	}
	cfg := base.Clone()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		IsProd:   false,
		Telegram: TelegramConfig{},
		Discord:  DiscordConfig{},
		Hyperliquid: HyperliquidConfig{
			InfoURL:        "https://api.hyperliquid.xyz/info",
			RequestTimeout: 15 * time.Second,
			RequestsPerSec: 10,
			RequestBurst:   5,
		},
		Radar: RadarConfig{
			Assets:        []string{"BTC", "ETH"},
			Threshold:     1,
			MinNotional:   10000.0,
			PollInterval:  12 * time.Second,
			Cooldown:      10 * time.Minute,
			RecentSignals: 20,
		},
		Snapshot: SnapshotConfig{
			Path: "data/state.json",
		},
		WebServer: WebServerConfig{
			Enabled: true,
			Port:    8080,
		},
	}
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		IsProd: envBool("STAGE", "PROD"),

		Telegram: TelegramConfig{
			BotToken: envString("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   envString("TELEGRAM_CHAT_ID", ""),
		},

		Discord: DiscordConfig{
			BotToken:  envString("DISCORD_BOT_TOKEN", ""),
			ChannelID: envString("DISCORD_CHANNEL_ID", ""),
		},

		Hyperliquid: HyperliquidConfig{
			InfoURL:        envString("HYPERLIQUID_INFO_URL", "https://api.hyperliquid.xyz/info"),
			RequestTimeout: envDuration("HYPERLIQUID_REQUEST_TIMEOUT", 15*time.Second),
			RequestsPerSec: envFloat("HYPERLIQUID_REQUESTS_PER_SEC", 10),
			RequestBurst:   envInt("HYPERLIQUID_REQUEST_BURST", 5),
		},

		Radar: RadarConfig{
			Wallets:       NormalizeWallets(envStringSlice("RADAR_WALLETS")),
			Assets:        NormalizeAssets(envStringSliceDefault("RADAR_ASSETS", []string{"BTC", "ETH"})),
			Threshold:     envInt("RADAR_THRESHOLD", 1),
			MinNotional:   envFloat("RADAR_MIN_NOTIONAL", 10000.0),
			PollInterval:  envDuration("RADAR_POLL_INTERVAL", 12*time.Second),
			Cooldown:      envDuration("RADAR_COOLDOWN", 10*time.Minute),
			RecentSignals: envInt("RADAR_RECENT_SIGNALS", 20),
		},

		Snapshot: SnapshotConfig{
			Path: envString("SNAPSHOT_PATH", "data/state.json"),
		},

		WebServer: WebServerConfig{
			Enabled: envBoolDefault("WEB_SERVER_ENABLED", true),
			Port:    envInt("WEB_SERVER_PORT", 8080),
		},
	}
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBool(key, trueValue string) bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv(key)), trueValue)
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}

func envStringSlice(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func envStringSliceDefault(key string, defaultVal []string) []string {
	result := envStringSlice(key)
	if result == nil {
		return defaultVal
	}
	return result
}

// NormalizeWallet lowercases an address so identity is case-insensitive.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizeWallets normalizes a slice of addresses.
func NormalizeWallets(wallets []string) []string {
	if wallets == nil {
		return nil
	}
	result := make([]string, len(wallets))
	for i, w := range wallets {
		result[i] = NormalizeWallet(w)
	}
	return result
}

// NormalizeAsset uppercases a symbol.
func NormalizeAsset(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// NormalizeAssets normalizes a slice of symbols.
func NormalizeAssets(assets []string) []string {
	if assets == nil {
		return nil
	}
	result := make([]string, len(assets))
	for i, a := range assets {
		result[i] = NormalizeAsset(a)
	}
	return result
}
