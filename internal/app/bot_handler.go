package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hlradar/clients/telegram"

	"go.uber.org/zap"
)

const botPollTimeout = 30 * time.Second

// BotHandler runs the Telegram command loop: long-polls getUpdates and maps
// commands onto the Commander. Only messages from the configured chat are
// honored.
type BotHandler struct {
	logger    *zap.Logger
	client    *telegram.TelegramClient
	commander *Commander
	chatID    string
	startTime time.Time
}

func NewBotHandler(logger *zap.Logger, client *telegram.TelegramClient, commander *Commander, chatID string) *BotHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotHandler{
		logger:    logger,
		client:    client,
		commander: commander,
		chatID:    chatID,
		startTime: time.Now(),
	}
}

// Run polls for commands until the context is cancelled.
func (b *BotHandler) Run(ctx context.Context) {
	if b.client == nil || !b.client.Enabled() {
		b.logger.Info("telegram bot not configured, command loop disabled")
		return
	}

	b.logger.Info("telegram command loop starting", zap.String("chatID", b.chatID))

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram command loop shutting down")
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset, botPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Warn("failed to fetch telegram updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			b.handleMessage(u.Message)
		}
	}
}

func (b *BotHandler) handleMessage(msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if b.chatID != "" && chatID != b.chatID {
		b.logger.Warn("ignoring command from unauthorized chat",
			zap.String("chatID", chatID),
		)
		return
	}

	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	// Strip the @botname suffix used in group chats
	if idx := strings.Index(cmd, "@"); idx > 0 {
		cmd = cmd[:idx]
	}
	args := fields[1:]

	b.logger.Info("bot command", zap.String("cmd", cmd), zap.Strings("args", args))

	var reply string
	switch cmd {
	case "/start", "/help":
		reply = helpText
	case "/status":
		reply = b.statusText()
	case "/wallets", "/list":
		reply = b.walletsText()
	case "/add":
		reply = b.addWallet(args)
	case "/remove":
		reply = b.removeWallet(args)
	case "/assets":
		reply = b.assetsText()
	case "/addasset":
		reply = b.addAsset(args)
	case "/removeasset":
		reply = b.removeAsset(args)
	case "/threshold":
		reply = b.setThreshold(args)
	case "/interval":
		reply = b.setInterval(args)
	case "/notional":
		reply = b.setNotional(args)
	case "/cooldown":
		reply = b.setCooldown(args)
	case "/refresh":
		b.commander.Refresh()
		reply = "🔄 Refresh requested."
	case "/signals":
		reply = b.signalsText(args)
	case "/config":
		reply = b.configText()
	case "/stats":
		reply = b.statsText()
	default:
		reply = "Unknown command. Try /help."
	}

	if reply == "" {
		return
	}
	if err := b.client.SendHTML(chatID, reply); err != nil {
		b.logger.Error("failed to send bot reply", zap.Error(err))
	}
}

const helpText = `<b>hlradar commands</b>

/status — engine status
/wallets — monitored wallets
/add &lt;address&gt; — monitor a wallet
/remove &lt;address&gt; — stop monitoring (partial match ok)
/assets — monitored assets
/addasset &lt;symbol&gt; — monitor an asset
/removeasset &lt;symbol&gt; — stop monitoring an asset
/threshold &lt;n&gt; — wallets needed for consensus
/interval &lt;seconds&gt; — poll interval (10–600)
/notional &lt;usd&gt; — minimum position size
/cooldown &lt;seconds&gt; — re-alert cooldown
/refresh — poll now
/signals [n] — recent alerts
/config — current parameters
/stats — detailed report`

func (b *BotHandler) statusText() string {
	s := b.commander.Status()

	var sb strings.Builder
	sb.WriteString("<b>📡 Status</b>\n\n")
	sb.WriteString(fmt.Sprintf("Wallets: %d\n", len(s.Wallets)))
	sb.WriteString(fmt.Sprintf("Assets: %s\n", nz(strings.Join(s.Assets, ", "), "none")))
	sb.WriteString(fmt.Sprintf("Threshold: %d wallets\n", s.Threshold))
	sb.WriteString(fmt.Sprintf("Min notional: $%.0f\n", s.MinNotional))
	sb.WriteString(fmt.Sprintf("Interval: %s, cooldown: %s\n", humanDuration(s.PollInterval), humanDuration(s.Cooldown)))
	sb.WriteString(fmt.Sprintf("Cycles: %d, alerts: %d\n", s.CycleCount, s.AlertsSent))
	if !s.LastCycleAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Last cycle: %s ago\n", humanDuration(time.Since(s.LastCycleAt))))
	}
	sb.WriteString(fmt.Sprintf("Active signals: %d\n", s.ActiveSignals))
	if len(s.FailedWallets) > 0 {
		sb.WriteString(fmt.Sprintf("⚠️ Stale wallets: %d\n", len(s.FailedWallets)))
	}
	return sb.String()
}

func (b *BotHandler) walletsText() string {
	cfg := b.commander.Config()
	if len(cfg.Wallets) == 0 {
		return "No wallets monitored. Add one with /add &lt;address&gt;."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>👛 Wallets (%d)</b>\n\n", len(cfg.Wallets)))
	for _, w := range cfg.Wallets {
		sb.WriteString(fmt.Sprintf("• <a href=\"%s\">%s</a>\n", walletURL(w), shortAddress(w)))
	}
	return sb.String()
}

func (b *BotHandler) addWallet(args []string) string {
	if len(args) != 1 {
		return "Usage: /add &lt;address&gt;"
	}
	added, err := b.commander.AddWallet(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Monitoring %s", shortAddress(added))
}

func (b *BotHandler) removeWallet(args []string) string {
	if len(args) != 1 {
		return "Usage: /remove &lt;address&gt;"
	}
	removed, err := b.commander.RemoveWallet(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("🗑 Removed %s", shortAddress(removed))
}

func (b *BotHandler) assetsText() string {
	cfg := b.commander.Config()
	if len(cfg.Assets) == 0 {
		return "No assets monitored. Add one with /addasset &lt;symbol&gt;."
	}
	return "<b>Assets:</b> " + strings.Join(cfg.Assets, ", ")
}

func (b *BotHandler) addAsset(args []string) string {
	if len(args) != 1 {
		return "Usage: /addasset &lt;symbol&gt;"
	}
	added, err := b.commander.AddAsset(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Monitoring %s", added)
}

func (b *BotHandler) removeAsset(args []string) string {
	if len(args) != 1 {
		return "Usage: /removeasset &lt;symbol&gt;"
	}
	removed, err := b.commander.RemoveAsset(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("🗑 Removed %s", removed)
}

func (b *BotHandler) setThreshold(args []string) string {
	if len(args) != 1 {
		return "Usage: /threshold &lt;n&gt;"
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return "❌ not a number: " + args[0]
	}
	if err := b.commander.SetThreshold(n); err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Threshold set to %d wallets", n)
}

func (b *BotHandler) setInterval(args []string) string {
	if len(args) != 1 {
		return "Usage: /interval &lt;seconds&gt;"
	}
	d, err := parseDurationArg(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	if err := b.commander.SetInterval(d); err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Poll interval set to %s", humanDuration(d))
}

func (b *BotHandler) setNotional(args []string) string {
	if len(args) != 1 {
		return "Usage: /notional &lt;usd&gt;"
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return "❌ not a number: " + args[0]
	}
	if err := b.commander.SetMinNotional(v); err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Min notional set to $%.0f", v)
}

func (b *BotHandler) setCooldown(args []string) string {
	if len(args) != 1 {
		return "Usage: /cooldown &lt;seconds&gt;"
	}
	d, err := parseDurationArg(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	if err := b.commander.SetCooldown(d); err != nil {
		return "❌ " + err.Error()
	}
	return fmt.Sprintf("✅ Cooldown set to %s", humanDuration(d))
}

func (b *BotHandler) signalsText(args []string) string {
	n := 5
	if len(args) == 1 {
		if parsed, err := strconv.Atoi(args[0]); err == nil && parsed > 0 {
			n = parsed
		}
	}

	signals := b.commander.Signals(n)
	if len(signals) == 0 {
		return "No alerts yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>🔔 Last %d alerts</b>\n\n", len(signals)))
	for _, s := range signals {
		emoji := "🟢"
		if s.Side == SideShort {
			emoji = "🔴"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s — %d wallets, $%.0f (%s ago)\n",
			emoji, s.Side, s.Asset, s.Count, s.TotalNotional,
			humanDuration(time.Since(s.DetectedAt))))
	}
	return sb.String()
}

func (b *BotHandler) configText() string {
	cfg := b.commander.Config()

	var sb strings.Builder
	sb.WriteString("<b>⚙️ Config</b>\n\n")
	sb.WriteString(fmt.Sprintf("Threshold: %d\n", cfg.Threshold))
	sb.WriteString(fmt.Sprintf("Min notional: $%.0f\n", cfg.MinNotional))
	sb.WriteString(fmt.Sprintf("Poll interval: %s\n", humanDuration(cfg.PollInterval)))
	sb.WriteString(fmt.Sprintf("Cooldown: %s\n", humanDuration(cfg.Cooldown)))
	sb.WriteString(fmt.Sprintf("Assets: %s\n", nz(strings.Join(cfg.Assets, ", "), "none")))
	sb.WriteString(fmt.Sprintf("Wallets: %d\n", len(cfg.Wallets)))
	return sb.String()
}

func (b *BotHandler) statsText() string {
	state := b.commander.State()

	var totalNotional, totalPnl float64
	var openPositions int
	for _, rec := range state.Wallets {
		for _, p := range rec.Positions {
			openPositions++
			totalNotional += p.Notional
			totalPnl += p.UnrealizedPnl
		}
	}

	var sb strings.Builder
	sb.WriteString("<b>📊 Report</b>\n\n")
	sb.WriteString(fmt.Sprintf("Uptime: %s\n", humanDuration(time.Since(b.startTime))))
	sb.WriteString(fmt.Sprintf("Cycles: %d, alerts sent: %d\n", state.CycleCount, state.AlertsSent))
	sb.WriteString(fmt.Sprintf("Open positions: %d across %d wallets\n", openPositions, len(state.Wallets)))
	sb.WriteString(fmt.Sprintf("Total notional: $%.0f\n", totalNotional))
	sb.WriteString(fmt.Sprintf("Total uPnL: %s\n", signedUSD(totalPnl)))

	if len(state.Radar.Assets) > 0 && len(state.Wallets) > 0 {
		sb.WriteString("\n<b>Per asset:</b>\n")
		for _, asset := range state.Radar.Assets {
			var longs, shorts, positioned int
			var longPnl, shortPnl float64
			for _, rec := range state.Wallets {
				inAsset := false
				for _, p := range rec.Positions {
					if p.Asset != asset {
						continue
					}
					inAsset = true
					if p.Side == SideShort {
						shorts++
						shortPnl += p.UnrealizedPnl
					} else {
						longs++
						longPnl += p.UnrealizedPnl
					}
				}
				if inAsset {
					positioned++
				}
			}
			flat := len(state.Wallets) - positioned
			sb.WriteString(fmt.Sprintf("%s: 🟢 %d long (%s), 🔴 %d short (%s), %d flat\n",
				asset, longs, signedUSD(longPnl), shorts, signedUSD(shortPnl), flat))
		}
	}

	if len(state.Signals) > 0 {
		sb.WriteString("\n<b>Active signals:</b>\n")
		for _, s := range state.Signals {
			emoji := "🟢"
			if s.Side == SideShort {
				emoji = "🔴"
			}
			sb.WriteString(fmt.Sprintf("%s %s %s — %d/%d wallets, $%.0f\n",
				emoji, s.Side, s.Asset, s.Count, s.Threshold, s.TotalNotional))
		}
	}
	return sb.String()
}

// parseDurationArg accepts either bare seconds ("30") or a Go duration
// ("2m30s").
func parseDurationArg(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("not a duration: %s", s)
	}
	return d, nil
}
