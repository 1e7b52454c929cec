package discord

import (
	"fmt"
	"strings"
	"time"

	"hlradar/clients/notifier"
	"hlradar/config"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient sends alerts to Discord.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.ChannelID

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	logger.Info("discord bot initialized",
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
	}
}

// Enabled reports whether alerts can actually be delivered.
func (dc *DiscordClient) Enabled() bool {
	return dc.session != nil && dc.channelID != ""
}

// SendMessage sends a plain text message.
func (dc *DiscordClient) SendMessage(message string) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping message")
		return
	}

	_, err := dc.session.ChannelMessageSend(dc.channelID, message)
	if err != nil {
		dc.logger.Error("failed to send discord message", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord message")
}

// SendConsensusAlert sends a rich embedded consensus alert.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendConsensusAlert(alert notifier.ConsensusAlert) {
	if dc.session == nil {
		dc.logger.Warn("discord session not initialized, skipping alert")
		return
	}

	embed := buildConsensusEmbed(alert)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord consensus alert",
		zap.String("asset", alert.Asset),
		zap.String("side", alert.Side),
		zap.Int("count", alert.Count),
	)
}

func buildConsensusEmbed(alert notifier.ConsensusAlert) *discordgo.MessageEmbed {
	// Choose color based on side
	color := 0x2ECC71 // Green for LONG
	sideEmoji := "🟢"
	if alert.Side == "SHORT" {
		color = 0xE74C3C // Red for SHORT
		sideEmoji = "🔴"
	}

	title := fmt.Sprintf("🚨 %s Consensus: %s", alert.Side, alert.Asset)
	if alert.Kind == notifier.SignalKindChanged {
		title = fmt.Sprintf("🔁 %s Consensus Changed: %s", alert.Side, alert.Asset)
	}

	var walletLines []string
	for _, w := range alert.Wallets {
		line := shortAddress(w.Address)
		if w.WalletURL != "" {
			line = fmt.Sprintf("[%s](%s)", line, w.WalletURL)
		}
		line += fmt.Sprintf(" — $%.0f @ $%.2f", w.Notional, w.EntryPrice)
		if w.UnrealizedPnl != 0 {
			sign := "+"
			if w.UnrealizedPnl < 0 {
				sign = ""
			}
			line += fmt.Sprintf(" (uPnL %s$%.0f)", sign, w.UnrealizedPnl)
		}
		walletLines = append(walletLines, line)
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Agreement",
			Value:  fmt.Sprintf("%s %d/%d wallets", sideEmoji, alert.Count, alert.Threshold),
			Inline: true,
		},
		{
			Name:   "Total Notional",
			Value:  fmt.Sprintf("$%.2f", alert.TotalNotional),
			Inline: true,
		},
		{
			Name:   "Total uPnL",
			Value:  fmt.Sprintf("$%.2f", alert.TotalPnl),
			Inline: true,
		},
		{
			Name:   "Wallets",
			Value:  strings.Join(walletLines, "\n"),
			Inline: false,
		},
	}

	ts := alert.DetectedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return &discordgo.MessageEmbed{
		Title:  title,
		Color:  color,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "hlradar * " + ts.UTC().Format("2006-01-02 15:04:05 UTC"),
		},
		Timestamp: ts.Format(time.RFC3339),
	}
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
