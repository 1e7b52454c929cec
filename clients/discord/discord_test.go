package discord

import (
	"strings"
	"testing"
	"time"

	"hlradar/clients/notifier"
	"hlradar/config"

	"go.uber.org/zap"
)

func TestNewDiscordClient_NoToken(t *testing.T) {
	cfg := config.Defaults()
	cfg.Discord.ChannelID = "chan-123"

	client := NewDiscordClient(zap.NewNop(), cfg)

	if client.session != nil {
		t.Error("expected nil session without token")
	}
	if client.channelID != "chan-123" {
		t.Errorf("unexpected channel ID: %s", client.channelID)
	}
}

func TestSendConsensusAlert_NoSession(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}

	// Should not panic
	client.SendConsensusAlert(notifier.ConsensusAlert{Asset: "BTC"})
}

func TestBuildConsensusEmbed_Long(t *testing.T) {
	alert := notifier.ConsensusAlert{
		Asset:     "BTC",
		Side:      "LONG",
		Count:     2,
		Threshold: 2,
		Wallets: []notifier.WalletStake{
			{
				Address:       "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				WalletURL:     "https://hyperdash.info/trader/0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
				Notional:      25000,
				EntryPrice:    64000,
				UnrealizedPnl: 500,
			},
			{
				Address:    "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
				Notional:   12000,
				EntryPrice: 63500,
			},
		},
		TotalNotional: 37000,
		TotalPnl:      500,
		Kind:          notifier.SignalKindNew,
		DetectedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	embed := buildConsensusEmbed(alert)

	if embed.Color != 0x2ECC71 {
		t.Errorf("expected green for LONG, got %#x", embed.Color)
	}
	if !strings.Contains(embed.Title, "LONG Consensus: BTC") {
		t.Errorf("unexpected title: %s", embed.Title)
	}

	var walletField string
	for _, f := range embed.Fields {
		if f.Name == "Wallets" {
			walletField = f.Value
		}
	}
	if !strings.Contains(walletField, "0xaaaa") {
		t.Errorf("expected wallet address in field: %s", walletField)
	}
	if !strings.Contains(walletField, "hyperdash.info") {
		t.Errorf("expected wallet link in field: %s", walletField)
	}
}

func TestBuildConsensusEmbed_ShortIsRed(t *testing.T) {
	embed := buildConsensusEmbed(notifier.ConsensusAlert{
		Asset: "ETH", Side: "SHORT", Count: 3, Threshold: 3,
	})
	if embed.Color != 0xE74C3C {
		t.Errorf("expected red for SHORT, got %#x", embed.Color)
	}
}

func TestBuildConsensusEmbed_ChangedKind(t *testing.T) {
	embed := buildConsensusEmbed(notifier.ConsensusAlert{
		Asset: "ETH", Side: "LONG", Kind: notifier.SignalKindChanged,
	})
	if !strings.Contains(embed.Title, "Consensus Changed") {
		t.Errorf("unexpected title: %s", embed.Title)
	}
}

func TestClose_NoSession(t *testing.T) {
	client := &DiscordClient{logger: zap.NewNop()}
	if err := client.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
