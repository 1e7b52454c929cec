package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"hlradar/clients/hyperliquid"

	"go.uber.org/zap"
)

func newTestBotHandler(t *testing.T, wallets ...string) (*BotHandler, *Commander) {
	t.Helper()
	cmd, _, _ := newTestCommander(t, newMockGateway(), wallets...)
	return &BotHandler{
		logger:    zap.NewNop(),
		commander: cmd,
		startTime: time.Now(),
	}, cmd
}

func TestBotHandler_StatusText(t *testing.T) {
	b, _ := newTestBotHandler(t, testWalletA, testWalletB)

	text := b.statusText()
	if !strings.Contains(text, "Wallets: 2") {
		t.Errorf("status missing wallet count: %s", text)
	}
	if !strings.Contains(text, "Threshold: 2 wallets") {
		t.Errorf("status missing threshold: %s", text)
	}
}

func TestBotHandler_WalletCommands(t *testing.T) {
	b, cmd := newTestBotHandler(t, testWalletA)

	reply := b.addWallet([]string{testWalletB})
	if !strings.Contains(reply, "Monitoring") {
		t.Errorf("unexpected add reply: %s", reply)
	}
	if len(cmd.Config().Wallets) != 2 {
		t.Error("expected wallet added")
	}

	reply = b.addWallet([]string{"garbage"})
	if !strings.Contains(reply, "❌") {
		t.Errorf("expected error reply for bad address: %s", reply)
	}

	reply = b.addWallet(nil)
	if !strings.Contains(reply, "Usage") {
		t.Errorf("expected usage reply: %s", reply)
	}

	reply = b.removeWallet([]string{"0xbbbb"})
	if !strings.Contains(reply, "Removed") {
		t.Errorf("unexpected remove reply: %s", reply)
	}
	if len(cmd.Config().Wallets) != 1 {
		t.Error("expected wallet removed")
	}
}

func TestBotHandler_ParameterCommands(t *testing.T) {
	b, cmd := newTestBotHandler(t, testWalletA)

	if reply := b.setThreshold([]string{"3"}); !strings.Contains(reply, "✅") {
		t.Errorf("unexpected threshold reply: %s", reply)
	}
	if cmd.Config().Threshold != 3 {
		t.Error("threshold not applied")
	}

	if reply := b.setThreshold([]string{"zero"}); !strings.Contains(reply, "not a number") {
		t.Errorf("expected parse error: %s", reply)
	}

	if reply := b.setInterval([]string{"30"}); !strings.Contains(reply, "30s") {
		t.Errorf("unexpected interval reply: %s", reply)
	}
	if cmd.Config().PollInterval != 30*time.Second {
		t.Errorf("interval not applied: %v", cmd.Config().PollInterval)
	}

	// Out of bounds fails and leaves the config untouched
	if reply := b.setInterval([]string{"2"}); !strings.Contains(reply, "❌") {
		t.Errorf("expected rejection for 2s interval: %s", reply)
	}
	if cmd.Config().PollInterval != 30*time.Second {
		t.Error("rejected interval mutated config")
	}

	if reply := b.setNotional([]string{"25000"}); !strings.Contains(reply, "$25000") {
		t.Errorf("unexpected notional reply: %s", reply)
	}
	if reply := b.setCooldown([]string{"300"}); !strings.Contains(reply, "5m") {
		t.Errorf("unexpected cooldown reply: %s", reply)
	}
}

func TestBotHandler_StatsPerAssetBreakdown(t *testing.T) {
	gw := newMockGateway()
	gw.mids["BTC"] = 50000
	gw.mids["ETH"] = 3000
	gw.setPositions(testWalletA,
		hyperliquid.Position{Coin: "BTC", Size: 1.0, UnrealizedPnl: 2000},
		hyperliquid.Position{Coin: "ETH", Size: -10, UnrealizedPnl: -500})
	gw.setPositions(testWalletB, hyperliquid.Position{Coin: "BTC", Size: -0.5, UnrealizedPnl: -100})
	gw.setPositions(testWalletC)

	cmd, e, _ := newTestCommander(t, gw, testWalletA, testWalletB, testWalletC)
	e.runCycle(context.Background())

	b := &BotHandler{logger: zap.NewNop(), commander: cmd, startTime: time.Now()}
	text := b.statsText()

	if !strings.Contains(text, "BTC: 🟢 1 long (+$2000), 🔴 1 short (-$100), 1 flat") {
		t.Errorf("missing BTC breakdown:\n%s", text)
	}
	if !strings.Contains(text, "ETH: 🟢 0 long (+$0), 🔴 1 short (-$500), 2 flat") {
		t.Errorf("missing ETH breakdown:\n%s", text)
	}
	if !strings.Contains(text, "Total uPnL: +$1400") {
		t.Errorf("missing total uPnL:\n%s", text)
	}
}

func TestBotHandler_SignalsEmpty(t *testing.T) {
	b, _ := newTestBotHandler(t, testWalletA)

	if reply := b.signalsText(nil); reply != "No alerts yet." {
		t.Errorf("unexpected reply: %s", reply)
	}
}

func TestParseDurationArg(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30", 30 * time.Second, false},
		{"600", 10 * time.Minute, false},
		{"2m30s", 2*time.Minute + 30*time.Second, false},
		{"1h", time.Hour, false},
		{"soon", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := parseDurationArg(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseDurationArg(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDurationArg(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseDurationArg(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
