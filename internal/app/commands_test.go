package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"hlradar/clients/hyperliquid"
	"hlradar/config"

	"go.uber.org/zap"
)

func newTestCommander(t *testing.T, gw *mockGateway, wallets ...string) (*Commander, *Engine, *config.LiveConfig) {
	t.Helper()
	lc := testLiveConfig(t, wallets...)
	e := NewEngine(zap.NewNop(), lc, gw, newRecordingNotifier(), nil)
	return NewCommander(zap.NewNop(), lc, e), e, lc
}

func TestCommander_AddWalletNormalizesAndRefreshes(t *testing.T) {
	cmd, e, lc := newTestCommander(t, newMockGateway(), testWalletA)

	upper := "0x" + strings.ToUpper(testWalletB[2:])
	added, err := cmd.AddWallet(upper)
	if err != nil {
		t.Fatalf("add wallet: %v", err)
	}
	if added != testWalletB {
		t.Errorf("expected normalized address %s, got %s", testWalletB, added)
	}
	if len(lc.Get().Radar.Wallets) != 2 {
		t.Errorf("expected 2 wallets, got %d", len(lc.Get().Radar.Wallets))
	}
	if len(e.forceCh) != 1 {
		t.Error("expected add to request a refresh")
	}
}

func TestCommander_AddWalletRejectsInvalid(t *testing.T) {
	cmd, _, _ := newTestCommander(t, newMockGateway(), testWalletA)

	if _, err := cmd.AddWallet("not-an-address"); err == nil {
		t.Error("expected error for malformed address")
	}
	if _, err := cmd.AddWallet(testWalletA); !errors.Is(err, config.ErrWalletExists) {
		t.Errorf("expected ErrWalletExists, got %v", err)
	}
}

func TestCommander_RemoveWalletPartialMatch(t *testing.T) {
	cmd, _, lc := newTestCommander(t, newMockGateway(), testWalletA, testWalletB)

	removed, err := cmd.RemoveWallet("0xbbbb")
	if err != nil {
		t.Fatalf("remove wallet: %v", err)
	}
	if removed != testWalletB {
		t.Errorf("expected %s removed, got %s", testWalletB, removed)
	}
	if len(lc.Get().Radar.Wallets) != 1 {
		t.Errorf("expected 1 wallet left, got %d", len(lc.Get().Radar.Wallets))
	}

	if _, err := cmd.RemoveWallet("0xzzzz"); !errors.Is(err, config.ErrWalletNotFound) {
		t.Errorf("expected ErrWalletNotFound, got %v", err)
	}
}

func TestCommander_RemoveWalletAmbiguous(t *testing.T) {
	cmd, _, lc := newTestCommander(t, newMockGateway(), testWalletA, testWalletB)

	// "0x" matches both wallets
	if _, err := cmd.RemoveWallet("0x"); err == nil {
		t.Error("expected ambiguity error")
	}
	if len(lc.Get().Radar.Wallets) != 2 {
		t.Error("ambiguous remove must not mutate the wallet list")
	}
}

func TestCommander_AssetManagement(t *testing.T) {
	cmd, _, lc := newTestCommander(t, newMockGateway(), testWalletA)

	added, err := cmd.AddAsset("sol")
	if err != nil {
		t.Fatalf("add asset: %v", err)
	}
	if added != "SOL" {
		t.Errorf("expected normalized SOL, got %s", added)
	}

	if _, err := cmd.AddAsset("SOL"); !errors.Is(err, config.ErrAssetExists) {
		t.Errorf("expected ErrAssetExists, got %v", err)
	}

	if _, err := cmd.RemoveAsset("SOL"); err != nil {
		t.Fatalf("remove asset: %v", err)
	}
	for _, a := range lc.Get().Radar.Assets {
		if a == "SOL" {
			t.Error("expected SOL removed")
		}
	}
}

func TestCommander_SettersValidate(t *testing.T) {
	cmd, _, _ := newTestCommander(t, newMockGateway(), testWalletA)

	if err := cmd.SetThreshold(0); err == nil {
		t.Error("expected threshold 0 rejected")
	}
	if err := cmd.SetInterval(time.Second); err == nil {
		t.Error("expected sub-10s interval rejected")
	}
	if err := cmd.SetInterval(time.Hour); err == nil {
		t.Error("expected over-10m interval rejected")
	}
	if err := cmd.SetMinNotional(-5); err == nil {
		t.Error("expected negative notional rejected")
	}

	if err := cmd.SetThreshold(3); err != nil {
		t.Errorf("valid threshold rejected: %v", err)
	}
	if err := cmd.SetInterval(30 * time.Second); err != nil {
		t.Errorf("valid interval rejected: %v", err)
	}
	if err := cmd.SetCooldown(5 * time.Minute); err != nil {
		t.Errorf("valid cooldown rejected: %v", err)
	}
}

func TestCommander_Status(t *testing.T) {
	gw := newMockGateway()
	gw.mids["BTC"] = 50000
	gw.setPositions(testWalletA, hyperliquid.Position{Coin: "BTC", Size: 1.0})
	gw.setError(testWalletB, errors.New("down"))

	cmd, e, _ := newTestCommander(t, gw, testWalletA, testWalletB)
	e.runCycle(context.Background())

	status := cmd.Status()
	if status.CycleCount != 1 {
		t.Errorf("expected 1 cycle, got %d", status.CycleCount)
	}
	if status.Threshold != 2 {
		t.Errorf("expected threshold 2, got %d", status.Threshold)
	}
	if len(status.FailedWallets) != 1 || status.FailedWallets[0] != testWalletB {
		t.Errorf("expected wallet B failed, got %v", status.FailedWallets)
	}
	if status.LastCycleAt.IsZero() {
		t.Error("expected last cycle timestamp")
	}
}
