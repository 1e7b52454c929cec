package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hlradar/config"

	"go.uber.org/zap"
)

func TestSnapshotStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	ss := NewSnapshotStore(zap.NewNop(), path)

	radar := config.Defaults().Radar
	radar.Threshold = 3

	snap := &EngineSnapshot{
		Radar: &radar,
		Wallets: map[string]*WalletRecord{
			testWalletA: {Positions: []WalletPosition{{Asset: "BTC", Side: SideLong, Notional: 50000}}},
		},
		Suppressions: map[string]SuppressionState{
			"BTC|LONG": {LastAlertedFP: testWalletA, LastAlertAt: time.Now().UTC()},
		},
		RecentSignals: []ConsensusSignal{{Asset: "BTC", Side: SideLong, Count: 2}},
	}

	if err := ss.Save(snap); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := ss.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected snapshot")
	}
	if loaded.Version != SnapshotVersion {
		t.Errorf("unexpected version %d", loaded.Version)
	}
	if loaded.SavedAt.IsZero() {
		t.Error("expected SavedAt to be stamped on save")
	}
	if loaded.Radar == nil || loaded.Radar.Threshold != 3 {
		t.Errorf("radar config did not round trip: %+v", loaded.Radar)
	}
	if len(loaded.Wallets) != 1 || len(loaded.Wallets[testWalletA].Positions) != 1 {
		t.Errorf("wallets did not round trip: %+v", loaded.Wallets)
	}
	if _, ok := loaded.Suppressions["BTC|LONG"]; !ok {
		t.Errorf("suppressions did not round trip: %+v", loaded.Suppressions)
	}
	if len(loaded.RecentSignals) != 1 {
		t.Errorf("recent signals did not round trip: %+v", loaded.RecentSignals)
	}
}

func TestSnapshotStore_MissingFileStartsCold(t *testing.T) {
	ss := NewSnapshotStore(zap.NewNop(), filepath.Join(t.TempDir(), "missing.json"))

	snap, err := ss.Load()
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if snap != nil {
		t.Error("expected nil snapshot for missing file")
	}
}

func TestSnapshotStore_EmptyPathDisabled(t *testing.T) {
	ss := NewSnapshotStore(zap.NewNop(), "")

	if err := ss.Save(&EngineSnapshot{}); err != nil {
		t.Errorf("save with empty path should be a no-op: %v", err)
	}
	snap, err := ss.Load()
	if err != nil || snap != nil {
		t.Errorf("load with empty path should be a no-op, got %+v, %v", snap, err)
	}
}

func TestSnapshotStore_VersionMismatchRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	data, _ := json.Marshal(map[string]any{"version": 99})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	ss := NewSnapshotStore(zap.NewNop(), path)
	if _, err := ss.Load(); err == nil {
		t.Error("expected error for unsupported version")
	}
}

func TestSnapshotStore_CorruptFileRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	ss := NewSnapshotStore(zap.NewNop(), path)
	if _, err := ss.Load(); err == nil {
		t.Error("expected error for corrupt snapshot")
	}
}

func TestSnapshotStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	ss := NewSnapshotStore(zap.NewNop(), path)

	if err := ss.Save(&EngineSnapshot{}); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
