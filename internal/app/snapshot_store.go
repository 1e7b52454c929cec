package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hlradar/config"

	"go.uber.org/zap"
)

// SnapshotVersion guards the on-disk format. A snapshot with a different
// version is rejected and the engine starts cold.
const SnapshotVersion = 1

// EngineSnapshot is the persisted engine state: the last known positions,
// the suppressor memory, the recent signal feed, and the runtime-mutated
// radar parameters.
type EngineSnapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	Radar         *config.RadarConfig         `json:"radar,omitempty"`
	Wallets       map[string]*WalletRecord    `json:"wallets,omitempty"`
	Suppressions  map[string]SuppressionState `json:"suppressions,omitempty"`
	RecentSignals []ConsensusSignal           `json:"recent_signals,omitempty"`
}

// SnapshotStore persists EngineSnapshots as JSON on disk. Writes go through
// a temp file and rename so a crash mid-write never corrupts the snapshot.
type SnapshotStore struct {
	logger *zap.Logger
	path   string
}

func NewSnapshotStore(logger *zap.Logger, path string) *SnapshotStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStore{
		logger: logger,
		path:   path,
	}
}

// Save writes the snapshot to disk.
func (ss *SnapshotStore) Save(snap *EngineSnapshot) error {
	if ss.path == "" {
		return nil
	}

	snap.Version = SnapshotVersion
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(ss.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := ss.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, ss.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	ss.logger.Debug("saved engine snapshot",
		zap.String("path", ss.path),
		zap.Int("bytes", len(data)),
	)

	return nil
}

// Load reads the snapshot from disk. A missing file is not an error: it
// returns (nil, nil) and the engine starts cold.
func (ss *SnapshotStore) Load() (*EngineSnapshot, error) {
	if ss.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(ss.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap EngineSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d (want %d)", snap.Version, SnapshotVersion)
	}

	ss.logger.Info("loaded engine snapshot",
		zap.String("path", ss.path),
		zap.Time("savedAt", snap.SavedAt),
		zap.Int("wallets", len(snap.Wallets)),
	)

	return &snap, nil
}

// Path returns the snapshot file path.
func (ss *SnapshotStore) Path() string {
	return ss.path
}
