package app

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// WalletRecord is the stored poll result for one wallet. After a failed
// fetch the previous positions are retained and StaleSince marks when the
// data stopped being fresh.
type WalletRecord struct {
	Positions  []WalletPosition `json:"positions"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Failed     bool             `json:"failed,omitempty"`
	StaleSince time.Time        `json:"stale_since,omitempty"`
	LastError  string           `json:"last_error,omitempty"`
}

// PositionStore holds the latest known positions per monitored wallet.
// Safe for concurrent use.
type PositionStore struct {
	logger *zap.Logger

	mu      sync.RWMutex
	wallets map[string]*WalletRecord
}

func NewPositionStore(logger *zap.Logger) *PositionStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionStore{
		logger:  logger,
		wallets: make(map[string]*WalletRecord),
	}
}

// Update replaces a wallet's positions with a fresh fetch result.
func (ps *PositionStore) Update(wallet string, positions []WalletPosition, at time.Time) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.wallets[wallet] = &WalletRecord{
		Positions: positions,
		UpdatedAt: at,
	}
}

// MarkFailed records a failed fetch. Prior positions survive so a transient
// API error does not collapse an active consensus; StaleSince is set on the
// first failure and preserved on repeats.
func (ps *PositionStore) MarkFailed(wallet string, at time.Time, err error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	rec, ok := ps.wallets[wallet]
	if !ok {
		rec = &WalletRecord{}
		ps.wallets[wallet] = rec
	}
	if !rec.Failed {
		rec.StaleSince = at
	}
	rec.Failed = true
	if err != nil {
		rec.LastError = err.Error()
	}

	ps.logger.Warn("wallet fetch failed, retaining stale positions",
		zap.String("wallet", wallet),
		zap.Time("staleSince", rec.StaleSince),
		zap.Error(err),
	)
}

// Remove drops a wallet entirely. Called when it leaves the monitored set.
func (ps *PositionStore) Remove(wallet string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	delete(ps.wallets, wallet)
}

// Get returns a copy of one wallet's record, or nil if unknown.
func (ps *PositionStore) Get(wallet string) *WalletRecord {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	rec, ok := ps.wallets[wallet]
	if !ok {
		return nil
	}
	return copyRecord(rec)
}

// Snapshot returns a deep copy of all wallet records.
func (ps *PositionStore) Snapshot() map[string]*WalletRecord {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make(map[string]*WalletRecord, len(ps.wallets))
	for wallet, rec := range ps.wallets {
		out[wallet] = copyRecord(rec)
	}
	return out
}

// Restore seeds the store from a snapshot. Existing contents are replaced.
func (ps *PositionStore) Restore(wallets map[string]*WalletRecord) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.wallets = make(map[string]*WalletRecord, len(wallets))
	for wallet, rec := range wallets {
		if rec == nil {
			continue
		}
		ps.wallets[wallet] = copyRecord(rec)
	}
}

// Wallets returns the addresses currently in the store.
func (ps *PositionStore) Wallets() []string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	out := make([]string, 0, len(ps.wallets))
	for wallet := range ps.wallets {
		out = append(out, wallet)
	}
	return out
}

// Size returns the number of tracked wallets.
func (ps *PositionStore) Size() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.wallets)
}

func copyRecord(rec *WalletRecord) *WalletRecord {
	cp := *rec
	cp.Positions = make([]WalletPosition, len(rec.Positions))
	copy(cp.Positions, rec.Positions)
	return &cp
}
