package app

import (
	"sort"
	"strings"
	"time"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// SideFromSize derives the side from a signed position size.
func SideFromSize(size float64) Side {
	if size < 0 {
		return SideShort
	}
	return SideLong
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// WalletPosition is one wallet's open position in one asset, enriched with
// the mark price seen during the cycle that produced it.
type WalletPosition struct {
	Wallet           string    `json:"wallet"`
	Asset            string    `json:"asset"`
	Side             Side      `json:"side"`
	Size             float64   `json:"size"`
	EntryPrice       float64   `json:"entry_price"`
	MarkPrice        float64   `json:"mark_price"`
	Notional         float64   `json:"notional"`
	UnrealizedPnl    float64   `json:"unrealized_pnl"`
	LiquidationPrice float64   `json:"liquidation_price,omitempty"`
	Leverage         float64   `json:"leverage,omitempty"`
	OpenedAt         time.Time `json:"opened_at,omitempty"`
}

// SignalKey identifies a consensus stream: one asset on one side.
type SignalKey struct {
	Asset string `json:"asset"`
	Side  Side   `json:"side"`
}

func (k SignalKey) String() string {
	return k.Asset + "|" + string(k.Side)
}

// ParseSignalKey is the inverse of SignalKey.String. Used when keys round-trip
// through JSON object keys in snapshots.
func ParseSignalKey(s string) (SignalKey, bool) {
	idx := strings.LastIndex(s, "|")
	if idx <= 0 || idx == len(s)-1 {
		return SignalKey{}, false
	}
	side := Side(s[idx+1:])
	if side != SideLong && side != SideShort {
		return SignalKey{}, false
	}
	return SignalKey{Asset: s[:idx], Side: side}, true
}

// ConsensusSignal is a detected agreement: Count distinct wallets hold the
// same side of the same asset, each above the notional filter.
type ConsensusSignal struct {
	Asset     string           `json:"asset"`
	Side      Side             `json:"side"`
	Count     int              `json:"count"`
	Threshold int              `json:"threshold"`
	Wallets   []WalletPosition `json:"wallets"`

	TotalNotional float64 `json:"total_notional"`
	TotalPnl      float64 `json:"total_pnl"`

	DetectedAt time.Time `json:"detected_at"`
}

// Key returns the signal's (asset, side) identity.
func (s *ConsensusSignal) Key() SignalKey {
	return SignalKey{Asset: s.Asset, Side: s.Side}
}

// Fingerprint identifies the wallet composition of the signal. Two signals
// with the same wallets agree regardless of position sizes, so notional is
// deliberately excluded.
func (s *ConsensusSignal) Fingerprint() string {
	addrs := make([]string, 0, len(s.Wallets))
	for _, w := range s.Wallets {
		addrs = append(addrs, w.Wallet)
	}
	sort.Strings(addrs)
	return strings.Join(addrs, ",")
}
