package notifier

import (
	"time"
)

// SignalKind distinguishes a fresh consensus from a composition change on an
// already-alerted asset/side.
type SignalKind string

const (
	SignalKindNew     SignalKind = "new"
	SignalKindChanged SignalKind = "changed"
)

// WalletStake is one wallet's contribution to a consensus signal.
type WalletStake struct {
	Address       string
	WalletURL     string
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	Notional      float64
	UnrealizedPnl float64
	Leverage      float64
	OpenedAt      time.Time // zero if unknown
}

// ConsensusAlert contains all the data needed for a consensus notification.
type ConsensusAlert struct {
	Asset     string
	Side      string // LONG or SHORT
	Count     int
	Threshold int
	Wallets   []WalletStake

	// Aggregates across contributing wallets
	TotalNotional float64
	TotalPnl      float64

	Kind       SignalKind
	DetectedAt time.Time
}

// Notifier is the interface for sending consensus alerts to various channels.
type Notifier interface {
	// SendConsensusAlert sends a consensus alert notification.
	SendConsensusAlert(alert ConsensusAlert)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// SendConsensusAlert sends the alert to all registered notifiers.
func (m *MultiNotifier) SendConsensusAlert(alert ConsensusAlert) {
	for _, n := range m.notifiers {
		n.SendConsensusAlert(alert)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
