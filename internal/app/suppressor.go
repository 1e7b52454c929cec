package app

import (
	"sync"
	"time"
)

// SignalKind distinguishes a brand-new consensus from a composition change.
type SignalKind string

const (
	SignalKindNew     SignalKind = "new"
	SignalKindChanged SignalKind = "changed"
)

// Alert is a suppressor decision to notify about a signal.
type Alert struct {
	Signal ConsensusSignal
	Kind   SignalKind
}

// SuppressionState is the persisted per-key suppressor state.
type SuppressionState struct {
	CurrentFP     string    `json:"current_fp,omitempty"`
	LastAlertedFP string    `json:"last_alerted_fp,omitempty"`
	LastAlertAt   time.Time `json:"last_alert_at,omitempty"`
}

// Suppressor decides which detected signals become alerts. Per (asset, side)
// key it tracks the fingerprint currently signalling, the fingerprint last
// alerted, and when. An unchanged active signal never re-alerts; the same
// composition re-emerging within the cooldown is swallowed; any composition
// change alerts immediately.
type Suppressor struct {
	mu      sync.Mutex
	entries map[SignalKey]*SuppressionState
}

func NewSuppressor() *Suppressor {
	return &Suppressor{
		entries: make(map[SignalKey]*SuppressionState),
	}
}

// Evaluate runs one cycle's signals through the state machine and returns
// the alerts to send. Keys absent from signals fall back to idle: their
// current fingerprint clears while the last-alerted state survives, so a
// consensus that flickers out and back unchanged stays quiet until the
// cooldown expires.
func (s *Suppressor) Evaluate(signals []ConsensusSignal, now time.Time, cooldown time.Duration) []Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	present := make(map[SignalKey]bool, len(signals))
	var alerts []Alert

	for _, sig := range signals {
		key := sig.Key()
		present[key] = true
		fp := sig.Fingerprint()

		entry, ok := s.entries[key]
		if !ok {
			entry = &SuppressionState{}
			s.entries[key] = entry
		}

		if entry.CurrentFP == fp {
			// Still signalling, unchanged
			continue
		}

		changed := entry.LastAlertedFP != "" && entry.LastAlertedFP != fp
		withinCooldown := entry.LastAlertedFP == fp &&
			!entry.LastAlertAt.IsZero() &&
			now.Sub(entry.LastAlertAt) < cooldown

		entry.CurrentFP = fp
		if withinCooldown {
			continue
		}

		kind := SignalKindNew
		if changed {
			kind = SignalKindChanged
		}
		alerts = append(alerts, Alert{Signal: sig, Kind: kind})
		entry.LastAlertedFP = fp
		entry.LastAlertAt = now
	}

	for key, entry := range s.entries {
		if !present[key] {
			entry.CurrentFP = ""
		}
	}

	return alerts
}

// Export returns a copy of the suppressor state keyed by SignalKey.String().
func (s *Suppressor) Export() map[string]SuppressionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]SuppressionState, len(s.entries))
	for key, entry := range s.entries {
		out[key.String()] = *entry
	}
	return out
}

// Restore seeds the suppressor from persisted state. Malformed keys are
// skipped. Current fingerprints are cleared: after a restart nothing is
// known to be actively signalling until the first cycle says so.
func (s *Suppressor) Restore(state map[string]SuppressionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[SignalKey]*SuppressionState, len(state))
	for raw, st := range state {
		key, ok := ParseSignalKey(raw)
		if !ok {
			continue
		}
		s.entries[key] = &SuppressionState{
			LastAlertedFP: st.LastAlertedFP,
			LastAlertAt:   st.LastAlertAt,
		}
	}
}

// Size returns the number of tracked keys.
func (s *Suppressor) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
