package app

import (
	"context"
	"sync"
	"time"

	"hlradar/clients/hyperliquid"
	"hlradar/clients/notifier"
)

// Valid-format addresses shared across tests.
const (
	testWalletA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testWalletB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	testWalletC = "0xcccccccccccccccccccccccccccccccccccccccc"
	testWalletD = "0xdddddddddddddddddddddddddddddddddddddddd"
)

// mockGateway is an in-memory Gateway. Positions and mids are set per test;
// errors can be injected per wallet.
type mockGateway struct {
	mu        sync.Mutex
	positions map[string][]hyperliquid.Position
	errs      map[string]error
	mids      map[string]float64
	midsErr   error
	calls     map[string]int
}

func newMockGateway() *mockGateway {
	return &mockGateway{
		positions: make(map[string][]hyperliquid.Position),
		errs:      make(map[string]error),
		mids:      make(map[string]float64),
		calls:     make(map[string]int),
	}
}

func (m *mockGateway) Positions(ctx context.Context, wallet string) ([]hyperliquid.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[wallet]++
	if err := m.errs[wallet]; err != nil {
		return nil, err
	}
	return m.positions[wallet], nil
}

func (m *mockGateway) AllMids(ctx context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.midsErr != nil {
		return nil, m.midsErr
	}
	out := make(map[string]float64, len(m.mids))
	for k, v := range m.mids {
		out[k] = v
	}
	return out, nil
}

func (m *mockGateway) setPositions(wallet string, positions ...hyperliquid.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[wallet] = positions
	delete(m.errs, wallet)
}

func (m *mockGateway) setError(wallet string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[wallet] = err
}

func (m *mockGateway) callCount(wallet string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[wallet]
}

// recordingNotifier captures alerts. Alert dispatch happens off the cycle
// goroutine, so waiters use the channel rather than polling the slice.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notifier.ConsensusAlert
	ch     chan notifier.ConsensusAlert
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		ch: make(chan notifier.ConsensusAlert, 16),
	}
}

func (r *recordingNotifier) SendConsensusAlert(alert notifier.ConsensusAlert) {
	r.mu.Lock()
	r.alerts = append(r.alerts, alert)
	r.mu.Unlock()
	r.ch <- alert
}

func (r *recordingNotifier) Close() error {
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

// waitAlert blocks until one alert arrives or the timeout expires.
func (r *recordingNotifier) waitAlert(timeout time.Duration) (notifier.ConsensusAlert, bool) {
	select {
	case alert := <-r.ch:
		return alert, true
	case <-time.After(timeout):
		return notifier.ConsensusAlert{}, false
	}
}

// drainAlerts asserts that no alert arrives within the window.
func (r *recordingNotifier) quietFor(window time.Duration) bool {
	select {
	case alert := <-r.ch:
		// Put it back for a later waiter
		r.ch <- alert
		return false
	case <-time.After(window):
		return true
	}
}
