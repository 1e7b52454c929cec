package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrWalletExists is returned when adding an address already monitored.
var ErrWalletExists = errors.New("wallet already monitored")

// ErrWalletNotFound is returned when removing an address that is not monitored.
var ErrWalletNotFound = errors.New("wallet not monitored")

// ErrAssetExists is returned when adding a symbol already monitored.
var ErrAssetExists = errors.New("asset already monitored")

// ErrAssetNotFound is returned when removing a symbol that is not monitored.
var ErrAssetNotFound = errors.New("asset not monitored")

// ConfigObserver is an interface for components that need to be notified of config changes.
type ConfigObserver interface {
	OnConfigUpdate(cfg *Config)
}

// LiveConfig is a thread-safe wrapper around Config that supports hot-reload.
// Mutations take effect on the next poll cycle; in-flight cycles finish on the
// parameters they started with.
type LiveConfig struct {
	mu        sync.RWMutex
	config    *Config
	observers []ConfigObserver
	obsMu     sync.RWMutex

	// Track when config was last updated
	lastUpdated time.Time
}

// NewLiveConfig creates a new LiveConfig with the given initial config.
func NewLiveConfig(initial *Config) *LiveConfig {
	if initial == nil {
		initial = Defaults()
	}
	return &LiveConfig{
		config:      initial.Clone(),
		observers:   make([]ConfigObserver, 0),
		lastUpdated: time.Now(),
	}
}

// Get returns a copy of the current config.
// This is safe to call from multiple goroutines.
func (lc *LiveConfig) Get() *Config {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.config.Clone()
}

// GetDirect returns a pointer to the current config without cloning.
// WARNING: This is faster but the caller must NOT modify the returned config.
// Use this only for read-only access in hot paths.
func (lc *LiveConfig) GetDirect() *Config {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.config
}

// Update atomically updates the config after validation.
// Returns an error if validation fails.
// Notifies all observers of the change.
func (lc *LiveConfig) Update(newConfig *Config) error {
	if newConfig == nil {
		return nil
	}

	// Validate the new config
	result := newConfig.Validate()
	if !result.Valid {
		return &ConfigValidationError{Errors: result.Errors}
	}

	// Clone to ensure we own the data
	cloned := newConfig.Clone()

	// Update the config
	lc.mu.Lock()
	lc.config = cloned
	lc.lastUpdated = time.Now()
	lc.mu.Unlock()

	// Notify observers (outside of lock to avoid deadlocks)
	lc.notifyObservers(cloned)

	return nil
}

// UpdatePartial updates specific fields of the config.
// Takes a function that modifies the config in place. If the resulting
// config fails validation the current config is left untouched.
func (lc *LiveConfig) UpdatePartial(updateFn func(*Config) error) error {
	lc.mu.Lock()
	newConfig := lc.config.Clone()
	lc.mu.Unlock()

	// Apply the update
	if err := updateFn(newConfig); err != nil {
		return err
	}

	// Validate and set
	return lc.Update(newConfig)
}

// AddWallet adds a monitored address. The address is normalized to lowercase
// so the same wallet in different casings is one wallet.
func (lc *LiveConfig) AddWallet(addr string) (string, error) {
	normalized := NormalizeWallet(addr)
	if !IsValidWallet(normalized) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	err := lc.UpdatePartial(func(cfg *Config) error {
		for _, w := range cfg.Radar.Wallets {
			if w == normalized {
				return ErrWalletExists
			}
		}
		cfg.Radar.Wallets = append(cfg.Radar.Wallets, normalized)
		return nil
	})
	if err != nil {
		return "", err
	}
	return normalized, nil
}

// RemoveWallet removes a monitored address. A partial query matches any
// wallet whose address contains it (case-insensitive); ambiguous or missing
// matches are errors.
func (lc *LiveConfig) RemoveWallet(query string) (string, error) {
	q := NormalizeWallet(query)
	if q == "" {
		return "", ErrWalletNotFound
	}
	var removed string
	err := lc.UpdatePartial(func(cfg *Config) error {
		var matches []string
		for _, w := range cfg.Radar.Wallets {
			if strings.Contains(w, q) {
				matches = append(matches, w)
			}
		}
		switch len(matches) {
		case 0:
			return ErrWalletNotFound
		case 1:
			removed = matches[0]
		default:
			return fmt.Errorf("%q matches %d wallets, be more specific", query, len(matches))
		}
		kept := cfg.Radar.Wallets[:0]
		for _, w := range cfg.Radar.Wallets {
			if w != removed {
				kept = append(kept, w)
			}
		}
		cfg.Radar.Wallets = kept
		return nil
	})
	if err != nil {
		return "", err
	}
	return removed, nil
}

// AddAsset adds a monitored symbol, normalized to uppercase.
func (lc *LiveConfig) AddAsset(symbol string) (string, error) {
	normalized := NormalizeAsset(symbol)
	if normalized == "" {
		return "", fmt.Errorf("empty symbol")
	}
	err := lc.UpdatePartial(func(cfg *Config) error {
		for _, a := range cfg.Radar.Assets {
			if a == normalized {
				return ErrAssetExists
			}
		}
		cfg.Radar.Assets = append(cfg.Radar.Assets, normalized)
		return nil
	})
	if err != nil {
		return "", err
	}
	return normalized, nil
}

// RemoveAsset removes a monitored symbol.
func (lc *LiveConfig) RemoveAsset(symbol string) (string, error) {
	normalized := NormalizeAsset(symbol)
	err := lc.UpdatePartial(func(cfg *Config) error {
		for i, a := range cfg.Radar.Assets {
			if a == normalized {
				cfg.Radar.Assets = append(cfg.Radar.Assets[:i], cfg.Radar.Assets[i+1:]...)
				return nil
			}
		}
		return ErrAssetNotFound
	})
	if err != nil {
		return "", err
	}
	return normalized, nil
}

// SetThreshold sets the consensus threshold.
func (lc *LiveConfig) SetThreshold(n int) error {
	return lc.UpdatePartial(func(cfg *Config) error {
		cfg.Radar.Threshold = n
		return nil
	})
}

// SetMinNotional sets the USD position size filter.
func (lc *LiveConfig) SetMinNotional(v float64) error {
	return lc.UpdatePartial(func(cfg *Config) error {
		cfg.Radar.MinNotional = v
		return nil
	})
}

// SetPollInterval sets the time between poll cycles.
func (lc *LiveConfig) SetPollInterval(d time.Duration) error {
	return lc.UpdatePartial(func(cfg *Config) error {
		cfg.Radar.PollInterval = d
		return nil
	})
}

// SetCooldown sets the per (asset, side) re-alert window.
func (lc *LiveConfig) SetCooldown(d time.Duration) error {
	return lc.UpdatePartial(func(cfg *Config) error {
		cfg.Radar.Cooldown = d
		return nil
	})
}

// AddObserver registers an observer to be notified of config changes.
func (lc *LiveConfig) AddObserver(obs ConfigObserver) {
	if obs == nil {
		return
	}
	lc.obsMu.Lock()
	defer lc.obsMu.Unlock()
	lc.observers = append(lc.observers, obs)
}

// RemoveObserver removes an observer from the notification list.
func (lc *LiveConfig) RemoveObserver(obs ConfigObserver) {
	if obs == nil {
		return
	}
	lc.obsMu.Lock()
	defer lc.obsMu.Unlock()
	for i, o := range lc.observers {
		if o == obs {
			lc.observers = append(lc.observers[:i], lc.observers[i+1:]...)
			return
		}
	}
}

// notifyObservers notifies all registered observers of a config change.
func (lc *LiveConfig) notifyObservers(cfg *Config) {
	lc.obsMu.RLock()
	observers := make([]ConfigObserver, len(lc.observers))
	copy(observers, lc.observers)
	lc.obsMu.RUnlock()

	for _, obs := range observers {
		// Clone for each observer to prevent mutations
		obs.OnConfigUpdate(cfg.Clone())
	}
}

// LastUpdated returns when the config was last updated.
func (lc *LiveConfig) LastUpdated() time.Time {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return lc.lastUpdated
}

// ConfigValidationError is returned when config validation fails.
type ConfigValidationError struct {
	Errors []ValidationError
}

func (e *ConfigValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "config validation failed"
	}
	return "config validation failed: " + e.Errors[0].Field + ": " + e.Errors[0].Message
}
