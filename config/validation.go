package config

import (
	"fmt"
	"regexp"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsValidWallet reports whether addr looks like an EVM address.
func IsValidWallet(addr string) bool {
	return walletPattern.MatchString(addr)
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	// Hyperliquid validation
	errors = append(errors, validateHyperliquid(&c.Hyperliquid)...)

	// Radar validation
	errors = append(errors, validateRadar(&c.Radar)...)

	// WebServer validation
	errors = append(errors, validateWebServer(&c.WebServer)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateHyperliquid(h *HyperliquidConfig) []ValidationError {
	var errors []ValidationError

	if h.InfoURL == "" {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.info_url",
			Message: "must not be empty",
		})
	}

	if h.RequestTimeout < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.request_timeout",
			Message: "must be at least 1 second",
		})
	}

	if h.RequestsPerSec <= 0 {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.requests_per_sec",
			Message: "must be positive",
		})
	}

	if h.RequestBurst < 1 {
		errors = append(errors, ValidationError{
			Field:   "hyperliquid.request_burst",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateRadar(r *RadarConfig) []ValidationError {
	var errors []ValidationError

	for _, w := range r.Wallets {
		if !IsValidWallet(w) {
			errors = append(errors, ValidationError{
				Field:   "radar.wallets",
				Message: fmt.Sprintf("invalid address %q", w),
			})
		}
	}

	for _, a := range r.Assets {
		if a == "" {
			errors = append(errors, ValidationError{
				Field:   "radar.assets",
				Message: "symbol must not be empty",
			})
		}
	}

	if r.Threshold < 1 {
		errors = append(errors, ValidationError{
			Field:   "radar.threshold",
			Message: "must be at least 1",
		})
	}

	if r.MinNotional < 0 {
		errors = append(errors, ValidationError{
			Field:   "radar.min_notional",
			Message: "must be non-negative",
		})
	}

	if r.PollInterval < 10*time.Second {
		errors = append(errors, ValidationError{
			Field:   "radar.poll_interval",
			Message: "must be at least 10 seconds",
		})
	}

	if r.PollInterval > 10*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "radar.poll_interval",
			Message: "must be at most 10 minutes",
		})
	}

	if r.Cooldown < 0 {
		errors = append(errors, ValidationError{
			Field:   "radar.cooldown",
			Message: "must be non-negative",
		})
	}

	if r.RecentSignals < 1 {
		errors = append(errors, ValidationError{
			Field:   "radar.recent_signals",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateWebServer(ws *WebServerConfig) []ValidationError {
	var errors []ValidationError

	if ws.Port < 1 || ws.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "web_server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", ws.Port),
		})
	}

	return errors
}
