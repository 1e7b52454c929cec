package app

import (
	"sort"
	"time"
)

// DetectParams are the cycle-scoped consensus parameters.
type DetectParams struct {
	Assets      []string
	Threshold   int
	MinNotional float64
}

// Detect scans the wallet records for (asset, side) groups where at least
// Threshold distinct wallets hold positions above the notional filter.
// The filter applies before counting: a wallet with a tiny position on the
// consensus side contributes nothing.
//
// Pure function of its inputs. Signals come back sorted by count descending,
// then asset, then side; contributing wallets sorted by notional descending.
func Detect(wallets map[string]*WalletRecord, params DetectParams, now time.Time) []ConsensusSignal {
	if params.Threshold < 1 {
		return nil
	}

	monitored := make(map[string]bool, len(params.Assets))
	for _, a := range params.Assets {
		monitored[a] = true
	}

	groups := make(map[SignalKey][]WalletPosition)
	for wallet, rec := range wallets {
		if rec == nil {
			continue
		}
		seen := make(map[SignalKey]bool)
		for _, pos := range rec.Positions {
			if !monitored[pos.Asset] {
				continue
			}
			if pos.Notional < params.MinNotional {
				continue
			}
			key := SignalKey{Asset: pos.Asset, Side: pos.Side}
			// One vote per wallet per key regardless of record shape
			if seen[key] {
				continue
			}
			seen[key] = true
			pos.Wallet = wallet
			groups[key] = append(groups[key], pos)
		}
	}

	var signals []ConsensusSignal
	for key, members := range groups {
		if len(members) < params.Threshold {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			if members[i].Notional != members[j].Notional {
				return members[i].Notional > members[j].Notional
			}
			return members[i].Wallet < members[j].Wallet
		})

		var totalNotional, totalPnl float64
		for _, m := range members {
			totalNotional += m.Notional
			totalPnl += m.UnrealizedPnl
		}

		signals = append(signals, ConsensusSignal{
			Asset:         key.Asset,
			Side:          key.Side,
			Count:         len(members),
			Threshold:     params.Threshold,
			Wallets:       members,
			TotalNotional: totalNotional,
			TotalPnl:      totalPnl,
			DetectedAt:    now,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Count != signals[j].Count {
			return signals[i].Count > signals[j].Count
		}
		if signals[i].Asset != signals[j].Asset {
			return signals[i].Asset < signals[j].Asset
		}
		return signals[i].Side < signals[j].Side
	})

	return signals
}
