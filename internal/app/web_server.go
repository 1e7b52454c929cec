package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"hlradar/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket upgrader for the live dashboard
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// webMux builds the HTTP surface. Split out from startWebServer so tests can
// serve it with httptest.
func (r *Runner) webMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(r.GetStats())
	})

	// Full engine state
	mux.HandleFunc("/api/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(r.commander.State())
	})

	// Radar parameters: read or live-update
	mux.HandleFunc("/api/config", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(r.commander.Config())
		case http.MethodPatch, http.MethodPut:
			r.handleConfigUpdate(w, req)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Force an immediate poll cycle
	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		r.commander.Refresh()
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"refresh requested"}`))
	})

	// Recent alert history, newest first
	mux.HandleFunc("/api/signals", func(w http.ResponseWriter, req *http.Request) {
		n := 20
		if raw := req.URL.Query().Get("n"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				n = parsed
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(r.commander.Signals(n))
	})

	// WebSocket endpoint for the live dashboard
	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, req, nil)
		if err != nil {
			r.clients.Logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		// Hello frame: the last known state, before the first tick
		if err := conn.WriteJSON(r.GetStats()); err != nil {
			return
		}

		// Cycle and config updates push immediately, everything else on a 1s tick
		stateCh := r.engine.Publisher().Subscribe()
		defer r.engine.Publisher().Unsubscribe(stateCh)

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := conn.WriteJSON(r.GetStats()); err != nil {
					return // Client disconnected
				}
			case _, ok := <-stateCh:
				if !ok {
					return
				}
				if err := conn.WriteJSON(r.GetStats()); err != nil {
					return
				}
			}
		}
	})

	// HTML dashboard
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})

	return mux
}

// handleConfigUpdate applies a partial radar config over the live config.
// Unknown fields are rejected; a failed validation leaves the running config
// untouched.
func (r *Runner) handleConfigUpdate(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	current := r.liveConfig.Get()
	wrapped, err := json.Marshal(map[string]json.RawMessage{"radar": body})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := config.ConfigFromJSON(wrapped, current)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid config: %v", err), http.StatusBadRequest)
		return
	}

	if err := r.liveConfig.Update(updated); err != nil {
		http.Error(w, fmt.Sprintf("validation failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	r.clients.Logger.Info("radar config updated via web API")
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(r.commander.Config())
}

// startWebServer starts the HTTP server for the dashboard and API.
func (r *Runner) startWebServer(port int) {
	r.webServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: r.webMux(),
	}

	go func() {
		if err := r.webServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.clients.Logger.Error("web server error", zap.Error(err))
		}
	}()
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>hlradar</title>
    <style>
        :root {
            --bg-primary: #0d1117;
            --bg-secondary: #161b22;
            --bg-tertiary: #21262d;
            --border-color: #30363d;
            --text-primary: #c9d1d9;
            --text-secondary: #8b949e;
            --text-heading: #f0f6fc;
            --accent-blue: #58a6ff;
            --accent-green: #3fb950;
            --accent-red: #f85149;
            --accent-yellow: #d29922;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, monospace;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }
        h1 { color: var(--accent-blue); margin-bottom: 20px; font-size: 24px; }
        h2 { color: var(--text-secondary); font-size: 14px; text-transform: uppercase; margin: 20px 0 10px; letter-spacing: 1px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(300px, 1fr)); gap: 20px; }
        .card {
            background: var(--bg-secondary);
            border: 1px solid var(--border-color);
            border-radius: 8px;
            padding: 16px;
        }
        .card h3 { color: var(--accent-blue); font-size: 16px; margin-bottom: 12px; }
        .stat-row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid var(--bg-tertiary); }
        .stat-row:last-child { border-bottom: none; }
        .stat-label { color: var(--text-secondary); }
        .stat-value { color: var(--text-heading); font-weight: 600; }
        .stat-value.green { color: var(--accent-green); }
        .stat-value.red { color: var(--accent-red); }
        .stat-value.blue { color: var(--accent-blue); }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 20px; flex-wrap: wrap; gap: 10px; }
        .status { display: flex; align-items: center; gap: 8px; }
        .status-dot { width: 10px; height: 10px; border-radius: 50%; }
        .status-dot.connected { background: var(--accent-green); }
        .status-dot.disconnected { background: var(--accent-red); animation: blink 1s infinite; }
        @keyframes blink { 50% { opacity: 0.5; } }
        .signal-item { background: var(--bg-tertiary); padding: 12px; border-radius: 6px; margin-bottom: 8px; border-left: 3px solid var(--accent-green); }
        .signal-item.short { border-left-color: var(--accent-red); }
        .signal-head { display: flex; justify-content: space-between; font-weight: 600; }
        .signal-side.long { color: var(--accent-green); }
        .signal-side.short { color: var(--accent-red); }
        .signal-meta { color: var(--text-secondary); font-size: 13px; margin-top: 4px; }
        .wallet-row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid var(--bg-tertiary); font-size: 13px; }
        .wallet-row:last-child { border-bottom: none; }
        .wallet-addr { font-family: monospace; color: var(--accent-blue); text-decoration: none; }
        .empty { color: var(--text-secondary); text-align: center; padding: 20px; }
        .footer { margin-top: 30px; padding: 20px; text-align: center; border-top: 1px solid var(--border-color); color: var(--text-secondary); font-size: 13px; }
        button.refresh { background: var(--bg-tertiary); border: 1px solid var(--border-color); border-radius: 6px; padding: 6px 14px; color: var(--text-primary); cursor: pointer; }
        button.refresh:hover { border-color: var(--accent-blue); }
    </style>
</head>
<body>
    <div class="header">
        <h1>&#128225; hlradar</h1>
        <div class="status">
            <button class="refresh" onclick="forceRefresh()">&#128260; Refresh</button>
            <div id="wsDot" class="status-dot disconnected"></div>
            <span id="wsStatus">Connecting...</span>
        </div>
    </div>

    <div class="grid" style="margin-bottom: 20px;">
        <div class="card">
            <h3>&#9881;&#65039; Engine</h3>
            <div class="stat-row"><span class="stat-label">Uptime</span><span id="uptime" class="stat-value blue">-</span></div>
            <div class="stat-row"><span class="stat-label">Cycles</span><span id="cycles" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Last Cycle</span><span id="lastCycle" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Alerts Sent</span><span id="alertsSent" class="stat-value green">-</span></div>
        </div>
        <div class="card">
            <h3>&#127919; Parameters</h3>
            <div class="stat-row"><span class="stat-label">Wallets</span><span id="walletCount" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Assets</span><span id="assets" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Threshold</span><span id="threshold" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Min Notional</span><span id="minNotional" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Poll / Cooldown</span><span id="intervals" class="stat-value">-</span></div>
        </div>
        <div class="card">
            <h3>&#128226; Notifications</h3>
            <div class="stat-row"><span class="stat-label">Discord</span><span id="discordStatus" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Telegram</span><span id="telegramStatus" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Stale Wallets</span><span id="staleWallets" class="stat-value">-</span></div>
        </div>
    </div>

    <h2>&#128680; Active Consensus</h2>
    <div class="card">
        <div id="activeSignals"><div class="empty">No active signals</div></div>
    </div>

    <h2>&#128220; Recent Alerts</h2>
    <div class="card">
        <div id="recentSignals"><div class="empty">No alerts yet</div></div>
    </div>

    <div class="grid" style="margin-top: 20px;">
        <div class="card">
            <h3>&#128190; Runtime</h3>
            <div class="stat-row"><span class="stat-label">Heap Allocated</span><span id="heapAlloc" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Goroutines</span><span id="goroutines" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">GC Cycles</span><span id="numGC" class="stat-value">-</span></div>
            <div class="stat-row"><span class="stat-label">Go Version</span><span id="goVersion" class="stat-value">-</span></div>
        </div>
    </div>

    <script>
        function connect() {
            const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(protocol + '//' + window.location.host + '/ws');
            const dot = document.getElementById('wsDot');
            const status = document.getElementById('wsStatus');

            ws.onopen = () => {
                dot.className = 'status-dot connected';
                status.textContent = 'Live';
            };
            ws.onclose = () => {
                dot.className = 'status-dot disconnected';
                status.textContent = 'Reconnecting...';
                setTimeout(connect, 2000);
            };
            ws.onerror = () => ws.close();

            ws.onmessage = (e) => {
                const s = JSON.parse(e.data);
                const st = s.status;

                document.getElementById('uptime').textContent = s.uptime;
                document.getElementById('cycles').textContent = st.cycle_count;
                document.getElementById('lastCycle').textContent = st.last_cycle_at ? new Date(st.last_cycle_at).toLocaleTimeString() : '-';
                document.getElementById('alertsSent').textContent = st.alerts_sent;

                document.getElementById('walletCount').textContent = (st.wallets || []).length;
                document.getElementById('assets').textContent = (st.assets || []).join(', ') || '-';
                document.getElementById('threshold').textContent = st.threshold + ' wallets';
                document.getElementById('minNotional').textContent = '$' + (st.min_notional || 0).toLocaleString();
                document.getElementById('intervals').textContent = formatDur(st.poll_interval) + ' / ' + formatDur(st.cooldown);

                setBadge('discordStatus', s.notifications.discord_enabled);
                setBadge('telegramStatus', s.notifications.telegram_enabled);
                const stale = (st.failed_wallets || []).length;
                const staleEl = document.getElementById('staleWallets');
                staleEl.textContent = stale;
                staleEl.className = 'stat-value ' + (stale > 0 ? 'red' : 'green');

                renderSignals('activeSignals', s.signals, 'No active signals');
                renderSignals('recentSignals', s.recent_signals, 'No alerts yet');

                document.getElementById('heapAlloc').textContent = formatBytes(s.runtime.heap_alloc);
                document.getElementById('goroutines').textContent = s.runtime.goroutines;
                document.getElementById('numGC').textContent = s.runtime.num_gc;
                document.getElementById('goVersion').textContent = s.runtime.go_version;
            };
        }

        function setBadge(id, enabled) {
            const el = document.getElementById(id);
            el.textContent = enabled ? 'Enabled' : 'Disabled';
            el.className = 'stat-value ' + (enabled ? 'green' : 'red');
        }

        function formatDur(nanos) {
            if (!nanos) return '-';
            const secs = Math.round(nanos / 1e9);
            if (secs < 60) return secs + 's';
            return Math.round(secs / 60) + 'm';
        }

        function formatBytes(bytes) {
            if (!bytes) return '-';
            if (bytes < 1024 * 1024) return (bytes / 1024).toFixed(1) + ' KB';
            return (bytes / (1024 * 1024)).toFixed(1) + ' MB';
        }

        function renderSignals(id, signals, emptyText) {
            const el = document.getElementById(id);
            if (!signals || signals.length === 0) {
                el.innerHTML = '<div class="empty">' + emptyText + '</div>';
                return;
            }
            el.innerHTML = signals.map(s => {
                const side = s.side.toLowerCase();
                const wallets = (s.wallets || []).map(m => {
                    const short = m.wallet.substring(0, 8) + '...' + m.wallet.substring(m.wallet.length - 6);
                    const url = 'https://hyperdash.info/trader/' + m.wallet;
                    const pnl = m.unrealized_pnl || 0;
                    const pnlStr = (pnl >= 0 ? '+' : '') + '$' + pnl.toLocaleString(undefined, {maximumFractionDigits: 0});
                    return '<div class="wallet-row">' +
                        '<a class="wallet-addr" href="' + url + '" target="_blank">' + short + '</a>' +
                        '<span>$' + (m.notional || 0).toLocaleString(undefined, {maximumFractionDigits: 0}) + ' &middot; ' + pnlStr + '</span>' +
                        '</div>';
                }).join('');
                return '<div class="signal-item ' + side + '">' +
                    '<div class="signal-head">' +
                    '<span><span class="signal-side ' + side + '">' + s.side + '</span> ' + s.asset + '</span>' +
                    '<span>' + s.count + '/' + s.threshold + ' wallets</span>' +
                    '</div>' +
                    '<div class="signal-meta">$' + (s.total_notional || 0).toLocaleString(undefined, {maximumFractionDigits: 0}) +
                    ' total &middot; detected ' + new Date(s.detected_at).toLocaleTimeString() + '</div>' +
                    wallets +
                    '</div>';
            }).join('');
        }

        function forceRefresh() {
            fetch('/api/refresh', { method: 'POST' }).catch(err => console.error('refresh failed:', err));
        }

        connect();
    </script>

    <div class="footer">
        hlradar &middot; Hyperliquid consensus radar
    </div>
</body>
</html>
`
