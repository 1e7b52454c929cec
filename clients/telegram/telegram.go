package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hlradar/clients/notifier"
	"hlradar/config"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramClient sends alerts to Telegram and polls for bot commands.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, Telegram alerts disabled")
		return &TelegramClient{
			logger:  logger,
			chatID:  cfg.Telegram.ChatID,
			apiBase: defaultAPIBase,
		}
	}

	logger.Info("telegram bot initialized",
		zap.String("chatID", cfg.Telegram.ChatID),
	)

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   cfg.Telegram.ChatID,
		apiBase:  defaultAPIBase,
		client:   &http.Client{Timeout: 40 * time.Second},
	}
}

// Enabled reports whether the client has a token and a target chat.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != "" && tc.chatID != ""
}

// SendConsensusAlert sends a consensus alert notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendConsensusAlert(alert notifier.ConsensusAlert) {
	if !tc.Enabled() {
		tc.logger.Warn("telegram not configured, skipping alert")
		return
	}

	message := buildAlertMessage(alert)

	if err := tc.SendHTML(tc.chatID, message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram consensus alert",
		zap.String("asset", alert.Asset),
		zap.String("side", alert.Side),
		zap.Int("count", alert.Count),
	)
}

func buildAlertMessage(alert notifier.ConsensusAlert) string {
	var sb strings.Builder

	sideEmoji := "🟢"
	if alert.Side == "SHORT" {
		sideEmoji = "🔴"
	}

	title := "🚨 Consensus Alert"
	if alert.Kind == notifier.SignalKindChanged {
		title = "🔁 Consensus Update"
	}
	sb.WriteString(fmt.Sprintf("<b>%s</b>\n\n", title))
	sb.WriteString(fmt.Sprintf("%s <b>%d/%d wallets %s %s</b>\n\n",
		sideEmoji, alert.Count, alert.Threshold, alert.Side, escapeHTML(alert.Asset)))

	for _, w := range alert.Wallets {
		label := shortAddress(w.Address)
		if w.WalletURL != "" {
			sb.WriteString(fmt.Sprintf("• <a href=\"%s\">%s</a>", w.WalletURL, label))
		} else {
			sb.WriteString("• " + label)
		}
		sb.WriteString(fmt.Sprintf(" — $%s @ $%s entry", formatUSD(w.Notional), formatPrice(w.EntryPrice)))
		if w.UnrealizedPnl != 0 {
			sb.WriteString(fmt.Sprintf(" (uPnL %s$%s)", pnlSign(w.UnrealizedPnl), formatUSD(abs(w.UnrealizedPnl))))
		}
		if !w.OpenedAt.IsZero() {
			sb.WriteString(fmt.Sprintf(", opened %s", humanSince(w.OpenedAt)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n<b>Total Notional:</b> $%s\n", formatUSD(alert.TotalNotional)))
	sb.WriteString(fmt.Sprintf("<b>Total uPnL:</b> %s$%s\n", pnlSign(alert.TotalPnl), formatUSD(abs(alert.TotalPnl))))

	ts := alert.DetectedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	sb.WriteString(fmt.Sprintf("\n<i>hlradar • %s</i>", ts.UTC().Format("2006-01-02 15:04:05 UTC")))

	return sb.String()
}

// SendHTML sends an HTML-formatted message to the given chat.
func (tc *TelegramClient) SendHTML(chatID, text string) error {
	if tc.botToken == "" {
		return fmt.Errorf("telegram not configured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", tc.apiBase, tc.botToken)

	payload := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.httpClient().Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// ---- getUpdates long polling ----

// Update is one inbound update from getUpdates.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type updatesResponse struct {
	OK     bool     `json:"ok"`
	Result []Update `json:"result"`
}

// GetUpdates long-polls for inbound updates after the given offset.
// Blocks up to timeout on the Telegram side.
func (tc *TelegramClient) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	if tc.botToken == "" {
		return nil, fmt.Errorf("telegram not configured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/getUpdates", tc.apiBase, tc.botToken)

	q := url.Values{}
	q.Set("offset", fmt.Sprintf("%d", offset))
	q.Set("timeout", fmt.Sprintf("%d", int(timeout.Seconds())))
	q.Set("allowed_updates", `["message"]`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := tc.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed updatesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram API returned ok=false")
	}

	return parsed.Result, nil
}

func (tc *TelegramClient) httpClient() *http.Client {
	if tc.client != nil {
		return tc.client
	}
	return http.DefaultClient
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

func shortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-6:]
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	)
	return replacer.Replace(s)
}

func formatUSD(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
	if v >= 1_000 {
		return fmt.Sprintf("%.1fK", v/1_000)
	}
	return fmt.Sprintf("%.0f", v)
}

func formatPrice(v float64) string {
	if v >= 1000 {
		return fmt.Sprintf("%.0f", v)
	}
	if v >= 1 {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.4f", v)
}

func pnlSign(v float64) string {
	if v < 0 {
		return "-"
	}
	return "+"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func humanSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
