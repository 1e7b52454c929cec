package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"hlradar/config"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to the Hyperliquid info endpoint. All queries are POSTs
// against a single URL with a "type" discriminator in the body.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
	infoURL    string
}

func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.Hyperliquid.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.Hyperliquid.RequestsPerSec), cfg.Hyperliquid.RequestBurst),
		infoURL: cfg.Hyperliquid.InfoURL,
	}
}

// APIError is returned for non-2xx responses from the info endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hyperliquid status=%d body=%s", e.StatusCode, e.Body)
}

// Transient reports whether the request is worth retrying on a later cycle.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Position is one open perp position from clearinghouseState.
// Size keeps the sign of szi: positive is long, negative is short.
type Position struct {
	Coin             string
	Size             float64
	EntryPrice       float64
	PositionValue    float64
	UnrealizedPnl    float64
	LiquidationPrice float64
	Leverage         float64
	LeverageType     string
	MarginUsed       float64
}

// Side returns "LONG" or "SHORT" from the sign of Size.
func (p *Position) Side() string {
	if p.Size < 0 {
		return "SHORT"
	}
	return "LONG"
}

// ---- wire types (the API encodes all numbers as strings) ----

type clearinghouseStateResponse struct {
	AssetPositions []assetPosition `json:"assetPositions"`
	Time           int64           `json:"time"`
}

type assetPosition struct {
	Type     string       `json:"type"`
	Position wirePosition `json:"position"`
}

type wirePosition struct {
	Coin           string       `json:"coin"`
	Szi            string       `json:"szi"`
	EntryPx        string       `json:"entryPx"`
	PositionValue  string       `json:"positionValue"`
	UnrealizedPnl  string       `json:"unrealizedPnl"`
	LiquidationPx  string       `json:"liquidationPx"`
	MarginUsed     string       `json:"marginUsed"`
	Leverage       wireLeverage `json:"leverage"`
}

type wireLeverage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Positions fetches the open perp positions for a wallet. Positions with
// zero size are dropped.
func (c *Client) Positions(ctx context.Context, wallet string) ([]Position, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, fmt.Errorf("wallet is empty")
	}

	payload := map[string]string{
		"type": "clearinghouseState",
		"user": wallet,
	}

	var state clearinghouseStateResponse
	if err := c.doPost(ctx, payload, &state); err != nil {
		return nil, fmt.Errorf("clearinghouse state for %s: %w", wallet, err)
	}

	positions := make([]Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		size := parseFloat(ap.Position.Szi)
		if size == 0 {
			continue
		}
		positions = append(positions, Position{
			Coin:             ap.Position.Coin,
			Size:             size,
			EntryPrice:       parseFloat(ap.Position.EntryPx),
			PositionValue:    parseFloat(ap.Position.PositionValue),
			UnrealizedPnl:    parseFloat(ap.Position.UnrealizedPnl),
			LiquidationPrice: parseFloat(ap.Position.LiquidationPx),
			Leverage:         ap.Position.Leverage.Value,
			LeverageType:     ap.Position.Leverage.Type,
			MarginUsed:       parseFloat(ap.Position.MarginUsed),
		})
	}

	return positions, nil
}

// AllMids fetches the current mid price for every listed coin.
func (c *Client) AllMids(ctx context.Context) (map[string]float64, error) {
	payload := map[string]string{
		"type": "allMids",
	}

	var raw map[string]string
	if err := c.doPost(ctx, payload, &raw); err != nil {
		return nil, fmt.Errorf("all mids: %w", err)
	}

	mids := make(map[string]float64, len(raw))
	for coin, px := range raw {
		// Internal index entries like "@123" are not tradable symbols
		if strings.HasPrefix(coin, "@") {
			continue
		}
		mids[coin] = parseFloat(px)
	}

	return mids, nil
}

// doPost performs a rate-limited POST against the info URL and decodes the
// JSON response.
func (c *Client) doPost(ctx context.Context, payload any, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.infoURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}

	return nil
}
