// Package vault reads the fund's account snapshot from the exchange info
// endpoint. The widget built on it is read only; a failed fetch is shown
// with a manual retry and is never retried automatically.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/example/recoverybot/pkg/models"
)

// Client queries one fixed account with two fixed request shapes: the
// clearinghouse state (balances and open positions) and the vault details
// (APR and historical PnL). Both responses are treated as opaque documents;
// the few numeric fields the dashboard shows are extracted defensively and
// default to zero when missing.
type Client struct {
	httpClient *http.Client
	endpoint   string
	account    string
}

func NewClient(endpoint, account string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   endpoint,
		account:    account,
	}
}

// FetchSummary performs both info requests and assembles the dashboard
// numbers. Either request failing fails the whole fetch; the caller decides
// when to retry.
func (c *Client) FetchSummary(ctx context.Context) (*models.VaultSummary, error) {
	state, err := c.post(ctx, map[string]string{
		"type": "clearinghouseState",
		"user": c.account,
	})
	if err != nil {
		return nil, fmt.Errorf("clearinghouse state: %w", err)
	}
	details, err := c.post(ctx, map[string]string{
		"type":         "vaultDetails",
		"vaultAddress": c.account,
	})
	if err != nil {
		return nil, fmt.Errorf("vault details: %w", err)
	}

	summary := &models.VaultSummary{
		AccountValue: asFloat(dig(state, "marginSummary", "accountValue")),
		MarginUsed:   asFloat(dig(state, "marginSummary", "totalMarginUsed")),
		APR:          asFloat(details["apr"]),
		AllTimePnL:   allTimePnL(details["portfolio"]),
		Positions:    positions(state["assetPositions"]),
	}
	return summary, nil
}

func (c *Client) post(ctx context.Context, body map[string]string) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("info status %d: %s", resp.StatusCode, string(snippet))
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func positions(raw any) []models.VaultPosition {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []models.VaultPosition
	for _, item := range items {
		wrapper, ok := item.(map[string]any)
		if !ok {
			continue
		}
		pos, ok := wrapper["position"].(map[string]any)
		if !ok {
			continue
		}
		coin, _ := pos["coin"].(string)
		out = append(out, models.VaultPosition{
			Coin:          coin,
			EntryPrice:    asFloat(pos["entryPx"]),
			Size:          asFloat(pos["szi"]),
			Leverage:      asFloat(dig(pos, "leverage", "value")),
			UnrealizedPnL: asFloat(pos["unrealizedPnl"]),
		})
	}
	return out
}

// allTimePnL digs the last sample out of the "allTime" PnL history. The
// portfolio document is a list of [period, metrics] pairs.
func allTimePnL(raw any) float64 {
	pairs, ok := raw.([]any)
	if !ok {
		return 0
	}
	for _, p := range pairs {
		pair, ok := p.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		if name, _ := pair[0].(string); name != "allTime" {
			continue
		}
		metrics, ok := pair[1].(map[string]any)
		if !ok {
			return 0
		}
		history, ok := metrics["pnlHistory"].([]any)
		if !ok || len(history) == 0 {
			return 0
		}
		sample, ok := history[len(history)-1].([]any)
		if !ok || len(sample) != 2 {
			return 0
		}
		return asFloat(sample[1])
	}
	return 0
}

// dig walks nested objects, returning nil as soon as a key is absent.
func dig(doc map[string]any, keys ...string) any {
	var cur any = doc
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}

// asFloat accepts the endpoint's habit of sending numbers as either JSON
// numbers or decimal strings. Anything else counts as zero.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err == nil {
			return f
		}
	}
	return 0
}
