package vault_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/recoverybot/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stateDoc = `{
	"marginSummary": {"accountValue": "125000.5", "totalMarginUsed": "4300"},
	"assetPositions": [
		{"position": {"coin": "ETH", "entryPx": "2500.0", "szi": "1.5",
			"leverage": {"value": 3}, "unrealizedPnl": "120.25"}},
		{"position": {"coin": "BTC", "entryPx": "64000", "szi": "-0.1",
			"leverage": {"value": 2}, "unrealizedPnl": "-50"}}
	]
}`

const detailsDoc = `{
	"apr": 0.42,
	"portfolio": [
		["day", {"pnlHistory": [[1700000000000, "10"]]}],
		["allTime", {"pnlHistory": [[1700000000000, "100"], [1700086400000, "2345.6"]]}]
	]
}`

func newServer(t *testing.T, requests *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*requests = append(*requests, body["type"])

		switch body["type"] {
		case "clearinghouseState":
			assert.Equal(t, "0xabc", body["user"])
			w.Write([]byte(stateDoc))
		case "vaultDetails":
			assert.Equal(t, "0xabc", body["vaultAddress"])
			w.Write([]byte(detailsDoc))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestFetchSummary(t *testing.T) {
	var requests []string
	srv := newServer(t, &requests)
	defer srv.Close()

	c := vault.NewClient(srv.URL, "0xabc")
	summary, err := c.FetchSummary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 125000.5, summary.AccountValue)
	assert.Equal(t, 4300.0, summary.MarginUsed)
	assert.Equal(t, 0.42, summary.APR)
	assert.Equal(t, 2345.6, summary.AllTimePnL)

	require.Len(t, summary.Positions, 2)
	assert.Equal(t, "ETH", summary.Positions[0].Coin)
	assert.Equal(t, 2500.0, summary.Positions[0].EntryPrice)
	assert.Equal(t, 3.0, summary.Positions[0].Leverage)
	assert.Equal(t, -0.1, summary.Positions[1].Size)
	assert.Equal(t, -50.0, summary.Positions[1].UnrealizedPnL)

	assert.Equal(t, []string{"clearinghouseState", "vaultDetails"}, requests)
}

func TestFetchSummary_MissingFieldsDefaultToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := vault.NewClient(srv.URL, "0xabc")
	summary, err := c.FetchSummary(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.AccountValue)
	assert.Zero(t, summary.MarginUsed)
	assert.Zero(t, summary.APR)
	assert.Zero(t, summary.AllTimePnL)
	assert.Empty(t, summary.Positions)
}

func TestFetchSummary_ErrorIsNotRetried(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := vault.NewClient(srv.URL, "0xabc")
	_, err := c.FetchSummary(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, hits, "a failed fetch waits for the user to retry")
}
