package galachain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arb-core/internal/credential"
	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/venue"
	"arb-core/pkg/crypto"
)

func newTestCredential(t *testing.T) *credential.Handle {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv("MASTER_ENCRYPTION_KEY", key)

	h, err := credential.New()
	require.NoError(t, err)

	path := t.TempDir() + "/key.txt"
	require.NoError(t, os.WriteFile(path, []byte("test-signing-key"), 0o600))
	require.NoError(t, h.LoadFromFile("primary", path))
	return h
}

func testPool() Pool {
	return Pool{
		TokenSymbol:    "GALA",
		QuoteCurrency:  "GUSDC",
		TokenReserve:   money.New(1_000_000),
		QuoteReserve:   money.New(50_000),
		FeeBps:         30,
		PerHopFixedFee: money.New(1),
	}
}

func TestGetQuote_Sell(t *testing.T) {
	pools := NewPoolState([]Pool{testPool()})
	p := New(pools, "http://unused", nil, zerolog.Nop())

	q, err := p.GetQuote(t.Context(), "GALA", money.New(1000), domain.SideSell, "GUSDC")
	require.NoError(t, err)
	assert.Equal(t, domain.VenuePrimary, q.Venue)
	assert.True(t, q.Price.IsPositive())
	assert.True(t, q.MinOutput.IsPositive())
}

func TestGetQuote_NoPool(t *testing.T) {
	pools := NewPoolState(nil)
	p := New(pools, "http://unused", nil, zerolog.Nop())

	_, err := p.GetQuote(t.Context(), "GALA", money.New(1000), domain.SideSell, "GUSDC")
	require.Error(t, err)
	var qerr *venue.QuoteError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, venue.QuoteErrNoRoute, qerr.Kind)
}

func TestSubmitSwap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/swap", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"txId": "tx-1", "output": "995.5"})
	}))
	defer srv.Close()

	pools := NewPoolState([]Pool{testPool()})
	p := New(pools, srv.URL, newTestCredential(t), zerolog.Nop())

	res, err := p.SubmitSwap(t.Context(), venue.SwapRequest{
		Symbol: "GALA", Side: domain.SideSell, TradeSize: money.New(1000),
		QuoteCurrency: "GUSDC", LimitPrice: money.New(1), SlippageBps: 50, MinOutput: money.New(990),
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", res.TxID)
	expected, err := money.NewFromString("995.5")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ActualOutput.Cmp(expected))
}

func TestGetBalances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/balances", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"balances":      map[string]string{"GALA": "500.25"},
			"nativeBalance": "12.5",
		})
	}))
	defer srv.Close()

	p := New(NewPoolState(nil), srv.URL, nil, zerolog.Nop())

	balances, native, err := p.GetBalances(t.Context(), []string{"GALA", "GUSDC"})
	require.NoError(t, err)
	expectedGala, err := money.NewFromString("500.25")
	require.NoError(t, err)
	assert.Equal(t, 0, balances["GALA"].Balance.Cmp(expectedGala))
	assert.True(t, balances["GUSDC"].Balance.IsZero())
	expectedNative, err := money.NewFromString("12.5")
	require.NoError(t, err)
	assert.Equal(t, 0, native.Cmp(expectedNative))
}
