package pricefeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/onemorebsmith/league-calc/src/common"
	"github.com/onemorebsmith/league-calc/src/model"
	"go.uber.org/zap"
)

var logger *zap.Logger

func TestMain(m *testing.M) {
	logger = common.ConfigureZap(zap.DebugLevel)
	os.Exit(m.Run())
}

func fakeBinance(t *testing.T, pairs map[string]string, down *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ticker/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if down != nil && atomic.LoadInt32(down) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		symbol := r.URL.Query().Get("symbol")
		price, ok := pairs[symbol]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
			return
		}
		fmt.Fprintf(w, `{"symbol":%q,"price":%q}`, symbol, price)
	}))
}

func TestFetchPricesDirectPairs(t *testing.T) {
	srv := fakeBinance(t, map[string]string{
		"BTCUSDT": "65000.50",
		"TRXUSDT": "0.12",
		"POLUSDT": "0.40",
	}, nil)
	defer srv.Close()

	c := NewClient(srv.URL, logger)
	data := c.FetchPrices(context.Background(), []string{"btc", "TRX", "POL", "ALGO"}, "USDT")
	expected := map[string]float64{"BTC": 65000.5, "TRX": 0.12, "POL": 0.4}
	if d := cmp.Diff(expected, data.Prices); d != "" {
		t.Fatalf("price mismatch: %s", d)
	}
	if data.Fiat != "USDT" {
		t.Fatalf("unexpected fiat %s", data.Fiat)
	}
}

func TestFetchPricesCrossRateAndAlias(t *testing.T) {
	srv := fakeBinance(t, map[string]string{
		"USDTTRY":  "30",
		"BTCTRY":   "2000000",
		"TRXUSDT":  "0.1",
		"MATICTRY": "15",
	}, nil)
	defer srv.Close()

	c := NewClient(srv.URL, logger)
	data := c.FetchPrices(context.Background(), []string{"BTC", "TRX", "POL"}, "TRY")
	if data.Prices["BTC"] != 2000000 {
		t.Fatalf("direct pair should win, got %v", data.Prices["BTC"])
	}
	if data.Prices["TRX"] != 0.1*30 {
		t.Fatalf("expected USDT cross rate, got %v", data.Prices["TRX"])
	}
	if data.Prices["POL"] != 15 {
		t.Fatalf("expected MATIC alias for POL, got %v", data.Prices["POL"])
	}
}

func TestFetchPricesKeepsCacheOnOutage(t *testing.T) {
	var down int32
	srv := fakeBinance(t, map[string]string{"BTCUSDT": "100"}, &down)
	defer srv.Close()

	c := NewClient(srv.URL, logger)
	first := c.FetchPrices(context.Background(), []string{"BTC"}, "USDT")
	if first.Prices["BTC"] != 100 {
		t.Fatalf("unexpected first price %v", first.Prices)
	}

	atomic.StoreInt32(&down, 1)
	second := c.FetchPrices(context.Background(), []string{"BTC"}, "USDT")
	if d := cmp.Diff(first, second); d != "" {
		t.Fatalf("outage should return cached prices: %s", d)
	}
	if d := cmp.Diff(first, c.Last()); d != "" {
		t.Fatalf("last should hold the cached result: %s", d)
	}

	// a different fiat has nothing cached
	third := c.FetchPrices(context.Background(), []string{"BTC"}, "EUR")
	if len(third.Prices) != 0 || third.Fiat != "EUR" {
		t.Fatalf("expected an empty EUR result, got %+v", third)
	}
}

func TestUnsupportedFiatFallsBackToUSDT(t *testing.T) {
	srv := fakeBinance(t, map[string]string{"BTCUSDT": "1"}, nil)
	defer srv.Close()
	data := NewClient(srv.URL, logger).FetchPrices(context.Background(), []string{"BTC"}, model.FiatCurrency("JPY"))
	if data.Fiat != "USDT" || data.Prices["BTC"] != 1 {
		t.Fatalf("unexpected result %+v", data)
	}
}
