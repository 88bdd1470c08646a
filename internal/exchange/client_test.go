package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minhle/dcarank/pkg/httputil"
	"github.com/minhle/dcarank/pkg/logger"
)

// countingGate records every admission without waiting
type countingGate struct {
	acquired atomic.Int64
}

func (g *countingGate) Acquire(ctx context.Context) error {
	g.acquired.Add(1)
	return nil
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *countingGate) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gate := &countingGate{}
	httpClient := httputil.New(logger.NewNop()).DisableRetry().WithGate(gate)
	return NewClient(httpClient, server.URL, logger.NewNop()), gate
}

func TestListPerpetuals(t *testing.T) {
	client, gate := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/exchangeInfo" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"symbols":[
			{"symbol":"ETHUSDT","marginAsset":"USDT","contractType":"PERPETUAL","status":"TRADING"},
			{"symbol":"BTCUSDT","marginAsset":"USDT","contractType":"PERPETUAL","status":"TRADING"},
			{"symbol":"BTCUSDT_240927","marginAsset":"USDT","contractType":"CURRENT_QUARTER","status":"TRADING"},
			{"symbol":"BTCUSD_PERP","marginAsset":"BTC","contractType":"PERPETUAL","status":"TRADING"}
		]}`))
	}))

	symbols, err := client.ListPerpetuals(context.Background())
	if err != nil {
		t.Fatalf("ListPerpetuals() error = %v", err)
	}

	// Quarterlies and coin-margined contracts filtered out, result sorted
	want := []string{"BTCUSDT", "ETHUSDT"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, symbols[i], want[i])
		}
	}

	if got := gate.acquired.Load(); got != 1 {
		t.Errorf("gate admissions = %d, want 1", got)
	}
}

func TestHourlyKlines(t *testing.T) {
	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	client, gate := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("interval"); got != "1h" {
			t.Errorf("interval = %q, want 1h", got)
		}
		if r.URL.Query().Get("startTime") == "" {
			t.Error("startTime missing from kline query")
		}
		// [openTime, open, high, low, close, volume, ...]
		w.Write([]byte(`[
			[` + formatMs(base) + `,"100.0","101.0","99.0","100.5","1000.0",0],
			[` + formatMs(base.Add(time.Hour)) + `,"100.5","103.0","100.0","102.0","900.0",0],
			[` + formatMs(base.Add(2*time.Hour)) + `,"102.0","102.5","101.0","101.5","800.0",0]
		]`))
	}))

	samples, err := client.HourlyKlines(context.Background(), "BTCUSDT", 2)
	if err != nil {
		t.Fatalf("HourlyKlines() error = %v", err)
	}

	// Trimmed to hoursBack completed hours
	if len(samples) != 2 {
		t.Fatalf("len(samples) = %d, want 2", len(samples))
	}
	if samples[0].Close != 100.5 || samples[1].Close != 102.0 {
		t.Errorf("closes = %v/%v, want 100.5/102.0", samples[0].Close, samples[1].Close)
	}
	if !samples[0].OpenTime.Equal(base) {
		t.Errorf("OpenTime = %v, want %v", samples[0].OpenTime, base)
	}
	if samples[0].Volume != 1000.0 {
		t.Errorf("Volume = %v, want 1000.0", samples[0].Volume)
	}

	if got := gate.acquired.Load(); got != 1 {
		t.Errorf("gate admissions = %d, want 1", got)
	}
}

func TestHourlyKlinesSkipsMalformedRows(t *testing.T) {
	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			[` + formatMs(base) + `,"100.0","101.0","99.0","100.5","1000.0",0],
			["not-a-number","1","1","1","1","1",0],
			[` + formatMs(base.Add(time.Hour)) + `,"1","1","1","0","1",0]
		]`))
	}))

	samples, err := client.HourlyKlines(context.Background(), "BTCUSDT", 24)
	if err != nil {
		t.Fatalf("HourlyKlines() error = %v", err)
	}
	if len(samples) != 1 {
		t.Errorf("len(samples) = %d, want 1: bad open time and zero close dropped", len(samples))
	}
}

func TestTickerPrice(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q, want BTCUSDT", got)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"65432.10"}`))
	}))

	price, err := client.TickerPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("TickerPrice() error = %v", err)
	}
	if price != 65432.10 {
		t.Errorf("price = %v, want 65432.10", price)
	}
}

func TestTickerPriceRejectsNonPositive(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"0.0"}`))
	}))

	if _, err := client.TickerPrice(context.Background(), "BTCUSDT"); err == nil {
		t.Fatal("TickerPrice() error = nil, want error for non-positive price")
	}
}

func TestUnknownSymbolMapsToErrSymbolNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))

	_, err := client.TickerPrice(context.Background(), "NOPEUSDT")
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("err = %v, want ErrSymbolNotFound", err)
	}
}

func TestServerErrorIsNotSymbolNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.TickerPrice(context.Background(), "BTCUSDT")
	if err == nil {
		t.Fatal("TickerPrice() error = nil, want error on 500")
	}
	if errors.Is(err, ErrSymbolNotFound) {
		t.Error("server error must not map to ErrSymbolNotFound")
	}
}

func TestEveryCallPassesTheGate(t *testing.T) {
	client, gate := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fapi/v1/exchangeInfo":
			w.Write([]byte(`{"symbols":[]}`))
		case "/fapi/v1/klines":
			w.Write([]byte(`[]`))
		default:
			w.Write([]byte(`{"symbol":"BTCUSDT","price":"1.0"}`))
		}
	}))
	ctx := context.Background()

	client.ListPerpetuals(ctx)
	client.HourlyKlines(ctx, "BTCUSDT", 1)
	client.TickerPrice(ctx, "BTCUSDT")

	if got := gate.acquired.Load(); got != 3 {
		t.Errorf("gate admissions = %d, want 3: one per request, none bypassed", got)
	}
}

func TestOnCallHookCountsRequests(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"BTCUSDT","price":"1.0"}`))
	}))

	var calls atomic.Int64
	client.OnCall(func() { calls.Add(1) })

	ctx := context.Background()
	client.TickerPrice(ctx, "BTCUSDT")
	client.TickerPrice(ctx, "BTCUSDT")

	if got := calls.Load(); got != 2 {
		t.Errorf("OnCall invocations = %d, want 2", got)
	}
}

func TestUTCDayStart(t *testing.T) {
	in := time.Date(2026, 8, 28, 17, 45, 12, 999, time.UTC)
	want := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	if got := utcDayStart(in); !got.Equal(want) {
		t.Errorf("utcDayStart(%v) = %v, want %v", in, got, want)
	}
}

// formatMs renders the unix-milli timestamp as a JSON number literal
func formatMs(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
