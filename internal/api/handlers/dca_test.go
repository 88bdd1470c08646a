package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/minhle/dcarank/internal/activity"
	"github.com/minhle/dcarank/internal/dca"
	"github.com/minhle/dcarank/internal/exchange"
	"github.com/minhle/dcarank/pkg/logger"
)

// emptyMarket knows no symbols and serves no data
type emptyMarket struct{}

func (emptyMarket) ListPerpetuals(ctx context.Context) ([]string, error) { return nil, nil }
func (emptyMarket) HourlyKlines(ctx context.Context, symbol string, hoursBack int) ([]exchange.PriceSample, error) {
	return nil, nil
}
func (emptyMarket) TickerPrice(ctx context.Context, symbol string) (float64, error) { return 0, nil }

func newTestHandler() (*DCAHandler, *activity.Tracker) {
	cfg := dca.Config{
		Notional:      1000,
		Workers:       2,
		SymbolTimeout: time.Second,
		MaxHours:      24,
	}
	market := emptyMarket{}
	ranker := dca.NewRanker(market, cfg, logger.NewNop())
	service := dca.NewService(ranker, market, cfg, logger.NewNop())
	tracker := activity.NewTracker()
	return NewDCAHandler(service, tracker, logger.NewNop()), tracker
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}

	var envelope map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope
}

func TestGetRankingEnvelope(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/dca-ranking", nil)
	rec := httptest.NewRecorder()
	handler.GetRanking(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["status"] != "success" {
		t.Errorf("status field = %v, want success", envelope["status"])
	}
	if _, ok := envelope["summary"]; !ok {
		t.Error("summary field missing from ranking envelope")
	}
}

func TestGetSymbolDetailNotFound(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/dca-symbol/NOPEUSDT", nil)
	req = mux.SetURLVars(req, map[string]string{"symbol": "NOPEUSDT"})
	rec := httptest.NewRecorder()
	handler.GetSymbolDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	if envelope["status"] != "error" {
		t.Errorf("status field = %v, want error", envelope["status"])
	}
	if envelope["message"] == "" {
		t.Error("message field empty in error envelope")
	}
}

func TestGetSymbolDetailMissingSymbol(t *testing.T) {
	handler, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/dca-symbol/", nil)
	rec := httptest.NewRecorder()
	handler.GetSymbolDetail(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetActivity(t *testing.T) {
	handler, tracker := newTestHandler()
	tracker.Set("calculating", "Processing symbols...")

	req := httptest.NewRequest(http.MethodGet, "/api/activity", nil)
	rec := httptest.NewRecorder()
	handler.GetActivity(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	envelope := decodeEnvelope(t, rec)
	data, ok := envelope["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("data field = %T, want object", envelope["data"])
	}
	if data["status"] != "calculating" {
		t.Errorf("activity status = %v, want calculating", data["status"])
	}
}
