package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/minhle/dcarank/pkg/httputil"
	"github.com/minhle/dcarank/pkg/logger"
)

// ErrSymbolNotFound is returned when the exchange does not know the symbol.
var ErrSymbolNotFound = errors.New("symbol not found")

// Client handles communication with the Binance USDT-M futures API
// ⭐ SSOT: Binance Futures API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string

	// calls counts issued API requests, reported to the activity snapshot
	onCall func()
}

// NewClient creates a new Binance futures client. The httputil client is
// expected to carry the admission gate, so every method here passes the
// gate before its round trip.
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "exchange"),
		baseURL:    baseURL,
	}
}

// OnCall registers a hook invoked once per issued API request.
func (c *Client) OnCall(fn func()) {
	c.onCall = fn
}

// PriceSample is one completed hourly candle close
type PriceSample struct {
	OpenTime time.Time
	Close    float64
	Volume   float64
}

// getJSON fetches a URL and decodes the body into dest
func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	if c.onCall != nil {
		c.onCall()
	}

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		// Binance answers unknown symbols with 400 and code -1121
		body, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code == -1121 {
			return ErrSymbolNotFound
		}
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body failed: %w", err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parse response failed: %w", err)
	}

	return nil
}

// exchangeInfoResponse is the subset of /fapi/v1/exchangeInfo we consume
type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol       string `json:"symbol"`
		MarginAsset  string `json:"marginAsset"`
		ContractType string `json:"contractType"`
		Status       string `json:"status"`
	} `json:"symbols"`
}

// ListPerpetuals returns all tradable USDT perpetual symbols, sorted
// ⭐ SSOT: 심볼 유니버스 조회는 이 함수에서만
func (c *Client) ListPerpetuals(ctx context.Context) ([]string, error) {
	url := c.baseURL + "/fapi/v1/exchangeInfo"

	var info exchangeInfoResponse
	if err := c.getJSON(ctx, url, &info); err != nil {
		return nil, fmt.Errorf("fetch exchange info: %w", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.MarginAsset == "USDT" && s.ContractType == "PERPETUAL" {
			symbols = append(symbols, s.Symbol)
		}
	}
	sort.Strings(symbols)

	c.logger.WithField("count", len(symbols)).Debug("Fetched USDT perpetual symbols")
	return symbols, nil
}
