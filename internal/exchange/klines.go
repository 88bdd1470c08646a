package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// HourlyKlines fetches the 1h candles since 00:00 UTC for a symbol and
// returns the closes of at most hoursBack completed hours, chronological.
// The in-progress hour is never included.
// ⭐ SSOT: 시간봉 조회는 이 함수에서만
func (c *Client) HourlyKlines(ctx context.Context, symbol string, hoursBack int) ([]PriceSample, error) {
	dayStart := utcDayStart(time.Now().UTC())
	url := fmt.Sprintf(
		"%s/fapi/v1/klines?symbol=%s&interval=1h&startTime=%d&limit=24",
		c.baseURL, symbol, dayStart.UnixMilli(),
	)

	// Binance kline rows are heterogeneous arrays:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]interface{}
	if err := c.getJSON(ctx, url, &rows); err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}

	samples := make([]PriceSample, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}

		openMs, ok := row[0].(float64)
		if !ok {
			continue
		}

		closePrice := toFloat(row[4])
		if closePrice <= 0 {
			continue
		}

		samples = append(samples, PriceSample{
			OpenTime: time.UnixMilli(int64(openMs)).UTC(),
			Close:    closePrice,
			Volume:   toFloat(row[5]),
		})
	}

	// Only completed hours count as buys
	if len(samples) > hoursBack {
		samples = samples[:hoursBack]
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(samples),
	}).Debug("Fetched hourly klines")
	return samples, nil
}

// tickerResponse is the /fapi/v1/ticker/price payload
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// TickerPrice fetches the latest traded price for a symbol
func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	url := fmt.Sprintf("%s/fapi/v1/ticker/price?symbol=%s", c.baseURL, symbol)

	var ticker tickerResponse
	if err := c.getJSON(ctx, url, &ticker); err != nil {
		return 0, fmt.Errorf("fetch ticker for %s: %w", symbol, err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", ticker.Price, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("non-positive ticker price for %s", symbol)
	}

	return price, nil
}

// utcDayStart truncates t to 00:00 UTC of the same day
func utcDayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// toFloat converts Binance's mixed string/number fields to float64
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	default:
		return 0
	}
}
