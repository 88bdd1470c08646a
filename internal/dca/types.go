package dca

import (
	"math"
	"time"
)

// Action labels, ordered from most to least bullish. Classification walks
// the thresholds top-down and the first match wins.
const (
	ActionStrongBuy  = "🟢 STRONG BUY"
	ActionBuy        = "🟢 BUY"
	ActionHold       = "⚠️ HOLD"
	ActionSell       = "🔴 SELL"
	ActionStrongSell = "🔴 STRONG SELL"
)

// Performance is the DCA evaluation result for one symbol.
// JSON field names are the dashboard contract.
type Performance struct {
	Rank          int       `json:"rank"`
	Symbol        string    `json:"symbol"`
	PnLPercentage float64   `json:"pnl_percentage"`
	TotalPnL      float64   `json:"total_pnl"`
	TotalInvested float64   `json:"total_invested"`
	CurrentValue  float64   `json:"current_value"`
	TotalTokens   float64   `json:"total_tokens"`
	AvgBuyPrice   float64   `json:"avg_buy_price"`
	CurrentPrice  float64   `json:"current_price"`
	WinRate       float64   `json:"win_rate"`
	HoursTracked  int       `json:"hours_tracked"`
	TotalBuys     int       `json:"total_buys"`
	WinningBuys   int       `json:"winning_buys"`
	AvgHourlyPnL  float64   `json:"avg_hourly_pnl"`
	Action        string    `json:"action"`
	BuyPrices     []float64 `json:"buy_prices"`
}

// HourlyDetail is the per-buy breakdown of a symbol's DCA performance
type HourlyDetail struct {
	Hour          int     `json:"hour"`
	BuyPrice      float64 `json:"buy_price"`
	TokensBought  float64 `json:"tokens_bought"`
	Investment    float64 `json:"investment"`
	CurrentValue  float64 `json:"current_value"`
	PnL           float64 `json:"pnl"`
	PnLPercentage float64 `json:"pnl_percentage"`
	IsWinning     bool    `json:"is_winning"`
}

// SymbolDetail extends a Performance record with its hourly breakdown
type SymbolDetail struct {
	Performance
	HourlyDetails []HourlyDetail `json:"hourly_details"`
}

// Summary aggregates one ranking batch
type Summary struct {
	Message           string  `json:"message,omitempty"`
	HoursPassed       int     `json:"hours_passed"`
	TotalSymbols      int     `json:"total_symbols"`
	TotalInvested     float64 `json:"total_invested"`
	TotalCurrentValue float64 `json:"total_current_value"`
	TotalPnL          float64 `json:"total_pnl"`
	AvgPnLPercentage  float64 `json:"avg_pnl_percentage"`
	ProfitableSymbols int     `json:"profitable_symbols"`
	ProfitableRate    float64 `json:"profitable_rate"`
	ProcessingTime    float64 `json:"processing_time"`
	Errors            int     `json:"errors"`
	Workers           int     `json:"workers"`
}

// RankingResult is the full outcome of one batch run
type RankingResult struct {
	Rankings   []*Performance `json:"rankings"`
	Summary    Summary        `json:"summary"`
	LastUpdate time.Time      `json:"last_update"`
}

// TooEarly reports whether the batch ran before the first UTC hour of the
// day completed. This is a valid empty result, not an error.
func (r *RankingResult) TooEarly() bool {
	return r.Summary.HoursPassed == 0
}

// classifyAction maps a P&L percentage to its action bucket
func classifyAction(pnlPct float64) string {
	switch {
	case pnlPct > 2:
		return ActionStrongBuy
	case pnlPct > 0:
		return ActionBuy
	case pnlPct > -2:
		return ActionHold
	case pnlPct > -5:
		return ActionSell
	default:
		return ActionStrongSell
	}
}

// HoursSinceUTCMidnight returns the number of completed hours since 00:00
// UTC of the current day.
func HoursSinceUTCMidnight(now time.Time) int {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int(now.Sub(dayStart).Hours())
}

// Display rounding. Totals are computed in full precision first; only the
// emitted fields go through these.

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }
