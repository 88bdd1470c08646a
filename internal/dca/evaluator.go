package dca

import (
	"github.com/minhle/dcarank/internal/exchange"
)

// Evaluate simulates one fixed-notional buy per completed hourly close and
// reports unrealized P&L against currentPrice. Pure; returns nil when there
// are no samples to buy at. Buys only ever happen at historical closes,
// never at currentPrice itself.
// ⭐ SSOT: DCA 수익률 계산은 이 함수에서만
func Evaluate(symbol string, samples []exchange.PriceSample, currentPrice float64, hoursPassed int, notional float64) *Performance {
	if len(samples) == 0 {
		return nil
	}

	var (
		totalInvested float64
		totalTokens   float64
		winningBuys   int
	)
	buyPrices := make([]float64, 0, len(samples))

	for _, sample := range samples {
		buyPrice := sample.Close
		buyPrices = append(buyPrices, buyPrice)

		totalTokens += notional / buyPrice
		totalInvested += notional

		if currentPrice > buyPrice {
			winningBuys++
		}
	}

	currentValue := totalTokens * currentPrice
	totalPnL := currentValue - totalInvested
	pnlPercentage := (totalPnL / totalInvested) * 100
	winRate := float64(winningBuys) / float64(len(buyPrices)) * 100

	// hours_tracked follows the wall clock, not the sample count; the two
	// can diverge when the fetched history has gaps. total_buys carries the
	// true sample count.
	avgHourlyPnL := 0.0
	if hoursPassed > 0 {
		avgHourlyPnL = totalPnL / float64(hoursPassed)
	}

	return &Performance{
		Symbol:        symbol,
		PnLPercentage: round2(pnlPercentage),
		TotalPnL:      round2(totalPnL),
		TotalInvested: totalInvested,
		CurrentValue:  round2(currentValue),
		TotalTokens:   round6(totalTokens),
		AvgBuyPrice:   round6(totalInvested / totalTokens),
		CurrentPrice:  currentPrice,
		WinRate:       round1(winRate),
		HoursTracked:  hoursPassed,
		TotalBuys:     len(buyPrices),
		WinningBuys:   winningBuys,
		AvgHourlyPnL:  round2(avgHourlyPnL),
		Action:        classifyAction(pnlPercentage),
		BuyPrices:     buyPrices,
	}
}

// HourlyBreakdown expands a record into one entry per buy, valuing each buy
// independently at the record's current price.
func HourlyBreakdown(perf *Performance, notional float64) []HourlyDetail {
	details := make([]HourlyDetail, 0, len(perf.BuyPrices))

	for i, buyPrice := range perf.BuyPrices {
		tokensBought := notional / buyPrice
		currentValue := tokensBought * perf.CurrentPrice
		pnl := currentValue - notional

		details = append(details, HourlyDetail{
			Hour:          i + 1,
			BuyPrice:      round6(buyPrice),
			TokensBought:  round6(tokensBought),
			Investment:    notional,
			CurrentValue:  round2(currentValue),
			PnL:           round2(pnl),
			PnLPercentage: round2(pnl / notional * 100),
			IsWinning:     pnl > 0,
		})
	}

	return details
}
