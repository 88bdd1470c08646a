package dca

import (
	"sort"
	"time"
)

// Rank orders records by P&L percentage descending and assigns dense
// 1-based ranks. The sort is stable: ties keep their completion order.
// ⭐ SSOT: 랭킹 정렬/순위 부여는 이 함수에서만
func Rank(records []*Performance) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PnLPercentage > records[j].PnLPercentage
	})

	for i, record := range records {
		record.Rank = i + 1
	}
}

// BuildSummary computes batch-wide statistics over the ranked records.
// Every ratio is guarded: an empty batch yields zero sums and zero rates.
func BuildSummary(records []*Performance, hoursPassed, errorCount, workers int, elapsed time.Duration) Summary {
	var totalInvested, totalCurrentValue float64
	profitable := 0

	for _, record := range records {
		totalInvested += record.TotalInvested
		totalCurrentValue += record.CurrentValue
		if record.PnLPercentage > 0 {
			profitable++
		}
	}

	totalPnL := totalCurrentValue - totalInvested

	avgPnLPct := 0.0
	if totalInvested > 0 {
		avgPnLPct = totalPnL / totalInvested * 100
	}

	profitableRate := 0.0
	if len(records) > 0 {
		profitableRate = float64(profitable) / float64(len(records)) * 100
	}

	return Summary{
		HoursPassed:       hoursPassed,
		TotalSymbols:      len(records),
		TotalInvested:     round2(totalInvested),
		TotalCurrentValue: round2(totalCurrentValue),
		TotalPnL:          round2(totalPnL),
		AvgPnLPercentage:  round2(avgPnLPct),
		ProfitableSymbols: profitable,
		ProfitableRate:    round1(profitableRate),
		ProcessingTime:    round2(elapsed.Seconds()),
		Errors:            errorCount,
		Workers:           workers,
	}
}
