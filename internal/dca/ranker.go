package dca

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/minhle/dcarank/internal/exchange"
	"github.com/minhle/dcarank/pkg/logger"
)

// MarketData is the exchange boundary the ranker consumes. Implementations
// are expected to pass the admission gate before every network round trip.
type MarketData interface {
	ListPerpetuals(ctx context.Context) ([]string, error)
	HourlyKlines(ctx context.Context, symbol string, hoursBack int) ([]exchange.PriceSample, error)
	TickerPrice(ctx context.Context, symbol string) (float64, error)
}

// TickerCache is an optional fast path for current prices. A hit skips the
// REST ticker call; a miss falls through to MarketData.
type TickerCache interface {
	Lookup(symbol string) (float64, bool)
}

// Progress describes one completed unit of work. Emitted once per symbol
// after its unit concludes, in completion order.
type Progress struct {
	Symbol    string
	Completed int
	Total     int
	Errors    int
	Err       error
}

// Config holds the ranking engine parameters
type Config struct {
	Notional      float64
	Workers       int
	SymbolTimeout time.Duration
	MaxHours      int
}

// Ranker drives one ranking pass over the full symbol universe with a
// bounded worker pool and per-symbol failure isolation
// ⭐ SSOT: 배치 오케스트레이션은 이 구조체에서만
type Ranker struct {
	market      MarketData
	tickerCache TickerCache
	cfg         Config
	logger      *logger.Logger

	onProgress func(Progress)

	// injectable for tests
	now func() time.Time
}

// NewRanker creates a ranker over the given market boundary
func NewRanker(market MarketData, cfg Config, log *logger.Logger) *Ranker {
	return &Ranker{
		market: market,
		cfg:    cfg,
		logger: log.WithField("module", "ranker"),
		now:    time.Now,
	}
}

// OnProgress registers a per-unit completion callback. It is invoked from a
// single goroutine, never concurrently, and is best-effort: a slow consumer
// slows nothing but its own callback.
func (r *Ranker) OnProgress(fn func(Progress)) {
	r.onProgress = fn
}

// WithTickerCache sets the optional current-price fast path
func (r *Ranker) WithTickerCache(cache TickerCache) {
	r.tickerCache = cache
}

// unitResult carries one symbol's outcome from a worker to the collector
type unitResult struct {
	symbol string
	record *Performance
	err    error
}

// Run performs one full ranking batch. Per-symbol failures are absorbed and
// counted; only a failure to list the symbol universe aborts the batch.
func (r *Ranker) Run(ctx context.Context) (*RankingResult, error) {
	startTime := r.now()
	hoursPassed := HoursSinceUTCMidnight(startTime)

	// Before the first completed hour there is nothing to buy; return the
	// empty result without touching the network.
	if hoursPassed == 0 {
		r.logger.Info("Too early for DCA ranking, first hour not completed yet")
		return &RankingResult{
			Rankings: []*Performance{},
			Summary: Summary{
				Message: "Too early! Please wait until at least 1 hour has passed since 00:00 UTC",
			},
			LastUpdate: startTime,
		}, nil
	}

	hoursBack := hoursPassed
	if hoursBack > r.cfg.MaxHours {
		hoursBack = r.cfg.MaxHours
	}

	symbols, err := r.market.ListPerpetuals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list perpetual symbols: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"hours":   hoursPassed,
		"workers": r.cfg.Workers,
	}).Info("Starting DCA ranking batch")

	symbolCh := make(chan string, len(symbols))
	resultCh := make(chan unitResult, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.worker(ctx, workerID, symbolCh, resultCh, hoursBack, hoursPassed)
		}(i)
	}

	for _, symbol := range symbols {
		symbolCh <- symbol
	}
	close(symbolCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect in a single loop so progress emission is serialized: exactly
	// one notification per completed unit.
	records := make([]*Performance, 0, len(symbols))
	completed := 0
	errorCount := 0

	for result := range resultCh {
		completed++

		if result.err != nil {
			errorCount++
			if errors.Is(result.err, context.DeadlineExceeded) {
				r.logger.WithField("symbol", result.symbol).Warn("Symbol timed out")
			} else {
				r.logger.WithError(result.err).WithField("symbol", result.symbol).Error("Symbol failed")
			}
		} else if result.record != nil {
			records = append(records, result.record)
		}

		if r.onProgress != nil {
			r.onProgress(Progress{
				Symbol:    result.symbol,
				Completed: completed,
				Total:     len(symbols),
				Errors:    errorCount,
				Err:       result.err,
			})
		}

		if completed%25 == 0 {
			r.logger.Infof("Processed %d/%d symbols...", completed, len(symbols))
		}
	}

	Rank(records)
	summary := BuildSummary(records, hoursPassed, errorCount, r.cfg.Workers, r.now().Sub(startTime))

	r.logger.WithFields(map[string]interface{}{
		"ranked":     len(records),
		"errors":     errorCount,
		"profitable": summary.ProfitableSymbols,
	}).Info("DCA ranking batch completed")

	return &RankingResult{
		Rankings:   records,
		Summary:    summary,
		LastUpdate: r.now(),
	}, nil
}

// worker drains the symbol channel, processing one fetch+evaluate unit at a
// time under the per-symbol deadline.
func (r *Ranker) worker(ctx context.Context, workerID int, symbolCh <-chan string, resultCh chan<- unitResult, hoursBack, hoursPassed int) {
	for symbol := range symbolCh {
		select {
		case <-ctx.Done():
			resultCh <- unitResult{symbol: symbol, err: ctx.Err()}
			continue
		default:
		}

		// The deadline bounds only this unit; cancelling it never touches
		// other in-flight units or the shared gate.
		unitCtx, cancel := context.WithTimeout(ctx, r.cfg.SymbolTimeout)
		record, err := r.processSymbol(unitCtx, symbol, hoursBack, hoursPassed)
		cancel()

		if err != nil {
			r.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"symbol": symbol,
			}).Debug("Unit failed")
		}

		resultCh <- unitResult{symbol: symbol, record: record, err: err}
	}
}

// processSymbol runs one fetch+evaluate unit. A nil record with nil error
// means the symbol had no completed hourly data and is silently excluded.
func (r *Ranker) processSymbol(ctx context.Context, symbol string, hoursBack, hoursPassed int) (*Performance, error) {
	samples, err := r.market.HourlyKlines(ctx, symbol, hoursBack)
	if err != nil {
		return nil, fmt.Errorf("hourly klines: %w", err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	currentPrice, err := r.currentPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("current price: %w", err)
	}

	return Evaluate(symbol, samples, currentPrice, hoursPassed, r.cfg.Notional), nil
}

// currentPrice consults the realtime cache first, then the REST ticker
func (r *Ranker) currentPrice(ctx context.Context, symbol string) (float64, error) {
	if r.tickerCache != nil {
		if price, ok := r.tickerCache.Lookup(symbol); ok {
			return price, nil
		}
	}
	return r.market.TickerPrice(ctx, symbol)
}
