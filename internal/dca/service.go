package dca

import (
	"context"
	"fmt"
	"time"

	"github.com/minhle/dcarank/internal/activity"
	"github.com/minhle/dcarank/pkg/logger"
	"github.com/minhle/dcarank/pkg/redis"
)

const rankingCacheKey = "ranking"

// Service is the read surface consumed by the web layer: the full ranking
// and the per-symbol detail view
// ⭐ SSOT: DCA 조회 서비스는 이 구조체에서만
type Service struct {
	ranker  *Ranker
	market  MarketData
	cfg     Config
	cache   *redis.Cache
	ttl     time.Duration
	tracker *activity.Tracker
	logger  *logger.Logger

	now func() time.Time
}

// NewService creates the DCA query service
func NewService(ranker *Ranker, market MarketData, cfg Config, log *logger.Logger) *Service {
	return &Service{
		ranker: ranker,
		market: market,
		cfg:    cfg,
		logger: log.WithField("module", "dca"),
		now:    time.Now,
	}
}

// WithCache enables short-TTL caching of the ranking payload. A miss always
// recomputes from scratch; the cache only absorbs dashboard poll bursts.
func (s *Service) WithCache(cache *redis.Cache, ttl time.Duration) *Service {
	s.cache = cache
	s.ttl = ttl
	return s
}

// WithTracker wires the activity snapshot consumer
func (s *Service) WithTracker(tracker *activity.Tracker) *Service {
	s.tracker = tracker
	s.ranker.OnProgress(func(p Progress) {
		tracker.Progress(p.Symbol, p.Completed, p.Total, p.Errors)
	})
	return s
}

// GetRanking runs (or serves from cache) one full ranking batch
func (s *Service) GetRanking(ctx context.Context) (*RankingResult, error) {
	if s.tracker != nil {
		s.tracker.CountRequest()
		s.tracker.Set("starting", "Starting DCA ranking calculation...")
	}

	if s.cache != nil {
		var cached RankingResult
		found, err := s.cache.Get(ctx, rankingCacheKey, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Ranking cache read failed")
		}
		if found {
			s.logger.Debug("Serving ranking from cache")
			if s.tracker != nil {
				s.tracker.Set("completed", "Served ranking from cache")
			}
			return &cached, nil
		}
	}

	result, err := s.ranker.Run(ctx)
	if err != nil {
		if s.tracker != nil {
			s.tracker.Set("error", fmt.Sprintf("DCA calculation failed: %v", err))
		}
		return nil, err
	}

	if s.tracker != nil {
		if result.TooEarly() {
			s.tracker.Set("waiting", "Waiting for first hour to complete...")
		} else {
			s.tracker.Set("completed", fmt.Sprintf(
				"DCA ranking completed: %d symbols, %d profitable",
				result.Summary.TotalSymbols, result.Summary.ProfitableSymbols,
			))
		}
	}

	if s.cache != nil && !result.TooEarly() {
		if err := s.cache.Set(ctx, rankingCacheKey, result, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Ranking cache write failed")
		}
	}

	return result, nil
}

// GetSymbolDetail evaluates a single symbol and expands the per-hour
// breakdown. Returns nil when the symbol has no completed hourly data yet
// (including before the first hour of the UTC day).
func (s *Service) GetSymbolDetail(ctx context.Context, symbol string) (*SymbolDetail, error) {
	hoursPassed := HoursSinceUTCMidnight(s.now())
	if hoursPassed == 0 {
		return nil, nil
	}

	hoursBack := hoursPassed
	if hoursBack > s.cfg.MaxHours {
		hoursBack = s.cfg.MaxHours
	}

	samples, err := s.market.HourlyKlines(ctx, symbol, hoursBack)
	if err != nil {
		return nil, fmt.Errorf("hourly klines for %s: %w", symbol, err)
	}
	if len(samples) == 0 {
		return nil, nil
	}

	currentPrice, err := s.market.TickerPrice(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("current price for %s: %w", symbol, err)
	}

	perf := Evaluate(symbol, samples, currentPrice, hoursPassed, s.cfg.Notional)
	if perf == nil {
		return nil, nil
	}

	return &SymbolDetail{
		Performance:   *perf,
		HourlyDetails: HourlyBreakdown(perf, s.cfg.Notional),
	}, nil
}
