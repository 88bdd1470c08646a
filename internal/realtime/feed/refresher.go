package feed

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/minhle/dcarank/internal/realtime/cache"
	"github.com/minhle/dcarank/pkg/logger"
)

const (
	// Courtesy limit for refresh polling, well under the exchange quota.
	// The sliding-window gate still covers every call issued here.
	refreshRateLimit = 10 // req/sec

	refreshInterval = 15 * time.Second
)

// TickerSource fetches one current price over REST
type TickerSource interface {
	TickerPrice(ctx context.Context, symbol string) (float64, error)
}

// Refresher re-polls stale cache entries over REST so the fast path stays
// warm when the stream drops ticks
// ⭐ SSOT: 캐시 재충전 폴링은 이 리프레셔에서만
type Refresher struct {
	source  TickerSource
	cache   *cache.PriceCache
	limiter *rate.Limiter
	logger  *logger.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewRefresher creates a rate-limited stale-entry refresher
func NewRefresher(source TickerSource, priceCache *cache.PriceCache, log *logger.Logger) *Refresher {
	return &Refresher{
		source:  source,
		cache:   priceCache,
		limiter: rate.NewLimiter(rate.Limit(refreshRateLimit), refreshRateLimit),
		logger:  log.WithField("module", "refresher"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the refresh loop
func (r *Refresher) Start(ctx context.Context) {
	go r.loop(ctx)
}

// Stop stops the refresh loop
func (r *Refresher) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *Refresher) loop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshStale(ctx)
		}
	}
}

// refreshStale re-polls every aged-out symbol under the courtesy limiter
func (r *Refresher) refreshStale(ctx context.Context) {
	stale := r.cache.StaleSymbols()
	if len(stale) == 0 {
		return
	}

	refreshed := 0
	for _, symbol := range stale {
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}

		price, err := r.source.TickerPrice(ctx, symbol)
		if err != nil {
			r.logger.WithError(err).WithField("symbol", symbol).Debug("Refresh failed")
			continue
		}

		r.cache.Update(symbol, price, time.Now())
		refreshed++
	}

	r.logger.WithFields(map[string]interface{}{
		"stale":     len(stale),
		"refreshed": refreshed,
	}).Debug("Refreshed stale prices")
}
