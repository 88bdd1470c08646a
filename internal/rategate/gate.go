package rategate

import (
	"context"
	"sync"
	"time"

	"github.com/minhle/dcarank/pkg/logger"
)

// Gate is a process-wide admission gate for outbound exchange calls. It
// enforces a ceiling on the number of calls observed within any trailing
// window. A call is never rejected, only delayed until the window has room.
// ⭐ SSOT: 외부 API 호출 허용량 관리는 이 게이트에서만
type Gate struct {
	limit  int
	window time.Duration
	logger *logger.Logger

	// mu guards the whole check-wait-record sequence. Holding it across the
	// wait serializes admission, so two callers can never both observe the
	// last free slot.
	mu    sync.Mutex
	calls []time.Time

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a gate admitting at most limit calls per trailing window.
func New(limit int, window time.Duration, log *logger.Logger) *Gate {
	return &Gate{
		limit:  limit,
		window: window,
		logger: log.WithField("module", "rategate"),
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Acquire blocks until one more outbound call may be issued, then records
// it. Returns an error only when ctx is cancelled while waiting.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.limit <= 0 {
		// Misconfigured ceiling admits nothing. Config validation rejects
		// this at startup; never silently bypass here.
		<-ctx.Done()
		return ctx.Err()
	}

	now := g.now()
	g.prune(now)

	for len(g.calls) >= g.limit {
		wait := g.window - now.Sub(g.calls[0])
		if wait > 0 {
			g.logger.WithFields(map[string]interface{}{
				"in_window": len(g.calls),
				"wait":      wait,
			}).Debug("Rate ceiling reached, waiting")

			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
		}
		now = g.now()
		g.prune(now)
	}

	g.calls = append(g.calls, now)
	return nil
}

// InWindow returns the number of calls currently recorded in the window.
func (g *Gate) InWindow() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(g.now())
	return len(g.calls)
}

// prune drops timestamps that have left the trailing window. Caller must
// hold mu.
func (g *Gate) prune(now time.Time) {
	cutoff := now.Add(-g.window)
	i := 0
	for i < len(g.calls) && !g.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.calls = append(g.calls[:0], g.calls[i:]...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
