package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/minhle/dcarank/internal/activity"
	"github.com/minhle/dcarank/internal/api"
	"github.com/minhle/dcarank/internal/api/handlers"
	"github.com/minhle/dcarank/internal/dca"
	"github.com/minhle/dcarank/internal/exchange"
	"github.com/minhle/dcarank/internal/rategate"
	"github.com/minhle/dcarank/internal/realtime/cache"
	"github.com/minhle/dcarank/internal/realtime/feed"
	"github.com/minhle/dcarank/internal/scheduler"
	"github.com/minhle/dcarank/internal/scheduler/jobs"
	"github.com/minhle/dcarank/pkg/config"
	"github.com/minhle/dcarank/pkg/httputil"
	"github.com/minhle/dcarank/pkg/logger"
	"github.com/minhle/dcarank/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the ranking API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                   - Health check
  GET  /api/dca-ranking          - Full DCA ranking (runs a batch)
  GET  /api/dca-symbol/{symbol}  - Per-hour breakdown for one symbol
  GET  /api/activity             - Live activity snapshot

Example:
  go run ./cmd/dcarank api
  go run ./cmd/dcarank api --port 8089`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if apiPort != "" {
		cfg.Port = apiPort
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Build the ranking stack
	tracker := activity.NewTracker()
	stack, err := buildStack(cfg, log, tracker)
	if err != nil {
		return err
	}
	service := stack.service

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Optional realtime price feed
	if cfg.Realtime.Enabled {
		wsFeed := feed.NewWSFeed(cfg.Binance.WSURL, stack.priceCache, log)
		if err := wsFeed.Start(ctx); err != nil {
			log.WithError(err).Warn("Realtime feed unavailable, falling back to REST only")
		} else {
			defer wsFeed.Stop()

			refresher := feed.NewRefresher(stack.exchange, stack.priceCache, log)
			refresher.Start(ctx)
			defer refresher.Stop()
		}
	}

	// 5. Optional warmup scheduler
	if cfg.WarmupSchedule != "" {
		sched := scheduler.New(log)
		if err := sched.AddJob(jobs.NewWarmupJob(service, cfg.WarmupSchedule, log)); err != nil {
			return fmt.Errorf("schedule warmup job: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 6. Create router and server
	dcaHandler := handlers.NewDCAHandler(service, tracker, log)
	router := api.NewRouter(dcaHandler, log)
	server := api.New(cfg, log, router)

	// 7. Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Infof("API server started on http://localhost:%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// appStack bundles the wired components the commands need handles on
type appStack struct {
	service    *dca.Service
	priceCache *cache.PriceCache
	exchange   *exchange.Client
}

// buildStack wires the admission gate, exchange client, ranker and cache
// into the query service. Shared by the api and rank commands.
func buildStack(cfg *config.Config, log *logger.Logger, tracker *activity.Tracker) (*appStack, error) {
	gate := rategate.New(cfg.RateLimit.Calls, cfg.RateLimit.Window, log)

	httpClient := httputil.NewWithTimeout(log, cfg.DCA.SymbolTimeout).WithGate(gate)

	exClient := exchange.NewClient(httpClient, cfg.Binance.BaseURL, log)
	exClient.OnCall(tracker.CountAPICall)

	dcaCfg := dca.Config{
		Notional:      cfg.DCA.HourlyNotional,
		Workers:       cfg.DCA.Workers,
		SymbolTimeout: cfg.DCA.SymbolTimeout,
		MaxHours:      cfg.DCA.MaxHours,
	}

	ranker := dca.NewRanker(exClient, dcaCfg, log)

	priceCache := cache.NewPriceCache(cfg.Realtime.MaxStaleness, log)
	if cfg.Realtime.Enabled {
		ranker.WithTickerCache(priceCache)
	}

	service := dca.NewService(ranker, exClient, dcaCfg, log).WithTracker(tracker)

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	if redisClient.Enabled() {
		service.WithCache(redis.NewCache(redisClient, "dcarank"), cfg.DCA.CacheTTL)
		log.Info("Ranking cache enabled")
	}

	return &appStack{
		service:    service,
		priceCache: priceCache,
		exchange:   exClient,
	}, nil
}
