package jobs

import (
	"context"
	"fmt"

	"github.com/minhle/dcarank/internal/dca"
	"github.com/minhle/dcarank/pkg/logger"
)

// WarmupJob recomputes the ranking on a schedule so dashboard requests hit
// a warm cache instead of paying for a full batch
// ⭐ SSOT: 랭킹 선계산 스케줄은 이 Job에서만
type WarmupJob struct {
	service  *dca.Service
	schedule string
	logger   *logger.Logger
}

// NewWarmupJob creates a new ranking warmup job
func NewWarmupJob(service *dca.Service, schedule string, log *logger.Logger) *WarmupJob {
	return &WarmupJob{
		service:  service,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *WarmupJob) Name() string {
	return "ranking_warmup"
}

// Schedule returns the configured cron expression
func (j *WarmupJob) Schedule() string {
	return j.schedule
}

// Run executes one ranking batch and discards the payload; the side effect
// is the refreshed cache entry.
func (j *WarmupJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled ranking warmup")

	result, err := j.service.GetRanking(ctx)
	if err != nil {
		return fmt.Errorf("ranking warmup failed: %w", err)
	}

	if result.TooEarly() {
		j.logger.Info("Warmup skipped, first hour of the UTC day not completed")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"symbols":    result.Summary.TotalSymbols,
		"profitable": result.Summary.ProfitableSymbols,
		"errors":     result.Summary.Errors,
	}).Info("Ranking warmup completed")

	return nil
}
