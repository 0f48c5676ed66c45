package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-channel-stats/internal/adapters/repo"
	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/config"
	"tg-channel-stats/internal/infra/db"
	applog "tg-channel-stats/internal/infra/log"
	"tg-channel-stats/internal/infra/metrics"
	"tg-channel-stats/internal/infra/queue"
	"tg-channel-stats/internal/usecase/process"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "processor")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("processor: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var updateQueue domain.UpdateQueue
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		updateQueue = queue.NewRedisUpdateQueue(redisClient, "raw_updates")
	}

	service := process.NewService(repoAdapter, repoAdapter, repoAdapter, logger.With().Str("component", "process").Logger())

	logger.Info().Msg("processor: запуск цикла обработки")
	service.Run(ctx, updateQueue, cfg.Processor.BatchSize, cfg.Processor.PollInterval)
	logger.Info().Msg("processor: остановлен")
}
