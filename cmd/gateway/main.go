package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"tg-channel-stats/internal/adapters/repo"
	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/config"
	"tg-channel-stats/internal/infra/db"
	httpinfra "tg-channel-stats/internal/infra/http"
	applog "tg-channel-stats/internal/infra/log"
	"tg-channel-stats/internal/infra/metrics"
	"tg-channel-stats/internal/infra/queue"
	"tg-channel-stats/internal/usecase/ingest"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "gateway")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("gateway: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var updateQueue domain.UpdateQueue
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		updateQueue = queue.NewRedisUpdateQueue(redisClient, "raw_updates")
	}

	ingestService := ingest.NewService(repoAdapter, updateQueue, logger.With().Str("component", "ingest").Logger())

	server := httpinfra.NewServer(logger.With().Str("component", "http").Logger())
	server.Router.Post("/webhook/{secret}", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if cfg.Webhook.Secret != "" && chi.URLParam(r, "secret") != cfg.Webhook.Secret {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var envelope struct {
			UpdateID int64 `json:"update_id"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil || envelope.UpdateID == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result, err := ingestService.Ingest(r.Context(), envelope.UpdateID, body, time.Now().UTC())
		if err != nil {
			logger.Error().Err(err).Int64("tg_update_id", envelope.UpdateID).Msg("gateway: ошибка приёма события")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"result": string(result)})
	})

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("gateway: сервер остановлен")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("gateway: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
