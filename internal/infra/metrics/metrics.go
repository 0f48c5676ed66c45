package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	UpdatesIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "updates_ingested_total",
		Help: "Принятые входящие события",
	})
	UpdatesDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "updates_duplicate_total",
		Help: "Повторные доставки, отброшенные по tg_update_id",
	})
	UpdatesProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "updates_processed_total",
		Help: "События, успешно обработанные в посты",
	})
	UpdatesErrored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "updates_errored_total",
		Help: "События, завершившиеся ошибкой обработки",
	})

	StatsRunSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stats_run_seconds",
		Help:    "Время расчёта статистики по всем каналам",
		Buckets: prometheus.DefBuckets,
	})
	StatsChannelErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stats_channel_errors_total",
		Help: "Ошибки агрегации по отдельным каналам",
	})
	StatsRunsByChannel = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stats_runs_by_channel_total",
		Help: "Количество рассчитанных снимков статистики по каналам",
	}, []string{"channel_id"})

	NotifySendsOK = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_sends_ok_total",
		Help: "Успешные отправки статистики в обсуждения",
	})
	NotifySendsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_sends_failed_total",
		Help: "Неудачные отправки статистики в обсуждения",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		UpdatesIngested,
		UpdatesDuplicate,
		UpdatesProcessed,
		UpdatesErrored,
		StatsRunSeconds,
		StatsChannelErrors,
		StatsRunsByChannel,
		NotifySendsOK,
		NotifySendsFailed,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncStatsRunForChannel увеличивает счётчик снимков статистики для канала.
func IncStatsRunForChannel(channelID int64) {
	StatsRunsByChannel.WithLabelValues(strconv.FormatInt(channelID, 10)).Inc()
}
