package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"tg-channel-stats/internal/adapters/repo"
	"tg-channel-stats/internal/adapters/telegram"
	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/cache"
	"tg-channel-stats/internal/infra/config"
	"tg-channel-stats/internal/infra/db"
	httpinfra "tg-channel-stats/internal/infra/http"
	applog "tg-channel-stats/internal/infra/log"
	"tg-channel-stats/internal/infra/metrics"
	"tg-channel-stats/internal/usecase/notify"
	"tg-channel-stats/internal/usecase/stats"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv, "scheduler")

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), ":9090")

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)

	var guard domain.Cache
	if cfg.RedisAddr != "" {
		guard = cache.NewRedis(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
	}

	aggregator := stats.NewAggregator(repoAdapter)
	job := stats.NewJob(repoAdapter, repoAdapter, aggregator, logger.With().Str("component", "stats").Logger())
	notifier := notify.NewService(telegram.NewClientFactory(cfg.Telegram.Token), logger.With().Str("component", "notify").Logger())

	runner := &statsRunner{
		job:      job,
		notifier: notifier,
		guard:    guard,
		timeout:  cfg.Stats.JobTimeout,
		log:      logger,
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Stats.CronSpec, func() { runner.Tick(ctx, time.Now().UTC()) }); err != nil {
		logger.Fatal().Err(err).Str("spec", cfg.Stats.CronSpec).Msg("scheduler: некорректное cron-выражение")
	}
	c.Start()
	defer c.Stop()
	logger.Info().Str("spec", cfg.Stats.CronSpec).Msg("scheduler: тик запланирован")

	adminServer := newAdminServer(runner, repoAdapter, logger.With().Str("component", "admin").Logger())
	go func() {
		if err := adminServer.Start(":" + strconv.Itoa(cfg.Stats.AdminPort)); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("scheduler: админ-сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("scheduler: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = adminServer.Shutdown(shutdownCtx)
}

// statsRunner связывает тик расписания, защиту от повторного запуска и рассылку.
type statsRunner struct {
	job      *stats.Job
	notifier *notify.Service
	guard    domain.Cache
	timeout  time.Duration
	log      zerolog.Logger
}

// Tick выполняет ежедневный тик: тяжёлый расчёт запускается только
// в последний календарный день месяца.
func (r *statsRunner) Tick(ctx context.Context, now time.Time) {
	if !stats.IsLastDayOfMonth(now) {
		r.log.Debug().Time("now", now).Msg("scheduler: не последний день месяца, расчёт пропущен")
		return
	}

	if r.guard == nil {
		r.execute(ctx, now)
		return
	}
	key := "stats:run:" + now.Format("2006-01")
	if err := r.guard.Once(key, 48*time.Hour, func() error {
		r.execute(ctx, now)
		return nil
	}); err != nil {
		r.log.Error().Err(err).Msg("scheduler: ошибка замка запуска")
	}
}

// RunManual запускает расчёт произвольного месяца в обход календарной защиты.
func (r *statsRunner) RunManual(ctx context.Context, monthStart time.Time) (domain.StatsJobResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.job.RunForMonth(runCtx, monthStart, time.Now().UTC())
	if err != nil {
		return result, err
	}
	if err := r.notifier.SendStatsToChannels(runCtx, result); err != nil {
		r.log.Error().Err(err).Msg("scheduler: рассылка после ручного запуска не удалась")
	}
	return result, nil
}

func (r *statsRunner) execute(ctx context.Context, now time.Time) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.job.Run(runCtx, now)
	if err != nil {
		r.log.Error().Err(err).Msg("scheduler: расчёт статистики не удался")
		return
	}
	if err := r.notifier.SendStatsToChannels(runCtx, result); err != nil {
		r.log.Error().Err(err).Msg("scheduler: рассылка статистики не удалась")
	}
}

// statsRunView — компактное представление снимка для админ-выдачи.
type statsRunView struct {
	ID           int64     `json:"id"`
	Month        string    `json:"month"`
	Trigger      string    `json:"trigger"`
	CalculatedAt time.Time `json:"calculated_at"`
	PostsTotal   int       `json:"posts_total"`
	PostsPerDay  float64   `json:"posts_per_day"`
}

func newAdminServer(runner *statsRunner, runs domain.StatsRunRepo, logger zerolog.Logger) *httpinfra.Server {
	server := httpinfra.NewServer(logger)
	server.Router.Post("/admin/stats/run", func(w http.ResponseWriter, req *http.Request) {
		monthParam := req.URL.Query().Get("month")
		monthStart, err := time.Parse("2006-01", monthParam)
		if err != nil {
			http.Error(w, "параметр month должен иметь формат YYYY-MM", http.StatusBadRequest)
			return
		}
		result, err := runner.RunManual(req.Context(), monthStart)
		if err != nil {
			logger.Error().Err(err).Msg("admin: ручной запуск не удался")
			http.Error(w, "расчёт не удался", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"runs":` + strconv.Itoa(len(result.Runs)) + `,"errors":` + strconv.Itoa(len(result.Errors)) + `}`))
	})
	server.Router.Get("/admin/stats/runs", func(w http.ResponseWriter, req *http.Request) {
		channelID, err := strconv.ParseInt(req.URL.Query().Get("channel"), 10, 64)
		if err != nil {
			http.Error(w, "параметр channel обязателен", http.StatusBadRequest)
			return
		}
		limit := 20
		if raw := req.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				http.Error(w, "параметр limit должен быть от 1 до 100", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		history, err := runs.ListRuns(req.Context(), channelID, limit)
		if err != nil {
			logger.Error().Err(err).Int64("channel", channelID).Msg("admin: выборка снимков не удалась")
			http.Error(w, "выборка не удалась", http.StatusInternalServerError)
			return
		}

		views := make([]statsRunView, 0, len(history))
		for _, run := range history {
			views = append(views, statsRunView{
				ID:           run.ID,
				Month:        run.Month.Format("2006-01"),
				Trigger:      string(run.Trigger),
				CalculatedAt: run.CalculatedAt,
				PostsTotal:   run.PostsTotal,
				PostsPerDay:  run.PostsPerDay,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(views)
	})
	return server
}
